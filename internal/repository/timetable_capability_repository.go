package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/el-siradj/SCHOOL/internal/models"
)

// TimetableCapabilityRepository persists the capability graph: qualifications, class assignments
// and sparse availability overrides.
type TimetableCapabilityRepository struct {
	db *sqlx.DB
}

// NewTimetableCapabilityRepository constructs the repository.
func NewTimetableCapabilityRepository(db *sqlx.DB) *TimetableCapabilityRepository {
	return &TimetableCapabilityRepository{db: db}
}

func (r *TimetableCapabilityRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// IsEligible checks qualification and class assignment with a single existence query.
func (r *TimetableCapabilityRepository) IsEligible(ctx context.Context, teacherID, subjectID, classID int64) (bool, error) {
	const query = `
SELECT 1
FROM teacher_subjects ts
JOIN teacher_classes tc ON tc.teacher_id = ts.teacher_id AND tc.class_id = $1
WHERE ts.teacher_id = $2 AND ts.subject_id = $3
LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, classID, teacherID, subjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check teacher eligibility: %w", err)
	}
	return true, nil
}

// GetAvailability returns the explicit override for one cell, or nil when none is recorded.
func (r *TimetableCapabilityRepository) GetAvailability(ctx context.Context, teacherID, dayID, periodID int64) (*bool, error) {
	const query = `SELECT is_available FROM teacher_availability WHERE teacher_id = $1 AND day_id = $2 AND period_id = $3`
	var available bool
	if err := r.db.GetContext(ctx, &available, query, teacherID, dayID, periodID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get teacher availability: %w", err)
	}
	return &available, nil
}

// ListEligibleTeachers returns every active (subject, teacher) pair usable for the class,
// ordered by subject then teacher id.
func (r *TimetableCapabilityRepository) ListEligibleTeachers(ctx context.Context, classID int64) ([]models.EligibleTeacher, error) {
	const query = `
SELECT ts.subject_id, t.id AS teacher_id, t.full_name
FROM teacher_subjects ts
JOIN teachers t ON t.id = ts.teacher_id AND t.is_active = TRUE
JOIN teacher_classes tc ON tc.teacher_id = t.id AND tc.class_id = $1
ORDER BY ts.subject_id ASC, t.id ASC`
	var teachers []models.EligibleTeacher
	if err := r.db.SelectContext(ctx, &teachers, query, classID); err != nil {
		return nil, fmt.Errorf("list eligible teachers: %w", err)
	}
	return teachers, nil
}

// ListAvailabilityForTeachers loads the overrides of several teachers at once.
func (r *TimetableCapabilityRepository) ListAvailabilityForTeachers(ctx context.Context, teacherIDs []int64) ([]models.TeacherAvailability, error) {
	if len(teacherIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT teacher_id, day_id, period_id, is_available FROM teacher_availability WHERE teacher_id = ANY($1)`
	var rows []models.TeacherAvailability
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(teacherIDs)); err != nil {
		return nil, fmt.Errorf("list teacher availability: %w", err)
	}
	return rows, nil
}

// ListTeacherSubjects returns the subject ids a teacher is qualified for.
func (r *TimetableCapabilityRepository) ListTeacherSubjects(ctx context.Context, teacherID int64) ([]int64, error) {
	const query = `SELECT subject_id FROM teacher_subjects WHERE teacher_id = $1 ORDER BY subject_id ASC`
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher subjects: %w", err)
	}
	return ids, nil
}

// ReplaceTeacherSubjects swaps a teacher's qualifications. Callers wrap it in a transaction.
func (r *TimetableCapabilityRepository) ReplaceTeacherSubjects(ctx context.Context, exec sqlx.ExtContext, teacherID int64, subjectIDs []int64) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM teacher_subjects WHERE teacher_id = $1`, teacherID); err != nil {
		return fmt.Errorf("clear teacher subjects: %w", err)
	}
	for _, subjectID := range subjectIDs {
		if _, err := target.ExecContext(ctx, `INSERT INTO teacher_subjects (teacher_id, subject_id) VALUES ($1, $2)`, teacherID, subjectID); err != nil {
			return fmt.Errorf("insert teacher subject: %w", err)
		}
	}
	return nil
}

// ListTeacherClasses returns the class ids a teacher is assigned to.
func (r *TimetableCapabilityRepository) ListTeacherClasses(ctx context.Context, teacherID int64) ([]int64, error) {
	const query = `SELECT class_id FROM teacher_classes WHERE teacher_id = $1 ORDER BY class_id ASC`
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher classes: %w", err)
	}
	return ids, nil
}

// ReplaceTeacherClasses swaps a teacher's class assignments. Callers wrap it in a transaction.
func (r *TimetableCapabilityRepository) ReplaceTeacherClasses(ctx context.Context, exec sqlx.ExtContext, teacherID int64, classIDs []int64) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM teacher_classes WHERE teacher_id = $1`, teacherID); err != nil {
		return fmt.Errorf("clear teacher classes: %w", err)
	}
	for _, classID := range classIDs {
		if _, err := target.ExecContext(ctx, `INSERT INTO teacher_classes (teacher_id, class_id) VALUES ($1, $2)`, teacherID, classID); err != nil {
			return fmt.Errorf("insert teacher class: %w", err)
		}
	}
	return nil
}

// ListTeacherAvailability returns the overrides recorded for one teacher.
func (r *TimetableCapabilityRepository) ListTeacherAvailability(ctx context.Context, teacherID int64) ([]models.TeacherAvailability, error) {
	const query = `SELECT teacher_id, day_id, period_id, is_available FROM teacher_availability WHERE teacher_id = $1 ORDER BY day_id ASC, period_id ASC`
	var rows []models.TeacherAvailability
	if err := r.db.SelectContext(ctx, &rows, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher availability: %w", err)
	}
	return rows, nil
}

// ReplaceTeacherAvailability swaps a teacher's overrides. Callers wrap it in a transaction.
func (r *TimetableCapabilityRepository) ReplaceTeacherAvailability(ctx context.Context, exec sqlx.ExtContext, teacherID int64, rows []models.TeacherAvailability) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM teacher_availability WHERE teacher_id = $1`, teacherID); err != nil {
		return fmt.Errorf("clear teacher availability: %w", err)
	}
	const insert = `INSERT INTO teacher_availability (teacher_id, day_id, period_id, is_available)
VALUES (:teacher_id, :day_id, :period_id, :is_available)`
	for i := range rows {
		rows[i].TeacherID = teacherID
		if _, err := sqlx.NamedExecContext(ctx, target, insert, rows[i]); err != nil {
			return fmt.Errorf("insert teacher availability: %w", err)
		}
	}
	return nil
}
