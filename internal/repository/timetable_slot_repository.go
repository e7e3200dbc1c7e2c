package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/el-siradj/SCHOOL/internal/models"
)

// TimetableSlotRepository is the assignment ledger. The table carries UNIQUE (class_id, day_id, period_id)
// and UNIQUE (teacher_id, day_id, period_id); inserts surface those violations as *pq.Error.
type TimetableSlotRepository struct {
	db *sqlx.DB
}

// NewTimetableSlotRepository builds the repository.
func NewTimetableSlotRepository(db *sqlx.DB) *TimetableSlotRepository {
	return &TimetableSlotRepository{db: db}
}

func (r *TimetableSlotRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const slotDetailQuery = `
SELECT t.id, t.class_id, t.day_id, t.period_id, t.subject_id, t.teacher_id, t.created_by, t.created_at,
       s.name AS subject_name, s.code AS subject_code, tr.full_name AS teacher_name,
       c.name AS class_name, c.level AS class_level
FROM timetable_slots t
JOIN subjects s ON s.id = t.subject_id
JOIN teachers tr ON tr.id = t.teacher_id
JOIN classes c ON c.id = t.class_id`

// GetByID fetches one slot.
func (r *TimetableSlotRepository) GetByID(ctx context.Context, id int64) (*models.TimetableSlot, error) {
	const query = `SELECT id, class_id, day_id, period_id, subject_id, teacher_id, created_by, created_at FROM timetable_slots WHERE id = $1`
	var slot models.TimetableSlot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// Create inserts a slot and fills its id and creation time.
func (r *TimetableSlotRepository) Create(ctx context.Context, exec sqlx.ExtContext, slot *models.TimetableSlot) error {
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = time.Now().UTC()
	}
	const query = `
INSERT INTO timetable_slots (class_id, day_id, period_id, subject_id, teacher_id, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`
	row := r.exec(exec).QueryRowxContext(ctx, query,
		slot.ClassID, slot.DayID, slot.PeriodID, slot.SubjectID, slot.TeacherID, slot.CreatedBy, slot.CreatedAt)
	if err := row.Scan(&slot.ID); err != nil {
		return fmt.Errorf("create timetable slot: %w", err)
	}
	return nil
}

// CreateBatch inserts every slot through the same executor, stopping at the first failure.
// Used inside a transaction so a failure leaves nothing behind.
func (r *TimetableSlotRepository) CreateBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.TimetableSlot) error {
	for i := range slots {
		if err := r.Create(ctx, exec, &slots[i]); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a slot by id and returns sql.ErrNoRows when nothing matched.
func (r *TimetableSlotRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id int64) error {
	result, err := r.exec(exec).ExecContext(ctx, `DELETE FROM timetable_slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete timetable slot: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted slot rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteByClass removes every slot of a class and reports how many went.
func (r *TimetableSlotRepository) DeleteByClass(ctx context.Context, exec sqlx.ExtContext, classID int64) (int64, error) {
	result, err := r.exec(exec).ExecContext(ctx, `DELETE FROM timetable_slots WHERE class_id = $1`, classID)
	if err != nil {
		return 0, fmt.Errorf("delete class slots: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check deleted class slot rows: %w", err)
	}
	return affected, nil
}

// ListDetailsByClass returns a class's slots with display names.
func (r *TimetableSlotRepository) ListDetailsByClass(ctx context.Context, classID int64) ([]models.TimetableSlotDetail, error) {
	query := slotDetailQuery + `
WHERE t.class_id = $1
ORDER BY t.day_id ASC, t.period_id ASC`
	var slots []models.TimetableSlotDetail
	if err := r.db.SelectContext(ctx, &slots, query, classID); err != nil {
		return nil, fmt.Errorf("list class slots: %w", err)
	}
	return slots, nil
}

// ListDetailsByTeacher returns a teacher's slots with display names.
func (r *TimetableSlotRepository) ListDetailsByTeacher(ctx context.Context, teacherID int64) ([]models.TimetableSlotDetail, error) {
	query := slotDetailQuery + `
WHERE t.teacher_id = $1
ORDER BY t.day_id ASC, t.period_id ASC`
	var slots []models.TimetableSlotDetail
	if err := r.db.SelectContext(ctx, &slots, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher slots: %w", err)
	}
	return slots, nil
}

// ListClassOccupancy returns the cells a class holds. OwnerID is the class id.
func (r *TimetableSlotRepository) ListClassOccupancy(ctx context.Context, classID int64) ([]models.SlotOccupancy, error) {
	const query = `SELECT id, class_id AS owner_id, day_id, period_id, subject_id FROM timetable_slots WHERE class_id = $1`
	var rows []models.SlotOccupancy
	if err := r.db.SelectContext(ctx, &rows, query, classID); err != nil {
		return nil, fmt.Errorf("list class occupancy: %w", err)
	}
	return rows, nil
}

// ListTeacherOccupancy returns the cells held by any of the teachers. OwnerID is the teacher id.
func (r *TimetableSlotRepository) ListTeacherOccupancy(ctx context.Context, teacherIDs []int64) ([]models.SlotOccupancy, error) {
	if len(teacherIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT id, teacher_id AS owner_id, day_id, period_id, subject_id FROM timetable_slots WHERE teacher_id = ANY($1)`
	var rows []models.SlotOccupancy
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(teacherIDs)); err != nil {
		return nil, fmt.Errorf("list teacher occupancy: %w", err)
	}
	return rows, nil
}

// FindClassOccupant returns the slot holding the class cell, or sql.ErrNoRows.
func (r *TimetableSlotRepository) FindClassOccupant(ctx context.Context, classID, dayID, periodID int64) (*models.SlotOccupancy, error) {
	const query = `SELECT id, class_id AS owner_id, day_id, period_id, subject_id FROM timetable_slots WHERE class_id = $1 AND day_id = $2 AND period_id = $3 LIMIT 1`
	var row models.SlotOccupancy
	if err := r.db.GetContext(ctx, &row, query, classID, dayID, periodID); err != nil {
		return nil, err
	}
	return &row, nil
}

// FindTeacherOccupant returns the slot holding the teacher cell, or sql.ErrNoRows.
func (r *TimetableSlotRepository) FindTeacherOccupant(ctx context.Context, teacherID, dayID, periodID int64) (*models.SlotOccupancy, error) {
	const query = `SELECT id, teacher_id AS owner_id, day_id, period_id, subject_id FROM timetable_slots WHERE teacher_id = $1 AND day_id = $2 AND period_id = $3 LIMIT 1`
	var row models.SlotOccupancy
	if err := r.db.GetContext(ctx, &row, query, teacherID, dayID, periodID); err != nil {
		return nil, err
	}
	return &row, nil
}
