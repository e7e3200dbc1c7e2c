package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/el-siradj/SCHOOL/internal/models"
)

// TimetableCatalogRepository reads the reference data the planner works from.
// Single-row lookups return sql.ErrNoRows unwrapped so services can map it to NOT_FOUND.
type TimetableCatalogRepository struct {
	db *sqlx.DB
}

// NewTimetableCatalogRepository builds the repository.
func NewTimetableCatalogRepository(db *sqlx.DB) *TimetableCatalogRepository {
	return &TimetableCatalogRepository{db: db}
}

// GetClass fetches a class by id.
func (r *TimetableCatalogRepository) GetClass(ctx context.Context, id int64) (*models.Class, error) {
	const query = `SELECT id, level, name, cycle, is_active, sort_order FROM classes WHERE id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// GetSubject fetches a subject by id.
func (r *TimetableCatalogRepository) GetSubject(ctx context.Context, id int64) (*models.Subject, error) {
	const query = `SELECT id, name, code, is_global, is_active FROM subjects WHERE id = $1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// GetTeacher fetches a teacher by id.
func (r *TimetableCatalogRepository) GetTeacher(ctx context.Context, id int64) (*models.Teacher, error) {
	const query = `SELECT id, full_name, code, COALESCE(phone, '') AS phone, is_active FROM teachers WHERE id = $1`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// ListActiveDays returns active days in week order.
func (r *TimetableCatalogRepository) ListActiveDays(ctx context.Context) ([]models.Day, error) {
	const query = `SELECT id, code, label, sort_order, is_active FROM timetable_days WHERE is_active = TRUE ORDER BY sort_order ASC, id ASC`
	var days []models.Day
	if err := r.db.SelectContext(ctx, &days, query); err != nil {
		return nil, fmt.Errorf("list active days: %w", err)
	}
	return days, nil
}

// ListActivePeriods returns active periods in day order.
func (r *TimetableCatalogRepository) ListActivePeriods(ctx context.Context) ([]models.Period, error) {
	const query = `SELECT id, code, start_time, end_time, sort_order, is_active FROM timetable_periods WHERE is_active = TRUE ORDER BY sort_order ASC, id ASC`
	var periods []models.Period
	if err := r.db.SelectContext(ctx, &periods, query); err != nil {
		return nil, fmt.Errorf("list active periods: %w", err)
	}
	return periods, nil
}

// ListStudyWindow returns the teachable cells of a cycle, restricted to active days and periods,
// ordered by day order then period order with ids as the final tie-break.
func (r *TimetableCatalogRepository) ListStudyWindow(ctx context.Context, cycle string) ([]models.WindowSlot, error) {
	const query = `
SELECT tsp.day_id, tsp.period_id, d.sort_order AS day_order, p.sort_order AS period_order
FROM timetable_study_periods tsp
JOIN timetable_days d ON d.id = tsp.day_id AND d.is_active = TRUE
JOIN timetable_periods p ON p.id = tsp.period_id AND p.is_active = TRUE
WHERE tsp.cycle = $1 AND tsp.is_active = TRUE
ORDER BY d.sort_order ASC, p.sort_order ASC, tsp.day_id ASC, tsp.period_id ASC`
	var window []models.WindowSlot
	if err := r.db.SelectContext(ctx, &window, query, models.NormalizeCycle(cycle)); err != nil {
		return nil, fmt.Errorf("list study window: %w", err)
	}
	return window, nil
}

// GetWindowMembership returns the activation flags of one cell for a cycle, or sql.ErrNoRows when
// the cycle has no row for it.
func (r *TimetableCatalogRepository) GetWindowMembership(ctx context.Context, cycle string, dayID, periodID int64) (*models.WindowMembership, error) {
	const query = `
SELECT tsp.is_active AS window_active, d.is_active AS day_active, p.is_active AS period_active
FROM timetable_study_periods tsp
JOIN timetable_days d ON d.id = tsp.day_id
JOIN timetable_periods p ON p.id = tsp.period_id
WHERE tsp.cycle = $1 AND tsp.day_id = $2 AND tsp.period_id = $3`
	var membership models.WindowMembership
	if err := r.db.GetContext(ctx, &membership, query, models.NormalizeCycle(cycle), dayID, periodID); err != nil {
		return nil, err
	}
	return &membership, nil
}

// ListLevels returns the distinct levels of active classes.
func (r *TimetableCatalogRepository) ListLevels(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT level FROM classes WHERE is_active = TRUE AND level <> '' ORDER BY level ASC`
	var levels []string
	if err := r.db.SelectContext(ctx, &levels, query); err != nil {
		return nil, fmt.Errorf("list levels: %w", err)
	}
	return levels, nil
}

// ListSubjectsByIDs returns subjects for the given ids; unknown ids are simply absent.
func (r *TimetableCatalogRepository) ListSubjectsByIDs(ctx context.Context, ids []int64) ([]models.Subject, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT id, name, code, is_global, is_active FROM subjects WHERE id = ANY($1) ORDER BY id ASC`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// ListClassesByIDs returns classes for the given ids; unknown ids are simply absent.
func (r *TimetableCatalogRepository) ListClassesByIDs(ctx context.Context, ids []int64) ([]models.Class, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT id, level, name, cycle, is_active, sort_order FROM classes WHERE id = ANY($1) ORDER BY id ASC`
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}
