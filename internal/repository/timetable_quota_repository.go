package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/el-siradj/SCHOOL/internal/models"
)

// TimetableQuotaRepository stores weekly subject quotas per level.
type TimetableQuotaRepository struct {
	db *sqlx.DB
}

// NewTimetableQuotaRepository constructs the repository.
func NewTimetableQuotaRepository(db *sqlx.DB) *TimetableQuotaRepository {
	return &TimetableQuotaRepository{db: db}
}

const quotaDetailColumns = `ls.level, ls.subject_id, ls.weekly_periods, ls.is_active,
       s.name AS subject_name, s.code AS subject_code, s.is_global`

// ListByLevel returns every quota line of a level, active or not.
func (r *TimetableQuotaRepository) ListByLevel(ctx context.Context, level string) ([]models.LevelSubjectQuotaDetail, error) {
	query := `SELECT ` + quotaDetailColumns + `
FROM level_subjects ls
JOIN subjects s ON s.id = ls.subject_id
WHERE ls.level = $1
ORDER BY s.id ASC`
	var quotas []models.LevelSubjectQuotaDetail
	if err := r.db.SelectContext(ctx, &quotas, query, strings.TrimSpace(level)); err != nil {
		return nil, fmt.Errorf("list level quotas: %w", err)
	}
	return quotas, nil
}

// ListSchedulableByLevel returns the active, positive quotas of active subjects, by subject id.
func (r *TimetableQuotaRepository) ListSchedulableByLevel(ctx context.Context, level string) ([]models.LevelSubjectQuotaDetail, error) {
	query := `SELECT ` + quotaDetailColumns + `
FROM level_subjects ls
JOIN subjects s ON s.id = ls.subject_id AND s.is_active = TRUE
WHERE ls.level = $1 AND ls.is_active = TRUE AND ls.weekly_periods > 0
ORDER BY s.id ASC`
	var quotas []models.LevelSubjectQuotaDetail
	if err := r.db.SelectContext(ctx, &quotas, query, strings.TrimSpace(level)); err != nil {
		return nil, fmt.Errorf("list schedulable quotas: %w", err)
	}
	return quotas, nil
}

// Upsert inserts or updates quota lines keyed by (level, subject_id).
func (r *TimetableQuotaRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, quotas []models.LevelSubjectQuota) error {
	if len(quotas) == 0 {
		return nil
	}
	target := exec
	if target == nil {
		target = r.db
	}
	const query = `
INSERT INTO level_subjects (level, subject_id, weekly_periods, is_active)
VALUES (:level, :subject_id, :weekly_periods, :is_active)
ON CONFLICT (level, subject_id) DO UPDATE
SET weekly_periods = EXCLUDED.weekly_periods,
    is_active = EXCLUDED.is_active`
	for i := range quotas {
		if _, err := sqlx.NamedExecContext(ctx, target, query, quotas[i]); err != nil {
			return fmt.Errorf("upsert level quota: %w", err)
		}
	}
	return nil
}
