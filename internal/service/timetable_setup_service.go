package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/el-siradj/SCHOOL/internal/dto"
	"github.com/el-siradj/SCHOOL/internal/models"
	appErrors "github.com/el-siradj/SCHOOL/pkg/errors"
)

type setupCatalog interface {
	GetTeacher(ctx context.Context, id int64) (*models.Teacher, error)
	ListLevels(ctx context.Context) ([]string, error)
	ListActiveDays(ctx context.Context) ([]models.Day, error)
	ListActivePeriods(ctx context.Context) ([]models.Period, error)
	ListSubjectsByIDs(ctx context.Context, ids []int64) ([]models.Subject, error)
	ListClassesByIDs(ctx context.Context, ids []int64) ([]models.Class, error)
}

type setupQuotaStore interface {
	ListByLevel(ctx context.Context, level string) ([]models.LevelSubjectQuotaDetail, error)
	Upsert(ctx context.Context, exec sqlx.ExtContext, quotas []models.LevelSubjectQuota) error
}

type setupCapabilityStore interface {
	ListTeacherSubjects(ctx context.Context, teacherID int64) ([]int64, error)
	ReplaceTeacherSubjects(ctx context.Context, exec sqlx.ExtContext, teacherID int64, subjectIDs []int64) error
	ListTeacherClasses(ctx context.Context, teacherID int64) ([]int64, error)
	ReplaceTeacherClasses(ctx context.Context, exec sqlx.ExtContext, teacherID int64, classIDs []int64) error
	ListTeacherAvailability(ctx context.Context, teacherID int64) ([]models.TeacherAvailability, error)
	ReplaceTeacherAvailability(ctx context.Context, exec sqlx.ExtContext, teacherID int64, rows []models.TeacherAvailability) error
}

type setupSlotReader interface {
	ListDetailsByTeacher(ctx context.Context, teacherID int64) ([]models.TimetableSlotDetail, error)
}

// TimetableSetupConfig bounds setup inputs.
type TimetableSetupConfig struct {
	MaxWeeklyPeriods int
}

// TimetableSetupService edits the inputs of the planner: level quotas and each teacher's
// qualifications, class assignments and availability overrides.
type TimetableSetupService struct {
	catalog    setupCatalog
	quotas     setupQuotaStore
	capability setupCapabilityStore
	slots      setupSlotReader
	tx         txProvider
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        TimetableSetupConfig
}

// NewTimetableSetupService wires the setup service.
func NewTimetableSetupService(
	catalog setupCatalog,
	quotas setupQuotaStore,
	capability setupCapabilityStore,
	slots setupSlotReader,
	tx txProvider,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableSetupConfig,
) *TimetableSetupService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxWeeklyPeriods <= 0 {
		cfg.MaxWeeklyPeriods = 70
	}
	return &TimetableSetupService{
		catalog:    catalog,
		quotas:     quotas,
		capability: capability,
		slots:      slots,
		tx:         tx,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
	}
}

// ListLevels returns levels of active classes.
func (s *TimetableSetupService) ListLevels(ctx context.Context) ([]string, error) {
	levels, err := s.catalog.ListLevels(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list levels")
	}
	if levels == nil {
		levels = []string{}
	}
	return levels, nil
}

// GetLevelQuotas returns every quota line of a level.
func (s *TimetableSetupService) GetLevelQuotas(ctx context.Context, query dto.LevelQuery) ([]models.LevelSubjectQuotaDetail, error) {
	query.Level = strings.TrimSpace(query.Level)
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "level is required")
	}
	quotas, err := s.quotas.ListByLevel(ctx, query.Level)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list level quotas")
	}
	if quotas == nil {
		quotas = []models.LevelSubjectQuotaDetail{}
	}
	return quotas, nil
}

// SaveLevelQuotas upserts quota lines after checking bounds and subject existence.
func (s *TimetableSetupService) SaveLevelQuotas(ctx context.Context, req dto.SaveLevelQuotasRequest) (err error) {
	req.Level = strings.TrimSpace(req.Level)
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid level quota payload")
	}
	subjectIDs := make([]int64, 0, len(req.Items))
	for _, item := range req.Items {
		if item.WeeklyPeriods > s.cfg.MaxWeeklyPeriods {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("weeklyPeriods for subject %d must be between 0 and %d", item.SubjectID, s.cfg.MaxWeeklyPeriods))
		}
		subjectIDs = append(subjectIDs, item.SubjectID)
	}
	if err := s.ensureSubjects(ctx, subjectIDs); err != nil {
		return err
	}

	quotas := make([]models.LevelSubjectQuota, 0, len(req.Items))
	for _, item := range req.Items {
		quotas = append(quotas, models.LevelSubjectQuota{
			Level:         req.Level,
			SubjectID:     item.SubjectID,
			WeeklyPeriods: item.WeeklyPeriods,
			Active:        item.IsActive,
		})
	}

	return s.inTx(ctx, "failed to save level quotas", func(tx *sqlx.Tx) error {
		return s.quotas.Upsert(ctx, tx, quotas)
	})
}

// GetTeacherSubjects lists a teacher's qualifications.
func (s *TimetableSetupService) GetTeacherSubjects(ctx context.Context, teacherID int64) ([]int64, error) {
	if err := s.ensureTeacher(ctx, teacherID); err != nil {
		return nil, err
	}
	ids, err := s.capability.ListTeacherSubjects(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher subjects")
	}
	return nonNilIDs(ids), nil
}

// ReplaceTeacherSubjects swaps a teacher's qualifications in one transaction.
func (s *TimetableSetupService) ReplaceTeacherSubjects(ctx context.Context, teacherID int64, req dto.ReplaceTeacherSubjectsRequest) ([]int64, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher subjects payload")
	}
	if err := s.ensureTeacher(ctx, teacherID); err != nil {
		return nil, err
	}
	ids := uniqueIDs(req.SubjectIDs)
	if err := s.ensureSubjects(ctx, ids); err != nil {
		return nil, err
	}
	if err := s.inTx(ctx, "failed to replace teacher subjects", func(tx *sqlx.Tx) error {
		return s.capability.ReplaceTeacherSubjects(ctx, tx, teacherID, ids)
	}); err != nil {
		return nil, err
	}
	return ids, nil
}

// GetTeacherClasses lists a teacher's class assignments.
func (s *TimetableSetupService) GetTeacherClasses(ctx context.Context, teacherID int64) ([]int64, error) {
	if err := s.ensureTeacher(ctx, teacherID); err != nil {
		return nil, err
	}
	ids, err := s.capability.ListTeacherClasses(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher classes")
	}
	return nonNilIDs(ids), nil
}

// ReplaceTeacherClasses swaps a teacher's class assignments in one transaction.
func (s *TimetableSetupService) ReplaceTeacherClasses(ctx context.Context, teacherID int64, req dto.ReplaceTeacherClassesRequest) ([]int64, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher classes payload")
	}
	if err := s.ensureTeacher(ctx, teacherID); err != nil {
		return nil, err
	}
	ids := uniqueIDs(req.ClassIDs)
	if len(ids) > 0 {
		classes, err := s.catalog.ListClassesByIDs(ctx, ids)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
		}
		if missing := missingIDs(ids, classIDs(classes)); len(missing) > 0 {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("classes not found: %v", missing))
		}
	}
	if err := s.inTx(ctx, "failed to replace teacher classes", func(tx *sqlx.Tx) error {
		return s.capability.ReplaceTeacherClasses(ctx, tx, teacherID, ids)
	}); err != nil {
		return nil, err
	}
	return ids, nil
}

// GetTeacherAvailability lists a teacher's explicit overrides.
func (s *TimetableSetupService) GetTeacherAvailability(ctx context.Context, teacherID int64) ([]models.TeacherAvailability, error) {
	if err := s.ensureTeacher(ctx, teacherID); err != nil {
		return nil, err
	}
	rows, err := s.capability.ListTeacherAvailability(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher availability")
	}
	if rows == nil {
		rows = []models.TeacherAvailability{}
	}
	return rows, nil
}

// ReplaceTeacherAvailability swaps a teacher's overrides. Cells must reference active days and periods;
// a repeated cell keeps its last value.
func (s *TimetableSetupService) ReplaceTeacherAvailability(ctx context.Context, teacherID int64, req dto.ReplaceTeacherAvailabilityRequest) ([]models.TeacherAvailability, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}
	if err := s.ensureTeacher(ctx, teacherID); err != nil {
		return nil, err
	}
	days, err := s.catalog.ListActiveDays(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load days")
	}
	periods, err := s.catalog.ListActivePeriods(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load periods")
	}
	knownDays := make(map[int64]bool, len(days))
	for _, d := range days {
		knownDays[d.ID] = true
	}
	knownPeriods := make(map[int64]bool, len(periods))
	for _, p := range periods {
		knownPeriods[p.ID] = true
	}

	cells := make(map[models.SlotKey]bool, len(req.Items))
	for _, item := range req.Items {
		if !knownDays[item.DayID] || !knownPeriods[item.PeriodID] {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("day %d period %d is not an active cell", item.DayID, item.PeriodID))
		}
		cells[models.SlotKey{DayID: item.DayID, PeriodID: item.PeriodID}] = item.IsAvailable
	}
	rows := make([]models.TeacherAvailability, 0, len(cells))
	for key, available := range cells {
		rows = append(rows, models.TeacherAvailability{TeacherID: teacherID, DayID: key.DayID, PeriodID: key.PeriodID, IsAvailable: available})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].DayID != rows[j].DayID {
			return rows[i].DayID < rows[j].DayID
		}
		return rows[i].PeriodID < rows[j].PeriodID
	})

	if err := s.inTx(ctx, "failed to replace teacher availability", func(tx *sqlx.Tx) error {
		return s.capability.ReplaceTeacherAvailability(ctx, tx, teacherID, rows)
	}); err != nil {
		return nil, err
	}
	return rows, nil
}

// AssignedSlots lists the cells a teacher already occupies across all classes.
func (s *TimetableSetupService) AssignedSlots(ctx context.Context, teacherID int64) (*dto.TeacherSlotsResponse, error) {
	if err := s.ensureTeacher(ctx, teacherID); err != nil {
		return nil, err
	}
	slots, err := s.slots.ListDetailsByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher slots")
	}
	resp := &dto.TeacherSlotsResponse{TeacherID: teacherID, Slots: make([]dto.AssignedSlotDTO, 0, len(slots))}
	for _, slot := range slots {
		resp.Slots = append(resp.Slots, dto.AssignedSlotDTO{
			SlotID:    slot.ID,
			ClassID:   slot.ClassID,
			DayID:     slot.DayID,
			PeriodID:  slot.PeriodID,
			SubjectID: slot.SubjectID,
		})
	}
	return resp, nil
}

func (s *TimetableSetupService) ensureTeacher(ctx context.Context, teacherID int64) error {
	if teacherID <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "teacher id must be positive")
	}
	if _, err := s.catalog.GetTeacher(ctx, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return nil
}

func (s *TimetableSetupService) ensureSubjects(ctx context.Context, ids []int64) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil
	}
	subjects, err := s.catalog.ListSubjectsByIDs(ctx, ids)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	found := make([]int64, 0, len(subjects))
	for _, subject := range subjects {
		found = append(found, subject.ID)
	}
	if missing := missingIDs(ids, found); len(missing) > 0 {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("subjects not found: %v", missing))
	}
	return nil
}

func (s *TimetableSetupService) inTx(ctx context.Context, failure string, fn func(tx *sqlx.Tx) error) (err error) {
	if s.tx == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, failure)
		return err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, failure)
		return err
	}
	return nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func missingIDs(want, have []int64) []int64 {
	present := make(map[int64]struct{}, len(have))
	for _, id := range have {
		present[id] = struct{}{}
	}
	var missing []int64
	for _, id := range want {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func classIDs(classes []models.Class) []int64 {
	ids := make([]int64, 0, len(classes))
	for _, c := range classes {
		ids = append(ids, c.ID)
	}
	return ids
}

func nonNilIDs(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
