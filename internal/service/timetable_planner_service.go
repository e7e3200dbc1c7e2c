package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/el-siradj/SCHOOL/internal/dto"
	"github.com/el-siradj/SCHOOL/internal/models"
	"github.com/el-siradj/SCHOOL/pkg/database"
	appErrors "github.com/el-siradj/SCHOOL/pkg/errors"
)

type plannerCatalog interface {
	GetClass(ctx context.Context, id int64) (*models.Class, error)
	ListActiveDays(ctx context.Context) ([]models.Day, error)
	ListActivePeriods(ctx context.Context) ([]models.Period, error)
	ListStudyWindow(ctx context.Context, cycle string) ([]models.WindowSlot, error)
}

type plannerQuotaReader interface {
	ListSchedulableByLevel(ctx context.Context, level string) ([]models.LevelSubjectQuotaDetail, error)
}

type plannerCapabilityReader interface {
	IsEligible(ctx context.Context, teacherID, subjectID, classID int64) (bool, error)
	ListEligibleTeachers(ctx context.Context, classID int64) ([]models.EligibleTeacher, error)
	ListAvailabilityForTeachers(ctx context.Context, teacherIDs []int64) ([]models.TeacherAvailability, error)
}

type plannerSlotStore interface {
	ListDetailsByClass(ctx context.Context, classID int64) ([]models.TimetableSlotDetail, error)
	ListClassOccupancy(ctx context.Context, classID int64) ([]models.SlotOccupancy, error)
	ListTeacherOccupancy(ctx context.Context, teacherIDs []int64) ([]models.SlotOccupancy, error)
	CreateBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.TimetableSlot) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type autofillRecorder interface {
	RecordAutofill(outcome string, placed, unplaced int, duration time.Duration)
}

// TimetablePlannerConfig holds auto-fill defaults.
type TimetablePlannerConfig struct {
	MaxSameSubjectPerDay int
}

// TimetablePlannerService serves the planner view, slot suggestions and class auto-fill.
type TimetablePlannerService struct {
	catalog    plannerCatalog
	quotas     plannerQuotaReader
	capability plannerCapabilityReader
	slots      plannerSlotStore
	tx         txProvider
	metrics    autofillRecorder
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        TimetablePlannerConfig
}

// NewTimetablePlannerService wires planner dependencies.
func NewTimetablePlannerService(
	catalog plannerCatalog,
	quotas plannerQuotaReader,
	capability plannerCapabilityReader,
	slots plannerSlotStore,
	tx txProvider,
	metrics autofillRecorder,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetablePlannerConfig,
) *TimetablePlannerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxSameSubjectPerDay <= 0 {
		cfg.MaxSameSubjectPerDay = 1
	}
	return &TimetablePlannerService{
		catalog:    catalog,
		quotas:     quotas,
		capability: capability,
		slots:      slots,
		tx:         tx,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
	}
}

// GetPlanner assembles the planner view for a class. The six datasets are loaded concurrently;
// they need not be mutually consistent.
func (s *TimetablePlannerService) GetPlanner(ctx context.Context, classID int64) (*dto.PlannerView, error) {
	class, err := loadActiveClass(ctx, s.catalog, classID)
	if err != nil {
		return nil, err
	}

	var (
		days     []models.Day
		periods  []models.Period
		window   []models.WindowSlot
		slots    []models.TimetableSlotDetail
		quotas   []models.LevelSubjectQuotaDetail
		eligible []models.EligibleTeacher
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { days, err = s.catalog.ListActiveDays(gctx); return })
	g.Go(func() (err error) { periods, err = s.catalog.ListActivePeriods(gctx); return })
	g.Go(func() (err error) { window, err = s.catalog.ListStudyWindow(gctx, class.NormalizedCycle()); return })
	g.Go(func() (err error) { slots, err = s.slots.ListDetailsByClass(gctx, classID); return })
	g.Go(func() (err error) { quotas, err = s.quotas.ListSchedulableByLevel(gctx, class.Level); return })
	g.Go(func() (err error) { eligible, err = s.capability.ListEligibleTeachers(gctx, classID); return })
	if err := g.Wait(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load planner data")
	}

	placed := make(map[int64]int)
	for _, slot := range slots {
		placed[slot.SubjectID]++
	}
	teachers := make(map[int64][]models.EligibleTeacher)
	for _, e := range eligible {
		teachers[e.SubjectID] = append(teachers[e.SubjectID], e)
	}

	workload := make([]dto.WorkloadItem, 0, len(quotas))
	for _, quota := range quotas {
		item := dto.WorkloadItem{
			SubjectID:     quota.SubjectID,
			SubjectName:   quota.SubjectName,
			SubjectCode:   quota.SubjectCode,
			WeeklyPeriods: quota.WeeklyPeriods,
			Placed:        placed[quota.SubjectID],
			Teachers:      teachers[quota.SubjectID],
		}
		if item.Teachers == nil {
			item.Teachers = []models.EligibleTeacher{}
		}
		if remaining := quota.WeeklyPeriods - item.Placed; remaining > 0 {
			item.Remaining = remaining
		}
		workload = append(workload, item)
	}

	return &dto.PlannerView{
		Class:       dto.PlannerClass{ID: class.ID, Level: class.Level, Name: class.Name, Cycle: class.NormalizedCycle()},
		Days:        days,
		Periods:     periods,
		StudyWindow: window,
		Slots:       slots,
		Workload:    workload,
	}, nil
}

// Suggest lists every empty cell of the class's study window where the teacher could take the subject.
// An ineligible teacher is an error, not an empty list.
func (s *TimetablePlannerService) Suggest(ctx context.Context, query dto.SuggestionQuery) (*dto.SuggestionResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "class_id, subject_id and teacher_id are required")
	}
	class, err := loadActiveClass(ctx, s.catalog, query.ClassID)
	if err != nil {
		return nil, err
	}
	eligible, err := s.capability.IsEligible(ctx, query.TeacherID, query.SubjectID, query.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher eligibility")
	}
	if !eligible {
		return nil, appErrors.Clone(appErrors.ErrTeacherNotEligible, fmt.Sprintf("teacher %d is not qualified for subject %d or not assigned to class %d", query.TeacherID, query.SubjectID, query.ClassID))
	}

	teacherIDs := []int64{query.TeacherID}
	var (
		window       []models.WindowSlot
		classSlots   []models.SlotOccupancy
		teacherSlots []models.SlotOccupancy
		availability []models.TeacherAvailability
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { window, err = s.catalog.ListStudyWindow(gctx, class.NormalizedCycle()); return })
	g.Go(func() (err error) { classSlots, err = s.slots.ListClassOccupancy(gctx, class.ID); return })
	g.Go(func() (err error) { teacherSlots, err = s.slots.ListTeacherOccupancy(gctx, teacherIDs); return })
	g.Go(func() (err error) { availability, err = s.capability.ListAvailabilityForTeachers(gctx, teacherIDs); return })
	if err := g.Wait(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load suggestion data")
	}

	mirror := newOccupancyMirror(classSlots, teacherSlots, availability)
	free := make([]models.WindowSlot, 0, len(window))
	for _, cell := range window {
		if mirror.classFree(cell.Key()) && mirror.teacherFree(query.TeacherID, cell.Key()) {
			free = append(free, cell)
		}
	}

	return &dto.SuggestionResponse{
		ClassID:   query.ClassID,
		SubjectID: query.SubjectID,
		TeacherID: query.TeacherID,
		Slots:     free,
	}, nil
}

// Autofill greedily places the class's remaining weekly demand and commits every placement in
// one transaction. A concurrent write that collides with the batch aborts the whole run.
func (s *TimetablePlannerService) Autofill(ctx context.Context, classID int64, req dto.AutofillRequest) (*dto.AutofillResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid autofill payload")
	}
	start := time.Now()
	opts := s.options(req)

	class, err := loadActiveClass(ctx, s.catalog, classID)
	if err != nil {
		return nil, err
	}

	var (
		window     []models.WindowSlot
		quotas     []models.LevelSubjectQuotaDetail
		classSlots []models.SlotOccupancy
		eligible   []models.EligibleTeacher
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { window, err = s.catalog.ListStudyWindow(gctx, class.NormalizedCycle()); return })
	g.Go(func() (err error) { quotas, err = s.quotas.ListSchedulableByLevel(gctx, class.Level); return })
	g.Go(func() (err error) { classSlots, err = s.slots.ListClassOccupancy(gctx, classID); return })
	g.Go(func() (err error) { eligible, err = s.capability.ListEligibleTeachers(gctx, classID); return })
	if err := g.Wait(); err != nil {
		s.record(AutofillOutcomeFailed, 0, 0, start)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load autofill data")
	}

	demands, unschedulable := buildDemands(quotas, classSlots, eligible)
	teacherIDs := demandTeachers(demands)

	var (
		teacherSlots []models.SlotOccupancy
		availability []models.TeacherAvailability
	)
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() (err error) { teacherSlots, err = s.slots.ListTeacherOccupancy(gctx, teacherIDs); return })
	g.Go(func() (err error) { availability, err = s.capability.ListAvailabilityForTeachers(gctx, teacherIDs); return })
	if err := g.Wait(); err != nil {
		s.record(AutofillOutcomeFailed, 0, 0, start)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher occupancy")
	}

	state := newAutofillState(classID, window, newOccupancyMirror(classSlots, teacherSlots, availability), classSlots)
	placements, unscheduled := planAutofill(state, demands, opts)

	result := &dto.AutofillResult{
		ClassID:       classID,
		Placements:    make([]models.TimetableSlot, 0, len(placements)),
		Unscheduled:   unscheduled,
		Unschedulable: unschedulable,
	}
	for _, p := range placements {
		result.Placements = append(result.Placements, p.Slot(req.CreatedBy))
	}
	unplaced := remainingSessions(unscheduled, unschedulable)

	if len(result.Placements) == 0 {
		s.record(AutofillOutcomeEmpty, 0, unplaced, start)
		s.logRun(classID, result, start)
		return result, nil
	}

	if err := s.commit(ctx, result.Placements); err != nil {
		if appErrors.HasCode(err, appErrors.ErrTransactionAborted.Code) {
			s.record(AutofillOutcomeAborted, 0, 0, start)
			s.logger.Warn("timetable autofill aborted by concurrent write",
				zap.Int64("class_id", classID),
				zap.Int("pending", len(result.Placements)),
				zap.Error(err),
			)
		} else {
			s.record(AutofillOutcomeFailed, 0, 0, start)
		}
		return nil, err
	}

	result.Inserted = len(result.Placements)
	s.record(AutofillOutcomeCommitted, result.Inserted, unplaced, start)
	s.logRun(classID, result, start)
	return result, nil
}

func (s *TimetablePlannerService) commit(ctx context.Context, slots []models.TimetableSlot) (err error) {
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

	if err = s.slots.CreateBatch(ctx, tx, slots); err != nil {
		if database.IsUniqueViolation(err) {
			err = appErrors.Wrap(err, appErrors.ErrTransactionAborted.Code, appErrors.ErrTransactionAborted.Status, appErrors.ErrTransactionAborted.Message)
			return err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist autofill slots")
		return err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit autofill transaction")
		return err
	}
	return nil
}

func (s *TimetablePlannerService) options(req dto.AutofillRequest) autofillOptions {
	opts := autofillOptions{AvoidSameSubjectPerDay: true, MaxSameSubjectPerDay: s.cfg.MaxSameSubjectPerDay}
	if req.AvoidSameSubjectPerDay != nil {
		opts.AvoidSameSubjectPerDay = *req.AvoidSameSubjectPerDay
	}
	if req.MaxSameSubjectPerDay != nil {
		opts.MaxSameSubjectPerDay = *req.MaxSameSubjectPerDay
	}
	return opts
}

func (s *TimetablePlannerService) record(outcome string, placed, unplaced int, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordAutofill(outcome, placed, unplaced, time.Since(start))
	}
}

func (s *TimetablePlannerService) logRun(classID int64, result *dto.AutofillResult, start time.Time) {
	s.logger.Info("timetable autofill completed",
		zap.Int64("class_id", classID),
		zap.Int("inserted", result.Inserted),
		zap.Int("unscheduled", len(result.Unscheduled)),
		zap.Int("unschedulable", len(result.Unschedulable)),
		zap.Duration("duration", time.Since(start)),
	)
}

func demandTeachers(demands []subjectDemand) []int64 {
	seen := make(map[int64]struct{})
	ids := make([]int64, 0)
	for _, demand := range demands {
		for _, id := range demand.Teachers {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

func remainingSessions(unscheduled []dto.UnscheduledSubject, unschedulable []dto.UnschedulableSubject) int {
	total := 0
	for _, u := range unscheduled {
		total += u.Remaining
	}
	for _, u := range unschedulable {
		total += u.Remaining
	}
	return total
}
