package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/el-siradj/SCHOOL/internal/dto"
	"github.com/el-siradj/SCHOOL/internal/models"
	"github.com/el-siradj/SCHOOL/pkg/database"
	appErrors "github.com/el-siradj/SCHOOL/pkg/errors"
)

type placementChecker interface {
	Validate(ctx context.Context, p models.Placement) error
}

type slotWriter interface {
	Create(ctx context.Context, exec sqlx.ExtContext, slot *models.TimetableSlot) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id int64) error
	DeleteByClass(ctx context.Context, exec sqlx.ExtContext, classID int64) (int64, error)
}

type rejectionRecorder interface {
	RecordPlacementRejection(code string)
}

// TimetableSlotService creates and deletes individual slots. Every mutation runs in its own transaction.
type TimetableSlotService struct {
	classes   classGetter
	checker   placementChecker
	slots     slotWriter
	tx        txProvider
	metrics   rejectionRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimetableSlotService wires the slot service.
func NewTimetableSlotService(classes classGetter, checker placementChecker, slots slotWriter, tx txProvider, metrics rejectionRecorder, validate *validator.Validate, logger *zap.Logger) *TimetableSlotService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableSlotService{
		classes:   classes,
		checker:   checker,
		slots:     slots,
		tx:        tx,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Create validates a manual placement against live state and inserts it. A uniqueness violation
// raised by a concurrent writer is reported as SLOT_CONFLICT.
func (s *TimetableSlotService) Create(ctx context.Context, req dto.CreateSlotRequest) (*models.TimetableSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}
	placement := models.Placement{
		ClassID:   req.ClassID,
		DayID:     req.DayID,
		PeriodID:  req.PeriodID,
		SubjectID: req.SubjectID,
		TeacherID: req.TeacherID,
	}
	if err := s.checker.Validate(ctx, placement); err != nil {
		s.reject(err)
		return nil, err
	}

	slot := placement.Slot(req.CreatedBy)
	if err := s.insert(ctx, &slot); err != nil {
		s.reject(err)
		return nil, err
	}
	return &slot, nil
}

func (s *TimetableSlotService) insert(ctx context.Context, slot *models.TimetableSlot) (err error) {
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

	if err = s.slots.Create(ctx, tx, slot); err != nil {
		if database.IsUniqueViolation(err) {
			err = slotConflict(conflictFromConstraint(database.ConstraintName(err), slot))
			return err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create slot")
		return err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit slot")
		return err
	}
	return nil
}

// Delete removes one slot; an unknown id is NOT_FOUND.
func (s *TimetableSlotService) Delete(ctx context.Context, id int64) (err error) {
	if id <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "slot id must be positive")
	}
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

	if err = s.slots.Delete(ctx, tx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrNotFound, "slot not found")
			return err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete slot")
		return err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit slot deletion")
		return err
	}
	return nil
}

// ClearClass removes every slot of a class and reports the count.
func (s *TimetableSlotService) ClearClass(ctx context.Context, classID int64) (result *dto.ClearClassResult, err error) {
	if _, err = loadClass(ctx, s.classes, classID); err != nil {
		return nil, err
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	deleted, err := s.slots.DeleteByClass(ctx, tx, classID)
	if err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear class slots")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit class clear")
		return nil, err
	}
	s.logger.Info("timetable class cleared", zap.Int64("class_id", classID), zap.Int64("deleted", deleted))
	return &dto.ClearClassResult{ClassID: classID, Deleted: deleted}, nil
}

func (s *TimetableSlotService) reject(err error) {
	if s.metrics == nil {
		return
	}
	if code := appErrors.FromError(err).Code; code != appErrors.ErrInternal.Code {
		s.metrics.RecordPlacementRejection(code)
	}
}

// conflictFromConstraint names the collided dimension from the violated index; the migration names
// the teacher index with "teacher" in it.
func conflictFromConstraint(constraint string, slot *models.TimetableSlot) *models.SlotConflictError {
	conflict := &models.SlotConflictError{
		Dimension: models.ConflictDimensionClass,
		OwnerID:   slot.ClassID,
		DayID:     slot.DayID,
		PeriodID:  slot.PeriodID,
	}
	if strings.Contains(constraint, "teacher") {
		conflict.Dimension = models.ConflictDimensionTeacher
		conflict.OwnerID = slot.TeacherID
	}
	return conflict
}
