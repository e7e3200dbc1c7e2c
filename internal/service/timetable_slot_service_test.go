package service

import (
	"context"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/el-siradj/SCHOOL/internal/dto"
	"github.com/el-siradj/SCHOOL/internal/models"
	appErrors "github.com/el-siradj/SCHOOL/pkg/errors"
)

func newSlotServiceFixture(t *testing.T, store *fakeTimetableStore) (*TimetableSlotService, *recordingMetrics) {
	t.Helper()
	tx, _ := newTxProviderMock(t)
	metrics := &recordingMetrics{}
	svc := NewTimetableSlotService(store, NewPlacementValidator(store, store, store), store, tx, metrics, nil, nil)
	return svc, metrics
}

type passingChecker struct{}

func (passingChecker) Validate(ctx context.Context, p models.Placement) error { return nil }

func createMathRequest() dto.CreateSlotRequest {
	author := "officer-1"
	return dto.CreateSlotRequest{ClassID: classSixA, DayID: dayMon, PeriodID: periodP1, SubjectID: subjectMath, TeacherID: teacherT, CreatedBy: &author}
}

func TestTimetableSlotServiceCreate(t *testing.T) {
	store := newMiddleSchoolStore()
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	svc := NewTimetableSlotService(store, NewPlacementValidator(store, store, store), store, tx, nil, nil, nil)

	slot, err := svc.Create(context.Background(), createMathRequest())
	require.NoError(t, err)
	assert.NotZero(t, slot.ID)
	require.NotNil(t, slot.CreatedBy)
	assert.Equal(t, "officer-1", *slot.CreatedBy)
	assert.Len(t, store.classSlots(classSixA), 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableSlotServiceCreateRejectsOccupiedCell(t *testing.T) {
	store := newMiddleSchoolStore()
	existing := store.seedSlot(classSixA, dayMon, periodP1, subjectSci, teacherU)
	svc, metrics := newSlotServiceFixture(t, store)

	_, err := svc.Create(context.Background(), createMathRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrSlotConflict))

	slots := store.classSlots(classSixA)
	require.Len(t, slots, 1)
	assert.Equal(t, existing, slots[0])
	assert.Equal(t, []string{appErrors.ErrSlotConflict.Code}, metrics.rejections)
}

func TestTimetableSlotServiceCreateMapsRaceToSlotConflict(t *testing.T) {
	store := newMiddleSchoolStore()
	store.insertErr = &pq.Error{Code: "23505", Constraint: "uq_timetable_slots_teacher_day_period"}
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()
	metrics := &recordingMetrics{}
	svc := NewTimetableSlotService(store, passingChecker{}, store, tx, metrics, nil, nil)

	_, err := svc.Create(context.Background(), createMathRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrSlotConflict))
	var conflict *models.SlotConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, models.ConflictDimensionTeacher, conflict.Dimension)
	assert.Equal(t, teacherT, conflict.OwnerID)
	assert.Zero(t, conflict.ExistingSlotID)
	assert.Equal(t, []string{appErrors.ErrSlotConflict.Code}, metrics.rejections)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableSlotServiceCreateValidatesPayload(t *testing.T) {
	svc, metrics := newSlotServiceFixture(t, newMiddleSchoolStore())

	_, err := svc.Create(context.Background(), dto.CreateSlotRequest{ClassID: classSixA})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, metrics.rejections)
}

func TestTimetableSlotServiceDelete(t *testing.T) {
	store := newMiddleSchoolStore()
	slot := store.seedSlot(classSixA, dayMon, periodP1, subjectMath, teacherT)
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectRollback()
	svc := NewTimetableSlotService(store, passingChecker{}, store, tx, nil, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), slot.ID))
	assert.Empty(t, store.classSlots(classSixA))

	err := svc.Delete(context.Background(), slot.ID)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())

	assert.True(t, errors.Is(svc.Delete(context.Background(), 0), appErrors.ErrValidation))
}

func TestTimetableSlotServiceClearClass(t *testing.T) {
	store := newMiddleSchoolStore()
	store.seedSlot(classSixA, dayMon, periodP1, subjectMath, teacherT)
	store.seedSlot(classSixA, dayTue, periodP1, subjectMath, teacherT)
	store.seedSlot(classSixB, dayMon, periodP2, subjectMath, teacherT)
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	svc := NewTimetableSlotService(store, passingChecker{}, store, tx, nil, nil, nil)

	result, err := svc.ClearClass(context.Background(), classSixA)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Deleted)
	assert.Empty(t, store.classSlots(classSixA))
	assert.Len(t, store.classSlots(classSixB), 1)

	_, err = svc.ClearClass(context.Background(), 999)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictFromConstraint(t *testing.T) {
	slot := &models.TimetableSlot{ClassID: classSixA, DayID: dayMon, PeriodID: periodP1, TeacherID: teacherT}

	classConflict := conflictFromConstraint("uq_timetable_slots_class_day_period", slot)
	assert.Equal(t, models.ConflictDimensionClass, classConflict.Dimension)
	assert.Equal(t, classSixA, classConflict.OwnerID)

	teacherConflict := conflictFromConstraint("uq_timetable_slots_teacher_day_period", slot)
	assert.Equal(t, models.ConflictDimensionTeacher, teacherConflict.Dimension)
	assert.Equal(t, teacherT, teacherConflict.OwnerID)
}
