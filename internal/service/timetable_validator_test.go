package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/el-siradj/SCHOOL/internal/models"
	appErrors "github.com/el-siradj/SCHOOL/pkg/errors"
)

func mathAtMonP1() models.Placement {
	return models.Placement{ClassID: classSixA, DayID: dayMon, PeriodID: periodP1, SubjectID: subjectMath, TeacherID: teacherT}
}

func TestPlacementValidatorChecksInOrder(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(s *fakeTimetableStore, p *models.Placement)
		wantErr *appErrors.Error
	}{
		{
			name:    "valid placement",
			mutate:  func(s *fakeTimetableStore, p *models.Placement) {},
			wantErr: nil,
		},
		{
			name:    "unknown class",
			mutate:  func(s *fakeTimetableStore, p *models.Placement) { p.ClassID = 999 },
			wantErr: appErrors.ErrNotFound,
		},
		{
			name: "inactive class wins over everything after it",
			mutate: func(s *fakeTimetableStore, p *models.Placement) {
				s.classes[classSixA].Active = false
				p.TeacherID = teacherU
			},
			wantErr: appErrors.ErrInactiveEntity,
		},
		{
			name:    "cell outside the study window",
			mutate:  func(s *fakeTimetableStore, p *models.Placement) { p.PeriodID = periodP2; p.DayID = dayTue },
			wantErr: appErrors.ErrNotInStudyWindow,
		},
		{
			name: "window row disabled",
			mutate: func(s *fakeTimetableStore, p *models.Placement) {
				s.membership[p.Key()] = models.WindowMembership{WindowActive: false, DayActive: true, PeriodActive: true}
			},
			wantErr: appErrors.ErrNotInStudyWindow,
		},
		{
			name: "day disabled",
			mutate: func(s *fakeTimetableStore, p *models.Placement) {
				s.membership[p.Key()] = models.WindowMembership{WindowActive: true, DayActive: false, PeriodActive: true}
			},
			wantErr: appErrors.ErrInactiveEntity,
		},
		{
			name:    "subject disabled",
			mutate:  func(s *fakeTimetableStore, p *models.Placement) { s.subjects[subjectMath].Active = false },
			wantErr: appErrors.ErrInactiveEntity,
		},
		{
			name:    "unknown teacher",
			mutate:  func(s *fakeTimetableStore, p *models.Placement) { p.TeacherID = 404 },
			wantErr: appErrors.ErrNotFound,
		},
		{
			name:    "teacher disabled",
			mutate:  func(s *fakeTimetableStore, p *models.Placement) { s.teachers[teacherT].Active = false },
			wantErr: appErrors.ErrInactiveEntity,
		},
		{
			name:    "teacher not assigned",
			mutate:  func(s *fakeTimetableStore, p *models.Placement) { p.TeacherID = teacherU },
			wantErr: appErrors.ErrTeacherNotEligible,
		},
		{
			name: "explicit unavailability",
			mutate: func(s *fakeTimetableStore, p *models.Placement) {
				s.availability = []models.TeacherAvailability{{TeacherID: teacherT, DayID: dayMon, PeriodID: periodP1, IsAvailable: false}}
			},
			wantErr: appErrors.ErrTeacherUnavailable,
		},
		{
			name: "explicit availability is not a block",
			mutate: func(s *fakeTimetableStore, p *models.Placement) {
				s.availability = []models.TeacherAvailability{{TeacherID: teacherT, DayID: dayMon, PeriodID: periodP1, IsAvailable: true}}
			},
			wantErr: nil,
		},
		{
			name: "unavailability checked before occupancy",
			mutate: func(s *fakeTimetableStore, p *models.Placement) {
				s.availability = []models.TeacherAvailability{{TeacherID: teacherT, DayID: dayMon, PeriodID: periodP1, IsAvailable: false}}
				s.seedSlot(classSixA, dayMon, periodP1, subjectSci, teacherU)
			},
			wantErr: appErrors.ErrTeacherUnavailable,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMiddleSchoolStore()
			p := mathAtMonP1()
			tc.mutate(store, &p)

			err := NewPlacementValidator(store, store, store).Validate(context.Background(), p)
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.wantErr), "got %v", err)
		})
	}
}

func TestPlacementValidatorReportsConflictDimension(t *testing.T) {
	store := newMiddleSchoolStore()
	existing := store.seedSlot(classSixA, dayMon, periodP1, subjectSci, teacherU)

	err := NewPlacementValidator(store, store, store).Validate(context.Background(), mathAtMonP1())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrSlotConflict.Code, appErr.Code)
	conflict, ok := appErr.Details.(*models.SlotConflictError)
	require.True(t, ok)
	assert.Equal(t, models.ConflictDimensionClass, conflict.Dimension)
	assert.Equal(t, existing.ID, conflict.ExistingSlotID)

	store = newMiddleSchoolStore()
	store.seedSlot(classSixB, dayMon, periodP1, subjectMath, teacherT)
	err = NewPlacementValidator(store, store, store).Validate(context.Background(), mathAtMonP1())
	require.Error(t, err)
	var typed *models.SlotConflictError
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, models.ConflictDimensionTeacher, typed.Dimension)
	assert.Equal(t, teacherT, typed.OwnerID)
}

func TestOccupancyMirrorTreatsMissingAvailabilityAsFree(t *testing.T) {
	key := models.SlotKey{DayID: dayMon, PeriodID: periodP1}
	mirror := newOccupancyMirror(nil, nil, []models.TeacherAvailability{
		{TeacherID: teacherU, DayID: dayMon, PeriodID: periodP1, IsAvailable: false},
	})

	assert.True(t, mirror.teacherFree(teacherT, key))
	assert.False(t, mirror.teacherFree(teacherU, key))

	mirror.occupy(teacherT, key)
	assert.False(t, mirror.classFree(key))
	assert.False(t, mirror.teacherFree(teacherT, key))
	assert.True(t, mirror.classFree(models.SlotKey{DayID: dayTue, PeriodID: periodP1}))
}
