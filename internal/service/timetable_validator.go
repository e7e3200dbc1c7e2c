package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/el-siradj/SCHOOL/internal/models"
	appErrors "github.com/el-siradj/SCHOOL/pkg/errors"
)

type placementCatalog interface {
	GetClass(ctx context.Context, id int64) (*models.Class, error)
	GetSubject(ctx context.Context, id int64) (*models.Subject, error)
	GetTeacher(ctx context.Context, id int64) (*models.Teacher, error)
	GetWindowMembership(ctx context.Context, cycle string, dayID, periodID int64) (*models.WindowMembership, error)
}

type placementCapability interface {
	IsEligible(ctx context.Context, teacherID, subjectID, classID int64) (bool, error)
	GetAvailability(ctx context.Context, teacherID, dayID, periodID int64) (*bool, error)
}

type placementOccupancy interface {
	FindClassOccupant(ctx context.Context, classID, dayID, periodID int64) (*models.SlotOccupancy, error)
	FindTeacherOccupant(ctx context.Context, teacherID, dayID, periodID int64) (*models.SlotOccupancy, error)
}

// PlacementValidator checks a single placement against live store state. Checks run in a fixed
// order and stop at the first failure so the caller learns which invariant was broken.
type PlacementValidator struct {
	catalog    placementCatalog
	capability placementCapability
	slots      placementOccupancy
}

// NewPlacementValidator wires the validator.
func NewPlacementValidator(catalog placementCatalog, capability placementCapability, slots placementOccupancy) *PlacementValidator {
	return &PlacementValidator{catalog: catalog, capability: capability, slots: slots}
}

// Validate runs every check for the placement and returns the first failure.
func (v *PlacementValidator) Validate(ctx context.Context, p models.Placement) error {
	class, err := loadActiveClass(ctx, v.catalog, p.ClassID)
	if err != nil {
		return err
	}
	if err := v.checkWindow(ctx, class, p); err != nil {
		return err
	}
	if err := v.checkSubjectAndTeacher(ctx, p); err != nil {
		return err
	}

	eligible, err := v.capability.IsEligible(ctx, p.TeacherID, p.SubjectID, p.ClassID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher eligibility")
	}
	if !eligible {
		return appErrors.Clone(appErrors.ErrTeacherNotEligible, fmt.Sprintf("teacher %d is not qualified for subject %d or not assigned to class %d", p.TeacherID, p.SubjectID, p.ClassID))
	}

	available, err := v.capability.GetAvailability(ctx, p.TeacherID, p.DayID, p.PeriodID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher availability")
	}
	if available != nil && !*available {
		return appErrors.Clone(appErrors.ErrTeacherUnavailable, fmt.Sprintf("teacher %d is unavailable on day %d period %d", p.TeacherID, p.DayID, p.PeriodID))
	}

	occupant, err := v.slots.FindClassOccupant(ctx, p.ClassID, p.DayID, p.PeriodID)
	if err := occupantConflict(occupant, err, models.ConflictDimensionClass, p.ClassID, p); err != nil {
		return err
	}
	occupant, err = v.slots.FindTeacherOccupant(ctx, p.TeacherID, p.DayID, p.PeriodID)
	return occupantConflict(occupant, err, models.ConflictDimensionTeacher, p.TeacherID, p)
}

func (v *PlacementValidator) checkWindow(ctx context.Context, class *models.Class, p models.Placement) error {
	membership, err := v.catalog.GetWindowMembership(ctx, class.NormalizedCycle(), p.DayID, p.PeriodID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notInWindow(class, p)
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load study window")
	}
	switch {
	case !membership.DayActive:
		return appErrors.Clone(appErrors.ErrInactiveEntity, fmt.Sprintf("day %d is disabled", p.DayID))
	case !membership.PeriodActive:
		return appErrors.Clone(appErrors.ErrInactiveEntity, fmt.Sprintf("period %d is disabled", p.PeriodID))
	case !membership.WindowActive:
		return notInWindow(class, p)
	}
	return nil
}

func (v *PlacementValidator) checkSubjectAndTeacher(ctx context.Context, p models.Placement) error {
	subject, err := v.catalog.GetSubject(ctx, p.SubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if !subject.Active {
		return appErrors.Clone(appErrors.ErrInactiveEntity, fmt.Sprintf("subject %d is disabled", p.SubjectID))
	}
	teacher, err := v.catalog.GetTeacher(ctx, p.TeacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if !teacher.Active {
		return appErrors.Clone(appErrors.ErrInactiveEntity, fmt.Sprintf("teacher %d is disabled", p.TeacherID))
	}
	return nil
}

type classGetter interface {
	GetClass(ctx context.Context, id int64) (*models.Class, error)
}

func loadClass(ctx context.Context, catalog classGetter, classID int64) (*models.Class, error) {
	class, err := catalog.GetClass(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

func loadActiveClass(ctx context.Context, catalog classGetter, classID int64) (*models.Class, error) {
	class, err := loadClass(ctx, catalog, classID)
	if err != nil {
		return nil, err
	}
	if !class.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveEntity, fmt.Sprintf("class %d is disabled", classID))
	}
	return class, nil
}

func notInWindow(class *models.Class, p models.Placement) error {
	return appErrors.Clone(appErrors.ErrNotInStudyWindow,
		fmt.Sprintf("day %d period %d is not in the %s study window", p.DayID, p.PeriodID, class.NormalizedCycle()))
}

func occupantConflict(occupant *models.SlotOccupancy, err error, dimension string, ownerID int64, p models.Placement) error {
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check slot occupancy")
	}
	return slotConflict(&models.SlotConflictError{
		Dimension:      dimension,
		OwnerID:        ownerID,
		DayID:          p.DayID,
		PeriodID:       p.PeriodID,
		ExistingSlotID: occupant.SlotID,
	})
}

// slotConflict wraps the typed conflict in a SLOT_CONFLICT app error carrying it as details.
func slotConflict(conflict *models.SlotConflictError) error {
	var message string
	switch conflict.Dimension {
	case models.ConflictDimensionTeacher:
		message = "teacher already teaches at this time"
	default:
		message = "class already has a lesson at this time"
	}
	appErr := appErrors.Wrap(conflict, appErrors.ErrSlotConflict.Code, appErrors.ErrSlotConflict.Status, message)
	appErr.Details = conflict
	return appErr
}

// occupancyMirror is the in-memory form of checks 4 to 6, built from one bulk load so the planner
// never queries the store per candidate. Checks 1 to 3 are settled before a mirror is built.
type occupancyMirror struct {
	class        map[models.SlotKey]struct{}
	teachers     map[int64]map[models.SlotKey]struct{}
	availability map[int64]models.Availability
}

func newOccupancyMirror(classSlots, teacherSlots []models.SlotOccupancy, availability []models.TeacherAvailability) *occupancyMirror {
	m := &occupancyMirror{
		class:        make(map[models.SlotKey]struct{}, len(classSlots)),
		teachers:     make(map[int64]map[models.SlotKey]struct{}),
		availability: make(map[int64]models.Availability),
	}
	for _, slot := range classSlots {
		m.class[slot.Key()] = struct{}{}
	}
	for _, slot := range teacherSlots {
		m.occupyTeacher(slot.OwnerID, slot.Key())
	}
	for _, row := range availability {
		overrides, ok := m.availability[row.TeacherID]
		if !ok {
			overrides = make(models.Availability)
			m.availability[row.TeacherID] = overrides
		}
		overrides[models.SlotKey{DayID: row.DayID, PeriodID: row.PeriodID}] = row.IsAvailable
	}
	return m
}

func (m *occupancyMirror) classFree(key models.SlotKey) bool {
	_, taken := m.class[key]
	return !taken
}

// teacherFree covers the availability override and teacher occupancy checks.
func (m *occupancyMirror) teacherFree(teacherID int64, key models.SlotKey) bool {
	if m.availability[teacherID].Blocks(key) {
		return false
	}
	_, taken := m.teachers[teacherID][key]
	return !taken
}

func (m *occupancyMirror) occupyTeacher(teacherID int64, key models.SlotKey) {
	slots, ok := m.teachers[teacherID]
	if !ok {
		slots = make(map[models.SlotKey]struct{})
		m.teachers[teacherID] = slots
	}
	slots[key] = struct{}{}
}

func (m *occupancyMirror) occupy(teacherID int64, key models.SlotKey) {
	m.class[key] = struct{}{}
	m.occupyTeacher(teacherID, key)
}
