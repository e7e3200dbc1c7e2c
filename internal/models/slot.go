package models

import (
	"fmt"
	"time"
)

// TimetableSlot assigns a subject and teacher to one (class, day, period) cell.
type TimetableSlot struct {
	ID        int64     `db:"id" json:"id"`
	ClassID   int64     `db:"class_id" json:"class_id"`
	DayID     int64     `db:"day_id" json:"day_id"`
	PeriodID  int64     `db:"period_id" json:"period_id"`
	SubjectID int64     `db:"subject_id" json:"subject_id"`
	TeacherID int64     `db:"teacher_id" json:"teacher_id"`
	CreatedBy *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Key returns the slot's (day, period) cell.
func (s TimetableSlot) Key() SlotKey {
	return SlotKey{DayID: s.DayID, PeriodID: s.PeriodID}
}

// Placement is a candidate (class, day, period, subject, teacher) assignment.
type Placement struct {
	ClassID   int64
	DayID     int64
	PeriodID  int64
	SubjectID int64
	TeacherID int64
}

// Key returns the placement's (day, period) cell.
func (p Placement) Key() SlotKey {
	return SlotKey{DayID: p.DayID, PeriodID: p.PeriodID}
}

// Slot converts the placement into an unsaved slot.
func (p Placement) Slot(createdBy *string) TimetableSlot {
	return TimetableSlot{
		ClassID:   p.ClassID,
		DayID:     p.DayID,
		PeriodID:  p.PeriodID,
		SubjectID: p.SubjectID,
		TeacherID: p.TeacherID,
		CreatedBy: createdBy,
	}
}

// TimetableSlotDetail is a slot joined with display names for planners and grids.
type TimetableSlotDetail struct {
	TimetableSlot
	SubjectName string `db:"subject_name" json:"subject_name"`
	SubjectCode string `db:"subject_code" json:"subject_code"`
	TeacherName string `db:"teacher_name" json:"teacher_name"`
	ClassName   string `db:"class_name" json:"class_name"`
	ClassLevel  string `db:"class_level" json:"class_level"`
}

// SlotOccupancy is a (owner, day, period) triple used to preload class or teacher occupancy.
type SlotOccupancy struct {
	SlotID    int64 `db:"id" json:"slot_id"`
	OwnerID   int64 `db:"owner_id" json:"owner_id"`
	DayID     int64 `db:"day_id" json:"day_id"`
	PeriodID  int64 `db:"period_id" json:"period_id"`
	SubjectID int64 `db:"subject_id" json:"subject_id"`
}

// Key returns the occupied cell.
func (o SlotOccupancy) Key() SlotKey {
	return SlotKey{DayID: o.DayID, PeriodID: o.PeriodID}
}

// Conflict dimensions.
const (
	ConflictDimensionClass   = "CLASS"
	ConflictDimensionTeacher = "TEACHER"
)

// SlotConflictError reports which occupancy a placement collided with.
// ExistingSlotID is zero when the collision was only detected by the storage constraint.
type SlotConflictError struct {
	Dimension      string `json:"dimension"`
	OwnerID        int64  `json:"owner_id"`
	DayID          int64  `json:"day_id"`
	PeriodID       int64  `json:"period_id"`
	ExistingSlotID int64  `json:"existing_slot_id,omitempty"`
}

// Error implements the error interface.
func (e *SlotConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s %d already occupied on day %d period %d", e.Dimension, e.OwnerID, e.DayID, e.PeriodID)
}
