package models

import "strings"

// Day is a weekday that may carry lessons. Order runs 1..7.
type Day struct {
	ID     int64  `db:"id" json:"id"`
	Code   string `db:"code" json:"code"`
	Label  string `db:"label" json:"label"`
	Order  int    `db:"sort_order" json:"order"`
	Active bool   `db:"is_active" json:"is_active"`
}

// Period is a time band inside a school day.
type Period struct {
	ID        int64  `db:"id" json:"id"`
	Code      string `db:"code" json:"code"`
	StartTime string `db:"start_time" json:"start_time"`
	EndTime   string `db:"end_time" json:"end_time"`
	Order     int    `db:"sort_order" json:"order"`
	Active    bool   `db:"is_active" json:"is_active"`
}

// Label renders the period for grids, e.g. "P1 08:00-08:45".
func (p Period) Label() string {
	if p.StartTime == "" && p.EndTime == "" {
		return p.Code
	}
	return p.Code + " " + p.StartTime + "-" + p.EndTime
}

// StudyPeriod marks a (day, period) pair as teachable for a cycle.
type StudyPeriod struct {
	Cycle    string `db:"cycle" json:"cycle"`
	DayID    int64  `db:"day_id" json:"day_id"`
	PeriodID int64  `db:"period_id" json:"period_id"`
	Active   bool   `db:"is_active" json:"is_active"`
}

// WindowSlot is one teachable cell of a cycle's weekly template, with the orders used for sorting and scoring.
type WindowSlot struct {
	DayID       int64 `db:"day_id" json:"day_id"`
	PeriodID    int64 `db:"period_id" json:"period_id"`
	DayOrder    int   `db:"day_order" json:"day_order"`
	PeriodOrder int   `db:"period_order" json:"period_order"`
}

// Key identifies the (day, period) cell.
func (w WindowSlot) Key() SlotKey {
	return SlotKey{DayID: w.DayID, PeriodID: w.PeriodID}
}

// WindowMembership describes how a (cycle, day, period) triple sits in the study window.
type WindowMembership struct {
	WindowActive bool `db:"window_active"`
	DayActive    bool `db:"day_active"`
	PeriodActive bool `db:"period_active"`
}

// SlotKey is a (day, period) coordinate.
type SlotKey struct {
	DayID    int64 `json:"day_id"`
	PeriodID int64 `json:"period_id"`
}

// Class is a teaching group. Its cycle selects the study window.
type Class struct {
	ID     int64  `db:"id" json:"id"`
	Level  string `db:"level" json:"level"`
	Name   string `db:"name" json:"name"`
	Cycle  string `db:"cycle" json:"cycle"`
	Active bool   `db:"is_active" json:"is_active"`
	Order  int    `db:"sort_order" json:"order"`
}

// NormalizedCycle is the cycle tag as stored in the study window table.
func (c Class) NormalizedCycle() string {
	return NormalizeCycle(c.Cycle)
}

// NormalizeCycle trims and upper-cases a cycle tag.
func NormalizeCycle(cycle string) string {
	return strings.ToUpper(strings.TrimSpace(cycle))
}

// Subject is a taught discipline.
type Subject struct {
	ID       int64  `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Code     string `db:"code" json:"code"`
	IsGlobal bool   `db:"is_global" json:"is_global"`
	Active   bool   `db:"is_active" json:"is_active"`
}

// Teacher is a staff member who can be placed into slots.
type Teacher struct {
	ID       int64  `db:"id" json:"id"`
	FullName string `db:"full_name" json:"full_name"`
	Code     string `db:"code" json:"code"`
	Phone    string `db:"phone" json:"phone,omitempty"`
	Active   bool   `db:"is_active" json:"is_active"`
}
