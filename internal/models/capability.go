package models

// TeacherSubject records that a teacher is qualified for a subject.
type TeacherSubject struct {
	TeacherID int64 `db:"teacher_id" json:"teacher_id"`
	SubjectID int64 `db:"subject_id" json:"subject_id"`
}

// TeacherClass records that a teacher is assigned to a class.
type TeacherClass struct {
	TeacherID int64 `db:"teacher_id" json:"teacher_id"`
	ClassID   int64 `db:"class_id" json:"class_id"`
}

// TeacherAvailability is a sparse override. A missing row means available.
type TeacherAvailability struct {
	TeacherID   int64 `db:"teacher_id" json:"teacher_id"`
	DayID       int64 `db:"day_id" json:"day_id"`
	PeriodID    int64 `db:"period_id" json:"period_id"`
	IsAvailable bool  `db:"is_available" json:"is_available"`
}

// EligibleTeacher is a teacher holding both the qualification and the class assignment for a subject.
type EligibleTeacher struct {
	SubjectID int64  `db:"subject_id" json:"subject_id"`
	TeacherID int64  `db:"teacher_id" json:"id"`
	FullName  string `db:"full_name" json:"full_name"`
}

// Availability is the set of explicit overrides for one teacher keyed by cell.
type Availability map[SlotKey]bool

// Blocks reports whether an explicit false override forbids the cell.
func (a Availability) Blocks(key SlotKey) bool {
	available, ok := a[key]
	return ok && !available
}

// NewAvailability indexes override rows for a single teacher.
func NewAvailability(rows []TeacherAvailability) Availability {
	out := make(Availability, len(rows))
	for _, row := range rows {
		out[SlotKey{DayID: row.DayID, PeriodID: row.PeriodID}] = row.IsAvailable
	}
	return out
}
