package dto

import "github.com/el-siradj/SCHOOL/internal/models"

// PlannerClass is the class header of the planner view.
type PlannerClass struct {
	ID    int64  `json:"id"`
	Level string `json:"level"`
	Name  string `json:"name"`
	Cycle string `json:"cycle"`
}

// WorkloadItem is the quota progress of one subject for the planned class.
type WorkloadItem struct {
	SubjectID     int64                    `json:"subjectId"`
	SubjectName   string                   `json:"subjectName"`
	SubjectCode   string                   `json:"subjectCode"`
	WeeklyPeriods int                      `json:"weeklyPeriods"`
	Placed        int                      `json:"placed"`
	Remaining     int                      `json:"remaining"`
	Teachers      []models.EligibleTeacher `json:"teachers"`
}

// PlannerView is everything the planner screen needs for one class.
type PlannerView struct {
	Class       PlannerClass                 `json:"class"`
	Days        []models.Day                 `json:"days"`
	Periods     []models.Period              `json:"periods"`
	StudyWindow []models.WindowSlot          `json:"studyWindow"`
	Slots       []models.TimetableSlotDetail `json:"slots"`
	Workload    []WorkloadItem               `json:"workload"`
}

// SuggestionQuery asks for every legal empty cell for a (class, subject, teacher) triple.
type SuggestionQuery struct {
	ClassID   int64 `form:"class_id" json:"classId" validate:"required,min=1"`
	SubjectID int64 `form:"subject_id" json:"subjectId" validate:"required,min=1"`
	TeacherID int64 `form:"teacher_id" json:"teacherId" validate:"required,min=1"`
}

// SuggestionResponse lists legal cells in window order.
type SuggestionResponse struct {
	ClassID   int64               `json:"classId"`
	SubjectID int64               `json:"subjectId"`
	TeacherID int64               `json:"teacherId"`
	Slots     []models.WindowSlot `json:"slots"`
}

// AutofillRequest tunes one auto-fill run. Nil fields take the configured defaults.
type AutofillRequest struct {
	AvoidSameSubjectPerDay *bool   `json:"avoidSameSubjectPerDay"`
	MaxSameSubjectPerDay   *int    `json:"maxSameSubjectPerDay" validate:"omitempty,min=1,max=16"`
	CreatedBy              *string `json:"-"`
}

// UnscheduledSubject is demand auto-fill could not place.
type UnscheduledSubject struct {
	SubjectID int64 `json:"subjectId"`
	Remaining int   `json:"remaining"`
}

// Unschedulable reasons.
const (
	ReasonNoEligibleTeacher = "NO_ELIGIBLE_TEACHER"
)

// UnschedulableSubject is demand auto-fill never attempted, with the reason.
type UnschedulableSubject struct {
	SubjectID int64  `json:"subjectId"`
	Remaining int    `json:"remaining"`
	Reason    string `json:"reason"`
}

// AutofillResult reports what one auto-fill run committed and what is left for a human.
type AutofillResult struct {
	ClassID       int64                  `json:"classId"`
	Inserted      int                    `json:"inserted"`
	Placements    []models.TimetableSlot `json:"placements"`
	Unscheduled   []UnscheduledSubject   `json:"unscheduled"`
	Unschedulable []UnschedulableSubject `json:"unschedulable"`
}

// CreateSlotRequest places one session manually.
type CreateSlotRequest struct {
	ClassID   int64   `json:"classId" validate:"required,min=1"`
	DayID     int64   `json:"dayId" validate:"required,min=1"`
	PeriodID  int64   `json:"periodId" validate:"required,min=1"`
	SubjectID int64   `json:"subjectId" validate:"required,min=1"`
	TeacherID int64   `json:"teacherId" validate:"required,min=1"`
	CreatedBy *string `json:"-"`
}

// ClearClassResult reports how many slots a bulk delete removed.
type ClearClassResult struct {
	ClassID int64 `json:"classId"`
	Deleted int64 `json:"deleted"`
}

// Timetable view kinds.
const (
	ViewKindClass   = "CLASS"
	ViewKindTeacher = "TEACHER"
)

// TimetableView is a read-only weekly grid for a class or a teacher.
type TimetableView struct {
	Kind    string                       `json:"kind"`
	OwnerID int64                        `json:"ownerId"`
	Title   string                       `json:"title"`
	Days    []models.Day                 `json:"days"`
	Periods []models.Period              `json:"periods"`
	Slots   []models.TimetableSlotDetail `json:"slots"`
}

// Export formats.
const (
	ExportFormatPDF = "pdf"
	ExportFormatCSV = "csv"
)

// ExportQuery selects the rendering of an exported grid.
type ExportQuery struct {
	Format string `form:"format" json:"format" validate:"omitempty,oneof=pdf csv"`
}

// ExportFile is a rendered document ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}
