package dto

// LevelQuotaItem is one subject line of a level's weekly plan.
type LevelQuotaItem struct {
	SubjectID     int64 `json:"subjectId" validate:"required,min=1"`
	WeeklyPeriods int   `json:"weeklyPeriods" validate:"min=0"`
	IsActive      bool  `json:"isActive"`
}

// SaveLevelQuotasRequest upserts quota lines for a level.
type SaveLevelQuotasRequest struct {
	Level string           `json:"level" validate:"required,max=64"`
	Items []LevelQuotaItem `json:"items" validate:"required,dive"`
}

// LevelQuery selects a level.
type LevelQuery struct {
	Level string `form:"level" json:"level" validate:"required,max=64"`
}

// ReplaceTeacherSubjectsRequest replaces a teacher's qualifications.
type ReplaceTeacherSubjectsRequest struct {
	SubjectIDs []int64 `json:"subjectIds" validate:"dive,min=1"`
}

// ReplaceTeacherClassesRequest replaces a teacher's class assignments.
type ReplaceTeacherClassesRequest struct {
	ClassIDs []int64 `json:"classIds" validate:"dive,min=1"`
}

// AvailabilityItem is one explicit availability override.
type AvailabilityItem struct {
	DayID       int64 `json:"dayId" validate:"required,min=1"`
	PeriodID    int64 `json:"periodId" validate:"required,min=1"`
	IsAvailable bool  `json:"isAvailable"`
}

// ReplaceTeacherAvailabilityRequest replaces a teacher's availability overrides.
type ReplaceTeacherAvailabilityRequest struct {
	Items []AvailabilityItem `json:"items" validate:"dive"`
}

// TeacherSlotsResponse lists the cells a teacher already occupies.
type TeacherSlotsResponse struct {
	TeacherID int64            `json:"teacherId"`
	Slots     []AssignedSlotDTO `json:"slots"`
}

// AssignedSlotDTO is one occupied cell with the class holding it.
type AssignedSlotDTO struct {
	SlotID    int64 `json:"slotId"`
	ClassID   int64 `json:"classId"`
	DayID     int64 `json:"dayId"`
	PeriodID  int64 `json:"periodId"`
	SubjectID int64 `json:"subjectId"`
}
