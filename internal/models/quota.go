package models

// LevelSubjectQuota is the weekly number of periods a subject gets for classes at a level.
type LevelSubjectQuota struct {
	Level         string `db:"level" json:"level"`
	SubjectID     int64  `db:"subject_id" json:"subject_id"`
	WeeklyPeriods int    `db:"weekly_periods" json:"weekly_periods"`
	Active        bool   `db:"is_active" json:"is_active"`
}

// LevelSubjectQuotaDetail joins the quota with subject display fields.
type LevelSubjectQuotaDetail struct {
	LevelSubjectQuota
	SubjectName string `db:"subject_name" json:"subject_name"`
	SubjectCode string `db:"subject_code" json:"subject_code"`
	IsGlobal    bool   `db:"is_global" json:"is_global"`
}

// Schedulable reports whether the quota takes part in auto-fill.
func (q LevelSubjectQuota) Schedulable() bool {
	return q.Active && q.WeeklyPeriods > 0
}
