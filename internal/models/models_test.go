package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAvailabilityBlocksOnlyExplicitFalse(t *testing.T) {
	avail := NewAvailability([]TeacherAvailability{
		{TeacherID: 1, DayID: 1, PeriodID: 1, IsAvailable: false},
		{TeacherID: 1, DayID: 1, PeriodID: 2, IsAvailable: true},
	})

	assert.True(t, avail.Blocks(SlotKey{DayID: 1, PeriodID: 1}))
	assert.False(t, avail.Blocks(SlotKey{DayID: 1, PeriodID: 2}))
	assert.False(t, avail.Blocks(SlotKey{DayID: 2, PeriodID: 1}), "a missing row means available")

	var none Availability
	assert.False(t, none.Blocks(SlotKey{DayID: 1, PeriodID: 1}))
}

func TestNormalizeCycle(t *testing.T) {
	assert.Equal(t, "MIDDLE", NormalizeCycle(" middle "))
	assert.Equal(t, "HIGH", Class{Cycle: "High"}.NormalizedCycle())
}

func TestQuotaSchedulable(t *testing.T) {
	assert.True(t, LevelSubjectQuota{WeeklyPeriods: 2, Active: true}.Schedulable())
	assert.False(t, LevelSubjectQuota{WeeklyPeriods: 0, Active: true}.Schedulable())
	assert.False(t, LevelSubjectQuota{WeeklyPeriods: 3, Active: false}.Schedulable())
}

func TestPeriodLabel(t *testing.T) {
	assert.Equal(t, "P1 08:00-08:45", Period{Code: "P1", StartTime: "08:00", EndTime: "08:45"}.Label())
	assert.Equal(t, "P2", Period{Code: "P2"}.Label())
}

func TestUserRoleValid(t *testing.T) {
	assert.True(t, RoleTimetableOfficer.Valid())
	assert.False(t, UserRole("STUDENT").Valid())
}
