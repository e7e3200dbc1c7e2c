package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTimetableDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 10, cfg.Timetable.MaxPeriodsPerDay)
	assert.Equal(t, 70, cfg.Timetable.MaxWeeklyPeriods())
	assert.Equal(t, 1, cfg.Timetable.MaxSameSubjectPerDay)
	assert.Equal(t, 10*time.Minute, cfg.Timetable.CatalogCacheTTL)
	assert.Equal(t, uint32(5), cfg.Timetable.CacheBreakerFailures)
	assert.Equal(t, []string{"SUPERADMIN", "ADMIN", "DIRECTOR", "TIMETABLE_OFFICER"}, cfg.Timetable.AllowedPlannerRoles)
}

func TestLoadTimetableOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TIMETABLE_MAX_SAME_SUBJECT_PER_DAY", "2")
	t.Setenv("TIMETABLE_CATALOG_CACHE_TTL", "not-a-duration")
	t.Setenv("TIMETABLE_PLANNER_ROLES", " ADMIN , DIRECTOR ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Timetable.MaxSameSubjectPerDay)
	assert.Equal(t, 10*time.Minute, cfg.Timetable.CatalogCacheTTL)
	assert.Equal(t, []string{"ADMIN", "DIRECTOR"}, cfg.Timetable.AllowedPlannerRoles)
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"a", "b"}, splitAndTrim("a, ,b"))
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
