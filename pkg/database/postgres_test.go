package database

import (
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pq.Error{Code: "23505", Constraint: "uq_timetable_slots_class_day_period"}
	fk := &pq.Error{Code: "23503"}

	assert.True(t, IsUniqueViolation(dup))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert slot: %w", dup)))
	assert.False(t, IsUniqueViolation(fk))
	assert.False(t, IsUniqueViolation(fmt.Errorf("plain")))
	assert.Equal(t, "uq_timetable_slots_class_day_period", ConstraintName(fmt.Errorf("wrap: %w", dup)))
	assert.Empty(t, ConstraintName(fmt.Errorf("plain")))
}
