package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, m *MetricsService, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if matchLabels(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matchLabels(metric *dto.Metric, labels map[string]string) bool {
	for _, pair := range metric.GetLabel() {
		if want, ok := labels[pair.GetName()]; ok && want != pair.GetValue() {
			return false
		}
	}
	return true
}

func TestMetricsServiceRecordsAutofillAndRejections(t *testing.T) {
	m := NewMetricsService()

	m.RecordAutofill(AutofillOutcomeCommitted, 3, 1, 20*time.Millisecond)
	m.RecordAutofill(AutofillOutcomeAborted, 0, 0, time.Millisecond)
	m.RecordPlacementRejection("SLOT_CONFLICT")
	m.RecordPlacementRejection("SLOT_CONFLICT")

	assert.Equal(t, 1.0, counterValue(t, m, "timetable_autofill_runs_total", map[string]string{"outcome": AutofillOutcomeCommitted}))
	assert.Equal(t, 1.0, counterValue(t, m, "timetable_autofill_runs_total", map[string]string{"outcome": AutofillOutcomeAborted}))
	assert.Equal(t, 3.0, counterValue(t, m, "timetable_autofill_placements_total", nil))
	assert.Equal(t, 2.0, counterValue(t, m, "timetable_placement_rejections_total", map[string]string{"code": "SLOT_CONFLICT"}))
}

func TestMetricsServiceHandlerExposesRegistry(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/timetable/planner/:classId", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
