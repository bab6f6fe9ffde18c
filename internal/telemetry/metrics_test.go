package telemetry_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/commentpulse/internal/telemetry"
)

func TestRecordAttempt(t *testing.T) {
	m := telemetry.NewMetrics(prometheus.NewRegistry())

	m.RecordAttempt("gemini", "overloaded")
	m.RecordAttempt("gemini", "overloaded")
	m.RecordAttempt("gemini", "success")

	assert.InDelta(t, 2, testutil.ToFloat64(m.GenerativeAttempts.WithLabelValues("gemini", "overloaded")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.GenerativeAttempts.WithLabelValues("gemini", "success")), 0)
}

func TestRecordAnalysis(t *testing.T) {
	m := telemetry.NewMetrics(prometheus.NewRegistry())

	m.RecordAnalysis("local-fallback", 3, 150*time.Millisecond)
	m.RecordAnalysis("generative", 2, time.Second)
	m.RecordFallback("gemini")

	assert.InDelta(t, 1, testutil.ToFloat64(m.Analyses.WithLabelValues("local-fallback")), 0)
	assert.InDelta(t, 5, testutil.ToFloat64(m.CommentsAnalyzed), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Fallbacks.WithLabelValues("gemini")), 0)
}

func TestRecordCacheLookup(t *testing.T) {
	m := telemetry.NewMetrics(prometheus.NewRegistry())

	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)
	m.RecordCacheLookup(false)

	assert.InDelta(t, 1, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")), 0)
}

func TestNilMetrics(t *testing.T) {
	var m *telemetry.Metrics

	// Should not panic
	m.RecordAttempt("gemini", "success")
	m.RecordFallback("gemini")
	m.RecordAnalysis("generative", 1, time.Millisecond)
	m.RecordCacheLookup(true)
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := telemetry.NewMetrics(reg)
	m.RecordAnalysis("local-selected", 1, time.Millisecond)

	rec := httptest.NewRecorder()
	telemetry.Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `commentpulse_analyses_total{path="local-selected"} 1`))
}
