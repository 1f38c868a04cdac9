package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := newMetrics(prometheus.NewRegistry())

	m.RecordBan(DurationTemporary)
	m.RecordBan(DurationTemporary)
	m.RecordUnban(SourceManual)
	m.RecordAutoUnbanRun(150*time.Millisecond, 3, 1)
	m.RecordVisibilityChange("question", "hide")
	m.RecordNotification("ban", nil)
	m.RecordNotification("ban", errors.New("smtp down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.BansTotal.WithLabelValues(DurationTemporary)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UnbansTotal.WithLabelValues(SourceManual)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.UnbansTotal.WithLabelValues(SourceAuto)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AutoUnbanRuns))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AutoUnbanErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VisibilityChanges.WithLabelValues("question", "hide")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsSent.WithLabelValues("ban")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsFailed.WithLabelValues("ban")))
	assert.Greater(t, testutil.ToFloat64(m.AutoUnbanLastRunTime), 0.0)
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest(http.MethodPost, "/api/users/{id}/ban", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `overflow_admin_requests_total{method="POST",route="/api/users/{id}/ban",status="200"} 1`))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
