package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counts(t *testing.T) {
	c := NewCollector()

	c.SettingsWrite("global", "applied")
	c.SettingsWrite("global", "applied")
	c.SettingsWrite("project", "rejected")
	c.JobRun("expiry_check", "success", 150*time.Millisecond)
	c.NotificationsSent(3)
	c.NotificationsSent(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.settingWrites.WithLabelValues("global", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.settingWrites.WithLabelValues("project", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.jobRuns.WithLabelValues("expiry_check", "success")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.notifications))
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.SettingsWrite("global", "applied")
		c.JobRun("expiry_check", "failure", time.Second)
		c.NotificationsSent(1)
	})

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.SettingsWrite("global", "failed")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `keepstone_settings_writes_total{outcome="failed",scope="global"} 1`), body)
}
