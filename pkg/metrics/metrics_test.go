package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The registry is process-global, so the disabled and enabled states are
// checked in order within a single test.
func TestMetrics(t *testing.T) {
	t.Run("Disabled", func(t *testing.T) {
		require.False(t, IsEnabled())
		assert.IsType(t, noopGroupMetrics{}, NewGroupMetrics("main"))
		assert.IsType(t, noopEngineMetrics{}, NewEngineMetrics())

		rec := httptest.NewRecorder()
		newMux(9090).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("Enabled", func(t *testing.T) {
		InitRegistry()
		require.True(t, IsEnabled())

		m := NewGroupMetrics("main")
		gm, ok := m.(*groupMetrics)
		require.True(t, ok)

		m.RecordRequestStart("create")
		assert.Equal(t, 1.0, testutil.ToFloat64(gm.requestsInFlight.WithLabelValues("main", "create")))
		m.RecordRequest("create", time.Millisecond, "ok")
		m.RecordRequestEnd("create")
		assert.Equal(t, 0.0, testutil.ToFloat64(gm.requestsInFlight.WithLabelValues("main", "create")))
		assert.Equal(t, 1.0, testutil.ToFloat64(gm.requestsTotal.WithLabelValues("main", "create", "ok")))

		// A second handler on the same registry shares the collectors.
		again := NewGroupMetrics("main").(*groupMetrics)
		again.RecordRequest("create", time.Millisecond, "ok")
		assert.Equal(t, 2.0, testutil.ToFloat64(gm.requestsTotal.WithLabelValues("main", "create", "ok")))

		em := NewEngineMetrics().(*engineMetrics)
		em.RecordTask("create", time.Millisecond, nil)
		em.RecordTask("create", time.Millisecond, errors.New("boom"))
		assert.Equal(t, 1.0, testutil.ToFloat64(em.tasksTotal.WithLabelValues("create", "error")))

		rec := httptest.NewRecorder()
		newMux(9090).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, strings.Contains(rec.Body.String(), "dittoiod_group_requests_total"))
	})
}

func TestServerDefaults(t *testing.T) {
	s := NewServer(ServerConfig{})
	assert.Equal(t, 9090, s.Port())

	rec := httptest.NewRecorder()
	newMux(s.Port()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
