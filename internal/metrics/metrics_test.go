package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveBackend(t *testing.T) {
	m := New()
	m.ObserveBackend("audio", "/get-transcript", "ok", 20*time.Millisecond)
	m.ObserveBackend("audio", "/get-transcript", "ok", 30*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.BackendRequests.WithLabelValues("audio", "/get-transcript", "ok")))
}

func TestNilReceiverIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveBackend("a", "b", "c", time.Second)
		m.Upload("audio", "ok")
		m.QualityAnalysis("error")
		m.Refresh("text")
		m.Stale("insights")
		m.SetSessions(3)
		m.WebsocketDelta(1)
	})
}

func TestHandlerExposesNamespace(t *testing.T) {
	m := New()
	m.Refresh("audio")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, w.Body.String(), "support_dashboard_refresh_events_total")
}

func TestIndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
