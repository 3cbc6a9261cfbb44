package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.ObserveOperation("track_about", OutcomeOK, 10*time.Millisecond)
	m.EventPublished("redis")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`shazamio_operation_requests_total{operation="track_about",outcome="ok"} 1`,
		`shazamio_events_published_total{bus="redis"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Не найдено %s", want)
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveOperation("x", OutcomeFailure, time.Second)
	m.EventPublished("x")
	m.SubscriberConnected()
	m.SubscriberDisconnected()
}
