package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)

	m.ObserveOperation("book", "ok")
	m.ObserveOperation("book", "ok")
	m.ObserveOperation("book", "conflict")
	m.ObserveAvailability(20 * time.Millisecond)
	m.ObserveMirror("calendar", nil)
	m.ObserveMirror("calendar", errors.New("boom"))
	m.ObserveMirrorDropped("queue_full")
	m.ObserveHTTP(http.MethodPost, "/api/appointments", http.StatusCreated, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("book", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("book", "conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mirrorApplied.WithLabelValues("calendar", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mirrorDropped.WithLabelValues("queue_full")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "/api/appointments", "201")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.availabilityLatency))
}

func TestBookingMetricsNilSafe(t *testing.T) {
	var m *BookingMetrics
	m.ObserveOperation("book", "ok")
	m.ObserveAvailability(time.Second)
	m.ObserveMirror("webhook", nil)
	m.ObserveMirrorDropped("closed")
	m.ObserveHTTP("GET", "/", 200, time.Second)
}

func TestHandlerExposesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)
	m.ObserveOperation("cancel", "ok")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `clinic_booking_operations_total{operation="cancel",outcome="ok"} 1`)
}
