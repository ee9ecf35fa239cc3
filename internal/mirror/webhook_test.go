package mirror

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-self-booking/internal/appointment"
)

func TestWebhookNotifierPostsChange(t *testing.T) {
	var got Notification
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer ts.Close()

	n := NewWebhookNotifier(ts.URL, time.Second, zerolog.Nop())
	rec := testRecord("5", "100")
	prev := rec.Appointment

	err := n.Apply(context.Background(), appointment.Change{Kind: appointment.ChangeCancelled, Record: rec, Previous: &prev})
	require.NoError(t, err)

	assert.Equal(t, "appointment.cancelled", got.Event)
	assert.Equal(t, "5", got.ID)
	assert.Equal(t, rec.MirrorKey(), got.MirrorKey)
	assert.Equal(t, "100", got.Appointment.PatientID)
	assert.Equal(t, rec.Start, got.Appointment.Start)
	require.NotNil(t, got.Previous)
}

func TestWebhookNotifierOpensBreaker(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	n := NewWebhookNotifier(ts.URL, time.Second, zerolog.Nop())
	change := appointment.Change{Kind: appointment.ChangeBooked, Record: testRecord("2", "1")}

	for i := 0; i < 5; i++ {
		err := n.Apply(context.Background(), change)
		require.Error(t, err)
		assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}

	err := n.Apply(context.Background(), change)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(5), atomic.LoadInt32(&hits))
}
