package mirror

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/hackgods/clinic-self-booking/internal/appointment"
	"github.com/hackgods/clinic-self-booking/internal/clinic"
)

type calendarCall struct {
	method  string
	eventID string
	body    map[string]any
}

type fakeCalendar struct {
	mu     sync.Mutex
	calls  []calendarCall
	events map[string]bool
}

func (f *fakeCalendar) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rest, ok := strings.CutPrefix(r.URL.Path, "/calendars/clinic-cal/events")
	if !ok {
		http.NotFound(w, r)
		return
	}
	eventID := strings.TrimPrefix(rest, "/")

	var body map[string]any
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	f.calls = append(f.calls, calendarCall{method: r.Method, eventID: eventID, body: body})

	notFound := func() {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Not Found"}}`))
	}

	switch r.Method {
	case http.MethodPost:
		id, _ := body["id"].(string)
		if f.events[id] {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":{"code":409,"message":"duplicate"}}`))
			return
		}
		f.events[id] = true
		body["status"] = "confirmed"
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	case http.MethodPatch:
		if !f.events[eventID] {
			notFound()
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	case http.MethodDelete:
		if !f.events[eventID] {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusGone)
			_, _ = w.Write([]byte(`{"error":{"code":410,"message":"Resource has been deleted"}}`))
			return
		}
		delete(f.events, eventID)
		w.WriteHeader(http.StatusNoContent)
	}
}

func newTestCalendar(t *testing.T) (*fakeCalendar, *CalendarMirror) {
	t.Helper()
	fake := &fakeCalendar{events: map[string]bool{}}
	ts := httptest.NewServer(fake)
	t.Cleanup(ts.Close)

	m, err := NewCalendarMirror(context.Background(), CalendarConfig{
		CalendarID: "clinic-cal",
		TimeZone:   "America/Bogota",
		Location:   "Orthodonto - Clínica Odontológica",
		Offset:     time.FixedZone("COT", -5*3600),
	}, option.WithEndpoint(ts.URL+"/"), option.WithHTTPClient(ts.Client()))
	require.NoError(t, err)
	return fake, m
}

func TestCalendarMirrorInsert(t *testing.T) {
	fake, m := newTestCalendar(t)
	rec := testRecord("2", "100")

	require.NoError(t, m.Apply(context.Background(), appointment.Change{Kind: appointment.ChangeBooked, Record: rec}))

	require.Len(t, fake.calls, 1)
	body := fake.calls[0].body
	assert.Equal(t, rec.MirrorKey(), body["id"])
	assert.Equal(t, "Cita odontológica - Laura Gómez", body["summary"])
	assert.Equal(t, "Orthodonto - Clínica Odontológica", body["location"])

	start := body["start"].(map[string]any)
	end := body["end"].(map[string]any)
	assert.Equal(t, "2026-03-02T10:00:00-05:00", start["dateTime"])
	assert.Equal(t, "2026-03-02T10:30:00-05:00", end["dateTime"])
	assert.Equal(t, "America/Bogota", start["timeZone"])

	reminders := body["reminders"].(map[string]any)
	assert.Equal(t, false, reminders["useDefault"])
	assert.Len(t, reminders["overrides"], 2)

	// A replayed insert is not an error.
	require.NoError(t, m.Apply(context.Background(), appointment.Change{Kind: appointment.ChangeBooked, Record: rec}))
}

func TestCalendarMirrorReschedulePatchesSameEvent(t *testing.T) {
	fake, m := newTestCalendar(t)
	rec := testRecord("2", "100")
	require.NoError(t, m.Apply(context.Background(), appointment.Change{Kind: appointment.ChangeBooked, Record: rec}))

	moved := rec
	moved.Date = clinic.MustParseDate("03/03/2026")
	moved.Start = clinic.MustParseTimeOfDay("15:00")
	end := clinic.MustParseTimeOfDay("15:30")
	moved.End = &end
	require.NoError(t, m.Apply(context.Background(), appointment.Change{Kind: appointment.ChangeRescheduled, Record: moved}))

	require.Len(t, fake.calls, 2)
	call := fake.calls[1]
	assert.Equal(t, http.MethodPatch, call.method)
	assert.Equal(t, rec.MirrorKey(), call.eventID)
	assert.Equal(t, "2026-03-03T15:00:00-05:00", call.body["start"].(map[string]any)["dateTime"])
	assert.Contains(t, call.body["summary"], "reagendada")
}

func TestCalendarMirrorRescheduleMissingEventInserts(t *testing.T) {
	fake, m := newTestCalendar(t)
	rec := testRecord("2", "100")

	require.NoError(t, m.Apply(context.Background(), appointment.Change{Kind: appointment.ChangeRescheduled, Record: rec}))

	require.Len(t, fake.calls, 2)
	assert.Equal(t, http.MethodPatch, fake.calls[0].method)
	assert.Equal(t, http.MethodPost, fake.calls[1].method)
	assert.True(t, fake.events[rec.MirrorKey()])
}

func TestCalendarMirrorCancelDeletes(t *testing.T) {
	fake, m := newTestCalendar(t)
	rec := testRecord("2", "100")
	require.NoError(t, m.Apply(context.Background(), appointment.Change{Kind: appointment.ChangeBooked, Record: rec}))

	require.NoError(t, m.Apply(context.Background(), appointment.Change{Kind: appointment.ChangeCancelled, Record: rec}))
	assert.False(t, fake.events[rec.MirrorKey()])

	// Deleting twice is tolerated.
	require.NoError(t, m.Apply(context.Background(), appointment.Change{Kind: appointment.ChangeCancelled, Record: rec}))
}

func TestCalendarMirrorLegacyRowUsesFallback(t *testing.T) {
	fake, m := newTestCalendar(t)
	rec := testRecord("2", "100")
	rec.End = nil
	rec.DurationMinutes = 0

	require.NoError(t, m.Apply(context.Background(), appointment.Change{Kind: appointment.ChangeBooked, Record: rec}))
	end := fake.calls[0].body["end"].(map[string]any)
	assert.Equal(t, "2026-03-02T11:00:00-05:00", end["dateTime"])
}

func TestNewCalendarMirrorRequiresCalendar(t *testing.T) {
	_, err := NewCalendarMirror(context.Background(), CalendarConfig{}, option.WithHTTPClient(http.DefaultClient))
	assert.Error(t, err)
}
