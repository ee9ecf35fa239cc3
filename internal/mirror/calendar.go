package mirror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/hackgods/clinic-self-booking/internal/appointment"
)

type CalendarConfig struct {
	CalendarID string
	// TimeZone is the IANA label attached to event times, e.g. America/Bogota.
	TimeZone string
	Location string
	// Offset is the clinic's fixed UTC offset used to render event times.
	Offset *time.Location
	// FallbackDuration applies to legacy rows with no end and no duration.
	FallbackDuration int
}

// CalendarMirror keeps one Google Calendar event per appointment. The event id
// is the appointment's mirror key, so later changes address it directly.
type CalendarMirror struct {
	srv *calendar.Service
	cfg CalendarConfig
}

func NewCalendarMirror(ctx context.Context, cfg CalendarConfig, opts ...option.ClientOption) (*CalendarMirror, error) {
	if cfg.CalendarID == "" {
		return nil, errors.New("calendar id is required")
	}
	if cfg.Offset == nil {
		cfg.Offset = time.UTC
	}
	if cfg.FallbackDuration <= 0 {
		cfg.FallbackDuration = appointment.DefaultLegacyDuration
	}
	srv, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar client: %w", err)
	}
	return &CalendarMirror{srv: srv, cfg: cfg}, nil
}

func (m *CalendarMirror) Name() string { return "calendar" }

func (m *CalendarMirror) Apply(ctx context.Context, change appointment.Change) error {
	switch change.Kind {
	case appointment.ChangeBooked:
		return m.insert(ctx, change.Record)
	case appointment.ChangeRescheduled:
		return m.patch(ctx, change.Record)
	case appointment.ChangeCancelled:
		return m.delete(ctx, change.Record)
	}
	return fmt.Errorf("unknown change kind %q", change.Kind)
}

func (m *CalendarMirror) insert(ctx context.Context, rec appointment.Record) error {
	ev := m.event(rec.Appointment)
	ev.Id = rec.MirrorKey()
	ev.Location = m.cfg.Location
	ev.Reminders = &calendar.EventReminders{
		UseDefault: false,
		Overrides: []*calendar.EventReminder{
			{Method: "email", Minutes: 24 * 60},
			{Method: "popup", Minutes: 60},
		},
		ForceSendFields: []string{"UseDefault"},
	}

	_, err := m.srv.Events.Insert(m.cfg.CalendarID, ev).Context(ctx).Do()
	if statusOf(err) == http.StatusConflict {
		// Already created by an earlier attempt.
		return nil
	}
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (m *CalendarMirror) patch(ctx context.Context, rec appointment.Record) error {
	ev := m.event(rec.Appointment)
	ev.Summary = fmt.Sprintf("Cita odontológica (reagendada) - %s", rec.PatientName)
	ev.Description += "\n\nCITA REAGENDADA"

	_, err := m.srv.Events.Patch(m.cfg.CalendarID, rec.MirrorKey(), ev).Context(ctx).Do()
	if statusOf(err) == http.StatusNotFound {
		return m.insert(ctx, rec)
	}
	if err != nil {
		return fmt.Errorf("patch event: %w", err)
	}
	return nil
}

func (m *CalendarMirror) delete(ctx context.Context, rec appointment.Record) error {
	err := m.srv.Events.Delete(m.cfg.CalendarID, rec.MirrorKey()).Context(ctx).Do()
	switch statusOf(err) {
	case http.StatusNotFound, http.StatusGone:
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

func (m *CalendarMirror) event(a appointment.Appointment) *calendar.Event {
	start, end := a.Interval(m.cfg.FallbackDuration)
	return &calendar.Event{
		Summary: fmt.Sprintf("Cita odontológica - %s", a.PatientName),
		Description: fmt.Sprintf("Paciente: %s\nCédula: %s\nTeléfono: %s\nCorreo: %s\nServicio: %s\nProfesional: %s",
			a.PatientName, a.PatientID, a.Phone, a.Email, a.ServiceLabel, a.Practitioner),
		Start: &calendar.EventDateTime{
			DateTime: a.Date.In(m.cfg.Offset, start).Format(time.RFC3339),
			TimeZone: m.cfg.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: a.Date.In(m.cfg.Offset, end).Format(time.RFC3339),
			TimeZone: m.cfg.TimeZone,
		},
	}
}

func statusOf(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}
