package appointment_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-self-booking/internal/appointment"
	"github.com/hackgods/clinic-self-booking/internal/clinic"
)

func scheduledAppointment() appointment.Appointment {
	created := time.Date(2026, time.February, 16, 15, 4, 5, 123_000_000, time.UTC)
	end := tod("11:00")
	return appointment.Appointment{
		PatientID:       "1020304050",
		PatientName:     "Ana Pérez",
		Email:           "ana@example.com",
		Phone:           "+57 300 000 0000",
		Date:            clinic.MustParseDate("02/03/2026"),
		Start:           tod("10:00"),
		End:             &end,
		DurationMinutes: 60,
		ServiceLabel:    "Ortodoncia - Montaje de Brackets",
		Practitioner:    "Dra. Sandra Simancas",
		Status:          appointment.StatusScheduled,
		LastAction:      appointment.ActionBooked,
		CreatedAt:       created,
		UpdatedAt:       created,
	}
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, appointment.StatusScheduled.CanTransitionTo(appointment.StatusRescheduled))
	assert.True(t, appointment.StatusScheduled.CanTransitionTo(appointment.StatusCancelled))
	assert.True(t, appointment.StatusRescheduled.CanTransitionTo(appointment.StatusRescheduled))
	assert.True(t, appointment.StatusRescheduled.CanTransitionTo(appointment.StatusCancelled))

	assert.False(t, appointment.StatusCancelled.CanTransitionTo(appointment.StatusRescheduled))
	assert.False(t, appointment.StatusCancelled.CanTransitionTo(appointment.StatusCancelled))
	assert.False(t, appointment.StatusCompleted.CanTransitionTo(appointment.StatusCancelled))
	assert.False(t, appointment.StatusScheduled.CanTransitionTo(appointment.StatusScheduled))
}

func TestRescheduleCarriesFieldsForward(t *testing.T) {
	orig := scheduledAppointment()
	now := time.Date(2026, time.February, 17, 9, 0, 0, 0, time.UTC)

	next, err := appointment.Reschedule(orig, clinic.MustParseDate("04/03/2026"), tod("14:30"), nil, 60, now)
	require.NoError(t, err)

	want := orig
	wantEnd := tod("15:30")
	want.Date = clinic.MustParseDate("04/03/2026")
	want.Start = tod("14:30")
	want.End = &wantEnd
	want.Status = appointment.StatusRescheduled
	want.LastAction = appointment.ActionRescheduled
	want.UpdatedAt = now
	assert.Equal(t, want, next)

	// the original is untouched
	assert.Equal(t, tod("11:00"), *orig.End)
	assert.Equal(t, appointment.StatusScheduled, orig.Status)
}

func TestRescheduleExplicitEndAndLegacyDuration(t *testing.T) {
	orig := scheduledAppointment()
	end := tod("09:30")
	next, err := appointment.Reschedule(orig, orig.Date, tod("08:00"), &end, 60, time.Now())
	require.NoError(t, err)
	assert.Equal(t, tod("09:30"), *next.End)
	assert.Equal(t, 60, next.DurationMinutes)

	legacy := scheduledAppointment()
	legacy.End = nil
	legacy.DurationMinutes = 0
	next, err = appointment.Reschedule(legacy, legacy.Date, tod("08:00"), nil, 30, time.Now())
	require.NoError(t, err)
	assert.Equal(t, tod("08:30"), *next.End)
}

func TestRescheduleKeepsBookedDurationAfterEndOverride(t *testing.T) {
	orig := scheduledAppointment()
	orig.End = nil
	orig.DurationMinutes = 30

	end := tod("09:30")
	stretched, err := appointment.Reschedule(orig, orig.Date, tod("08:00"), &end, 60, time.Now())
	require.NoError(t, err)
	assert.Equal(t, tod("09:30"), *stretched.End)
	assert.Equal(t, 30, stretched.BookedDuration(60))

	next, err := appointment.Reschedule(stretched, orig.Date, tod("14:00"), nil, 60, time.Now())
	require.NoError(t, err)
	assert.Equal(t, tod("14:30"), *next.End)
	assert.Equal(t, 30, next.DurationMinutes)
}

func TestBookedDuration(t *testing.T) {
	a := scheduledAppointment()
	a.DurationMinutes = 30
	assert.Equal(t, 30, a.BookedDuration(90), "recorded duration wins over the end")

	a.DurationMinutes = 0
	assert.Equal(t, 60, a.BookedDuration(90), "legacy rows fall back to the end")

	a.End = nil
	assert.Equal(t, 90, a.BookedDuration(90))
}

func TestRescheduleRejectsInactive(t *testing.T) {
	for _, st := range []appointment.Status{appointment.StatusCancelled, appointment.StatusCompleted} {
		a := scheduledAppointment()
		a.Status = st
		_, err := appointment.Reschedule(a, a.Date, tod("08:00"), nil, 60, time.Now())
		assert.ErrorIs(t, err, appointment.ErrInvalidTransition, st)
	}
}

func TestCancelKeepsHistory(t *testing.T) {
	orig := scheduledAppointment()
	now := time.Date(2026, time.February, 18, 9, 0, 0, 0, time.UTC)

	next, err := appointment.Cancel(orig, now)
	require.NoError(t, err)

	want := orig
	want.Status = appointment.StatusCancelled
	want.LastAction = appointment.ActionCancelled
	want.UpdatedAt = now
	assert.Equal(t, want, next)

	_, err = appointment.Cancel(next, now)
	assert.ErrorIs(t, err, appointment.ErrInvalidTransition)
}

func TestEffectiveDuration(t *testing.T) {
	a := scheduledAppointment()
	assert.Equal(t, 60, a.EffectiveDuration(30))

	a.DurationMinutes = 90
	assert.Equal(t, 60, a.EffectiveDuration(30), "end time wins over duration")

	a.End = nil
	assert.Equal(t, 90, a.EffectiveDuration(30))

	a.DurationMinutes = 0
	assert.Equal(t, 30, a.EffectiveDuration(30))

	bad := tod("09:00")
	a.End = &bad
	assert.Equal(t, 30, a.EffectiveDuration(30), "an end before the start is ignored")
}

func TestMirrorKeyIsStable(t *testing.T) {
	a := scheduledAppointment()
	b := a
	b.Start = tod("15:00")
	b.Status = appointment.StatusCancelled
	assert.Equal(t, a.MirrorKey(), b.MirrorKey())
	assert.Len(t, a.MirrorKey(), 40)

	c := a
	c.PatientID = "other"
	assert.NotEqual(t, a.MirrorKey(), c.MirrorKey())
}

func TestRecordMirrorKeyWithoutCreatedAt(t *testing.T) {
	a := scheduledAppointment()
	rec := appointment.Record{ID: appointment.NewID("7"), Appointment: a}
	assert.Equal(t, a.MirrorKey(), rec.MirrorKey(), "rows with a creation time keep the appointment key")

	a.CreatedAt = time.Time{}
	first := appointment.Record{ID: appointment.NewID("7"), Appointment: a}
	second := appointment.Record{ID: appointment.NewID("8"), Appointment: a}
	assert.NotEqual(t, first.MirrorKey(), second.MirrorKey())
	assert.Equal(t, first.MirrorKey(), first.MirrorKey())
	assert.Len(t, first.MirrorKey(), 40)
}

func TestParseID(t *testing.T) {
	id, err := appointment.ParseID(" 12 ")
	require.NoError(t, err)
	assert.Equal(t, "12", id.String())
	assert.False(t, id.IsZero())

	_, err = appointment.ParseID("  ")
	assert.ErrorIs(t, err, appointment.ErrInvalidID)
}
