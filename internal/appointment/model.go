package appointment

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/hackgods/clinic-self-booking/internal/clinic"
)

var ErrInvalidID = errors.New("invalid appointment id")

// ID identifies a ledger record. Only ledger adapters know what it encodes.
type ID struct {
	ref string
}

func NewID(ref string) ID { return ID{ref: ref} }

func ParseID(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ID{}, ErrInvalidID
	}
	return ID{ref: s}, nil
}

func (id ID) String() string { return id.ref }
func (id ID) IsZero() bool   { return id.ref == "" }

func (id ID) MarshalText() ([]byte, error) { return []byte(id.ref), nil }

type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusRescheduled Status = "rescheduled"
	StatusCancelled   Status = "cancelled"
	StatusCompleted   Status = "completed"
)

// IsActive reports whether the appointment still occupies its slot.
func (s Status) IsActive() bool {
	return s == StatusScheduled || s == StatusRescheduled
}

func ParseStatus(s string) (Status, bool) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusScheduled, StatusRescheduled, StatusCancelled, StatusCompleted:
		return st, true
	}
	return "", false
}

type Action string

const (
	ActionBooked      Action = "booked"
	ActionRescheduled Action = "rescheduled"
	ActionCancelled   Action = "cancelled"
)

type Appointment struct {
	PatientID   string `json:"patientId"`
	PatientName string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`

	Date  clinic.Date       `json:"date"`
	Start clinic.TimeOfDay  `json:"startTime"`
	End   *clinic.TimeOfDay `json:"endTime,omitempty"`
	// DurationMinutes is zero on rows written before durations were recorded.
	DurationMinutes int `json:"duration,omitempty"`

	ServiceLabel string `json:"serviceLabel"`
	Practitioner string `json:"practitioner"`

	Status     Status    `json:"status"`
	LastAction Action    `json:"lastAction"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// EffectiveDuration derives the length of the booking: the explicit end,
// else the recorded duration, else fallback.
func (a Appointment) EffectiveDuration(fallback int) int {
	if a.End != nil && *a.End > a.Start {
		return int(*a.End - a.Start)
	}
	if a.DurationMinutes > 0 {
		return a.DurationMinutes
	}
	return fallback
}

// BookedDuration is the length a reschedule keeps. The recorded duration is
// fixed at booking; an end override on an earlier reschedule does not change it.
func (a Appointment) BookedDuration(fallback int) int {
	if a.DurationMinutes > 0 {
		return a.DurationMinutes
	}
	return a.EffectiveDuration(fallback)
}

// Interval returns the half-open [start, end) occupied on the appointment's date.
func (a Appointment) Interval(fallback int) (clinic.TimeOfDay, clinic.TimeOfDay) {
	return a.Start, a.Start.Add(a.EffectiveDuration(fallback))
}

// MirrorKey is a stable identifier for external copies of this appointment.
// It is lowercase hex, which calendar providers accept as a client-chosen event id.
func (a Appointment) MirrorKey() string {
	sum := sha1.Sum([]byte(a.PatientID + "|" + a.CreatedAt.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(sum[:])
}

// Record is an appointment together with its ledger identity.
type Record struct {
	ID ID `json:"id"`
	Appointment
}

// MirrorKey falls back to the ledger id for rows with no readable creation
// time, so two such rows for one patient never share a key.
func (r Record) MirrorKey() string {
	if !r.CreatedAt.IsZero() || r.ID.IsZero() {
		return r.Appointment.MirrorKey()
	}
	sum := sha1.Sum([]byte(r.PatientID + "|ledger:" + r.ID.String()))
	return hex.EncodeToString(sum[:])
}

func endOf(start clinic.TimeOfDay, duration int) *clinic.TimeOfDay {
	end := start.Add(duration)
	return &end
}
