package appointment

import (
	"context"
	"errors"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrLedgerUnavailable   = errors.New("appointment ledger unavailable")
)

// Ledger is the system of record: an ordered, append-only sequence of
// appointment rows addressed by ID. Records are never deleted.
type Ledger interface {
	Append(ctx context.Context, appt Appointment) (ID, error)

	// ReadRange returns the records from..to inclusive, in ledger order.
	// A zero from starts at the first record; a zero to reads to the end.
	ReadRange(ctx context.Context, from, to ID) ([]Record, error)

	// UpdateRange rewrites every field of the records from..to with appts,
	// which must hold one appointment per record in the range.
	UpdateRange(ctx context.Context, from, to ID, appts []Appointment) error
}
