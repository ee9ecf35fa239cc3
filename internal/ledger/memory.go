package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/hackgods/clinic-self-booking/internal/appointment"
)

// MemoryLedger keeps rows in process. It numbers rows like the sheet does,
// starting at FirstRow.
type MemoryLedger struct {
	mu   sync.RWMutex
	rows [][]string
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

func (l *MemoryLedger) Append(_ context.Context, appt appointment.Appointment) (appointment.ID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rows = append(l.rows, EncodeRow(appt))
	return idOf(len(l.rows) + FirstRow - 1), nil
}

func (l *MemoryLedger) ReadRange(_ context.Context, from, to appointment.ID) ([]appointment.Record, error) {
	start, end, err := bounds(from, to)
	if err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	last := len(l.rows) + FirstRow - 1
	if !from.IsZero() && start > last {
		return nil, fmt.Errorf("%w: row %d", appointment.ErrAppointmentNotFound, start)
	}
	if end == 0 || end > last {
		end = last
	}

	out := make([]appointment.Record, 0, end-start+1)
	for row := start; row <= end; row++ {
		out = append(out, appointment.Record{
			ID:          idOf(row),
			Appointment: DecodeRow(l.rows[row-FirstRow]),
		})
	}
	return out, nil
}

func (l *MemoryLedger) UpdateRange(_ context.Context, from, to appointment.ID, appts []appointment.Appointment) error {
	if from.IsZero() || to.IsZero() {
		return fmt.Errorf("update needs a closed range")
	}
	start, end, err := bounds(from, to)
	if err != nil {
		return err
	}
	if len(appts) != end-start+1 {
		return fmt.Errorf("update of rows %d..%d needs %d appointments, got %d", start, end, end-start+1, len(appts))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if end > len(l.rows)+FirstRow-1 {
		return fmt.Errorf("%w: row %d", appointment.ErrAppointmentNotFound, end)
	}
	for i, a := range appts {
		row := start - FirstRow + i
		l.rows[row] = MergeRow(l.rows[row], a)
	}
	return nil
}

// AppendRows adds raw rows as they would appear in an imported sheet.
func (l *MemoryLedger) AppendRows(rows ...[]string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, r := range rows {
		l.rows = append(l.rows, append([]string(nil), r...))
	}
}

// Rows returns a copy of the raw cells, header excluded.
func (l *MemoryLedger) Rows() [][]string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([][]string, len(l.rows))
	for i, r := range l.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

func (l *MemoryLedger) Ping(context.Context) error { return nil }
