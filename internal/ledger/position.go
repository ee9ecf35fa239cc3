package ledger

import (
	"fmt"
	"strconv"

	"github.com/hackgods/clinic-self-booking/internal/appointment"
)

// Rows are addressed by their one-based position; the header occupies row 1.

func idOf(row int) appointment.ID {
	return appointment.NewID(strconv.Itoa(row))
}

func rowOf(id appointment.ID) (int, error) {
	n, err := strconv.Atoi(id.String())
	if err != nil || n < FirstRow {
		return 0, fmt.Errorf("%w: %q", appointment.ErrAppointmentNotFound, id.String())
	}
	return n, nil
}

// bounds resolves a from..to pair of ids into rows. A zero from is FirstRow;
// a zero to is returned as 0, meaning open ended.
func bounds(from, to appointment.ID) (int, int, error) {
	start := FirstRow
	if !from.IsZero() {
		n, err := rowOf(from)
		if err != nil {
			return 0, 0, err
		}
		start = n
	}
	end := 0
	if !to.IsZero() {
		n, err := rowOf(to)
		if err != nil {
			return 0, 0, err
		}
		if n < start {
			return 0, 0, fmt.Errorf("range end %d is before start %d", n, start)
		}
		end = n
	}
	return start, end, nil
}
