package appointment

import (
	"errors"
	"fmt"
	"time"

	"github.com/hackgods/clinic-self-booking/internal/clinic"
)

var ErrInvalidTransition = errors.New("invalid status transition")

var transitions = map[Status][]Status{
	StatusScheduled:   {StatusRescheduled, StatusCancelled, StatusCompleted},
	StatusRescheduled: {StatusRescheduled, StatusCancelled, StatusCompleted},
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Reschedule moves a to a new date and start, carrying every other field forward.
// The end is recomputed from the original duration unless end is non-nil.
func Reschedule(a Appointment, date clinic.Date, start clinic.TimeOfDay, end *clinic.TimeOfDay, fallback int, now time.Time) (Appointment, error) {
	if !a.Status.CanTransitionTo(StatusRescheduled) {
		return Appointment{}, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, a.Status, StatusRescheduled)
	}

	duration := a.BookedDuration(fallback)
	next := a
	next.Date = date
	next.Start = start
	if end != nil {
		e := *end
		next.End = &e
	} else {
		next.End = endOf(start, duration)
	}
	next.Status = StatusRescheduled
	next.LastAction = ActionRescheduled
	next.UpdatedAt = now
	return next, nil
}

// Cancel releases the slot. Date, time and duration are kept for history.
func Cancel(a Appointment, now time.Time) (Appointment, error) {
	if !a.Status.CanTransitionTo(StatusCancelled) {
		return Appointment{}, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, a.Status, StatusCancelled)
	}

	next := a
	next.Status = StatusCancelled
	next.LastAction = ActionCancelled
	next.UpdatedAt = now
	return next, nil
}
