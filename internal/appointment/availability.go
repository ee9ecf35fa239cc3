package appointment

import (
	"errors"

	"github.com/hackgods/clinic-self-booking/internal/clinic"
)

// DefaultLegacyDuration is assumed for rows that record neither an end time nor a duration.
const DefaultLegacyDuration = 60

var (
	ErrSlotTaken        = errors.New("slot is no longer available")
	ErrExceedsPeriod    = errors.New("appointment would run past the end of its period")
	ErrNotInGrid        = errors.New("start time is not a bookable slot")
	ErrPatientHasActive = errors.New("patient already has an active appointment")
)

type SlotAvailability struct {
	Start     clinic.TimeOfDay `json:"startTime"`
	Label     string           `json:"label"`
	Period    clinic.Period    `json:"period"`
	Available bool             `json:"available"`
}

// Engine computes slot availability from a ledger snapshot. It holds no state
// between calls.
type Engine struct {
	grid     *clinic.Grid
	fallback int
}

// NewEngine builds an engine over grid. fallback is the duration assumed for
// legacy rows with neither end time nor duration; zero selects DefaultLegacyDuration.
func NewEngine(grid *clinic.Grid, fallback int) *Engine {
	if fallback <= 0 {
		fallback = DefaultLegacyDuration
	}
	return &Engine{grid: grid, fallback: fallback}
}

func (e *Engine) Grid() *clinic.Grid    { return e.grid }
func (e *Engine) FallbackDuration() int { return e.fallback }

// Overlaps reports whether [a, b) and [c, d) intersect. Touching ends do not.
func Overlaps(a, b, c, d clinic.TimeOfDay) bool {
	return a < d && c < b
}

// Compute marks every grid slot available or not for one practitioner, date
// and duration.
func (e *Engine) Compute(date clinic.Date, practitioner clinic.Practitioner, duration int, snapshot []Record) []SlotAvailability {
	busy := e.blocking(date, practitioner, snapshot, ID{})

	slots := e.grid.Slots()
	out := make([]SlotAvailability, 0, len(slots))
	for _, slot := range slots {
		out = append(out, SlotAvailability{
			Start:     slot.Start,
			Label:     slot.Label,
			Period:    slot.Period,
			Available: slot.Fits(duration) && !conflicts(slot.Start, slot.Start.Add(duration), busy),
		})
	}
	return out
}

// CheckSlot re-derives availability for a single slot. The record named by
// exclude is ignored so an appointment can be moved within its own interval.
func (e *Engine) CheckSlot(date clinic.Date, practitioner clinic.Practitioner, start clinic.TimeOfDay, duration int, snapshot []Record, exclude ID) error {
	slot, ok := e.grid.Lookup(start)
	if !ok {
		return ErrNotInGrid
	}
	if !slot.Fits(duration) {
		return ErrExceedsPeriod
	}
	if conflicts(start, start.Add(duration), e.blocking(date, practitioner, snapshot, exclude)) {
		return ErrSlotTaken
	}
	return nil
}

type interval struct{ start, end clinic.TimeOfDay }

func (e *Engine) blocking(date clinic.Date, practitioner clinic.Practitioner, snapshot []Record, exclude ID) []interval {
	var out []interval
	for _, r := range snapshot {
		if !exclude.IsZero() && r.ID == exclude {
			continue
		}
		if !r.Status.IsActive() || r.Date != date || !practitioner.Matches(r.Practitioner) {
			continue
		}
		start, end := r.Interval(e.fallback)
		out = append(out, interval{start: start, end: end})
	}
	return out
}

func conflicts(a, b clinic.TimeOfDay, busy []interval) bool {
	for _, iv := range busy {
		if Overlaps(a, b, iv.start, iv.end) {
			return true
		}
	}
	return false
}
