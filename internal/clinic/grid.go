package clinic

import (
	"errors"
	"fmt"
)

// SlotLength is the spacing between consecutive start times in the grid.
const SlotLength = 30

type Period string

const (
	Morning   Period = "morning"
	Afternoon Period = "afternoon"
)

var ErrInvalidGrid = errors.New("invalid slot grid")

// PeriodWindow is one half-day working window: its bookable start times and the
// hard boundary no booking may run past.
type PeriodWindow struct {
	Name   Period
	Starts []TimeOfDay
	End    TimeOfDay
}

// Slot is a catalogue entry, not bound to any date.
type Slot struct {
	Start     TimeOfDay
	Label     string
	Period    Period
	PeriodEnd TimeOfDay
}

// Fits reports whether a booking of the given length starting at this slot ends
// on or before the period boundary.
func (s Slot) Fits(durationMinutes int) bool {
	return s.Start.Add(durationMinutes) <= s.PeriodEnd
}

// Grid is the static catalogue of slots, ordered by start time.
type Grid struct {
	slots []Slot
	index map[TimeOfDay]int
}

func NewGrid(periods ...PeriodWindow) (*Grid, error) {
	if len(periods) == 0 {
		return nil, fmt.Errorf("%w: no periods", ErrInvalidGrid)
	}

	g := &Grid{index: make(map[TimeOfDay]int)}
	var last TimeOfDay = -1
	for _, p := range periods {
		if p.Name == "" {
			return nil, fmt.Errorf("%w: unnamed period", ErrInvalidGrid)
		}
		if len(p.Starts) == 0 {
			return nil, fmt.Errorf("%w: period %s has no start times", ErrInvalidGrid, p.Name)
		}
		for _, start := range p.Starts {
			if start <= last {
				return nil, fmt.Errorf("%w: %s is not after %s", ErrInvalidGrid, start, last)
			}
			if int(start)%SlotLength != 0 {
				return nil, fmt.Errorf("%w: %s is not on a %d-minute boundary", ErrInvalidGrid, start, SlotLength)
			}
			if start >= p.End {
				return nil, fmt.Errorf("%w: %s starts at or after the %s boundary %s", ErrInvalidGrid, start, p.Name, p.End)
			}
			g.index[start] = len(g.slots)
			g.slots = append(g.slots, Slot{
				Start:     start,
				Label:     start.Label(),
				Period:    p.Name,
				PeriodEnd: p.End,
			})
			last = start
		}
		last = p.End - 1
	}
	return g, nil
}

// Slots returns a copy of every slot in ascending order.
func (g *Grid) Slots() []Slot {
	out := make([]Slot, len(g.slots))
	copy(out, g.slots)
	return out
}

func (g *Grid) Lookup(start TimeOfDay) (Slot, bool) {
	i, ok := g.index[start]
	if !ok {
		return Slot{}, false
	}
	return g.slots[i], true
}
