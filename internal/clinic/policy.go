package clinic

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrDateInPast       = errors.New("date is in the past")
	ErrSunday           = errors.New("the clinic is closed on Sundays")
	ErrHoliday          = errors.New("date is a public holiday")
	ErrSaturdayClosed   = errors.New("the clinic is closed on this Saturday")
	ErrPractitionerAway = errors.New("practitioner is not available on this date")
)

// MaxBookableWindow caps BookableDates ranges.
const MaxBookableWindow = 92

// SaturdayRule selects how Saturdays are treated.
type SaturdayRule string

const (
	// SaturdaysClosed disallows every Saturday.
	SaturdaysClosed SaturdayRule = "closed"
	// SaturdaysAlternating disallows only the Saturdays listed as closures.
	SaturdaysAlternating SaturdayRule = "alternating"
	SaturdaysOpen        SaturdayRule = "open"
)

func (r SaturdayRule) Valid() bool {
	switch r {
	case SaturdaysClosed, SaturdaysAlternating, SaturdaysOpen:
		return true
	}
	return false
}

// Leave is an inclusive range of days a practitioner does not work.
type Leave struct {
	PractitionerID string
	From           Date
	To             Date
}

func (l Leave) Covers(d Date) bool {
	return !d.Before(l.From) && !d.After(l.To)
}

type PolicyConfig struct {
	Holidays         []Date
	Saturdays        SaturdayRule
	SaturdayClosures []Date
	Leaves           []Leave
}

// Policy decides which calendar days can be booked at all, independent of slots.
type Policy struct {
	holidays         map[Date]struct{}
	saturdays        SaturdayRule
	saturdayClosures map[Date]struct{}
	leaves           []Leave
	loc              *time.Location
	now              func() time.Time
}

// NewPolicy builds a policy evaluated in loc. now defaults to time.Now.
func NewPolicy(cfg PolicyConfig, loc *time.Location, now func() time.Time) *Policy {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	if !cfg.Saturdays.Valid() {
		cfg.Saturdays = SaturdaysClosed
	}

	p := &Policy{
		holidays:         make(map[Date]struct{}, len(cfg.Holidays)),
		saturdays:        cfg.Saturdays,
		saturdayClosures: make(map[Date]struct{}, len(cfg.SaturdayClosures)),
		leaves:           append([]Leave(nil), cfg.Leaves...),
		loc:              loc,
		now:              now,
	}
	for _, h := range cfg.Holidays {
		p.holidays[h] = struct{}{}
	}
	for _, s := range cfg.SaturdayClosures {
		p.saturdayClosures[s] = struct{}{}
	}
	return p
}

// Today is the current calendar day in the clinic's offset.
func (p *Policy) Today() Date {
	return DateOf(p.now().In(p.loc))
}

func (p *Policy) Location() *time.Location { return p.loc }

func (p *Policy) IsDateBookable(d Date, practitionerID string) bool {
	return p.Check(d, practitionerID) == nil
}

// Check returns the first rule that disqualifies d, or nil.
// An empty practitionerID skips the leave rule.
func (p *Policy) Check(d Date, practitionerID string) error {
	if d.Before(p.Today()) {
		return ErrDateInPast
	}

	wd := d.Weekday()
	if wd == time.Sunday {
		return ErrSunday
	}
	if _, ok := p.holidays[d]; ok {
		return ErrHoliday
	}
	if wd == time.Saturday {
		switch p.saturdays {
		case SaturdaysClosed:
			return ErrSaturdayClosed
		case SaturdaysAlternating:
			if _, ok := p.saturdayClosures[d]; ok {
				return ErrSaturdayClosed
			}
		}
	}

	if practitionerID != "" {
		for _, l := range p.leaves {
			if l.PractitionerID == practitionerID && l.Covers(d) {
				return ErrPractitionerAway
			}
		}
	}
	return nil
}

// BookableDates lists the eligible days in [from, to].
func (p *Policy) BookableDates(from, to Date, practitionerID string) ([]Date, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("range end %s is before start %s", to, from)
	}
	if from.AddDays(MaxBookableWindow).Before(to) {
		return nil, fmt.Errorf("range exceeds %d days", MaxBookableWindow)
	}

	var out []Date
	for d := from; !d.After(to); d = d.AddDays(1) {
		if p.Check(d, practitionerID) == nil {
			out = append(out, d)
		}
	}
	return out, nil
}
