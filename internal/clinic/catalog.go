package clinic

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// SupportedDurations is the fixed set of appointment lengths, in minutes.
var SupportedDurations = []int{30, 60, 90, 120}

var (
	ErrUnknownPractitioner = errors.New("unknown practitioner")
	ErrInvalidCatalog      = errors.New("invalid clinic catalog")
)

type Practitioner struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
}

// Matches reports whether ref names this practitioner by id or display name.
func (p Practitioner) Matches(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return false
	}
	return strings.EqualFold(ref, p.ID) || strings.EqualFold(ref, strings.TrimSpace(p.Name))
}

type AppointmentKind struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration"`
}

type Service struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	PractitionerID string            `json:"practitionerId"`
	Kinds          []AppointmentKind `json:"appointmentTypes"`
}

// Catalog is the immutable practitioner and service reference data.
type Catalog struct {
	practitioners []Practitioner
	services      []Service
}

func NewCatalog(practitioners []Practitioner, services []Service) (*Catalog, error) {
	if len(practitioners) == 0 {
		return nil, fmt.Errorf("%w: no practitioners", ErrInvalidCatalog)
	}

	seen := make(map[string]bool, len(practitioners))
	for _, p := range practitioners {
		if p.ID == "" || p.Name == "" {
			return nil, fmt.Errorf("%w: practitioner needs an id and a name", ErrInvalidCatalog)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("%w: duplicate practitioner %q", ErrInvalidCatalog, p.ID)
		}
		seen[p.ID] = true
	}

	for _, s := range services {
		if !seen[s.PractitionerID] {
			return nil, fmt.Errorf("%w: service %q references unknown practitioner %q", ErrInvalidCatalog, s.ID, s.PractitionerID)
		}
		if len(s.Kinds) == 0 {
			return nil, fmt.Errorf("%w: service %q has no appointment kinds", ErrInvalidCatalog, s.ID)
		}
		for _, k := range s.Kinds {
			if !SupportsDuration(k.DurationMinutes) {
				return nil, fmt.Errorf("%w: kind %q has unsupported duration %d", ErrInvalidCatalog, k.ID, k.DurationMinutes)
			}
		}
	}

	return &Catalog{
		practitioners: slices.Clone(practitioners),
		services:      slices.Clone(services),
	}, nil
}

func SupportsDuration(minutes int) bool {
	return slices.Contains(SupportedDurations, minutes)
}

func (c *Catalog) Practitioners() []Practitioner { return slices.Clone(c.practitioners) }
func (c *Catalog) Services() []Service           { return slices.Clone(c.services) }

// Practitioner resolves ref by id or display name, case-insensitively.
func (c *Catalog) Practitioner(ref string) (Practitioner, error) {
	for _, p := range c.practitioners {
		if p.Matches(ref) {
			return p, nil
		}
	}
	return Practitioner{}, fmt.Errorf("%w: %q", ErrUnknownPractitioner, ref)
}

func (c *Catalog) ServicesFor(practitionerID string) []Service {
	var out []Service
	for _, s := range c.services {
		if s.PractitionerID == practitionerID {
			out = append(out, s)
		}
	}
	return out
}
