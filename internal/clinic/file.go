package clinic

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed clinic.yaml
var defaultFile []byte

// Setup is everything the scheduler needs to know about the clinic itself.
type Setup struct {
	Catalog *Catalog
	Grid    *Grid
	Policy  PolicyConfig
}

type file struct {
	Practitioners []struct {
		ID        string `yaml:"id"`
		Name      string `yaml:"name"`
		Specialty string `yaml:"specialty"`
	} `yaml:"practitioners"`
	Services []struct {
		ID           string `yaml:"id"`
		Name         string `yaml:"name"`
		Practitioner string `yaml:"practitioner"`
		Kinds        []struct {
			ID       string `yaml:"id"`
			Name     string `yaml:"name"`
			Duration int    `yaml:"duration"`
		} `yaml:"kinds"`
	} `yaml:"services"`
	Periods []struct {
		Name   string   `yaml:"name"`
		Starts []string `yaml:"starts"`
		End    string   `yaml:"end"`
	} `yaml:"periods"`
	Holidays  []string `yaml:"holidays"`
	Saturdays struct {
		Rule     string   `yaml:"rule"`
		Closures []string `yaml:"closures"`
	} `yaml:"saturdays"`
	Leaves []struct {
		Practitioner string `yaml:"practitioner"`
		From         string `yaml:"from"`
		To           string `yaml:"to"`
	} `yaml:"leaves"`
}

// Default returns the built-in clinic setup.
func Default() (*Setup, error) {
	return Parse(defaultFile)
}

// Load reads a clinic setup from path, or the built-in one when path is empty.
func Load(path string) (*Setup, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read clinic file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Setup, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode clinic file: %w", err)
	}

	practitioners := make([]Practitioner, 0, len(f.Practitioners))
	for _, p := range f.Practitioners {
		practitioners = append(practitioners, Practitioner{ID: p.ID, Name: p.Name, Specialty: p.Specialty})
	}

	services := make([]Service, 0, len(f.Services))
	for _, s := range f.Services {
		svc := Service{ID: s.ID, Name: s.Name, PractitionerID: s.Practitioner}
		for _, k := range s.Kinds {
			svc.Kinds = append(svc.Kinds, AppointmentKind{ID: k.ID, Name: k.Name, DurationMinutes: k.Duration})
		}
		services = append(services, svc)
	}

	catalog, err := NewCatalog(practitioners, services)
	if err != nil {
		return nil, err
	}

	periods := make([]PeriodWindow, 0, len(f.Periods))
	for _, p := range f.Periods {
		w := PeriodWindow{Name: Period(p.Name)}
		for _, s := range p.Starts {
			t, err := ParseTimeOfDay(s)
			if err != nil {
				return nil, fmt.Errorf("period %s: %w", p.Name, err)
			}
			w.Starts = append(w.Starts, t)
		}
		if w.End, err = ParseTimeOfDay(p.End); err != nil {
			return nil, fmt.Errorf("period %s end: %w", p.Name, err)
		}
		periods = append(periods, w)
	}

	grid, err := NewGrid(periods...)
	if err != nil {
		return nil, err
	}

	policy := PolicyConfig{Saturdays: SaturdayRule(f.Saturdays.Rule)}
	if policy.Saturdays == "" {
		policy.Saturdays = SaturdaysClosed
	}
	if !policy.Saturdays.Valid() {
		return nil, fmt.Errorf("unknown saturday rule %q", f.Saturdays.Rule)
	}
	if policy.Holidays, err = parseDates(f.Holidays); err != nil {
		return nil, fmt.Errorf("holidays: %w", err)
	}
	if policy.SaturdayClosures, err = parseDates(f.Saturdays.Closures); err != nil {
		return nil, fmt.Errorf("saturday closures: %w", err)
	}
	for _, l := range f.Leaves {
		who, err := catalog.Practitioner(l.Practitioner)
		if err != nil {
			return nil, fmt.Errorf("leave: %w", err)
		}
		from, err := ParseDate(l.From)
		if err != nil {
			return nil, fmt.Errorf("leave for %s: %w", l.Practitioner, err)
		}
		to, err := ParseDate(l.To)
		if err != nil {
			return nil, fmt.Errorf("leave for %s: %w", l.Practitioner, err)
		}
		if to.Before(from) {
			return nil, fmt.Errorf("leave for %s ends before it starts", l.Practitioner)
		}
		policy.Leaves = append(policy.Leaves, Leave{PractitionerID: who.ID, From: from, To: to})
	}

	return &Setup{Catalog: catalog, Grid: grid, Policy: policy}, nil
}

func parseDates(in []string) ([]Date, error) {
	out := make([]Date, 0, len(in))
	for _, s := range in {
		d, err := ParseDate(s)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
