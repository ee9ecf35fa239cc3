package clinic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultGrid(t *testing.T) *Grid {
	t.Helper()
	setup, err := Default()
	require.NoError(t, err)
	return setup.Grid
}

func TestDefaultGridSlots(t *testing.T) {
	slots := defaultGrid(t).Slots()
	require.Len(t, slots, 15)

	assert.Equal(t, "08:00", slots[0].Start.String())
	assert.Equal(t, "8:00 AM", slots[0].Label)
	assert.Equal(t, Morning, slots[0].Period)
	assert.Equal(t, "11:30", slots[7].Start.String())
	assert.Equal(t, "12:00", slots[7].PeriodEnd.String())
	assert.Equal(t, "14:00", slots[8].Start.String())
	assert.Equal(t, Afternoon, slots[8].Period)
	assert.Equal(t, "17:00", slots[14].Start.String())
	assert.Equal(t, "18:00", slots[14].PeriodEnd.String())

	for i := 1; i < len(slots); i++ {
		assert.Less(t, slots[i-1].Start, slots[i].Start)
	}
}

func TestSlotFitsPeriodBoundary(t *testing.T) {
	g := defaultGrid(t)

	cases := []struct {
		start    string
		duration int
		fits     bool
	}{
		{"11:30", 30, true},
		{"11:30", 60, false},
		{"11:00", 60, true},
		{"11:00", 90, false},
		{"10:30", 90, true},
		{"10:00", 120, true},
		{"10:30", 120, false},
		{"17:00", 60, true},
		{"17:00", 90, false},
		{"16:00", 120, true},
		{"16:30", 120, false},
	}
	for _, tc := range cases {
		s, ok := g.Lookup(MustParseTimeOfDay(tc.start))
		require.True(t, ok, tc.start)
		assert.Equal(t, tc.fits, s.Fits(tc.duration), "%s + %d", tc.start, tc.duration)
	}
}

func TestGridLookupUnknownStart(t *testing.T) {
	g := defaultGrid(t)
	_, ok := g.Lookup(MustParseTimeOfDay("12:30"))
	assert.False(t, ok)
	_, ok = g.Lookup(MustParseTimeOfDay("08:15"))
	assert.False(t, ok)
}

func TestGridSlotsReturnsCopy(t *testing.T) {
	g := defaultGrid(t)
	s := g.Slots()
	s[0].Label = "changed"
	assert.Equal(t, "8:00 AM", g.Slots()[0].Label)
}

func TestNewGridValidation(t *testing.T) {
	at := MustParseTimeOfDay

	_, err := NewGrid()
	assert.ErrorIs(t, err, ErrInvalidGrid)

	_, err = NewGrid(PeriodWindow{Name: Morning, Starts: []TimeOfDay{at("09:00"), at("08:30")}, End: at("12:00")})
	assert.ErrorIs(t, err, ErrInvalidGrid, "descending")

	_, err = NewGrid(PeriodWindow{Name: Morning, Starts: []TimeOfDay{at("08:15")}, End: at("12:00")})
	assert.ErrorIs(t, err, ErrInvalidGrid, "misaligned")

	_, err = NewGrid(PeriodWindow{Name: Morning, Starts: []TimeOfDay{at("12:00")}, End: at("12:00")})
	assert.ErrorIs(t, err, ErrInvalidGrid, "start at boundary")

	_, err = NewGrid(
		PeriodWindow{Name: Morning, Starts: []TimeOfDay{at("08:00")}, End: at("12:00")},
		PeriodWindow{Name: Afternoon, Starts: []TimeOfDay{at("11:30")}, End: at("18:00")},
	)
	assert.ErrorIs(t, err, ErrInvalidGrid, "overlapping periods")
}
