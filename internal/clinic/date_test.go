package clinic

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want Date
	}{
		{"12/02/2026", NewDate(2026, time.February, 12)},
		{"12/2/2026", NewDate(2026, time.February, 12)},
		{"1/3/2026", NewDate(2026, time.March, 1)},
		{" 05/03/2026 ", NewDate(2026, time.March, 5)},
		{"2026-03-05", NewDate(2026, time.March, 5)},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	for _, bad := range []string{"", "2026", "31/02/2026", "00/01/2026", "12/13/2026", "aa/bb/cccc", "12/02/26"} {
		_, err := ParseDate(bad)
		assert.ErrorIs(t, err, ErrInvalidDate, bad)
	}
}

func TestDateFormatting(t *testing.T) {
	d := NewDate(2026, time.March, 5)
	assert.Equal(t, "05/03/2026", d.String())
	assert.Equal(t, "2026-03-05", d.ISO())
	assert.Equal(t, time.Thursday, d.Weekday())
	assert.Equal(t, NewDate(2026, time.March, 1), NewDate(2026, time.February, 28).AddDays(1))
	assert.Equal(t, "", Date{}.String())
	assert.True(t, Date{}.IsZero())

	bogota := time.FixedZone("COT", -5*3600)
	at := d.In(bogota, MustParseTimeOfDay("14:30"))
	assert.Equal(t, "2026-03-05T14:30:00-05:00", at.Format(time.RFC3339))
}

func TestDateJSON(t *testing.T) {
	raw, err := json.Marshal(NewDate(2026, time.March, 5))
	require.NoError(t, err)
	assert.JSONEq(t, `"05/03/2026"`, string(raw))

	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"5/3/2026"`), &d))
	assert.Equal(t, NewDate(2026, time.March, 5), d)
	assert.Error(t, json.Unmarshal([]byte(`"not a date"`), &d))
}

func TestParseTimeOfDay(t *testing.T) {
	cases := map[string]TimeOfDay{
		"08:00":    8 * 60,
		"8:00":     8 * 60,
		"9:30":     9*60 + 30,
		"14:30":    14*60 + 30,
		"09:00:00": 9 * 60,
	}
	for in, want := range cases {
		got, err := ParseTimeOfDay(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "8", "24:00", "8:5", "8:60", "ab:cd"} {
		_, err := ParseTimeOfDay(bad)
		assert.ErrorIs(t, err, ErrInvalidTime, bad)
	}
}

func TestTimeOfDayLabels(t *testing.T) {
	assert.Equal(t, "08:00", MustParseTimeOfDay("8:00").String())
	assert.Equal(t, "8:00 AM", MustParseTimeOfDay("08:00").Label())
	assert.Equal(t, "11:30 AM", MustParseTimeOfDay("11:30").Label())
	assert.Equal(t, "12:00 PM", MustParseTimeOfDay("12:00").Label())
	assert.Equal(t, "2:30 PM", MustParseTimeOfDay("14:30").Label())
	assert.Equal(t, "12:00 AM", MustParseTimeOfDay("00:00").Label())
	assert.Equal(t, MustParseTimeOfDay("10:00"), MustParseTimeOfDay("08:30").Add(90))
}
