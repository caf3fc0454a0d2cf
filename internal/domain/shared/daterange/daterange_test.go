package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNew_RejectsEndBeforeStart(t *testing.T) {
	_, err := New(day("2025-01-12"), day("2025-01-10"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = New(time.Time{}, day("2025-01-10"))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestNew_TruncatesToCalendarDays(t *testing.T) {
	start := time.Date(2025, 1, 10, 18, 30, 0, 0, time.UTC)
	end := time.Date(2025, 1, 12, 1, 0, 0, 0, time.UTC)
	dr, err := New(start, end)
	require.NoError(t, err)
	assert.Equal(t, day("2025-01-10"), dr.Start)
	assert.Equal(t, day("2025-01-12"), dr.End)
	assert.Equal(t, 3, dr.Days())
}

func TestDays_SingleDay(t *testing.T) {
	dr, err := New(day("2025-03-01"), day("2025-03-01"))
	require.NoError(t, err)
	assert.Equal(t, 1, dr.Days())
	assert.True(t, dr.Overlaps(dr))
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name string
		a, b DateRange
		want bool
	}{
		{"disjoint", Must(day("2025-01-01"), day("2025-01-03")), Must(day("2025-01-05"), day("2025-01-06")), false},
		{"shared endpoint", Must(day("2025-01-01"), day("2025-01-03")), Must(day("2025-01-03"), day("2025-01-06")), true},
		{"adjacent days", Must(day("2025-01-01"), day("2025-01-03")), Must(day("2025-01-04"), day("2025-01-06")), false},
		{"contained", Must(day("2025-01-01"), day("2025-01-10")), Must(day("2025-01-04"), day("2025-01-06")), true},
		{"identical single day", Must(day("2025-01-04"), day("2025-01-04")), Must(day("2025-01-04"), day("2025-01-04")), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overlaps(tc.a, tc.b))
			assert.Equal(t, Overlaps(tc.a, tc.b), Overlaps(tc.b, tc.a), "overlap must be symmetric")
		})
	}
}

func TestParse(t *testing.T) {
	dr, err := Parse("2025-01-10", " 2025-01-12")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-10..2025-01-12", dr.String())

	_, err = Parse("2025/01/10", "2025-01-12")
	assert.ErrorIs(t, err, ErrInvalidDay)
}

func TestExtendAndContains(t *testing.T) {
	dr := Must(day("2025-01-10"), day("2025-01-12"))
	ext := dr.Extend(1)
	assert.Equal(t, day("2025-01-13"), ext.End)
	assert.True(t, ext.Contains(dr))
	assert.False(t, dr.Contains(ext))
	assert.True(t, dr.ContainsDate(time.Date(2025, 1, 12, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, dr, dr.Extend(0))
}

func TestInPast(t *testing.T) {
	now := time.Date(2025, 1, 11, 9, 0, 0, 0, time.UTC)
	assert.True(t, Must(day("2025-01-01"), day("2025-01-10")).InPast(now))
	assert.False(t, Must(day("2025-01-01"), day("2025-01-11")).InPast(now))
	assert.True(t, Must(day("2025-01-10"), day("2025-01-12")).StartsBefore(now))
}
