package daterange

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DayLayout is the wire format for calendar days.
const DayLayout = "2006-01-02"

const oneDay = 24 * time.Hour

var (
	ErrInvalidRange = errors.New("daterange: end must not be before start")
	ErrInvalidDay   = errors.New("daterange: invalid day")
)

// DateRange is an inclusive interval of calendar days [Start, End].
// Both bounds are truncated to UTC midnight.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func New(start, end time.Time) (DateRange, error) {
	dr := DateRange{Start: Truncate(start), End: Truncate(end)}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// Must panics on invalid input; meant for fixtures and tests.
func Must(start, end time.Time) DateRange {
	dr, err := New(start, end)
	if err != nil {
		panic(err)
	}
	return dr
}

// Parse builds a range from two YYYY-MM-DD strings.
func Parse(start, end string) (DateRange, error) {
	s, err := ParseDay(start)
	if err != nil {
		return DateRange{}, err
	}
	e, err := ParseDay(end)
	if err != nil {
		return DateRange{}, err
	}
	return New(s, e)
}

func ParseDay(value string) (time.Time, error) {
	t, err := time.Parse(DayLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDay, value)
	}
	return t, nil
}

// Truncate drops the time-of-day part, keeping the calendar day in UTC.
func Truncate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (dr DateRange) Validate() error {
	if dr.Start.IsZero() || dr.End.IsZero() {
		return ErrInvalidRange
	}
	if dr.End.Before(dr.Start) {
		return fmt.Errorf("%w: %s > %s", ErrInvalidRange, dr.Start.Format(DayLayout), dr.End.Format(DayLayout))
	}
	return nil
}

// Days counts both endpoints, so a single-day range lasts 1 day.
func (dr DateRange) Days() int {
	return int(dr.End.Sub(dr.Start)/oneDay) + 1
}

// Overlaps reports whether the ranges share at least one day.
func (dr DateRange) Overlaps(other DateRange) bool {
	return !dr.Start.After(other.End) && !other.Start.After(dr.End)
}

func Overlaps(a, b DateRange) bool {
	return a.Overlaps(b)
}

func (dr DateRange) Contains(other DateRange) bool {
	return !other.Start.Before(dr.Start) && !other.End.After(dr.End)
}

func (dr DateRange) ContainsDate(t time.Time) bool {
	t = Truncate(t)
	return !t.Before(dr.Start) && !t.After(dr.End)
}

// Extend pushes the end forward by the given number of days.
func (dr DateRange) Extend(days int) DateRange {
	if days <= 0 {
		return dr
	}
	return DateRange{Start: dr.Start, End: dr.End.AddDate(0, 0, days)}
}

// InPast reports whether the whole range lies before the day of now.
func (dr DateRange) InPast(now time.Time) bool {
	return dr.End.Before(Truncate(now))
}

// StartsBefore reports whether the range begins before the day of now.
func (dr DateRange) StartsBefore(now time.Time) bool {
	return dr.Start.Before(Truncate(now))
}

func (dr DateRange) Equal(other DateRange) bool {
	return dr.Start.Equal(other.Start) && dr.End.Equal(other.End)
}

func (dr DateRange) String() string {
	return dr.Start.Format(DayLayout) + ".." + dr.End.Format(DayLayout)
}
