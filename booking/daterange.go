package booking

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format used on the wire and on the command line.
const DateLayout = "2006-01-02"

// Day truncates t to its calendar date at midnight UTC. The zero time stays zero.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", s, err)
	}
	return t, nil
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and [bStart, bEnd) share
// any instant. A checkout on the same day as another stay's check-in is not an overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// DateRange is a stay [CheckIn, CheckOut) on calendar dates.
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// NewDateRange builds a range from two instants, truncated to calendar dates.
func NewDateRange(checkIn, checkOut time.Time) DateRange {
	return DateRange{CheckIn: Day(checkIn), CheckOut: Day(checkOut)}
}

// ParseDateRange parses two YYYY-MM-DD dates into a range. It does not check ordering.
func ParseDateRange(checkIn, checkOut string) (DateRange, error) {
	in, err := ParseDate(checkIn)
	if err != nil {
		return DateRange{}, err
	}
	out, err := ParseDate(checkOut)
	if err != nil {
		return DateRange{}, err
	}
	return NewDateRange(in, out), nil
}

// Valid reports whether both dates are set and the stay lasts at least one night.
func (r DateRange) Valid() bool {
	return !r.CheckIn.IsZero() && !r.CheckOut.IsZero() && Day(r.CheckOut).After(Day(r.CheckIn))
}

// Nights is the number of nights in the stay, never negative.
func (r DateRange) Nights() int {
	if r.CheckIn.IsZero() || r.CheckOut.IsZero() {
		return 0
	}
	n := int(Day(r.CheckOut).Sub(Day(r.CheckIn)).Hours() / 24)
	if n < 0 {
		return 0
	}
	return n
}

// Overlaps reports whether two stays conflict.
func (r DateRange) Overlaps(o DateRange) bool {
	return Overlaps(Day(r.CheckIn), Day(r.CheckOut), Day(o.CheckIn), Day(o.CheckOut))
}

func (r DateRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.CheckIn.Format(DateLayout), r.CheckOut.Format(DateLayout))
}
