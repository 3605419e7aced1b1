package reservation

import "time"

// Interval is the half-open time range [Start, End) a reservation occupies
// on a space's calendar.
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval builds an interval without validating it; call IsValid before
// trusting the range.
func NewInterval(start, end time.Time) Interval {
	return Interval{Start: start, End: end}
}

// IsValid reports whether the interval has positive length.
func (i Interval) IsValid() bool {
	return i.End.After(i.Start)
}

// Duration returns the interval length.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Overlaps reports whether two half-open intervals conflict. Back-to-back
// intervals, where one ends exactly when the other starts, do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}
