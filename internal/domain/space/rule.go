package space

import "fmt"

const minutesPerDay = 24 * 60

// AvailabilityRule is one weekly opening window for a space. Weekday uses
// the Monday=0..Sunday=6 convention; opening and closing times are minutes
// from midnight, with 1440 meaning end of day.
type AvailabilityRule struct {
	Weekday  int `json:"weekday"`
	OpensAt  int `json:"opens_at"`
	ClosesAt int `json:"closes_at"`
}

// Validate checks the rule's field ranges.
func (r AvailabilityRule) Validate() error {
	if r.Weekday < 0 || r.Weekday > 6 {
		return fmt.Errorf("weekday must be between 0 (Monday) and 6 (Sunday)")
	}
	if r.OpensAt < 0 || r.OpensAt >= minutesPerDay {
		return fmt.Errorf("opens_at must be between 0 and %d", minutesPerDay-1)
	}
	if r.ClosesAt <= 0 || r.ClosesAt > minutesPerDay {
		return fmt.Errorf("closes_at must be between 1 and %d", minutesPerDay)
	}
	if r.OpensAt >= r.ClosesAt {
		return fmt.Errorf("closes_at must be after opens_at")
	}
	return nil
}

// AllDay returns a rule spanning the whole given weekday.
func AllDay(weekday int) AvailabilityRule {
	return AvailabilityRule{Weekday: weekday, OpensAt: 0, ClosesAt: minutesPerDay}
}
