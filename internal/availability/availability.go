// Package availability decides whether a rental interval may be booked
// against a car's existing reservations.
package availability

import (
	"fmt"
	"time"

	apperrors "carrental/internal/errors"
)

// Interval is a reservation window. Bookings treat it as half-open, so an
// interval ending exactly when another begins does not collide with it.
type Interval struct {
	From time.Time `json:"from" db:"time_from"`
	To   time.Time `json:"to" db:"time_to"`
}

// Validate rejects intervals whose start is not strictly before their end.
func (i Interval) Validate() error {
	if !i.From.Before(i.To) {
		return apperrors.ErrInvalidInterval
	}
	return nil
}

// Overlaps reports whether the two intervals share any instant.
func (i Interval) Overlaps(other Interval) bool {
	return i.From.Before(other.To) && i.To.After(other.From)
}

// Equal compares instants, ignoring location.
func (i Interval) Equal(other Interval) bool {
	return i.From.Equal(other.From) && i.To.Equal(other.To)
}

func (i Interval) Duration() time.Duration {
	return i.To.Sub(i.From)
}

// IsAvailable reports whether candidate conflicts with none of existing.
func IsAvailable(existing []Interval, candidate Interval) bool {
	for _, e := range existing {
		if candidate.Overlaps(e) {
			return false
		}
	}
	return true
}

// Conflicts returns every existing interval the candidate overlaps.
func Conflicts(existing []Interval, candidate Interval) []Interval {
	var out []Interval
	for _, e := range existing {
		if candidate.Overlaps(e) {
			out = append(out, e)
		}
	}
	return out
}

// Check validates candidate and then runs the conflict check.
func Check(existing []Interval, candidate Interval) error {
	if err := candidate.Validate(); err != nil {
		return err
	}
	conflicts := Conflicts(existing, candidate)
	if len(conflicts) > 0 {
		return fmt.Errorf("%w: overlaps %s - %s", apperrors.ErrSlotConflict,
			conflicts[0].From.UTC().Format(time.RFC3339), conflicts[0].To.UTC().Format(time.RFC3339))
	}
	return nil
}

// Remove drops the first interval equal to target. The input slice is not
// modified.
func Remove(existing []Interval, target Interval) []Interval {
	out := make([]Interval, 0, len(existing))
	removed := false
	for _, e := range existing {
		if !removed && e.Equal(target) {
			removed = true
			continue
		}
		out = append(out, e)
	}
	return out
}
