package loyalty

import (
	"fmt"
	"strings"
	"time"
)

// Badge is a named achievement. An account holds each name at most once.
type Badge struct {
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	EarnedAt    time.Time `json:"earned_at" db:"earned_at"`
}

// BadgePolicy controls when a booking milestone awards its badge.
type BadgePolicy string

const (
	// BadgePolicyExact awards a badge only on the booking that makes the
	// count equal to the milestone.
	BadgePolicyExact BadgePolicy = "exact"
	// BadgePolicyReached awards every milestone at or below the count that
	// the account does not hold yet.
	BadgePolicyReached BadgePolicy = "reached"
)

// ParseBadgePolicy accepts "exact" or "reached". Empty means exact.
func ParseBadgePolicy(s string) (BadgePolicy, error) {
	switch BadgePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", BadgePolicyExact:
		return BadgePolicyExact, nil
	case BadgePolicyReached:
		return BadgePolicyReached, nil
	}
	return "", fmt.Errorf("unknown badge policy %q", s)
}

type milestone struct {
	bookings    int
	name        string
	description string
}

var milestones = []milestone{
	{1, "First Ride", "Completed your first booking"},
	{10, "Frequent Rider", "Completed 10 bookings"},
	{50, "Road Warrior", "Completed 50 bookings"},
}

// HasBadge reports whether the account already holds a badge with name.
func (a *Account) HasBadge(name string) bool {
	for _, b := range a.Badges {
		if b.Name == name {
			return true
		}
	}
	return false
}

// awardBadges appends the badges due for the current booking count and
// returns only the new ones.
func awardBadges(a *Account, policy BadgePolicy, now time.Time) []Badge {
	var earned []Badge
	for _, m := range milestones {
		due := a.TotalBookings == m.bookings
		if policy == BadgePolicyReached {
			due = a.TotalBookings >= m.bookings
		}
		if !due || a.HasBadge(m.name) {
			continue
		}
		b := Badge{Name: m.name, Description: m.description, EarnedAt: now}
		a.Badges = append(a.Badges, b)
		earned = append(earned, b)
	}
	return earned
}
