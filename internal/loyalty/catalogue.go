package loyalty

import (
	"fmt"
	"strings"
	"time"

	apperrors "carrental/internal/errors"
)

// Reward is an item customers can buy with points.
type Reward struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	PointsCost  int64  `json:"points_cost"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

var rewards = []Reward{
	{1, "10% Off Next Booking", 500, "Discount", "Get 10% off your next car rental"},
	{2, "Free Car Upgrade", 1000, "Upgrade", "Upgrade to the next car category for free"},
	{3, "Free Additional Driver", 300, "Service", "Add an additional driver at no cost"},
	{4, "Free GPS Device", 200, "Equipment", "Get a free GPS device for your rental"},
	{5, "25% Off Weekend Rental", 800, "Discount", "Save 25% on weekend bookings"},
	{6, "Priority Customer Support", 400, "Service", "Get priority support for 30 days"},
	{7, "Free Car Wash", 150, "Service", "Complimentary car wash service"},
	{8, "Late Return (2 hours free)", 350, "Time", "Return your car up to 2 hours late"},
}

// Rewards returns a copy of the reward catalogue.
func Rewards() []Reward {
	out := make([]Reward, len(rewards))
	copy(out, rewards)
	return out
}

func RewardByID(id int) (Reward, error) {
	for _, r := range rewards {
		if r.ID == id {
			return r, nil
		}
	}
	return Reward{}, fmt.Errorf("reward %d: %w", id, apperrors.ErrNotFound)
}

// Plan is a paid membership plan.
type Plan struct {
	Name                 string `json:"plan"`
	DiscountPercentage   int    `json:"discount_percentage"`
	FreeUpgrades         int    `json:"free_upgrades"`
	PrioritySupport      bool   `json:"priority_support"`
	FlexibleCancellation bool   `json:"flexible_cancellation"`
	DurationDays         int    `json:"duration_days"`
}

var plans = map[string]Plan{
	"monthly":   {Name: "Monthly", DiscountPercentage: 10, FreeUpgrades: 1, PrioritySupport: true, FlexibleCancellation: true, DurationDays: 30},
	"quarterly": {Name: "Quarterly", DiscountPercentage: 15, FreeUpgrades: 3, PrioritySupport: true, FlexibleCancellation: true, DurationDays: 90},
	"annual":    {Name: "Annual", DiscountPercentage: 25, FreeUpgrades: 12, PrioritySupport: true, FlexibleCancellation: true, DurationDays: 365},
}

// PlanByName looks a plan up case-insensitively.
func PlanByName(name string) (Plan, error) {
	p, ok := plans[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Plan{}, fmt.Errorf("%w: unknown plan %q", apperrors.ErrValidation, name)
	}
	return p, nil
}

// Subscription is the plan view of an account.
type Subscription struct {
	Plan
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// Subscribe puts the account on plan starting at now.
func (e *Engine) Subscribe(a *Account, plan Plan) Subscription {
	start := e.now().UTC()
	end := start.AddDate(0, 0, plan.DurationDays)
	name := plan.Name
	a.SubscriptionPlan = &name
	a.SubscriptionStart = &start
	a.SubscriptionEnd = &end
	a.UpdatedAt = start
	return Subscription{Plan: plan, StartDate: start, EndDate: end}
}

// ActiveSubscription returns the account's plan when it has not expired.
func (a *Account) ActiveSubscription(now time.Time) (Subscription, bool) {
	if a.SubscriptionPlan == nil || a.SubscriptionStart == nil || a.SubscriptionEnd == nil {
		return Subscription{}, false
	}
	if !now.Before(*a.SubscriptionEnd) {
		return Subscription{}, false
	}
	p, err := PlanByName(*a.SubscriptionPlan)
	if err != nil {
		return Subscription{}, false
	}
	return Subscription{Plan: p, StartDate: *a.SubscriptionStart, EndDate: *a.SubscriptionEnd}, true
}
