// Package loyalty implements the points, tier and badge rules applied to a
// customer's account when bookings are confirmed and rewards are redeemed.
// It is pure: persistence and locking belong to the repository layer.
package loyalty

import (
	"fmt"
	"math"
	"time"

	apperrors "carrental/internal/errors"
	"carrental/internal/utils"
)

const (
	ReferrerBonus int64 = 500
	ReferredBonus int64 = 200

	referralPrefix = "REF"
	referralLength = 9
)

// Account is the per-user loyalty state.
type Account struct {
	UserID            string       `json:"user_id" db:"user_id"`
	Points            int64        `json:"points" db:"points"`
	TotalBookings     int          `json:"total_bookings" db:"total_bookings"`
	TotalSpent        float64      `json:"total_spent" db:"total_spent"`
	Tier              Tier         `json:"tier" db:"tier"`
	ReferralCode      string       `json:"referral_code" db:"referral_code"`
	ReferredBy        *string      `json:"referred_by,omitempty" db:"referred_by"`
	SubscriptionPlan  *string      `json:"-" db:"subscription_plan"`
	SubscriptionStart *time.Time   `json:"-" db:"subscription_start"`
	SubscriptionEnd   *time.Time   `json:"-" db:"subscription_end"`
	CreatedAt         time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at" db:"updated_at"`
	Badges            []Badge      `json:"badges" db:"-"`
	Redemptions       []Redemption `json:"redemptions" db:"-"`
}

// Redemption records points spent on a reward.
type Redemption struct {
	ID         string    `json:"id" db:"id"`
	RewardType string    `json:"reward_type" db:"reward_type"`
	PointsCost int64     `json:"points_cost" db:"points_cost"`
	RedeemedAt time.Time `json:"redeemed_at" db:"redeemed_at"`
}

// AccrualResult describes what a single booking changed.
type AccrualResult struct {
	PointsEarned int64   `json:"points_earned"`
	NewBadges    []Badge `json:"new_badges"`
	PreviousTier Tier    `json:"previous_tier"`
	Tier         Tier    `json:"tier"`
}

// TierChanged reports whether the booking moved the account to another tier.
func (r AccrualResult) TierChanged() bool {
	return r.PreviousTier != r.Tier
}

// Engine applies loyalty rules to accounts.
type Engine struct {
	policy BadgePolicy
	now    func() time.Time
}

func NewEngine(policy BadgePolicy) *Engine {
	if policy == "" {
		policy = BadgePolicyExact
	}
	return &Engine{policy: policy, now: time.Now}
}

func (e *Engine) Policy() BadgePolicy {
	return e.policy
}

// NewAccount returns a fresh Bronze account with a generated referral code.
func (e *Engine) NewAccount(userID string) (*Account, error) {
	code, err := GenerateReferralCode()
	if err != nil {
		return nil, err
	}
	now := e.now().UTC()
	return &Account{
		UserID:       userID,
		Tier:         TierBronze,
		ReferralCode: code,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Accrue credits a confirmed booking of amount euros to the account.
func (e *Engine) Accrue(a *Account, amount float64) (AccrualResult, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return AccrualResult{}, fmt.Errorf("%w: booking amount must be positive", apperrors.ErrValidation)
	}
	earned := int64(math.Floor(amount))
	prev := a.Tier

	a.Points += earned
	a.TotalBookings++
	a.TotalSpent = roundCents(a.TotalSpent + amount)
	a.Tier = TierFor(a.TotalSpent)
	now := e.now().UTC()
	a.UpdatedAt = now

	return AccrualResult{
		PointsEarned: earned,
		NewBadges:    awardBadges(a, e.policy, now),
		PreviousTier: prev,
		Tier:         a.Tier,
	}, nil
}

// Redeem deducts cost points. It never leaves a negative balance and never
// redeems partially.
func (e *Engine) Redeem(a *Account, rewardType string, cost int64) (Redemption, error) {
	if cost <= 0 {
		return Redemption{}, fmt.Errorf("%w: points cost must be positive", apperrors.ErrValidation)
	}
	if a.Points < cost {
		return Redemption{}, fmt.Errorf("%w: have %d, need %d", apperrors.ErrInsufficientPoints, a.Points, cost)
	}
	now := e.now().UTC()
	a.Points -= cost
	a.UpdatedAt = now
	r := Redemption{RewardType: rewardType, PointsCost: cost, RedeemedAt: now}
	a.Redemptions = append(a.Redemptions, r)
	return r, nil
}

// ApplyReferral credits both sides of a referral. Self-referral and a second
// referral for the same account are rejected.
func (e *Engine) ApplyReferral(referrer, referred *Account) error {
	if referrer.UserID == referred.UserID {
		return fmt.Errorf("%w: cannot refer yourself", apperrors.ErrValidation)
	}
	if referred.ReferredBy != nil {
		return apperrors.ErrReferralAlreadyApplied
	}
	now := e.now().UTC()
	referrer.Points += ReferrerBonus
	referrer.UpdatedAt = now
	code := referrer.ReferralCode
	referred.Points += ReferredBonus
	referred.ReferredBy = &code
	referred.UpdatedAt = now
	return nil
}

// GenerateReferralCode returns "REF" followed by nine upper-case
// alphanumerics.
func GenerateReferralCode() (string, error) {
	return utils.RandomCode(referralPrefix, referralLength)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
