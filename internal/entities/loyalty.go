package entities

import "carrental/internal/loyalty"

type RedeemRequest struct {
	RewardID   int    `json:"reward_id"`
	RewardType string `json:"reward_type"`
	PointsCost int64  `json:"points_cost"`
}

type RedeemResponse struct {
	Redemption      loyalty.Redemption `json:"redemption"`
	RemainingPoints int64              `json:"remaining_points"`
	Message         string             `json:"message"`
}

type ReferralRequest struct {
	ReferralCode string `json:"referral_code"`
}

type ReferralResponse struct {
	PointsAwarded int64  `json:"points_awarded"`
	TotalPoints   int64  `json:"total_points"`
	Message       string `json:"message"`
}

type SubscribeRequest struct {
	Plan string `json:"plan"`
}

type LoyaltyDashboard struct {
	Account      *loyalty.Account      `json:"account"`
	Subscription *loyalty.Subscription `json:"subscription,omitempty"`
	NextTier     *NextTierProgress     `json:"next_tier,omitempty"`
}

type NextTierProgress struct {
	Tier           loyalty.Tier `json:"tier"`
	SpendRemaining float64      `json:"spend_remaining"`
}
