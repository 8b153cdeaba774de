package entities

import (
	"carrental/internal/db"
	"carrental/internal/loyalty"
)

type BookingResponse struct {
	Booking db.Booking             `json:"booking"`
	Loyalty *BookingLoyaltySummary `json:"loyalty,omitempty"`
	Message string                 `json:"message"`
}

type BookingLoyaltySummary struct {
	PointsEarned int64           `json:"points_earned"`
	TotalPoints  int64           `json:"total_points"`
	Tier         loyalty.Tier    `json:"tier"`
	TierChanged  bool            `json:"tier_changed"`
	NewBadges    []loyalty.Badge `json:"new_badges"`
}

type BookingsList struct {
	Total    int64        `json:"total"`
	Limit    int          `json:"limit"`
	Offset   int          `json:"offset"`
	Bookings []db.Booking `json:"bookings"`
}

// BookingEmailData feeds the confirmation and cancellation templates.
type BookingEmailData struct {
	UserName           string
	BookingID          string
	CarName            string
	StartTimeFormatted string
	EndTimeFormatted   string
	Amount             string
	TransactionID      string
	PointsEarned       int64
	Tier               string
	NewBadges          []string
	CurrentYear        int
}
