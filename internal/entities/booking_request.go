package entities

import "time"

type BookingRequest struct {
	CarID          string    `json:"car_id"`
	UserID         string    `json:"-"` // taken from the token
	TimeFrom       time.Time `json:"time_from"`
	TimeTo         time.Time `json:"time_to"`
	DriverRequired bool      `json:"driver_required"`
	Amount         *float64  `json:"amount,omitempty"`
	PaymentMethod  string    `json:"payment_method"`
	ReceiptEmail   string    `json:"receipt_email"`
}

type BookingFilter struct {
	UserID string
	CarID  string
	Status string
	Limit  int
	Offset int
}
