package db

import (
	"time"

	"github.com/lib/pq"

	"carrental/internal/availability"
)

const (
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"

	RoleAdmin = "admin"
	RoleUser  = "user"
	RoleOwner = "owner"
)

type Car struct {
	ID                string                  `json:"id" db:"id"`
	Name              string                  `json:"name" db:"name"`
	Image             string                  `json:"image" db:"image"`
	CarType           string                  `json:"car_type" db:"car_type"`
	FuelType          string                  `json:"fuel_type" db:"fuel_type"`
	Transmission      string                  `json:"transmission" db:"transmission"`
	Capacity          int                     `json:"capacity" db:"capacity"`
	RentPerHour       float64                 `json:"rent_per_hour" db:"rent_per_hour"`
	BasePricePerHour  float64                 `json:"base_price_per_hour" db:"base_price_per_hour"`
	Currency          string                  `json:"currency" db:"currency"`
	Features          pq.StringArray          `json:"features" db:"features"`
	AverageRating     float64                 `json:"average_rating" db:"average_rating"`
	TotalReviews      int                     `json:"total_reviews" db:"total_reviews"`
	IsActive          bool                    `json:"is_active" db:"is_active"`
	CreatedAt         time.Time               `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time               `json:"updated_at" db:"updated_at"`
	ReservedIntervals []availability.Interval `json:"reserved_intervals,omitempty" db:"-"`
}

type Review struct {
	ID        string    `json:"id" db:"id"`
	CarID     string    `json:"car_id" db:"car_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Username  string    `json:"username" db:"username"`
	Rating    int       `json:"rating" db:"rating"`
	Comment   string    `json:"comment" db:"comment"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Booking struct {
	ID             string     `json:"id" db:"id"`
	CarID          string     `json:"car_id" db:"car_id"`
	UserID         string     `json:"user_id" db:"user_id"`
	TimeFrom       time.Time  `json:"time_from" db:"time_from"`
	TimeTo         time.Time  `json:"time_to" db:"time_to"`
	TotalHours     int        `json:"total_hours" db:"total_hours"`
	Amount         float64    `json:"amount" db:"amount"`
	DriverRequired bool       `json:"driver_required" db:"driver_required"`
	TransactionID  string     `json:"transaction_id" db:"transaction_id"`
	Status         string     `json:"status" db:"status"`
	ReminderSent   bool       `json:"-" db:"reminder_sent"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
	CancelledAt    *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`
}

// Interval returns the reservation window of the booking.
func (b *Booking) Interval() availability.Interval {
	return availability.Interval{From: b.TimeFrom, To: b.TimeTo}
}

// BookingReminder joins a booking with what a pickup reminder needs.
type BookingReminder struct {
	BookingID string    `db:"booking_id"`
	TimeFrom  time.Time `db:"time_from"`
	CarName   string    `db:"car_name"`
	Username  string    `db:"username"`
	Email     string    `db:"email"`
	Phone     string    `db:"phone"`
	Language  string    `db:"language"`
}

type User struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	Email        string    `json:"email" db:"email"`
	Phone        string    `json:"phone" db:"phone"`
	Language     string    `json:"language" db:"language"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

type SupportTicket struct {
	ID                string           `json:"id" db:"id"`
	TicketNumber      string           `json:"ticket_number" db:"ticket_number"`
	UserID            string           `json:"user_id" db:"user_id"`
	Subject           string           `json:"subject" db:"subject"`
	Category          string           `json:"category" db:"category"`
	Priority          string           `json:"priority" db:"priority"`
	Status            string           `json:"status" db:"status"`
	Description       string           `json:"description" db:"description"`
	AssignedTo        *string          `json:"assigned_to,omitempty" db:"assigned_to"`
	RelatedBookingID  *string          `json:"related_booking_id,omitempty" db:"related_booking_id"`
	RatingScore       *int             `json:"rating_score,omitempty" db:"rating_score"`
	RatingFeedback    *string          `json:"rating_feedback,omitempty" db:"rating_feedback"`
	RatedAt           *time.Time       `json:"rated_at,omitempty" db:"rated_at"`
	ResolutionMinutes *int             `json:"resolution_minutes,omitempty" db:"resolution_minutes"`
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at" db:"updated_at"`
	Messages          []SupportMessage `json:"messages" db:"-"`
}

type SupportMessage struct {
	ID        string    `json:"id" db:"id"`
	TicketID  string    `json:"ticket_id" db:"ticket_id"`
	Sender    string    `json:"sender" db:"sender"`
	Message   string    `json:"message" db:"message"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
