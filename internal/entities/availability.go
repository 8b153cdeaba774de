package entities

import (
	"time"

	"carrental/internal/availability"
)

type AvailabilityResponse struct {
	CarID              string                  `json:"car_id"`
	IsAvailable        bool                    `json:"is_available"`
	RequestedStartTime time.Time               `json:"requested_start_time"`
	RequestedEndTime   time.Time               `json:"requested_end_time"`
	Message            string                  `json:"message,omitempty"`
	Conflicts          []availability.Interval `json:"conflicts,omitempty"`
	TotalHours         int                     `json:"total_hours"`
	EstimatedAmount    float64                 `json:"estimated_amount"`
}
