package entities

import "carrental/internal/db"

type TripPlanRequest struct {
	BookingID         *string            `json:"booking_id,omitempty"`
	TripName          string             `json:"trip_name"`
	StartLocation     db.Location        `json:"start_location"`
	Destination       db.Location        `json:"destination"`
	TripType          string             `json:"trip_type"`
	Preferences       db.TripPreferences `json:"preferences"`
	EstimatedDistance *float64           `json:"estimated_distance,omitempty"`
	EstimatedDuration *int               `json:"estimated_duration,omitempty"`
	Waypoints         []WaypointRequest  `json:"waypoints"`
	Notes             string             `json:"notes"`
}

// TripPlanUpdate carries the fields to change; nil fields are left alone.
type TripPlanUpdate struct {
	TripName          *string             `json:"trip_name,omitempty"`
	StartLocation     *db.Location        `json:"start_location,omitempty"`
	Destination       *db.Location        `json:"destination,omitempty"`
	TripType          *string             `json:"trip_type,omitempty"`
	Preferences       *db.TripPreferences `json:"preferences,omitempty"`
	EstimatedDistance *float64            `json:"estimated_distance,omitempty"`
	EstimatedDuration *int                `json:"estimated_duration,omitempty"`
	Status            *string             `json:"status,omitempty"`
	Notes             *string             `json:"notes,omitempty"`
}

type WaypointRequest struct {
	Name         string   `json:"name"`
	Address      string   `json:"address"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	StopDuration int      `json:"stop_duration"`
	Notes        string   `json:"notes"`
}

type ShareTripRequest struct {
	UserIDs []string `json:"user_ids"`
}

// TripFilter.UserID matches plans owned by or shared with the user.
type TripFilter struct {
	UserID string
	Status string
	Limit  int
	Offset int
}

type TripPlansList struct {
	Total     int64         `json:"total"`
	Limit     int           `json:"limit"`
	Offset    int           `json:"offset"`
	TripPlans []db.TripPlan `json:"trip_plans"`
}
