package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Location is a named point stored as a JSONB document.
type Location struct {
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

func (l Location) Value() (driver.Value, error) {
	return jsonValue(l)
}

func (l *Location) Scan(src interface{}) error {
	return scanJSON(src, l)
}

type TripPreferences struct {
	AvoidTolls    bool `json:"avoid_tolls"`
	AvoidHighways bool `json:"avoid_highways"`
	PreferScenic  bool `json:"prefer_scenic"`
}

func (p TripPreferences) Value() (driver.Value, error) {
	return jsonValue(p)
}

func (p *TripPreferences) Scan(src interface{}) error {
	return scanJSON(src, p)
}

func jsonValue(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func scanJSON(src interface{}, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("cannot scan %T into %T", src, dst)
	}
}

type TripPlan struct {
	ID                string          `json:"id" db:"id"`
	UserID            string          `json:"user_id" db:"user_id"`
	BookingID         *string         `json:"booking_id,omitempty" db:"booking_id"`
	TripName          string          `json:"trip_name" db:"trip_name"`
	StartLocation     Location        `json:"start_location" db:"start_location"`
	Destination       Location        `json:"destination" db:"destination"`
	TripType          string          `json:"trip_type" db:"trip_type"`
	Preferences       TripPreferences `json:"preferences" db:"preferences"`
	EstimatedDistance *float64        `json:"estimated_distance,omitempty" db:"estimated_distance"`
	EstimatedDuration *int            `json:"estimated_duration,omitempty" db:"estimated_duration"`
	Status            string          `json:"status" db:"status"`
	SharedWith        pq.StringArray  `json:"shared_with" db:"shared_with"`
	Notes             string          `json:"notes" db:"notes"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
	Waypoints         []Waypoint      `json:"waypoints" db:"-"`
}

// SharedWithUser reports whether the owner shared the plan with userID.
func (p *TripPlan) SharedWithUser(userID string) bool {
	for _, id := range p.SharedWith {
		if id == userID {
			return true
		}
	}
	return false
}

// Waypoint is an ordered stop on a trip. StopDuration is in minutes.
type Waypoint struct {
	ID           string    `json:"id" db:"id"`
	TripPlanID   string    `json:"trip_plan_id" db:"trip_plan_id"`
	Position     int       `json:"position" db:"position"`
	Name         string    `json:"name" db:"name"`
	Address      string    `json:"address" db:"address"`
	Latitude     *float64  `json:"latitude,omitempty" db:"latitude"`
	Longitude    *float64  `json:"longitude,omitempty" db:"longitude"`
	StopDuration int       `json:"stop_duration" db:"stop_duration"`
	Notes        string    `json:"notes" db:"notes"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
