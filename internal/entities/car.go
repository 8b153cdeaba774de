package entities

import "carrental/internal/db"

type CarRequest struct {
	Name             string   `json:"name"`
	Image            string   `json:"image"`
	CarType          string   `json:"car_type"`
	FuelType         string   `json:"fuel_type"`
	Transmission     string   `json:"transmission"`
	Capacity         int      `json:"capacity"`
	RentPerHour      float64  `json:"rent_per_hour"`
	BasePricePerHour float64  `json:"base_price_per_hour"`
	Currency         string   `json:"currency"`
	Features         []string `json:"features"`
	IsActive         *bool    `json:"is_active,omitempty"`
}

type CarFilter struct {
	CarType  string
	FuelType string
	MinPrice float64
	MaxPrice float64
	SortBy   string
	Order    string
	Limit    int
	Offset   int
}

type CarsList struct {
	Total  int64    `json:"total"`
	Limit  int      `json:"limit"`
	Offset int      `json:"offset"`
	Cars   []db.Car `json:"cars"`
}

type ReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}
