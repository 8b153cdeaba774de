package utils

import (
	"math"
	"time"
)

const (
	// DriverRatePerHour is added to the car rate when a driver is requested.
	DriverRatePerHour = 30.0
	MaxRentalHours    = 720
)

// RentalHours returns the billable hours for a rental, rounding partial
// hours up. Non-positive durations bill zero hours.
func RentalHours(from, to time.Time) int {
	d := to.Sub(from)
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Hours()))
}

// RentalAmount prices hours at ratePerHour plus the driver surcharge,
// rounded to cents.
func RentalAmount(hours int, ratePerHour float64, driverRequired bool) float64 {
	rate := ratePerHour
	if driverRequired {
		rate += DriverRatePerHour
	}
	return math.Round(float64(hours)*rate*100) / 100
}

// SameAmount compares two euro amounts at cent precision.
func SameAmount(a, b float64) bool {
	return math.Abs(a-b) < 0.005
}

// ToCents converts euros to the integer cents payment providers expect.
func ToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
