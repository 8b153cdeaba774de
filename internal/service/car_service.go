package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"carrental/internal/availability"
	"carrental/internal/db"
	"carrental/internal/entities"
	apperrors "carrental/internal/errors"
	"carrental/internal/utils"
)

const (
	featuredMinRating = 4.0
	featuredLimit     = 6
	defaultPageSize   = 20
	maxPageSize       = 100
)

type CarRepository interface {
	List(ctx context.Context, f entities.CarFilter) ([]db.Car, int64, error)
	Featured(ctx context.Context, minRating float64, limit int) ([]db.Car, error)
	GetByID(ctx context.Context, id string) (*db.Car, error)
	Create(ctx context.Context, c *db.Car) error
	Update(ctx context.Context, c *db.Car) error
	Deactivate(ctx context.Context, id string) error
	AddReview(ctx context.Context, rv *db.Review) (*db.Car, error)
	Reviews(ctx context.Context, carID string) ([]db.Review, error)
}

type CarService struct {
	repo   CarRepository
	logger *zerolog.Logger
	now    func() time.Time
}

func NewCarService(repo CarRepository, logger *zerolog.Logger) *CarService {
	return &CarService{repo: repo, logger: logger, now: time.Now}
}

func (s *CarService) List(ctx context.Context, f entities.CarFilter) (*entities.CarsList, error) {
	f.Limit, f.Offset = page(f.Limit, f.Offset)
	cars, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &entities.CarsList{Total: total, Limit: f.Limit, Offset: f.Offset, Cars: cars}, nil
}

func (s *CarService) Featured(ctx context.Context) ([]db.Car, error) {
	return s.repo.Featured(ctx, featuredMinRating, featuredLimit)
}

func (s *CarService) Get(ctx context.Context, id string) (*db.Car, error) {
	return s.repo.GetByID(ctx, id)
}

// Availability reports whether the car is free for the requested window and,
// when it is not, which reservations are in the way.
func (s *CarService) Availability(ctx context.Context, carID string, iv availability.Interval, driverRequired bool) (*entities.AvailabilityResponse, error) {
	if err := iv.Validate(); err != nil {
		return nil, err
	}
	car, err := s.repo.GetByID(ctx, carID)
	if err != nil {
		return nil, err
	}
	hours := utils.RentalHours(iv.From, iv.To)
	resp := &entities.AvailabilityResponse{
		CarID:              car.ID,
		RequestedStartTime: iv.From,
		RequestedEndTime:   iv.To,
		TotalHours:         hours,
		EstimatedAmount:    utils.RentalAmount(hours, car.RentPerHour, driverRequired),
	}
	if !car.IsActive {
		resp.Message = "Car is not available for booking"
		return resp, nil
	}
	resp.Conflicts = availability.Conflicts(car.ReservedIntervals, iv)
	resp.IsAvailable = len(resp.Conflicts) == 0
	if !resp.IsAvailable {
		resp.Message = "Car is already booked for the requested time"
	}
	return resp, nil
}

func (s *CarService) Create(ctx context.Context, req entities.CarRequest) (*db.Car, error) {
	if err := validateCar(req); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	c := &db.Car{ID: uuid.NewString(), IsActive: true, CreatedAt: now}
	applyCar(c, req)
	c.UpdatedAt = now
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info().Str("car_id", c.ID).Str("name", c.Name).Msg("car created")
	return c, nil
}

func (s *CarService) Update(ctx context.Context, id string, req entities.CarRequest) (*db.Car, error) {
	if err := validateCar(req); err != nil {
		return nil, err
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	applyCar(c, req)
	c.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CarService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("car_id", id).Msg("car deactivated")
	return nil
}

func (s *CarService) AddReview(ctx context.Context, carID, userID string, req entities.ReviewRequest) (*db.Car, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", apperrors.ErrValidation)
	}
	return s.repo.AddReview(ctx, &db.Review{
		ID:        uuid.NewString(),
		CarID:     carID,
		UserID:    userID,
		Rating:    req.Rating,
		Comment:   strings.TrimSpace(req.Comment),
		CreatedAt: s.now().UTC(),
	})
}

func (s *CarService) Reviews(ctx context.Context, carID string) ([]db.Review, error) {
	return s.repo.Reviews(ctx, carID)
}

func validateCar(req entities.CarRequest) error {
	switch {
	case strings.TrimSpace(req.Name) == "":
		return fmt.Errorf("%w: name is required", apperrors.ErrValidation)
	case req.RentPerHour <= 0:
		return fmt.Errorf("%w: rent_per_hour must be positive", apperrors.ErrValidation)
	case req.Capacity < 0:
		return fmt.Errorf("%w: capacity cannot be negative", apperrors.ErrValidation)
	}
	return nil
}

func applyCar(c *db.Car, req entities.CarRequest) {
	c.Name = strings.TrimSpace(req.Name)
	c.Image = req.Image
	c.CarType = req.CarType
	c.FuelType = req.FuelType
	c.Transmission = req.Transmission
	c.Capacity = req.Capacity
	c.RentPerHour = req.RentPerHour
	c.BasePricePerHour = req.BasePricePerHour
	if c.BasePricePerHour == 0 {
		c.BasePricePerHour = req.RentPerHour
	}
	c.Currency = strings.ToUpper(req.Currency)
	if c.Currency == "" {
		c.Currency = "EUR"
	}
	c.Features = req.Features
	if c.Features == nil {
		c.Features = []string{}
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
}

func page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
