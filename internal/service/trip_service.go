package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"carrental/internal/db"
	"carrental/internal/entities"
	apperrors "carrental/internal/errors"
)

const (
	TripPlanning  = "Planning"
	TripActive    = "Active"
	TripCompleted = "Completed"
	TripCancelled = "Cancelled"

	maxWaypoints = 25
)

var (
	tripStatuses = []string{TripPlanning, TripActive, TripCompleted, TripCancelled}
	tripTypes    = []string{"OneWay", "RoundTrip", "MultiCity"}
)

type TripRepository interface {
	Create(ctx context.Context, p *db.TripPlan) error
	GetByID(ctx context.Context, id string) (*db.TripPlan, error)
	List(ctx context.Context, f entities.TripFilter) ([]db.TripPlan, int64, error)
	Update(ctx context.Context, id string, fn func(p *db.TripPlan) ([]db.Waypoint, error)) (*db.TripPlan, error)
}

type BookingReader interface {
	GetByID(ctx context.Context, id string) (*db.Booking, error)
}

type TripService struct {
	repo     TripRepository
	bookings BookingReader
	users    UserReader
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewTripService(repo TripRepository, bookings BookingReader, users UserReader, logger *zerolog.Logger) *TripService {
	return &TripService{repo: repo, bookings: bookings, users: users, logger: logger, now: time.Now}
}

func (s *TripService) Create(ctx context.Context, userID string, req entities.TripPlanRequest) (*db.TripPlan, error) {
	name := strings.TrimSpace(req.TripName)
	if name == "" {
		return nil, fmt.Errorf("%w: trip_name is required", apperrors.ErrValidation)
	}
	if req.TripType == "" {
		req.TripType = "RoundTrip"
	}
	if !slices.Contains(tripTypes, req.TripType) {
		return nil, fmt.Errorf("%w: unknown trip type %q", apperrors.ErrValidation, req.TripType)
	}
	if err := validateLocation("start_location", req.StartLocation); err != nil {
		return nil, err
	}
	if err := validateLocation("destination", req.Destination); err != nil {
		return nil, err
	}
	if err := validateEstimates(req.EstimatedDistance, req.EstimatedDuration); err != nil {
		return nil, err
	}
	if len(req.Waypoints) > maxWaypoints {
		return nil, fmt.Errorf("%w: at most %d waypoints per trip", apperrors.ErrValidation, maxWaypoints)
	}
	if req.BookingID != nil {
		if err := s.checkBooking(ctx, *req.BookingID, userID); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	p := &db.TripPlan{
		ID:                uuid.NewString(),
		UserID:            userID,
		BookingID:         req.BookingID,
		TripName:          name,
		StartLocation:     req.StartLocation,
		Destination:       req.Destination,
		TripType:          req.TripType,
		Preferences:       req.Preferences,
		EstimatedDistance: req.EstimatedDistance,
		EstimatedDuration: req.EstimatedDuration,
		Status:            TripPlanning,
		SharedWith:        []string{},
		Notes:             strings.TrimSpace(req.Notes),
		CreatedAt:         now,
		UpdatedAt:         now,
		Waypoints:         []db.Waypoint{},
	}
	for i, wr := range req.Waypoints {
		w, err := newWaypoint(p.ID, wr, now)
		if err != nil {
			return nil, err
		}
		w.Position = i
		p.Waypoints = append(p.Waypoints, w)
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info().Str("trip_id", p.ID).Str("user_id", userID).Int("waypoints", len(p.Waypoints)).Msg("trip plan created")
	return p, nil
}

// Get returns the plan to its owner, to users it was shared with and to
// admins. Everyone else gets not found.
func (s *TripService) Get(ctx context.Context, id, userID string, isAdmin bool) (*db.TripPlan, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && p.UserID != userID && !p.SharedWithUser(userID) {
		return nil, fmt.Errorf("trip plan %s: %w", id, apperrors.ErrNotFound)
	}
	return p, nil
}

// List returns the caller's own and shared plans; admins may list anyone's.
func (s *TripService) List(ctx context.Context, f entities.TripFilter, userID string, isAdmin bool) (*entities.TripPlansList, error) {
	if !isAdmin {
		f.UserID = userID
	}
	if f.Status != "" && !slices.Contains(tripStatuses, f.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrValidation, f.Status)
	}
	f.Limit, f.Offset = page(f.Limit, f.Offset)
	plans, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &entities.TripPlansList{Total: total, Limit: f.Limit, Offset: f.Offset, TripPlans: plans}, nil
}

// Update changes the fields present in req. Only the owner may edit, and
// completed or cancelled plans are frozen.
func (s *TripService) Update(ctx context.Context, id, userID string, req entities.TripPlanUpdate) (*db.TripPlan, error) {
	if req.TripName != nil && strings.TrimSpace(*req.TripName) == "" {
		return nil, fmt.Errorf("%w: trip_name cannot be empty", apperrors.ErrValidation)
	}
	if req.TripType != nil && !slices.Contains(tripTypes, *req.TripType) {
		return nil, fmt.Errorf("%w: unknown trip type %q", apperrors.ErrValidation, *req.TripType)
	}
	if req.Status != nil && !slices.Contains(tripStatuses, *req.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrValidation, *req.Status)
	}
	if req.StartLocation != nil {
		if err := validateLocation("start_location", *req.StartLocation); err != nil {
			return nil, err
		}
	}
	if req.Destination != nil {
		if err := validateLocation("destination", *req.Destination); err != nil {
			return nil, err
		}
	}
	if err := validateEstimates(req.EstimatedDistance, req.EstimatedDuration); err != nil {
		return nil, err
	}

	return s.repo.Update(ctx, id, func(p *db.TripPlan) ([]db.Waypoint, error) {
		if err := editable(p, userID); err != nil {
			return nil, err
		}
		if req.TripName != nil {
			p.TripName = strings.TrimSpace(*req.TripName)
		}
		if req.StartLocation != nil {
			p.StartLocation = *req.StartLocation
		}
		if req.Destination != nil {
			p.Destination = *req.Destination
		}
		if req.TripType != nil {
			p.TripType = *req.TripType
		}
		if req.Preferences != nil {
			p.Preferences = *req.Preferences
		}
		if req.EstimatedDistance != nil {
			p.EstimatedDistance = req.EstimatedDistance
		}
		if req.EstimatedDuration != nil {
			p.EstimatedDuration = req.EstimatedDuration
		}
		if req.Status != nil {
			p.Status = *req.Status
		}
		if req.Notes != nil {
			p.Notes = strings.TrimSpace(*req.Notes)
		}
		p.UpdatedAt = s.now().UTC()
		return nil, nil
	})
}

// AddWaypoint appends a stop at the end of the route.
func (s *TripService) AddWaypoint(ctx context.Context, id, userID string, req entities.WaypointRequest) (*db.TripPlan, error) {
	now := s.now().UTC()
	w, err := newWaypoint(id, req, now)
	if err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, func(p *db.TripPlan) ([]db.Waypoint, error) {
		if err := editable(p, userID); err != nil {
			return nil, err
		}
		if len(p.Waypoints) >= maxWaypoints {
			return nil, fmt.Errorf("%w: at most %d waypoints per trip", apperrors.ErrValidation, maxWaypoints)
		}
		p.UpdatedAt = now
		return []db.Waypoint{w}, nil
	})
}

// Share grants read access to other users. Existing grants are kept and
// duplicates ignored.
func (s *TripService) Share(ctx context.Context, id, userID string, req entities.ShareTripRequest) (*db.TripPlan, error) {
	if len(req.UserIDs) == 0 {
		return nil, fmt.Errorf("%w: user_ids is required", apperrors.ErrValidation)
	}
	ids := make([]string, 0, len(req.UserIDs))
	for _, raw := range req.UserIDs {
		u, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid user id %q", apperrors.ErrValidation, raw)
		}
		if sid := u.String(); sid != userID && !slices.Contains(ids, sid) {
			ids = append(ids, sid)
		}
	}
	for _, uid := range ids {
		if _, err := s.users.GetByID(ctx, uid); err != nil {
			return nil, err
		}
	}

	return s.repo.Update(ctx, id, func(p *db.TripPlan) ([]db.Waypoint, error) {
		if p.UserID != userID {
			return nil, fmt.Errorf("trip plan %s: %w", id, apperrors.ErrNotFound)
		}
		for _, uid := range ids {
			if !p.SharedWithUser(uid) {
				p.SharedWith = append(p.SharedWith, uid)
			}
		}
		p.UpdatedAt = s.now().UTC()
		return nil, nil
	})
}

func (s *TripService) checkBooking(ctx context.Context, bookingID, userID string) error {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if errors.Is(err, apperrors.ErrNotFound) || (err == nil && b.UserID != userID) {
		return fmt.Errorf("booking %s: %w", bookingID, apperrors.ErrNotFound)
	}
	return err
}

// editable hides other users' plans and rejects edits to finished ones.
func editable(p *db.TripPlan, userID string) error {
	if p.UserID != userID {
		if p.SharedWithUser(userID) {
			return fmt.Errorf("%w: shared trips are read-only", apperrors.ErrForbidden)
		}
		return fmt.Errorf("trip plan %s: %w", p.ID, apperrors.ErrNotFound)
	}
	if p.Status == TripCompleted || p.Status == TripCancelled {
		return fmt.Errorf("%w: trip is %s", apperrors.ErrValidation, strings.ToLower(p.Status))
	}
	return nil
}

func newWaypoint(tripID string, req entities.WaypointRequest, now time.Time) (db.Waypoint, error) {
	name := strings.TrimSpace(req.Name)
	address := strings.TrimSpace(req.Address)
	if name == "" && address == "" {
		return db.Waypoint{}, fmt.Errorf("%w: waypoint needs a name or an address", apperrors.ErrValidation)
	}
	if err := validateCoordinates("waypoint", req.Latitude, req.Longitude); err != nil {
		return db.Waypoint{}, err
	}
	if req.StopDuration < 0 {
		return db.Waypoint{}, fmt.Errorf("%w: stop_duration cannot be negative", apperrors.ErrValidation)
	}
	return db.Waypoint{
		ID:           uuid.NewString(),
		TripPlanID:   tripID,
		Name:         name,
		Address:      address,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		StopDuration: req.StopDuration,
		Notes:        strings.TrimSpace(req.Notes),
		CreatedAt:    now,
	}, nil
}

func validateLocation(field string, l db.Location) error {
	return validateCoordinates(field, l.Latitude, l.Longitude)
}

func validateCoordinates(field string, lat, lng *float64) error {
	if (lat == nil) != (lng == nil) {
		return fmt.Errorf("%w: %s needs both latitude and longitude", apperrors.ErrValidation, field)
	}
	if lat != nil && (*lat < -90 || *lat > 90) {
		return fmt.Errorf("%w: %s latitude out of range", apperrors.ErrValidation, field)
	}
	if lng != nil && (*lng < -180 || *lng > 180) {
		return fmt.Errorf("%w: %s longitude out of range", apperrors.ErrValidation, field)
	}
	return nil
}

func validateEstimates(distance *float64, duration *int) error {
	if distance != nil && *distance < 0 {
		return fmt.Errorf("%w: estimated_distance cannot be negative", apperrors.ErrValidation)
	}
	if duration != nil && *duration < 0 {
		return fmt.Errorf("%w: estimated_duration cannot be negative", apperrors.ErrValidation)
	}
	return nil
}
