package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"carrental/internal/availability"
	"carrental/internal/db"
	"carrental/internal/entities"
	apperrors "carrental/internal/errors"
	"carrental/internal/loyalty"
	"carrental/internal/metrics"
	"carrental/internal/payment"
	"carrental/internal/repository"
	"carrental/internal/utils"
)

type BookingRepository interface {
	Confirm(ctx context.Context, b *db.Booking, newAccount repository.NewAccountFunc, accrue repository.AccrueFunc) (*loyalty.Account, loyalty.AccrualResult, error)
	Cancel(ctx context.Context, id string, at time.Time, guard func(b *db.Booking) error) (*db.Booking, error)
	GetByID(ctx context.Context, id string) (*db.Booking, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*db.Booking, error)
	List(ctx context.Context, f entities.BookingFilter) ([]db.Booking, int64, error)
}

type CarReader interface {
	GetByID(ctx context.Context, id string) (*db.Car, error)
}

type UserReader interface {
	GetByID(ctx context.Context, id string) (*db.User, error)
}

type BookingNotifier interface {
	BookingConfirmed(user *db.User, car *db.Car, b *db.Booking, result loyalty.AccrualResult)
	BookingCancelled(user *db.User, car *db.Car, b *db.Booking)
}

var errAlreadyCancelled = errors.New("booking already cancelled")

type BookingService struct {
	repo     BookingRepository
	cars     CarReader
	users    UserReader
	gateway  payment.Gateway
	engine   *loyalty.Engine
	notifier BookingNotifier
	metrics  *metrics.Metrics
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewBookingService(repo BookingRepository, cars CarReader, users UserReader, gateway payment.Gateway,
	engine *loyalty.Engine, notifier BookingNotifier, m *metrics.Metrics, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		repo:     repo,
		cars:     cars,
		users:    users,
		gateway:  gateway,
		engine:   engine,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// Book validates and prices the request, charges the customer and then
// commits the booking together with its loyalty accrual. Nothing is written
// when the charge fails; the charge is refunded when the commit fails.
func (s *BookingService) Book(ctx context.Context, req entities.BookingRequest) (*entities.BookingResponse, error) {
	interval := availability.Interval{From: req.TimeFrom, To: req.TimeTo}
	if err := interval.Validate(); err != nil {
		return nil, err
	}
	if req.CarID == "" || req.UserID == "" {
		return nil, fmt.Errorf("%w: car_id is required", apperrors.ErrValidation)
	}
	if interval.From.Before(s.now()) {
		return nil, fmt.Errorf("%w: booking cannot start in the past", apperrors.ErrValidation)
	}
	hours := utils.RentalHours(interval.From, interval.To)
	if hours > utils.MaxRentalHours {
		return nil, fmt.Errorf("%w: rentals are limited to %d hours", apperrors.ErrValidation, utils.MaxRentalHours)
	}

	car, err := s.cars.GetByID(ctx, req.CarID)
	if err != nil {
		return nil, err
	}
	if !car.IsActive {
		return nil, fmt.Errorf("car %s: %w", req.CarID, apperrors.ErrNotFound)
	}
	amount := utils.RentalAmount(hours, car.RentPerHour, req.DriverRequired)
	if req.Amount != nil && !utils.SameAmount(*req.Amount, amount) {
		return nil, fmt.Errorf("%w: amount %.2f does not match price %.2f", apperrors.ErrValidation, *req.Amount, amount)
	}

	if err := availability.Check(car.ReservedIntervals, interval); err != nil {
		s.metrics.IncBooking("conflict")
		return nil, err
	}

	bookingID := uuid.NewString()
	charge, err := s.gateway.Charge(ctx, payment.ChargeRequest{
		Amount:         amount,
		Currency:       car.Currency,
		Description:    fmt.Sprintf("%s rental, %d hours", car.Name, hours),
		PaymentMethod:  req.PaymentMethod,
		ReceiptEmail:   req.ReceiptEmail,
		IdempotencyKey: bookingID,
		Metadata:       map[string]string{"booking_id": bookingID, "car_id": car.ID, "user_id": req.UserID},
	})
	if errors.Is(err, apperrors.ErrValidation) {
		s.metrics.IncBooking("rejected")
		return nil, err
	}
	if err != nil {
		s.metrics.IncBooking("payment_failed")
		if !errors.Is(err, apperrors.ErrPaymentFailed) {
			err = fmt.Errorf("%w: %v", apperrors.ErrPaymentFailed, err)
		}
		return nil, err
	}

	now := s.now().UTC()
	booking := &db.Booking{
		ID:             bookingID,
		CarID:          car.ID,
		UserID:         req.UserID,
		TimeFrom:       interval.From.UTC(),
		TimeTo:         interval.To.UTC(),
		TotalHours:     hours,
		Amount:         amount,
		DriverRequired: req.DriverRequired,
		TransactionID:  charge.TransactionID,
		Status:         db.BookingStatusConfirmed,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	acc, result, err := s.confirm(ctx, booking)
	if err != nil {
		s.metrics.IncBooking(outcome(err))
		if rerr := s.gateway.Refund(context.WithoutCancel(ctx), charge.TransactionID); rerr != nil {
			s.logger.Error().Err(rerr).Str("transaction_id", charge.TransactionID).Str("booking_id", bookingID).
				Msg("refund after failed booking commit failed, manual follow-up required")
		}
		return nil, err
	}

	s.metrics.IncBooking("confirmed")
	s.metrics.AddPointsAccrued(result.PointsEarned)
	for _, b := range result.NewBadges {
		s.metrics.IncBadge(b.Name)
	}
	s.logger.Info().Str("booking_id", booking.ID).Str("car_id", car.ID).Str("user_id", booking.UserID).
		Float64("amount", amount).Int64("points", result.PointsEarned).Str("tier", string(result.Tier)).
		Msg("booking confirmed")

	if user, err := s.users.GetByID(ctx, booking.UserID); err != nil {
		s.logger.Warn().Err(err).Str("booking_id", booking.ID).Msg("skip booking notification")
	} else {
		s.notifier.BookingConfirmed(user, car, booking, result)
	}

	return &entities.BookingResponse{
		Booking: *booking,
		Loyalty: &entities.BookingLoyaltySummary{
			PointsEarned: result.PointsEarned,
			TotalPoints:  acc.Points,
			Tier:         result.Tier,
			TierChanged:  result.TierChanged(),
			NewBadges:    result.NewBadges,
		},
		Message: "Your booking is successful",
	}, nil
}

// confirm commits the booking, retrying once when the store reports a
// serialization conflict.
func (s *BookingService) confirm(ctx context.Context, b *db.Booking) (*loyalty.Account, loyalty.AccrualResult, error) {
	accrue := func(acc *loyalty.Account) (loyalty.AccrualResult, error) {
		return s.engine.Accrue(acc, b.Amount)
	}
	acc, result, err := s.repo.Confirm(ctx, b, s.engine.NewAccount, accrue)
	if errors.Is(err, apperrors.ErrConcurrentModification) {
		s.logger.Debug().Str("booking_id", b.ID).Msg("retrying booking commit after concurrent modification")
		acc, result, err = s.repo.Confirm(ctx, b, s.engine.NewAccount, accrue)
	}
	return acc, result, err
}

// Cancel cancels a booking that has not started yet and refunds it. Loyalty
// totals earned by the booking are kept.
func (s *BookingService) Cancel(ctx context.Context, bookingID, userID string, isAdmin bool) (*db.Booking, error) {
	now := s.now().UTC()
	b, err := s.repo.Cancel(ctx, bookingID, now, func(b *db.Booking) error {
		if !isAdmin && b.UserID != userID {
			return fmt.Errorf("%w: booking belongs to another user", apperrors.ErrForbidden)
		}
		if b.Status == db.BookingStatusCancelled {
			return fmt.Errorf("%w: already cancelled", apperrors.ErrBookingNotCancellable)
		}
		if !now.Before(b.TimeFrom) {
			return fmt.Errorf("%w: rental has already started", apperrors.ErrBookingNotCancellable)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncBookingCancelled()

	if err := s.gateway.Refund(ctx, b.TransactionID); err != nil {
		s.logger.Error().Err(err).Str("booking_id", b.ID).Str("transaction_id", b.TransactionID).
			Msg("refund for cancelled booking failed, manual follow-up required")
	}
	s.logger.Info().Str("booking_id", b.ID).Str("user_id", b.UserID).Msg("booking cancelled")
	s.notifyCancelled(ctx, b)
	return b, nil
}

// CancelRefunded cancels the booking paid by transactionID after the
// processor reported a refund. Unknown and already cancelled bookings are
// ignored.
func (s *BookingService) CancelRefunded(ctx context.Context, transactionID string) (*db.Booking, error) {
	existing, err := s.repo.GetByTransactionID(ctx, transactionID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	b, err := s.repo.Cancel(ctx, existing.ID, s.now().UTC(), func(b *db.Booking) error {
		if b.Status == db.BookingStatusCancelled {
			return errAlreadyCancelled
		}
		return nil
	})
	if errors.Is(err, errAlreadyCancelled) {
		return existing, nil
	}
	if err != nil {
		return nil, err
	}
	s.metrics.IncBookingCancelled()
	s.logger.Info().Str("booking_id", b.ID).Str("transaction_id", transactionID).Msg("booking cancelled by refund")
	s.notifyCancelled(ctx, b)
	return b, nil
}

func (s *BookingService) Get(ctx context.Context, bookingID, userID string, isAdmin bool) (*db.Booking, error) {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && b.UserID != userID {
		return nil, fmt.Errorf("booking %s: %w", bookingID, apperrors.ErrNotFound)
	}
	return b, nil
}

// List returns every booking for admins and only the caller's otherwise.
func (s *BookingService) List(ctx context.Context, f entities.BookingFilter, userID string, isAdmin bool) (*entities.BookingsList, error) {
	if !isAdmin {
		f.UserID = userID
	}
	f.Limit, f.Offset = page(f.Limit, f.Offset)
	bookings, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &entities.BookingsList{Total: total, Limit: f.Limit, Offset: f.Offset, Bookings: bookings}, nil
}

func (s *BookingService) notifyCancelled(ctx context.Context, b *db.Booking) {
	user, err := s.users.GetByID(ctx, b.UserID)
	if err != nil {
		s.logger.Warn().Err(err).Str("booking_id", b.ID).Msg("skip cancellation notification")
		return
	}
	car, err := s.cars.GetByID(ctx, b.CarID)
	if err != nil {
		s.logger.Warn().Err(err).Str("booking_id", b.ID).Msg("skip cancellation notification")
		return
	}
	s.notifier.BookingCancelled(user, car, b)
}

func outcome(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrSlotConflict):
		return "conflict"
	case errors.Is(err, apperrors.ErrConcurrentModification):
		return "concurrent_modification"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
