package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"carrental/internal/availability"
	"carrental/internal/db"
	"carrental/internal/entities"
	apperrors "carrental/internal/errors"
	"carrental/internal/loyalty"
)

// AccrueFunc applies a confirmed booking to the locked loyalty account.
type AccrueFunc func(acc *loyalty.Account) (loyalty.AccrualResult, error)

const bookingColumns = `id, car_id, user_id, time_from, time_to, total_hours, amount, driver_required,
	transaction_id, status, reminder_sent, created_at, updated_at, cancelled_at`

type BookingRepository struct {
	DB *sqlx.DB
}

func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{DB: db}
}

// reservedIntervals returns the car's current reservations ordered by start.
func reservedIntervals(ctx context.Context, q sqlx.QueryerContext, carID string) ([]availability.Interval, error) {
	var out []availability.Interval
	err := sqlx.SelectContext(ctx, q, &out,
		`SELECT time_from, time_to FROM car_reserved_intervals WHERE car_id = $1 ORDER BY time_from`, carID)
	if err != nil {
		return nil, fmt.Errorf("error querying reserved intervals: %w", err)
	}
	return out, nil
}

// Confirm persists a paid booking. The car row is locked first so concurrent
// confirmations for the same car run one after another; the availability
// check is repeated under that lock before the interval is stored. The
// loyalty accrual commits or rolls back together with the booking.
func (r *BookingRepository) Confirm(ctx context.Context, b *db.Booking, newAccount NewAccountFunc, accrue AccrueFunc) (*loyalty.Account, loyalty.AccrualResult, error) {
	var (
		acc    *loyalty.Account
		result loyalty.AccrualResult
	)
	err := inTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		var carID string
		err := tx.GetContext(ctx, &carID, `SELECT id FROM cars WHERE id = $1 AND is_active FOR UPDATE`, b.CarID)
		if err != nil {
			return notFound(err, "car")
		}

		existing, err := reservedIntervals(ctx, tx, b.CarID)
		if err != nil {
			return err
		}
		if err := availability.Check(existing, b.Interval()); err != nil {
			return err
		}

		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO bookings (`+bookingColumns+`)
			VALUES (:id, :car_id, :user_id, :time_from, :time_to, :total_hours, :amount, :driver_required,
				:transaction_id, :status, :reminder_sent, :created_at, :updated_at, :cancelled_at)`, b)
		if isCheckViolation(err) {
			return fmt.Errorf("%w: booking violates store constraints", apperrors.ErrValidation)
		}
		if err != nil {
			return fmt.Errorf("error inserting booking: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO car_reserved_intervals (booking_id, car_id, time_from, time_to)
			VALUES ($1, $2, $3, $4)`, b.ID, b.CarID, b.TimeFrom, b.TimeTo)
		if err != nil {
			return fmt.Errorf("error reserving interval: %w", err)
		}

		acc, err = lockAccount(ctx, tx, b.UserID, newAccount)
		if err != nil {
			return err
		}
		result, err = accrue(acc)
		if err != nil {
			return err
		}
		return saveAccount(ctx, tx, acc)
	})
	if err != nil {
		return nil, loyalty.AccrualResult{}, err
	}
	return acc, result, nil
}

// Cancel locks the booking, lets guard reject the cancellation, then marks it
// cancelled and frees its interval.
func (r *BookingRepository) Cancel(ctx context.Context, id string, at time.Time, guard func(b *db.Booking) error) (*db.Booking, error) {
	var b db.Booking
	err := inTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &b, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return notFound(err, "booking")
		}
		if err := guard(&b); err != nil {
			return err
		}
		b.Status = db.BookingStatusCancelled
		b.CancelledAt = &at
		b.UpdatedAt = at
		_, err = tx.ExecContext(ctx,
			`UPDATE bookings SET status = $2, cancelled_at = $3, updated_at = $3 WHERE id = $1`,
			b.ID, b.Status, at)
		if err != nil {
			return fmt.Errorf("error cancelling booking: %w", err)
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM car_reserved_intervals WHERE booking_id = $1`, b.ID)
		if err != nil {
			return fmt.Errorf("error releasing interval: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*db.Booking, error) {
	var b db.Booking
	err := r.DB.GetContext(ctx, &b, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, "booking")
	}
	return &b, nil
}

// GetByTransactionID finds the booking paid with a processor transaction.
func (r *BookingRepository) GetByTransactionID(ctx context.Context, transactionID string) (*db.Booking, error) {
	var b db.Booking
	err := r.DB.GetContext(ctx, &b,
		`SELECT `+bookingColumns+` FROM bookings WHERE transaction_id = $1 ORDER BY created_at DESC LIMIT 1`, transactionID)
	if err != nil {
		return nil, notFound(err, "booking")
	}
	return &b, nil
}

func (r *BookingRepository) List(ctx context.Context, f entities.BookingFilter) ([]db.Booking, int64, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	idx := 1

	if f.UserID != "" {
		where += " AND user_id = $" + strconv.Itoa(idx)
		args = append(args, f.UserID)
		idx++
	}
	if f.CarID != "" {
		where += " AND car_id = $" + strconv.Itoa(idx)
		args = append(args, f.CarID)
		idx++
	}
	if f.Status != "" {
		where += " AND status = $" + strconv.Itoa(idx)
		args = append(args, f.Status)
		idx++
	}

	var total int64
	if err := r.DB.GetContext(ctx, &total, `SELECT COUNT(*) FROM bookings`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("error counting bookings: %w", err)
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings` + where +
		" ORDER BY time_from DESC LIMIT $" + strconv.Itoa(idx) + " OFFSET $" + strconv.Itoa(idx+1)
	args = append(args, f.Limit, f.Offset)

	bookings := []db.Booking{}
	if err := r.DB.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("error listing bookings: %w", err)
	}
	return bookings, total, nil
}
