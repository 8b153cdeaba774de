package repository

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carrental/internal/db"
	apperrors "carrental/internal/errors"
	"carrental/internal/loyalty"
)

var (
	testDB     *sqlx.DB
	testDBOnce sync.Once
)

// getDB connects to POSTGRES_URL and skips the test when it is unset.
func getDB(t *testing.T) *sqlx.DB {
	t.Helper()
	url := os.Getenv("POSTGRES_URL")
	if url == "" {
		t.Skip("POSTGRES_URL not set")
	}
	testDBOnce.Do(func() {
		conn, err := sqlx.Connect("postgres", url)
		if err != nil {
			panic(err)
		}
		if err := db.InitSchema(context.Background(), conn); err != nil {
			panic(err)
		}
		testDB = conn
	})
	return testDB
}

func seedCarAndUser(t *testing.T, conn *sqlx.DB) (*db.Car, *db.User) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	u := &db.User{
		ID:           uuid.NewString(),
		Username:     "it-" + uuid.NewString(),
		PasswordHash: "x",
		Role:         db.RoleUser,
		Language:     "en",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, NewUserRepository(conn).Create(ctx, u))

	c := &db.Car{
		ID:               uuid.NewString(),
		Name:             "Fiat 500",
		CarType:          "Hatchback",
		FuelType:         "Petrol",
		Transmission:     "Manual",
		Capacity:         4,
		RentPerHour:      10,
		BasePricePerHour: 10,
		Currency:         "EUR",
		Features:         []string{},
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, NewCarRepository(conn).Create(ctx, c))
	return c, u
}

func newBooking(car *db.Car, user *db.User, from time.Time, hours int) *db.Booking {
	now := time.Now().UTC()
	return &db.Booking{
		ID:            uuid.NewString(),
		CarID:         car.ID,
		UserID:        user.ID,
		TimeFrom:      from,
		TimeTo:        from.Add(time.Duration(hours) * time.Hour),
		TotalHours:    hours,
		Amount:        float64(hours) * car.RentPerHour,
		TransactionID: "pi_" + uuid.NewString(),
		Status:        db.BookingStatusConfirmed,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestBookingRepository_Confirm_Integration(t *testing.T) {
	conn := getDB(t)
	ctx := context.Background()
	engine := loyalty.NewEngine(loyalty.BadgePolicyExact)
	repo := NewBookingRepository(conn)
	car, user := seedCarAndUser(t, conn)

	accrue := func(b *db.Booking) AccrueFunc {
		return func(acc *loyalty.Account) (loyalty.AccrualResult, error) {
			return engine.Accrue(acc, b.Amount)
		}
	}

	start := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Hour)
	first := newBooking(car, user, start, 4)

	acc, result, err := repo.Confirm(ctx, first, engine.NewAccount, accrue(first))
	require.NoError(t, err)
	assert.Equal(t, int64(40), result.PointsEarned)
	assert.Equal(t, int64(40), acc.Points)
	assert.Equal(t, 1, acc.TotalBookings)

	t.Run("overlapping booking is rejected and leaves no trace", func(t *testing.T) {
		clash := newBooking(car, user, start.Add(2*time.Hour), 4)
		_, _, err := repo.Confirm(ctx, clash, engine.NewAccount, accrue(clash))
		assert.ErrorIs(t, err, apperrors.ErrSlotConflict)

		_, err = repo.GetByID(ctx, clash.ID)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)

		var points int64
		require.NoError(t, conn.GetContext(ctx, &points, `SELECT points FROM loyalty_accounts WHERE user_id = $1`, user.ID))
		assert.Equal(t, int64(40), points)
	})

	t.Run("back to back booking is accepted", func(t *testing.T) {
		next := newBooking(car, user, first.TimeTo, 2)
		_, _, err := repo.Confirm(ctx, next, engine.NewAccount, accrue(next))
		require.NoError(t, err)

		found, err := repo.GetByTransactionID(ctx, next.TransactionID)
		require.NoError(t, err)
		assert.Equal(t, next.ID, found.ID)
	})

	t.Run("cancel frees the interval", func(t *testing.T) {
		_, err := repo.Cancel(ctx, first.ID, time.Now().UTC(), func(b *db.Booking) error { return nil })
		require.NoError(t, err)

		got, err := repo.GetByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, db.BookingStatusCancelled, got.Status)
		require.NotNil(t, got.CancelledAt)

		again := newBooking(car, user, start, 4)
		_, _, err = repo.Confirm(ctx, again, engine.NewAccount, accrue(again))
		assert.NoError(t, err)
	})

	t.Run("guard rejection keeps the booking", func(t *testing.T) {
		b := newBooking(car, user, start.Add(24*time.Hour), 1)
		_, _, err := repo.Confirm(ctx, b, engine.NewAccount, accrue(b))
		require.NoError(t, err)

		_, err = repo.Cancel(ctx, b.ID, time.Now().UTC(), func(*db.Booking) error { return apperrors.ErrForbidden })
		assert.ErrorIs(t, err, apperrors.ErrForbidden)

		got, err := repo.GetByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, db.BookingStatusConfirmed, got.Status)
	})
}

func TestBookingRepository_ConcurrentConfirm_Integration(t *testing.T) {
	conn := getDB(t)
	ctx := context.Background()
	engine := loyalty.NewEngine(loyalty.BadgePolicyExact)
	repo := NewBookingRepository(conn)
	car, user := seedCarAndUser(t, conn)

	start := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Hour)

	const workers = 5
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b := newBooking(car, user, start, 3)
			_, _, err := repo.Confirm(ctx, b, engine.NewAccount, func(acc *loyalty.Account) (loyalty.AccrualResult, error) {
				return engine.Accrue(acc, b.Amount)
			})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)

	var reserved int
	require.NoError(t, conn.GetContext(ctx, &reserved, `SELECT COUNT(*) FROM car_reserved_intervals WHERE car_id = $1`, car.ID))
	assert.Equal(t, 1, reserved)
}
