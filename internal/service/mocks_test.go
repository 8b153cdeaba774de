package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"

	"carrental/internal/db"
	"carrental/internal/entities"
	apperrors "carrental/internal/errors"
	"carrental/internal/loyalty"
	"carrental/internal/payment"
	"carrental/internal/repository"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

type mockBookingRepo struct{ mock.Mock }

func (m *mockBookingRepo) Confirm(ctx context.Context, b *db.Booking, newAccount repository.NewAccountFunc, accrue repository.AccrueFunc) (*loyalty.Account, loyalty.AccrualResult, error) {
	args := m.Called(ctx, b, newAccount, accrue)
	acc, _ := args.Get(0).(*loyalty.Account)
	return acc, args.Get(1).(loyalty.AccrualResult), args.Error(2)
}

func (m *mockBookingRepo) Cancel(ctx context.Context, id string, at time.Time, guard func(b *db.Booking) error) (*db.Booking, error) {
	args := m.Called(ctx, id, at, guard)
	b, _ := args.Get(0).(*db.Booking)
	return b, args.Error(1)
}

func (m *mockBookingRepo) GetByID(ctx context.Context, id string) (*db.Booking, error) {
	args := m.Called(ctx, id)
	b, _ := args.Get(0).(*db.Booking)
	return b, args.Error(1)
}

func (m *mockBookingRepo) GetByTransactionID(ctx context.Context, transactionID string) (*db.Booking, error) {
	args := m.Called(ctx, transactionID)
	b, _ := args.Get(0).(*db.Booking)
	return b, args.Error(1)
}

func (m *mockBookingRepo) List(ctx context.Context, f entities.BookingFilter) ([]db.Booking, int64, error) {
	args := m.Called(ctx, f)
	bs, _ := args.Get(0).([]db.Booking)
	return bs, args.Get(1).(int64), args.Error(2)
}

type mockCars struct{ mock.Mock }

func (m *mockCars) GetByID(ctx context.Context, id string) (*db.Car, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*db.Car)
	return c, args.Error(1)
}

type mockUsers struct{ mock.Mock }

func (m *mockUsers) GetByID(ctx context.Context, id string) (*db.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*db.User)
	return u, args.Error(1)
}

type mockGateway struct{ mock.Mock }

func (m *mockGateway) Charge(ctx context.Context, req payment.ChargeRequest) (*payment.Charge, error) {
	args := m.Called(ctx, req)
	c, _ := args.Get(0).(*payment.Charge)
	return c, args.Error(1)
}

func (m *mockGateway) Refund(ctx context.Context, transactionID string) error {
	return m.Called(ctx, transactionID).Error(0)
}

// recordingNotifier remembers what it was asked to send.
type recordingNotifier struct {
	mu        sync.Mutex
	confirmed []string
	cancelled []string
}

func (n *recordingNotifier) BookingConfirmed(_ *db.User, _ *db.Car, b *db.Booking, _ loyalty.AccrualResult) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmed = append(n.confirmed, b.ID)
}

func (n *recordingNotifier) BookingCancelled(_ *db.User, _ *db.Car, b *db.Booking) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled = append(n.cancelled, b.ID)
}

type mockLoyaltyRepo struct{ mock.Mock }

func (m *mockLoyaltyRepo) GetOrCreate(ctx context.Context, userID string, newAccount repository.NewAccountFunc) (*loyalty.Account, error) {
	args := m.Called(ctx, userID, newAccount)
	a, _ := args.Get(0).(*loyalty.Account)
	return a, args.Error(1)
}

func (m *mockLoyaltyRepo) Mutate(ctx context.Context, userID string, newAccount repository.NewAccountFunc, fn func(acc *loyalty.Account) error) (*loyalty.Account, error) {
	args := m.Called(ctx, userID, newAccount, fn)
	a, _ := args.Get(0).(*loyalty.Account)
	return a, args.Error(1)
}

func (m *mockLoyaltyRepo) Redeem(ctx context.Context, userID string, newAccount repository.NewAccountFunc,
	redeem func(acc *loyalty.Account) (loyalty.Redemption, error)) (*loyalty.Account, loyalty.Redemption, error) {
	args := m.Called(ctx, userID, newAccount, redeem)
	a, _ := args.Get(0).(*loyalty.Account)
	return a, args.Get(1).(loyalty.Redemption), args.Error(2)
}

func (m *mockLoyaltyRepo) ApplyReferral(ctx context.Context, code, referredUserID string, newAccount repository.NewAccountFunc,
	apply func(referrer, referred *loyalty.Account) error) (*loyalty.Account, *loyalty.Account, error) {
	args := m.Called(ctx, code, referredUserID, newAccount, apply)
	a, _ := args.Get(0).(*loyalty.Account)
	b, _ := args.Get(1).(*loyalty.Account)
	return a, b, args.Error(2)
}

// memSupportRepo keeps tickets in memory and runs Update callbacks for real.
type memSupportRepo struct {
	tickets map[string]*db.SupportTicket
}

func newMemSupportRepo() *memSupportRepo {
	return &memSupportRepo{tickets: map[string]*db.SupportTicket{}}
}

func (r *memSupportRepo) Create(_ context.Context, t *db.SupportTicket) error {
	cp := *t
	r.tickets[t.ID] = &cp
	return nil
}

func (r *memSupportRepo) GetByID(_ context.Context, id string) (*db.SupportTicket, error) {
	t, ok := r.tickets[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *memSupportRepo) GetByNumber(ctx context.Context, number string) (*db.SupportTicket, error) {
	for _, t := range r.tickets {
		if t.TicketNumber == number {
			return r.GetByID(ctx, t.ID)
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *memSupportRepo) List(_ context.Context, f entities.TicketFilter) ([]db.SupportTicket, int64, error) {
	var out []db.SupportTicket
	for _, t := range r.tickets {
		if f.UserID != "" && t.UserID != f.UserID {
			continue
		}
		out = append(out, *t)
	}
	return out, int64(len(out)), nil
}

func (r *memSupportRepo) Update(ctx context.Context, id string, fn func(t *db.SupportTicket) ([]db.SupportMessage, error)) (*db.SupportTicket, error) {
	t, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	added, err := fn(t)
	if err != nil {
		return nil, err
	}
	t.Messages = append(t.Messages, added...)
	r.tickets[id] = t
	return r.GetByID(ctx, id)
}

type memUserRepo struct {
	byID map[string]*db.User
}

func (r *memUserRepo) Create(_ context.Context, u *db.User) error {
	for _, existing := range r.byID {
		if existing.Username == u.Username {
			return apperrors.ErrUsernameTaken
		}
	}
	r.byID[u.ID] = u
	return nil
}

func (r *memUserRepo) GetByUsername(_ context.Context, username string) (*db.User, error) {
	for _, u := range r.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*db.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return u, nil
}

// memTripRepo keeps plans in memory and numbers appended waypoints like the store does.
type memTripRepo struct {
	plans map[string]*db.TripPlan
}

func newMemTripRepo() *memTripRepo {
	return &memTripRepo{plans: map[string]*db.TripPlan{}}
}

func copyTrip(p *db.TripPlan) *db.TripPlan {
	cp := *p
	cp.SharedWith = append([]string{}, p.SharedWith...)
	cp.Waypoints = append([]db.Waypoint{}, p.Waypoints...)
	return &cp
}

func (r *memTripRepo) Create(_ context.Context, p *db.TripPlan) error {
	r.plans[p.ID] = copyTrip(p)
	return nil
}

func (r *memTripRepo) GetByID(_ context.Context, id string) (*db.TripPlan, error) {
	p, ok := r.plans[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return copyTrip(p), nil
}

func (r *memTripRepo) List(_ context.Context, f entities.TripFilter) ([]db.TripPlan, int64, error) {
	out := []db.TripPlan{}
	for _, p := range r.plans {
		if f.UserID != "" && p.UserID != f.UserID && !p.SharedWithUser(f.UserID) {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		out = append(out, *copyTrip(p))
	}
	return out, int64(len(out)), nil
}

func (r *memTripRepo) Update(ctx context.Context, id string, fn func(p *db.TripPlan) ([]db.Waypoint, error)) (*db.TripPlan, error) {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	added, err := fn(p)
	if err != nil {
		return nil, err
	}
	for i := range added {
		added[i].Position = len(p.Waypoints) + i
	}
	p.Waypoints = append(p.Waypoints, added...)
	r.plans[id] = p
	return r.GetByID(ctx, id)
}
