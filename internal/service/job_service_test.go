package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"carrental/internal/db"
)

type mockJobRepo struct{ mock.Mock }

func (m *mockJobRepo) ExpireSubscriptions(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockJobRepo) PendingReminders(ctx context.Context, from, to time.Time) ([]db.BookingReminder, error) {
	args := m.Called(ctx, from, to)
	rs, _ := args.Get(0).([]db.BookingReminder)
	return rs, args.Error(1)
}

func (m *mockJobRepo) MarkReminded(ctx context.Context, ids []string) (int64, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(int64), args.Error(1)
}

type failingReminder struct {
	fail map[string]bool
	sent []string
}

func (r *failingReminder) PickupReminder(_ context.Context, rem db.BookingReminder) error {
	if r.fail[rem.BookingID] {
		return errors.New("twilio unavailable")
	}
	r.sent = append(r.sent, rem.BookingID)
	return nil
}

func TestSendPickupReminders_MarksOnlySent(t *testing.T) {
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	repo := &mockJobRepo{}
	reminder := &failingReminder{fail: map[string]bool{"b-2": true}}
	svc := NewJobService(repo, reminder, nil, nopLogger())
	svc.now = func() time.Time { return now }

	repo.On("PendingReminders", mock.Anything, now, now.Add(24*time.Hour)).Return([]db.BookingReminder{
		{BookingID: "b-1", Phone: "+390000001"},
		{BookingID: "b-2", Phone: "+390000002"},
		{BookingID: "b-3", Phone: "+390000003"},
	}, nil)
	repo.On("MarkReminded", mock.Anything, []string{"b-1", "b-3"}).Return(int64(2), nil).Once()

	require.NoError(t, svc.SendPickupReminders(context.Background()))
	assert.Equal(t, []string{"b-1", "b-3"}, reminder.sent)
	repo.AssertExpectations(t)
}

func TestSendPickupReminders_NothingPending(t *testing.T) {
	repo := &mockJobRepo{}
	svc := NewJobService(repo, &failingReminder{}, nil, nopLogger())
	repo.On("PendingReminders", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)

	require.NoError(t, svc.SendPickupReminders(context.Background()))
	repo.AssertNotCalled(t, "MarkReminded", mock.Anything, mock.Anything)
}

func TestExpireSubscriptions(t *testing.T) {
	repo := &mockJobRepo{}
	svc := NewJobService(repo, &failingReminder{}, nil, nopLogger())
	repo.On("ExpireSubscriptions", mock.Anything, mock.Anything).Return(int64(0), errors.New("db down")).Once()
	repo.On("ExpireSubscriptions", mock.Anything, mock.Anything).Return(int64(3), nil).Once()

	assert.Error(t, svc.ExpireSubscriptions(context.Background()))
	assert.NoError(t, svc.ExpireSubscriptions(context.Background()))
}

func TestStartStop(t *testing.T) {
	svc := NewJobService(&mockJobRepo{}, &failingReminder{}, nil, nopLogger())
	require.NoError(t, svc.Start())
	svc.Stop()
}
