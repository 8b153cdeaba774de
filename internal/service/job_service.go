package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"carrental/internal/db"
	"carrental/internal/metrics"
)

const (
	reminderWindow = 24 * time.Hour
	jobTimeout     = 5 * time.Minute
)

type JobRepository interface {
	ExpireSubscriptions(ctx context.Context, now time.Time) (int64, error)
	PendingReminders(ctx context.Context, from, to time.Time) ([]db.BookingReminder, error)
	MarkReminded(ctx context.Context, ids []string) (int64, error)
}

type Reminder interface {
	PickupReminder(ctx context.Context, r db.BookingReminder) error
}

type JobService struct {
	repo     JobRepository
	reminder Reminder
	metrics  *metrics.Metrics
	logger   *zerolog.Logger
	cron     *cron.Cron
	now      func() time.Time
}

func NewJobService(repo JobRepository, reminder Reminder, m *metrics.Metrics, logger *zerolog.Logger) *JobService {
	return &JobService{repo: repo, reminder: reminder, metrics: m, logger: logger, now: time.Now}
}

// Start schedules the periodic jobs and returns immediately.
func (s *JobService) Start() error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc("@every 1h", s.wrap("expire_subscriptions", s.ExpireSubscriptions)); err != nil {
		return fmt.Errorf("schedule subscription expiry: %w", err)
	}
	if _, err := s.cron.AddFunc("@every 15m", s.wrap("pickup_reminders", s.SendPickupReminders)); err != nil {
		return fmt.Errorf("schedule pickup reminders: %w", err)
	}
	s.cron.Start()
	s.logger.Info().Msg("cron jobs scheduled")
	return nil
}

// Stop halts the scheduler and waits for running jobs.
func (s *JobService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

func (s *JobService) wrap(name string, job func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		err := job(ctx)
		s.metrics.IncJobRun(name, err)
		if err != nil {
			s.logger.Error().Err(err).Str("job", name).Msg("cron job failed")
		}
	}
}

// ExpireSubscriptions clears membership plans that have ended.
func (s *JobService) ExpireSubscriptions(ctx context.Context) error {
	n, err := s.repo.ExpireSubscriptions(ctx, s.now().UTC())
	if err != nil {
		return fmt.Errorf("cron job: failed to expire subscriptions: %w", err)
	}
	if n > 0 {
		s.logger.Info().Int64("count", n).Msg("expired membership plans")
	}
	return nil
}

// SendPickupReminders texts customers whose rental starts within the next
// 24 hours. Bookings whose reminder failed are retried on the next run.
func (s *JobService) SendPickupReminders(ctx context.Context) error {
	now := s.now().UTC()
	pending, err := s.repo.PendingReminders(ctx, now, now.Add(reminderWindow))
	if err != nil {
		return fmt.Errorf("cron job: failed to get pending reminders: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	sent := make([]string, 0, len(pending))
	for _, r := range pending {
		if err := s.reminder.PickupReminder(ctx, r); err != nil {
			s.logger.Warn().Err(err).Str("booking_id", r.BookingID).Msg("pickup reminder failed")
			continue
		}
		sent = append(sent, r.BookingID)
	}
	if _, err := s.repo.MarkReminded(ctx, sent); err != nil {
		return fmt.Errorf("cron job: failed to mark reminders: %w", err)
	}
	s.logger.Info().Int("sent", len(sent)).Int("pending", len(pending)).Msg("pickup reminders processed")
	return nil
}
