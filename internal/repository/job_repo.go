package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"carrental/internal/db"
)

type JobRepository struct {
	DB *sqlx.DB
}

func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{DB: db}
}

// ExpireSubscriptions clears membership plans whose end date is not after now.
func (r *JobRepository) ExpireSubscriptions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE loyalty_accounts
		SET subscription_plan = NULL, subscription_start = NULL, subscription_end = NULL, updated_at = $1
		WHERE subscription_end IS NOT NULL AND subscription_end <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("error expiring subscriptions: %w", err)
	}
	return res.RowsAffected()
}

// PendingReminders lists confirmed bookings starting in [from, to) that have
// not been reminded yet.
func (r *JobRepository) PendingReminders(ctx context.Context, from, to time.Time) ([]db.BookingReminder, error) {
	var out []db.BookingReminder
	err := r.DB.SelectContext(ctx, &out, `
		SELECT b.id AS booking_id, b.time_from, c.name AS car_name,
			u.username, u.email, u.phone, u.language
		FROM bookings b
		JOIN cars c ON c.id = b.car_id
		JOIN users u ON u.id = b.user_id
		WHERE b.status = $1 AND NOT b.reminder_sent
			AND b.time_from >= $2 AND b.time_from < $3
		ORDER BY b.time_from`, db.BookingStatusConfirmed, from, to)
	if err != nil {
		return nil, fmt.Errorf("error querying pending reminders: %w", err)
	}
	return out, nil
}

// MarkReminded flags the bookings so later runs skip them.
func (r *JobRepository) MarkReminded(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE bookings SET reminder_sent = TRUE, updated_at = NOW() WHERE id = ANY($1::uuid[])`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("error marking reminders: %w", err)
	}
	return res.RowsAffected()
}
