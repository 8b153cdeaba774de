package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user',
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT 'en',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS cars (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		image TEXT NOT NULL DEFAULT '',
		car_type TEXT NOT NULL,
		fuel_type TEXT NOT NULL,
		transmission TEXT NOT NULL DEFAULT 'Automatic',
		capacity INT NOT NULL DEFAULT 4,
		rent_per_hour NUMERIC(10,2) NOT NULL CHECK (rent_per_hour > 0),
		base_price_per_hour NUMERIC(10,2) NOT NULL DEFAULT 0,
		currency TEXT NOT NULL DEFAULT 'EUR',
		features TEXT[] NOT NULL DEFAULT '{}',
		average_rating NUMERIC(3,2) NOT NULL DEFAULT 0,
		total_reviews INT NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS car_reviews (
		id UUID PRIMARY KEY,
		car_id UUID NOT NULL REFERENCES cars(id) ON DELETE CASCADE,
		user_id UUID NOT NULL REFERENCES users(id),
		rating INT NOT NULL CHECK (rating BETWEEN 1 AND 5),
		comment TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id UUID PRIMARY KEY,
		car_id UUID NOT NULL REFERENCES cars(id),
		user_id UUID NOT NULL REFERENCES users(id),
		time_from TIMESTAMPTZ NOT NULL,
		time_to TIMESTAMPTZ NOT NULL,
		total_hours INT NOT NULL,
		amount NUMERIC(12,2) NOT NULL CHECK (amount > 0),
		driver_required BOOLEAN NOT NULL DEFAULT FALSE,
		transaction_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'confirmed',
		reminder_sent BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		cancelled_at TIMESTAMPTZ,
		CHECK (time_from < time_to)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_user ON bookings(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_transaction ON bookings(transaction_id)`,
	`CREATE TABLE IF NOT EXISTS car_reserved_intervals (
		booking_id UUID PRIMARY KEY REFERENCES bookings(id) ON DELETE CASCADE,
		car_id UUID NOT NULL REFERENCES cars(id),
		time_from TIMESTAMPTZ NOT NULL,
		time_to TIMESTAMPTZ NOT NULL,
		CHECK (time_from < time_to)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reserved_intervals_car ON car_reserved_intervals(car_id, time_from)`,
	`CREATE TABLE IF NOT EXISTS loyalty_accounts (
		user_id UUID PRIMARY KEY REFERENCES users(id),
		points BIGINT NOT NULL DEFAULT 0 CHECK (points >= 0),
		total_bookings INT NOT NULL DEFAULT 0 CHECK (total_bookings >= 0),
		total_spent NUMERIC(12,2) NOT NULL DEFAULT 0 CHECK (total_spent >= 0),
		tier TEXT NOT NULL DEFAULT 'Bronze',
		referral_code TEXT NOT NULL UNIQUE,
		referred_by TEXT,
		subscription_plan TEXT,
		subscription_start TIMESTAMPTZ,
		subscription_end TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS loyalty_badges (
		user_id UUID NOT NULL REFERENCES loyalty_accounts(user_id),
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		earned_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS loyalty_redemptions (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES loyalty_accounts(user_id),
		reward_type TEXT NOT NULL,
		points_cost BIGINT NOT NULL CHECK (points_cost > 0),
		redeemed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS loyalty_referrals (
		referred_user_id UUID PRIMARY KEY REFERENCES loyalty_accounts(user_id),
		referrer_user_id UUID NOT NULL REFERENCES loyalty_accounts(user_id),
		referral_code TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (referred_user_id <> referrer_user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS support_tickets (
		id UUID PRIMARY KEY,
		ticket_number TEXT NOT NULL UNIQUE,
		user_id UUID NOT NULL REFERENCES users(id),
		subject TEXT NOT NULL,
		category TEXT NOT NULL,
		priority TEXT NOT NULL DEFAULT 'Medium',
		status TEXT NOT NULL DEFAULT 'Open',
		description TEXT NOT NULL,
		assigned_to TEXT,
		related_booking_id UUID,
		rating_score INT CHECK (rating_score BETWEEN 1 AND 5),
		rating_feedback TEXT,
		rated_at TIMESTAMPTZ,
		resolution_minutes INT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS support_messages (
		id UUID PRIMARY KEY,
		ticket_id UUID NOT NULL REFERENCES support_tickets(id) ON DELETE CASCADE,
		sender TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS trip_plans (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id),
		booking_id UUID REFERENCES bookings(id),
		trip_name TEXT NOT NULL,
		start_location JSONB NOT NULL DEFAULT '{}',
		destination JSONB NOT NULL DEFAULT '{}',
		trip_type TEXT NOT NULL DEFAULT 'RoundTrip',
		preferences JSONB NOT NULL DEFAULT '{}',
		estimated_distance DOUBLE PRECISION CHECK (estimated_distance >= 0),
		estimated_duration INT CHECK (estimated_duration >= 0),
		status TEXT NOT NULL DEFAULT 'Planning',
		shared_with TEXT[] NOT NULL DEFAULT '{}',
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trip_plans_user ON trip_plans(user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS trip_waypoints (
		id UUID PRIMARY KEY,
		trip_plan_id UUID NOT NULL REFERENCES trip_plans(id) ON DELETE CASCADE,
		position INT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		stop_duration INT NOT NULL DEFAULT 0 CHECK (stop_duration >= 0),
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (trip_plan_id, position)
	)`,
}

// InitSchema creates the tables the service needs. Every statement is
// idempotent so it runs on each start.
func InitSchema(ctx context.Context, conn *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}
