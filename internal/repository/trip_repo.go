package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"

	"carrental/internal/db"
	"carrental/internal/entities"
	apperrors "carrental/internal/errors"
)

const tripColumns = `id, user_id, booking_id, trip_name, start_location, destination, trip_type, preferences,
	estimated_distance, estimated_duration, status, shared_with, notes, created_at, updated_at`

const waypointColumns = `id, trip_plan_id, position, name, address, latitude, longitude, stop_duration, notes, created_at`

type TripRepository struct {
	DB *sqlx.DB
}

func NewTripRepository(db *sqlx.DB) *TripRepository {
	return &TripRepository{DB: db}
}

// Create stores the plan and its initial waypoints.
func (r *TripRepository) Create(ctx context.Context, p *db.TripPlan) error {
	return inTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO trip_plans (`+tripColumns+`)
			VALUES (:id, :user_id, :booking_id, :trip_name, :start_location, :destination, :trip_type, :preferences,
				:estimated_distance, :estimated_duration, :status, :shared_with, :notes, :created_at, :updated_at)`, p)
		if isCheckViolation(err) {
			return fmt.Errorf("%w: trip plan violates store constraints", apperrors.ErrValidation)
		}
		if err != nil {
			return fmt.Errorf("error inserting trip plan: %w", err)
		}
		for i := range p.Waypoints {
			if err := insertWaypoint(ctx, tx, &p.Waypoints[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *TripRepository) GetByID(ctx context.Context, id string) (*db.TripPlan, error) {
	var p db.TripPlan
	if err := r.DB.GetContext(ctx, &p, `SELECT `+tripColumns+` FROM trip_plans WHERE id = $1`, id); err != nil {
		return nil, notFound(err, "trip plan")
	}
	p.Waypoints = []db.Waypoint{}
	err := r.DB.SelectContext(ctx, &p.Waypoints,
		`SELECT `+waypointColumns+` FROM trip_waypoints WHERE trip_plan_id = $1 ORDER BY position`, p.ID)
	if err != nil {
		return nil, fmt.Errorf("error querying waypoints: %w", err)
	}
	return &p, nil
}

// List returns plans newest first. Waypoints are only loaded by GetByID.
func (r *TripRepository) List(ctx context.Context, f entities.TripFilter) ([]db.TripPlan, int64, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	idx := 1

	if f.UserID != "" {
		where += " AND (user_id::text = $" + strconv.Itoa(idx) + " OR $" + strconv.Itoa(idx) + " = ANY(shared_with))"
		args = append(args, f.UserID)
		idx++
	}
	if f.Status != "" {
		where += " AND status = $" + strconv.Itoa(idx)
		args = append(args, f.Status)
		idx++
	}

	var total int64
	if err := r.DB.GetContext(ctx, &total, `SELECT COUNT(*) FROM trip_plans`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("error counting trip plans: %w", err)
	}
	query := `SELECT ` + tripColumns + ` FROM trip_plans` + where +
		" ORDER BY created_at DESC LIMIT $" + strconv.Itoa(idx) + " OFFSET $" + strconv.Itoa(idx+1)
	args = append(args, f.Limit, f.Offset)

	plans := []db.TripPlan{}
	if err := r.DB.SelectContext(ctx, &plans, query, args...); err != nil {
		return nil, 0, fmt.Errorf("error listing trip plans: %w", err)
	}
	return plans, total, nil
}

// Update locks the plan, hands it to fn with its current waypoints and
// writes back the mutable columns. Waypoints fn returns are appended after
// the existing ones.
func (r *TripRepository) Update(ctx context.Context, id string, fn func(p *db.TripPlan) ([]db.Waypoint, error)) (*db.TripPlan, error) {
	err := inTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		var p db.TripPlan
		err := tx.GetContext(ctx, &p, `SELECT `+tripColumns+` FROM trip_plans WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return notFound(err, "trip plan")
		}
		p.Waypoints = []db.Waypoint{}
		err = tx.SelectContext(ctx, &p.Waypoints,
			`SELECT `+waypointColumns+` FROM trip_waypoints WHERE trip_plan_id = $1 ORDER BY position`, p.ID)
		if err != nil {
			return fmt.Errorf("error querying waypoints: %w", err)
		}

		added, err := fn(&p)
		if err != nil {
			return err
		}
		_, err = tx.NamedExecContext(ctx, `
			UPDATE trip_plans SET
				trip_name = :trip_name, start_location = :start_location, destination = :destination,
				trip_type = :trip_type, preferences = :preferences, estimated_distance = :estimated_distance,
				estimated_duration = :estimated_duration, status = :status, shared_with = :shared_with,
				notes = :notes, updated_at = :updated_at
			WHERE id = :id`, &p)
		if isCheckViolation(err) {
			return fmt.Errorf("%w: trip plan violates store constraints", apperrors.ErrValidation)
		}
		if err != nil {
			return fmt.Errorf("error updating trip plan: %w", err)
		}
		next := len(p.Waypoints)
		for i := range added {
			added[i].Position = next + i
			if err := insertWaypoint(ctx, tx, &added[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func insertWaypoint(ctx context.Context, tx *sqlx.Tx, w *db.Waypoint) error {
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO trip_waypoints (`+waypointColumns+`)
		VALUES (:id, :trip_plan_id, :position, :name, :address, :latitude, :longitude, :stop_duration, :notes, :created_at)`, w)
	if isCheckViolation(err) {
		return fmt.Errorf("%w: waypoint violates store constraints", apperrors.ErrValidation)
	}
	if err != nil {
		return fmt.Errorf("error inserting waypoint: %w", err)
	}
	return nil
}
