package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"

	"carrental/internal/db"
	"carrental/internal/entities"
)

const carColumns = `id, name, image, car_type, fuel_type, transmission, capacity, rent_per_hour,
	base_price_per_hour, currency, features, average_rating, total_reviews, is_active, created_at, updated_at`

var carSortColumns = map[string]string{
	"name":          "name",
	"rentPerHour":   "rent_per_hour",
	"rent_per_hour": "rent_per_hour",
	"rating":        "average_rating",
	"averageRating": "average_rating",
}

type CarRepository struct {
	DB *sqlx.DB
}

func NewCarRepository(db *sqlx.DB) *CarRepository {
	return &CarRepository{DB: db}
}

func (r *CarRepository) List(ctx context.Context, f entities.CarFilter) ([]db.Car, int64, error) {
	where := " WHERE is_active"
	args := []interface{}{}
	idx := 1

	if f.CarType != "" {
		where += " AND car_type = $" + strconv.Itoa(idx)
		args = append(args, f.CarType)
		idx++
	}
	if f.FuelType != "" {
		where += " AND fuel_type = $" + strconv.Itoa(idx)
		args = append(args, f.FuelType)
		idx++
	}
	if f.MinPrice > 0 {
		where += " AND rent_per_hour >= $" + strconv.Itoa(idx)
		args = append(args, f.MinPrice)
		idx++
	}
	if f.MaxPrice > 0 {
		where += " AND rent_per_hour <= $" + strconv.Itoa(idx)
		args = append(args, f.MaxPrice)
		idx++
	}

	var total int64
	if err := r.DB.GetContext(ctx, &total, `SELECT COUNT(*) FROM cars`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("error counting cars: %w", err)
	}

	sortCol, ok := carSortColumns[f.SortBy]
	if !ok {
		sortCol = "created_at"
	}
	order := "ASC"
	if f.Order == "desc" {
		order = "DESC"
	}
	query := `SELECT ` + carColumns + ` FROM cars` + where +
		" ORDER BY " + sortCol + " " + order + ", id LIMIT $" + strconv.Itoa(idx) + " OFFSET $" + strconv.Itoa(idx+1)
	args = append(args, f.Limit, f.Offset)

	cars := []db.Car{}
	if err := r.DB.SelectContext(ctx, &cars, query, args...); err != nil {
		return nil, 0, fmt.Errorf("error listing cars: %w", err)
	}
	return cars, total, nil
}

// Featured returns the best rated active cars with an average of at least
// minRating.
func (r *CarRepository) Featured(ctx context.Context, minRating float64, limit int) ([]db.Car, error) {
	cars := []db.Car{}
	err := r.DB.SelectContext(ctx, &cars, `SELECT `+carColumns+` FROM cars
		WHERE is_active AND average_rating >= $1
		ORDER BY average_rating DESC, total_reviews DESC LIMIT $2`, minRating, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing featured cars: %w", err)
	}
	return cars, nil
}

func (r *CarRepository) GetByID(ctx context.Context, id string) (*db.Car, error) {
	var c db.Car
	if err := r.DB.GetContext(ctx, &c, `SELECT `+carColumns+` FROM cars WHERE id = $1`, id); err != nil {
		return nil, notFound(err, "car")
	}
	intervals, err := reservedIntervals(ctx, r.DB, id)
	if err != nil {
		return nil, err
	}
	c.ReservedIntervals = intervals
	return &c, nil
}

func (r *CarRepository) Create(ctx context.Context, c *db.Car) error {
	_, err := r.DB.NamedExecContext(ctx, `
		INSERT INTO cars (`+carColumns+`)
		VALUES (:id, :name, :image, :car_type, :fuel_type, :transmission, :capacity, :rent_per_hour,
			:base_price_per_hour, :currency, :features, :average_rating, :total_reviews, :is_active, :created_at, :updated_at)`, c)
	if err != nil {
		return fmt.Errorf("error inserting car: %w", err)
	}
	return nil
}

func (r *CarRepository) Update(ctx context.Context, c *db.Car) error {
	res, err := r.DB.NamedExecContext(ctx, `
		UPDATE cars SET
			name = :name, image = :image, car_type = :car_type, fuel_type = :fuel_type,
			transmission = :transmission, capacity = :capacity, rent_per_hour = :rent_per_hour,
			base_price_per_hour = :base_price_per_hour, currency = :currency, features = :features,
			is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`, c)
	if err != nil {
		return fmt.Errorf("error updating car: %w", err)
	}
	return requireRow(res, "car")
}

// Deactivate hides a car from listings and booking. Bookings keep their
// reference so the row is never removed.
func (r *CarRepository) Deactivate(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE cars SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deactivating car: %w", err)
	}
	return requireRow(res, "car")
}

// AddReview stores a review and refreshes the car's rating aggregate in the
// same transaction.
func (r *CarRepository) AddReview(ctx context.Context, rv *db.Review) (*db.Car, error) {
	var c db.Car
	err := inTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		var id string
		if err := tx.GetContext(ctx, &id, `SELECT id FROM cars WHERE id = $1 FOR UPDATE`, rv.CarID); err != nil {
			return notFound(err, "car")
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO car_reviews (id, car_id, user_id, rating, comment, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			rv.ID, rv.CarID, rv.UserID, rv.Rating, rv.Comment, rv.CreatedAt)
		if err != nil {
			return fmt.Errorf("error inserting review: %w", err)
		}
		return tx.GetContext(ctx, &c, `
			UPDATE cars SET
				average_rating = (SELECT ROUND(AVG(rating)::numeric, 2) FROM car_reviews WHERE car_id = $1),
				total_reviews = (SELECT COUNT(*) FROM car_reviews WHERE car_id = $1),
				updated_at = NOW()
			WHERE id = $1
			RETURNING `+carColumns, rv.CarID)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CarRepository) Reviews(ctx context.Context, carID string) ([]db.Review, error) {
	reviews := []db.Review{}
	err := r.DB.SelectContext(ctx, &reviews, `
		SELECT rv.id, rv.car_id, rv.user_id, u.username, rv.rating, rv.comment, rv.created_at
		FROM car_reviews rv
		JOIN users u ON u.id = rv.user_id
		WHERE rv.car_id = $1
		ORDER BY rv.created_at DESC`, carID)
	if err != nil {
		return nil, fmt.Errorf("error listing reviews: %w", err)
	}
	return reviews, nil
}
