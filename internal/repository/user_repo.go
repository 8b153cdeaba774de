package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"carrental/internal/db"
	apperrors "carrental/internal/errors"
)

const userColumns = `id, username, password_hash, role, email, phone, language, created_at, updated_at`

type UserRepository struct {
	DB *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(ctx context.Context, u *db.User) error {
	_, err := r.DB.NamedExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (:id, :username, :password_hash, :role, :email, :phone, :language, :created_at, :updated_at)`, u)
	if isUniqueViolation(err, "users_username_key") {
		return apperrors.ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("error inserting user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*db.User, error) {
	var u db.User
	if err := r.DB.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE username = $1`, username); err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*db.User, error) {
	var u db.User
	if err := r.DB.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id); err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}
