package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"carrental/internal/auth"
	"carrental/internal/db"
	"carrental/internal/entities"
	apperrors "carrental/internal/errors"
)

const minPasswordLength = 8

type UserRepository interface {
	Create(ctx context.Context, u *db.User) error
	GetByUsername(ctx context.Context, username string) (*db.User, error)
	GetByID(ctx context.Context, id string) (*db.User, error)
}

type UserService struct {
	repo   UserRepository
	tokens *auth.TokenManager
	logger *zerolog.Logger
	now    func() time.Time
}

func NewUserService(repo UserRepository, tokens *auth.TokenManager, logger *zerolog.Logger) *UserService {
	return &UserService{repo: repo, tokens: tokens, logger: logger, now: time.Now}
}

func (s *UserService) Register(ctx context.Context, req entities.RegisterRequest) (*db.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || len(req.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: username and a password of at least %d characters are required",
			apperrors.ErrValidation, minPasswordLength)
	}
	if req.Email != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			return nil, fmt.Errorf("%w: invalid email", apperrors.ErrValidation)
		}
	}
	lang := strings.ToLower(req.Language)
	switch lang {
	case "en", "es", "it":
	case "":
		lang = "en"
	default:
		return nil, fmt.Errorf("%w: unsupported language %q", apperrors.ErrValidation, req.Language)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}
	now := s.now().UTC()
	u := &db.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         db.RoleUser,
		Email:        req.Email,
		Phone:        req.Phone,
		Language:     lang,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", u.ID).Str("username", u.Username).Msg("user registered")
	return u, nil
}

// Login checks the credentials and issues a bearer token. Unknown users and
// wrong passwords are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, req entities.LoginRequest) (*entities.LoginResponse, error) {
	u, err := s.repo.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthorized)
	}
	token, exp, err := s.tokens.Issue(u.ID, u.Username, u.Role)
	if err != nil {
		return nil, err
	}
	return &entities.LoginResponse{Token: token, ExpiresAt: exp, UserID: u.ID, Username: u.Username, Role: u.Role}, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*db.User, error) {
	return s.repo.GetByID(ctx, id)
}
