package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	apperrors "carrental/internal/errors"
	"carrental/internal/loyalty"
)

// NewAccountFunc builds the account inserted on a user's first loyalty event.
type NewAccountFunc func(userID string) (*loyalty.Account, error)

const accountColumns = `user_id, points, total_bookings, total_spent, tier, referral_code, referred_by,
	subscription_plan, subscription_start, subscription_end, created_at, updated_at`

type LoyaltyRepository struct {
	DB *sqlx.DB
}

func NewLoyaltyRepository(db *sqlx.DB) *LoyaltyRepository {
	return &LoyaltyRepository{DB: db}
}

// GetOrCreate returns the account for userID, creating it when the user has
// never earned anything.
func (r *LoyaltyRepository) GetOrCreate(ctx context.Context, userID string, newAccount NewAccountFunc) (*loyalty.Account, error) {
	var acc *loyalty.Account
	err := inTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		var err error
		acc, err = lockAccount(ctx, tx, userID, newAccount)
		if err != nil {
			return err
		}
		return sqlx.SelectContext(ctx, tx, &acc.Redemptions, `
			SELECT id, reward_type, points_cost, redeemed_at
			FROM loyalty_redemptions WHERE user_id = $1
			ORDER BY redeemed_at DESC LIMIT 50`, userID)
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// Mutate locks the account, applies fn and persists the result.
func (r *LoyaltyRepository) Mutate(ctx context.Context, userID string, newAccount NewAccountFunc, fn func(acc *loyalty.Account) error) (*loyalty.Account, error) {
	var acc *loyalty.Account
	err := inTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		var err error
		acc, err = lockAccount(ctx, tx, userID, newAccount)
		if err != nil {
			return err
		}
		if err := fn(acc); err != nil {
			return err
		}
		return saveAccount(ctx, tx, acc)
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// Redeem spends points on a reward. The balance is decremented with a
// conditional update so it can never go negative even if the in-memory check
// was stale.
func (r *LoyaltyRepository) Redeem(ctx context.Context, userID string, newAccount NewAccountFunc,
	redeem func(acc *loyalty.Account) (loyalty.Redemption, error)) (*loyalty.Account, loyalty.Redemption, error) {
	var (
		acc        *loyalty.Account
		redemption loyalty.Redemption
	)
	err := inTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		var err error
		acc, err = lockAccount(ctx, tx, userID, newAccount)
		if err != nil {
			return err
		}
		redemption, err = redeem(acc)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE loyalty_accounts SET points = points - $1, updated_at = $3
			WHERE user_id = $2 AND points >= $1`,
			redemption.PointsCost, userID, acc.UpdatedAt)
		if err != nil {
			return fmt.Errorf("error deducting points: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return apperrors.ErrInsufficientPoints
		}
		redemption.ID = uuid.NewString()
		if n := len(acc.Redemptions); n > 0 {
			acc.Redemptions[n-1].ID = redemption.ID
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO loyalty_redemptions (id, user_id, reward_type, points_cost, redeemed_at)
			VALUES ($1, $2, $3, $4, $5)`,
			redemption.ID, userID, redemption.RewardType, redemption.PointsCost, redemption.RedeemedAt)
		if err != nil {
			return fmt.Errorf("error recording redemption: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, loyalty.Redemption{}, err
	}
	return acc, redemption, nil
}

// ApplyReferral credits referrer and referred user in one transaction. The
// referral table is keyed on the referred user, so a second referral for the
// same user fails even under concurrency.
func (r *LoyaltyRepository) ApplyReferral(ctx context.Context, code, referredUserID string, newAccount NewAccountFunc,
	apply func(referrer, referred *loyalty.Account) error) (*loyalty.Account, *loyalty.Account, error) {
	var referrer, referred *loyalty.Account
	err := inTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		var found loyalty.Account
		err := tx.GetContext(ctx, &found,
			`SELECT `+accountColumns+` FROM loyalty_accounts WHERE referral_code = $1 FOR UPDATE`, code)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.ErrInvalidReferral
		}
		if err != nil {
			return fmt.Errorf("error querying referral code: %w", err)
		}
		referrer = &found

		if referrer.UserID == referredUserID {
			referred = referrer
		} else {
			referred, err = lockAccount(ctx, tx, referredUserID, newAccount)
			if err != nil {
				return err
			}
		}
		if err := apply(referrer, referred); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO loyalty_referrals (referred_user_id, referrer_user_id, referral_code, applied_at)
			VALUES ($1, $2, $3, $4)`,
			referred.UserID, referrer.UserID, code, referred.UpdatedAt)
		if isUniqueViolation(err, "") {
			return apperrors.ErrReferralAlreadyApplied
		}
		if err != nil {
			return fmt.Errorf("error recording referral: %w", err)
		}
		if err := saveAccount(ctx, tx, referrer); err != nil {
			return err
		}
		return saveAccount(ctx, tx, referred)
	})
	if err != nil {
		return nil, nil, err
	}
	return referrer, referred, nil
}

// lockAccount selects the account FOR UPDATE, inserting a fresh one first
// when the user has none.
func lockAccount(ctx context.Context, tx *sqlx.Tx, userID string, newAccount NewAccountFunc) (*loyalty.Account, error) {
	var acc loyalty.Account
	query := `SELECT ` + accountColumns + ` FROM loyalty_accounts WHERE user_id = $1 FOR UPDATE`
	err := tx.GetContext(ctx, &acc, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		fresh, err := newAccount(userID)
		if err != nil {
			return nil, err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO loyalty_accounts (user_id, points, total_bookings, total_spent, tier, referral_code, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (user_id) DO NOTHING`,
			fresh.UserID, fresh.Points, fresh.TotalBookings, fresh.TotalSpent, fresh.Tier, fresh.ReferralCode,
			fresh.CreatedAt, fresh.UpdatedAt)
		if isUniqueViolation(err, "loyalty_accounts_referral_code_key") {
			return nil, fmt.Errorf("%w: referral code collision", apperrors.ErrConcurrentModification)
		}
		if err != nil {
			return nil, fmt.Errorf("error creating loyalty account: %w", err)
		}
		err = tx.GetContext(ctx, &acc, query, userID)
		if err != nil {
			return nil, fmt.Errorf("error loading new loyalty account: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("error querying loyalty account: %w", err)
	}

	err = tx.SelectContext(ctx, &acc.Badges,
		`SELECT name, description, earned_at FROM loyalty_badges WHERE user_id = $1 ORDER BY earned_at, name`, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying badges: %w", err)
	}
	return &acc, nil
}

func saveAccount(ctx context.Context, tx *sqlx.Tx, acc *loyalty.Account) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE loyalty_accounts SET
			points = $2, total_bookings = $3, total_spent = $4, tier = $5, referred_by = $6,
			subscription_plan = $7, subscription_start = $8, subscription_end = $9, updated_at = $10
		WHERE user_id = $1`,
		acc.UserID, acc.Points, acc.TotalBookings, acc.TotalSpent, acc.Tier, acc.ReferredBy,
		acc.SubscriptionPlan, acc.SubscriptionStart, acc.SubscriptionEnd, acc.UpdatedAt)
	if isCheckViolation(err) {
		return fmt.Errorf("%w: loyalty totals must stay non-negative", apperrors.ErrValidation)
	}
	if err != nil {
		return fmt.Errorf("error saving loyalty account: %w", err)
	}
	for _, b := range acc.Badges {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO loyalty_badges (user_id, name, description, earned_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, name) DO NOTHING`,
			acc.UserID, b.Name, b.Description, b.EarnedAt)
		if err != nil {
			return fmt.Errorf("error saving badge %q: %w", b.Name, err)
		}
	}
	return nil
}
