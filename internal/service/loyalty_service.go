package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"carrental/internal/entities"
	apperrors "carrental/internal/errors"
	"carrental/internal/loyalty"
	"carrental/internal/metrics"
	"carrental/internal/repository"
)

type LoyaltyRepository interface {
	GetOrCreate(ctx context.Context, userID string, newAccount repository.NewAccountFunc) (*loyalty.Account, error)
	Mutate(ctx context.Context, userID string, newAccount repository.NewAccountFunc, fn func(acc *loyalty.Account) error) (*loyalty.Account, error)
	Redeem(ctx context.Context, userID string, newAccount repository.NewAccountFunc,
		redeem func(acc *loyalty.Account) (loyalty.Redemption, error)) (*loyalty.Account, loyalty.Redemption, error)
	ApplyReferral(ctx context.Context, code, referredUserID string, newAccount repository.NewAccountFunc,
		apply func(referrer, referred *loyalty.Account) error) (*loyalty.Account, *loyalty.Account, error)
}

// next tier and the lifetime spend that unlocks it
var tierLadder = []struct {
	tier  loyalty.Tier
	spend float64
}{
	{loyalty.TierSilver, 1000},
	{loyalty.TierGold, 2000},
	{loyalty.TierPlatinum, 3000},
	{loyalty.TierDiamond, 5000},
}

type LoyaltyService struct {
	repo    LoyaltyRepository
	engine  *loyalty.Engine
	metrics *metrics.Metrics
	logger  *zerolog.Logger
	now     func() time.Time
}

func NewLoyaltyService(repo LoyaltyRepository, engine *loyalty.Engine, m *metrics.Metrics, logger *zerolog.Logger) *LoyaltyService {
	return &LoyaltyService{repo: repo, engine: engine, metrics: m, logger: logger, now: time.Now}
}

// Dashboard returns the account together with its active plan and the spend
// still needed for the next tier.
func (s *LoyaltyService) Dashboard(ctx context.Context, userID string) (*entities.LoyaltyDashboard, error) {
	acc, err := s.repo.GetOrCreate(ctx, userID, s.engine.NewAccount)
	if err != nil {
		return nil, err
	}
	out := &entities.LoyaltyDashboard{Account: acc, NextTier: nextTier(acc)}
	if sub, ok := acc.ActiveSubscription(s.now()); ok {
		out.Subscription = &sub
	}
	return out, nil
}

func nextTier(acc *loyalty.Account) *entities.NextTierProgress {
	for _, step := range tierLadder {
		if step.tier.Rank() > acc.Tier.Rank() {
			remaining := step.spend - acc.TotalSpent
			if remaining < 0 {
				remaining = 0
			}
			return &entities.NextTierProgress{Tier: step.tier, SpendRemaining: float64(int64(remaining*100+0.5)) / 100}
		}
	}
	return nil
}

func (s *LoyaltyService) Rewards() []loyalty.Reward {
	return loyalty.Rewards()
}

// Redeem spends points on a catalogue reward, or on a custom reward when no
// reward id is given.
func (s *LoyaltyService) Redeem(ctx context.Context, userID string, req entities.RedeemRequest) (*entities.RedeemResponse, error) {
	rewardType := strings.TrimSpace(req.RewardType)
	cost := req.PointsCost
	if req.RewardID != 0 {
		reward, err := loyalty.RewardByID(req.RewardID)
		if err != nil {
			return nil, err
		}
		rewardType, cost = reward.Name, reward.PointsCost
	}
	if rewardType == "" {
		return nil, fmt.Errorf("%w: reward_type is required", apperrors.ErrValidation)
	}

	acc, redemption, err := s.repo.Redeem(ctx, userID, s.engine.NewAccount, func(acc *loyalty.Account) (loyalty.Redemption, error) {
		return s.engine.Redeem(acc, rewardType, cost)
	})
	if err != nil {
		s.metrics.IncRedemption("rejected")
		return nil, err
	}
	s.metrics.IncRedemption("redeemed")
	s.logger.Info().Str("user_id", userID).Str("reward", rewardType).Int64("cost", cost).
		Int64("remaining", acc.Points).Msg("points redeemed")

	return &entities.RedeemResponse{
		Redemption:      redemption,
		RemainingPoints: acc.Points,
		Message:         fmt.Sprintf("Successfully redeemed %s", rewardType),
	}, nil
}

func (s *LoyaltyService) ApplyReferral(ctx context.Context, userID string, req entities.ReferralRequest) (*entities.ReferralResponse, error) {
	code := strings.ToUpper(strings.TrimSpace(req.ReferralCode))
	if code == "" {
		return nil, fmt.Errorf("%w: referral_code is required", apperrors.ErrValidation)
	}
	referrer, referred, err := s.repo.ApplyReferral(ctx, code, userID, s.engine.NewAccount, s.engine.ApplyReferral)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("referrer", referrer.UserID).Str("referred", referred.UserID).Msg("referral applied")
	return &entities.ReferralResponse{
		PointsAwarded: loyalty.ReferredBonus,
		TotalPoints:   referred.Points,
		Message:       "Referral applied",
	}, nil
}

func (s *LoyaltyService) Subscribe(ctx context.Context, userID string, req entities.SubscribeRequest) (*loyalty.Subscription, error) {
	plan, err := loyalty.PlanByName(req.Plan)
	if err != nil {
		return nil, err
	}
	var sub loyalty.Subscription
	_, err = s.repo.Mutate(ctx, userID, s.engine.NewAccount, func(acc *loyalty.Account) error {
		sub = s.engine.Subscribe(acc, plan)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", userID).Str("plan", plan.Name).Time("ends", sub.EndDate).Msg("subscription started")
	return &sub, nil
}
