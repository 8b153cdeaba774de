package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"carrental/internal/entities"
	apperrors "carrental/internal/errors"
	"carrental/internal/loyalty"
)

func newLoyaltyService() (*LoyaltyService, *mockLoyaltyRepo) {
	repo := &mockLoyaltyRepo{}
	return NewLoyaltyService(repo, loyalty.NewEngine(loyalty.BadgePolicyExact), nil, nopLogger()), repo
}

func TestDashboard_NextTier(t *testing.T) {
	svc, repo := newLoyaltyService()
	end := time.Now().Add(48 * time.Hour)
	start := time.Now().Add(-time.Hour)
	plan := "Monthly"
	repo.On("GetOrCreate", mock.Anything, "user-1", mock.Anything).Return(&loyalty.Account{
		UserID:            "user-1",
		TotalSpent:        1250.5,
		Tier:              loyalty.TierSilver,
		SubscriptionPlan:  &plan,
		SubscriptionStart: &start,
		SubscriptionEnd:   &end,
	}, nil)

	d, err := svc.Dashboard(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, d.NextTier)
	assert.Equal(t, loyalty.TierGold, d.NextTier.Tier)
	assert.InDelta(t, 749.5, d.NextTier.SpendRemaining, 0.001)
	require.NotNil(t, d.Subscription)
	assert.Equal(t, 10, d.Subscription.DiscountPercentage)
}

func TestDashboard_DiamondHasNoNextTier(t *testing.T) {
	svc, repo := newLoyaltyService()
	repo.On("GetOrCreate", mock.Anything, "user-1", mock.Anything).
		Return(&loyalty.Account{UserID: "user-1", TotalSpent: 9000, Tier: loyalty.TierDiamond}, nil)

	d, err := svc.Dashboard(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Nil(t, d.NextTier)
	assert.Nil(t, d.Subscription)
}

// redeemAgainst makes the mocked repository run the engine against acc.
func redeemAgainst(repo *mockLoyaltyRepo, acc *loyalty.Account) {
	repo.On("Redeem", mock.Anything, acc.UserID, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			fn := args.Get(3).(func(*loyalty.Account) (loyalty.Redemption, error))
			_, _ = fn(acc)
		}).
		Return(acc, loyalty.Redemption{}, nil)
}

func TestRedeem_CatalogueReward(t *testing.T) {
	svc, repo := newLoyaltyService()
	acc := &loyalty.Account{UserID: "user-1", Points: 1200}
	redeemAgainst(repo, acc)

	resp, err := svc.Redeem(context.Background(), "user-1", entities.RedeemRequest{RewardID: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(200), resp.RemainingPoints)
	require.Len(t, acc.Redemptions, 1)
	assert.Equal(t, "Free Car Upgrade", acc.Redemptions[0].RewardType)
	assert.Equal(t, int64(1000), acc.Redemptions[0].PointsCost)
}

func TestRedeem_UnknownReward(t *testing.T) {
	svc, repo := newLoyaltyService()

	_, err := svc.Redeem(context.Background(), "user-1", entities.RedeemRequest{RewardID: 99})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	repo.AssertNotCalled(t, "Redeem", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRedeem_CustomRewardNeedsType(t *testing.T) {
	svc, _ := newLoyaltyService()

	_, err := svc.Redeem(context.Background(), "user-1", entities.RedeemRequest{PointsCost: 100})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRedeem_InsufficientPoints(t *testing.T) {
	svc, repo := newLoyaltyService()
	repo.On("Redeem", mock.Anything, "user-1", mock.Anything, mock.Anything).
		Return(nil, loyalty.Redemption{}, apperrors.ErrInsufficientPoints)

	_, err := svc.Redeem(context.Background(), "user-1", entities.RedeemRequest{RewardType: "Free GPS Device", PointsCost: 200})
	assert.ErrorIs(t, err, apperrors.ErrInsufficientPoints)
}

func TestApplyReferral(t *testing.T) {
	svc, repo := newLoyaltyService()
	referrer := &loyalty.Account{UserID: "user-1", ReferralCode: "REFABC123456"}
	referred := &loyalty.Account{UserID: "user-2"}
	repo.On("ApplyReferral", mock.Anything, "REFABC123456", "user-2", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			apply := args.Get(4).(func(referrer, referred *loyalty.Account) error)
			require.NoError(t, apply(referrer, referred))
		}).
		Return(referrer, referred, nil)

	resp, err := svc.ApplyReferral(context.Background(), "user-2", entities.ReferralRequest{ReferralCode: " refabc123456 "})
	require.NoError(t, err)
	assert.Equal(t, loyalty.ReferredBonus, resp.PointsAwarded)
	assert.Equal(t, int64(200), resp.TotalPoints)
	assert.Equal(t, int64(500), referrer.Points)
}

func TestApplyReferral_EmptyCode(t *testing.T) {
	svc, _ := newLoyaltyService()

	_, err := svc.ApplyReferral(context.Background(), "user-2", entities.ReferralRequest{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestSubscribe(t *testing.T) {
	svc, repo := newLoyaltyService()
	acc := &loyalty.Account{UserID: "user-1"}
	repo.On("Mutate", mock.Anything, "user-1", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			fn := args.Get(3).(func(*loyalty.Account) error)
			require.NoError(t, fn(acc))
		}).
		Return(acc, nil)

	sub, err := svc.Subscribe(context.Background(), "user-1", entities.SubscribeRequest{Plan: "quarterly"})
	require.NoError(t, err)
	assert.Equal(t, "Quarterly", sub.Name)
	assert.Equal(t, 90*24*time.Hour, sub.EndDate.Sub(sub.StartDate))
	require.NotNil(t, acc.SubscriptionPlan)
	assert.Equal(t, "Quarterly", *acc.SubscriptionPlan)

	_, err = svc.Subscribe(context.Background(), "user-1", entities.SubscribeRequest{Plan: "weekly"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
