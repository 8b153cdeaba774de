package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	apperrors "carrental/internal/errors"
	"carrental/internal/utils"
)

// StripeGateway charges cards with confirmed PaymentIntents.
type StripeGateway struct {
	api    *client.API
	logger *zerolog.Logger
}

func NewStripeGateway(secretKey string, logger *zerolog.Logger) *StripeGateway {
	return &StripeGateway{api: client.New(secretKey, nil), logger: logger}
}

func (g *StripeGateway) Charge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = string(stripe.CurrencyEUR)
	}
	pm := strings.TrimSpace(req.PaymentMethod)
	if pm == "" {
		return nil, fmt.Errorf("%w: payment_method is required", apperrors.ErrValidation)
	}

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(utils.ToCents(req.Amount)),
		Currency:           stripe.String(currency),
		PaymentMethod:      stripe.String(pm),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Confirm:            stripe.Bool(true),
		Description:        stripe.String(req.Description),
	}
	if req.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(req.ReceiptEmail)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	params.Context = ctx

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			g.logger.Warn().Str("code", string(stripeErr.Code)).Str("message", stripeErr.Msg).Msg("stripe charge declined")
			return nil, fmt.Errorf("%w: %s", apperrors.ErrPaymentFailed, stripeErr.Msg)
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPaymentFailed, err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, fmt.Errorf("%w: payment intent %s is %s", apperrors.ErrPaymentFailed, pi.ID, pi.Status)
	}
	return &Charge{TransactionID: pi.ID, Status: string(pi.Status), Amount: req.Amount}, nil
}

// Refund returns the full amount of a PaymentIntent.
func (g *StripeGateway) Refund(ctx context.Context, transactionID string) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(transactionID),
	}
	params.Context = ctx
	if _, err := g.api.Refunds.New(params); err != nil {
		return fmt.Errorf("refund %s: %w", transactionID, err)
	}
	return nil
}
