package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const maxWebhookBody = int64(65536)

type StripeWebhookHandler struct {
	StripeSecret string
	bookings     BookingService
	logger       *zerolog.Logger
}

func NewStripeWebhookHandler(stripeSecret string, bookings BookingService, logger *zerolog.Logger) *StripeWebhookHandler {
	return &StripeWebhookHandler{StripeSecret: stripeSecret, bookings: bookings, logger: logger}
}

func (h *StripeWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Warn().Err(err).Msg("error reading webhook body")
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), h.StripeSecret)
	if err != nil {
		h.logger.Warn().Err(err).Msg("webhook signature verification failed")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := h.handleEvent(r.Context(), event); err != nil {
		h.logger.Error().Err(err).Str("event_id", event.ID).Str("type", string(event.Type)).Msg("webhook handling failed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleEvent cancels the booking paid by a refunded payment intent. Other
// event types are acknowledged and ignored.
func (h *StripeWebhookHandler) handleEvent(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "charge.refunded":
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return fmt.Errorf("parse charge: %w", err)
		}
		if charge.PaymentIntent == nil || charge.PaymentIntent.ID == "" {
			h.logger.Debug().Str("charge", charge.ID).Msg("refunded charge without payment intent")
			return nil
		}
		b, err := h.bookings.CancelRefunded(ctx, charge.PaymentIntent.ID)
		if err != nil {
			return err
		}
		if b == nil {
			h.logger.Info().Str("payment_intent", charge.PaymentIntent.ID).Msg("no booking for refunded payment intent")
		}
	default:
		h.logger.Debug().Str("type", string(event.Type)).Msg("unhandled event type")
	}
	return nil
}
