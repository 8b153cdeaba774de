// Package payment charges and refunds rental bookings.
package payment

import (
	"context"

	"github.com/rs/zerolog"

	"carrental/internal/utils"
)

type ChargeRequest struct {
	Amount         float64
	Currency       string
	Description    string
	PaymentMethod  string
	ReceiptEmail   string
	IdempotencyKey string
	Metadata       map[string]string
}

type Charge struct {
	TransactionID string
	Status        string
	Amount        float64
}

// Gateway is the payment collaborator used by the booking flow. A charge
// must succeed before a booking is persisted; Refund undoes it.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*Charge, error)
	Refund(ctx context.Context, transactionID string) error
}

// OfflineGateway accepts every charge and issues BOOK-XXXXXXXX transaction
// ids. It is used when no card processor is configured.
type OfflineGateway struct {
	logger *zerolog.Logger
}

func NewOfflineGateway(logger *zerolog.Logger) *OfflineGateway {
	return &OfflineGateway{logger: logger}
}

func (g *OfflineGateway) Charge(_ context.Context, req ChargeRequest) (*Charge, error) {
	id := utils.OfflineTransactionID()
	g.logger.Debug().Str("transaction_id", id).Float64("amount", req.Amount).Msg("offline charge accepted")
	return &Charge{TransactionID: id, Status: "succeeded", Amount: req.Amount}, nil
}

func (g *OfflineGateway) Refund(_ context.Context, transactionID string) error {
	g.logger.Debug().Str("transaction_id", transactionID).Msg("offline refund recorded")
	return nil
}
