package payment

import (
	"context"
	"time"
)

// Status is the gateway's settlement status for a processed payment.
type Status string

const (
	StatusSold   Status = "SOLD"
	StatusFailed Status = "FAILED"
)

// Request is a payment to process. ReferenceID is the transaction id the
// checkout synthesized; the gateway echoes it back on settlement.
type Request struct {
	Amount       int64
	Provider     EwalletProvider
	MobileNumber string
	ReferenceID  string
}

// Result is the gateway's resolution. Message is human-readable and safe
// to surface.
type Result struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id"`
	Status        Status `json:"status"`
	Message       string `json:"message,omitempty"`
	Amount        int64  `json:"amount"`
}

// Gateway is the payment-processing capability. The checkout depends only
// on this interface; production would plug a real acquirer adapter here.
type Gateway interface {
	Process(ctx context.Context, req Request) (Result, error)
}

// MockGateway simulates an e-wallet acquirer: amounts in (0, 100000)
// settle, everything else declines. Delay imitates processing latency so
// the UI's in-flight lock is exercised.
type MockGateway struct {
	Delay time.Duration
}

func (g *MockGateway) Process(ctx context.Context, req Request) (Result, error) {
	if g.Delay > 0 {
		select {
		case <-time.After(g.Delay):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}

	if req.Amount <= 0 {
		return Result{
			Success:       false,
			TransactionID: req.ReferenceID,
			Status:        StatusFailed,
			Message:       "invalid amount",
			Amount:        req.Amount,
		}, nil
	}
	if req.Amount >= 100000 {
		return Result{
			Success:       false,
			TransactionID: req.ReferenceID,
			Status:        StatusFailed,
			Message:       "insufficient wallet balance",
			Amount:        req.Amount,
		}, nil
	}

	return Result{
		Success:       true,
		TransactionID: req.ReferenceID,
		Status:        StatusSold,
		Amount:        req.Amount,
	}, nil
}
