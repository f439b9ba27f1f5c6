package checkout

import (
	"context"
	"errors"
	"time"
)

// State is a checkout session's position in its lifecycle.
type State string

const (
	StateIdle            State = "IDLE"
	StateAwaitingEwallet State = "AWAITING_EWALLET_CONFIRMATION"
	StateSubmitting      State = "SUBMITTING"
	StateSucceeded       State = "SUCCEEDED"
	StateFailed          State = "FAILED"
	StateCancelled       State = "CANCELLED"
)

// IsTerminal reports whether the session can no longer move.
func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateCancelled
}

func (s State) String() string {
	return string(s)
}

var (
	ErrSessionNotFound        = errors.New("checkout session not found")
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")
)

// Record is the persisted view of a checkout session. Replaying an
// idempotency key returns the recorded outcome instead of re-submitting
// the order.
type Record struct {
	ID             string
	UserID         string
	IdempotencyKey string
	State          State
	TransactionID  string
	OrderID        string
	FailureMessage string
	Total          int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Repository stores checkout session records. Postgres in production, an
// in-memory implementation in tests.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	UpdateState(ctx context.Context, id string, state State, orderID, failureMessage string) error
	Find(ctx context.Context, id string) (*Record, error)
	FindByIdempotencyKey(ctx context.Context, userID, key string) (*Record, error)
}
