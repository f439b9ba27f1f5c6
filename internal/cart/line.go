package cart

import (
	"context"
	"errors"
)

// MaxQuantity caps a single cart line. Increments clamp here instead of
// erroring.
const MaxQuantity = 99

var (
	ErrLineNotFound     = errors.New("cart line not found")
	ErrMutationInFlight = errors.New("mutation already in flight for this line")
	ErrCacheMiss        = errors.New("cache miss")
)

// Line is one product entry in the user's cart. Selected is session state
// owned by this service; the cart backend never sees it.
type Line struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	UnitPrice    int64  `json:"unit_price"`
	Quantity     int    `json:"quantity"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Selected     bool   `json:"selected"`
}

// OperationStatus tracks the per-line mutation lifecycle.
type OperationStatus int

const (
	StatusIdle OperationStatus = iota
	StatusInFlight
	StatusFailed
)

func (s OperationStatus) String() string {
	switch s {
	case StatusInFlight:
		return "in_flight"
	case StatusFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Backend is the cart persistence collaborator, consumed over REST.
type Backend interface {
	Lines(ctx context.Context, token string) ([]Line, error)
	UpdateQuantity(ctx context.Context, token, lineID string, quantity int) error
	Remove(ctx context.Context, token, lineID string) error
}

// Cache holds a short-lived snapshot of a user's cart lines so each page
// interaction doesn't refetch from the backend.
type Cache interface {
	Get(ctx context.Context, userID string) ([]Line, error)
	Set(ctx context.Context, userID string, lines []Line) error
	Delete(ctx context.Context, userID string) error
}

// SelectionStore persists which lines a user has ticked for checkout,
// surviving service restarts but never reaching the cart backend.
type SelectionStore interface {
	Selected(ctx context.Context, userID string) (map[string]bool, error)
	SetSelected(ctx context.Context, userID, lineID string, selected bool) error
	Clear(ctx context.Context, userID string, lineIDs ...string) error
}
