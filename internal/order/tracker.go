package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/refurnish/internal/auth"
)

// ProbeTimeout caps the liveness probe. A backend that cannot answer the
// root endpoint within it is treated as down.
const ProbeTimeout = 5 * time.Second

var (
	ErrNotAuthenticated   = errors.New("authentication required")
	ErrBackendUnavailable = errors.New("order backend is unavailable")
)

// Reader is the order-read collaborator.
type Reader interface {
	MyOrders(ctx context.Context, token string) ([]PlacedOrder, error)
	Order(ctx context.Context, token, orderID string) (PlacedOrder, error)
}

// HealthProber checks backend liveness. A nil error means healthy.
type HealthProber interface {
	Healthy(ctx context.Context) error
}

// Availability is the tracker's last known view of the backend.
type Availability int

const (
	AvailabilityUnknown Availability = iota
	AvailabilityAvailable
	AvailabilityUnavailable
)

func (a Availability) String() string {
	switch a {
	case AvailabilityAvailable:
		return "available"
	case AvailabilityUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// outcome is one user's recorded fetch result. The token it was fetched
// under is kept so a relogin invalidates the slot.
type outcome struct {
	token        string
	availability Availability
	orders       []PlacedOrder
	loadErr      error
}

// Tracker is a read-only projection of each user's orders. It probes the
// backend before the first fetch, caches the outcome per user, and never
// auto-polls; a stale or failed view is refreshed only through Retry.
type Tracker struct {
	reader       Reader
	prober       HealthProber
	logger       *slog.Logger
	probeTimeout time.Duration

	mu       sync.Mutex
	outcomes map[string]*outcome
}

func NewTracker(reader Reader, prober HealthProber, logger *slog.Logger) *Tracker {
	return &Tracker{
		reader:       reader,
		prober:       prober,
		logger:       logger,
		probeTimeout: ProbeTimeout,
		outcomes:     make(map[string]*outcome),
	}
}

// Availability reports the last probe verdict recorded for the user.
func (t *Tracker) Availability(sess auth.Session) Availability {
	t.mu.Lock()
	defer t.mu.Unlock()
	if o, ok := t.outcomes[sess.UserID]; ok {
		return o.availability
	}
	return AvailabilityUnknown
}

// Sync returns the user's orders, fetching at most once per token. A
// relogin invalidates the user's slot; everything else, including a
// failed fetch, is served from the recorded outcome until Retry.
func (t *Tracker) Sync(ctx context.Context, sess auth.Session) ([]PlacedOrder, error) {
	if sess.UserID == "" || sess.Token == "" {
		return nil, ErrNotAuthenticated
	}

	t.mu.Lock()
	if o, ok := t.outcomes[sess.UserID]; ok && o.token == sess.Token {
		orders, err := o.snapshot()
		t.mu.Unlock()
		return orders, err
	}
	t.mu.Unlock()

	return t.refresh(ctx, sess)
}

// Retry forces a fresh probe and fetch, for the user-facing retry control.
func (t *Tracker) Retry(ctx context.Context, sess auth.Session) ([]PlacedOrder, error) {
	if sess.UserID == "" || sess.Token == "" {
		return nil, ErrNotAuthenticated
	}
	return t.refresh(ctx, sess)
}

// Order fetches a single order for the detail view, bypassing the cache.
func (t *Tracker) Order(ctx context.Context, sess auth.Session, orderID string) (PlacedOrder, error) {
	if sess.UserID == "" || sess.Token == "" {
		return PlacedOrder{}, ErrNotAuthenticated
	}
	return t.reader.Order(ctx, sess.Token, orderID)
}

func (t *Tracker) refresh(ctx context.Context, sess auth.Session) ([]PlacedOrder, error) {
	probeCtx, cancel := context.WithTimeout(ctx, t.probeTimeout)
	err := t.prober.Healthy(probeCtx)
	cancel()
	if err != nil {
		t.logger.Warn("order backend probe failed", "error", err, "user_id", sess.UserID)
		return t.record(sess, AvailabilityUnavailable, nil, ErrBackendUnavailable)
	}

	orders, err := t.reader.MyOrders(ctx, sess.Token)
	if err != nil {
		// The backend is up but the fetch failed; this renders as a load
		// error with a retry, not as an outage.
		loadErr := fmt.Errorf("failed to load orders: %w", err)
		t.logger.Error("order fetch failed", "error", err, "user_id", sess.UserID)
		return t.record(sess, AvailabilityAvailable, nil, loadErr)
	}

	return t.record(sess, AvailabilityAvailable, orders, nil)
}

// record stores the outcome and returns its snapshot under the same lock,
// so a concurrent refresh for another user cannot interpose.
func (t *Tracker) record(sess auth.Session, availability Availability, orders []PlacedOrder, err error) ([]PlacedOrder, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	o := &outcome{
		token:        sess.Token,
		availability: availability,
		orders:       orders,
		loadErr:      err,
	}
	t.outcomes[sess.UserID] = o
	return o.snapshot()
}

func (o *outcome) snapshot() ([]PlacedOrder, error) {
	if o.loadErr != nil {
		return nil, o.loadErr
	}
	out := make([]PlacedOrder, len(o.orders))
	copy(out, o.orders)
	return out, nil
}
