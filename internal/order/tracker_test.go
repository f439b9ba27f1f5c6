package order

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/refurnish/internal/auth"
)

var trackerSession = auth.Session{
	UserID: "user-1",
	Email:  "buyer@example.com",
	Role:   "buyer",
	Token:  "token-1",
}

type stubReader struct {
	mu     sync.Mutex
	orders []PlacedOrder
	err    error
	tokens []string
}

func (r *stubReader) MyOrders(_ context.Context, token string) ([]PlacedOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, token)
	if r.err != nil {
		return nil, r.err
	}
	return r.orders, nil
}

func (r *stubReader) Order(_ context.Context, _, orderID string) (PlacedOrder, error) {
	for _, o := range r.orders {
		if o.ID == orderID {
			return o, nil
		}
	}
	return PlacedOrder{}, errors.New("not found")
}

func (r *stubReader) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}

func (r *stubReader) calledWith() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.tokens))
	copy(out, r.tokens)
	return out
}

type stubProber struct {
	mu     sync.Mutex
	err    error
	hang   bool
	probes int
}

func (p *stubProber) Healthy(ctx context.Context) error {
	p.mu.Lock()
	err, hang := p.err, p.hang
	p.probes++
	p.mu.Unlock()
	if hang {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func newTestTracker(reader *stubReader, prober *stubProber) *Tracker {
	return NewTracker(reader, prober, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSyncRequiresAuthentication(t *testing.T) {
	reader := &stubReader{}
	prober := &stubProber{}
	tracker := newTestTracker(reader, prober)

	_, err := tracker.Sync(context.Background(), auth.Session{})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Zero(t, prober.probes)
	assert.Zero(t, reader.callCount())
}

func TestSyncFetchesOncePerToken(t *testing.T) {
	reader := &stubReader{orders: []PlacedOrder{
		{ID: "order-1", Status: StatusPreparing, TotalAmount: 2650, ShippingFee: 150},
	}}
	tracker := newTestTracker(reader, &stubProber{})
	ctx := context.Background()

	orders, err := tracker.Sync(ctx, trackerSession)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, int64(2500), orders[0].DisplaySubtotal())
	assert.Equal(t, AvailabilityAvailable, tracker.Availability(trackerSession))

	// Same token: served from the cached outcome, no refetch.
	_, err = tracker.Sync(ctx, trackerSession)
	require.NoError(t, err)
	assert.Equal(t, 1, reader.callCount())

	// A new token is a session change and refetches.
	relogin := trackerSession
	relogin.Token = "token-2"
	_, err = tracker.Sync(ctx, relogin)
	require.NoError(t, err)
	assert.Equal(t, 2, reader.callCount())
}

func TestSyncCachesIndependentlyPerUser(t *testing.T) {
	reader := &stubReader{orders: []PlacedOrder{{ID: "order-1", Status: StatusPreparing}}}
	tracker := newTestTracker(reader, &stubProber{})
	ctx := context.Background()

	alice := auth.Session{UserID: "alice", Token: "token-alice"}
	bob := auth.Session{UserID: "bob", Token: "token-bob"}

	_, err := tracker.Sync(ctx, alice)
	require.NoError(t, err)
	_, err = tracker.Sync(ctx, bob)
	require.NoError(t, err)

	// Bob's fetch must not evict alice's slot.
	_, err = tracker.Sync(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"token-alice", "token-bob"}, reader.calledWith())
}

func TestSyncEmptyOrderListIsNotAnError(t *testing.T) {
	tracker := newTestTracker(&stubReader{}, &stubProber{})

	orders, err := tracker.Sync(context.Background(), trackerSession)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestFailedProbeSuppressesFetch(t *testing.T) {
	reader := &stubReader{}
	prober := &stubProber{err: errors.New("connection refused")}
	tracker := newTestTracker(reader, prober)
	ctx := context.Background()

	_, err := tracker.Sync(ctx, trackerSession)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.Equal(t, AvailabilityUnavailable, tracker.Availability(trackerSession))
	assert.Zero(t, reader.callCount(), "unavailable backend must not be queried")

	// The failed outcome is cached; no probe storm on re-render.
	_, err = tracker.Sync(ctx, trackerSession)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.Equal(t, 1, prober.probes)
}

func TestRetryRecoversFromOutage(t *testing.T) {
	reader := &stubReader{orders: []PlacedOrder{{ID: "order-1", Status: StatusShipped}}}
	prober := &stubProber{err: errors.New("connection refused")}
	tracker := newTestTracker(reader, prober)
	ctx := context.Background()

	_, err := tracker.Sync(ctx, trackerSession)
	require.ErrorIs(t, err, ErrBackendUnavailable)

	prober.mu.Lock()
	prober.err = nil
	prober.mu.Unlock()

	orders, err := tracker.Retry(ctx, trackerSession)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
	assert.Equal(t, AvailabilityAvailable, tracker.Availability(trackerSession))
}

func TestProbeTimeoutMeansUnavailable(t *testing.T) {
	tracker := newTestTracker(&stubReader{}, &stubProber{hang: true})
	tracker.probeTimeout = 10 * time.Millisecond

	_, err := tracker.Sync(context.Background(), trackerSession)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.Equal(t, AvailabilityUnavailable, tracker.Availability(trackerSession))
}

func TestFetchFailureIsNotAnOutage(t *testing.T) {
	reader := &stubReader{err: errors.New("500 internal server error")}
	tracker := newTestTracker(reader, &stubProber{})

	_, err := tracker.Sync(context.Background(), trackerSession)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBackendUnavailable)
	assert.Equal(t, AvailabilityAvailable, tracker.Availability(trackerSession))
}

func TestOrderDetail(t *testing.T) {
	reader := &stubReader{orders: []PlacedOrder{{
		ID:     "order-1",
		Status: StatusOutForDelivery,
		Items:  []Item{{ProductID: "item-a", Name: "Narra coffee table", Quantity: 2, UnitPrice: 1000}},
	}}}
	tracker := newTestTracker(reader, &stubProber{})

	got, err := tracker.Order(context.Background(), trackerSession, "order-1")
	require.NoError(t, err)
	assert.Equal(t, StatusOutForDelivery, got.Status)
	assert.Equal(t, int64(2000), got.Items[0].LineTotal())

	_, err = tracker.Order(context.Background(), auth.Session{}, "order-1")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}
