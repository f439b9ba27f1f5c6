package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/refurnish/internal/auth"
	"github.com/example/refurnish/internal/cache"
	"github.com/example/refurnish/internal/cart"
	"github.com/example/refurnish/internal/checkout"
	"github.com/example/refurnish/internal/order"
	"github.com/example/refurnish/internal/payment"
	"github.com/example/refurnish/internal/push"
	"github.com/example/refurnish/internal/seller"
	"github.com/example/refurnish/internal/telemetry"
)

// ============================================================
// Mocks
// ============================================================

type stubCartBackend struct {
	mu    sync.Mutex
	lines []cart.Line
}

func (b *stubCartBackend) Lines(_ context.Context, _ string) ([]cart.Line, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]cart.Line, len(b.lines))
	copy(out, b.lines)
	return out, nil
}

func (b *stubCartBackend) UpdateQuantity(_ context.Context, _, lineID string, quantity int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.lines {
		if b.lines[i].ID == lineID {
			b.lines[i].Quantity = quantity
			return nil
		}
	}
	return cart.ErrLineNotFound
}

func (b *stubCartBackend) Remove(_ context.Context, _, lineID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.lines {
		if b.lines[i].ID == lineID {
			b.lines = append(b.lines[:i], b.lines[i+1:]...)
			return nil
		}
	}
	return cart.ErrLineNotFound
}

type stubPlacer struct{}

func (stubPlacer) Place(_ context.Context, _ string, _ checkout.Draft) (string, error) {
	return "order-77", nil
}

type stubReader struct{}

func (stubReader) MyOrders(_ context.Context, _ string) ([]order.PlacedOrder, error) {
	return []order.PlacedOrder{{ID: "order-77", Status: order.StatusPreparing, TotalAmount: 2650, ShippingFee: 150}}, nil
}

func (stubReader) Order(_ context.Context, _, orderID string) (order.PlacedOrder, error) {
	return order.PlacedOrder{ID: orderID, Status: order.StatusPreparing}, nil
}

type stubProber struct{}

func (stubProber) Healthy(_ context.Context) error { return nil }

type stubProducts struct{}

func (stubProducts) ListAll(_ context.Context, _ string) ([]seller.Product, error) {
	return []seller.Product{
		{ID: "prod-1", SellerID: "seller-1", Name: "Narra coffee table", Price: 3000, Status: seller.StatusApproved},
	}, nil
}

func (stubProducts) Create(_ context.Context, _ string, p seller.Product) (seller.Product, error) {
	p.ID = "prod-new"
	return p, nil
}

func (stubProducts) Update(_ context.Context, _ string, p seller.Product) (seller.Product, error) {
	return p, nil
}

type stubUploader struct{}

func (stubUploader) Upload(_ context.Context, _ string, img seller.ImageUpload) (string, error) {
	return "https://images.example.com/" + img.Filename, nil
}

// ============================================================
// Harness
// ============================================================

type apiEnv struct {
	router      http.Handler
	jwt         *auth.JWTService
	buyerToken  string
	sellerToken string
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jwtService := auth.NewJWTService("test-secret-key", 15*time.Minute)

	backend := &stubCartBackend{lines: []cart.Line{
		{ID: "item-a", Name: "Narra coffee table", UnitPrice: 1000, Quantity: 1},
		{ID: "item-b", Name: "Rattan lounge chair", UnitPrice: 1500, Quantity: 1},
	}}
	selection := cache.NewMemoryCache()
	require.NoError(t, selection.SetSelected(context.Background(), "user-1", "item-a", true))
	require.NoError(t, selection.SetSelected(context.Background(), "user-1", "item-b", true))

	cartStore := cart.NewStore(backend, selection, selection, logger)
	orch := checkout.NewOrchestrator(checkout.Config{
		Cart:    cartStore,
		Placer:  stubPlacer{},
		Gateway: &payment.MockGateway{},
		Repo:    checkout.NewMemoryRepository(),
		Logger:  logger,
	})
	tracker := order.NewTracker(stubReader{}, stubProber{}, logger)

	server := NewServer(context.Background(), cartStore, orch, tracker,
		stubProducts{}, stubUploader{}, push.NewBus(), telemetry.NewMetrics(), logger)
	t.Cleanup(server.Shutdown)

	buyerToken, _, err := jwtService.GenerateAccessToken("user-1", "buyer@example.com", "buyer")
	require.NoError(t, err)
	sellerToken, _, err := jwtService.GenerateAccessToken("seller-1", "seller@example.com", "seller")
	require.NoError(t, err)

	return &apiEnv{
		router:      NewRouter(server, jwtService),
		jwt:         jwtService,
		buyerToken:  buyerToken,
		sellerToken: sellerToken,
	}
}

func (env *apiEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// ============================================================
// Tests
// ============================================================

func TestRouterRequiresAuth(t *testing.T) {
	env := newAPIEnv(t)
	rec := env.do(t, http.MethodGet, "/api/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthz(t *testing.T) {
	env := newAPIEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCartEndpoints(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodGet, "/api/cart", env.buyerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	lines := decode[[]cart.Line](t, rec)
	require.Len(t, lines, 2)
	assert.True(t, lines[0].Selected)

	rec = env.do(t, http.MethodPost, "/api/cart/items/item-a/increment", env.buyerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/cart", env.buyerToken, nil)
	lines = decode[[]cart.Line](t, rec)
	assert.Equal(t, 2, lines[0].Quantity)

	rec = env.do(t, http.MethodPost, "/api/cart/items/item-a/toggle", env.buyerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	toggle := decode[map[string]bool](t, rec)
	assert.False(t, toggle["selected"])

	rec = env.do(t, http.MethodPost, "/api/cart/items/missing/increment", env.buyerToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckoutCashOnDelivery(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodPost, "/api/checkout", env.buyerToken, map[string]string{
		"shipping_address": "123 Mabini St, Quezon City",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	view := decode[checkout.SessionView](t, rec)
	assert.Equal(t, checkout.StateSucceeded, view.State)
	assert.Equal(t, "order-77", view.OrderID)
	assert.Equal(t, int64(2650), view.Totals.Total)
}

func TestCheckoutEwalletFlow(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodPut, "/api/checkout/selection", env.buyerToken, payment.Selection{
		Mode:            payment.ModeEwallet,
		EwalletProvider: payment.ProviderGCash,
		Courier:         payment.CourierJT,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/checkout", env.buyerToken, map[string]string{
		"shipping_address": "123 Mabini St, Quezon City",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	view := decode[checkout.SessionView](t, rec)
	require.Equal(t, checkout.StateAwaitingEwallet, view.State)

	base := "/api/checkout/sessions/" + view.ID
	rec = env.do(t, http.MethodPost, base+"/ewallet/login", env.buyerToken, map[string]string{
		"mobile_number": "0917555012",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, base+"/ewallet/proceed", env.buyerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view = decode[checkout.SessionView](t, rec)
	assert.Equal(t, checkout.StateSucceeded, view.State)
}

func TestCheckoutInvalidCardSurfacesFieldErrors(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodPut, "/api/checkout/selection", env.buyerToken, payment.Selection{
		Mode:     payment.ModeDebitCredit,
		CardType: payment.CardCredit,
		Courier:  payment.CourierLBC,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Errors stay hidden before the first attempt.
	sel := decode[selectionView](t, rec)
	assert.Empty(t, sel.CardErrors)
	assert.False(t, sel.Valid)

	rec = env.do(t, http.MethodPost, "/api/checkout", env.buyerToken, map[string]string{
		"shipping_address": "123 Mabini St, Quezon City",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Contains(t, body, "fields")

	// The failed attempt unlocks the inline errors.
	rec = env.do(t, http.MethodGet, "/api/checkout/selection", env.buyerToken, nil)
	sel = decode[selectionView](t, rec)
	assert.NotEmpty(t, sel.CardErrors)
}

func TestCardDetailsDiscardedAfterCheckout(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodPut, "/api/checkout/selection", env.buyerToken, payment.Selection{
		Mode:     payment.ModeDebitCredit,
		CardType: payment.CardCredit,
		Courier:  payment.CourierLBC,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/checkout/card", env.buyerToken, map[string]string{
		"holder_name": "Juan Dela Cruz",
		"number":      "4539578763621486",
		"expiry":      "12/27",
		"cvc":         "123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	sel := decode[selectionView](t, rec)
	require.True(t, sel.Valid)

	rec = env.do(t, http.MethodPost, "/api/checkout", env.buyerToken, map[string]string{
		"shipping_address": "123 Mabini St, Quezon City",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// The stored card is gone once the checkout settles; the next
	// purchase starts from an empty, quiet form.
	rec = env.do(t, http.MethodGet, "/api/checkout/selection", env.buyerToken, nil)
	sel = decode[selectionView](t, rec)
	assert.False(t, sel.Valid)
	assert.Empty(t, sel.CardErrors)
	assert.Equal(t, payment.ModeDebitCredit, sel.Selection.Mode)
}

func TestOrdersEndpoint(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodGet, "/api/orders", env.buyerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]json.RawMessage](t, rec)
	assert.JSONEq(t, `"available"`, string(body["availability"]))

	var orders []order.PlacedOrder
	require.NoError(t, json.Unmarshal(body["orders"], &orders))
	require.Len(t, orders, 1)
	assert.Equal(t, "order-77", orders[0].ID)
}

func TestSellerEndpointsRequireSellerRole(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodGet, "/api/seller/products", env.buyerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/seller/products", env.sellerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	products := decode[[]seller.Product](t, rec)
	require.Len(t, products, 1)
	assert.Equal(t, "prod-1", products[0].ID)

	rec = env.do(t, http.MethodGet, "/api/seller/stats", env.sellerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[seller.Stats](t, rec)
	assert.Equal(t, 1, stats.Total)
}
