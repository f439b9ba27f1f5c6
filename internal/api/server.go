// Package api exposes the checkout workflow over HTTP: cart operations,
// payment/delivery selection, checkout sessions with the mock e-wallet
// modal, order tracking, and the seller dashboard.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/example/refurnish/internal/api/middleware"
	"github.com/example/refurnish/internal/auth"
	"github.com/example/refurnish/internal/cart"
	"github.com/example/refurnish/internal/checkout"
	"github.com/example/refurnish/internal/order"
	"github.com/example/refurnish/internal/payment"
	"github.com/example/refurnish/internal/push"
	"github.com/example/refurnish/internal/seller"
	"github.com/example/refurnish/internal/telemetry"
)

// Server holds the handlers' dependencies plus the per-user UI state this
// service keeps on behalf of the frontend: one payment selector per user
// and one dashboard per seller.
type Server struct {
	cart       *cart.Store
	orch       *checkout.Orchestrator
	tracker    *order.Tracker
	products   seller.ProductService
	uploader   seller.Uploader
	subscriber push.Subscriber
	metrics    *telemetry.Metrics
	logger     *slog.Logger
	baseCtx    context.Context

	mu         sync.Mutex
	selectors  map[string]*payment.Selector
	dashboards map[string]*seller.Dashboard
}

// NewServer builds the handler set. baseCtx bounds the background work the
// server spawns (dashboard refresh loops); cancelling it stops them all.
func NewServer(
	baseCtx context.Context,
	cartStore *cart.Store,
	orch *checkout.Orchestrator,
	tracker *order.Tracker,
	products seller.ProductService,
	uploader seller.Uploader,
	subscriber push.Subscriber,
	metrics *telemetry.Metrics,
	logger *slog.Logger,
) *Server {
	return &Server{
		cart:       cartStore,
		orch:       orch,
		tracker:    tracker,
		products:   products,
		uploader:   uploader,
		subscriber: subscriber,
		metrics:    metrics,
		logger:     logger,
		baseCtx:    baseCtx,
		selectors:  make(map[string]*payment.Selector),
		dashboards: make(map[string]*seller.Dashboard),
	}
}

// Shutdown closes every open seller dashboard.
func (s *Server) Shutdown() {
	s.mu.Lock()
	dashboards := make([]*seller.Dashboard, 0, len(s.dashboards))
	for _, d := range s.dashboards {
		dashboards = append(dashboards, d)
	}
	s.dashboards = make(map[string]*seller.Dashboard)
	s.mu.Unlock()

	for _, d := range dashboards {
		d.Close()
	}
}

// selectorFor returns the user's payment selector, creating it with the
// defaults on first use.
func (s *Server) selectorFor(userID string) *payment.Selector {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, ok := s.selectors[userID]
	if !ok {
		sel = payment.NewSelector(nil)
		s.selectors[userID] = sel
	}
	return sel
}

func sessionFrom(r *http.Request) auth.Session {
	if sess, ok := middleware.SessionFromContext(r.Context()); ok {
		return *sess
	}
	return auth.Session{}
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
