package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/example/refurnish/internal/auth"
	"github.com/example/refurnish/internal/order"
)

func (s *Server) GetOrders(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	orders, err := s.tracker.Sync(r.Context(), sess)
	s.respondOrders(w, sess, orders, err)
}

func (s *Server) RetryOrders(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	orders, err := s.tracker.Retry(r.Context(), sess)
	s.respondOrders(w, sess, orders, err)
}

func (s *Server) respondOrders(w http.ResponseWriter, sess auth.Session, orders []order.PlacedOrder, err error) {
	switch {
	case err == nil:
		if orders == nil {
			orders = []order.PlacedOrder{}
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"availability": s.tracker.Availability(sess).String(),
			"orders":       orders,
		})
	case errors.Is(err, order.ErrNotAuthenticated):
		respondError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, order.ErrBackendUnavailable):
		respondJSON(w, http.StatusServiceUnavailable, map[string]any{
			"availability": order.AvailabilityUnavailable.String(),
			"error":        "order service is unavailable",
		})
	default:
		s.logger.Error("order fetch failed", "error", err)
		respondError(w, http.StatusBadGateway, "failed to load orders")
	}
}

func (s *Server) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := s.tracker.Order(r.Context(), sessionFrom(r), chi.URLParam(r, "orderID"))
	if err != nil {
		if errors.Is(err, order.ErrNotAuthenticated) {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		respondError(w, http.StatusNotFound, "order not found")
		return
	}
	respondJSON(w, http.StatusOK, o)
}
