package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/example/refurnish/internal/auth"
	"github.com/example/refurnish/internal/cart"
)

func (s *Server) GetCart(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	lines, err := s.cart.Lines(r.Context(), sess)
	if err != nil {
		s.logger.Error("failed to load cart", "error", err, "user_id", sess.UserID)
		respondError(w, http.StatusBadGateway, "failed to load cart")
		return
	}
	respondJSON(w, http.StatusOK, lines)
}

func (s *Server) IncrementCartLine(w http.ResponseWriter, r *http.Request) {
	s.mutateCartLine(w, r, "increment", s.cart.Increment)
}

func (s *Server) DecrementCartLine(w http.ResponseWriter, r *http.Request) {
	s.mutateCartLine(w, r, "decrement", s.cart.Decrement)
}

func (s *Server) RemoveCartLine(w http.ResponseWriter, r *http.Request) {
	s.mutateCartLine(w, r, "remove", s.cart.Remove)
}

func (s *Server) mutateCartLine(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, sess auth.Session, lineID string) error) {
	sess := sessionFrom(r)
	lineID := chi.URLParam(r, "lineID")

	err := fn(r.Context(), sess, lineID)
	switch {
	case err == nil:
		s.metrics.CartMutations.WithLabelValues(op, "ok").Inc()
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case errors.Is(err, cart.ErrMutationInFlight):
		// The earlier mutation wins; this one was dropped, not queued.
		s.metrics.CartMutations.WithLabelValues(op, "dropped").Inc()
		respondError(w, http.StatusConflict, "a change for this item is still in flight")
	case errors.Is(err, cart.ErrLineNotFound):
		respondError(w, http.StatusNotFound, "cart item not found")
	default:
		s.metrics.CartMutations.WithLabelValues(op, "error").Inc()
		s.logger.Error("cart mutation failed", "error", err, "operation", op, "line_id", lineID)
		respondError(w, http.StatusBadGateway, "cart update failed")
	}
}

func (s *Server) ToggleCartSelection(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	lineID := chi.URLParam(r, "lineID")

	selected, err := s.cart.ToggleSelection(r.Context(), sess, lineID)
	if err != nil {
		if errors.Is(err, cart.ErrLineNotFound) {
			respondError(w, http.StatusNotFound, "cart item not found")
			return
		}
		s.logger.Error("selection toggle failed", "error", err, "line_id", lineID)
		respondError(w, http.StatusInternalServerError, "failed to toggle selection")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"selected": selected})
}

func (s *Server) CartLineStatus(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	lineID := chi.URLParam(r, "lineID")
	status := s.cart.Status(sess.UserID, lineID)
	respondJSON(w, http.StatusOK, map[string]string{"status": status.String()})
}
