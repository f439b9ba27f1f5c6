package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/refurnish/internal/checkout"
	"github.com/example/refurnish/internal/payment"
)

// Selection handlers

type selectionView struct {
	Selection  payment.Selection   `json:"selection"`
	Valid      bool                `json:"valid"`
	CardErrors payment.FieldErrors `json:"card_errors"`
}

func (s *Server) GetSelection(w http.ResponseWriter, r *http.Request) {
	sel := s.selectorFor(sessionFrom(r).UserID)
	respondJSON(w, http.StatusOK, selectionView{
		Selection:  sel.Selection(),
		Valid:      sel.Valid(),
		CardErrors: sel.CardErrors(),
	})
}

func (s *Server) PutSelection(w http.ResponseWriter, r *http.Request) {
	var req payment.Selection
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	sel := s.selectorFor(sessionFrom(r).UserID)
	sel.SetMode(req.Mode)
	sel.SetEwalletProvider(req.EwalletProvider)
	sel.SetCardType(req.CardType)
	sel.SetCourier(req.Courier)

	respondJSON(w, http.StatusOK, selectionView{
		Selection:  sel.Selection(),
		Valid:      sel.Valid(),
		CardErrors: sel.CardErrors(),
	})
}

func (s *Server) PutCard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HolderName string `json:"holder_name"`
		Number     string `json:"number"`
		Expiry     string `json:"expiry"`
		CVC        string `json:"cvc"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sel := s.selectorFor(sessionFrom(r).UserID)
	sel.SetCard(payment.CardDetails{
		HolderName: req.HolderName,
		Number:     req.Number,
		Expiry:     req.Expiry,
		CVC:        req.CVC,
	})

	respondJSON(w, http.StatusOK, selectionView{
		Selection:  sel.Selection(),
		Valid:      sel.Valid(),
		CardErrors: sel.CardErrors(),
	})
}

// Checkout handlers

func (s *Server) BeginCheckout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	var req struct {
		ShippingAddress string `json:"shipping_address"`
		Notes           string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sel := s.selectorFor(sess.UserID)
	started := time.Now()
	view, err := s.orch.Begin(r.Context(), sess, checkout.SubmitRequest{
		ShippingAddress: req.ShippingAddress,
		Notes:           req.Notes,
		Selection:       sel.Selection(),
		Card:            sel.Card(),
		IdempotencyKey:  r.Header.Get("Idempotency-Key"),
	})
	if view.State == checkout.StateSucceeded || view.State == checkout.StateFailed {
		s.metrics.OrderPlacement.Observe(time.Since(started).Seconds())
	}
	if view.State != "" {
		s.metrics.CheckoutSessions.WithLabelValues(string(sel.Selection().Mode), string(view.State)).Inc()
	}
	clearCardOnTerminal(sel, view.State)

	if err != nil {
		s.respondCheckoutError(w, sel, view, err)
		return
	}
	respondJSON(w, http.StatusCreated, view)
}

// clearCardOnTerminal drops the stored card details once the checkout that
// collected them is over.
func clearCardOnTerminal(sel *payment.Selector, state checkout.State) {
	if state.IsTerminal() {
		sel.ClearCard()
	}
}

func (s *Server) respondCheckoutError(w http.ResponseWriter, sel *payment.Selector, view checkout.SessionView, err error) {
	var cardErr *checkout.CardValidationError
	switch {
	case errors.As(err, &cardErr):
		// First failed attempt unlocks the form's inline errors.
		sel.MarkAttempted()
		respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "card details are invalid",
			"fields": cardErr.Fields,
		})
	case errors.Is(err, checkout.ErrNotAuthenticated):
		respondError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, checkout.ErrSubmissionInProgress):
		respondError(w, http.StatusConflict, "a checkout is already in progress")
	case errors.Is(err, checkout.ErrNoItemsSelected):
		respondError(w, http.StatusUnprocessableEntity, "no items selected")
	case errors.Is(err, checkout.ErrEmptyAddress):
		respondError(w, http.StatusUnprocessableEntity, "shipping address is required")
	case errors.Is(err, payment.ErrUnknownMode),
		errors.Is(err, payment.ErrUnknownProvider),
		errors.Is(err, payment.ErrUnknownCardType),
		errors.Is(err, payment.ErrUnknownCourier):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case view.State == checkout.StateFailed:
		// The session view carries the user-facing failure message.
		respondJSON(w, http.StatusBadGateway, view)
	default:
		s.logger.Error("checkout failed", "error", err)
		respondError(w, http.StatusInternalServerError, "checkout failed")
	}
}

func (s *Server) GetCheckoutSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.orch.Session(r.Context(), sessionFrom(r), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, http.StatusNotFound, "checkout session not found")
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// E-wallet modal handlers

func (s *Server) EwalletLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MobileNumber string `json:"mobile_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	view, err := s.orch.LoginEwallet(r.Context(), sessionFrom(r), chi.URLParam(r, "sessionID"), req.MobileNumber)
	if err != nil {
		s.respondEwalletError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) EwalletProceed(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	started := time.Now()
	view, err := s.orch.ProceedEwallet(r.Context(), sess, chi.URLParam(r, "sessionID"))
	if view.State == checkout.StateSucceeded || view.State == checkout.StateFailed {
		s.metrics.OrderPlacement.Observe(time.Since(started).Seconds())
		s.metrics.CheckoutSessions.WithLabelValues(string(payment.ModeEwallet), string(view.State)).Inc()
	}
	clearCardOnTerminal(s.selectorFor(sess.UserID), view.State)
	if err != nil {
		if view.State == checkout.StateFailed {
			respondJSON(w, http.StatusBadGateway, view)
			return
		}
		s.respondEwalletError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) EwalletCancel(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if err := s.orch.CancelEwallet(r.Context(), sess, chi.URLParam(r, "sessionID")); err != nil {
		s.respondEwalletError(w, err)
		return
	}
	s.metrics.CheckoutSessions.WithLabelValues(string(payment.ModeEwallet), string(checkout.StateCancelled)).Inc()
	clearCardOnTerminal(s.selectorFor(sess.UserID), checkout.StateCancelled)
	respondJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Server) respondEwalletError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, checkout.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "checkout session not found")
	case errors.Is(err, checkout.ErrNotAwaitingEwallet), errors.Is(err, payment.ErrWrongStage):
		respondError(w, http.StatusConflict, "session is not awaiting e-wallet confirmation")
	case errors.Is(err, payment.ErrProcessing), errors.Is(err, checkout.ErrSubmissionInProgress):
		respondError(w, http.StatusConflict, "payment is processing")
	case errors.Is(err, payment.ErrInvalidMobileNumber):
		respondError(w, http.StatusUnprocessableEntity, "mobile number must be 10 digits")
	default:
		s.logger.Error("e-wallet action failed", "error", err)
		respondError(w, http.StatusInternalServerError, "e-wallet action failed")
	}
}
