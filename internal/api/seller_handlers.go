package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/example/refurnish/internal/seller"
)

// dashboardFor lazily opens the seller's dashboard: first request loads the
// mirror and subscribes to push events; later requests reuse it.
func (s *Server) dashboardFor(r *http.Request) (*seller.Dashboard, error) {
	sess := sessionFrom(r)

	s.mu.Lock()
	dash, ok := s.dashboards[sess.UserID]
	s.mu.Unlock()
	if ok {
		return dash, nil
	}

	dash = seller.NewDashboard(s.products, s.uploader, s.subscriber, s.logger)
	// The refresh loop outlives this request; it stops when the dashboard
	// is closed or the server shuts down.
	if err := dash.Open(s.baseCtx, sess); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if existing, ok := s.dashboards[sess.UserID]; ok {
		s.mu.Unlock()
		dash.Close()
		return existing, nil
	}
	s.dashboards[sess.UserID] = dash
	s.mu.Unlock()
	return dash, nil
}

func (s *Server) GetSellerProducts(w http.ResponseWriter, r *http.Request) {
	dash, err := s.dashboardFor(r)
	if err != nil {
		s.respondSellerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dash.Products())
}

func (s *Server) GetSellerStats(w http.ResponseWriter, r *http.Request) {
	dash, err := s.dashboardFor(r)
	if err != nil {
		s.respondSellerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dash.Stats())
}

func (s *Server) GetSellerToasts(w http.ResponseWriter, r *http.Request) {
	dash, err := s.dashboardFor(r)
	if err != nil {
		s.respondSellerError(w, err)
		return
	}
	toasts := dash.Toasts()
	if toasts == nil {
		toasts = []seller.Toast{}
	}
	respondJSON(w, http.StatusOK, toasts)
}

type listingRequest struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Price         int64    `json:"price"`
	Category      string   `json:"category"`
	KeepImageURLs []string `json:"keep_image_urls"`
	Images        []struct {
		Filename    string `json:"filename"`
		ContentType string `json:"content_type"`
		Data        []byte `json:"data"` // base64 on the wire
	} `json:"images"`
}

func (r listingRequest) draft() seller.ListingDraft {
	draft := seller.ListingDraft{
		Name:          r.Name,
		Description:   r.Description,
		Price:         r.Price,
		Category:      r.Category,
		KeepImageURLs: r.KeepImageURLs,
	}
	for _, img := range r.Images {
		draft.Images = append(draft.Images, seller.ImageUpload{
			Filename:    img.Filename,
			ContentType: img.ContentType,
			Data:        img.Data,
		})
	}
	return draft
}

func (s *Server) CreateSellerProduct(w http.ResponseWriter, r *http.Request) {
	dash, err := s.dashboardFor(r)
	if err != nil {
		s.respondSellerError(w, err)
		return
	}

	var req listingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := dash.CreateListing(r.Context(), req.draft())
	if err != nil {
		s.respondSellerError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) UpdateSellerProduct(w http.ResponseWriter, r *http.Request) {
	dash, err := s.dashboardFor(r)
	if err != nil {
		s.respondSellerError(w, err)
		return
	}

	var req listingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, changed, err := dash.UpdateListing(r.Context(), chi.URLParam(r, "productID"), req.draft())
	if err != nil {
		s.respondSellerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"product": updated, "changed": changed})
}

// CloseSellerDashboard tears down the seller's mirror and subscription,
// the unmount of the dashboard.
func (s *Server) CloseSellerDashboard(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	s.mu.Lock()
	dash, ok := s.dashboards[sess.UserID]
	delete(s.dashboards, sess.UserID)
	s.mu.Unlock()

	if ok {
		dash.Close()
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

func (s *Server) respondSellerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, seller.ErrNotAuthenticated):
		respondError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, seller.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, seller.ErrEmptyName), errors.Is(err, seller.ErrInvalidPrice):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.Error("seller operation failed", "error", err)
		respondError(w, http.StatusBadGateway, "seller operation failed")
	}
}
