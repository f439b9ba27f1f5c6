package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/example/refurnish/internal/api/middleware"
	"github.com/example/refurnish/internal/auth"
)

// NewRouter assembles the HTTP surface. Everything under /api requires a
// valid bearer token; seller endpoints additionally require the seller
// role.
func NewRouter(server *Server, jwtService *auth.JWTService) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", server.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(jwtService))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", server.GetCart)
			r.Route("/items/{lineID}", func(r chi.Router) {
				r.Delete("/", server.RemoveCartLine)
				r.Post("/increment", server.IncrementCartLine)
				r.Post("/decrement", server.DecrementCartLine)
				r.Post("/toggle", server.ToggleCartSelection)
				r.Get("/status", server.CartLineStatus)
			})
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/selection", server.GetSelection)
			r.Put("/selection", server.PutSelection)
			r.Put("/card", server.PutCard)

			r.Post("/", server.BeginCheckout)
			r.Route("/sessions/{sessionID}", func(r chi.Router) {
				r.Get("/", server.GetCheckoutSession)
				r.Post("/ewallet/login", server.EwalletLogin)
				r.Post("/ewallet/proceed", server.EwalletProceed)
				r.Post("/ewallet/cancel", server.EwalletCancel)
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", server.GetOrders)
			r.Post("/retry", server.RetryOrders)
			r.Get("/{orderID}", server.GetOrder)
		})

		r.Route("/seller", func(r chi.Router) {
			r.Use(middleware.RequireRole("seller"))
			r.Get("/products", server.GetSellerProducts)
			r.Post("/products", server.CreateSellerProduct)
			r.Put("/products/{productID}", server.UpdateSellerProduct)
			r.Get("/stats", server.GetSellerStats)
			r.Get("/toasts", server.GetSellerToasts)
			r.Delete("/dashboard", server.CloseSellerDashboard)
		})
	})

	return otelhttp.NewHandler(r, "refurnish-api")
}
