package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(orders *OrderHandler, carts *CartHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/health", healthHandler)

	r.Route("/api/orders", func(r chi.Router) {
		r.Post("/buy-now", orders.BuyNow)
		r.Post("/from-cart", orders.FromCart)
		r.Get("/dashboard", orders.Dashboard)
		r.Get("/all", orders.ListAll)
		r.Get("/user/{userId}/history", orders.History)
		r.Get("/{orderId}/track", orders.Track)
		r.Put("/{orderId}/status", orders.UpdateStatus)
		r.Put("/{orderId}/cancel", orders.Cancel)
		r.Get("/{userId}", orders.ListByUser)
	})

	r.Route("/api/cart", func(r chi.Router) {
		r.Post("/items", carts.AddItem)
		r.Delete("/items", carts.RemoveItem)
		r.Get("/{userId}", carts.GetCart)
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "order-service",
	})
}
