package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
)

type RouterConfig struct {
	AdminRole    string
	AllowOrigins []string
}

func NewRouter(h *Handler, logger *zap.Logger, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.AccessLog(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS(cfg.AllowOrigins))
	r.Use(middleware.Identity)

	r.Get("/health", h.Health)

	r.Route("/api/me", func(r chi.Router) {
		r.Use(middleware.RequireUser)

		r.Get("/cart", h.GetCart)
		r.Delete("/cart", h.ClearCart)
		r.Get("/cart/count", h.CartCount)
		r.Post("/cart/items", h.AddItem)
		r.Patch("/cart/items/{lineId}", h.SetItemQuantity)
		r.Delete("/cart/items/{lineId}", h.RemoveItem)

		r.Post("/checkout", h.Checkout)

		r.Get("/orders", h.ListMyOrders)
		r.Get("/orders/count", h.MyOrderCount)
		r.Get("/orders/{orderId}/items", h.MyOrderItems)
		r.Delete("/orders/{orderId}", h.DeleteMyOrder)

		r.Get("/feed", h.UserFeed)
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.RequireUser)
		r.Use(middleware.RequireRole(cfg.AdminRole))

		r.Get("/orders", h.ListAllOrders)
		r.Get("/orders/count", h.OrderCount)
		r.Get("/orders/{orderId}/items", h.AdminOrderItems)
		r.Patch("/orders/{orderId}/status", h.SetOrderStatus)
		r.Delete("/orders/{orderId}", h.AdminDeleteOrder)

		r.Get("/feed", h.AdminFeed)
	})

	return r
}
