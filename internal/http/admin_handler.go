package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
)

type setStatusRequest struct {
	Fulfilled *bool `json:"fulfilled"`
}

func (h *Handler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	orders, err := h.orders.ListAll(ctx)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) OrderCount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	n, err := h.orders.CountAll(ctx)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (h *Handler) AdminOrderItems(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	orderID := chi.URLParam(r, "orderId")
	if _, err := h.orders.Get(ctx, orderID); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	h.writeItems(ctx, w, r, orderID)
}

func (h *Handler) SetOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Fulfilled == nil {
		writeError(w, r, http.StatusBadRequest, "fulfilled is required")
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	o, err := h.orders.SetStatus(ctx, chi.URLParam(r, "orderId"), *req.Fulfilled)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// AdminDeleteOrder removes any user's order. Unknown ids succeed.
func (h *Handler) AdminDeleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	orderID := chi.URLParam(r, "orderId")
	if err := h.orders.DeleteOrder(ctx, orderID); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	h.logger.Info("admin deleted order",
		zap.String("order_id", orderID),
		zap.String("admin_id", middleware.GetUserID(r.Context())),
	)
	w.WriteHeader(http.StatusNoContent)
}
