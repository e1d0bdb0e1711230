package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
)

const HeaderIdempotencyKey = "Idempotency-Key"

type checkoutRequest struct {
	Phone   string `json:"phone"`
	Address string `json:"address"`
	// LineIDs selects a subset of the cart. Empty means every line.
	LineIDs []string `json:"lineIds,omitempty"`
}

type orderItemsResponse struct {
	OrderID string           `json:"orderId"`
	Items   []order.ItemView `json:"items"`
}

// Checkout turns the caller's cart lines into an order. The cart itself is
// left untouched; clients clear it with DELETE /api/me/cart.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ctx, span := h.tracer.Start(r.Context(), "http.checkout")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	userID := middleware.GetUserID(ctx)
	span.SetAttributes(attribute.String("user.id", userID))

	claimKey, ok := h.claim(ctx, w, r, userID)
	if !ok {
		return
	}

	created, err := h.checkout(ctx, userID, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.release(claimKey)
		writeAppError(w, r, h.logger, err)
		return
	}

	span.SetAttributes(attribute.String("order.id", created.ID))
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) checkout(ctx context.Context, userID string, req checkoutRequest) (*order.Order, error) {
	lines, err := h.cart.Lines(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(req.LineIDs) > 0 {
		if lines, err = selectLines(lines, req.LineIDs); err != nil {
			return nil, err
		}
	}
	return h.assembler.CreateOrder(ctx, userID, req.Phone, req.Address, lines)
}

func selectLines(lines []cart.Line, ids []string) ([]cart.Line, error) {
	byID := make(map[string]cart.Line, len(lines))
	for _, l := range lines {
		byID[l.ID] = l
	}
	out := make([]cart.Line, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		l, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("cart line %s: %w", id, apperr.ErrInvalidInput)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, l)
	}
	return out, nil
}

// claim reserves the request's Idempotency-Key. It writes the response itself
// and returns false when the request must not proceed.
func (h *Handler) claim(ctx context.Context, w http.ResponseWriter, r *http.Request, userID string) (string, bool) {
	raw := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
	if raw == "" || h.guard == nil {
		return "", true
	}

	key := h.guard.Key("checkout", userID, raw)
	first, err := h.guard.Claim(ctx, key)
	if err != nil {
		h.logger.Error("idempotency claim failed", zap.String("key", key), zap.Error(err))
		writeError(w, r, http.StatusServiceUnavailable, "idempotency store unavailable")
		return "", false
	}
	if !first {
		writeError(w, r, http.StatusConflict, "duplicate checkout request")
		return "", false
	}
	return key, true
}

func (h *Handler) release(key string) {
	if key == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	if err := h.guard.Release(ctx, key); err != nil {
		h.logger.Warn("idempotency release failed", zap.String("key", key), zap.Error(err))
	}
}

func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	orders, err := h.orders.ListForUser(ctx, middleware.GetUserID(r.Context()))
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) MyOrderCount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	n, err := h.orders.CountForUser(ctx, middleware.GetUserID(r.Context()))
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (h *Handler) MyOrderItems(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	orderID := chi.URLParam(r, "orderId")
	if _, err := h.ownedOrder(ctx, r, orderID); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	h.writeItems(ctx, w, r, orderID)
}

func (h *Handler) DeleteMyOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	orderID := chi.URLParam(r, "orderId")
	_, err := h.ownedOrder(ctx, r, orderID)
	switch {
	case errors.Is(err, apperr.ErrNotFound) && !errors.Is(err, errForeignOrder):
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		writeAppError(w, r, h.logger, err)
		return
	}

	if err := h.orders.DeleteOrder(ctx, orderID); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

var errForeignOrder = fmt.Errorf("order: %w", apperr.ErrNotFound)

func (h *Handler) ownedOrder(ctx context.Context, r *http.Request, orderID string) (order.Order, error) {
	o, err := h.orders.Get(ctx, orderID)
	if err != nil {
		return order.Order{}, err
	}
	if o.UserID != middleware.GetUserID(r.Context()) {
		return order.Order{}, errForeignOrder
	}
	return o, nil
}

func (h *Handler) writeItems(ctx context.Context, w http.ResponseWriter, r *http.Request, orderID string) {
	items, err := h.orders.GetItems(ctx, orderID)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, orderItemsResponse{OrderID: orderID, Items: items})
}
