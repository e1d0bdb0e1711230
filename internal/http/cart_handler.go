package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
)

type cartResponse struct {
	UserID string          `json:"userId"`
	Items  []cart.Entry    `json:"items"`
	Count  int             `json:"count"`
	Total  decimal.Decimal `json:"total"`
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Delta     *int   `json:"delta,omitempty"`
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	userID := middleware.GetUserID(r.Context())
	entries, err := h.cart.ListForUser(ctx, userID)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, cartResponse{
		UserID: userID,
		Items:  entries,
		Count:  len(entries),
		Total:  cart.Total(entries),
	})
}

func (h *Handler) CartCount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	n, err := h.cart.Count(ctx, middleware.GetUserID(r.Context()))
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.ProductID = strings.TrimSpace(req.ProductID)
	if req.ProductID == "" {
		writeError(w, r, http.StatusBadRequest, "productId is required")
		return
	}
	delta := 1
	if req.Delta != nil {
		delta = *req.Delta
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	line, err := h.cart.AddOrIncrement(ctx, middleware.GetUserID(r.Context()), req.ProductID, delta)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, line)
}

func (h *Handler) SetItemQuantity(w http.ResponseWriter, r *http.Request) {
	var req setQuantityRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Quantity == nil {
		writeError(w, r, http.StatusBadRequest, "quantity is required")
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	lineID := chi.URLParam(r, "lineId")
	_, err := h.ownedLine(r, lineID)
	switch {
	case errors.Is(err, apperr.ErrNotFound) && !isForeign(err) && *req.Quantity <= 0:
		// removing an already removed line is a no-op
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		writeAppError(w, r, h.logger, err)
		return
	}

	line, err := h.cart.SetQuantity(ctx, lineID, *req.Quantity)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	if line == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, line)
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	lineID := chi.URLParam(r, "lineId")
	_, err := h.ownedLine(r, lineID)
	switch {
	case errors.Is(err, apperr.ErrNotFound) && !isForeign(err):
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		writeAppError(w, r, h.logger, err)
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	if err := h.cart.Remove(ctx, lineID); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	n, err := h.cart.Clear(ctx, middleware.GetUserID(r.Context()))
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"removed": n})
}

// errForeignLine marks a line that exists but belongs to another user. It is
// reported as not found so line ids stay private.
var errForeignLine = fmt.Errorf("cart line: %w", apperr.ErrNotFound)

func isForeign(err error) bool { return errors.Is(err, errForeignLine) }

func (h *Handler) ownedLine(r *http.Request, lineID string) (cart.Line, error) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	line, err := h.cart.Line(ctx, lineID)
	if err != nil {
		return cart.Line{}, err
	}
	if line.UserID != middleware.GetUserID(r.Context()) {
		return cart.Line{}, errForeignLine
	}
	return line, nil
}
