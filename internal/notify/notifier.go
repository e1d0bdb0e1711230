// Package notify carries row-change notifications from the cart and order
// components to whoever displays derived state, such as badge counts.
package notify

import (
	"context"
	"errors"
	"time"
)

const (
	TableCart   = "cart"
	TableOrders = "orders"

	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Change describes one committed row mutation.
type Change struct {
	Table  string    `json:"table"`
	Op     string    `json:"op"`
	UserID string    `json:"userId"`
	RowID  string    `json:"rowId"`
	At     time.Time `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, c Change) error
}

// Func adapts a plain function to a Notifier.
type Func func(ctx context.Context, c Change) error

func (f Func) Notify(ctx context.Context, c Change) error { return f(ctx, c) }

type Nop struct{}

func (Nop) Notify(context.Context, Change) error { return nil }

// Multi delivers to every notifier, even after one fails, and joins the errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, c Change) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
