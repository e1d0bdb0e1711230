package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/notify"
)

// Assembler turns cart lines into an order. It only reads the lines; the cart
// is never modified, whether the order is created or not.
type Assembler struct {
	repo     Repository
	notifier notify.Notifier
	logger   *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

func NewAssembler(repo Repository, notifier notify.Notifier, logger *zap.Logger) *Assembler {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Assembler{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		tracer:   otel.Tracer("storefront-order"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder snapshots each line's product, quantity and cached total into
// order items. Prices are not resolved again: the order keeps the price the
// user saw in the cart.
func (a *Assembler) CreateOrder(ctx context.Context, userID, phone, address string, lines []cart.Line) (_ *Order, err error) {
	ctx, span := a.tracer.Start(ctx, "order.create", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.Int("order.lines", len(lines)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if len(lines) == 0 {
		return nil, apperr.ErrEmptyCart
	}
	if userID == "" || strings.TrimSpace(phone) == "" || strings.TrimSpace(address) == "" {
		return nil, fmt.Errorf("user, phone and address are required: %w", apperr.ErrInvalidInput)
	}

	o := &Order{
		UserID:     userID,
		Phone:      strings.TrimSpace(phone),
		Address:    strings.TrimSpace(address),
		TotalPrice: decimal.Zero,
		CreatedAt:  a.now(),
		Items:      make([]Item, 0, len(lines)),
	}
	for _, l := range lines {
		if l.UserID != userID {
			return nil, fmt.Errorf("line %s belongs to another user: %w", l.ID, apperr.ErrInvalidInput)
		}
		if l.Quantity < 1 {
			return nil, fmt.Errorf("line %s has quantity %d: %w", l.ID, l.Quantity, apperr.ErrInvalidQuantity)
		}
		o.TotalPrice = o.TotalPrice.Add(l.TotalPrice)
		o.Items = append(o.Items, Item{
			ProductID:  l.ProductID,
			Quantity:   l.Quantity,
			TotalPrice: l.TotalPrice,
		})
	}

	if err := a.repo.Create(ctx, o); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("order.id", o.ID))

	a.logger.Info("order created",
		zap.String("order_id", o.ID),
		zap.String("user_id", userID),
		zap.Int("items", len(o.Items)),
		zap.String("total", o.TotalPrice.StringFixed(2)),
	)

	c := notify.Change{Table: notify.TableOrders, Op: notify.OpInsert, UserID: userID, RowID: o.ID, At: a.now()}
	if nerr := a.notifier.Notify(context.WithoutCancel(ctx), c); nerr != nil {
		a.logger.Warn("order change notification failed", zap.String("order_id", o.ID), zap.Error(nerr))
	}
	return o, nil
}
