package order

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/notify"
)

type ProductLookup interface {
	Get(ctx context.Context, productID string) (catalog.Product, error)
}

// Lifecycle covers everything that happens to an order after checkout.
type Lifecycle struct {
	repo     Repository
	products ProductLookup
	notifier notify.Notifier
	logger   *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

func NewLifecycle(repo Repository, products ProductLookup, notifier notify.Notifier, logger *zap.Logger) *Lifecycle {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Lifecycle{
		repo:     repo,
		products: products,
		notifier: notifier,
		logger:   logger,
		tracer:   otel.Tracer("storefront-order"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ListForUser returns the user's orders, newest first.
func (l *Lifecycle) ListForUser(ctx context.Context, userID string) ([]Order, error) {
	return l.repo.ListByUser(ctx, userID)
}

// ListAll returns every order, newest first.
func (l *Lifecycle) ListAll(ctx context.Context) ([]Order, error) {
	return l.repo.ListAll(ctx)
}

func (l *Lifecycle) Get(ctx context.Context, orderID string) (Order, error) {
	return l.repo.GetByID(ctx, orderID)
}

// GetItems loads the order's items and decorates each with the product's name
// and first image. A product lookup failure only affects its own item, which
// gets the placeholder.
func (l *Lifecycle) GetItems(ctx context.Context, orderID string) ([]ItemView, error) {
	items, err := l.repo.ListItems(ctx, orderID)
	if err != nil {
		return nil, err
	}

	views := make([]ItemView, 0, len(items))
	for _, it := range items {
		v := ItemView{Item: it, ProductName: cart.PlaceholderName, Image: cart.PlaceholderImage}

		p, err := l.products.Get(ctx, it.ProductID)
		switch {
		case err == nil:
			v.ProductFound = true
			v.ProductName = p.Name
			if img := p.FirstImage(); img != "" {
				v.Image = img
			}
		case errors.Is(err, apperr.ErrNotFound):
			l.logger.Debug("order item product missing",
				zap.String("order_id", orderID), zap.String("product_id", it.ProductID))
		default:
			l.logger.Warn("order item product lookup failed",
				zap.String("order_id", orderID), zap.String("product_id", it.ProductID), zap.Error(err))
		}
		views = append(views, v)
	}
	return views, nil
}

// DeleteOrder removes the order's items and then the order in a single
// transaction. Deleting an order that does not exist is a no-op.
func (l *Lifecycle) DeleteOrder(ctx context.Context, orderID string) (err error) {
	ctx, span := l.tracer.Start(ctx, "order.delete", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	o, err := l.repo.DeleteWithItems(ctx, orderID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	l.logger.Info("order deleted", zap.String("order_id", orderID), zap.String("user_id", o.UserID))
	l.notify(ctx, notify.OpDelete, o)
	return nil
}

// SetStatus flips the fulfilled flag. It has no other effect.
func (l *Lifecycle) SetStatus(ctx context.Context, orderID string, fulfilled bool) (Order, error) {
	o, err := l.repo.SetStatus(ctx, orderID, fulfilled)
	if err != nil {
		return Order{}, err
	}
	l.notify(ctx, notify.OpUpdate, o)
	return o, nil
}

func (l *Lifecycle) CountForUser(ctx context.Context, userID string) (int, error) {
	return l.repo.CountByUser(ctx, userID)
}

func (l *Lifecycle) CountAll(ctx context.Context) (int, error) {
	return l.repo.CountAll(ctx)
}

func (l *Lifecycle) notify(ctx context.Context, op string, o Order) {
	c := notify.Change{Table: notify.TableOrders, Op: op, UserID: o.UserID, RowID: o.ID, At: l.now()}
	// the row is already committed; a cancelled request must not drop the change
	if err := l.notifier.Notify(context.WithoutCancel(ctx), c); err != nil {
		l.logger.Warn("order change notification failed",
			zap.String("op", op), zap.String("order_id", o.ID), zap.Error(err))
	}
}
