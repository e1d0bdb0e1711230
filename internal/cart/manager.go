package cart

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/notify"
)

// MaxQuantity is the largest quantity a line can hold; the column is a
// 32-bit INT.
const MaxQuantity = math.MaxInt32

type PriceResolver interface {
	ResolvePrice(ctx context.Context, productID string) (decimal.Decimal, error)
}

// Manager owns every mutation of cart lines. Totals are recomputed from a
// freshly resolved price on each write.
type Manager struct {
	repo     Repository
	prices   PriceResolver
	notifier notify.Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewManager(repo Repository, prices PriceResolver, notifier notify.Notifier, logger *zap.Logger) *Manager {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Manager{
		repo:     repo,
		prices:   prices,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// AddOrIncrement creates the user's line for productID with quantity
// max(delta, 1), or adds delta to the existing line. When the existing line
// would drop to zero or below it is removed and the returned error wraps
// apperr.ErrInvalidQuantity.
func (m *Manager) AddOrIncrement(ctx context.Context, userID, productID string, delta int) (Line, error) {
	if userID == "" || productID == "" {
		return Line{}, fmt.Errorf("user and product are required: %w", apperr.ErrInvalidInput)
	}

	if delta > MaxQuantity {
		return Line{}, fmt.Errorf("delta %d for product %s exceeds %d: %w", delta, productID, MaxQuantity, apperr.ErrInvalidQuantity)
	}

	existing, err := m.repo.FindByUserProduct(ctx, userID, productID)
	if errors.Is(err, apperr.ErrNotFound) {
		return m.create(ctx, userID, productID, max(delta, 1))
	}
	if err != nil {
		return Line{}, err
	}

	if delta > 0 && existing.Quantity > MaxQuantity-delta {
		return Line{}, fmt.Errorf("quantity for product %s would exceed %d: %w", productID, MaxQuantity, apperr.ErrInvalidQuantity)
	}
	qty := existing.Quantity + delta
	if qty <= 0 {
		if err := m.Remove(ctx, existing.ID); err != nil {
			return Line{}, err
		}
		return Line{}, fmt.Errorf("quantity %d for product %s, line removed: %w", qty, productID, apperr.ErrInvalidQuantity)
	}

	price, err := m.prices.ResolvePrice(ctx, productID)
	if err != nil {
		return Line{}, err
	}

	line, err := m.repo.UpdateQuantity(ctx, existing.ID, qty, lineTotal(price, qty))
	if err != nil {
		return Line{}, err
	}
	m.notify(ctx, notify.OpUpdate, line)
	return line, nil
}

func (m *Manager) create(ctx context.Context, userID, productID string, qty int) (Line, error) {
	price, err := m.prices.ResolvePrice(ctx, productID)
	if err != nil {
		return Line{}, err
	}

	line := Line{
		UserID:     userID,
		ProductID:  productID,
		Quantity:   qty,
		TotalPrice: lineTotal(price, qty),
	}
	if err := m.repo.Insert(ctx, &line); err != nil {
		return Line{}, err
	}
	m.notify(ctx, notify.OpInsert, line)
	return line, nil
}

// SetQuantity replaces the line's quantity. A quantity of zero or less
// removes the line and returns (nil, nil).
func (m *Manager) SetQuantity(ctx context.Context, lineID string, quantity int) (*Line, error) {
	if quantity <= 0 {
		return nil, m.Remove(ctx, lineID)
	}
	if quantity > MaxQuantity {
		return nil, fmt.Errorf("quantity %d exceeds %d: %w", quantity, MaxQuantity, apperr.ErrInvalidQuantity)
	}

	current, err := m.repo.Get(ctx, lineID)
	if err != nil {
		return nil, err
	}

	price, err := m.prices.ResolvePrice(ctx, current.ProductID)
	if err != nil {
		return nil, err
	}

	line, err := m.repo.UpdateQuantity(ctx, lineID, quantity, lineTotal(price, quantity))
	if err != nil {
		return nil, err
	}
	m.notify(ctx, notify.OpUpdate, line)
	return &line, nil
}

// Remove deletes the line. Removing a missing line is not an error.
func (m *Manager) Remove(ctx context.Context, lineID string) error {
	line, err := m.repo.Delete(ctx, lineID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	m.notify(ctx, notify.OpDelete, line)
	return nil
}

func (m *Manager) ListForUser(ctx context.Context, userID string) ([]Entry, error) {
	return m.repo.ListByUser(ctx, userID)
}

func (m *Manager) Lines(ctx context.Context, userID string) ([]Line, error) {
	return m.repo.LinesByUser(ctx, userID)
}

func (m *Manager) Line(ctx context.Context, lineID string) (Line, error) {
	return m.repo.Get(ctx, lineID)
}

// Clear removes every line the user has. Checkout never calls it.
func (m *Manager) Clear(ctx context.Context, userID string) (int64, error) {
	n, err := m.repo.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		m.notify(ctx, notify.OpDelete, Line{UserID: userID})
	}
	return n, nil
}

func (m *Manager) Count(ctx context.Context, userID string) (int, error) {
	return m.repo.CountByUser(ctx, userID)
}

// notify reports a committed mutation. Failures are logged only; the write
// already happened, so a cancelled request must not stop the publish.
func (m *Manager) notify(ctx context.Context, op string, l Line) {
	ctx = context.WithoutCancel(ctx)
	c := notify.Change{
		Table:  notify.TableCart,
		Op:     op,
		UserID: l.UserID,
		RowID:  l.ID,
		At:     m.now(),
	}
	if err := m.notifier.Notify(ctx, c); err != nil {
		m.logger.Warn("cart change notification failed",
			zap.String("op", op),
			zap.String("line_id", l.ID),
			zap.String("user_id", l.UserID),
			zap.Error(err),
		)
	}
}

func lineTotal(price decimal.Decimal, qty int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty)))
}
