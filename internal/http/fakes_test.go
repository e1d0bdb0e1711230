package httpapi

import (
	"context"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
)

type fakeCart struct {
	addFunc      func(ctx context.Context, userID, productID string, delta int) (cart.Line, error)
	setQtyFunc   func(ctx context.Context, lineID string, quantity int) (*cart.Line, error)
	removeFunc   func(ctx context.Context, lineID string) error
	listFunc     func(ctx context.Context, userID string) ([]cart.Entry, error)
	linesFunc    func(ctx context.Context, userID string) ([]cart.Line, error)
	lineFunc     func(ctx context.Context, lineID string) (cart.Line, error)
	clearFunc    func(ctx context.Context, userID string) (int64, error)
	countFunc    func(ctx context.Context, userID string) (int, error)
	removedLines []string
}

func (f *fakeCart) AddOrIncrement(ctx context.Context, userID, productID string, delta int) (cart.Line, error) {
	if f.addFunc != nil {
		return f.addFunc(ctx, userID, productID, delta)
	}
	return cart.Line{}, nil
}

func (f *fakeCart) SetQuantity(ctx context.Context, lineID string, quantity int) (*cart.Line, error) {
	if f.setQtyFunc != nil {
		return f.setQtyFunc(ctx, lineID, quantity)
	}
	return nil, nil
}

func (f *fakeCart) Remove(ctx context.Context, lineID string) error {
	f.removedLines = append(f.removedLines, lineID)
	if f.removeFunc != nil {
		return f.removeFunc(ctx, lineID)
	}
	return nil
}

func (f *fakeCart) ListForUser(ctx context.Context, userID string) ([]cart.Entry, error) {
	if f.listFunc != nil {
		return f.listFunc(ctx, userID)
	}
	return nil, nil
}

func (f *fakeCart) Lines(ctx context.Context, userID string) ([]cart.Line, error) {
	if f.linesFunc != nil {
		return f.linesFunc(ctx, userID)
	}
	return nil, nil
}

func (f *fakeCart) Line(ctx context.Context, lineID string) (cart.Line, error) {
	if f.lineFunc != nil {
		return f.lineFunc(ctx, lineID)
	}
	return cart.Line{}, apperr.ErrNotFound
}

func (f *fakeCart) Clear(ctx context.Context, userID string) (int64, error) {
	if f.clearFunc != nil {
		return f.clearFunc(ctx, userID)
	}
	return 0, nil
}

func (f *fakeCart) Count(ctx context.Context, userID string) (int, error) {
	if f.countFunc != nil {
		return f.countFunc(ctx, userID)
	}
	return 0, nil
}

type fakeAssembler struct {
	createFunc func(ctx context.Context, userID, phone, address string, lines []cart.Line) (*order.Order, error)
	calls      int
}

func (f *fakeAssembler) CreateOrder(ctx context.Context, userID, phone, address string, lines []cart.Line) (*order.Order, error) {
	f.calls++
	if f.createFunc != nil {
		return f.createFunc(ctx, userID, phone, address, lines)
	}
	return &order.Order{ID: "o-1", UserID: userID, Phone: phone, Address: address}, nil
}

type fakeOrders struct {
	listForUserFunc func(ctx context.Context, userID string) ([]order.Order, error)
	listAllFunc     func(ctx context.Context) ([]order.Order, error)
	getFunc         func(ctx context.Context, orderID string) (order.Order, error)
	getItemsFunc    func(ctx context.Context, orderID string) ([]order.ItemView, error)
	deleteFunc      func(ctx context.Context, orderID string) error
	setStatusFunc   func(ctx context.Context, orderID string, fulfilled bool) (order.Order, error)
	countUserFunc   func(ctx context.Context, userID string) (int, error)
	countAllFunc    func(ctx context.Context) (int, error)
	deleted         []string
}

func (f *fakeOrders) ListForUser(ctx context.Context, userID string) ([]order.Order, error) {
	if f.listForUserFunc != nil {
		return f.listForUserFunc(ctx, userID)
	}
	return nil, nil
}

func (f *fakeOrders) ListAll(ctx context.Context) ([]order.Order, error) {
	if f.listAllFunc != nil {
		return f.listAllFunc(ctx)
	}
	return nil, nil
}

func (f *fakeOrders) Get(ctx context.Context, orderID string) (order.Order, error) {
	if f.getFunc != nil {
		return f.getFunc(ctx, orderID)
	}
	return order.Order{}, apperr.ErrNotFound
}

func (f *fakeOrders) GetItems(ctx context.Context, orderID string) ([]order.ItemView, error) {
	if f.getItemsFunc != nil {
		return f.getItemsFunc(ctx, orderID)
	}
	return nil, nil
}

func (f *fakeOrders) DeleteOrder(ctx context.Context, orderID string) error {
	f.deleted = append(f.deleted, orderID)
	if f.deleteFunc != nil {
		return f.deleteFunc(ctx, orderID)
	}
	return nil
}

func (f *fakeOrders) SetStatus(ctx context.Context, orderID string, fulfilled bool) (order.Order, error) {
	if f.setStatusFunc != nil {
		return f.setStatusFunc(ctx, orderID, fulfilled)
	}
	return order.Order{ID: orderID, Fulfilled: fulfilled}, nil
}

func (f *fakeOrders) CountForUser(ctx context.Context, userID string) (int, error) {
	if f.countUserFunc != nil {
		return f.countUserFunc(ctx, userID)
	}
	return 0, nil
}

func (f *fakeOrders) CountAll(ctx context.Context) (int, error) {
	if f.countAllFunc != nil {
		return f.countAllFunc(ctx)
	}
	return 0, nil
}

// memGuard is an in-memory IdempotencyGuard.
type memGuard struct {
	claimed  map[string]bool
	released []string
	err      error
}

func newMemGuard() *memGuard { return &memGuard{claimed: map[string]bool{}} }

func (g *memGuard) Key(scope, userID, key string) string { return scope + ":" + userID + ":" + key }

func (g *memGuard) Claim(_ context.Context, key string) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	if g.claimed[key] {
		return false, nil
	}
	g.claimed[key] = true
	return true, nil
}

func (g *memGuard) Release(_ context.Context, key string) error {
	delete(g.claimed, key)
	g.released = append(g.released, key)
	return nil
}
