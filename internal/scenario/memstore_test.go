package scenario

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
)

type memCatalog struct {
	products map[string]catalog.Product
}

func (c *memCatalog) Get(_ context.Context, productID string) (catalog.Product, error) {
	p, ok := c.products[productID]
	if !ok {
		return catalog.Product{}, fmt.Errorf("product %s: %w", productID, apperr.ErrNotFound)
	}
	return p, nil
}

type memCart struct {
	catalog *memCatalog
	lines   map[string]cart.Line
	seq     int
}

func (r *memCart) Get(_ context.Context, lineID string) (cart.Line, error) {
	l, ok := r.lines[lineID]
	if !ok {
		return cart.Line{}, apperr.ErrNotFound
	}
	return l, nil
}

func (r *memCart) FindByUserProduct(_ context.Context, userID, productID string) (cart.Line, error) {
	for _, l := range r.lines {
		if l.UserID == userID && l.ProductID == productID {
			return l, nil
		}
	}
	return cart.Line{}, apperr.ErrNotFound
}

func (r *memCart) Insert(_ context.Context, l *cart.Line) error {
	r.seq++
	l.ID = fmt.Sprintf("line-%d", r.seq)
	r.lines[l.ID] = *l
	return nil
}

func (r *memCart) UpdateQuantity(_ context.Context, lineID string, quantity int, total decimal.Decimal) (cart.Line, error) {
	l, ok := r.lines[lineID]
	if !ok {
		return cart.Line{}, apperr.ErrNotFound
	}
	l.Quantity = quantity
	l.TotalPrice = total
	r.lines[lineID] = l
	return l, nil
}

func (r *memCart) Delete(_ context.Context, lineID string) (cart.Line, error) {
	l, ok := r.lines[lineID]
	if !ok {
		return cart.Line{}, apperr.ErrNotFound
	}
	delete(r.lines, lineID)
	return l, nil
}

func (r *memCart) ListByUser(ctx context.Context, userID string) ([]cart.Entry, error) {
	lines, _ := r.LinesByUser(ctx, userID)
	out := make([]cart.Entry, 0, len(lines))
	for _, l := range lines {
		e := cart.Entry{Line: l, ProductName: cart.PlaceholderName, Images: []string{cart.PlaceholderImage}}
		if p, err := r.catalog.Get(ctx, l.ProductID); err == nil {
			e.ProductName, e.UnitPrice, e.Images, e.ProductFound = p.Name, p.Price, p.Images, true
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *memCart) LinesByUser(_ context.Context, userID string) ([]cart.Line, error) {
	var out []cart.Line
	for _, l := range r.lines {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memCart) DeleteByUser(_ context.Context, userID string) (int64, error) {
	var n int64
	for id, l := range r.lines {
		if l.UserID == userID {
			delete(r.lines, id)
			n++
		}
	}
	return n, nil
}

func (r *memCart) CountByUser(ctx context.Context, userID string) (int, error) {
	lines, _ := r.LinesByUser(ctx, userID)
	return len(lines), nil
}

type memOrders struct {
	orders map[string]order.Order
	items  map[string][]order.Item
	seq    int
}

func (r *memOrders) Create(_ context.Context, o *order.Order) error {
	r.seq++
	o.ID = fmt.Sprintf("order-%d", r.seq)
	for i := range o.Items {
		o.Items[i].ID = fmt.Sprintf("%s-item-%d", o.ID, i+1)
		o.Items[i].OrderID = o.ID
	}
	stored := *o
	stored.Items = nil
	r.orders[o.ID] = stored
	r.items[o.ID] = append([]order.Item(nil), o.Items...)
	return nil
}

func (r *memOrders) GetByID(_ context.Context, orderID string) (order.Order, error) {
	o, ok := r.orders[orderID]
	if !ok {
		return order.Order{}, apperr.ErrNotFound
	}
	return o, nil
}

func (r *memOrders) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	var out []order.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *memOrders) ListAll(_ context.Context) ([]order.Order, error) {
	out := make([]order.Order, 0, len(r.orders))
	for _, o := range r.orders {
		out = append(out, o)
	}
	return out, nil
}

func (r *memOrders) ListItems(_ context.Context, orderID string) ([]order.Item, error) {
	return r.items[orderID], nil
}

func (r *memOrders) DeleteWithItems(_ context.Context, orderID string) (order.Order, error) {
	o, ok := r.orders[orderID]
	if !ok {
		return order.Order{}, apperr.ErrNotFound
	}
	delete(r.items, orderID)
	delete(r.orders, orderID)
	return o, nil
}

func (r *memOrders) SetStatus(_ context.Context, orderID string, fulfilled bool) (order.Order, error) {
	o, ok := r.orders[orderID]
	if !ok {
		return order.Order{}, apperr.ErrNotFound
	}
	o.Fulfilled = fulfilled
	r.orders[orderID] = o
	return o, nil
}

func (r *memOrders) CountByUser(ctx context.Context, userID string) (int, error) {
	orders, _ := r.ListByUser(ctx, userID)
	return len(orders), nil
}

func (r *memOrders) CountAll(_ context.Context) (int, error) {
	return len(r.orders), nil
}
