// Package scenario runs the cart and order feature files against the real
// components over in-memory stores.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/notify"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
)

var errorsByName = map[string]error{
	"not found":        apperr.ErrNotFound,
	"invalid quantity": apperr.ErrInvalidQuantity,
	"empty cart":       apperr.ErrEmptyCart,
	"invalid input":    apperr.ErrInvalidInput,
}

type storefrontContext struct {
	ctx context.Context

	catalog *memCatalog
	carts   *memCart
	orders  *memOrders
	hub     *notify.Hub

	manager   *cart.Manager
	assembler *order.Assembler
	lifecycle *order.Lifecycle

	subs        map[string]*notify.Subscription
	lastLineIDs map[string]string
	order       *order.Order
	checkoutErr error
}

func (s *storefrontContext) reset() {
	logger := zap.NewNop()

	s.ctx = context.Background()
	s.catalog = &memCatalog{products: map[string]catalog.Product{}}
	s.carts = &memCart{catalog: s.catalog, lines: map[string]cart.Line{}}
	s.orders = &memOrders{orders: map[string]order.Order{}, items: map[string][]order.Item{}}
	s.hub = notify.NewHub()

	s.manager = cart.NewManager(s.carts, catalog.NewResolver(s.catalog), s.hub, logger)
	s.assembler = order.NewAssembler(s.orders, s.hub, logger)
	s.lifecycle = order.NewLifecycle(s.orders, s.catalog, s.hub, logger)

	s.subs = map[string]*notify.Subscription{}
	s.lastLineIDs = map[string]string{}
	s.order = nil
	s.checkoutErr = nil
}

func (s *storefrontContext) close() {
	s.hub.Close()
}

func parseMoney(v string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", v, err)
	}
	return d, nil
}

func (s *storefrontContext) theCatalogHasProduct(id, name, price string) error {
	p, err := parseMoney(price)
	if err != nil {
		return err
	}
	s.catalog.products[id] = catalog.Product{ID: id, Name: name, Price: p, Images: []string{"/img/" + id + ".png"}}
	return nil
}

func (s *storefrontContext) productIsRemoved(id string) error {
	delete(s.catalog.products, id)
	return nil
}

func (s *storefrontContext) userAdds(userID string, qty int, productID string) error {
	l, err := s.manager.AddOrIncrement(s.ctx, userID, productID, qty)
	if err != nil {
		return err
	}
	s.lastLineIDs[userID+"/"+productID] = l.ID
	return nil
}

func (s *storefrontContext) userSetsQuantity(userID, productID string, qty int) error {
	lineID := s.lastLineIDs[userID+"/"+productID]
	if lineID == "" {
		return fmt.Errorf("user %s never added product %s", userID, productID)
	}
	_, err := s.manager.SetQuantity(s.ctx, lineID, qty)
	return err
}

func (s *storefrontContext) userHasCartLine(userID string, count int, productID string, qty int, total string) error {
	want, err := parseMoney(total)
	if err != nil {
		return err
	}
	entries, err := s.manager.ListForUser(s.ctx, userID)
	if err != nil {
		return err
	}

	var matching []cart.Entry
	for _, e := range entries {
		if e.ProductID == productID {
			matching = append(matching, e)
		}
	}
	if len(matching) != count {
		return fmt.Errorf("expected %d lines for %s, got %d", count, productID, len(matching))
	}
	l := matching[0]
	if l.Quantity != qty {
		return fmt.Errorf("expected quantity %d, got %d", qty, l.Quantity)
	}
	if !l.TotalPrice.Equal(want) {
		return fmt.Errorf("expected total %s, got %s", want, l.TotalPrice)
	}
	return nil
}

func (s *storefrontContext) userHasNoCartLines(userID string) error {
	n, err := s.manager.Count(s.ctx, userID)
	if err != nil {
		return err
	}
	if n != 0 {
		return fmt.Errorf("expected an empty cart, got %d lines", n)
	}
	return nil
}

func (s *storefrontContext) userChecksOut(userID, phone, address string) error {
	lines, err := s.manager.Lines(s.ctx, userID)
	if err != nil {
		return err
	}
	s.order, s.checkoutErr = s.assembler.CreateOrder(s.ctx, userID, phone, address, lines)
	return nil
}

func (s *storefrontContext) checkoutFailsWith(name string) error {
	want, ok := errorsByName[name]
	if !ok {
		return fmt.Errorf("unknown error name %q", name)
	}
	if !errors.Is(s.checkoutErr, want) {
		return fmt.Errorf("expected %q, got %v", name, s.checkoutErr)
	}
	return nil
}

func (s *storefrontContext) currentOrder() (*order.Order, error) {
	if s.checkoutErr != nil {
		return nil, fmt.Errorf("checkout failed: %w", s.checkoutErr)
	}
	if s.order == nil {
		return nil, errors.New("no order was created")
	}
	return s.order, nil
}

func (s *storefrontContext) theOrderTotalIs(total string) error {
	o, err := s.currentOrder()
	if err != nil {
		return err
	}
	want, err := parseMoney(total)
	if err != nil {
		return err
	}
	stored, err := s.lifecycle.Get(s.ctx, o.ID)
	if err != nil {
		return err
	}
	if !stored.TotalPrice.Equal(want) {
		return fmt.Errorf("expected order total %s, got %s", want, stored.TotalPrice)
	}
	return nil
}

func (s *storefrontContext) theOrderHasItem(count int, productID string, qty int, total string) error {
	o, err := s.currentOrder()
	if err != nil {
		return err
	}
	want, err := parseMoney(total)
	if err != nil {
		return err
	}
	items, err := s.lifecycle.GetItems(s.ctx, o.ID)
	if err != nil {
		return err
	}
	if len(items) != count {
		return fmt.Errorf("expected %d items, got %d", count, len(items))
	}
	it := items[0]
	if it.ProductID != productID || it.Quantity != qty || !it.TotalPrice.Equal(want) {
		return fmt.Errorf("unexpected item %+v", it.Item)
	}
	return nil
}

func (s *storefrontContext) userHasOrders(userID string, count int) error {
	n, err := s.lifecycle.CountForUser(s.ctx, userID)
	if err != nil {
		return err
	}
	if n != count {
		return fmt.Errorf("expected %d orders, got %d", count, n)
	}
	return nil
}

func (s *storefrontContext) anAdminDeletesTheOrder() error {
	o, err := s.currentOrder()
	if err != nil {
		return err
	}
	return s.lifecycle.DeleteOrder(s.ctx, o.ID)
}

func (s *storefrontContext) theOrderNoLongerExists() error {
	o, err := s.currentOrder()
	if err != nil {
		return err
	}
	if _, err := s.lifecycle.Get(s.ctx, o.ID); !errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("expected order %s to be gone, got %v", o.ID, err)
	}
	return nil
}

func (s *storefrontContext) theOrderHasNoItems() error {
	o, err := s.currentOrder()
	if err != nil {
		return err
	}
	items, err := s.lifecycle.GetItems(s.ctx, o.ID)
	if err != nil {
		return err
	}
	if len(items) != 0 {
		return fmt.Errorf("expected no items, got %d", len(items))
	}
	return nil
}

func (s *storefrontContext) theOrderItemShows(name, image string) error {
	o, err := s.currentOrder()
	if err != nil {
		return err
	}
	items, err := s.lifecycle.GetItems(s.ctx, o.ID)
	if err != nil {
		return err
	}
	if len(items) != 1 {
		return fmt.Errorf("expected 1 item, got %d", len(items))
	}
	if items[0].ProductName != name || items[0].Image != image {
		return fmt.Errorf("expected %q/%q, got %q/%q", name, image, items[0].ProductName, items[0].Image)
	}
	return nil
}

func (s *storefrontContext) userSubscribes(userID string) error {
	s.subs[userID] = s.hub.Subscribe(notify.Filter{UserID: userID}, 8)
	return nil
}

func (s *storefrontContext) userIsNotified(userID, table string) error {
	sub, ok := s.subs[userID]
	if !ok {
		return fmt.Errorf("user %s has no subscription", userID)
	}
	timeout := time.After(time.Second)
	for {
		select {
		case c, ok := <-sub.C():
			if !ok {
				return errors.New("subscription closed")
			}
			if c.Table == table {
				return nil
			}
		case <-timeout:
			return fmt.Errorf("no %s change for %s", table, userID)
		}
	}
}

func InitializeScenario(sc *godog.ScenarioContext) {
	s := &storefrontContext{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		s.reset()
		return ctx, nil
	})
	sc.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
		s.close()
		return ctx, nil
	})

	// Given
	sc.Step(`^the catalog has product "([^"]*)" named "([^"]*)" priced at (\d+(?:\.\d+)?)$`, s.theCatalogHasProduct)
	sc.Step(`^user "([^"]*)" subscribes to change notifications$`, s.userSubscribes)

	// When
	sc.Step(`^user "([^"]*)" adds (-?\d+) of product "([^"]*)" to the cart$`, s.userAdds)
	sc.Step(`^user "([^"]*)" sets the quantity of product "([^"]*)" to (-?\d+)$`, s.userSetsQuantity)
	sc.Step(`^user "([^"]*)" checks out with phone "([^"]*)" and address "([^"]*)"$`, s.userChecksOut)
	sc.Step(`^an admin deletes the order$`, s.anAdminDeletesTheOrder)
	sc.Step(`^product "([^"]*)" is removed from the catalog$`, s.productIsRemoved)

	// Then
	sc.Step(`^user "([^"]*)" has (\d+) cart lines? for product "([^"]*)" with quantity (\d+) and total (\d+(?:\.\d+)?)$`, s.userHasCartLine)
	sc.Step(`^user "([^"]*)" has no cart lines$`, s.userHasNoCartLines)
	sc.Step(`^user "([^"]*)" has (\d+) orders?$`, s.userHasOrders)
	sc.Step(`^the checkout fails with "([^"]*)"$`, s.checkoutFailsWith)
	sc.Step(`^the order total is (\d+(?:\.\d+)?)$`, s.theOrderTotalIs)
	sc.Step(`^the order has (\d+) items? for product "([^"]*)" with quantity (\d+) and total (\d+(?:\.\d+)?)$`, s.theOrderHasItem)
	sc.Step(`^the order no longer exists$`, s.theOrderNoLongerExists)
	sc.Step(`^the order has no items$`, s.theOrderHasNoItems)
	sc.Step(`^the order item shows "([^"]*)" with image "([^"]*)"$`, s.theOrderItemShows)
	sc.Step(`^user "([^"]*)" is notified of a "([^"]*)" change$`, s.userIsNotified)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			Strict:   true,
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
