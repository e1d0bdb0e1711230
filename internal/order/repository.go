package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/db"
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, orderID string) (Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	ListAll(ctx context.Context) ([]Order, error)
	ListItems(ctx context.Context, orderID string) ([]Item, error)
	DeleteWithItems(ctx context.Context, orderID string) (Order, error)
	SetStatus(ctx context.Context, orderID string, fulfilled bool) (Order, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	CountAll(ctx context.Context) (int, error)
}

const orderColumns = `id, user_id, phone, address, total_price, status, created_at`

type PostgresRepository struct {
	pool db.DBPool
}

func NewPostgresRepository(pool db.DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create inserts the order and then each of its items in one transaction.
// Nothing is written unless every insert succeeds.
func (r *PostgresRepository) Create(ctx context.Context, o *Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return apperr.Store("begin tx", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, phone, address, total_price, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, o.ID, o.UserID, o.Phone, o.Address, o.TotalPrice, o.Fulfilled, o.CreatedAt)
	if err != nil {
		return apperr.Store("insert order", err)
	}

	for i := range o.Items {
		it := &o.Items[i]
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		it.OrderID = o.ID

		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, total_price)
			VALUES ($1, $2, $3, $4, $5)
		`, it.ID, it.OrderID, it.ProductID, it.Quantity, it.TotalPrice)
		if err != nil {
			return apperr.Store("insert order_item", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Store("commit", err)
	}
	return nil
}

func orderNotFound(orderID string) error {
	return orderNotFound(orderID)
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.Phone, &o.Address, &o.TotalPrice, &o.Fulfilled, &o.CreatedAt)
	return o, err
}

func (r *PostgresRepository) GetByID(ctx context.Context, orderID string) (Order, error) {
	if !db.ValidID(orderID) {
		return Order{}, orderNotFound(orderID)
	}
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, orderNotFound(orderID)
		}
		return Order{}, apperr.Store("select order", err)
	}
	return o, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Store("select orders", err)
	}
	defer rows.Close()

	orders := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, apperr.Store("scan order", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store("rows", err)
	}
	return orders, nil
}

func (r *PostgresRepository) ListItems(ctx context.Context, orderID string) ([]Item, error) {
	if !db.ValidID(orderID) {
		return []Item{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, product_id, quantity, total_price
		FROM order_items WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, apperr.Store("select order_items", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.TotalPrice); err != nil {
			return nil, apperr.Store("scan order_item", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store("rows", err)
	}
	return items, nil
}

// DeleteWithItems removes the order's items first and then the order, inside
// one transaction, and returns the deleted order. A missing order yields
// apperr.ErrNotFound and leaves nothing changed.
func (r *PostgresRepository) DeleteWithItems(ctx context.Context, orderID string) (Order, error) {
	if !db.ValidID(orderID) {
		return Order{}, orderNotFound(orderID)
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, apperr.Store("begin tx", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID); err != nil {
		return Order{}, apperr.Store("delete order_items", err)
	}

	o, err := scanOrder(tx.QueryRow(ctx, `DELETE FROM orders WHERE id = $1 RETURNING `+orderColumns, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, orderNotFound(orderID)
		}
		return Order{}, apperr.Store("delete order", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, apperr.Store("commit", err)
	}
	return o, nil
}

func (r *PostgresRepository) SetStatus(ctx context.Context, orderID string, fulfilled bool) (Order, error) {
	if !db.ValidID(orderID) {
		return Order{}, orderNotFound(orderID)
	}
	o, err := scanOrder(r.pool.QueryRow(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1 RETURNING `+orderColumns, orderID, fulfilled))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, orderNotFound(orderID)
		}
		return Order{}, apperr.Store("update order status", err)
	}
	return o, nil
}

func (r *PostgresRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, apperr.Store("count orders", err)
	}
	return n, nil
}

func (r *PostgresRepository) CountAll(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&n); err != nil {
		return 0, apperr.Store("count orders", err)
	}
	return n, nil
}
