package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/db"
)

type Repository interface {
	Get(ctx context.Context, lineID string) (Line, error)
	FindByUserProduct(ctx context.Context, userID, productID string) (Line, error)
	Insert(ctx context.Context, l *Line) error
	UpdateQuantity(ctx context.Context, lineID string, quantity int, total decimal.Decimal) (Line, error)
	Delete(ctx context.Context, lineID string) (Line, error)
	ListByUser(ctx context.Context, userID string) ([]Entry, error)
	LinesByUser(ctx context.Context, userID string) ([]Line, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	CountByUser(ctx context.Context, userID string) (int, error)
}

const lineColumns = `id, user_id, product_id, quantity, total_price, created_at, updated_at`

type PostgresRepository struct {
	pool db.DBPool
}

func NewPostgresRepository(pool db.DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func scanLine(row pgx.Row) (Line, error) {
	var l Line
	err := row.Scan(&l.ID, &l.UserID, &l.ProductID, &l.Quantity, &l.TotalPrice, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

var errLineNotFound = fmt.Errorf("cart line: %w", apperr.ErrNotFound)

func (r *PostgresRepository) getOne(ctx context.Context, op, query string, args ...any) (Line, error) {
	l, err := scanLine(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Line{}, errLineNotFound
		}
		return Line{}, apperr.Store(op, err)
	}
	return l, nil
}

func (r *PostgresRepository) Get(ctx context.Context, lineID string) (Line, error) {
	if !db.ValidID(lineID) {
		return Line{}, errLineNotFound
	}
	return r.getOne(ctx, "select cart line",
		`SELECT `+lineColumns+` FROM cart WHERE id = $1`, lineID)
}

func (r *PostgresRepository) FindByUserProduct(ctx context.Context, userID, productID string) (Line, error) {
	return r.getOne(ctx, "select cart line",
		`SELECT `+lineColumns+` FROM cart WHERE user_id = $1 AND product_id = $2`, userID, productID)
}

// Insert creates the line for (user, product). A concurrent insert for the
// same pair is resolved by the unique key: the later write wins and l takes
// the id of the surviving row.
func (r *PostgresRepository) Insert(ctx context.Context, l *Line) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO cart (id, user_id, product_id, quantity, total_price)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, total_price = EXCLUDED.total_price, updated_at = NOW()
		RETURNING id, created_at, updated_at
	`, l.ID, l.UserID, l.ProductID, l.Quantity, l.TotalPrice).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return apperr.Store("insert cart line", err)
	}
	return nil
}

// UpdateQuantity writes quantity and total in one statement.
func (r *PostgresRepository) UpdateQuantity(ctx context.Context, lineID string, quantity int, total decimal.Decimal) (Line, error) {
	if !db.ValidID(lineID) {
		return Line{}, errLineNotFound
	}
	return r.getOne(ctx, "update cart line", `
		UPDATE cart SET quantity = $2, total_price = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+lineColumns, lineID, quantity, total)
}

// Delete returns the removed row, or apperr.ErrNotFound if there was none.
func (r *PostgresRepository) Delete(ctx context.Context, lineID string) (Line, error) {
	if !db.ValidID(lineID) {
		return Line{}, errLineNotFound
	}
	return r.getOne(ctx, "delete cart line",
		`DELETE FROM cart WHERE id = $1 RETURNING `+lineColumns, lineID)
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.user_id, c.product_id, c.quantity, c.total_price, c.created_at, c.updated_at,
		       p.id IS NOT NULL, COALESCE(p.name, ''), COALESCE(p.price, 0), COALESCE(p.images, '{}')
		FROM cart c
		LEFT JOIN product p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.created_at, c.id
	`, userID)
	if err != nil {
		return nil, apperr.Store("select cart", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.ProductID, &e.Quantity, &e.TotalPrice, &e.CreatedAt, &e.UpdatedAt,
			&e.ProductFound, &e.ProductName, &e.UnitPrice, &e.Images,
		); err != nil {
			return nil, apperr.Store("scan cart entry", err)
		}
		if !e.ProductFound {
			e.ProductName = PlaceholderName
			e.Images = []string{PlaceholderImage}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store("rows", err)
	}
	return entries, nil
}

func (r *PostgresRepository) LinesByUser(ctx context.Context, userID string) ([]Line, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+lineColumns+` FROM cart WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, apperr.Store("select cart lines", err)
	}
	defer rows.Close()

	lines := []Line{}
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, apperr.Store("scan cart line", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store("rows", err)
	}
	return lines, nil
}

func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cart WHERE user_id = $1`, userID)
	if err != nil {
		return 0, apperr.Store("clear cart", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM cart WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, apperr.Store("count cart", err)
	}
	return n, nil
}
