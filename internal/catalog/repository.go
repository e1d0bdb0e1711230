package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/db"
)

type Repository interface {
	Get(ctx context.Context, productID string) (Product, error)
}

type PostgresRepository struct {
	pool db.DBPool
}

func NewPostgresRepository(pool db.DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Get(ctx context.Context, productID string) (Product, error) {
	var p Product
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, price, images FROM product WHERE id = $1`,
		productID,
	).Scan(&p.ID, &p.Name, &p.Price, &p.Images)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, fmt.Errorf("product %s: %w", productID, apperr.ErrNotFound)
		}
		return Product{}, apperr.Store("select product", err)
	}
	return p, nil
}
