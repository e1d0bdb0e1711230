package catalog

import (
	"context"

	"github.com/shopspring/decimal"
)

// Resolver answers the current unit price of a product. The price is a
// snapshot valid only at call time.
type Resolver struct {
	repo Repository
}

func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// ResolvePrice fails with apperr.ErrNotFound when the product does not exist.
func (r *Resolver) ResolvePrice(ctx context.Context, productID string) (decimal.Decimal, error) {
	p, err := r.repo.Get(ctx, productID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return p.Price, nil
}
