package catalog

import "github.com/shopspring/decimal"

// Product is owned by the catalog; the cart and order components only read it.
type Product struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	Images []string        `json:"images"`
}

// FirstImage returns the product's primary image, or "" when it has none.
func (p Product) FirstImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
