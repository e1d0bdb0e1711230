package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PlaceholderName  = "Unknown Product"
	PlaceholderImage = "/placeholder.png"
)

// Line is one persisted cart row. TotalPrice is Quantity times the unit price
// resolved at the last write; it is not refreshed on read.
type Line struct {
	ID         string          `json:"id"`
	UserID     string          `json:"userId"`
	ProductID  string          `json:"productId"`
	Quantity   int             `json:"quantity"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Entry is a line joined with the product's current display data.
type Entry struct {
	Line
	ProductName  string          `json:"productName"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Images       []string        `json:"images"`
	ProductFound bool            `json:"productFound"`
}

// Total sums the cached line totals.
func Total(entries []Entry) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.TotalPrice)
	}
	return sum
}

// Lines strips the display data from entries.
func Lines(entries []Entry) []Line {
	out := make([]Line, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Line)
	}
	return out
}
