package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a snapshot of one cart line taken when the order was created.
type Item struct {
	ID         string          `json:"id"`
	OrderID    string          `json:"orderId"`
	ProductID  string          `json:"productId"`
	Quantity   int             `json:"quantity"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// Order is immutable once created except for the Fulfilled flag.
type Order struct {
	ID         string          `json:"id"`
	UserID     string          `json:"userId"`
	Phone      string          `json:"phone"`
	Address    string          `json:"address"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	Fulfilled  bool            `json:"fulfilled"`
	CreatedAt  time.Time       `json:"createdAt"`
	Items      []Item          `json:"items,omitempty"`
}

// ItemView is an Item with the product's display data, or a placeholder when
// the product is gone.
type ItemView struct {
	Item
	ProductName  string `json:"productName"`
	Image        string `json:"image"`
	ProductFound bool   `json:"productFound"`
}
