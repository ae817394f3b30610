package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog item as served by the upstream products API.
type Product struct {
	ID           int             `json:"id"`
	Name         string          `json:"productName"`
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	Price        decimal.Decimal `json:"price"`
	Stock        int             `json:"stock"`
	Manufacturer string          `json:"manufacturer"`
	SKU          int64           `json:"sku"`
	Image        string          `json:"image"`
	Thumbnail    string          `json:"thumbnail"`
}

// CartLine pairs a product snapshot with a positive quantity.
type CartLine struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Subtotal returns price × quantity for the line.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartView is the serialized state of a session cart.
type CartView struct {
	ID        string          `json:"id"`
	Lines     []CartLine      `json:"items"`
	Count     int             `json:"cart_count"`
	Items     int             `json:"total_items"`
	Total     decimal.Decimal `json:"cart_total"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ProductsState mirrors what the products page shows: the list, the loading flag and the last error.
type ProductsState struct {
	Products  []Product `json:"products"`
	Loading   bool      `json:"loading"`
	Error     string    `json:"error,omitempty"`
	FetchedAt time.Time `json:"fetched_at,omitempty"`
}

// Order is returned by checkout.
type Order struct {
	ID         string          `json:"id"`
	Lines      []CartLine      `json:"items"`
	TotalItems int             `json:"total_items"`
	Total      decimal.Decimal `json:"total"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ImportResponse reports the outcome of a catalog archive import.
type ImportResponse struct {
	TotalItems      int             `json:"total_items"`
	TotalCategories int             `json:"total_categories"`
	TotalStock      int             `json:"total_stock"`
	TotalPrice      decimal.Decimal `json:"total_price"`
}
