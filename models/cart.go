package models

import "github.com/shopspring/decimal"

// CartLine is one product in a session's cart. Lines are keyed by ProductID.
type CartLine struct {
	ProductID   int             `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url,omitempty"`
}

// LineTotal is price x quantity, unrounded.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// OrderLine is what checkout sends for each cart line.
type OrderLine struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

// OrderRequest is the body of POST /orders.
type OrderRequest struct {
	DeliveryDate string      `json:"delivery_date"`
	Products     []OrderLine `json:"products"`
}
