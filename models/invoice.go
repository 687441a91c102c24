package models

import "github.com/shopspring/decimal"

type CalcType string

const (
	CalcByQuantity CalcType = "quantity"
	CalcByWeight   CalcType = "weight"
)

type InvoiceItem struct {
	ProductID   int             `json:"product_id" bson:"product_id"`
	ProductName string          `json:"product_name,omitempty" bson:"product_name,omitempty"`
	Quantity    int             `json:"quantity" bson:"quantity"`
	Weight      decimal.Decimal `json:"weight" bson:"weight"`
	Price       decimal.Decimal `json:"price" bson:"price"`
	CalcType    CalcType        `json:"calcType" bson:"calc_type"`
	Subtotal    decimal.Decimal `json:"subtotal" bson:"subtotal"`
}

type Invoice struct {
	InvoiceNumber string          `json:"invoice_number"`
	Items         []InvoiceItem   `json:"items"`
	Total         decimal.Decimal `json:"total"`
	CreatedAt     string          `json:"created_at,omitempty"`
}

// InvoiceDraft is an invoice an admin is still editing. It is stored
// between requests and discarded once submitted.
type InvoiceDraft struct {
	OrderID       int             `json:"order_id" bson:"order_id"`
	InvoiceNumber string          `json:"invoice_number" bson:"invoice_number"`
	Items         []InvoiceItem   `json:"items" bson:"items"`
	Total         decimal.Decimal `json:"total" bson:"total"`
	UpdatedAt     int64           `json:"updated_at" bson:"updated_at"`
}

// Invoice converts the draft to the payload posted to the backend.
func (d InvoiceDraft) Invoice() Invoice {
	items := make([]InvoiceItem, len(d.Items))
	copy(items, d.Items)
	return Invoice{InvoiceNumber: d.InvoiceNumber, Items: items, Total: d.Total}
}
