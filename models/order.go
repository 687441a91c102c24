package models

import "github.com/shopspring/decimal"

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is one of the known order statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// OrderItem is the immutable snapshot of what was ordered.
type OrderItem struct {
	ProductID   int              `json:"product_id"`
	ProductName string           `json:"product_name"`
	Quantity    int              `json:"quantity"`
	Weight      *decimal.Decimal `json:"weight,omitempty"`
}

type Order struct {
	ID            int         `json:"order_id"`
	UserID        int         `json:"user_id,omitempty"`
	UserName      string      `json:"user_name,omitempty"`
	Status        OrderStatus `json:"status"`
	DeliveryDate  string      `json:"delivery_date"`
	CreatedAt     string      `json:"created_at"`
	Items         []OrderItem `json:"items"`
	InvoiceNumber string      `json:"invoice_number,omitempty"`
	Invoice       *Invoice    `json:"invoice,omitempty"`
}

// HasInvoice is true once an invoice has been issued, whether the backend
// sent the full invoice or only its number.
func (o Order) HasInvoice() bool {
	return o.Invoice != nil || o.InvoiceNumber != ""
}

// StatusUpdate is the body of PUT /admin/orders/:id/status.
type StatusUpdate struct {
	Status       OrderStatus `json:"status"`
	DeliveryDate string      `json:"delivery_date,omitempty"`
}
