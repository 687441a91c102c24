package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID             int      `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Packaging      string   `json:"packaging"`
	ShelfLife      string   `json:"shelf_life"`
	AvailableStock int      `json:"available_stock"`
	RestockDate    string   `json:"restock_date,omitempty"`
	IsActive       bool     `json:"is_active"`
	ImageURLs      []string `json:"image_urls"`
}

// Price is one entry of a product's append-only price series.
type Price struct {
	ID          int             `json:"id,omitempty"`
	ProductID   int             `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Date        string          `json:"date"`
}

// ParseDate accepts the date shapes the backend emits: plain dates and
// RFC 3339 timestamps.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range []string{time.DateOnly, time.RFC3339, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
