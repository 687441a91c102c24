package pricing

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"musa/models"
)

var ErrLineOutOfRange = errors.New("invoice line out of range")

// ValidationError lists every problem found in an invoice so the admin can
// fix them in one pass.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid invoice: " + strings.Join(e.Problems, "; ")
}

// IsValidation helps callers tell input problems from infrastructure failures.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Subtotal is price x weight for weight-priced lines and price x quantity
// otherwise. An unknown calc type prices by quantity.
func Subtotal(item models.InvoiceItem) decimal.Decimal {
	if item.CalcType == models.CalcByWeight {
		return item.Price.Mul(item.Weight)
	}
	return item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
}

// Recalculate returns a copy of items with every subtotal recomputed,
// together with their total. The input is left untouched.
func Recalculate(items []models.InvoiceItem) ([]models.InvoiceItem, decimal.Decimal) {
	out := make([]models.InvoiceItem, len(items))
	total := decimal.Zero
	for i, it := range items {
		if it.CalcType == "" {
			it.CalcType = models.CalcByQuantity
		}
		it.Subtotal = Round(Subtotal(it))
		total = total.Add(it.Subtotal)
		out[i] = it
	}
	return out, total
}

// InvoiceNumber formats the sequential invoice number offered for a new
// invoice, e.g. INV-007.
func InvoiceNumber(seq int) string {
	return fmt.Sprintf("INV-%03d", seq)
}

// NewDraft seeds an invoice draft from an order: one line per order item,
// unpriced and calculated by quantity.
func NewDraft(order models.Order, seq int) models.InvoiceDraft {
	items := make([]models.InvoiceItem, 0, len(order.Items))
	for _, oi := range order.Items {
		w := decimal.Zero
		if oi.Weight != nil {
			w = *oi.Weight
		}
		items = append(items, models.InvoiceItem{
			ProductID:   oi.ProductID,
			ProductName: oi.ProductName,
			Quantity:    oi.Quantity,
			Weight:      w,
			Price:       decimal.Zero,
			CalcType:    models.CalcByQuantity,
		})
	}
	items, total := Recalculate(items)
	return models.InvoiceDraft{
		OrderID:       order.ID,
		InvoiceNumber: InvoiceNumber(seq),
		Items:         items,
		Total:         total,
		UpdatedAt:     time.Now().Unix(),
	}
}

// Edit changes one or more fields of a single invoice line. Nil fields are
// left as they are.
type Edit struct {
	Quantity *int             `json:"quantity,omitempty"`
	Weight   *decimal.Decimal `json:"weight,omitempty"`
	Price    *decimal.Decimal `json:"price,omitempty"`
	CalcType *models.CalcType `json:"calcType,omitempty"`
}

func (e Edit) validate() error {
	var problems []string
	if e.Quantity != nil && *e.Quantity < 0 {
		problems = append(problems, "quantity must not be negative")
	}
	if e.Weight != nil && e.Weight.IsNegative() {
		problems = append(problems, "weight must not be negative")
	}
	if e.Price != nil && e.Price.IsNegative() {
		problems = append(problems, "price must not be negative")
	}
	if e.CalcType != nil && *e.CalcType != models.CalcByQuantity && *e.CalcType != models.CalcByWeight {
		problems = append(problems, fmt.Sprintf("unknown calc type %q", *e.CalcType))
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// ApplyEdit applies e to line index of the draft and recomputes every
// subtotal and the total.
func ApplyEdit(d *models.InvoiceDraft, index int, e Edit) error {
	if index < 0 || index >= len(d.Items) {
		return fmt.Errorf("%w: %d", ErrLineOutOfRange, index)
	}
	if err := e.validate(); err != nil {
		return err
	}
	items := make([]models.InvoiceItem, len(d.Items))
	copy(items, d.Items)
	line := &items[index]
	if e.Quantity != nil {
		line.Quantity = *e.Quantity
	}
	if e.Weight != nil {
		line.Weight = *e.Weight
	}
	if e.Price != nil {
		line.Price = *e.Price
	}
	if e.CalcType != nil {
		line.CalcType = *e.CalcType
	}
	d.Items, d.Total = Recalculate(items)
	d.UpdatedAt = time.Now().Unix()
	return nil
}

// Validate checks a draft before it is issued. Missing values compute as
// zero while editing but block submission.
func Validate(d models.InvoiceDraft) error {
	var problems []string
	if strings.TrimSpace(d.InvoiceNumber) == "" {
		problems = append(problems, "invoice number is required")
	}
	if len(d.Items) == 0 {
		problems = append(problems, "invoice has no lines")
	}
	for i, it := range d.Items {
		name := it.ProductName
		if name == "" {
			name = fmt.Sprintf("line %d", i+1)
		}
		if !it.Price.IsPositive() {
			problems = append(problems, name+": price is required")
		}
		switch it.CalcType {
		case models.CalcByWeight:
			if !it.Weight.IsPositive() {
				problems = append(problems, name+": weight is required for weight pricing")
			}
		default:
			if it.Quantity <= 0 {
				problems = append(problems, name+": quantity is required for quantity pricing")
			}
		}
	}
	_, total := Recalculate(d.Items)
	if !total.IsPositive() {
		problems = append(problems, "invoice total must be greater than zero")
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
