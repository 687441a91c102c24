// Package cart keeps each session's cart in the key/value store. Lines are
// keyed by product id; every mutation is an atomic read-modify-write so two
// tabs editing the same cart never lose each other's changes.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"musa/models"
	"musa/pricing"
	"musa/rdx"
)

const EventUpdated = "cart.updated"

var ErrInvalidQuantity = errors.New("quantity must be at least 1")

func key(sessionID string) string { return "cart:" + sessionID }

type Store struct {
	kv  rdx.Store
	ttl time.Duration
}

func NewStore(kv rdx.Store, ttl time.Duration) *Store {
	return &Store{kv: kv, ttl: ttl}
}

// Summary is the cart as the browser shows it.
type Summary struct {
	Lines        []models.CartLine `json:"items"`
	ItemCount    int               `json:"item_count"`
	Total        decimal.Decimal   `json:"total"`
	TotalDisplay string            `json:"total_display"`
}

func Summarize(lines []models.CartLine) Summary {
	if lines == nil {
		lines = []models.CartLine{}
	}
	count := 0
	for _, l := range lines {
		count += l.Quantity
	}
	total := pricing.CartTotal(lines)
	return Summary{
		Lines:        lines,
		ItemCount:    count,
		Total:        pricing.Round(total),
		TotalDisplay: pricing.Format(total),
	}
}

// decode never fails: a record that does not parse is an empty cart.
func decode(sessionID string, raw []byte) []models.CartLine {
	if len(raw) == 0 {
		return nil
	}
	var lines []models.CartLine
	if err := json.Unmarshal(raw, &lines); err != nil {
		log.Printf("cart %s: discarding corrupt record: %v", sessionID, err)
		return nil
	}
	valid := lines[:0]
	for _, l := range lines {
		if l.ProductID > 0 && l.Quantity >= 1 {
			valid = append(valid, l)
		}
	}
	return valid
}

func (s *Store) Lines(ctx context.Context, sessionID string) ([]models.CartLine, error) {
	raw, err := s.kv.Get(ctx, key(sessionID))
	if errors.Is(err, rdx.ErrNotFound) {
		return []models.CartLine{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	lines := decode(sessionID, raw)
	if lines == nil {
		lines = []models.CartLine{}
	}
	return lines, nil
}

func (s *Store) Summary(ctx context.Context, sessionID string) (Summary, error) {
	lines, err := s.Lines(ctx, sessionID)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(lines), nil
}

// mutate runs fn over the current lines and stores the result. An empty
// result removes the key.
func (s *Store) mutate(ctx context.Context, sessionID string, fn func([]models.CartLine) ([]models.CartLine, error)) ([]models.CartLine, error) {
	var out []models.CartLine
	err := s.kv.Update(ctx, key(sessionID), s.ttl, func(old []byte) ([]byte, error) {
		lines, err := fn(decode(sessionID, old))
		if err != nil {
			return nil, err
		}
		out = lines
		if len(lines) == 0 {
			return nil, nil
		}
		return json.Marshal(lines)
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.CartLine{}
	}
	return out, nil
}

func find(lines []models.CartLine, productID int) int {
	for i, l := range lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

// Add puts line in the cart. A product already in the cart keeps its
// price snapshot and gains the quantity.
func (s *Store) Add(ctx context.Context, sessionID string, line models.CartLine) ([]models.CartLine, error) {
	if line.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	return s.mutate(ctx, sessionID, func(lines []models.CartLine) ([]models.CartLine, error) {
		if i := find(lines, line.ProductID); i >= 0 {
			lines[i].Quantity += line.Quantity
			return lines, nil
		}
		return append(lines, line), nil
	})
}

// SetQuantity sets a line's quantity; zero or less removes the line.
// Products not in the cart are ignored.
func (s *Store) SetQuantity(ctx context.Context, sessionID string, productID, qty int) ([]models.CartLine, error) {
	return s.mutate(ctx, sessionID, func(lines []models.CartLine) ([]models.CartLine, error) {
		i := find(lines, productID)
		if i < 0 {
			return lines, nil
		}
		if qty <= 0 {
			return append(lines[:i], lines[i+1:]...), nil
		}
		lines[i].Quantity = qty
		return lines, nil
	})
}

// adjust changes a line's quantity by delta, removing it below 1.
func (s *Store) adjust(ctx context.Context, sessionID string, productID, delta int) ([]models.CartLine, error) {
	return s.mutate(ctx, sessionID, func(lines []models.CartLine) ([]models.CartLine, error) {
		i := find(lines, productID)
		if i < 0 {
			return lines, nil
		}
		if q := lines[i].Quantity + delta; q >= 1 {
			lines[i].Quantity = q
			return lines, nil
		}
		return append(lines[:i], lines[i+1:]...), nil
	})
}

func (s *Store) Increment(ctx context.Context, sessionID string, productID int) ([]models.CartLine, error) {
	return s.adjust(ctx, sessionID, productID, 1)
}

func (s *Store) Decrement(ctx context.Context, sessionID string, productID int) ([]models.CartLine, error) {
	return s.adjust(ctx, sessionID, productID, -1)
}

func (s *Store) Remove(ctx context.Context, sessionID string, productID int) ([]models.CartLine, error) {
	return s.SetQuantity(ctx, sessionID, productID, 0)
}

// Settle takes ordered quantities out of the cart after checkout. Lines
// added or increased since the order was built stay in the cart.
func (s *Store) Settle(ctx context.Context, sessionID string, ordered []models.OrderLine) ([]models.CartLine, error) {
	return s.mutate(ctx, sessionID, func(lines []models.CartLine) ([]models.CartLine, error) {
		left := lines[:0]
		for _, l := range lines {
			for _, o := range ordered {
				if o.ProductID == l.ProductID {
					l.Quantity -= o.Quantity
				}
			}
			if l.Quantity >= 1 {
				left = append(left, l)
			}
		}
		return left, nil
	})
}

func (s *Store) Clear(ctx context.Context, sessionID string) error {
	return s.kv.Del(ctx, key(sessionID))
}
