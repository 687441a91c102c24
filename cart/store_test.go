package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"musa/models"
	"musa/rdx"
)

func line(id, qty int, price string) models.CartLine {
	return models.CartLine{ProductID: id, ProductName: "p", Quantity: qty, Price: decimal.RequireFromString(price)}
}

func newStore() (*Store, *rdx.Memory) {
	kv := rdx.NewMemory()
	return NewStore(kv, time.Hour), kv
}

func TestAddMergesByProduct(t *testing.T) {
	s, _ := newStore()
	ctx := context.Background()

	_, err := s.Add(ctx, "s", line(1, 2, "10"))
	require.NoError(t, err)
	lines, err := s.Add(ctx, "s", line(1, 3, "12"))
	require.NoError(t, err)

	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)
	assert.True(t, lines[0].Price.Equal(decimal.NewFromInt(10)), "price snapshot kept")
}

func TestAddRejectsZeroQuantity(t *testing.T) {
	s, _ := newStore()
	_, err := s.Add(context.Background(), "s", line(1, 0, "10"))
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestSummaryTotal(t *testing.T) {
	s, _ := newStore()
	ctx := context.Background()
	_, _ = s.Add(ctx, "s", line(1, 2, "25.50"))
	_, _ = s.Add(ctx, "s", line(2, 1, "49.00"))

	sum, err := s.Summary(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, "100.00", sum.TotalDisplay)
	assert.Equal(t, 3, sum.ItemCount)
}

func TestSetQuantityZeroRemoves(t *testing.T) {
	s, _ := newStore()
	ctx := context.Background()
	_, _ = s.Add(ctx, "s", line(1, 2, "10"))
	_, _ = s.Add(ctx, "s", line(2, 1, "5"))

	lines, err := s.SetQuantity(ctx, "s", 1, 0)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].ProductID)

	lines, err = s.SetQuantity(ctx, "s", 2, -3)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestDecrementAtOneRemoves(t *testing.T) {
	s, _ := newStore()
	ctx := context.Background()
	_, _ = s.Add(ctx, "s", line(1, 1, "10"))

	lines, err := s.Increment(ctx, "s", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, lines[0].Quantity)

	_, _ = s.Decrement(ctx, "s", 1)
	lines, err = s.Decrement(ctx, "s", 1)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	s, _ := newStore()
	ctx := context.Background()
	_, _ = s.Add(ctx, "s", line(1, 1, "10"))

	lines, err := s.Remove(ctx, "s", 99)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestClear(t *testing.T) {
	s, _ := newStore()
	ctx := context.Background()
	_, _ = s.Add(ctx, "s", line(1, 1, "10"))
	require.NoError(t, s.Clear(ctx, "s"))
	lines, err := s.Lines(ctx, "s")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestSettleRemovesOnlyOrderedQuantities(t *testing.T) {
	s, _ := newStore()
	ctx := context.Background()
	_, _ = s.Add(ctx, "s", line(1, 3, "10"))
	_, _ = s.Add(ctx, "s", line(2, 1, "5"))
	_, _ = s.Add(ctx, "s", line(3, 2, "7"))

	left, err := s.Settle(ctx, "s", []models.OrderLine{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 1}})
	require.NoError(t, err)
	require.Len(t, left, 2)
	assert.Equal(t, 1, left[0].ProductID)
	assert.Equal(t, 1, left[0].Quantity)
	assert.Equal(t, 3, left[1].ProductID)

	left, err = s.Settle(ctx, "s", []models.OrderLine{{ProductID: 1, Quantity: 1}, {ProductID: 3, Quantity: 2}})
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestCorruptCartIsEmpty(t *testing.T) {
	s, kv := newStore()
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, "cart:s", []byte(`[{"product_id":`), 0))

	lines, err := s.Lines(ctx, "s")
	require.NoError(t, err)
	assert.Empty(t, lines)

	// and the next mutation starts from an empty cart
	lines, err = s.Add(ctx, "s", line(1, 1, "10"))
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestCartsAreIsolatedPerSession(t *testing.T) {
	s, _ := newStore()
	ctx := context.Background()
	_, _ = s.Add(ctx, "a", line(1, 1, "10"))
	lines, _ := s.Lines(ctx, "b")
	assert.Empty(t, lines)
}

func TestConcurrentAddsAreNotLost(t *testing.T) {
	s, _ := newStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, err := s.Add(ctx, "s", line(1+id%4, 1, "1"))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	sum, err := s.Summary(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, 20, sum.ItemCount)
	assert.Len(t, sum.Lines, 4)
}
