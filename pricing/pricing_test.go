package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"musa/models"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCartTotalSingleLine(t *testing.T) {
	lines := []models.CartLine{{ProductID: 1, ProductName: "Green Banana", Quantity: 2, Price: dec("50")}}
	assert.Equal(t, "100.00", Format(CartTotal(lines)))
}

func TestCartTotalIsOrderIndependent(t *testing.T) {
	a := []models.CartLine{
		{ProductID: 1, Quantity: 3, Price: dec("12.35")},
		{ProductID: 2, Quantity: 1, Price: dec("0.10")},
		{ProductID: 3, Quantity: 7, Price: dec("99.99")},
	}
	b := []models.CartLine{a[2], a[0], a[1]}
	assert.True(t, CartTotal(a).Equal(CartTotal(b)))
	assert.Equal(t, "737.08", Format(CartTotal(a)))
}

func TestCartTotalEmpty(t *testing.T) {
	assert.Equal(t, "0.00", Format(CartTotal(nil)))
}

func TestFixedPointAvoidsFloatDrift(t *testing.T) {
	lines := []models.CartLine{
		{ProductID: 1, Quantity: 1, Price: dec("0.1")},
		{ProductID: 2, Quantity: 1, Price: dec("0.2")},
	}
	assert.True(t, CartTotal(lines).Equal(dec("0.3")))
}

func TestRoundHalfAwayFromZero(t *testing.T) {
	assert.Equal(t, "2.68", Format(dec("2.675")))
	assert.Equal(t, "1.00", Format(dec("0.995")))
}
