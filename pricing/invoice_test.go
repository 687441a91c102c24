package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"musa/models"
)

func intp(v int) *int                          { return &v }
func decp(s string) *decimal.Decimal           { d := dec(s); return &d }
func calcp(c models.CalcType) *models.CalcType { return &c }

func TestSubtotalByWeight(t *testing.T) {
	item := models.InvoiceItem{Price: dec("20"), Quantity: 5, Weight: dec("3"), CalcType: models.CalcByWeight}
	assert.Equal(t, "60.00", Format(Subtotal(item)))
}

func TestSubtotalByQuantity(t *testing.T) {
	item := models.InvoiceItem{Price: dec("20"), Quantity: 5, Weight: dec("3"), CalcType: models.CalcByQuantity}
	assert.Equal(t, "100.00", Format(Subtotal(item)))
}

func TestRecalculateTotal(t *testing.T) {
	items := []models.InvoiceItem{
		{Price: dec("10"), Quantity: 2, CalcType: models.CalcByQuantity},
		{Price: dec("5"), Weight: dec("4"), CalcType: models.CalcByWeight},
	}
	out, total := Recalculate(items)
	assert.Equal(t, "40.00", Format(total))
	assert.Equal(t, "20.00", Format(out[0].Subtotal))
	assert.Equal(t, "20.00", Format(out[1].Subtotal))
	assert.True(t, items[0].Subtotal.IsZero(), "input must not be mutated")
}

func TestRecalculateIgnoresSuppliedSubtotal(t *testing.T) {
	items := []models.InvoiceItem{{Price: dec("3"), Quantity: 3, CalcType: models.CalcByQuantity, Subtotal: dec("1000")}}
	_, total := Recalculate(items)
	assert.Equal(t, "9.00", Format(total))
}

func testOrder() models.Order {
	return models.Order{
		ID:     42,
		Status: models.OrderConfirmed,
		Items: []models.OrderItem{
			{ProductID: 1, ProductName: "Green Banana", Quantity: 5, Weight: decp("3")},
			{ProductID: 2, ProductName: "Robusta", Quantity: 2},
		},
	}
}

func TestNewDraft(t *testing.T) {
	d := NewDraft(testOrder(), 7)
	assert.Equal(t, 42, d.OrderID)
	assert.Equal(t, "INV-007", d.InvoiceNumber)
	require.Len(t, d.Items, 2)
	assert.Equal(t, models.CalcByQuantity, d.Items[0].CalcType)
	assert.True(t, d.Items[0].Weight.Equal(dec("3")))
	assert.True(t, d.Items[1].Weight.IsZero())
	assert.True(t, d.Total.IsZero())
}

func TestWeightEditIgnoredForQuantityPricing(t *testing.T) {
	d := NewDraft(testOrder(), 1)
	require.NoError(t, ApplyEdit(&d, 0, Edit{Price: decp("20")}))
	before := d.Items[0].Subtotal
	require.NoError(t, ApplyEdit(&d, 0, Edit{Weight: decp("9.5")}))
	assert.True(t, before.Equal(d.Items[0].Subtotal))
	assert.Equal(t, "100.00", Format(d.Items[0].Subtotal))
}

func TestQuantityEditIgnoredForWeightPricing(t *testing.T) {
	d := NewDraft(testOrder(), 1)
	require.NoError(t, ApplyEdit(&d, 0, Edit{Price: decp("20"), CalcType: calcp(models.CalcByWeight)}))
	assert.Equal(t, "60.00", Format(d.Items[0].Subtotal))
	require.NoError(t, ApplyEdit(&d, 0, Edit{Quantity: intp(50)}))
	assert.Equal(t, "60.00", Format(d.Items[0].Subtotal))
}

func TestTotalNeverStale(t *testing.T) {
	d := NewDraft(testOrder(), 1)
	edits := []struct {
		index int
		edit  Edit
	}{
		{0, Edit{Price: decp("20")}},
		{1, Edit{Price: decp("7.25")}},
		{0, Edit{CalcType: calcp(models.CalcByWeight)}},
		{1, Edit{Quantity: intp(4)}},
		{0, Edit{Weight: decp("2.5")}},
	}
	for _, e := range edits {
		require.NoError(t, ApplyEdit(&d, e.index, e.edit))
		sum := decimal.Zero
		for _, it := range d.Items {
			sum = sum.Add(it.Subtotal)
		}
		assert.True(t, sum.Equal(d.Total), "total %s != sum %s", d.Total, sum)
	}
	assert.Equal(t, "79.00", Format(d.Total))
}

func TestApplyEditRejectsBadInput(t *testing.T) {
	d := NewDraft(testOrder(), 1)
	err := ApplyEdit(&d, 5, Edit{Price: decp("1")})
	assert.ErrorIs(t, err, ErrLineOutOfRange)

	err = ApplyEdit(&d, 0, Edit{Price: decp("-1")})
	assert.True(t, IsValidation(err))

	err = ApplyEdit(&d, 0, Edit{CalcType: calcp("volume")})
	assert.True(t, IsValidation(err))
}

func TestValidateMissingValuesBlockSubmission(t *testing.T) {
	d := NewDraft(testOrder(), 1)
	err := Validate(d)
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Problems, "Green Banana: price is required")
	assert.Contains(t, verr.Problems, "invoice total must be greater than zero")

	require.NoError(t, ApplyEdit(&d, 0, Edit{Price: decp("20")}))
	require.NoError(t, ApplyEdit(&d, 1, Edit{Price: decp("10"), CalcType: calcp(models.CalcByWeight)}))
	err = Validate(d)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"Robusta: weight is required for weight pricing"}, verr.Problems)

	require.NoError(t, ApplyEdit(&d, 1, Edit{Weight: decp("1.5")}))
	assert.NoError(t, Validate(d))
}

func TestValidateRequiresInvoiceNumber(t *testing.T) {
	d := NewDraft(testOrder(), 1)
	d.InvoiceNumber = "  "
	var verr *ValidationError
	require.ErrorAs(t, Validate(d), &verr)
	assert.Contains(t, verr.Problems, "invoice number is required")
}
