package db

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

type priced struct {
	Price decimal.Decimal `bson:"price"`
}

func TestDecimalStoredAsDecimal128(t *testing.T) {
	raw, err := bson.MarshalWithRegistry(Registry(), priced{Price: decimal.RequireFromString("12.345")})
	require.NoError(t, err)

	v := bson.Raw(raw).Lookup("price")
	assert.Equal(t, bsontype.Decimal128, v.Type)

	var back priced
	require.NoError(t, bson.UnmarshalWithRegistry(Registry(), raw, &back))
	assert.True(t, back.Price.Equal(decimal.RequireFromString("12.345")), back.Price.String())
}

func TestDecimalFromLegacyNumbers(t *testing.T) {
	for _, doc := range []bson.M{{"price": 2.5}, {"price": "2.5"}, {"price": int32(2)}} {
		raw, err := bson.Marshal(doc)
		require.NoError(t, err)
		var p priced
		require.NoError(t, bson.UnmarshalWithRegistry(Registry(), raw, &p))
		assert.True(t, p.Price.IsPositive())
	}
}
