package shipment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestParseSupplier(t *testing.T) {
	s, err := ParseSupplier("  colmena ")
	require.NoError(t, err)
	assert.Equal(t, Colmena, s)

	_, err = ParseSupplier("ACME")
	assert.Error(t, err)
}

func TestSupplierRules(t *testing.T) {
	assert.True(t, Colmena.Rules().OriginPricing)
	assert.True(t, Baolai.Rules().CelsamFee)
	assert.True(t, ASG.Rules().LogisticsExempt)
	assert.True(t, Fortica.Rules().TraderRate.Equal(dec("0.01")))
	assert.True(t, ASG.Rules().TraderRate.IsZero())
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, StatusInTransit, ParseStatus("2: Está en transito"))
	assert.Equal(t, StatusArrived, ParseStatus("3"))
	assert.Equal(t, StatusNotArrived, ParseStatus(""))
}

func TestNormalizeRecomputesTonsAndRounds(t *testing.T) {
	it := LineItem{
		Header:           Header{Supplier: Fortica, Vice: "V1", Origin: OriginProvider},
		Kilograms:        dec("1234.567"),
		Tons:             dec("99"),
		TotalProvider:    dec("10.005"),
		GandolaFactor:    decimal.NewNullDecimal(dec("0.12345678")),
		OriginCostPerTon: decimal.NewNullDecimal(dec("800")),
	}
	it.Normalize()

	assert.Equal(t, "1234.57", it.Kilograms.StringFixed(2))
	assert.Equal(t, "1.23", it.Tons.StringFixed(2))
	assert.Equal(t, "10.01", it.TotalProvider.StringFixed(2))
	assert.Equal(t, "0.123457", it.GandolaFactor.Decimal.StringFixed(6))
	assert.Empty(t, it.Vice)
	assert.Equal(t, OriginNone, it.Origin)
	assert.False(t, it.OriginCostPerTon.Valid)

	again := it.Clone()
	again.Normalize()
	assert.True(t, it.Tons.Equal(again.Tons))
	assert.True(t, it.TotalProvider.Equal(again.TotalProvider))
	assert.True(t, it.GandolaFactor.Decimal.Equal(again.GandolaFactor.Decimal))
}

func TestNormalizePrecisionByField(t *testing.T) {
	it := LineItem{
		Header:          Header{Supplier: Fortica},
		Kilograms:       dec("4"),
		ReceivedKilos:   decimal.NewNullDecimal(dec("4.004")),
		TotalPerKilo:    decimal.NewNullDecimal(dec("0.8578947")),
		RealCostPerKilo: decimal.NewNullDecimal(dec("7.0634449")),
		RealCostPerTon:  decimal.NewNullDecimal(dec("7063.4449")),
	}
	it.Normalize()
	assert.Equal(t, "0.00", it.Tons.StringFixed(2))
	assert.True(t, it.ReceivedTons.Decimal.IsZero())
	assert.Equal(t, "0.857895", it.TotalPerKilo.Decimal.String())
	assert.Equal(t, "7.063445", it.RealCostPerKilo.Decimal.String())
	assert.Equal(t, "7063.44", it.RealCostPerTon.Decimal.String())
}

func TestStoredTons(t *testing.T) {
	assert.Equal(t, "0", StoredTons(dec("4.99")).String())
	assert.Equal(t, "0.01", StoredTons(dec("5")).String())
	assert.Equal(t, "1.23", StoredTons(dec("1234.567")).String())
}

func TestNormalizeKeepsColmenaOriginFields(t *testing.T) {
	it := LineItem{
		Header:           Header{Supplier: Colmena, Vice: "V1", Origin: OriginProvider},
		OriginCostPerTon: decimal.NewNullDecimal(dec("800")),
	}
	it.Normalize()
	assert.Equal(t, "V1", it.Vice)
	assert.True(t, it.OriginCostPerTon.Valid)
}

func TestCloneIsDeep(t *testing.T) {
	n := 4
	it := LineItem{ReceivedPieces: &n}
	c := it.Clone()
	*c.ReceivedPieces = 9
	assert.Equal(t, 4, *it.ReceivedPieces)
}
