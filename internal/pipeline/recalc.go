package pipeline

import (
	"AcevalImport/internal/numeric"
	"AcevalImport/internal/shipment"

	"github.com/shopspring/decimal"
)

var (
	thousand          = decimal.NewFromInt(1000)
	defaultPortFee    = decimal.RequireFromString("15.0")
	defaultCommission = decimal.RequireFromString("0.95")
)

// Recalculate re-derives tons and provider cost of a possibly edited item and
// rounds it. Inputs are rounded before anything is derived from them, so
// applying it twice gives the same item.
//
// Only one per-unit cost may be the recorded basis: the piece cost wins over
// the ton cost, which wins over a supplied total-ton-plus-commission figure.
// COLMENA items priced from the supplier's origin figures are always
// recomputed from those.
func Recalculate(it *shipment.LineItem) {
	it.Normalize()

	if it.Supplier.Rules().OriginPricing && it.Origin == shipment.OriginProvider {
		commission := defaultCommission
		if !numeric.IsZeroOrNull(it.Commission) {
			commission = it.Commission.Decimal
		}
		port := defaultPortFee
		if it.PortFee.Valid {
			port = it.PortFee.Decimal
		}
		priceByOrigin(it, port, commission)
		it.Normalize()
		return
	}

	switch {
	case hasPieceBasis(it):
		priceByPiece(it)
		it.CostPerTon = decimal.NullDecimal{}
	case !numeric.IsZeroOrNull(it.CostPerTon):
		priceByTon(it)
		it.CostPerPiece = decimal.NullDecimal{}
	case !numeric.IsZeroOrNull(it.TotalTonCom):
		priceByTotalTon(it, it.TotalTonCom.Decimal)
		it.CostPerPiece = decimal.NullDecimal{}
		it.CostPerTon = decimal.NullDecimal{}
	default:
		setProviderCost(it, decimal.Zero, zeroPerKilo(it))
	}
	it.Normalize()
}

func hasPieceBasis(it *shipment.LineItem) bool {
	return it.Pieces > 0 && !numeric.IsZeroOrNull(it.CostPerPiece)
}

func priceByPiece(it *shipment.LineItem) {
	total := it.CostPerPiece.Decimal.Mul(decimal.NewFromInt(int64(it.Pieces)))
	perKilo := decimal.NullDecimal{}
	if !it.Kilograms.IsZero() {
		perKilo = numeric.NullOf(total.Div(it.Kilograms))
	}
	setProviderCost(it, total, perKilo)
}

func priceByTon(it *shipment.LineItem) {
	total := it.CostPerTon.Decimal.Mul(shipment.TonsOf(it.Kilograms))
	setProviderCost(it, total, numeric.NullOf(it.CostPerTon.Decimal.Div(thousand)))
}

func priceByTotalTon(it *shipment.LineItem, totalTon decimal.Decimal) {
	perKilo := totalTon.Div(thousand)
	setProviderCost(it, perKilo.Mul(it.Kilograms), numeric.NullOf(perKilo))
}

// priceByOrigin prices a COLMENA item from the origin cost per ton plus the
// port fee, grossed up by the commission fraction.
func priceByOrigin(it *shipment.LineItem, port, commission decimal.Decimal) {
	origin := numeric.ValueOrZero(it.OriginCostPerTon)
	totalTon := origin.Add(port).Div(commission)

	it.PortFee = numeric.NullOf(port)
	it.Commission = numeric.NullOf(commission)
	it.TotalTonCom = numeric.NullOf(totalTon)
	it.CostPerPiece = decimal.NullDecimal{}
	it.CostPerTon = decimal.NullDecimal{}
	priceByTotalTon(it, totalTon)
}

func setProviderCost(it *shipment.LineItem, total decimal.Decimal, perKilo decimal.NullDecimal) {
	it.TotalProvider = total
	it.TotalPerKilo = perKilo
}

func zeroPerKilo(it *shipment.LineItem) decimal.NullDecimal {
	if it.Kilograms.IsZero() {
		return decimal.NullDecimal{}
	}
	return numeric.NullOf(decimal.Zero)
}
