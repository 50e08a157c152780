package pipeline

import (
	"AcevalImport/internal/numeric"
	"AcevalImport/internal/shipment"

	"github.com/shopspring/decimal"
)

// Reconcile sums every cost accumulated by stages I to III, applies the
// trader fee and derives real unit costs and receipt variances. Items with no
// received weight keep their real-cost fields null. c is never modified.
func Reconcile(c Context) Context {
	out := c.Clone()
	out.Stage = StageReconciliation
	if len(out.Items) == 0 {
		return out
	}

	traderRate := out.Header.Supplier.Rules().TraderRate
	for i := range out.Items {
		it := &out.Items[i]

		subtotal := it.TotalProvider
		for _, d := range []decimal.NullDecimal{
			it.BankFee, it.Celsam, it.PlanillaTN, it.PlanillaSeniat,
			it.Customs, it.Freight, it.Nationalization, it.Handling,
		} {
			subtotal = subtotal.Add(numeric.ValueOrZero(d))
		}
		trader := numeric.Money(subtotal.Mul(traderRate))
		grand := subtotal.Add(trader)
		it.TraderFee = numeric.NullOf(trader)

		receivedKilos := numeric.ValueOrZero(it.ReceivedKilos)
		receivedTons := shipment.StoredTons(receivedKilos)

		var perKilo decimal.NullDecimal
		if receivedTons.IsZero() {
			it.RealCostPerTon = decimal.NullDecimal{}
			it.RealCostWithExpenses = decimal.NullDecimal{}
			it.RealCostPerKilo = decimal.NullDecimal{}
		} else {
			perTon := grand.Div(receivedTons)
			perKilo = numeric.NullOf(perTon.Div(thousand))
			it.RealCostPerTon = numeric.NullOf(perTon)
			it.RealCostWithExpenses = numeric.NullOf(perTon.Mul(receivedTons))
			it.RealCostPerKilo = perKilo
		}

		it.WeightPerPiece = decimal.NullDecimal{}
		if it.ReceivedPieces != nil && *it.ReceivedPieces > 0 {
			it.WeightPerPiece = numeric.NullOf(receivedKilos.Div(decimal.NewFromInt(int64(*it.ReceivedPieces))))
		}
		it.RealCostPerPiece = decimal.NullDecimal{}
		if it.WeightPerPiece.Valid && perKilo.Valid {
			it.RealCostPerPiece = numeric.NullOf(it.WeightPerPiece.Decimal.Mul(perKilo.Decimal))
		}

		it.KiloVariance = numeric.NullOf(receivedKilos.Sub(it.Kilograms))
		it.PieceVariance = nil
		if it.ReceivedPieces != nil {
			v := *it.ReceivedPieces - it.Pieces
			it.PieceVariance = &v
		}
	}
	shipment.NormalizeAll(out.Items)
	return out
}
