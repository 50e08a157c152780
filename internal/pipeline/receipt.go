package pipeline

import (
	"strconv"

	"AcevalImport/internal/numeric"
	"AcevalImport/internal/shipment"

	"github.com/shopspring/decimal"
)

// Fixed shipment-level logistics costs in USD, spread by gandola factor.
var (
	CustomsCost         = decimal.NewFromInt(750)
	FreightCost         = decimal.NewFromInt(3650)
	NationalizationCost = decimal.NewFromInt(1000)
	HandlingCost        = decimal.NewFromInt(600)
)

// ReceivedRow is one row of the receipt table, keyed by product description.
type ReceivedRow struct {
	Product string
	Kilos   decimal.Decimal
	Pieces  *int
}

// ReceiptInput carries the stage III receipt parameters.
type ReceiptInput struct {
	ReceiptDate string
	Received    []ReceivedRow
	Gandolas    int
}

// AllocateReceipt merges received quantities and spreads the fixed logistics
// costs by each item's share of a gandola load. c is never modified.
func AllocateReceipt(c Context, in ReceiptInput) (Context, error) {
	out := c.Clone()
	out.Stage = StageReceipt
	if len(out.Items) == 0 {
		return out, nil
	}
	if in.Gandolas <= 0 {
		return c, &ValidationError{
			Stage:  StageReceipt,
			Param:  "cantidad_gandolas",
			Reason: "gandola count must be greater than zero, got " + strconv.Itoa(in.Gandolas),
		}
	}

	byProduct := make(map[string]ReceivedRow, len(in.Received))
	for _, r := range in.Received {
		if _, seen := byProduct[r.Product]; !seen {
			byProduct[r.Product] = r
		}
	}

	totalTons := decimal.Zero
	for i := range out.Items {
		it := &out.Items[i]
		kilos := decimal.Zero
		var pieces *int
		if r, ok := byProduct[it.Product]; ok {
			kilos = r.Kilos
			pieces = cloneInt(r.Pieces)
		}
		it.ReceiptDate = in.ReceiptDate
		it.ReceivedKilos = numeric.NullOf(kilos)
		it.ReceivedPieces = pieces
		it.ReceivedTons = numeric.NullOf(shipment.StoredTons(kilos))
		totalTons = totalTons.Add(it.ReceivedTons.Decimal)
	}

	tonsPerGandola := totalTons.Div(decimal.NewFromInt(int64(in.Gandolas)))
	exempt := out.Header.Supplier.Rules().LogisticsExempt
	for i := range out.Items {
		it := &out.Items[i]
		factor := decimal.Zero
		if !tonsPerGandola.IsZero() {
			factor = it.ReceivedTons.Decimal.Div(tonsPerGandola).Round(numeric.FinePlaces)
		}
		it.GandolaFactor = numeric.NullOf(factor)

		if exempt {
			factor = decimal.Zero
		}
		it.Customs = numeric.NullOf(CustomsCost.Mul(factor))
		it.Freight = numeric.NullOf(FreightCost.Mul(factor))
		it.Nationalization = numeric.NullOf(NationalizationCost.Mul(factor))
		it.Handling = numeric.NullOf(HandlingCost.Mul(factor))
	}
	shipment.NormalizeAll(out.Items)
	return out, nil
}
