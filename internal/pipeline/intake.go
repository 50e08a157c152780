package pipeline

import (
	"strings"

	"AcevalImport/internal/numeric"
	"AcevalImport/internal/shipment"

	"github.com/shopspring/decimal"
)

// IntakeRow is one row of the uploaded product table.
type IntakeRow struct {
	Description string
	Kilograms   decimal.Decimal
	Pieces      int
	MetalGrade  string

	CostPerPiece     decimal.NullDecimal
	CostPerTon       decimal.NullDecimal
	OriginCostPerTon decimal.NullDecimal
	TotalTonCom      decimal.NullDecimal
	PortFee          decimal.NullDecimal
	Commission       decimal.NullDecimal

	// ConfirmZeroUSD acknowledges a row with pieces and kilograms but no cost.
	ConfirmZeroUSD bool
}

// IntakeInput is everything stage I needs.
type IntakeInput struct {
	Header shipment.Header
	Rows   []IntakeRow
}

// UnconfirmedZeroCostRows returns the 1-based indices of rows that have both
// pieces and kilograms, no per-unit cost, and no zero-USD confirmation.
func UnconfirmedZeroCostRows(rows []IntakeRow) []int {
	var bad []int
	for i, r := range rows {
		if r.Pieces > 0 && r.Kilograms.IsPositive() &&
			numeric.IsZeroOrNull(r.CostPerPiece) && numeric.IsZeroOrNull(r.CostPerTon) &&
			!r.ConfirmZeroUSD {
			bad = append(bad, i+1)
		}
	}
	return bad
}

// BuildItems validates the upload and builds the stage I line items.
func BuildItems(in IntakeInput) ([]shipment.LineItem, error) {
	if !in.Header.Supplier.Valid() {
		return nil, &ValidationError{
			Stage:  StageIntake,
			Param:  "proveedor",
			Reason: "unknown supplier " + strings.TrimSpace(string(in.Header.Supplier)),
		}
	}
	if bad := UnconfirmedZeroCostRows(in.Rows); len(bad) > 0 {
		return nil, &ValidationError{
			Stage:  StageIntake,
			Rows:   bad,
			Reason: "rows with pieces and kilograms but no cost must confirm USD 0",
		}
	}

	items := make([]shipment.LineItem, len(in.Rows))
	for i, r := range in.Rows {
		it := shipment.LineItem{
			Product:          strings.TrimSpace(r.Description),
			MetalGrade:       strings.TrimSpace(r.MetalGrade),
			Pieces:           r.Pieces,
			Kilograms:        r.Kilograms,
			CostPerPiece:     r.CostPerPiece,
			CostPerTon:       r.CostPerTon,
			OriginCostPerTon: r.OriginCostPerTon,
			TotalTonCom:      r.TotalTonCom,
			PortFee:          r.PortFee,
			Commission:       r.Commission,
		}
		items[i] = it
	}
	in.Header.Stamp(items)

	for i := range items {
		deriveProviderCost(&items[i])
		Recalculate(&items[i])
	}
	return items, nil
}

// deriveProviderCost applies the intake pricing rules in priority order.
func deriveProviderCost(it *shipment.LineItem) {
	rules := it.Supplier.Rules()
	hasPieces := it.Pieces != 0
	hasKilos := !it.Kilograms.IsZero()

	switch {
	case hasPieces && hasKilos:
		priceByUnit(it)
	case rules.OriginPricing && it.Origin == shipment.OriginProvider:
		priceByOrigin(it, defaultPortFee, defaultCommission)
	case rules.OriginPricing && it.Origin == shipment.OriginInvoice:
		priceByUnit(it)
	case !rules.OriginPricing && hasPieces && !hasKilos:
		if numeric.IsZeroOrNull(it.CostPerPiece) {
			setProviderCost(it, decimal.Zero, decimal.NullDecimal{})
		} else {
			priceByPiece(it)
		}
	case !numeric.IsZeroOrNull(it.TotalTonCom):
		priceByTotalTon(it, it.TotalTonCom.Decimal)
	default:
		setProviderCost(it, decimal.Zero, zeroPerKilo(it))
	}
}

// priceByUnit prefers the piece cost, then the ton cost; with neither the
// item is worth zero and both costs are cleared.
func priceByUnit(it *shipment.LineItem) {
	switch {
	case !numeric.IsZeroOrNull(it.CostPerPiece):
		priceByPiece(it)
	case !numeric.IsZeroOrNull(it.CostPerTon):
		priceByTon(it)
	default:
		it.CostPerPiece = decimal.NullDecimal{}
		it.CostPerTon = decimal.NullDecimal{}
		setProviderCost(it, decimal.Zero, zeroPerKilo(it))
	}
}
