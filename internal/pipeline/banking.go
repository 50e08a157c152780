package pipeline

import (
	"AcevalImport/internal/numeric"
	"AcevalImport/internal/shipment"

	"github.com/shopspring/decimal"
)

var bankFeeRate = decimal.RequireFromString("0.03")

// BankingInput carries the stage II payment parameters.
type BankingInput struct {
	PaymentDate    string
	ExchangeRate   decimal.Decimal
	PlanillaTN     decimal.Decimal
	PlanillaSeniat decimal.Decimal
	// Celsam is only read for suppliers with a CELSAM fee.
	Celsam decimal.NullDecimal
}

// AllocateBanking computes the bank fee, the CELSAM share and the two
// planilla amounts for every item. The returned context is a new copy; c is
// never modified.
func AllocateBanking(c Context, in BankingInput) (Context, error) {
	if !in.ExchangeRate.IsPositive() {
		return c, &ValidationError{
			Stage:  StageBanking,
			Param:  "tasa_bcv",
			Reason: "exchange rate must be greater than zero, got " + in.ExchangeRate.String(),
		}
	}

	out := c.Clone()
	count := int64(len(out.Items))
	if count < 1 {
		count = 1
	}
	perItem := func(amount decimal.Decimal) decimal.Decimal {
		return amount.Div(in.ExchangeRate).Div(decimal.NewFromInt(count))
	}
	tn := perItem(in.PlanillaTN)
	seniat := perItem(in.PlanillaSeniat)

	celsam := decimal.Zero
	if out.Header.Supplier.Rules().CelsamFee && in.Celsam.Valid {
		celsam = in.Celsam.Decimal
	}
	totalKilos := decimal.Zero
	for _, it := range out.Items {
		totalKilos = totalKilos.Add(it.Kilograms)
	}

	for i := range out.Items {
		it := &out.Items[i]
		it.BankFee = numeric.NullOf(it.TotalProvider.Mul(bankFeeRate))
		it.Celsam = numeric.NullOf(kiloShare(celsam, it.Kilograms, totalKilos))
		it.PlanillaTN = numeric.NullOf(tn)
		it.PlanillaSeniat = numeric.NullOf(seniat)
		it.PaymentDate = in.PaymentDate
		it.ExchangeRate = numeric.NullOf(in.ExchangeRate)
	}
	shipment.NormalizeAll(out.Items)
	out.Stage = StageBanking
	return out, nil
}

// kiloShare pro-rates amount by kilos/total, returning zero when total is zero.
func kiloShare(amount, kilos, total decimal.Decimal) decimal.Decimal {
	if amount.IsZero() || total.IsZero() {
		return decimal.Zero
	}
	return amount.Mul(kilos).Div(total)
}
