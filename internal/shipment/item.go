// Package shipment defines the line-item record carried through the four
// accounting stages of an import shipment.
package shipment

import (
	"AcevalImport/internal/numeric"

	"github.com/shopspring/decimal"
)

var thousand = decimal.NewFromInt(1000)

// Header is the shipment-level metadata stamped on every line item.
type Header struct {
	Company      string   `json:"empresa"`
	Supplier     Supplier `json:"proveedor"`
	Invoice      string   `json:"factura"`
	Contract     string   `json:"contrato"`
	OrderNumber  string   `json:"numero_pedido"`
	Status       Status   `json:"estatus"`
	ProductCount *int     `json:"cantidad_productos"`

	// COLMENA only.
	Vice         string     `json:"vice"`
	SpotPurchase string     `json:"compra_puntual"`
	Origin       OriginInfo `json:"origen_info"`
}

// LineItem is one physical product of the shipment. Nullable numeric fields
// are invalid until the stage that derives them has run.
type LineItem struct {
	Header

	Product    string `json:"producto"`
	MetalGrade string `json:"calidad_metal"`

	Pieces    int             `json:"piezas"`
	Kilograms decimal.Decimal `json:"kilos"`
	Tons      decimal.Decimal `json:"toneladas"`

	CostPerPiece     decimal.NullDecimal `json:"costo_por_pieza"`
	CostPerTon       decimal.NullDecimal `json:"costo_por_tonelada"`
	OriginCostPerTon decimal.NullDecimal `json:"costo_ton_origen"`
	PortFee          decimal.NullDecimal `json:"costo_puerto"`
	Commission       decimal.NullDecimal `json:"comision"`
	TotalTonCom      decimal.NullDecimal `json:"total_ton_com"`

	TotalPerKilo  decimal.NullDecimal `json:"total_por_kilo"`
	TotalProvider decimal.Decimal     `json:"total_usd_proveedor"`

	// Stage II.
	PaymentDate    string              `json:"fecha_pago"`
	ExchangeRate   decimal.NullDecimal `json:"tasa_bcv"`
	BankFee        decimal.NullDecimal `json:"bancarizacion"`
	Celsam         decimal.NullDecimal `json:"celsam"`
	PlanillaTN     decimal.NullDecimal `json:"planilla_tn"`
	PlanillaSeniat decimal.NullDecimal `json:"planilla_seniat"`

	// Stage III.
	ReceiptDate     string              `json:"fecha_recepcion"`
	ReceivedKilos   decimal.NullDecimal `json:"kilos_recibidos"`
	ReceivedPieces  *int                `json:"piezas_recibidas"`
	ReceivedTons    decimal.NullDecimal `json:"toneladas_recibidas"`
	GandolaFactor   decimal.NullDecimal `json:"factor_gandola"`
	Customs         decimal.NullDecimal `json:"aduana"`
	Freight         decimal.NullDecimal `json:"flete"`
	Nationalization decimal.NullDecimal `json:"nacionalizacion"`
	Handling        decimal.NullDecimal `json:"muela"`

	// Stage IV.
	TraderFee            decimal.NullDecimal `json:"trader"`
	RealCostPerTon       decimal.NullDecimal `json:"costo_real_tonelada"`
	RealCostWithExpenses decimal.NullDecimal `json:"costo_real_con_gastos"`
	RealCostPerKilo      decimal.NullDecimal `json:"costo_real_kilo"`
	WeightPerPiece       decimal.NullDecimal `json:"peso_por_pieza"`
	RealCostPerPiece     decimal.NullDecimal `json:"costo_real_pieza"`
	KiloVariance         decimal.NullDecimal `json:"diferencia_kilos"`
	PieceVariance        *int                `json:"diferencia_piezas"`
}

// TonsOf converts kilograms to metric tons.
func TonsOf(kg decimal.Decimal) decimal.Decimal {
	return kg.Div(thousand)
}

// StoredTons is kg as tons at the precision a snapshot persists. Every
// division by a ton count uses this value so the workbook can be re-derived.
func StoredTons(kg decimal.Decimal) decimal.Decimal {
	m := numeric.MoneyPlaces
	return TonsOf(kg.Round(m)).Round(m)
}

// Clone returns a deep copy of it.
func (it LineItem) Clone() LineItem {
	it.ProductCount = cloneInt(it.ProductCount)
	it.ReceivedPieces = cloneInt(it.ReceivedPieces)
	it.PieceVariance = cloneInt(it.PieceVariance)
	return it
}

// Normalize recomputes tons, clears the origin fields for suppliers that do
// not price by origin, and rounds every numeric field to its persisted
// precision. It is safe to call any number of times.
func (it *LineItem) Normalize() {
	m, f := numeric.MoneyPlaces, numeric.FinePlaces

	it.Kilograms = it.Kilograms.Round(m)
	it.Tons = StoredTons(it.Kilograms)
	if it.ReceivedKilos.Valid {
		it.ReceivedKilos = numeric.RoundNull(it.ReceivedKilos, m)
		it.ReceivedTons = numeric.NullOf(StoredTons(it.ReceivedKilos.Decimal))
	}

	it.Header = it.Header.Normalized()
	if !it.Supplier.Rules().OriginPricing {
		it.OriginCostPerTon = decimal.NullDecimal{}
		it.PortFee = decimal.NullDecimal{}
		it.Commission = decimal.NullDecimal{}
	}

	for _, d := range []*decimal.NullDecimal{
		&it.CostPerPiece, &it.CostPerTon, &it.OriginCostPerTon, &it.PortFee,
		&it.Commission, &it.TotalTonCom,
		&it.ExchangeRate, &it.BankFee, &it.Celsam, &it.PlanillaTN, &it.PlanillaSeniat,
		&it.Customs, &it.Freight, &it.Nationalization, &it.Handling,
		&it.TraderFee, &it.RealCostPerTon, &it.RealCostWithExpenses, &it.KiloVariance,
	} {
		*d = numeric.RoundNull(*d, m)
	}
	// per-kilogram and per-piece figures keep 6 places
	for _, d := range []*decimal.NullDecimal{
		&it.TotalPerKilo, &it.GandolaFactor, &it.RealCostPerKilo, &it.WeightPerPiece, &it.RealCostPerPiece,
	} {
		*d = numeric.RoundNull(*d, f)
	}
	it.TotalProvider = it.TotalProvider.Round(m)
}

// NormalizeAll runs Normalize over every item.
func NormalizeAll(items []LineItem) {
	for i := range items {
		items[i].Normalize()
	}
}

// CloneAll deep-copies items.
func CloneAll(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

// Normalized returns h with the origin metadata cleared for suppliers that do
// not price by origin.
func (h Header) Normalized() Header {
	if !h.Supplier.Rules().OriginPricing {
		h.Vice = ""
		h.SpotPurchase = ""
		h.Origin = OriginNone
	}
	return h
}

// Stamp copies h onto every item.
func (h Header) Stamp(items []LineItem) {
	for i := range items {
		items[i].Header = h
		items[i].ProductCount = cloneInt(h.ProductCount)
	}
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
