package pipeline

import (
	"fmt"
	"strings"

	"AcevalImport/internal/shipment"

	"github.com/shopspring/decimal"
)

// ItemEdit replaces the editable columns of the item at Index (0-based).
// Null cost fields clear the corresponding cost.
type ItemEdit struct {
	Index            int                 `json:"indice"`
	Product          string              `json:"producto"`
	Pieces           int                 `json:"piezas"`
	Kilograms        decimal.Decimal     `json:"kilos"`
	CostPerPiece     decimal.NullDecimal `json:"costo_por_pieza"`
	CostPerTon       decimal.NullDecimal `json:"costo_por_tonelada"`
	OriginCostPerTon decimal.NullDecimal `json:"costo_ton_origen"`
	TotalTonCom      decimal.NullDecimal `json:"total_ton_com"`
}

// ApplyEdits returns a working copy of c with edits applied and every edited
// item recalculated. c is left untouched; an out-of-range index rejects the
// whole batch.
func (c Context) ApplyEdits(edits []ItemEdit) (Context, error) {
	var bad []int
	for _, e := range edits {
		if e.Index < 0 || e.Index >= len(c.Items) {
			bad = append(bad, e.Index+1)
		}
	}
	if len(bad) > 0 {
		return c, &ValidationError{
			Stage:  c.Stage,
			Param:  "ediciones",
			Rows:   bad,
			Reason: fmt.Sprintf("edit refers to a missing item, shipment has %d", len(c.Items)),
		}
	}

	out := c.Clone()
	for _, e := range edits {
		it := &out.Items[e.Index]
		it.Product = strings.TrimSpace(e.Product)
		it.Pieces = e.Pieces
		it.Kilograms = e.Kilograms
		it.CostPerPiece = e.CostPerPiece
		it.CostPerTon = e.CostPerTon
		it.OriginCostPerTon = e.OriginCostPerTon
		it.TotalTonCom = e.TotalTonCom
		Recalculate(it)
	}
	return out, nil
}

// GeneralFields are the shipment-level values an operator may restamp on
// every item. Empty strings and a zero Status leave the current value.
type GeneralFields struct {
	Company     string          `json:"empresa"`
	Invoice     string          `json:"factura"`
	Contract    string          `json:"contrato"`
	OrderNumber string          `json:"numero_pedido"`
	Status      shipment.Status `json:"estatus"`
}

// ApplyGeneralFields returns a working copy of c with g stamped on the header
// and on every item.
func (c Context) ApplyGeneralFields(g GeneralFields) Context {
	out := c.Clone()
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	apply := func(h *shipment.Header) {
		set(&h.Company, g.Company)
		set(&h.Invoice, g.Invoice)
		set(&h.Contract, g.Contract)
		set(&h.OrderNumber, g.OrderNumber)
		if g.Status != 0 {
			h.Status = g.Status
		}
	}
	apply(&out.Header)
	for i := range out.Items {
		apply(&out.Items[i].Header)
	}
	return out
}
