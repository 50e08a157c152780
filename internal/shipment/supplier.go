package shipment

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Supplier is the closed set of metal suppliers ACEVAL imports from.
type Supplier string

const (
	Fortica Supplier = "FORTICA"
	ASG     Supplier = "ASG"
	Colmena Supplier = "COLMENA"
	Baolai  Supplier = "BAOLAI"
)

// Suppliers lists every supplier in form order.
var Suppliers = []Supplier{Fortica, ASG, Colmena, Baolai}

// Rules holds the supplier-specific switches used across the four stages.
type Rules struct {
	// OriginPricing enables origin-cost pricing and the origin metadata fields.
	OriginPricing bool
	// CelsamFee allocates a CELSAM amount in stage II.
	CelsamFee bool
	// LogisticsExempt zeroes customs, freight, nationalization and handling.
	LogisticsExempt bool
	// TraderRate is applied to the reconciled subtotal in stage IV.
	TraderRate decimal.Decimal
}

var supplierRules = map[Supplier]Rules{
	Fortica: {TraderRate: decimal.RequireFromString("0.01")},
	ASG:     {LogisticsExempt: true},
	Colmena: {OriginPricing: true},
	Baolai:  {CelsamFee: true},
}

// Rules returns the rule set for s. Unknown suppliers get the zero rule set.
func (s Supplier) Rules() Rules {
	return supplierRules[s]
}

func (s Supplier) Valid() bool {
	_, ok := supplierRules[s]
	return ok
}

func (s Supplier) String() string { return string(s) }

// ParseSupplier accepts any casing and surrounding whitespace.
func ParseSupplier(raw string) (Supplier, error) {
	s := Supplier(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown supplier %q", raw)
	}
	return s, nil
}

// OriginInfo says where COLMENA pricing comes from.
type OriginInfo string

const (
	OriginNone     OriginInfo = ""
	OriginProvider OriginInfo = "PROVEEDOR"
	OriginInvoice  OriginInfo = "FACTURA"
)

// ParseOriginInfo maps free text onto an OriginInfo, defaulting to none.
func ParseOriginInfo(raw string) OriginInfo {
	switch OriginInfo(strings.ToUpper(strings.TrimSpace(raw))) {
	case OriginProvider:
		return OriginProvider
	case OriginInvoice:
		return OriginInvoice
	}
	return OriginNone
}

// Status tracks where the shipment physically is.
type Status int

const (
	StatusNotArrived Status = 1
	StatusInTransit  Status = 2
	StatusArrived    Status = 3
)

// ParseStatus accepts "1", "2", "3" and form labels such as "2: Está en transito".
// Anything else falls back to StatusNotArrived.
func ParseStatus(raw string) Status {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, ":"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	switch s {
	case "2":
		return StatusInTransit
	case "3":
		return StatusArrived
	}
	return StatusNotArrived
}

func (s Status) String() string {
	return fmt.Sprintf("%d", int(s))
}
