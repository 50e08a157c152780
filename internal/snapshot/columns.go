package snapshot

import (
	"strings"

	"AcevalImport/internal/numeric"
	"AcevalImport/internal/pipeline"
	"AcevalImport/internal/shipment"

	"github.com/shopspring/decimal"
)

// column maps one spreadsheet column onto a LineItem field. Stage is the
// first stage whose snapshot carries the column.
type column struct {
	Name  string
	Stage pipeline.Stage
	get   func(it *shipment.LineItem) interface{}
	set   func(it *shipment.LineItem, cell string)
}

func text(name string, st pipeline.Stage, f func(*shipment.LineItem) *string) column {
	return column{
		Name:  name,
		Stage: st,
		get:   func(it *shipment.LineItem) interface{} { return *f(it) },
		set:   func(it *shipment.LineItem, cell string) { *f(it) = strings.TrimSpace(cell) },
	}
}

func amount(name string, st pipeline.Stage, f func(*shipment.LineItem) *decimal.Decimal) column {
	return column{
		Name:  name,
		Stage: st,
		get:   func(it *shipment.LineItem) interface{} { return f(it).InexactFloat64() },
		set: func(it *shipment.LineItem, cell string) {
			*f(it) = numeric.ValueOrZero(parseCell(cell))
		},
	}
}

func nullable(name string, st pipeline.Stage, f func(*shipment.LineItem) *decimal.NullDecimal) column {
	return column{
		Name:  name,
		Stage: st,
		get: func(it *shipment.LineItem) interface{} {
			if d := f(it); d.Valid {
				return d.Decimal.InexactFloat64()
			}
			return nil
		},
		set: func(it *shipment.LineItem, cell string) { *f(it) = parseCell(cell) },
	}
}

func count(name string, st pipeline.Stage, f func(*shipment.LineItem) **int) column {
	return column{
		Name:  name,
		Stage: st,
		get: func(it *shipment.LineItem) interface{} {
			if p := *f(it); p != nil {
				return *p
			}
			return nil
		},
		set: func(it *shipment.LineItem, cell string) { *f(it) = numeric.ParseInteger(cell, nil) },
	}
}

// parseCell reads a raw cell written by Save, falling back to the lenient
// parser for workbooks edited by hand.
func parseCell(cell string) decimal.NullDecimal {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return decimal.NullDecimal{}
	}
	if d, err := decimal.NewFromString(cell); err == nil {
		return decimal.NewNullDecimal(d)
	}
	return numeric.ParseDecimal(cell)
}

const (
	intake         = pipeline.StageIntake
	banking        = pipeline.StageBanking
	receipt        = pipeline.StageReceipt
	reconciliation = pipeline.StageReconciliation
)

// columns is the accumulated field set of every stage, in sheet order.
var columns = []column{
	text("Empresa", intake, func(it *shipment.LineItem) *string { return &it.Company }),
	{
		Name:  "Proveedor",
		Stage: intake,
		get:   func(it *shipment.LineItem) interface{} { return string(it.Supplier) },
		set: func(it *shipment.LineItem, cell string) {
			it.Supplier = shipment.Supplier(strings.ToUpper(strings.TrimSpace(cell)))
		},
	},
	text("Factura", intake, func(it *shipment.LineItem) *string { return &it.Invoice }),
	text("Contrato", intake, func(it *shipment.LineItem) *string { return &it.Contract }),
	{
		Name:  "Estatus",
		Stage: intake,
		get:   func(it *shipment.LineItem) interface{} { return int(it.Status) },
		set:   func(it *shipment.LineItem, cell string) { it.Status = shipment.ParseStatus(cell) },
	},
	text("Numero de Pedido Aceval", intake, func(it *shipment.LineItem) *string { return &it.OrderNumber }),
	count("Cantidad Productos", intake, func(it *shipment.LineItem) **int { return &it.ProductCount }),
	text("VICE", intake, func(it *shipment.LineItem) *string { return &it.Vice }),
	text("Compra puntual", intake, func(it *shipment.LineItem) *string { return &it.SpotPurchase }),
	{
		Name:  "Origen Info",
		Stage: intake,
		get:   func(it *shipment.LineItem) interface{} { return string(it.Origin) },
		set:   func(it *shipment.LineItem, cell string) { it.Origin = shipment.ParseOriginInfo(cell) },
	},
	text("Producto", intake, func(it *shipment.LineItem) *string { return &it.Product }),
	text("Calidad de Metal", intake, func(it *shipment.LineItem) *string { return &it.MetalGrade }),
	{
		Name:  "Piezas",
		Stage: intake,
		get:   func(it *shipment.LineItem) interface{} { return it.Pieces },
		set: func(it *shipment.LineItem, cell string) {
			zero := 0
			it.Pieces = *numeric.ParseInteger(cell, &zero)
		},
	},
	amount("Kilos", intake, func(it *shipment.LineItem) *decimal.Decimal { return &it.Kilograms }),
	amount("Toneladas", intake, func(it *shipment.LineItem) *decimal.Decimal { return &it.Tons }),
	nullable("Costo por Pieza", intake, func(it *shipment.LineItem) *decimal.NullDecimal { return &it.CostPerPiece }),
	nullable("Costo por Tonelada", intake, func(it *shipment.LineItem) *decimal.NullDecimal { return &it.CostPerTon }),
	nullable("Costo Ton Origen", intake, func(it *shipment.LineItem) *decimal.NullDecimal { return &it.OriginCostPerTon }),
	nullable("Costo Puerto", intake, func(it *shipment.LineItem) *decimal.NullDecimal { return &it.PortFee }),
	nullable("Comision", intake, func(it *shipment.LineItem) *decimal.NullDecimal { return &it.Commission }),
	nullable("Total Ton + Com", intake, func(it *shipment.LineItem) *decimal.NullDecimal { return &it.TotalTonCom }),
	nullable("Total por Kilo", intake, func(it *shipment.LineItem) *decimal.NullDecimal { return &it.TotalPerKilo }),
	amount("Total USD Proveedor", intake, func(it *shipment.LineItem) *decimal.Decimal { return &it.TotalProvider }),

	text("Fecha Pago", banking, func(it *shipment.LineItem) *string { return &it.PaymentDate }),
	nullable("Tasa BCV", banking, func(it *shipment.LineItem) *decimal.NullDecimal { return &it.ExchangeRate }),
	nullable("Bancarizacion", banking, func(it *shipment.LineItem) *decimal.NullDecimal { return &it.BankFee }),
	nullable("CELSAM", banking, func(it *shipment.LineItem) *decimal.NullDecimal { return &it.Celsam }),
	nullable("Planilla TN", banking, func(it *shipment.LineItem) *decimal.NullDecimal { return &it.PlanillaTN }),
	nullable("Planilla SENIAT", banking, func(it *shipment.LineItem) *decimal.NullDecimal { return &it.PlanillaSeniat }),

	text("Fecha Recepcion", receipt, func(it *shipment.LineItem) *string { return &it.ReceiptDate }),
	nullable("Kilos Recibidos", receipt, func(it *shipment.LineItem) *decimal.NullDecimal { return &it.ReceivedKilos }),
	count("Piezas Recibidas", receipt, func(it *shipment.LineItem) **int { return &it.ReceivedPieces }),
	nullable("Toneladas Recibidas", receipt, func(it *shipment.LineItem) *decimal.NullDecimal { return &it.ReceivedTons }),
	nullable("Factor Gandola", receipt, func(it *shipment.LineItem) *decimal.NullDecimal { return &it.GandolaFactor }),
	nullable("ADUANA", receipt, func(it *shipment.LineItem) *decimal.NullDecimal { return &it.Customs }),
	nullable("FLETE", receipt, func(it *shipment.LineItem) *decimal.NullDecimal { return &it.Freight }),
	nullable("NACIONALIZACION", receipt, func(it *shipment.LineItem) *decimal.NullDecimal { return &it.Nationalization }),
	nullable("MUELA", receipt, func(it *shipment.LineItem) *decimal.NullDecimal { return &it.Handling }),

	nullable("Trader", reconciliation, func(it *shipment.LineItem) *decimal.NullDecimal { return &it.TraderFee }),
	nullable("Costo Real Tonelada", reconciliation, func(it *shipment.LineItem) *decimal.NullDecimal { return &it.RealCostPerTon }),
	nullable("Costo Real con Gastos", reconciliation, func(it *shipment.LineItem) *decimal.NullDecimal { return &it.RealCostWithExpenses }),
	nullable("Costo Real Kilo", reconciliation, func(it *shipment.LineItem) *decimal.NullDecimal { return &it.RealCostPerKilo }),
	nullable("Peso por Pieza", reconciliation, func(it *shipment.LineItem) *decimal.NullDecimal { return &it.WeightPerPiece }),
	nullable("Costo Real Pieza", reconciliation, func(it *shipment.LineItem) *decimal.NullDecimal { return &it.RealCostPerPiece }),
	nullable("Diferencia Kilos", reconciliation, func(it *shipment.LineItem) *decimal.NullDecimal { return &it.KiloVariance }),
	count("Diferencia Piezas", reconciliation, func(it *shipment.LineItem) **int { return &it.PieceVariance }),
}

// Columns returns the header row of a snapshot for st.
func Columns(st pipeline.Stage) []string {
	var names []string
	for _, c := range columns {
		if c.Stage <= st {
			names = append(names, c.Name)
		}
	}
	return names
}

func stageColumns(st pipeline.Stage) []column {
	var out []column
	for _, c := range columns {
		if c.Stage <= st {
			out = append(out, c)
		}
	}
	return out
}
