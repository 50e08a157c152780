package upload

import (
	"fmt"
	"strings"

	"AcevalImport/internal/constants"
	"AcevalImport/internal/numeric"
	"AcevalImport/internal/pipeline"
)

// Product table columns.
const (
	ColDescription      = "DESCRIPCION"
	ColKilograms        = "CANTIDAD DE KILOS"
	ColPieces           = "CANTIDAD DE PIEZAS"
	ColMetalGrade       = "CALIDAD DE METAL"
	ColCostPerPiece     = "Costo por Pieza"
	ColCostPerTon       = "Costo por Tonelada"
	ColOriginCostPerTon = "Costo Ton Origen"
	ColTotalTonCom      = "Total Ton + Com"
	ColPortFee          = "Costo Puerto"
	ColPortFeeAlt       = "Tasa Puerto"
	ColCommission       = "Comision"
	ColCommissionAlt    = "Porcentaje Com"
	ColConfirmZeroUSD   = "Confirmar USD 0"
)

// Receipt table columns.
const (
	ColProduct        = "Producto"
	ColReceivedKilos  = "Kilos Recibidos"
	ColReceivedPieces = "Piezas Recibidas"
)

// IntakeRows parses the product table. Blank rows are skipped; unparseable
// numbers fall back to zero or null and never fail the upload.
func IntakeRows(records [][]string) ([]pipeline.IntakeRow, error) {
	h, body, err := split(records, pipeline.StageIntake, constants.FieldProductFile,
		ColDescription, ColKilograms, ColPieces, ColMetalGrade)
	if err != nil {
		return nil, err
	}

	zero := 0
	var rows []pipeline.IntakeRow
	for _, rec := range body {
		if blank(rec) {
			continue
		}
		rows = append(rows, pipeline.IntakeRow{
			Description:      h.cell(rec, ColDescription),
			Kilograms:        numeric.ValueOrZero(numeric.ParseDecimal(h.cell(rec, ColKilograms))),
			Pieces:           *numeric.ParseInteger(h.cell(rec, ColPieces), &zero),
			MetalGrade:       h.cell(rec, ColMetalGrade),
			CostPerPiece:     numeric.ParseDecimal(h.cell(rec, ColCostPerPiece)),
			CostPerTon:       numeric.ParseDecimal(h.cell(rec, ColCostPerTon)),
			OriginCostPerTon: numeric.ParseDecimal(h.cell(rec, ColOriginCostPerTon)),
			TotalTonCom:      numeric.ParseDecimal(h.cell(rec, ColTotalTonCom)),
			PortFee:          numeric.ParseDecimal(h.first(rec, ColPortFee, ColPortFeeAlt)),
			Commission:       numeric.ParseDecimal(h.first(rec, ColCommission, ColCommissionAlt)),
			ConfirmZeroUSD:   ParseBool(h.cell(rec, ColConfirmZeroUSD)),
		})
	}
	return rows, nil
}

// ReceivedRows parses the receipt table. The pieces column is optional; an
// empty or unparseable pieces cell leaves the received piece count unknown.
func ReceivedRows(records [][]string) ([]pipeline.ReceivedRow, error) {
	h, body, err := split(records, pipeline.StageReceipt, constants.FieldReceivedFile,
		ColProduct, ColReceivedKilos)
	if err != nil {
		return nil, err
	}

	var rows []pipeline.ReceivedRow
	for _, rec := range body {
		if blank(rec) {
			continue
		}
		rows = append(rows, pipeline.ReceivedRow{
			Product: h.cell(rec, ColProduct),
			Kilos:   numeric.ValueOrZero(numeric.ParseDecimal(h.cell(rec, ColReceivedKilos))),
			Pieces:  numeric.ParseInteger(h.cell(rec, ColReceivedPieces), nil),
		})
	}
	return rows, nil
}

// split finds the header row, which is the first non-blank row, and checks
// the required columns.
func split(records [][]string, st pipeline.Stage, field string, required ...string) (header, [][]string, error) {
	for i, rec := range records {
		if blank(rec) {
			continue
		}
		h := indexHeader(rec)
		if miss := h.missing(required...); len(miss) > 0 {
			return nil, nil, &pipeline.ValidationError{
				Stage:  st,
				Param:  field,
				Reason: fmt.Sprintf(constants.ErrMissingColumns, strings.Join(miss, ", ")),
			}
		}
		return h, records[i+1:], nil
	}
	return nil, nil, &pipeline.ValidationError{Stage: st, Param: field, Reason: constants.ErrEmptyFile}
}
