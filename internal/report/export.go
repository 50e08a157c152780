package report

import (
	"fmt"
	"os"
	"path/filepath"

	"AcevalImport/internal/pipeline"

	"github.com/xuri/excelize/v2"
)

const (
	DataSheet    = "Datos"
	SummarySheet = "Resumen"
)

// FileName is the summary workbook name of a stage, e.g. "RESUMEN_II.xlsx".
func FileName(st pipeline.Stage) string {
	return fmt.Sprintf("RESUMEN_%s.xlsx", st.Roman())
}

// Workbook lays out the filtered rows and the summary on two sheets.
func Workbook(t Table, s Summary) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", DataSheet); err != nil {
		return nil, err
	}
	if err := writeRow(f, DataSheet, 1, toCells(t.Columns)); err != nil {
		return nil, err
	}
	for i, row := range t.Rows {
		cells := make([]interface{}, len(row))
		for j, c := range row {
			if d, ok := strictNumber(c); ok {
				cells[j] = d.InexactFloat64()
			} else {
				cells[j] = c
			}
		}
		if err := writeRow(f, DataSheet, i+2, cells); err != nil {
			return nil, err
		}
	}

	if len(s.GroupBy) == 0 {
		return f, nil
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return nil, err
	}
	header := append(toCells(s.GroupBy), s.Metric, "Filas")
	if err := writeRow(f, SummarySheet, 1, header); err != nil {
		return nil, err
	}
	for i, g := range s.Groups {
		row := append(toCells(g.Keys), g.Total.InexactFloat64(), g.Rows)
		if err := writeRow(f, SummarySheet, i+2, row); err != nil {
			return nil, err
		}
	}
	footer := make([]interface{}, len(s.GroupBy))
	footer[0] = "Total"
	footer = append(footer, s.Total.InexactFloat64(), fmt.Sprintf("%d no numericos", s.NonNumeric))
	if err := writeRow(f, SummarySheet, len(s.Groups)+2, footer); err != nil {
		return nil, err
	}
	return f, nil
}

// Export writes the summary workbook of st into dir and returns its path.
func Export(dir string, st pipeline.Stage, t Table, s Summary) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	f, err := Workbook(t, s)
	if err != nil {
		return "", err
	}
	defer f.Close()
	path := filepath.Join(dir, FileName(st))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	return path, nil
}

func writeRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &cells)
}

func toCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
