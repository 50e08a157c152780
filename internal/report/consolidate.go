// Package report consolidates the snapshots of one stage directory into a
// single table and summarizes it for the dashboard.
package report

import (
	"bytes"
	"path/filepath"
	"strings"
	"time"

	"AcevalImport/internal/constants"
	"AcevalImport/internal/logger"
	"AcevalImport/internal/snapshot"

	"github.com/xuri/excelize/v2"
)

// FileColumn names the column that records which snapshot a row came from.
const FileColumn = "Archivo"

// Table is the union of the item sheets of several snapshots. Columns keep
// the order in which they were first seen.
type Table struct {
	Columns []string
	Rows    [][]string
	// Skipped lists files that could not be read.
	Skipped []string
}

// Index returns the position of column name, or -1.
func (t Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Value returns the cell of column name in row, or "" when absent.
func (t Table) Value(row []string, name string) string {
	if i := t.Index(name); i >= 0 && i < len(row) {
		return row[i]
	}
	return ""
}

// Consolidate reads every snapshot in dir. Unreadable or tampered files are
// logged and listed in Skipped; they do not fail the consolidation.
func Consolidate(dir string) (Table, error) {
	files, err := snapshot.List(dir)
	if err != nil {
		return Table{}, err
	}
	t := Table{Columns: []string{FileColumn}}
	pos := map[string]int{FileColumn: 0}

	for _, path := range files {
		rows, err := readItems(path)
		if err != nil {
			logger.Audit("dashboard skipped %s: %v", path, err)
			t.Skipped = append(t.Skipped, filepath.Base(path))
			continue
		}
		if len(rows) == 0 {
			continue
		}
		header := rows[0]
		for _, name := range header {
			name = strings.TrimSpace(name)
			if _, ok := pos[name]; !ok && name != "" {
				pos[name] = len(t.Columns)
				t.Columns = append(t.Columns, name)
			}
		}
		for _, rec := range rows[1:] {
			if blankRow(rec) {
				continue
			}
			out := make([]string, len(t.Columns))
			out[0] = filepath.Base(path)
			for i, name := range header {
				if j, ok := pos[strings.TrimSpace(name)]; ok && i < len(rec) {
					out[j] = strings.TrimSpace(rec[i])
				}
			}
			t.Rows = append(t.Rows, out)
		}
	}

	// earlier rows are shorter when later files added columns
	for i := range t.Rows {
		for len(t.Rows[i]) < len(t.Columns) {
			t.Rows[i] = append(t.Rows[i], "")
		}
	}
	return t, nil
}

// readItems reads the item sheet of path. A snapshot whose checksum sidecar
// no longer matches is an error, like it is for a stage resuming from it.
func readItems(path string) ([][]string, error) {
	data, err := snapshot.Read(path)
	if err != nil {
		return nil, err
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sheet := snapshot.ItemsSheet
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		sheet = f.GetSheetName(0)
	}
	return f.GetRows(sheet, excelize.Options{RawCellValue: true})
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Filter keeps rows whose supplier and product are in the given sets, and
// whose DateColumn falls within [From, To]. Empty sets and zero times do not
// filter.
type Filter struct {
	Suppliers  []string
	Products   []string
	DateColumn string
	From, To   time.Time
}

// Apply returns the rows of t matching f.
func (f Filter) Apply(t Table) Table {
	suppliers := set(f.Suppliers)
	products := set(f.Products)
	out := Table{Columns: t.Columns, Skipped: t.Skipped}
	for _, row := range t.Rows {
		if len(suppliers) > 0 && !suppliers[strings.ToUpper(t.Value(row, "Proveedor"))] {
			continue
		}
		if len(products) > 0 && !products[strings.ToUpper(t.Value(row, "Producto"))] {
			continue
		}
		if !f.inRange(t.Value(row, f.DateColumn)) {
			continue
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

func (f Filter) inRange(cell string) bool {
	if f.From.IsZero() && f.To.IsZero() {
		return true
	}
	d, err := time.Parse(constants.DateFormat, strings.TrimSpace(cell))
	if err != nil {
		return false
	}
	if !f.From.IsZero() && d.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && d.After(f.To) {
		return false
	}
	return true
}

func set(values []string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			m[strings.ToUpper(v)] = true
		}
	}
	return m
}
