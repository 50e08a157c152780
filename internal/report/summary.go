package report

import (
	"fmt"
	"sort"
	"strings"

	"AcevalImport/internal/constants"
	"AcevalImport/internal/numeric"

	"github.com/shopspring/decimal"
)

// Metrics are the columns the dashboard can sum.
var Metrics = []string{
	"Kilos Recibidos",
	"Piezas Recibidas",
	"Total USD Proveedor",
	"Kilos Recibidos Producto",
	"Piezas Recibidas Producto",
	"Total USD Producto",
	"Kilos",
	"Bancarizacion",
	"Trader",
	"Costo Real con Gastos",
}

// Group is one row of a summary.
type Group struct {
	Keys  []string        `json:"claves"`
	Total decimal.Decimal `json:"total"`
	Rows  int             `json:"filas"`
}

// Summary is a metric summed per group.
type Summary struct {
	Metric  string          `json:"metrica"`
	GroupBy []string        `json:"agrupar"`
	Groups  []Group         `json:"grupos"`
	Total   decimal.Decimal `json:"total"`
	// NonNumeric counts metric cells that were empty or not a number.
	NonNumeric int `json:"no_numericos"`
}

// Available returns the metrics present in t.
func Available(t Table) []string {
	var out []string
	for _, m := range Metrics {
		if t.Index(m) >= 0 {
			out = append(out, m)
		}
	}
	return out
}

// Summarize sums metric over t grouped by one or two columns. Rows with an
// empty group key are left out of every group; groups are sorted by key.
func Summarize(t Table, metric string, groupBy []string) (Summary, error) {
	if t.Index(metric) < 0 {
		return Summary{}, fmt.Errorf(constants.ErrUnknownMetric, metric)
	}
	if len(groupBy) == 0 || len(groupBy) > 2 {
		return Summary{}, fmt.Errorf("group by one or two columns, got %d", len(groupBy))
	}
	for _, g := range groupBy {
		if t.Index(g) < 0 {
			return Summary{}, fmt.Errorf(constants.ErrUnknownGroupColumn, g)
		}
	}

	s := Summary{Metric: metric, GroupBy: groupBy, Total: decimal.Zero}
	byKey := map[string]*Group{}
	for _, row := range t.Rows {
		value, ok := strictNumber(t.Value(row, metric))
		if !ok {
			s.NonNumeric++
		}

		keys := make([]string, len(groupBy))
		skip := false
		for i, g := range groupBy {
			keys[i] = t.Value(row, g)
			if keys[i] == "" {
				skip = true
			}
		}
		if skip {
			continue
		}

		id := strings.Join(keys, "\x00")
		grp, found := byKey[id]
		if !found {
			grp = &Group{Keys: keys, Total: decimal.Zero}
			byKey[id] = grp
		}
		grp.Rows++
		if ok {
			grp.Total = grp.Total.Add(value)
			s.Total = s.Total.Add(value)
		}
	}

	for _, g := range byKey {
		g.Total = numeric.Money(g.Total)
		s.Groups = append(s.Groups, *g)
	}
	sort.Slice(s.Groups, func(i, j int) bool {
		a, b := s.Groups[i].Keys, s.Groups[j].Keys
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})
	s.Total = numeric.Money(s.Total)
	return s, nil
}

// strictNumber accepts only plain numbers, as written by snapshots.
func strictNumber(cell string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(cell))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
