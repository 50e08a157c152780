package upload

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldKey upper-cases a header, drops accents and collapses whitespace and
// underscores, so "Descripción" and "DESCRIPCION" name the same column.
func foldKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, s); err == nil {
		s = folded
	}
	s = strings.Trim(s, " \t\r\n'\"`")
	s = strings.ReplaceAll(s, "_", " ")
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// header maps folded column names to their index in the header row.
type header map[string]int

func indexHeader(row []string) header {
	h := make(header, len(row))
	for i, name := range row {
		key := foldKey(name)
		if _, dup := h[key]; key != "" && !dup {
			h[key] = i
		}
	}
	return h
}

// missing returns the required columns absent from h.
func (h header) missing(required ...string) []string {
	var out []string
	for _, name := range required {
		if _, ok := h[foldKey(name)]; !ok {
			out = append(out, name)
		}
	}
	return out
}

// cell returns the trimmed value of column name in row, or "" when the column
// or the cell is absent.
func (h header) cell(row []string, name string) string {
	i, ok := h[foldKey(name)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// first returns the cell of the first of names present in h.
func (h header) first(row []string, names ...string) string {
	for _, name := range names {
		if _, ok := h[foldKey(name)]; ok {
			return h.cell(row, name)
		}
	}
	return ""
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ParseBool reads the confirmation checkbox column. Empty and unknown values
// are false.
func ParseBool(raw string) bool {
	switch foldKey(raw) {
	case "1", "TRUE", "VERDADERO", "SI", "S", "YES", "Y", "X":
		return true
	}
	return false
}
