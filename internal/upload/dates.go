package upload

import (
	"strings"
	"time"

	"AcevalImport/internal/constants"
)

var dateLayouts = []string{
	constants.DateFormat,
	constants.DateFormatVE,
	constants.DateFormatAlt,
	constants.DateFormatISO,
	time.RFC3339,
	"2006/01/02",
	"2 Jan 2006",
}

// NormalizeDate rewrites a form date as YYYY-MM-DD. Day-first layouts win over
// month-first ones. Unrecognized input is returned trimmed but otherwise
// untouched.
func NormalizeDate(raw string) string {
	s := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(constants.DateFormat)
		}
	}
	return s
}
