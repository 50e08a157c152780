package pipeline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidInput matches every *ValidationError via errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// ValidationError reports a rejected stage input. Rows are 1-based indices of
// the offending upload rows, Param names the offending scalar parameter.
type ValidationError struct {
	Stage  Stage
	Param  string
	Rows   []int
	Reason string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Stage.String())
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Param != "" {
		fmt.Fprintf(&b, " (parameter %s)", e.Param)
	}
	if len(e.Rows) > 0 {
		rows := make([]string, len(e.Rows))
		for i, r := range e.Rows {
			rows[i] = strconv.Itoa(r)
		}
		fmt.Fprintf(&b, " (rows %s)", strings.Join(rows, ", "))
	}
	return b.String()
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}
