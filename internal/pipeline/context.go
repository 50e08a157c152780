// Package pipeline implements the four accounting stages an import shipment
// moves through: intake, banking, receipt and reconciliation.
//
// Every stage is a pure function over a Context. The Runner wraps each one,
// persists the result through a Store and hands the updated Context back to
// the caller, which owns it between stages.
package pipeline

import (
	"fmt"
	"strings"

	"AcevalImport/internal/shipment"
)

// Stage identifies one of the four processing phases.
type Stage int

const (
	StageNone Stage = iota
	StageIntake
	StageBanking
	StageReceipt
	StageReconciliation
)

// Stages lists the four processing stages in order.
var Stages = []Stage{StageIntake, StageBanking, StageReceipt, StageReconciliation}

var stageRoman = map[Stage]string{
	StageIntake:         "I",
	StageBanking:        "II",
	StageReceipt:        "III",
	StageReconciliation: "IV",
}

// Roman returns "I" through "IV", or "" for StageNone.
func (s Stage) Roman() string { return stageRoman[s] }

// Tag prefixes snapshot file names, e.g. "ETAPA_II".
func (s Stage) Tag() string { return "ETAPA_" + s.Roman() }

// DirName is the default output subdirectory, e.g. "II_ETAPA".
func (s Stage) DirName() string { return s.Roman() + "_ETAPA" }

func (s Stage) String() string {
	if r := s.Roman(); r != "" {
		return "Etapa " + r
	}
	return "sin etapa"
}

// ParseStage accepts "II", "2", "ETAPA_II" or "II_ETAPA" in any casing.
func ParseStage(raw string) (Stage, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "ETAPA_")
	s = strings.TrimSuffix(s, "_ETAPA")
	s = strings.TrimPrefix(s, "ETAPA ")
	for _, st := range Stages {
		if s == st.Roman() || s == fmt.Sprintf("%d", int(st)) {
			return st, nil
		}
	}
	return StageNone, fmt.Errorf("unknown stage %q", raw)
}

// Context is the working state of one shipment between stage transitions.
// Stage records the last stage whose derived fields Items carry.
type Context struct {
	Header shipment.Header     `json:"cabecera"`
	Stage  Stage               `json:"etapa"`
	Items  []shipment.LineItem `json:"items"`
}

// Clone deep-copies c so a stage can work on it without touching the caller's copy.
func (c Context) Clone() Context {
	c.Header.ProductCount = cloneInt(c.Header.ProductCount)
	c.Items = shipment.CloneAll(c.Items)
	return c
}

// ready checks that next is either the stage right after c.Stage or a re-run
// of c.Stage.
func (c Context) ready(next Stage) error {
	if c.Stage == next-1 || c.Stage == next {
		return nil
	}
	return &ValidationError{
		Stage:  next,
		Param:  "etapa",
		Reason: fmt.Sprintf("%s cannot run on items produced by %s", next, c.Stage),
	}
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.Roman()), nil
}

func (s *Stage) UnmarshalText(b []byte) error {
	st, err := ParseStage(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}
