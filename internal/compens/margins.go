// Package compens implements frequency-domain compensator synthesis: margin
// extraction, velocity-constant classification, and lead/lag/lag-lead design
// with before/after comparison reports.
package compens

import (
	"math"

	"github.com/san-kum/ctrlab/internal/jsonx"
	"github.com/san-kum/ctrlab/internal/lti"
)

// MarginSet is the sanitized margin tuple reported to clients. Absent
// crossovers serialize as null. Kv is present only for Kv-driven designs.
type MarginSet struct {
	Kv                 *jsonx.Float `json:"kv,omitempty"`
	PhaseMargin        jsonx.Float  `json:"phase_margin"`
	GainMarginDB       jsonx.Float  `json:"gain_margin_db"`
	GainCrossoverFreq  jsonx.Float  `json:"gain_crossover_freq"`
	PhaseCrossoverFreq jsonx.Float  `json:"phase_crossover_freq"`
}

// ExtractMargins queries the margin primitive and sanitizes the result.
// The gain margin is converted to decibels; an infinite or undefined gain
// margin yields an absent dB field.
func ExtractMargins(sys lti.TF) MarginSet {
	m := sys.Margins()
	return MarginSet{
		PhaseMargin:        jsonx.Float(m.PhaseMargin),
		GainMarginDB:       jsonx.Float(gainMarginDB(m.GainMargin)),
		GainCrossoverFreq:  jsonx.Float(m.GainCrossW),
		PhaseCrossoverFreq: jsonx.Float(m.PhaseCrossW),
	}
}

// gainMarginDB converts a linear gain margin to dB, propagating NaN for
// non-finite or non-positive inputs so the field sanitizes to null.
func gainMarginDB(gm float64) float64 {
	if math.IsNaN(gm) || math.IsInf(gm, 0) || gm <= 0 {
		return math.NaN()
	}
	return 20 * math.Log10(gm)
}

func (m MarginSet) withKv(kv float64) MarginSet {
	f := jsonx.Float(kv)
	m.Kv = &f
	return m
}
