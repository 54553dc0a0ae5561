package compens

import (
	"math"

	"github.com/san-kum/ctrlab/internal/jsonx"
	"github.com/san-kum/ctrlab/internal/lti"
)

// LagLeadCompensator reports the combined compensator as raw coefficient
// arrays of the cascaded lag and lead stages.
type LagLeadCompensator struct {
	Num []jsonx.Float `json:"num"`
	Den []jsonx.Float `json:"den"`
}

// LagLeadReport is the full lag-lead design response.
type LagLeadReport struct {
	Message     string             `json:"message"`
	Compensator LagLeadCompensator `json:"compensator"`
	Performance Performance        `json:"performance"`
	Plots       Plots              `json:"plots"`
}

// DesignLagLead synthesizes a cascaded lag-lead compensator: the lag stage
// first satisfies the Kv requirement, then a lead stage is designed against
// the lag-compensated system to reach the desired phase margin. Either
// stage degenerates to identity when its requirement is already met.
func DesignLagLead(sys lti.TF, desiredPM, desiredKv, safety float64, sw Sweep) (*LagLeadReport, error) {
	sw = sw.orDefault()
	kvOld, integrators := ClassifyKv(sys.Num, sys.Den)
	if integrators != 1 {
		return nil, specf("system must be Type 1 for Kv-based lag design; this is a Type %d system", integrators)
	}

	lag := lti.Unity()
	if desiredKv > kvOld {
		beta := desiredKv / kvOld
		// The new crossover is unknown at this point, so the placement
		// heuristic works from the crossover of the uncompensated system.
		m := sys.Margins()
		if math.IsNaN(m.GainCrossW) {
			return nil, analysisf("cannot determine the original gain crossover frequency to place the lag stage")
		}
		zero := m.GainCrossW / 10
		pole := zero / beta
		lag = lti.TF{Num: lti.Poly{1, zero}, Den: lti.Poly{1, pole}}
	}

	lagCompensated := lag.Series(sys)

	mLag := lagCompensated.Margins()
	if math.IsNaN(mLag.PhaseMargin) {
		return nil, analysisf("could not determine the phase margin after lag compensation")
	}

	lead := lti.Unity()
	requiredLead := desiredPM - mLag.PhaseMargin + safety
	if requiredLead > 0 {
		if requiredLead > maxLeadDeg {
			return nil, specf("required phase lead (%.2f deg) is too high", requiredLead)
		}

		phi := requiredLead * math.Pi / 180
		alpha := (1 - math.Sin(phi)) / (1 + math.Sin(phi))
		targetDB := -10 * math.Log10(1/alpha)

		// Denser than the lead-only search: the lag stage adds a
		// low-frequency feature that coarse sampling can miss.
		omega := lti.LogSpace(sw.LoExp, sw.HiExp, 2*sw.Samples)
		mag, _ := lagCompensated.Bode(omega)
		omegaM, err := locateCrossover(targetDB, omega, toDB(mag), true)
		if err != nil {
			return nil, err
		}

		zero := omegaM * math.Sqrt(alpha)
		pole := omegaM / math.Sqrt(alpha)
		lead = lti.TF{Num: lti.Poly{1, zero}, Den: lti.Poly{1, pole}}
	}

	final := lag.Series(lead)
	compensated := final.Series(sys)

	plots, err := buildPlots(sys, compensated, lagLeadPlotLo, lagLeadPlotHi, lagLeadPlotSamples)
	if err != nil {
		return nil, err
	}

	// Kv-after is the design target, not a DC re-evaluation (same rationale
	// as the lag design).
	return &LagLeadReport{
		Message: "Lag-Lead compensator designed successfully.",
		Compensator: LagLeadCompensator{
			Num: jsonx.Slice(final.Num),
			Den: jsonx.Slice(final.Den),
		},
		Performance: Performance{
			Before: ExtractMargins(sys).withKv(kvOld),
			After:  ExtractMargins(compensated).withKv(desiredKv),
		},
		Plots: plots,
	}, nil
}
