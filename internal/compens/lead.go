package compens

import (
	"math"

	"github.com/san-kum/ctrlab/internal/jsonx"
	"github.com/san-kum/ctrlab/internal/lti"
)

// LeadCompensator describes a designed lead stage (s+zero)/(s+pole). The
// reported zero and pole are the actual root locations (negative reals).
type LeadCompensator struct {
	Numerator   []jsonx.Float `json:"numerator"`
	Denominator []jsonx.Float `json:"denominator"`
	Zero        jsonx.Float   `json:"zero"`
	Pole        jsonx.Float   `json:"pole"`
	Alpha       jsonx.Float   `json:"alpha"`
	OmegaM      jsonx.Float   `json:"omega_m"`
}

// LeadReport is the full lead design response.
type LeadReport struct {
	Message     string          `json:"message"`
	Compensator LeadCompensator `json:"compensator"`
	Performance Performance     `json:"performance"`
	Plots       Plots           `json:"plots"`
}

// DesignLead synthesizes a lead compensator raising the phase margin of sys
// to desiredPM (degrees), with the given safety margin added to the phase
// lead. The maximum-phase-lead formula places the compensator zero and pole
// symmetrically (on a log axis) about the new gain crossover.
func DesignLead(sys lti.TF, desiredPM, safety float64, sw Sweep) (*LeadReport, error) {
	sw = sw.orDefault()
	before := sys.Margins()
	if math.IsNaN(before.PhaseMargin) {
		return nil, analysisf("could not determine the phase margin of the uncompensated system; it may be unstable or degenerate")
	}

	requiredLead := desiredPM - before.PhaseMargin + safety
	if requiredLead <= 0 {
		return nil, specf("the current phase margin (%.2f deg) already meets or exceeds the desired margin; no lead compensation needed", before.PhaseMargin)
	}
	if requiredLead > maxLeadDeg {
		return nil, specf("required phase lead (%.2f deg) is too high; a single lead stage is not recommended beyond %.0f deg", requiredLead, maxLeadDeg)
	}

	phi := requiredLead * math.Pi / 180
	alpha := (1 - math.Sin(phi)) / (1 + math.Sin(phi))

	// The new gain crossover sits where the plant magnitude equals the
	// (negative) half-gain of the lead stage.
	targetDB := -10 * math.Log10(1/alpha)

	omega := lti.LogSpace(sw.LoExp, sw.HiExp, sw.Samples)
	mag, _ := sys.Bode(omega)
	magDB := toDB(mag)

	omegaM, err := locateCrossover(targetDB, omega, magDB, false)
	if err != nil {
		return nil, err
	}

	zero := omegaM * math.Sqrt(alpha)
	pole := omegaM / math.Sqrt(alpha)
	comp := lti.TF{Num: lti.Poly{1, zero}, Den: lti.Poly{1, pole}}
	compensated := comp.Series(sys)

	plots, err := buildPlots(sys, compensated, sw.LoExp, sw.HiExp, sw.Samples)
	if err != nil {
		return nil, err
	}

	return &LeadReport{
		Message: "Lead compensator designed successfully.",
		Compensator: LeadCompensator{
			Numerator:   jsonx.Slice([]float64{1, zero}),
			Denominator: jsonx.Slice([]float64{1, pole}),
			Zero:        jsonx.Float(-zero),
			Pole:        jsonx.Float(-pole),
			Alpha:       jsonx.Float(alpha),
			OmegaM:      jsonx.Float(omegaM),
		},
		Performance: Performance{
			Before: ExtractMargins(sys),
			After:  ExtractMargins(compensated),
		},
		Plots: plots,
	}, nil
}

// locateCrossover finds the frequency at which the sampled magnitude equals
// targetDB by interpolating against the naively reversed sample arrays.
// With filterFinite set, non-finite magnitude samples are dropped before
// the search (required after a lag stage, whose low-frequency pole can push
// samples out of range).
func locateCrossover(targetDB float64, omega, magDB []float64, filterFinite bool) (float64, error) {
	w, m := omega, magDB
	if filterFinite {
		w = make([]float64, 0, len(omega))
		m = make([]float64, 0, len(magDB))
		for i, v := range magDB {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			w = append(w, omega[i])
			m = append(m, v)
		}
		if len(m) == 0 {
			return 0, analysisf("cannot find a suitable crossover frequency: no finite magnitude samples")
		}
	}

	allAbove, allBelow := true, true
	for _, v := range m {
		if !(v > targetDB) {
			allAbove = false
		}
		if !(v < targetDB) {
			allBelow = false
		}
	}
	if allAbove {
		return 0, analysisf("system gain is always higher than the target for the new crossover frequency; cannot determine omega_m")
	}
	if allBelow {
		return 0, analysisf("system gain is always lower than the target for the new crossover frequency; cannot determine omega_m")
	}

	omegaM := interp(targetDB, reversed(m), reversed(w))
	if math.IsNaN(omegaM) || omegaM <= 0 {
		return 0, analysisf("could not find a valid new crossover frequency (omega_m)")
	}
	return omegaM, nil
}
