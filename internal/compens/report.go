package compens

import (
	"math"

	"github.com/san-kum/ctrlab/internal/jsonx"
	"github.com/san-kum/ctrlab/internal/lti"
)

// Sweep bounds the logarithmic frequency grid behind design searches and
// comparison plots. LoExp and HiExp are decade exponents.
type Sweep struct {
	LoExp   float64
	HiExp   float64
	Samples int
}

// DefaultSweep covers 1e-4..1e4 rad/s with 2000 samples.
func DefaultSweep() Sweep {
	return Sweep{LoExp: -4, HiExp: 4, Samples: 2000}
}

func (s Sweep) orDefault() Sweep {
	if s.Samples < 2 || s.HiExp <= s.LoExp {
		return DefaultSweep()
	}
	return s
}

// The lag-lead comparison plots use a narrower fixed window; the lag
// stage's low-frequency pole saturates wider sweeps.
const (
	lagLeadPlotLo      = -3
	lagLeadPlotHi      = 3
	lagLeadPlotSamples = 1000
)

// maxLeadDeg is the largest phase lead a single first-order stage is asked
// to deliver. Beyond this the compensator becomes excessively noise
// sensitive; it is a design limit, not a mathematical bound.
const maxLeadDeg = 65.0

// BodePlot holds open-loop frequency response samples for both systems.
type BodePlot struct {
	Omega          []jsonx.Float `json:"omega"`
	UncompMagDB    []jsonx.Float `json:"uncompensated_mag_db"`
	UncompPhaseDeg []jsonx.Float `json:"uncompensated_phase_deg"`
	CompMagDB      []jsonx.Float `json:"compensated_mag_db"`
	CompPhaseDeg   []jsonx.Float `json:"compensated_phase_deg"`
}

// StepPlot holds unity-feedback closed-loop step responses for both systems.
type StepPlot struct {
	UncompTime     []jsonx.Float `json:"uncompensated_time"`
	UncompResponse []jsonx.Float `json:"uncompensated_response"`
	CompTime       []jsonx.Float `json:"compensated_time"`
	CompResponse   []jsonx.Float `json:"compensated_response"`
}

// Plots bundles the comparison plot data of a design report.
type Plots struct {
	Bode BodePlot `json:"bode"`
	Step StepPlot `json:"step_response"`
}

// Performance holds before/after margin sets.
type Performance struct {
	Before MarginSet `json:"before"`
	After  MarginSet `json:"after"`
}

// buildPlots assembles comparison plot data: open-loop Bode samples over a
// log sweep and closed-loop step responses for the uncompensated and
// compensated systems.
func buildPlots(uncomp, comp lti.TF, lo, hi float64, n int) (Plots, error) {
	omega := lti.LogSpace(lo, hi, n)
	magUn, phaseUn := uncomp.Bode(omega)
	magCo, phaseCo := comp.Bode(omega)

	tUn, yUn, err := uncomp.Feedback().StepResponse()
	if err != nil {
		return Plots{}, analysisf("cannot simulate uncompensated step response: %v", err)
	}
	tCo, yCo, err := comp.Feedback().StepResponse()
	if err != nil {
		return Plots{}, analysisf("cannot simulate compensated step response: %v", err)
	}

	return Plots{
		Bode: BodePlot{
			Omega:          jsonx.Slice(omega),
			UncompMagDB:    jsonx.Slice(toDB(magUn)),
			UncompPhaseDeg: jsonx.Slice(toDeg(phaseUn)),
			CompMagDB:      jsonx.Slice(toDB(magCo)),
			CompPhaseDeg:   jsonx.Slice(toDeg(phaseCo)),
		},
		Step: StepPlot{
			UncompTime:     jsonx.Slice(tUn),
			UncompResponse: jsonx.Slice(yUn),
			CompTime:       jsonx.Slice(tCo),
			CompResponse:   jsonx.Slice(yCo),
		},
	}, nil
}

func toDB(mag []float64) []float64 {
	out := make([]float64, len(mag))
	for i, m := range mag {
		out[i] = 20 * math.Log10(m)
	}
	return out
}

func toDeg(rad []float64) []float64 {
	out := make([]float64, len(rad))
	for i, r := range rad {
		out[i] = r * 180 / math.Pi
	}
	return out
}

// interp mirrors numpy's one-dimensional linear interpolation: xp is
// assumed ascending, x outside the range clamps to the end values, and the
// bracketing interval is found by bisection. Callers pass naively reversed
// magnitude samples; when magnitude is not monotonic in frequency the
// bisection still resolves deterministically to one crossing. That
// approximation is part of the documented design behavior and is preserved
// rather than corrected.
func interp(x float64, xp, fp []float64) float64 {
	n := len(xp)
	if n == 0 {
		return math.NaN()
	}
	if x <= xp[0] {
		return fp[0]
	}
	if x >= xp[n-1] {
		return fp[n-1]
	}
	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if xp[mid] <= x {
			lo = mid
		} else {
			hi = mid
		}
	}
	if xp[hi] == xp[lo] {
		return fp[lo]
	}
	r := (x - xp[lo]) / (xp[hi] - xp[lo])
	return fp[lo] + r*(fp[hi]-fp[lo])
}

func reversed(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[len(xs)-1-i] = x
	}
	return out
}
