// Package analysis implements the peripheral analyses around the
// compensator engine: time-domain step metrics, pole-based stability
// classification, second-order inverse analysis, Routh stability ranges,
// root-locus geometry, frequency-domain data, and phase portraits.
package analysis

import (
	"fmt"
	"math"

	"github.com/san-kum/ctrlab/internal/jsonx"
	"github.com/san-kum/ctrlab/internal/lti"
)

// StepMetrics holds formatted time-domain response metrics. Values that
// cannot be determined (unstable or non-settling systems) are "N/A".
type StepMetrics struct {
	RiseTime         string `json:"rise_time"`
	PeakTime         string `json:"peak_time"`
	MaxOvershoot     string `json:"max_overshoot"`
	SettlingTime2Pct string `json:"settling_time_2_percent"`
	SettlingTime5Pct string `json:"settling_time_5_percent"`
}

// StabilityInfo is the pole-based stability verdict.
type StabilityInfo struct {
	Status string   `json:"status"`
	Poles  []string `json:"poles"`
}

// TFReport is the response of the forward transfer-function analysis.
type TFReport struct {
	Message   string        `json:"message"`
	Input     TFInput       `json:"input"`
	Metrics   StepMetrics   `json:"metrics"`
	Stability StabilityInfo `json:"stability"`
}

// TFInput echoes the analyzed coefficients.
type TFInput struct {
	Numerator   []jsonx.Float `json:"numerator"`
	Denominator []jsonx.Float `json:"denominator"`
}

// AnalyzeTF computes step-response metrics and a stability verdict for the
// given system.
func AnalyzeTF(sys lti.TF) (*TFReport, error) {
	times, resp, err := sys.StepResponse()
	if err != nil {
		return nil, err
	}

	m2 := stepInfo(times, resp, 0.02)
	m5 := stepInfo(times, resp, 0.05)

	poles := sys.Poles()
	status := ClassifyStability(poles)
	formatted := make([]string, len(poles))
	for i, p := range poles {
		formatted[i] = FormatPole(p)
	}

	return &TFReport{
		Message: "Analysis successful",
		Input: TFInput{
			Numerator:   jsonx.Slice(sys.Num),
			Denominator: jsonx.Slice(sys.Den),
		},
		Metrics: StepMetrics{
			RiseTime:         fmtMetric(m2.riseTime),
			PeakTime:         fmtMetric(m2.peakTime),
			MaxOvershoot:     fmtMetric(m2.overshoot),
			SettlingTime2Pct: fmtMetric(m2.settlingTime),
			SettlingTime5Pct: fmtMetric(m5.settlingTime),
		},
		Stability: StabilityInfo{Status: status, Poles: formatted},
	}, nil
}

type stepMetrics struct {
	riseTime     float64
	peakTime     float64
	overshoot    float64
	settlingTime float64
}

// stepInfo extracts rise time (10-90%), peak time, percent overshoot, and
// settling time (last departure from the threshold band around the final
// value) from sampled step response data.
func stepInfo(times, resp []float64, threshold float64) stepMetrics {
	out := stepMetrics{
		riseTime:     math.NaN(),
		peakTime:     math.NaN(),
		overshoot:    math.NaN(),
		settlingTime: math.NaN(),
	}
	if len(resp) < 2 {
		return out
	}
	final := resp[len(resp)-1]
	if !finite(final) || math.Abs(final) < lti.Tol {
		return out
	}

	// Rise time: first crossing of 10% to first crossing of 90%.
	t10, t90 := math.NaN(), math.NaN()
	for i, y := range resp {
		frac := y / final
		if math.IsNaN(t10) && frac >= 0.1 {
			t10 = times[i]
		}
		if math.IsNaN(t90) && frac >= 0.9 {
			t90 = times[i]
			break
		}
	}
	if !math.IsNaN(t10) && !math.IsNaN(t90) {
		out.riseTime = t90 - t10
	}

	// Peak time and overshoot.
	peak, peakT := resp[0], times[0]
	for i, y := range resp {
		if math.Abs(y) > math.Abs(peak) {
			peak, peakT = y, times[i]
		}
	}
	out.peakTime = peakT
	over := (peak - final) / final * 100
	if over < 0 {
		over = 0
	}
	out.overshoot = over

	// Settling time: the sample after the last one outside the band.
	band := threshold * math.Abs(final)
	settled := times[0]
	for i := len(resp) - 1; i >= 0; i-- {
		if math.Abs(resp[i]-final) > band {
			if i+1 < len(times) {
				settled = times[i+1]
			} else {
				settled = math.NaN()
			}
			break
		}
	}
	out.settlingTime = settled
	return out
}

func fmtMetric(v float64) string {
	if !finite(v) {
		return "N/A"
	}
	return fmt.Sprintf("%.3f", v)
}

// ClassifyStability judges stability from pole locations: any right
// half-plane pole or repeated imaginary-axis pole is unstable, simple
// imaginary-axis poles are marginally stable.
func ClassifyStability(poles []complex128) string {
	hasRHP := false
	var imagAxis []complex128
	for _, p := range poles {
		if real(p) > 0 && !lti.Close(real(p), 0) {
			hasRHP = true
		}
		if lti.Close(real(p), 0) {
			imagAxis = append(imagAxis, p)
		}
	}

	counts := make(map[complex128]int)
	for _, p := range imagAxis {
		key := complex(roundTo(real(p), 5), roundTo(imag(p), 5))
		counts[key]++
	}
	repeated := false
	for _, c := range counts {
		if c > 1 {
			repeated = true
		}
	}

	switch {
	case hasRHP || repeated:
		return "Unstable"
	case len(imagAxis) > 0:
		return "Marginally Stable"
	default:
		return "Stable"
	}
}

// FormatPole renders a complex pole compactly: integers without decimals,
// pure and mixed imaginary parts with a j suffix.
func FormatPole(p complex128) string {
	re, im := real(p), imag(p)
	if lti.Close(im, 0) {
		if lti.Close(re, 0) {
			return "0"
		}
		if lti.Close(re, math.Round(re)) {
			return fmt.Sprintf("%.0f", re)
		}
		return fmt.Sprintf("%.2f", re)
	}
	sign := "+"
	if im < 0 {
		sign = "-"
	}
	if lti.Close(re, 0) {
		return fmt.Sprintf("%.2fj", im)
	}
	return fmt.Sprintf("%.2f %s%.2fj", re, sign, math.Abs(im))
}

func roundTo(x float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(x*scale) / scale
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// InverseResult is the second-order inverse analysis response.
type InverseResult struct {
	DampingRatio     *jsonx.Float `json:"damping_ratio"`
	NaturalFrequency *jsonx.Float `json:"natural_frequency"`
	Message          string       `json:"message"`
}

// InverseSpec carries the desired time-domain metrics; nil means not given.
type InverseSpec struct {
	RiseTime     *float64
	PeakTime     *float64
	MaxOvershoot *float64
	SettlingTime *float64
}

// InverseAnalyze recovers damping ratio and natural frequency from
// time-domain specifications under a second-order assumption: zeta from
// percent overshoot, omega_n from peak time (underdamped) or from the 2%
// settling-time approximation 4/(zeta*omega_n).
func InverseAnalyze(spec InverseSpec) InverseResult {
	var zeta, omegaN *float64
	msg := ""

	if spec.MaxOvershoot != nil && *spec.MaxOvershoot > 0 {
		if *spec.MaxOvershoot >= 100 {
			z := 1.0
			zeta = &z
		} else {
			lnMp := math.Log(*spec.MaxOvershoot / 100)
			z := math.Sqrt(lnMp * lnMp / (math.Pi*math.Pi + lnMp*lnMp))
			if z > 1 {
				z = 1
			}
			zeta = &z
		}
	}

	if spec.PeakTime != nil && zeta != nil && *zeta < 1 {
		z, tp := *zeta, *spec.PeakTime
		if tp > 0 && 1-z*z > 0 {
			w := math.Pi / (tp * math.Sqrt(1-z*z))
			omegaN = &w
		}
	} else if spec.SettlingTime != nil && zeta != nil && *zeta > 0 {
		z, ts := *zeta, *spec.SettlingTime
		if ts > 0 {
			w := 4 / (ts * z)
			omegaN = &w
		}
	}

	if zeta == nil || omegaN == nil {
		msg = "Insufficient or conflicting metrics provided."
	}

	out := InverseResult{Message: msg}
	if zeta != nil {
		f := jsonx.Float(*zeta)
		out.DampingRatio = &f
	}
	if omegaN != nil {
		f := jsonx.Float(*omegaN)
		out.NaturalFrequency = &f
	}
	return out
}
