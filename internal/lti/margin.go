package lti

import (
	"math"
)

// Margins holds the classical stability margins of an open-loop system.
// GainMargin is linear (not dB). PhaseMargin is in degrees. GainCrossW is
// the gain crossover frequency (|G|=1) and PhaseCrossW the phase crossover
// frequency (angle = -180 deg), both in rad/s. A margin with no associated
// crossover is +Inf and its frequency NaN, matching the convention of the
// usual margin query.
type Margins struct {
	GainMargin  float64
	PhaseMargin float64
	GainCrossW  float64
	PhaseCrossW float64
}

const (
	marginSweepLo = -5
	marginSweepHi = 5
	marginSamples = 20000
)

// Margins computes stability margins from a dense log-spaced frequency sweep
// with local linear interpolation at each detected crossing. With several
// crossovers the worst-case (smallest) margin is reported.
func (t TF) Margins() Margins {
	omega := LogSpace(marginSweepLo, marginSweepHi, marginSamples)
	mag, phase := t.Bode(omega)

	logw := make([]float64, len(omega))
	logmag := make([]float64, len(omega))
	for i := range omega {
		logw[i] = math.Log10(omega[i])
		logmag[i] = math.Log10(mag[i])
	}

	m := Margins{
		GainMargin:  math.Inf(1),
		PhaseMargin: math.Inf(1),
		GainCrossW:  math.NaN(),
		PhaseCrossW: math.NaN(),
	}

	// Gain crossovers: log10|G| passing through zero.
	for i := 0; i+1 < len(omega); i++ {
		a, b := logmag[i], logmag[i+1]
		if !isFinite(a) || !isFinite(b) {
			continue
		}
		if a == 0 && b == 0 {
			continue
		}
		if a*b > 0 {
			continue
		}
		r := a / (a - b)
		w := math.Pow(10, logw[i]+r*(logw[i+1]-logw[i]))
		ph := phase[i] + r*(phase[i+1]-phase[i])
		pm := wrapDeg(180 + ph*180/math.Pi)
		if math.IsInf(m.PhaseMargin, 1) || pm < m.PhaseMargin {
			m.PhaseMargin = pm
			m.GainCrossW = w
		}
	}

	// Phase crossovers: unwrapped phase passing through an odd multiple of
	// -180 deg (or +180 for loops that wind upward).
	minPh, maxPh := math.Inf(1), math.Inf(-1)
	for _, p := range phase {
		if !isFinite(p) {
			continue
		}
		minPh = math.Min(minPh, p)
		maxPh = math.Max(maxPh, p)
	}
	for level := math.Pi; level > minPh-2*math.Pi; level -= 2 * math.Pi {
		if level > maxPh+2*math.Pi {
			continue
		}
		for i := 0; i+1 < len(omega); i++ {
			a, b := phase[i]-level, phase[i+1]-level
			if !isFinite(a) || !isFinite(b) || a*b > 0 || (a == 0 && b == 0) {
				continue
			}
			r := a / (a - b)
			w := math.Pow(10, logw[i]+r*(logw[i+1]-logw[i]))
			lm := logmag[i] + r*(logmag[i+1]-logmag[i])
			gm := math.Pow(10, -lm)
			if math.IsInf(m.GainMargin, 1) || gm < m.GainMargin {
				m.GainMargin = gm
				m.PhaseCrossW = w
			}
		}
	}

	return m
}

// wrapDeg maps an angle in degrees into (-180, 180].
func wrapDeg(d float64) float64 {
	d = math.Mod(d+180, 360)
	if d < 0 {
		d += 360
	}
	return d - 180
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
