package analysis

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"github.com/san-kum/ctrlab/internal/jsonx"
	"github.com/san-kum/ctrlab/internal/lti"
)

// BodeData holds sampled frequency response with corner frequencies and the
// piecewise straight-line magnitude asymptotes.
type BodeData struct {
	Omega             []jsonx.Float `json:"omega"`
	MagnitudeDB       []jsonx.Float `json:"magnitude_db"`
	PhaseDeg          []jsonx.Float `json:"phase_deg"`
	CornerFrequencies []jsonx.Float `json:"corner_frequencies"`
	AsymptoteOmega    []jsonx.Float `json:"asymptote_omega"`
	AsymptoteMagDB    []jsonx.Float `json:"asymptote_magnitude_db"`
}

// NyquistAsymptote describes the low-frequency asymptote of the Nyquist
// curve for systems with poles at the origin: a vertical line for Type-1,
// a finite point for Type-2+ when one exists.
type NyquistAsymptote struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// NyquistData holds the Nyquist curve samples.
type NyquistData struct {
	Real      []jsonx.Float    `json:"real"`
	Imag      []jsonx.Float    `json:"imag"`
	Frequency []jsonx.Float    `json:"frequency"`
	Asymptote NyquistAsymptote `json:"asymptote"`
}

// FreqMargins is the margin block of the frequency-domain report.
type FreqMargins struct {
	GainMarginDB       jsonx.Float `json:"gain_margin_db"`
	PhaseMarginDeg     jsonx.Float `json:"phase_margin_deg"`
	GainCrossoverFreq  jsonx.Float `json:"gain_crossover_freq_rad_s"`
	PhaseCrossoverFreq jsonx.Float `json:"phase_crossover_freq_rad_s"`
}

// FreqDomainReport is the full frequency-domain analysis response.
type FreqDomainReport struct {
	Message          string      `json:"message"`
	Bode             BodeData    `json:"bode"`
	Nyquist          NyquistData `json:"nyquist"`
	StabilityMargins FreqMargins `json:"stability_margins"`
	DCGain           jsonx.Float `json:"dc_gain"`
}

// AnalyzeFreqDomain performs the full frequency-domain analysis of the
// system K*prod(s-z)/prod(s-p) assembled from the given zeros, poles, and
// gain.
func AnalyzeFreqDomain(zeros, poles []complex128, gain float64) (*FreqDomainReport, error) {
	if len(poles) == 0 {
		return nil, fmt.Errorf("transfer function requires at least one pole")
	}

	num := lti.FromRoots(zeros).Scale(gain)
	den := lti.FromRoots(poles)
	sys := lti.TF{Num: num, Den: den}

	omega := lti.LogSpace(-2, 2, 1000)
	resp := sys.FreqResp(omega)

	magDB := make([]float64, len(resp))
	phase := make([]float64, len(resp))
	for i, h := range resp {
		m := math.Max(cmplx.Abs(h), 1e-10)
		magDB[i] = 20 * math.Log10(m)
		phase[i] = cmplx.Phase(h)
	}
	unwrapInPlace(phase)
	phaseDeg := make([]float64, len(phase))
	for i, p := range phase {
		phaseDeg[i] = p * 180 / math.Pi
	}

	corners := cornerFrequencies(zeros, poles)
	asymW, asymDB := bodeAsymptotes(sys, omega)

	nyReal := make([]float64, len(resp))
	nyImag := make([]float64, len(resp))
	for i, h := range resp {
		nyReal[i] = real(h)
		nyImag[i] = imag(h)
	}

	m := sys.Margins()

	dc := math.Inf(1)
	if den[len(den)-1] != 0 {
		dc = num[len(num)-1] / den[len(den)-1]
	}

	return &FreqDomainReport{
		Message: "Frequency domain analysis successful",
		Bode: BodeData{
			Omega:             jsonx.Slice(omega),
			MagnitudeDB:       jsonx.Slice(magDB),
			PhaseDeg:          jsonx.Slice(phaseDeg),
			CornerFrequencies: jsonx.Slice(corners),
			AsymptoteOmega:    jsonx.Slice(asymW),
			AsymptoteMagDB:    jsonx.Slice(asymDB),
		},
		Nyquist: NyquistData{
			Real:      jsonx.Slice(nyReal),
			Imag:      jsonx.Slice(nyImag),
			Frequency: jsonx.Slice(omega),
			Asymptote: nyquistAsymptote(sys, poles),
		},
		StabilityMargins: FreqMargins{
			GainMarginDB:       jsonx.Float(gainDB(m.GainMargin)),
			PhaseMarginDeg:     jsonx.Float(m.PhaseMargin),
			GainCrossoverFreq:  jsonx.Float(m.GainCrossW),
			PhaseCrossoverFreq: jsonx.Float(m.PhaseCrossW),
		},
		DCGain: jsonx.Float(dc),
	}, nil
}

func gainDB(gm float64) float64 {
	if gm <= 0 || math.IsNaN(gm) || math.IsInf(gm, 0) {
		return math.NaN()
	}
	return 20 * math.Log10(gm)
}

func cornerFrequencies(zeros, poles []complex128) []float64 {
	seen := make(map[float64]bool)
	var out []float64
	for _, r := range append(append([]complex128{}, poles...), zeros...) {
		if r == 0 {
			continue
		}
		w := cmplx.Abs(r)
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	sort.Float64s(out)
	return out
}

// bodeAsymptotes builds the straight-line Bode magnitude approximation:
// an initial slope of -20 dB/decade per net pole at the origin anchored at
// the low-frequency gain, with the slope stepping at each corner frequency.
func bodeAsymptotes(sys lti.TF, omega []float64) (asymW, asymDB []float64) {
	poles := sys.Poles()
	zeros := sys.Zeros()

	polesAtOrigin, zerosAtOrigin := 0, 0
	type corner struct {
		w      float64
		isPole bool
	}
	var corners []corner
	for _, p := range poles {
		if cmplx.Abs(p) < 1e-8 {
			polesAtOrigin++
		} else {
			corners = append(corners, corner{cmplx.Abs(p), true})
		}
	}
	for _, z := range zeros {
		if cmplx.Abs(z) < 1e-8 {
			zerosAtOrigin++
		} else {
			corners = append(corners, corner{cmplx.Abs(z), false})
		}
	}
	sort.Slice(corners, func(i, j int) bool { return corners[i].w < corners[j].w })

	// Low-frequency gain after factoring out origin roots.
	kLow := lowFreqGain(sys.Num, sys.Den)
	magAtOne := math.NaN()
	switch {
	case kLow == 0:
		magAtOne = math.Inf(-1)
	case math.IsInf(kLow, 0):
		magAtOne = math.Inf(1)
	default:
		magAtOne = 20 * math.Log10(math.Abs(kLow))
	}

	slope := -20 * float64(polesAtOrigin-zerosAtOrigin)
	wStart, wEnd := omega[0], omega[len(omega)-1]

	asymW = append(asymW, wStart)
	asymDB = append(asymDB, magAtOne+slope*math.Log10(wStart))

	for _, c := range corners {
		if c.w < wStart || c.w > wEnd {
			continue
		}
		db := asymDB[len(asymDB)-1] + slope*math.Log10(c.w/asymW[len(asymW)-1])
		asymW = append(asymW, c.w)
		asymDB = append(asymDB, db)
		if c.isPole {
			slope -= 20
		} else {
			slope += 20
		}
		// Duplicate the corner point so the polyline bends there.
		asymW = append(asymW, c.w)
		asymDB = append(asymDB, db)
	}

	if wEnd > asymW[len(asymW)-1] {
		db := asymDB[len(asymDB)-1] + slope*math.Log10(wEnd/asymW[len(asymW)-1])
		asymW = append(asymW, wEnd)
		asymDB = append(asymDB, db)
	}
	return asymW, asymDB
}

// lowFreqGain returns the ratio of the lowest-order non-zero numerator and
// denominator coefficients.
func lowFreqGain(num, den lti.Poly) float64 {
	n := lowestNonZero(num)
	d := lowestNonZero(den)
	if math.Abs(d) < 1e-12 {
		if math.Abs(n) >= 1e-12 {
			return math.Inf(1)
		}
		return 0
	}
	return n / d
}

func lowestNonZero(p lti.Poly) float64 {
	for i := len(p) - 1; i >= 0; i-- {
		if !lti.Close(p[i], 0) {
			return p[i]
		}
	}
	return 0
}

// nyquistAsymptote derives the low-frequency Nyquist asymptote in closed
// form from the coefficient expansion around s=0: a Type-1 system
// approaches a vertical line at Re G(j0+); a Type-2+ system has a finite
// point asymptote only when enough zeros sit at the origin to cancel the
// divergence.
func nyquistAsymptote(sys lti.TF, poles []complex128) NyquistAsymptote {
	origin := 0
	for _, p := range poles {
		if cmplx.Abs(p) < 1e-8 {
			origin++
		}
	}
	if origin == 0 {
		return NyquistAsymptote{Type: "none", Value: nil}
	}

	// Factor den = s^origin * d1.
	d1 := sys.Den[:len(sys.Den)-origin]
	if len(d1) == 0 || lti.Close(d1[len(d1)-1], 0) {
		return NyquistAsymptote{Type: "none", Value: nil}
	}

	if origin == 1 {
		// G(s) = K/s + C + O(s); Re G(jw) -> C as w -> 0 for real K.
		n0 := sys.Num[len(sys.Num)-1]
		d0 := d1[len(d1)-1]
		k := n0 / d0
		n1, dd1 := 0.0, 0.0
		if len(sys.Num) >= 2 {
			n1 = sys.Num[len(sys.Num)-2]
		}
		if len(d1) >= 2 {
			dd1 = d1[len(d1)-2]
		}
		c := (n1 - k*dd1) / d0
		if finite(c) {
			return NyquistAsymptote{Type: "vertical_line", Value: jsonx.Float(c)}
		}
		return NyquistAsymptote{Type: "none", Value: nil}
	}

	// Type 2+: lim s^(origin-1) G(s) = lim N(s)/(s*d1(s)), finite only when
	// the numerator also vanishes at the origin.
	if lti.Close(sys.Num[len(sys.Num)-1], 0) && len(sys.Num) >= 2 {
		v := sys.Num[len(sys.Num)-2] / d1[len(d1)-1]
		if finite(v) {
			return NyquistAsymptote{
				Type:  "point",
				Value: map[string]jsonx.Float{"x": jsonx.Float(v), "y": 0},
			}
		}
	}
	return NyquistAsymptote{Type: "none", Value: nil}
}

// unwrapInPlace removes 2*pi discontinuities from a radian phase sequence.
func unwrapInPlace(phase []float64) {
	offset := 0.0
	for i := 1; i < len(phase); i++ {
		d := phase[i] + offset - phase[i-1]
		for d > math.Pi {
			offset -= 2 * math.Pi
			d -= 2 * math.Pi
		}
		for d < -math.Pi {
			offset += 2 * math.Pi
			d += 2 * math.Pi
		}
		phase[i] += offset
	}
}
