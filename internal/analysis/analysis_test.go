package analysis

import (
	"math"
	"testing"

	"github.com/san-kum/ctrlab/internal/jsonx"
	"github.com/san-kum/ctrlab/internal/lti"
)

func mustTF(t *testing.T, num, den []float64) lti.TF {
	t.Helper()
	sys, err := lti.New(num, den)
	if err != nil {
		t.Fatal(err)
	}
	return sys
}

func TestAnalyzeTF(t *testing.T) {
	// Critically damped 1/(s+1)^2.
	sys := mustTF(t, []float64{1}, []float64{1, 2, 1})
	report, err := AnalyzeTF(sys)
	if err != nil {
		t.Fatal(err)
	}

	if report.Stability.Status != "Stable" {
		t.Errorf("stability: got %s, want Stable", report.Stability.Status)
	}
	if len(report.Stability.Poles) != 2 {
		t.Errorf("expected 2 poles, got %d", len(report.Stability.Poles))
	}
	if report.Metrics.RiseTime == "N/A" {
		t.Error("rise time should be determined for a stable system")
	}
	if report.Metrics.MaxOvershoot != "0.000" {
		t.Errorf("critically damped overshoot: got %s, want 0.000", report.Metrics.MaxOvershoot)
	}
}

func TestClassifyStability(t *testing.T) {
	tests := []struct {
		name  string
		poles []complex128
		want  string
	}{
		{"stable", []complex128{-1, -2}, "Stable"},
		{"stable complex", []complex128{complex(-1, 2), complex(-1, -2)}, "Stable"},
		{"rhp", []complex128{1, -2}, "Unstable"},
		{"integrator", []complex128{0, -1}, "Marginally Stable"},
		{"imag pair", []complex128{complex(0, 2), complex(0, -2)}, "Marginally Stable"},
		{"double integrator", []complex128{0, 0}, "Unstable"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyStability(tc.poles); got != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestFormatPole(t *testing.T) {
	tests := []struct {
		p    complex128
		want string
	}{
		{complex(-1, 0), "-1"},
		{complex(0, 0), "0"},
		{complex(-1.5, 0), "-1.50"},
		{complex(0, 2), "2.00j"},
		{complex(-1, 2), "-1.00 +2.00j"},
		{complex(-1, -2), "-1.00 -2.00j"},
	}
	for _, tc := range tests {
		if got := FormatPole(tc.p); got != tc.want {
			t.Errorf("FormatPole(%v) = %q, want %q", tc.p, got, tc.want)
		}
	}
}

func TestInverseAnalyze(t *testing.T) {
	// 16.3% overshoot corresponds to zeta ~ 0.5.
	mp, tp := 16.3, 1.0
	res := InverseAnalyze(InverseSpec{MaxOvershoot: &mp, PeakTime: &tp})

	if res.DampingRatio == nil || res.NaturalFrequency == nil {
		t.Fatal("expected both parameters recovered")
	}
	zeta := float64(*res.DampingRatio)
	if math.Abs(zeta-0.5) > 0.01 {
		t.Errorf("zeta: got %g, want ~0.5", zeta)
	}
	// omega_n = pi / (tp * sqrt(1-zeta^2)).
	wantW := math.Pi / (tp * math.Sqrt(1-zeta*zeta))
	if math.Abs(float64(*res.NaturalFrequency)-wantW) > 1e-9 {
		t.Errorf("omega_n: got %g, want %g", float64(*res.NaturalFrequency), wantW)
	}
}

func TestInverseAnalyzeSettlingTime(t *testing.T) {
	mp, ts := 10.0, 2.0
	res := InverseAnalyze(InverseSpec{MaxOvershoot: &mp, SettlingTime: &ts})
	if res.DampingRatio == nil || res.NaturalFrequency == nil {
		t.Fatal("expected both parameters recovered")
	}
	z := float64(*res.DampingRatio)
	want := 4 / (ts * z)
	if math.Abs(float64(*res.NaturalFrequency)-want) > 1e-9 {
		t.Errorf("omega_n from settling time: got %g, want %g", float64(*res.NaturalFrequency), want)
	}
}

func TestInverseAnalyzeInsufficient(t *testing.T) {
	rt := 0.5
	res := InverseAnalyze(InverseSpec{RiseTime: &rt})
	if res.Message == "" {
		t.Error("expected a message for insufficient metrics")
	}
	if res.NaturalFrequency != nil {
		t.Error("omega_n should not be recoverable from rise time alone")
	}
}

func TestRouthTableStable(t *testing.T) {
	// (s+1)(s+2)(s+3) = s^3 + 6s^2 + 11s + 6: no RHP roots.
	res, err := RouthTable([]float64{1, 6, 11, 6})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Stable {
		t.Error("expected stable")
	}
	if res.SignChanges != 0 {
		t.Errorf("sign changes: got %d, want 0", res.SignChanges)
	}
}

func TestRouthTableUnstable(t *testing.T) {
	// s^3 + s^2 + 2s + 24 has a conjugate RHP pair.
	res, err := RouthTable([]float64{1, 1, 2, 24})
	if err != nil {
		t.Fatal(err)
	}
	if res.Stable {
		t.Error("expected unstable")
	}
	if res.SignChanges != 2 {
		t.Errorf("sign changes: got %d, want 2", res.SignChanges)
	}
}

func TestRouthTableAuxiliaryRow(t *testing.T) {
	// s^2 + 4 has roots on the imaginary axis: the s^1 row is all zero.
	res, err := RouthTable([]float64{1, 0, 4})
	if err != nil {
		t.Fatal(err)
	}
	if !res.AuxiliaryRow {
		t.Error("expected the all-zero-row flag")
	}
	if res.Stable {
		t.Error("symmetric roots must not report stable")
	}
}

func TestStabilityRangeThirdOrder(t *testing.T) {
	// K/(s(s+1)(s+2)) closes stably for 0 < K < 6.
	report, err := StabilityRange([]float64{1}, []float64{1, 3, 2, 0})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Intervals) != 1 {
		t.Fatalf("expected one stable interval, got %d", len(report.Intervals))
	}
	hi := float64(report.Intervals[0].Max)
	if math.Abs(hi-6) > 0.05 {
		t.Errorf("upper stability limit: got %g, want ~6", hi)
	}
}

func TestStabilityRangeAlwaysStable(t *testing.T) {
	// K/(s+1): stable for all positive K.
	report, err := StabilityRange([]float64{1}, []float64{1, 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Intervals) != 1 {
		t.Fatalf("expected one interval, got %d", len(report.Intervals))
	}
	if !math.IsInf(float64(report.Intervals[0].Max), 1) {
		t.Errorf("expected unbounded interval, got max %g", float64(report.Intervals[0].Max))
	}
}

func TestRootLocusThirdOrder(t *testing.T) {
	poles := []complex128{0, -1, -2}
	report, err := RootLocus(nil, poles)
	if err != nil {
		t.Fatal(err)
	}

	if len(report.Branches) != 3 {
		t.Fatalf("expected 3 branches, got %d", len(report.Branches))
	}

	asym := report.Asymptotes
	if asym == nil {
		t.Fatal("expected asymptote data")
	}
	if math.Abs(float64(asym.Centroid)+1) > 1e-9 {
		t.Errorf("centroid: got %g, want -1", float64(asym.Centroid))
	}
	wantAngles := []float64{60, 180, 300}
	for i, a := range asym.Angles {
		if math.Abs(float64(a)-wantAngles[i]) > 1e-9 {
			t.Errorf("angle %d: got %g, want %g", i, float64(a), wantAngles[i])
		}
	}

	// Breakaway between 0 and -1 at s ~ -0.423.
	found := false
	for _, bp := range report.BreakawayPoints {
		if math.Abs(float64(bp.X)+0.423) < 0.01 && math.Abs(float64(bp.Y)) < 1e-6 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected breakaway near -0.423, got %v", report.BreakawayPoints)
	}

	// Imaginary axis crossings at w = +/- sqrt(2) with K ~ 6.
	if len(report.ImagAxisCrossings) < 2 {
		t.Fatalf("expected crossings, got %d", len(report.ImagAxisCrossings))
	}
	for _, c := range report.ImagAxisCrossings {
		if math.Abs(math.Abs(float64(c.Y))-math.Sqrt2) > 0.05 {
			t.Errorf("crossing frequency: got %g, want +/-%g", float64(c.Y), math.Sqrt2)
		}
		if math.Abs(float64(c.K)-6) > 0.3 {
			t.Errorf("crossing gain: got %g, want ~6", float64(c.K))
		}
	}
}

func TestRootLocusNoAsymptotesWhenBalanced(t *testing.T) {
	report, err := RootLocus([]complex128{-3}, []complex128{-1})
	if err != nil {
		t.Fatal(err)
	}
	if report.Asymptotes != nil {
		t.Error("no asymptotes expected when pole and zero counts match")
	}
}

func TestRootLocusRequiresPoles(t *testing.T) {
	if _, err := RootLocus(nil, nil); err == nil {
		t.Error("expected error without poles")
	}
}

func TestRealAxisSegments(t *testing.T) {
	// Poles at 0, -1, -2: the segment between -1 and 0 has one critical
	// point to its right and belongs to the locus.
	segs := realAxisSegments(nil, []complex128{0, -1, -2})
	found := false
	for _, s := range segs {
		if s[0] == -1 && s[1] == 0 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected segment [-1,0], got %v", segs)
	}
}

func TestAnalyzeFreqDomain(t *testing.T) {
	// 2/((s+1)(s+10)).
	zeros := []complex128{}
	poles := []complex128{-1, -10}
	report, err := AnalyzeFreqDomain(zeros, poles, 2)
	if err != nil {
		t.Fatal(err)
	}

	if len(report.Bode.Omega) != 1000 {
		t.Errorf("expected 1000 sweep points, got %d", len(report.Bode.Omega))
	}
	if got := float64(report.DCGain); math.Abs(got-0.2) > 1e-12 {
		t.Errorf("dc gain: got %g, want 0.2", got)
	}

	corners := report.Bode.CornerFrequencies
	if len(corners) != 2 || float64(corners[0]) != 1 || float64(corners[1]) != 10 {
		t.Errorf("corner frequencies: got %v, want [1 10]", corners)
	}

	if report.Nyquist.Asymptote.Type != "none" {
		t.Errorf("no origin pole: asymptote type got %s, want none", report.Nyquist.Asymptote.Type)
	}

	// No phase crossover for a two-pole minimum phase system.
	if !math.IsNaN(float64(report.StabilityMargins.GainMarginDB)) {
		t.Errorf("gain margin should be NaN, got %g", float64(report.StabilityMargins.GainMarginDB))
	}
}

func TestNyquistAsymptoteTypeOne(t *testing.T) {
	// 1/(s(s+1)): G(jw) -> -1 + K/jw, vertical line at Re = -1.
	report, err := AnalyzeFreqDomain(nil, []complex128{0, -1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	asym := report.Nyquist.Asymptote
	if asym.Type != "vertical_line" {
		t.Fatalf("asymptote type: got %s, want vertical_line", asym.Type)
	}
	v, ok := asym.Value.(jsonx.Float)
	if !ok {
		t.Fatalf("asymptote value: got %T", asym.Value)
	}
	if math.Abs(float64(v)+1) > 1e-9 {
		t.Errorf("vertical line: got %g, want -1", float64(v))
	}
}

func TestBodeAsymptoteInitialSlope(t *testing.T) {
	sys := mustTF(t, []float64{1}, []float64{1, 1, 0})
	omega := lti.LogSpace(-2, 2, 100)
	asymW, asymDB := bodeAsymptotes(sys, omega)
	if len(asymW) < 2 {
		t.Fatal("expected asymptote polyline")
	}
	// One pole at the origin: -20 dB/decade below the first corner.
	slope := (asymDB[1] - asymDB[0]) / math.Log10(asymW[1]/asymW[0])
	if math.Abs(slope+20) > 1e-6 {
		t.Errorf("initial slope: got %g, want -20", slope)
	}
}

func TestPhasePortraitStableFocus(t *testing.T) {
	// 1/(s^2+2s+5): poles -1 +/- 2j.
	sys := mustTF(t, []float64{1}, []float64{1, 2, 5})
	report, err := PhasePortrait(sys)
	if err != nil {
		t.Fatal(err)
	}

	// 9x9 grid minus the origin.
	if len(report.Trajectories) != 80 {
		t.Errorf("expected 80 trajectories, got %d", len(report.Trajectories))
	}
	if report.Equilibrium.Type != "Stable Focus (Spiral)" {
		t.Errorf("equilibrium: got %s", report.Equilibrium.Type)
	}

	// Trajectories of a stable system decay toward the origin.
	tr := report.Trajectories[0]
	first := math.Hypot(float64(tr.X[0]), float64(tr.Y[0]))
	last := math.Hypot(float64(tr.X[len(tr.X)-1]), float64(tr.Y[len(tr.Y)-1]))
	if last > first {
		t.Errorf("trajectory should contract: start %g, end %g", first, last)
	}
}

func TestPhasePortraitRejectsImproper(t *testing.T) {
	sys := lti.TF{Num: lti.Poly{1, 0, 0}, Den: lti.Poly{1, 1}}
	if _, err := PhasePortrait(sys); err == nil {
		t.Error("expected error for improper system")
	}
}

func TestClassifyEquilibrium(t *testing.T) {
	tests := []struct {
		name  string
		poles []complex128
		want  string
	}{
		{"stable focus", []complex128{complex(-1, 2), complex(-1, -2)}, "Stable Focus (Spiral)"},
		{"unstable focus", []complex128{complex(1, 2), complex(1, -2)}, "Unstable Focus (Spiral)"},
		{"center", []complex128{complex(0, 2), complex(0, -2)}, "Center"},
		{"stable node", []complex128{-1, -2}, "Stable Node"},
		{"saddle", []complex128{1, -2}, "Saddle Point"},
		{"unstable node", []complex128{1, 2}, "Unstable Node"},
		{"first order", []complex128{-1}, "Stable (1st Order)"},
		{"integrator", []complex128{0, -1}, "Marginally Stable (Integrator)"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyEquilibrium(tc.poles); got != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}
