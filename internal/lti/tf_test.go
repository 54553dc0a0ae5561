package lti

import (
	"math"
	"math/cmplx"
	"testing"
)

func TestNewValidation(t *testing.T) {
	if _, err := New([]float64{1}, nil); err == nil {
		t.Error("expected error for empty denominator")
	}
	if _, err := New([]float64{1}, []float64{0, 1}); err == nil {
		t.Error("expected error for zero leading denominator coefficient")
	}
	if _, err := New([]float64{math.NaN()}, []float64{1, 1}); err == nil {
		t.Error("expected error for non-finite coefficient")
	}
	if _, err := New([]float64{1}, []float64{1, 1}); err != nil {
		t.Errorf("valid system rejected: %v", err)
	}
}

func TestFeedback(t *testing.T) {
	// 1/(s+1) under unity feedback is 1/(s+2).
	sys, err := New([]float64{1}, []float64{1, 1})
	if err != nil {
		t.Fatal(err)
	}
	cl := sys.Feedback()
	got := cl.Eval(complex(0, 0))
	if cmplx.Abs(got-complex(0.5, 0)) > 1e-12 {
		t.Errorf("closed-loop DC gain: got %v, want 0.5", got)
	}
}

func TestSeries(t *testing.T) {
	a, _ := New([]float64{1}, []float64{1, 1})
	b, _ := New([]float64{2}, []float64{1, 3})
	c := a.Series(b)
	// 2 / ((s+1)(s+3)); DC gain 2/3.
	got := c.Eval(complex(0, 0))
	if cmplx.Abs(got-complex(2.0/3.0, 0)) > 1e-12 {
		t.Errorf("series DC gain: got %v, want 2/3", got)
	}
}

func TestBodeMagnitude(t *testing.T) {
	// |1/(jw+1)| at w=1 is 1/sqrt(2).
	sys, _ := New([]float64{1}, []float64{1, 1})
	mag, phase := sys.Bode([]float64{1})
	if math.Abs(mag[0]-1/math.Sqrt2) > 1e-12 {
		t.Errorf("magnitude at w=1: got %g, want %g", mag[0], 1/math.Sqrt2)
	}
	if math.Abs(phase[0]+math.Pi/4) > 1e-12 {
		t.Errorf("phase at w=1: got %g, want %g", phase[0], -math.Pi/4)
	}
}

func TestMarginsTypeOneSecondOrder(t *testing.T) {
	// 1/(s(s+1)): pm ~ 51.83 deg at w ~ 0.786, no phase crossover.
	sys, err := New([]float64{1}, []float64{1, 1, 0})
	if err != nil {
		t.Fatal(err)
	}
	m := sys.Margins()

	if math.Abs(m.PhaseMargin-51.83) > 0.2 {
		t.Errorf("phase margin: got %g, want ~51.83", m.PhaseMargin)
	}
	if math.Abs(m.GainCrossW-0.786) > 0.01 {
		t.Errorf("gain crossover: got %g, want ~0.786", m.GainCrossW)
	}
	if !math.IsInf(m.GainMargin, 1) {
		t.Errorf("gain margin should be +Inf, got %g", m.GainMargin)
	}
	if !math.IsNaN(m.PhaseCrossW) {
		t.Errorf("phase crossover should be NaN, got %g", m.PhaseCrossW)
	}
}

func TestMarginsThirdOrder(t *testing.T) {
	// 1/(s(s+1)(s+2)): gain margin 6 (linear) at w = sqrt(2).
	sys, err := New([]float64{1}, []float64{1, 3, 2, 0})
	if err != nil {
		t.Fatal(err)
	}
	m := sys.Margins()

	if math.Abs(m.GainMargin-6) > 0.05 {
		t.Errorf("gain margin: got %g, want ~6", m.GainMargin)
	}
	if math.Abs(m.PhaseCrossW-math.Sqrt2) > 0.01 {
		t.Errorf("phase crossover: got %g, want ~%g", m.PhaseCrossW, math.Sqrt2)
	}
	if m.PhaseMargin < 50 || m.PhaseMargin > 57 {
		t.Errorf("phase margin: got %g, want ~53", m.PhaseMargin)
	}
}

func TestStateSpaceStepResponse(t *testing.T) {
	// First order lag 1/(s+1): step response 1 - e^{-t}.
	sys, err := New([]float64{1}, []float64{1, 1})
	if err != nil {
		t.Fatal(err)
	}
	times, resp, err := sys.StepResponse()
	if err != nil {
		t.Fatal(err)
	}
	if len(times) != len(resp) {
		t.Fatalf("times and response length mismatch: %d vs %d", len(times), len(resp))
	}
	for i := 0; i < len(times); i += 50 {
		want := 1 - math.Exp(-times[i])
		if math.Abs(resp[i]-want) > 1e-4 {
			t.Errorf("step at t=%g: got %g, want %g", times[i], resp[i], want)
		}
	}
	final := resp[len(resp)-1]
	if math.Abs(final-1) > 0.01 {
		t.Errorf("final value: got %g, want ~1", final)
	}
}

func TestStepResponseSecondOrder(t *testing.T) {
	// 1/(s^2+s+1): underdamped, settles near DC gain 1 with overshoot.
	sys, err := New([]float64{1}, []float64{1, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	_, resp, err := sys.StepResponse()
	if err != nil {
		t.Fatal(err)
	}
	peak := 0.0
	for _, y := range resp {
		if y > peak {
			peak = y
		}
	}
	if peak < 1.1 || peak > 1.3 {
		t.Errorf("underdamped peak: got %g, want ~1.16", peak)
	}
}

func TestStepResponsePureGain(t *testing.T) {
	sys, err := New([]float64{3}, []float64{2})
	if err != nil {
		t.Fatal(err)
	}
	_, resp, err := sys.StepResponse()
	if err != nil {
		t.Fatal(err)
	}
	for _, y := range resp {
		if math.Abs(y-1.5) > 1e-12 {
			t.Fatalf("pure gain step should be constant 1.5, got %g", y)
		}
	}
}

func TestStepHorizonCapped(t *testing.T) {
	// Very slow pole at -0.001 would want 5000s, capped at 100.
	sys, _ := New([]float64{1}, []float64{1, 0.001})
	if h := sys.StepHorizon(); h > 100+1e-9 {
		t.Errorf("horizon should be capped at 100, got %g", h)
	}
}

func TestLogSpace(t *testing.T) {
	w := LogSpace(-1, 1, 3)
	want := []float64{0.1, 1, 10}
	for i := range want {
		if math.Abs(w[i]-want[i]) > 1e-12 {
			t.Errorf("LogSpace[%d] = %g, want %g", i, w[i], want[i])
		}
	}
}
