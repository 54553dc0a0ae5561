// Package lti implements linear time-invariant system evaluation over
// rational transfer functions: pole/zero extraction, frequency response,
// stability margins, step simulation, and series/feedback composition.
package lti

import (
	"fmt"
	"math"
	"math/cmplx"
)

// TF is a rational transfer function in the Laplace variable s, stored as
// numerator and denominator coefficients, highest degree first. Values are
// immutable; composition returns fresh TFs.
type TF struct {
	Num Poly
	Den Poly
}

// New validates and constructs a transfer function. The denominator must be
// non-empty with a non-zero leading coefficient.
func New(num, den []float64) (TF, error) {
	if len(den) == 0 {
		return TF{}, fmt.Errorf("denominator must not be empty")
	}
	if len(num) == 0 {
		num = []float64{0}
	}
	for _, c := range num {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return TF{}, fmt.Errorf("numerator coefficients must be finite")
		}
	}
	for _, c := range den {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return TF{}, fmt.Errorf("denominator coefficients must be finite")
		}
	}
	if math.Abs(den[0]) < Tol {
		return TF{}, fmt.Errorf("denominator must have a non-zero leading coefficient")
	}
	return TF{Num: Poly(num).Trim().Clone(), Den: Poly(den).Clone()}, nil
}

// Unity is the identity transfer function 1/1.
func Unity() TF {
	return TF{Num: Poly{1}, Den: Poly{1}}
}

func (t TF) Poles() []complex128 { return t.Den.Roots() }
func (t TF) Zeros() []complex128 { return t.Num.Roots() }

// Proper reports whether the numerator degree does not exceed the
// denominator degree.
func (t TF) Proper() bool {
	return t.Num.Degree() <= t.Den.Degree()
}

// Eval evaluates the transfer function at a complex frequency.
func (t TF) Eval(s complex128) complex128 {
	return t.Num.Eval(s) / t.Den.Eval(s)
}

// Series returns t followed by other in cascade.
func (t TF) Series(other TF) TF {
	return TF{
		Num: t.Num.Mul(other.Num).Trim(),
		Den: t.Den.Mul(other.Den).Trim(),
	}
}

// Feedback closes a unity negative feedback loop around t.
func (t TF) Feedback() TF {
	return TF{
		Num: t.Num.Clone(),
		Den: t.Den.Add(t.Num).Trim(),
	}
}

// Gain returns k*t.
func (t TF) Gain(k float64) TF {
	return TF{Num: t.Num.Scale(k), Den: t.Den.Clone()}
}

// FreqResp evaluates the response at each frequency in omega (rad/s).
func (t TF) FreqResp(omega []float64) []complex128 {
	out := make([]complex128, len(omega))
	for i, w := range omega {
		out[i] = t.Eval(complex(0, w))
	}
	return out
}

// Bode returns magnitude (absolute) and phase (radians, unwrapped) over the
// given frequencies.
func (t TF) Bode(omega []float64) (mag, phase []float64) {
	resp := t.FreqResp(omega)
	mag = make([]float64, len(resp))
	phase = make([]float64, len(resp))
	for i, h := range resp {
		mag[i] = cmplx.Abs(h)
		phase[i] = cmplx.Phase(h)
	}
	unwrap(phase)
	return mag, phase
}

// unwrap removes 2*pi jumps from a phase sequence in place. Non-finite
// entries are passed over without disturbing the accumulated offset.
func unwrap(phase []float64) {
	offset := 0.0
	prev := math.NaN()
	for i, p := range phase {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			continue
		}
		if !math.IsNaN(prev) {
			d := p + offset - prev
			for d > math.Pi {
				offset -= 2 * math.Pi
				d -= 2 * math.Pi
			}
			for d < -math.Pi {
				offset += 2 * math.Pi
				d += 2 * math.Pi
			}
		}
		phase[i] = p + offset
		prev = phase[i]
	}
}

// LogSpace returns n log-uniformly spaced values from 10^lo to 10^hi,
// inclusive of both endpoints.
func LogSpace(lo, hi float64, n int) []float64 {
	if n < 2 {
		return []float64{math.Pow(10, lo)}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = math.Pow(10, lo+float64(i)*step)
	}
	return out
}

// LinSpace returns n uniformly spaced values from lo to hi inclusive.
func LinSpace(lo, hi float64, n int) []float64 {
	if n < 2 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}
