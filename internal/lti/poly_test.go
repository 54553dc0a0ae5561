package lti

import (
	"math"
	"math/cmplx"
	"sort"
	"testing"
)

func TestPolyRootsReal(t *testing.T) {
	// s^2 + 3s + 2 = (s+1)(s+2)
	roots := Poly{1, 3, 2}.Roots()
	if len(roots) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(roots))
	}

	sort.Slice(roots, func(i, j int) bool { return real(roots[i]) < real(roots[j]) })
	if math.Abs(real(roots[0])+2) > 1e-9 || math.Abs(imag(roots[0])) > 1e-9 {
		t.Errorf("expected root -2, got %v", roots[0])
	}
	if math.Abs(real(roots[1])+1) > 1e-9 || math.Abs(imag(roots[1])) > 1e-9 {
		t.Errorf("expected root -1, got %v", roots[1])
	}
}

func TestPolyRootsComplex(t *testing.T) {
	// s^2 + 2s + 5 has roots -1 +/- 2j
	roots := Poly{1, 2, 5}.Roots()
	if len(roots) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(roots))
	}
	for _, r := range roots {
		if math.Abs(real(r)+1) > 1e-9 {
			t.Errorf("expected real part -1, got %v", r)
		}
		if math.Abs(math.Abs(imag(r))-2) > 1e-9 {
			t.Errorf("expected imag part +/-2, got %v", r)
		}
	}
}

func TestPolyRootsConstant(t *testing.T) {
	roots := Poly{5}.Roots()
	if len(roots) != 0 {
		t.Errorf("constant polynomial should have no roots, got %v", roots)
	}
}

func TestPolyEval(t *testing.T) {
	p := Poly{1, 0, -4} // s^2 - 4
	tests := []struct {
		s    complex128
		want complex128
	}{
		{complex(2, 0), 0},
		{complex(-2, 0), 0},
		{complex(0, 0), -4},
		{complex(0, 2), -8},
	}
	for _, tc := range tests {
		got := p.Eval(tc.s)
		if cmplx.Abs(got-tc.want) > 1e-12 {
			t.Errorf("Eval(%v) = %v, want %v", tc.s, got, tc.want)
		}
	}
}

func TestPolyMul(t *testing.T) {
	// (s+1)(s+2) = s^2 + 3s + 2
	got := Poly{1, 1}.Mul(Poly{1, 2})
	want := Poly{1, 3, 2}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("coefficient %d: got %g, want %g", i, got[i], want[i])
		}
	}
}

func TestPolyAddPadding(t *testing.T) {
	// (s^2 + 1) + (s) = s^2 + s + 1
	got := Poly{1, 0, 1}.Add(Poly{1, 0})
	want := Poly{1, 1, 1}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("coefficient %d: got %g, want %g", i, got[i], want[i])
		}
	}
}

func TestPolyDerivative(t *testing.T) {
	// d/ds (s^3 + 2s^2 + 3s + 4) = 3s^2 + 4s + 3
	got := Poly{1, 2, 3, 4}.Derivative()
	want := Poly{3, 4, 3}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("coefficient %d: got %g, want %g", i, got[i], want[i])
		}
	}
}

func TestPolyTrim(t *testing.T) {
	got := Poly{0, 0, 1, 2}.Trim()
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("expected [1 2], got %v", got)
	}

	got = Poly{0, 0}.Trim()
	if len(got) != 1 || got[0] != 0 {
		t.Errorf("all-zero trim should keep one coefficient, got %v", got)
	}
}

func TestFromRootsRoundTrip(t *testing.T) {
	roots := []complex128{complex(-1, 0), complex(-2, 3), complex(-2, -3)}
	p := FromRoots(roots)
	for _, r := range roots {
		if cmplx.Abs(p.Eval(r)) > 1e-9 {
			t.Errorf("polynomial should vanish at %v, got %v", r, p.Eval(r))
		}
	}
}

func TestClose(t *testing.T) {
	tests := []struct {
		a, b float64
		want bool
	}{
		{1.0, 1.0, true},
		{1.0, 1.0 + 1e-9, true},
		{0.0, 1e-9, true},
		{1.0, 1.1, false},
		{0.0, 1e-6, false},
	}
	for _, tc := range tests {
		if got := Close(tc.a, tc.b); got != tc.want {
			t.Errorf("Close(%g, %g) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}
