package lti

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// StateSpace is a single-input single-output realization
// xdot = A x + B u, y = C x + D u.
type StateSpace struct {
	A *mat.Dense
	B *mat.VecDense
	C *mat.VecDense
	D float64
}

// StateSpace converts the transfer function to controllable canonical form.
// The transfer function must be proper.
func (t TF) StateSpace() (StateSpace, error) {
	if !t.Proper() {
		return StateSpace{}, fmt.Errorf("numerator degree %d exceeds denominator degree %d", t.Num.Degree(), t.Den.Degree())
	}
	den := t.Den.Trim()
	n := len(den) - 1
	if n == 0 {
		return StateSpace{}, fmt.Errorf("static gain has no state")
	}

	// Monic denominator, numerator left-padded to the same length.
	a := make([]float64, n+1)
	for i, c := range den {
		a[i] = c / den[0]
	}
	b := make([]float64, n+1)
	num := t.Num.Trim()
	for i, c := range num {
		b[n+1-len(num)+i] = c / den[0]
	}

	ss := StateSpace{
		A: mat.NewDense(n, n, nil),
		B: mat.NewVecDense(n, nil),
		C: mat.NewVecDense(n, nil),
		D: b[0],
	}
	for i := 0; i < n-1; i++ {
		ss.A.Set(i, i+1, 1)
	}
	for j := 0; j < n; j++ {
		ss.A.Set(n-1, j, -a[n-j])
	}
	ss.B.SetVec(n-1, 1)
	for j := 0; j < n; j++ {
		ss.C.SetVec(j, b[n-j]-b[0]*a[n-j])
	}
	return ss, nil
}

// Order returns the state dimension.
func (s StateSpace) Order() int {
	r, _ := s.A.Dims()
	return r
}

// Output evaluates y = C x + D u.
func (s StateSpace) Output(x *mat.VecDense, u float64) float64 {
	return mat.Dot(s.C, x) + s.D*u
}

// Derivative computes xdot = A x + B u into dst.
func (s StateSpace) Derivative(dst, x *mat.VecDense, u float64) {
	dst.MulVec(s.A, x)
	dst.AddScaledVec(dst, u, s.B)
}

// rk4Step advances the state one fixed step under constant input u.
func (s StateSpace) rk4Step(x *mat.VecDense, u, dt float64) *mat.VecDense {
	n := s.Order()
	k1 := mat.NewVecDense(n, nil)
	k2 := mat.NewVecDense(n, nil)
	k3 := mat.NewVecDense(n, nil)
	k4 := mat.NewVecDense(n, nil)
	tmp := mat.NewVecDense(n, nil)

	s.Derivative(k1, x, u)
	tmp.AddScaledVec(x, dt/2, k1)
	s.Derivative(k2, tmp, u)
	tmp.AddScaledVec(x, dt/2, k2)
	s.Derivative(k3, tmp, u)
	tmp.AddScaledVec(x, dt, k3)
	s.Derivative(k4, tmp, u)

	out := mat.NewVecDense(n, nil)
	out.AddScaledVec(x, dt/6, k1)
	out.AddScaledVec(out, dt/3, k2)
	out.AddScaledVec(out, dt/3, k3)
	out.AddScaledVec(out, dt/6, k4)
	return out
}

const (
	stepSamples = 500
	maxHorizon  = 100.0
)

// StepHorizon estimates a simulation end time from the system poles: five
// time constants of the slowest pole with a non-zero real part, or five
// periods of the slowest oscillation for purely imaginary poles.
func (t TF) StepHorizon() float64 {
	var reals, imags []float64
	for _, p := range t.Poles() {
		if math.Abs(real(p)) > Tol {
			reals = append(reals, math.Abs(real(p)))
		} else if math.Abs(imag(p)) > Tol {
			imags = append(imags, math.Abs(imag(p)))
		}
	}
	if len(reals) > 0 {
		slowest := reals[0]
		for _, r := range reals[1:] {
			slowest = math.Min(slowest, r)
		}
		return math.Min(5/slowest, maxHorizon)
	}
	if len(imags) > 0 {
		slowest := imags[0]
		for _, w := range imags[1:] {
			slowest = math.Min(slowest, w)
		}
		return math.Min(5*2*math.Pi/slowest, maxHorizon)
	}
	return 20
}

// StepResponse simulates the unit step response of t with a fixed-step RK4
// integration over an automatically chosen horizon.
func (t TF) StepResponse() (times, response []float64, err error) {
	return t.StepResponseT(t.StepHorizon(), stepSamples)
}

// StepResponseT simulates the unit step response over [0, tFinal] with n
// samples.
func (t TF) StepResponseT(tFinal float64, n int) (times, response []float64, err error) {
	if t.Den.Degree() == 0 {
		// Pure gain: flat response.
		times = LinSpace(0, tFinal, n)
		g := t.Num.Trim()[0] / t.Den.Trim()[0]
		response = make([]float64, n)
		for i := range response {
			response[i] = g
		}
		return times, response, nil
	}

	ss, err := t.StateSpace()
	if err != nil {
		return nil, nil, err
	}
	times = LinSpace(0, tFinal, n)
	response = make([]float64, n)
	dt := times[1] - times[0]

	x := mat.NewVecDense(ss.Order(), nil)
	response[0] = ss.Output(x, 1)
	for i := 1; i < n; i++ {
		x = ss.rk4Step(x, 1, dt)
		response[i] = ss.Output(x, 1)
	}
	return times, response, nil
}

// DominantPoles returns the poles sorted by descending real part.
func (t TF) DominantPoles() []complex128 {
	poles := t.Poles()
	for i := 1; i < len(poles); i++ {
		for j := i; j > 0 && real(poles[j]) > real(poles[j-1]); j-- {
			poles[j], poles[j-1] = poles[j-1], poles[j]
		}
	}
	return poles
}

// IsEffectivelyReal reports whether z has negligible imaginary part.
func IsEffectivelyReal(z complex128) bool {
	return math.Abs(imag(z)) <= Tol*math.Max(1, cmplx.Abs(z))
}
