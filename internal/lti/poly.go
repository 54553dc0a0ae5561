package lti

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Tol is the tolerance used for all effectively-zero and effectively-real
// comparisons in this package.
const Tol = 1e-9

// Close reports approximate equality with the absolute/relative tolerances
// commonly used for coefficient comparisons (atol 1e-8, rtol 1e-5).
func Close(a, b float64) bool {
	return math.Abs(a-b) <= 1e-8+1e-5*math.Abs(b)
}

// Poly holds real polynomial coefficients, highest degree first.
type Poly []float64

func (p Poly) Clone() Poly {
	c := make(Poly, len(p))
	copy(c, p)
	return c
}

func (p Poly) Degree() int {
	return len(p.Trim()) - 1
}

// Trim drops leading coefficients that are effectively zero, keeping at
// least one coefficient.
func (p Poly) Trim() Poly {
	i := 0
	for i < len(p)-1 && math.Abs(p[i]) < Tol {
		i++
	}
	return p[i:]
}

func (p Poly) Scale(k float64) Poly {
	out := make(Poly, len(p))
	for i, c := range p {
		out[i] = k * c
	}
	return out
}

// Add returns p+q, aligning the low-order ends.
func (p Poly) Add(q Poly) Poly {
	n := len(p)
	if len(q) > n {
		n = len(q)
	}
	out := make(Poly, n)
	for i := 0; i < len(p); i++ {
		out[n-len(p)+i] += p[i]
	}
	for i := 0; i < len(q); i++ {
		out[n-len(q)+i] += q[i]
	}
	return out
}

func (p Poly) Sub(q Poly) Poly {
	return p.Add(q.Scale(-1))
}

// Mul returns the product polynomial (discrete convolution).
func (p Poly) Mul(q Poly) Poly {
	if len(p) == 0 || len(q) == 0 {
		return Poly{}
	}
	out := make(Poly, len(p)+len(q)-1)
	for i, a := range p {
		for j, b := range q {
			out[i+j] += a * b
		}
	}
	return out
}

// Derivative returns d/ds of p.
func (p Poly) Derivative() Poly {
	t := p.Trim()
	if len(t) <= 1 {
		return Poly{0}
	}
	out := make(Poly, len(t)-1)
	n := len(t) - 1
	for i := 0; i < n; i++ {
		out[i] = t[i] * float64(n-i)
	}
	return out
}

// Eval evaluates p at a complex point by Horner's rule.
func (p Poly) Eval(s complex128) complex128 {
	var acc complex128
	for _, c := range p {
		acc = acc*s + complex(c, 0)
	}
	return acc
}

// Roots returns the complex roots of p as the eigenvalues of its companion
// matrix. A constant polynomial has no roots.
func (p Poly) Roots() []complex128 {
	t := p.Trim()
	n := len(t) - 1
	if n < 1 {
		return nil
	}
	if n == 1 {
		return []complex128{complex(-t[1]/t[0], 0)}
	}

	// Monic normalization, then the standard first-row companion matrix.
	c := mat.NewDense(n, n, nil)
	for j := 1; j <= n; j++ {
		c.Set(0, j-1, -t[j]/t[0])
	}
	for i := 1; i < n; i++ {
		c.Set(i, i-1, 1)
	}

	var eig mat.Eigen
	if ok := eig.Factorize(c, mat.EigenNone); !ok {
		return nil
	}
	return eig.Values(nil)
}

// FromRoots builds the monic polynomial with the given roots, discarding
// residual imaginary parts (roots are expected in conjugate pairs).
func FromRoots(roots []complex128) Poly {
	acc := []complex128{1}
	for _, r := range roots {
		next := make([]complex128, len(acc)+1)
		for i, c := range acc {
			next[i] += c
			next[i+1] -= c * r
		}
		acc = next
	}
	out := make(Poly, len(acc))
	for i, c := range acc {
		out[i] = real(c)
	}
	return out
}
