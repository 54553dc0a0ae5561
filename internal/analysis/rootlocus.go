package analysis

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"github.com/san-kum/ctrlab/internal/jsonx"
	"github.com/san-kum/ctrlab/internal/lti"
)

// Gain grid density is the accuracy knob for branch continuity and the
// interpolated imaginary-axis crossings.
const (
	locusGainLo      = -2
	locusGainHi      = 5
	locusGainSamples = 15000

	// Roots this close to the real axis are snapped onto it.
	realSnapTol = 1e-3
)

// LocusBranch is one continuous root trajectory with its gain parameter.
type LocusBranch struct {
	X []jsonx.Float `json:"x"`
	Y []jsonx.Float `json:"y"`
	K []jsonx.Float `json:"k"`
}

// LocusPoint is a point in the s-plane.
type LocusPoint struct {
	X jsonx.Float `json:"x"`
	Y jsonx.Float `json:"y"`
}

// AsymptoteData describes the locus asymptotes for excess poles.
type AsymptoteData struct {
	Centroid jsonx.Float   `json:"centroid"`
	Angles   []jsonx.Float `json:"angles"`
}

// AxisCrossing is a point where a branch crosses the imaginary axis.
type AxisCrossing struct {
	X jsonx.Float `json:"x"`
	Y jsonx.Float `json:"y"`
	K jsonx.Float `json:"k"`
}

// RootLocusReport is the root-locus analysis response.
type RootLocusReport struct {
	Message           string         `json:"message"`
	Branches          []LocusBranch  `json:"branches"`
	Zeros             []LocusPoint   `json:"zeros"`
	Poles             []LocusPoint   `json:"poles"`
	Asymptotes        *AsymptoteData `json:"asymptotes"`
	BreakawayPoints   []LocusPoint   `json:"breakaway_points"`
	ImagAxisCrossings []AxisCrossing `json:"imag_axis_crossings"`
}

// RootLocus traces the closed-loop pole trajectories of the open loop
// K*N(s)/D(s) as K sweeps a log-spaced gain vector, and derives the
// classical locus geometry: asymptotes, breakaway points, and
// imaginary-axis crossings.
func RootLocus(zeros, poles []complex128) (*RootLocusReport, error) {
	if len(poles) == 0 {
		return nil, fmt.Errorf("root locus requires at least one pole")
	}

	num := lti.FromRoots(zeros)
	den := lti.FromRoots(poles)

	kvect := lti.LogSpace(locusGainLo, locusGainHi, locusGainSamples)
	trajectories := traceBranches(num, den, kvect, len(poles))

	branches := make([]LocusBranch, len(trajectories))
	for i, tr := range trajectories {
		b := LocusBranch{
			X: make([]jsonx.Float, len(tr)),
			Y: make([]jsonx.Float, len(tr)),
			K: jsonx.Slice(kvect),
		}
		for j, r := range tr {
			if math.Abs(imag(r)) < realSnapTol {
				r = complex(real(r), 0)
			}
			b.X[j] = jsonx.Float(real(r))
			b.Y[j] = jsonx.Float(imag(r))
		}
		branches[i] = b
	}

	report := &RootLocusReport{
		Message:           "Root locus data calculated successfully",
		Branches:          branches,
		Zeros:             toPoints(zeros),
		Poles:             toPoints(poles),
		Asymptotes:        asymptotes(zeros, poles),
		BreakawayPoints:   breakawayPoints(num, den, zeros, poles),
		ImagAxisCrossings: imagAxisCrossings(trajectories, kvect),
	}
	return report, nil
}

// traceBranches computes closed-loop roots for each gain and orders them
// into continuous branches by nearest-neighbor continuation from the
// previous gain step.
func traceBranches(num, den lti.Poly, kvect []float64, n int) [][]complex128 {
	out := make([][]complex128, n)
	for i := range out {
		out[i] = make([]complex128, len(kvect))
	}

	prev := make([]complex128, 0, n)
	for step, k := range kvect {
		chr := den.Add(num.Scale(k))
		roots := chr.Roots()
		// Root count can drop if the leading coefficient cancels; pad by
		// repeating the last root so branch shapes stay rectangular.
		for len(roots) < n && len(roots) > 0 {
			roots = append(roots, roots[len(roots)-1])
		}
		if len(roots) == 0 {
			continue
		}

		if step == 0 || len(prev) == 0 {
			sort.Slice(roots, func(i, j int) bool {
				if real(roots[i]) != real(roots[j]) {
					return real(roots[i]) < real(roots[j])
				}
				return imag(roots[i]) < imag(roots[j])
			})
			for i := 0; i < n; i++ {
				out[i][step] = roots[i]
			}
			prev = append(prev[:0], roots[:n]...)
			continue
		}

		assigned := make([]bool, n)
		next := make([]complex128, n)
		for i := 0; i < n; i++ {
			best, bestDist := -1, math.Inf(1)
			for j := 0; j < n && j < len(roots); j++ {
				if assigned[j] {
					continue
				}
				d := cmplx.Abs(roots[j] - prev[i])
				if d < bestDist {
					best, bestDist = j, d
				}
			}
			if best >= 0 {
				assigned[best] = true
				next[i] = roots[best]
			} else {
				next[i] = prev[i]
			}
		}
		for i := 0; i < n; i++ {
			out[i][step] = next[i]
		}
		prev = append(prev[:0], next...)
	}
	return out
}

func toPoints(rs []complex128) []LocusPoint {
	out := make([]LocusPoint, len(rs))
	for i, r := range rs {
		out[i] = LocusPoint{X: jsonx.Float(real(r)), Y: jsonx.Float(imag(r))}
	}
	return out
}

func asymptotes(zeros, poles []complex128) *AsymptoteData {
	n, m := len(poles), len(zeros)
	if n <= m {
		return nil
	}
	var sum complex128
	for _, p := range poles {
		sum += p
	}
	for _, z := range zeros {
		sum -= z
	}
	count := n - m
	centroid := real(sum) / float64(count)
	angles := make([]jsonx.Float, count)
	for q := 0; q < count; q++ {
		angles[q] = jsonx.Float(float64(2*q+1) * 180 / float64(count))
	}
	return &AsymptoteData{Centroid: jsonx.Float(centroid), Angles: angles}
}

// breakawayPoints solves d/ds[D(s)+K N(s)]=0 via the roots of D*N' - N*D'
// and keeps candidates with real positive gain that satisfy the angle
// condition; real candidates must additionally lie on a real-axis locus
// segment.
func breakawayPoints(num, den lti.Poly, zeros, poles []complex128) []LocusPoint {
	eq := den.Mul(num.Derivative()).Sub(num.Mul(den.Derivative()))
	candidates := eq.Roots()
	segments := realAxisSegments(zeros, poles)

	seen := make(map[[2]float64]bool)
	var out []LocusPoint
	for _, pt := range candidates {
		nv := num.Eval(pt)
		if cmplx.Abs(nv) < 1e-12 {
			continue
		}
		k := -den.Eval(pt) / nv
		if math.Abs(imag(k)) > 1e-5 || real(k) <= 0 {
			continue
		}
		gh := num.Eval(pt) / den.Eval(pt)
		if !meetsAngleCondition(gh) {
			continue
		}
		if math.Abs(imag(pt)) < 1e-5 {
			onLocus := false
			for _, seg := range segments {
				if real(pt) >= seg[0] && real(pt) <= seg[1] {
					onLocus = true
					break
				}
			}
			if !onLocus {
				continue
			}
		}
		key := [2]float64{roundTo(real(pt), 5), roundTo(imag(pt), 5)}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, LocusPoint{X: jsonx.Float(real(pt)), Y: jsonx.Float(imag(pt))})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Y < out[j].Y
	})
	return out
}

// meetsAngleCondition checks phase(GH) against odd multiples of 180 deg
// within a 5 degree tolerance.
func meetsAngleCondition(gh complex128) bool {
	phase := cmplx.Phase(gh) * 180 / math.Pi
	for q := -2; q <= 2; q++ {
		diff := math.Mod(math.Abs(phase-float64(2*q+1)*180), 360)
		if diff < 5 || diff > 355 {
			return true
		}
	}
	return false
}

// realAxisSegments returns [lo,hi] intervals of the real axis belonging to
// the locus: points with an odd count of real poles/zeros to their right.
func realAxisSegments(zeros, poles []complex128) [][2]float64 {
	var pts []float64
	for _, p := range poles {
		if math.Abs(imag(p)) < 1e-5 {
			pts = append(pts, real(p))
		}
	}
	for _, z := range zeros {
		if math.Abs(imag(z)) < 1e-5 {
			pts = append(pts, real(z))
		}
	}
	sort.Float64s(pts)
	if len(pts) == 0 {
		return nil
	}

	countRight := func(x float64) int {
		c := 0
		for _, p := range pts {
			if p > x {
				c++
			}
		}
		return c
	}

	var segs [][2]float64
	for i := 0; i+1 < len(pts); i++ {
		mid := (pts[i] + pts[i+1]) / 2
		if countRight(mid)%2 == 1 {
			segs = append(segs, [2]float64{pts[i], pts[i+1]})
		}
	}
	if countRight(pts[len(pts)-1]+1)%2 == 1 {
		segs = append(segs, [2]float64{pts[len(pts)-1], math.Inf(1)})
	}
	return segs
}

// imagAxisCrossings detects branch crossings of the imaginary axis by sign
// changes of the real part between consecutive gain samples, interpolating
// both the crossing frequency and gain.
func imagAxisCrossings(branches [][]complex128, kvect []float64) []AxisCrossing {
	seen := make(map[[2]float64]bool)
	var out []AxisCrossing
	for _, br := range branches {
		for i := 0; i+1 < len(br); i++ {
			a, b := real(br[i]), real(br[i+1])
			if a == 0 && b == 0 {
				continue
			}
			if a*b > 0 {
				continue
			}
			r := a / (a - b)
			w := imag(br[i]) + r*(imag(br[i+1])-imag(br[i]))
			k := kvect[i] + r*(kvect[i+1]-kvect[i])
			if math.Abs(w) < 1e-6 {
				continue
			}
			key := [2]float64{roundTo(w, 5), roundTo(k, 5)}
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, AxisCrossing{X: 0, Y: jsonx.Float(w), K: jsonx.Float(k)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Y < out[j].Y })
	return out
}
