package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/ctrlab/internal/jsonx"
	"github.com/san-kum/ctrlab/internal/lti"
)

// routhEpsilon replaces a zero leading row element so the table can
// continue, standing in for the symbolic epsilon of the classical method.
const routhEpsilon = 1e-9

// RouthResult is the outcome of building a numeric Routh-Hurwitz table.
type RouthResult struct {
	Table        [][]jsonx.Float `json:"table"`
	FirstColumn  []jsonx.Float   `json:"first_column"`
	SignChanges  int             `json:"sign_changes"`
	Stable       bool            `json:"stable"`
	AuxiliaryRow bool            `json:"auxiliary_row"`
}

// RouthTable builds the Routh array for a characteristic polynomial
// (highest degree first) and counts first-column sign changes, which equal
// the number of right half-plane roots. An all-zero row (roots symmetric
// about the origin) is flagged rather than resolved with an auxiliary
// polynomial.
func RouthTable(coeffs []float64) (*RouthResult, error) {
	c := lti.Poly(coeffs).Trim()
	n := len(c)
	if n < 2 {
		return nil, fmt.Errorf("characteristic equation must have at least 2 coefficients")
	}
	cols := (n + 1) / 2

	table := make([][]float64, n)
	for i := range table {
		table[i] = make([]float64, cols)
	}
	for i := 0; i < n; i += 2 {
		table[0][i/2] = c[i]
	}
	for i := 1; i < n; i += 2 {
		table[1][(i-1)/2] = c[i]
	}

	aux := false
	for i := 2; i < n; i++ {
		if allZero(table[i-1]) {
			aux = true
			break
		}
		if math.Abs(table[i-1][0]) < lti.Tol {
			table[i-1][0] = routhEpsilon
		}
		for j := 0; j < cols-1; j++ {
			b1 := table[i-2][j]
			b2 := table[i-2][j+1]
			b3 := table[i-1][j]
			b4 := table[i-1][j+1]
			table[i][j] = (b3*b2 - b1*b4) / b3
		}
	}

	first := make([]float64, n)
	for i := range table {
		first[i] = table[i][0]
	}

	signChanges := 0
	prev := 0.0
	for _, v := range first {
		if math.Abs(v) < lti.Tol || math.IsNaN(v) {
			continue
		}
		if prev != 0 && v*prev < 0 {
			signChanges++
		}
		prev = v
	}

	res := &RouthResult{
		Table:        make([][]jsonx.Float, n),
		FirstColumn:  jsonx.Slice(first),
		SignChanges:  signChanges,
		Stable:       !aux && signChanges == 0,
		AuxiliaryRow: aux,
	}
	for i, row := range table {
		res.Table[i] = jsonx.Slice(row)
	}
	return res, nil
}

func allZero(row []float64) bool {
	for _, v := range row {
		if math.Abs(v) > lti.Tol {
			return false
		}
	}
	return true
}

// GainInterval is a range of loop gains over which the closed loop is
// stable. Max is +Inf for an unbounded interval.
type GainInterval struct {
	Min jsonx.Float `json:"min"`
	Max jsonx.Float `json:"max"`
}

// StabilityRangeReport is the response of the gain stability-range
// analysis.
type StabilityRangeReport struct {
	Message        string         `json:"message"`
	StabilityRange string         `json:"stability_range"`
	Intervals      []GainInterval `json:"intervals"`
}

const (
	gainScanLo      = -6
	gainScanHi      = 6
	gainScanSamples = 600
	bisectIters     = 60
)

// StabilityRange finds the ranges of a positive scalar gain K for which
// the unity feedback loop around K*N(s)/D(s) is stable, by scanning a log
// grid of gains with a Routh stability test at each and bisecting each
// boundary.
func StabilityRange(num, den []float64) (*StabilityRangeReport, error) {
	n := lti.Poly(num).Trim()
	d := lti.Poly(den).Trim()
	if len(d) < 2 {
		return nil, fmt.Errorf("characteristic equation must have at least 2 coefficients")
	}

	stableAt := func(k float64) bool {
		chr := d.Add(n.Scale(k))
		res, err := RouthTable(chr)
		if err != nil {
			return false
		}
		return res.Stable
	}

	kvect := lti.LogSpace(gainScanLo, gainScanHi, gainScanSamples)
	flags := make([]bool, len(kvect))
	for i, k := range kvect {
		flags[i] = stableAt(k)
	}

	var intervals []GainInterval
	i := 0
	for i < len(kvect) {
		if !flags[i] {
			i++
			continue
		}
		j := i
		for j+1 < len(kvect) && flags[j+1] {
			j++
		}
		lo := kvect[i]
		if i > 0 {
			lo = bisectBoundary(kvect[i-1], kvect[i], stableAt)
		}
		hi := math.Inf(1)
		if j+1 < len(kvect) {
			hi = bisectBoundary(kvect[j+1], kvect[j], stableAt)
		}
		intervals = append(intervals, GainInterval{Min: jsonx.Float(lo), Max: jsonx.Float(hi)})
		i = j + 1
	}

	if len(intervals) == 0 {
		return &StabilityRangeReport{
			Message:        "No stable region found for K. System is unstable for all K.",
			StabilityRange: "No stable region",
		}, nil
	}

	var parts []string
	for _, iv := range intervals {
		if math.IsInf(float64(iv.Max), 1) {
			parts = append(parts, fmt.Sprintf("K > %.4g", float64(iv.Min)))
		} else {
			parts = append(parts, fmt.Sprintf("%.4g < K < %.4g", float64(iv.Min), float64(iv.Max)))
		}
	}
	return &StabilityRangeReport{
		Message:        "Stability range analysis successful",
		StabilityRange: strings.Join(parts, " or "),
		Intervals:      intervals,
	}, nil
}

// bisectBoundary refines the stability boundary between an unstable gain
// and a stable gain.
func bisectBoundary(unstable, stable float64, stableAt func(float64) bool) float64 {
	for i := 0; i < bisectIters; i++ {
		mid := math.Sqrt(unstable * stable)
		if stableAt(mid) {
			stable = mid
		} else {
			unstable = mid
		}
	}
	return stable
}
