package compens

import (
	"math"

	"github.com/san-kum/ctrlab/internal/lti"
)

// ClassifyKv determines the system type (number of integrators, counted as
// trailing near-zero denominator coefficients) and the velocity error
// constant:
//
//	Type 0:  Kv = 0
//	Type 1:  Kv = last numerator coeff / denominator coeff preceding the
//	         integrator (infinite when that coefficient is itself zero)
//	Type 2+: Kv = +Inf
func ClassifyKv(num, den []float64) (kv float64, integrators int) {
	for i := len(den) - 1; i >= 0; i-- {
		if !lti.Close(den[i], 0) {
			break
		}
		integrators++
	}

	switch {
	case integrators == 0:
		return 0, 0
	case integrators > 1 || integrators == len(den):
		return math.Inf(1), integrators
	}

	lastNum := num[len(num)-1]
	lastDen := den[len(den)-1-integrators]
	if lti.Close(lastDen, 0) {
		return math.Inf(1), integrators
	}
	return lastNum / lastDen, integrators
}
