// Package jsonx provides JSON float encoding where non-finite values
// (NaN, +/-Inf) serialize as null instead of failing to encode.
package jsonx

import (
	"bytes"
	"math"
	"strconv"
)

// Float marshals as a JSON number, or null when not finite. Unmarshaling
// null yields NaN.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

func (f *Float) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*f = Float(math.NaN())
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// Finite reports whether the value survived sanitization.
func (f Float) Finite() bool {
	v := float64(f)
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Slice sanitizes a float slice.
func Slice(xs []float64) []Float {
	out := make([]Float, len(xs))
	for i, x := range xs {
		out[i] = Float(x)
	}
	return out
}
