package jsonx

import (
	"encoding/json"
	"math"
	"testing"
)

func TestMarshalNonFinite(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1.5, "1.5"},
		{0, "0"},
		{math.NaN(), "null"},
		{math.Inf(1), "null"},
		{math.Inf(-1), "null"},
	}
	for _, tc := range tests {
		got, err := json.Marshal(Float(tc.in))
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != tc.want {
			t.Errorf("Marshal(%g) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestMarshalInsideStruct(t *testing.T) {
	v := struct {
		A Float  `json:"a"`
		B Float  `json:"b"`
		C *Float `json:"c"`
	}{A: 2, B: Float(math.NaN())}

	got, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"a":2,"b":null,"c":null}`
	if string(got) != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestUnmarshalNull(t *testing.T) {
	var f Float
	if err := json.Unmarshal([]byte("null"), &f); err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(float64(f)) {
		t.Errorf("null should unmarshal to NaN, got %g", float64(f))
	}

	if err := json.Unmarshal([]byte("2.5"), &f); err != nil {
		t.Fatal(err)
	}
	if float64(f) != 2.5 {
		t.Errorf("got %g, want 2.5", float64(f))
	}
}

func TestSlice(t *testing.T) {
	xs := Slice([]float64{1, math.NaN(), 3})
	if len(xs) != 3 {
		t.Fatalf("length: got %d", len(xs))
	}
	if xs[0].Finite() != true || xs[1].Finite() != false {
		t.Error("Finite flags wrong")
	}
}
