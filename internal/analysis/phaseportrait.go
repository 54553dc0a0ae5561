package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/ctrlab/internal/jsonx"
	"github.com/san-kum/ctrlab/internal/lti"
)

const (
	portraitGridSide = 9
	portraitGridSpan = 10.0
	portraitSamples  = 500
)

// Trajectory is one phase-plane path (first state vs second state).
type Trajectory struct {
	X []jsonx.Float `json:"x"`
	Y []jsonx.Float `json:"y"`
}

// EquilibriumAnalysis classifies the equilibrium at the origin.
type EquilibriumAnalysis struct {
	Point []jsonx.Float `json:"point"`
	Type  string        `json:"type"`
}

// PhasePortraitReport is the phase portrait response.
type PhasePortraitReport struct {
	Message      string              `json:"message"`
	Trajectories []Trajectory        `json:"trajectories"`
	Equilibrium  EquilibriumAnalysis `json:"equilibrium_analysis"`
}

// PhasePortrait integrates autonomous trajectories of the system from a
// grid of initial conditions with forward Euler steps and classifies the
// equilibrium at the origin from the pole pattern.
func PhasePortrait(sys lti.TF) (*PhasePortraitReport, error) {
	if !sys.Proper() {
		return nil, fmt.Errorf("numerator degree cannot be greater than denominator degree")
	}
	poles := sys.Poles()
	if len(poles) == 0 {
		return nil, fmt.Errorf("system must have at least one pole")
	}

	ss, err := sys.StateSpace()
	if err != nil {
		return nil, err
	}
	n := ss.Order()

	tFinal := portraitHorizon(poles)
	dt := tFinal / float64(portraitSamples-1)

	grid := lti.LinSpace(-portraitGridSpan, portraitGridSpan, portraitGridSide)

	var trajectories []Trajectory
	x := mat.NewVecDense(n, nil)
	xdot := mat.NewVecDense(n, nil)
	for _, x0 := range grid {
		for _, y0 := range grid {
			if x0 == 0 && y0 == 0 {
				continue
			}

			x.Zero()
			x.SetVec(0, x0)
			if n >= 2 {
				x.SetVec(1, y0)
			}

			tr := Trajectory{
				X: make([]jsonx.Float, portraitSamples),
				Y: make([]jsonx.Float, portraitSamples),
			}
			for i := 0; i < portraitSamples; i++ {
				tr.X[i] = jsonx.Float(x.AtVec(0))
				if n >= 2 {
					tr.Y[i] = jsonx.Float(x.AtVec(1))
				}
				xdot.MulVec(ss.A, x)
				x.AddScaledVec(x, dt, xdot)
			}
			trajectories = append(trajectories, tr)
		}
	}

	return &PhasePortraitReport{
		Message:      "Phase portrait data generated successfully.",
		Trajectories: trajectories,
		Equilibrium: EquilibriumAnalysis{
			Point: []jsonx.Float{0, 0},
			Type:  ClassifyEquilibrium(poles),
		},
	}, nil
}

// portraitHorizon estimates the simulation time from the slowest pole:
// five time constants for poles with a real part, five periods of the
// slowest oscillation for purely imaginary poles.
func portraitHorizon(poles []complex128) float64 {
	var reals, imags []float64
	for _, p := range poles {
		if !lti.Close(real(p), 0) {
			reals = append(reals, math.Abs(real(p)))
		} else if !lti.Close(imag(p), 0) {
			imags = append(imags, math.Abs(imag(p)))
		}
	}
	if len(reals) > 0 {
		slowest := reals[0]
		for _, r := range reals[1:] {
			slowest = math.Min(slowest, r)
		}
		return math.Min(5/slowest, 100)
	}
	if len(imags) > 0 {
		slowest := imags[0]
		for _, w := range imags[1:] {
			slowest = math.Min(slowest, w)
		}
		return 5 * 2 * math.Pi / slowest
	}
	return 20
}

// ClassifyEquilibrium names the equilibrium at the origin from the pole
// pattern. Higher-order systems are classified by their two dominant
// (rightmost) poles.
func ClassifyEquilibrium(poles []complex128) string {
	if len(poles) == 0 {
		return "Inconclusive (No poles)"
	}

	stability := ClassifyStability(poles)

	if len(poles) < 2 {
		if stability == "Stable" {
			return "Stable (1st Order)"
		}
		return "Unstable (1st Order)"
	}

	dominant := sortByRealDesc(poles)
	p1, p2 := dominant[0], dominant[1]

	if math.Abs(imag(p1)) > 1e-6 {
		switch stability {
		case "Stable":
			return "Stable Focus (Spiral)"
		case "Unstable":
			return "Unstable Focus (Spiral)"
		default:
			return "Center"
		}
	}

	switch stability {
	case "Stable":
		return "Stable Node"
	case "Unstable":
		if real(p1) > 0 && real(p2) < 0 {
			return "Saddle Point"
		}
		return "Unstable Node"
	default:
		return "Marginally Stable (Integrator)"
	}
}

func sortByRealDesc(poles []complex128) []complex128 {
	out := make([]complex128, len(poles))
	copy(out, poles)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && real(out[j]) > real(out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
