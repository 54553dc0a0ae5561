package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/san-kum/ctrlab/internal/analysis"
	"github.com/san-kum/ctrlab/internal/compens"
	"github.com/san-kum/ctrlab/internal/lti"
)

type tfInput struct {
	Numerator   []float64 `json:"numerator"`
	Denominator []float64 `json:"denominator"`
}

type leadInput struct {
	tfInput
	DesiredPhaseMargin float64 `json:"desired_phase_margin"`
	SafetyMargin       float64 `json:"safety_margin"`
}

type lagInput struct {
	tfInput
	DesiredKv float64 `json:"desired_kv"`
}

type lagLeadInput struct {
	tfInput
	DesiredPhaseMargin float64 `json:"desired_phase_margin"`
	DesiredKv          float64 `json:"desired_kv"`
	SafetyMargin       float64 `json:"safety_margin"`
}

type inverseInput struct {
	RiseTime     *float64 `json:"rise_time"`
	PeakTime     *float64 `json:"peak_time"`
	MaxOvershoot *float64 `json:"max_overshoot"`
	SettlingTime *float64 `json:"settling_time"`
}

type complexNumber struct {
	Real float64 `json:"real"`
	Imag float64 `json:"imag"`
}

type rootLocusInput struct {
	Zeros []complexNumber `json:"zeros"`
	Poles []complexNumber `json:"poles"`
	Gain  *float64        `json:"gain"`
}

// errorBody matches the {"detail": ...} shape of the original API.
type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Detail: msg})
}

// writeResult maps the two engine error kinds to client errors; anything
// else is a server-side defect and must not masquerade as user input.
func (s *Server) writeResult(w http.ResponseWriter, v any, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, v)
		return
	}
	var specErr *compens.SpecError
	var anaErr *compens.AnalysisError
	switch {
	case errors.As(err, &specErr), errors.As(err, &anaErr):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error("analysis failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decode(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// newTF validates coefficients against the request size cap and builds the
// transfer function.
func (s *Server) newTF(in tfInput) (lti.TF, error) {
	max := s.cfg.Limits.MaxOrder
	if len(in.Numerator) > max+1 || len(in.Denominator) > max+1 {
		return lti.TF{}, fmt.Errorf("transfer function order exceeds the limit of %d", max)
	}
	return lti.New(in.Numerator, in.Denominator)
}

// sweep maps the configured frequency sweep onto the design engine.
func (s *Server) sweep() compens.Sweep {
	return compens.Sweep{
		LoExp:   s.cfg.Sweep.LoExp,
		HiExp:   s.cfg.Sweep.HiExp,
		Samples: s.cfg.Sweep.Samples,
	}
}

func (s *Server) handleAnalyzeTF(w http.ResponseWriter, r *http.Request) {
	var in tfInput
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sys, err := s.newTF(in)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := analysis.AnalyzeTF(sys)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleInverseAnalyze(w http.ResponseWriter, r *http.Request) {
	var in inverseInput
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result := analysis.InverseAnalyze(analysis.InverseSpec{
		RiseTime:     in.RiseTime,
		PeakTime:     in.PeakTime,
		MaxOvershoot: in.MaxOvershoot,
		SettlingTime: in.SettlingTime,
	})
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStabilityRange(w http.ResponseWriter, r *http.Request) {
	var in tfInput
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := s.newTF(in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := analysis.StabilityRange(in.Numerator, in.Denominator)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func toComplex(ns []complexNumber) []complex128 {
	out := make([]complex128, len(ns))
	for i, n := range ns {
		out[i] = complex(n.Real, n.Imag)
	}
	return out
}

func (s *Server) handleRootLocus(w http.ResponseWriter, r *http.Request) {
	var in rootLocusInput
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(in.Poles) > s.cfg.Limits.MaxOrder {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("pole count exceeds the limit of %d", s.cfg.Limits.MaxOrder))
		return
	}
	report, err := analysis.RootLocus(toComplex(in.Zeros), toComplex(in.Poles))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleFreqDomain(w http.ResponseWriter, r *http.Request) {
	var in rootLocusInput
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(in.Poles) > s.cfg.Limits.MaxOrder {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("pole count exceeds the limit of %d", s.cfg.Limits.MaxOrder))
		return
	}
	gain := 1.0
	if in.Gain != nil {
		gain = *in.Gain
	}
	report, err := analysis.AnalyzeFreqDomain(toComplex(in.Zeros), toComplex(in.Poles), gain)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handlePhasePortrait(w http.ResponseWriter, r *http.Request) {
	var in tfInput
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sys, err := s.newTF(in)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := analysis.PhasePortrait(sys)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleDesignLead(w http.ResponseWriter, r *http.Request) {
	in := leadInput{SafetyMargin: 5.0}
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sys, err := s.newTF(in.tfInput)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := compens.DesignLead(sys, in.DesiredPhaseMargin, in.SafetyMargin, s.sweep())
	s.writeResult(w, report, err)
}

func (s *Server) handleDesignLag(w http.ResponseWriter, r *http.Request) {
	var in lagInput
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sys, err := s.newTF(in.tfInput)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := compens.DesignLag(sys, in.DesiredKv, s.sweep())
	s.writeResult(w, report, err)
}

func (s *Server) handleDesignLagLead(w http.ResponseWriter, r *http.Request) {
	in := lagLeadInput{SafetyMargin: 5.0}
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sys, err := s.newTF(in.tfInput)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := compens.DesignLagLead(sys, in.DesiredPhaseMargin, in.DesiredKv, in.SafetyMargin, s.sweep())
	s.writeResult(w, report, err)
}
