package compens

import "fmt"

// SpecError reports an infeasible or already-satisfied design target. It is
// a user-input error, not a numerical failure.
type SpecError struct {
	Msg string
}

func (e *SpecError) Error() string { return e.Msg }

// AnalysisError reports that a required quantity could not be produced from
// the supplied system (missing crossover, undeterminable margin).
type AnalysisError struct {
	Msg string
}

func (e *AnalysisError) Error() string { return e.Msg }

func specf(format string, args ...any) error {
	return &SpecError{Msg: fmt.Sprintf(format, args...)}
}

func analysisf(format string, args ...any) error {
	return &AnalysisError{Msg: fmt.Sprintf(format, args...)}
}
