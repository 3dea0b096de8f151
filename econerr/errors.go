// Package econerr defines the error taxonomy shared by every analysis stage.
// Each error carries the stage that raised it and the parameters that made it
// fail, so callers can surface actionable messages without re-deriving context.
package econerr

import "fmt"

// Stage identifies the pipeline stage an error originated from.
type Stage string

const (
	StageSeriesStore  Stage = "series_store"
	StageStationarity Stage = "stationarity"
	StageCausality    Stage = "causality"
	StageForecast     Stage = "forecast"
	StageVolatility   Stage = "volatility"
	StageRisk         Stage = "risk"
	StageProcurement  Stage = "procurement"
)

// InsufficientDataError signals that a series is too short for the requested
// lag or window. The caller must supply more history or reduce the lag order.
type InsufficientDataError struct {
	Stage    Stage
	Variable string
	Need     int
	Got      int
}

func (e *InsufficientDataError) Error() string {
	if e.Variable != "" {
		return fmt.Sprintf("%s: variable %q has %d observations, need at least %d", e.Stage, e.Variable, e.Got, e.Need)
	}
	return fmt.Sprintf("%s: %d observations, need at least %d", e.Stage, e.Got, e.Need)
}

// ModelNotApplicableError signals a structural precondition failure, such as
// a cointegration rank test on fewer than two series.
type ModelNotApplicableError struct {
	Stage  Stage
	Reason string
}

func (e *ModelNotApplicableError) Error() string {
	return fmt.Sprintf("%s: model not applicable: %s", e.Stage, e.Reason)
}

// UnstableModelError signals that a fitted VAR or VECM has characteristic
// roots outside the unit circle. Forecasts from such a model diverge, so this
// is a hard failure rather than something to clamp.
type UnstableModelError struct {
	Stage      Stage
	LagOrder   int
	MaxModulus float64
}

func (e *UnstableModelError) Error() string {
	return fmt.Sprintf("%s: fitted model with lag order %d is explosive (max root modulus %.4f)", e.Stage, e.LagOrder, e.MaxModulus)
}

// InvalidInputError signals the wrong kind of series was supplied, for
// example raw price levels where a returns series was expected.
type InvalidInputError struct {
	Stage  Stage
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("%s: invalid input: %s", e.Stage, e.Reason)
}

// NonConvergentFitError signals an optimizer that failed to reach a valid
// parameter set within its iteration budget.
type NonConvergentFitError struct {
	Stage      Stage
	Iterations int
	Reason     string
}

func (e *NonConvergentFitError) Error() string {
	return fmt.Sprintf("%s: fit did not converge after %d iterations: %s", e.Stage, e.Iterations, e.Reason)
}

// NoFeasibleSolutionError signals that the optimizer constraints admit no
// quantity/timing pair.
type NoFeasibleSolutionError struct {
	Stage  Stage
	Reason string
}

func (e *NoFeasibleSolutionError) Error() string {
	return fmt.Sprintf("%s: no feasible solution: %s", e.Stage, e.Reason)
}
