package stationarity

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/procurewise/econengine/config"
	"github.com/procurewise/econengine/econerr"
	"github.com/procurewise/econengine/internal/linreg"
	"github.com/procurewise/econengine/timeseries"
)

// TestResult is the unit-root test outcome for a single variable.
type TestResult struct {
	Variable      string
	Statistic     float64
	PValue        float64
	Lags          int
	Stationary    bool
	SuggestedDiff int
}

// Report collects per-variable unit-root results for one analysis run.
type Report struct {
	Results []TestResult
	Alpha   float64
}

// AllStationary reports whether every variable passed the unit-root test.
func (r *Report) AllStationary() bool {
	for _, res := range r.Results {
		if !res.Stationary {
			return false
		}
	}
	return true
}

// AllNonStationary reports whether no variable passed the unit-root test.
func (r *Report) AllNonStationary() bool {
	for _, res := range r.Results {
		if res.Stationary {
			return false
		}
	}
	return true
}

// For returns the result for a named variable.
func (r *Report) For(name string) (TestResult, bool) {
	for _, res := range r.Results {
		if res.Variable == name {
			return res, true
		}
	}
	return TestResult{}, false
}

// Analyze runs the augmented Dickey-Fuller test on every variable of the
// panel. Each series needs at least cfg.MinObservations observations, which
// in turn must exceed the maximum lag order under consideration.
func Analyze(mv *timeseries.Multivariate, cfg config.Config) (*Report, error) {
	report := &Report{Alpha: 0.05}
	for _, name := range mv.Names() {
		s, err := mv.Column(name)
		if err != nil {
			return nil, err
		}
		if s.Len() < cfg.MinObservations {
			return nil, &econerr.InsufficientDataError{
				Stage:    econerr.StageStationarity,
				Variable: name,
				Need:     cfg.MinObservations,
				Got:      s.Len(),
			}
		}
		res, err := adf(s, cfg.MaxLagOrder)
		if err != nil {
			return nil, err
		}
		res.SuggestedDiff = suggestDifferencing(s, cfg.MaxLagOrder)
		report.Results = append(report.Results, res)
	}
	return report, nil
}

// adf runs the augmented Dickey-Fuller regression with constant:
//
//	dy_t = a + b*y_{t-1} + sum_i g_i*dy_{t-i} + e_t
//
// and tests b = 0 (unit root) against b < 0 (stationary).
func adf(s *timeseries.Series, maxLag int) (TestResult, error) {
	n := s.Len()
	lag := int(math.Floor(math.Cbrt(float64(n - 1))))
	if lag > maxLag {
		lag = maxLag
	}
	if lag < 1 {
		lag = 1
	}

	vals := s.Values()
	diff := s.Diff().Values()

	nObs := n - lag - 1
	if nObs < 10 {
		return TestResult{}, &econerr.InsufficientDataError{
			Stage:    econerr.StageStationarity,
			Variable: s.Name(),
			Need:     lag + 11,
			Got:      n,
		}
	}

	m := 2 + lag
	x := mat.NewDense(nObs, m, nil)
	y := mat.NewVecDense(nObs, nil)
	for i := 0; i < nObs; i++ {
		t := i + lag
		y.SetVec(i, diff[t])
		x.Set(i, 0, 1)
		x.Set(i, 1, vals[t]) // lagged level: y_{t-1} in differenced indexing
		for j := 1; j <= lag; j++ {
			x.Set(i, 1+j, diff[t-j])
		}
	}

	coeffs, stderrs, _, err := linreg.SolveWithStdErr(x, y)
	if err != nil {
		return TestResult{}, err
	}
	if stderrs == nil || stderrs[1] == 0 {
		return TestResult{}, &econerr.ModelNotApplicableError{
			Stage:  econerr.StageStationarity,
			Reason: "degenerate ADF regression for " + s.Name(),
		}
	}

	tStat := coeffs[1] / stderrs[1]
	p := mackinnonPValue(tStat)
	return TestResult{
		Variable:   s.Name(),
		Statistic:  tStat,
		PValue:     p,
		Lags:       lag,
		Stationary: p < 0.05,
	}, nil
}

// suggestDifferencing returns the smallest differencing order (0..2) that
// renders the series stationary by the ADF test.
func suggestDifferencing(s *timeseries.Series, maxLag int) int {
	cur := s
	for d := 0; d <= 2; d++ {
		res, err := adf(cur, maxLag)
		if err == nil && res.Stationary {
			return d
		}
		cur = cur.Diff()
		if cur.Len() < 12 {
			break
		}
	}
	return 2
}

// mackinnonPValue approximates the ADF p-value by interpolating the
// MacKinnon (1994) response surface for the constant-only regression.
func mackinnonPValue(stat float64) float64 {
	switch {
	case stat < -3.96:
		return 0.001
	case stat < -3.43:
		return 0.01
	case stat < -2.86:
		return 0.05
	case stat < -2.57:
		return 0.10
	case stat < -1.94:
		return 0.25
	case stat < -1.62:
		return 0.50
	default:
		return math.Min(0.5+(stat+1.62)*0.25, 0.99)
	}
}
