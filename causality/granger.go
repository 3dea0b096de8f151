// Package causality implements pairwise Granger causality testing over a set
// of candidate lag orders, with a mandatory multiple-comparison correction
// before any pair is declared significant. The results drive variable
// selection for the forecast model.
package causality

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/procurewise/econengine/config"
	"github.com/procurewise/econengine/econerr"
	"github.com/procurewise/econengine/internal/linreg"
	"github.com/procurewise/econengine/timeseries"
)

// PairResult is the outcome of testing whether lagged Cause improves the
// prediction of Effect beyond Effect's own lags. MinPValue is the smallest
// raw p-value across candidate lags; CorrectedPValue accounts for the lag
// scan.
type PairResult struct {
	Cause           string
	Effect          string
	FStatistic      float64
	MinPValue       float64
	CorrectedPValue float64
	BestLag         int
	TestedLags      []int
	Significant     bool
}

// Matrix holds all ordered-pair results from one causality run.
type Matrix struct {
	Pairs      []PairResult
	Alpha      float64
	Correction config.Correction
}

// Causes returns the variables whose lags significantly improve prediction of
// target.
func (m *Matrix) Causes(target string) []string {
	var out []string
	for _, p := range m.Pairs {
		if p.Effect == target && p.Significant {
			out = append(out, p.Cause)
		}
	}
	return out
}

// Pair returns the result for one ordered (cause, effect) pair.
func (m *Matrix) Pair(cause, effect string) (PairResult, bool) {
	for _, p := range m.Pairs {
		if p.Cause == cause && p.Effect == effect {
			return p, true
		}
	}
	return PairResult{}, false
}

// Test runs Granger causality tests for every ordered variable pair across
// candidate lag orders 1..maxLag.
func Test(mv *timeseries.Multivariate, maxLag int, cfg config.CausalityConfig) (*Matrix, error) {
	names := mv.Names()
	if len(names) < 2 {
		return nil, &econerr.ModelNotApplicableError{
			Stage:  econerr.StageCausality,
			Reason: "causality testing requires at least 2 variables",
		}
	}
	if maxLag < 1 {
		maxLag = 1
	}
	y := mv.Mat()
	t, _ := y.Dims()
	if t < 3*maxLag+10 {
		return nil, &econerr.InsufficientDataError{
			Stage: econerr.StageCausality, Need: 3*maxLag + 10, Got: t,
		}
	}

	lags := make([]int, maxLag)
	for i := range lags {
		lags[i] = i + 1
	}

	out := &Matrix{Alpha: cfg.Alpha, Correction: cfg.Correction}
	for ci, cause := range names {
		for ei, effect := range names {
			if ci == ei {
				continue
			}
			pair, err := testPair(y, ci, ei, lags)
			if err != nil {
				return nil, err
			}
			pair.Cause = cause
			pair.Effect = effect
			applyCorrection(&pair, cfg)
			out.Pairs = append(out.Pairs, pair)
		}
	}
	return out, nil
}

// testPair compares, for each candidate lag p, the restricted regression of
// the effect on its own p lags against the unrestricted regression adding p
// lags of the cause, via an F-test on the residual sums of squares.
func testPair(y *mat.Dense, causeIdx, effectIdx int, lags []int) (PairResult, error) {
	res := PairResult{MinPValue: math.Inf(1), TestedLags: lags}

	for _, p := range lags {
		t, _ := y.Dims()
		n := t - p

		depVals := make([]float64, n)
		dep := mat.NewVecDense(n, depVals)
		depCol := mat.NewDense(n, 1, depVals)
		restricted := mat.NewDense(n, 1+p, nil)
		unrestricted := mat.NewDense(n, 1+2*p, nil)
		for i := 0; i < n; i++ {
			row := i + p
			dep.SetVec(i, y.At(row, effectIdx))
			restricted.Set(i, 0, 1)
			unrestricted.Set(i, 0, 1)
			for j := 1; j <= p; j++ {
				restricted.Set(i, j, y.At(row-j, effectIdx))
				unrestricted.Set(i, j, y.At(row-j, effectIdx))
				unrestricted.Set(i, p+j, y.At(row-j, causeIdx))
			}
		}

		bR, err := linreg.Solve(restricted, depCol)
		if err != nil {
			return res, err
		}
		rssR := linreg.RSS(restricted, dep, mat.Col(nil, 0, bR))
		bU, err := linreg.Solve(unrestricted, depCol)
		if err != nil {
			return res, err
		}
		rssU := linreg.RSS(unrestricted, dep, mat.Col(nil, 0, bU))

		q := float64(p)
		dof := float64(n - (1 + 2*p))
		if dof <= 0 {
			continue
		}
		num := rssR - rssU
		if num < 0 {
			num = 0
		}
		den := rssU / dof

		fStat := 0.0
		pVal := 1.0
		if den > 0 && num > 0 {
			fStat = (num / q) / den
			if fStat > 0 && !math.IsNaN(fStat) && !math.IsInf(fStat, 0) {
				fDist := distuv.F{D1: q, D2: dof}
				pVal = 1 - fDist.CDF(fStat)
			} else {
				fStat = 0
			}
		}
		pVal = math.Min(math.Max(pVal, 0), 1)
		if pVal < res.MinPValue {
			res.MinPValue = pVal
			res.FStatistic = fStat
			res.BestLag = p
		}
	}
	if math.IsInf(res.MinPValue, 1) {
		res.MinPValue = 1
	}
	return res, nil
}

// applyCorrection adjusts the minimum p-value for the number of lags
// scanned. Holm's step-down adjustment for the smallest p-value in a family
// of m tests coincides with Bonferroni (m * p), so both map to the same
// number here; the distinction only matters for non-minimal hypotheses,
// which this tester does not report.
func applyCorrection(pair *PairResult, cfg config.CausalityConfig) {
	m := float64(len(pair.TestedLags))
	switch cfg.Correction {
	case config.CorrectionNone:
		pair.CorrectedPValue = pair.MinPValue
	default: // Bonferroni, Holm
		pair.CorrectedPValue = math.Min(1, pair.MinPValue*m)
	}
	pair.Significant = pair.CorrectedPValue < cfg.Alpha
}
