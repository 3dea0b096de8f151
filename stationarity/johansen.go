package stationarity

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/procurewise/econengine/econerr"
	"github.com/procurewise/econengine/internal/linreg"
	"github.com/procurewise/econengine/timeseries"
)

// CointegrationResult holds the rank decision from the Johansen trace test.
// Rank 0 means no long-run relationship: difference the series and fit a VAR.
// Rank > 0 means a VECM on levels applies, using Vectors as the cointegrating
// relations.
type CointegrationResult struct {
	Rank           int
	Eigenvalues    []float64
	TraceStats     []float64
	CriticalValues []float64
	// Vectors holds Rank cointegrating vectors, each of length K, normalized
	// so the first component is 1.
	Vectors [][]float64
	// LagOrder is the levels-VAR lag order the test was run with.
	LagOrder int
}

// Trace-test critical values at 95%, model with constant, indexed by K-r.
// Osterwald-Lenum (1992).
var traceCrit95 = []float64{0, 3.76, 15.41, 29.68, 47.21, 68.52}

// Johansen runs the trace test for cointegration rank on a levels panel using
// a levels-VAR lag order p. The test is defined for 2..5 variables.
func Johansen(mv *timeseries.Multivariate, p int) (*CointegrationResult, error) {
	k := mv.NumVars()
	if k < 2 {
		return nil, &econerr.ModelNotApplicableError{
			Stage:  econerr.StageStationarity,
			Reason: fmt.Sprintf("cointegration rank test requires at least 2 variables, got %d", k),
		}
	}
	if k >= len(traceCrit95) {
		return nil, &econerr.ModelNotApplicableError{
			Stage:  econerr.StageStationarity,
			Reason: fmt.Sprintf("no trace critical values for %d variables (max %d)", k, len(traceCrit95)-1),
		}
	}
	if p < 1 {
		p = 1
	}
	y := mv.Mat()
	t, _ := y.Dims()
	n := t - p
	if n < 10*k {
		return nil, &econerr.InsufficientDataError{
			Stage: econerr.StageStationarity, Need: p + 10*k, Got: t,
		}
	}

	// Auxiliary regressors: constant plus p-1 lagged differences.
	zCols := 1 + (p-1)*k
	z := mat.NewDense(n, zCols, nil)
	dy := mat.NewDense(n, k, nil)   // dependent differences
	ylag := mat.NewDense(n, k, nil) // lagged levels
	for i := 0; i < n; i++ {
		row := i + p
		for j := 0; j < k; j++ {
			dy.Set(i, j, y.At(row, j)-y.At(row-1, j))
			ylag.Set(i, j, y.At(row-1, j))
		}
		z.Set(i, 0, 1)
		col := 1
		for l := 1; l < p; l++ {
			for j := 0; j < k; j++ {
				z.Set(i, col, y.At(row-l, j)-y.At(row-l-1, j))
				col++
			}
		}
	}

	r0, err := residualize(dy, z)
	if err != nil {
		return nil, err
	}
	r1, err := residualize(ylag, z)
	if err != nil {
		return nil, err
	}

	s00 := crossProduct(r0, r0, n)
	s11 := crossProduct(r1, r1, n)
	s01 := crossProduct(r0, r1, n)

	var s00inv mat.Dense
	if err := s00inv.Inverse(s00); err != nil {
		return nil, &econerr.ModelNotApplicableError{
			Stage: econerr.StageStationarity, Reason: "singular short-run covariance in rank test",
		}
	}
	var s11inv mat.Dense
	if err := s11inv.Inverse(s11); err != nil {
		return nil, &econerr.ModelNotApplicableError{
			Stage: econerr.StageStationarity, Reason: "singular level covariance in rank test",
		}
	}

	// Eigenvalues of S11^{-1} S10 S00^{-1} S01 give the squared canonical
	// correlations between levels and differences.
	var s10 mat.Dense
	s10.CloneFrom(s01.T())
	var a, m mat.Dense
	a.Mul(&s10, &s00inv)
	a.Mul(&a, s01)
	m.Mul(&s11inv, &a)

	var eig mat.Eigen
	if !eig.Factorize(&m, mat.EigenRight) {
		return nil, &econerr.ModelNotApplicableError{
			Stage: econerr.StageStationarity, Reason: "eigen decomposition failed in rank test",
		}
	}
	values := eig.Values(nil)
	var vecs mat.CDense
	eig.VectorsTo(&vecs)

	type eigPair struct {
		lambda float64
		vec    []float64
	}
	pairs := make([]eigPair, k)
	for i := 0; i < k; i++ {
		lam := real(values[i])
		if lam < 0 {
			lam = 0
		}
		if lam > 1-1e-12 {
			lam = 1 - 1e-12
		}
		v := make([]float64, k)
		for j := 0; j < k; j++ {
			v[j] = real(vecs.At(j, i))
		}
		pairs[i] = eigPair{lambda: lam, vec: v}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].lambda > pairs[j].lambda })

	res := &CointegrationResult{
		Eigenvalues:    make([]float64, k),
		TraceStats:     make([]float64, k),
		CriticalValues: make([]float64, k),
		LagOrder:       p,
	}
	for i, pr := range pairs {
		res.Eigenvalues[i] = pr.lambda
	}

	rank := k
	for r := 0; r < k; r++ {
		trace := 0.0
		for i := r; i < k; i++ {
			trace += -float64(n) * math.Log(1-res.Eigenvalues[i])
		}
		res.TraceStats[r] = trace
		res.CriticalValues[r] = traceCrit95[k-r]
		if rank == k && trace < res.CriticalValues[r] {
			rank = r
		}
	}
	res.Rank = rank

	for r := 0; r < rank; r++ {
		v := make([]float64, k)
		copy(v, pairs[r].vec)
		if v[0] != 0 {
			scale := v[0]
			for j := range v {
				v[j] /= scale
			}
		}
		res.Vectors = append(res.Vectors, v)
	}
	return res, nil
}

// residualize returns the residuals of regressing each column of y on z.
func residualize(y, z *mat.Dense) (*mat.Dense, error) {
	b, err := linreg.Solve(z, y)
	if err != nil {
		return nil, err
	}
	var fitted, resid mat.Dense
	fitted.Mul(z, b)
	resid.Sub(y, &fitted)
	return &resid, nil
}

// crossProduct returns a'b / n.
func crossProduct(a, b *mat.Dense, n int) *mat.Dense {
	var out mat.Dense
	out.Mul(a.T(), b)
	out.Scale(1/float64(n), &out)
	return &out
}
