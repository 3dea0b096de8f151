// Package linreg solves the least-squares problems shared by the unit-root,
// causality, and VAR estimators: normal equations first, SVD-based
// minimum-norm solution when the design matrix is ill-conditioned.
package linreg

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Solve computes B minimizing ||Y - X B||_F. X is (n x m), Y is (n x k), and
// the result is (m x k).
func Solve(x, y *mat.Dense) (*mat.Dense, error) {
	n, m := x.Dims()
	yn, _ := y.Dims()
	if n != yn {
		return nil, errors.New("linreg: design and response row counts differ")
	}
	if n < m {
		return nil, errors.New("linreg: fewer observations than regressors")
	}

	var xtx mat.Dense
	xtx.Mul(x.T(), x)

	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err == nil {
		var xty, b mat.Dense
		xty.Mul(x.T(), y)
		b.Mul(&xtxInv, &xty)
		return &b, nil
	}

	// X'X is singular or badly conditioned; fall back to an SVD-based
	// minimum-norm least-squares solution.
	var svd mat.SVD
	if !svd.Factorize(x, mat.SVDThin) {
		return nil, errors.New("linreg: SVD factorization failed")
	}
	rank := svd.Rank(1e-12)
	_, k := y.Dims()
	if rank == 0 {
		return mat.NewDense(m, k, nil), nil
	}
	var b mat.Dense
	svd.SolveTo(&b, y, rank)
	return &b, nil
}

// SolveWithStdErr solves a single-response regression and also returns the
// coefficient standard errors and the residual sum of squares.
func SolveWithStdErr(x *mat.Dense, y *mat.VecDense) (coeffs, stderrs []float64, rss float64, err error) {
	n, m := x.Dims()
	ym := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		ym.Set(i, 0, y.AtVec(i))
	}
	b, err := Solve(x, ym)
	if err != nil {
		return nil, nil, 0, err
	}
	coeffs = make([]float64, m)
	for i := range coeffs {
		coeffs[i] = b.At(i, 0)
	}

	var fitted mat.Dense
	fitted.Mul(x, b)
	rss = 0
	for i := 0; i < n; i++ {
		r := y.AtVec(i) - fitted.At(i, 0)
		rss += r * r
	}

	if n <= m {
		return coeffs, nil, rss, nil
	}
	sigma2 := rss / float64(n-m)

	var xtx, xtxInv mat.Dense
	xtx.Mul(x.T(), x)
	if err := xtxInv.Inverse(&xtx); err != nil {
		// Standard errors are advisory; coefficients and RSS stand alone.
		return coeffs, nil, rss, nil
	}
	stderrs = make([]float64, m)
	for i := range stderrs {
		stderrs[i] = math.Sqrt(sigma2 * xtxInv.At(i, i))
	}
	return coeffs, stderrs, rss, nil
}

// RSS returns the residual sum of squares of a fitted single-response
// regression without recomputing coefficients.
func RSS(x *mat.Dense, y *mat.VecDense, coeffs []float64) float64 {
	n, m := x.Dims()
	rss := 0.0
	for i := 0; i < n; i++ {
		pred := 0.0
		for j := 0; j < m; j++ {
			pred += coeffs[j] * x.At(i, j)
		}
		r := y.AtVec(i) - pred
		rss += r * r
	}
	return rss
}
