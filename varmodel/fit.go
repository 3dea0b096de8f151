package varmodel

import (
	"math"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/procurewise/econengine/config"
	"github.com/procurewise/econengine/econerr"
	"github.com/procurewise/econengine/internal/linreg"
	"github.com/procurewise/econengine/models"
	"github.com/procurewise/econengine/timeseries"
)

// Fit estimates a VAR on the panel, selecting the lag order in 1..MaxLag by
// the configured information criterion. Fitting a model whose companion
// roots lie outside the unit circle fails with UnstableModelError; an
// explosive model never forecasts.
func Fit(mv *timeseries.Multivariate, spec Spec) (*Model, error) {
	y := mv.Mat()
	t, k := y.Dims()
	if spec.MaxLag < 1 {
		spec.MaxLag = 1
	}
	if t < spec.MinObservations || t <= spec.MaxLag+1 {
		need := spec.MinObservations
		if need <= spec.MaxLag+1 {
			need = spec.MaxLag + 2
		}
		return nil, &econerr.InsufficientDataError{
			Stage: econerr.StageForecast, Need: need, Got: t,
		}
	}

	bestP := 0
	bestIC := math.Inf(1)
	for p := 1; p <= spec.MaxLag; p++ {
		est, err := estimate(y, p)
		if err != nil {
			continue
		}
		ic := criterionValue(spec.Criterion, est, k, p)
		if ic < bestIC {
			bestIC = ic
			bestP = p
		}
	}
	if bestP == 0 {
		return nil, &econerr.ModelNotApplicableError{
			Stage:  econerr.StageForecast,
			Reason: "no lag order in the search range could be estimated",
		}
	}

	est, err := estimate(y, bestP)
	if err != nil {
		return nil, err
	}
	m := &Model{
		id:        uuid.New(),
		variant:   models.VariantVAR,
		names:     mv.Names(),
		k:         k,
		p:         bestP,
		a:         est.a,
		c:         est.c,
		sigma:     est.sigma,
		hist:      lastRows(y, bestP),
		residuals: est.resid,
		nObs:      est.n,
		residual:  spec.Residual,
	}
	if err := m.checkStability(1 + 1e-6); err != nil {
		return nil, err
	}
	m.diag = diagnostics(est, k, bestP)
	return m, nil
}

type estimation struct {
	a     []*mat.Dense
	c     *mat.VecDense
	sigma *mat.SymDense
	resid *mat.Dense
	n     int // effective observations
	m     int // regressors per equation
}

// estimate runs the least-squares VAR regression with a constant:
// y_t = c + A_1 y_{t-1} + ... + A_p y_{t-p} + u_t.
func estimate(y *mat.Dense, p int) (*estimation, error) {
	t, k := y.Dims()
	n := t - p
	m := 1 + p*k

	if n <= m {
		return nil, &econerr.InsufficientDataError{
			Stage: econerr.StageForecast, Need: p + m + 1, Got: t,
		}
	}

	dep := mat.NewDense(n, k, nil)
	x := mat.NewDense(n, m, nil)
	for i := 0; i < n; i++ {
		row := i + p
		for j := 0; j < k; j++ {
			dep.Set(i, j, y.At(row, j))
		}
		x.Set(i, 0, 1)
		col := 1
		for lag := 1; lag <= p; lag++ {
			for j := 0; j < k; j++ {
				x.Set(i, col, y.At(row-lag, j))
				col++
			}
		}
	}

	b, err := linreg.Solve(x, dep)
	if err != nil {
		return nil, err
	}

	c := mat.NewVecDense(k, nil)
	for eq := 0; eq < k; eq++ {
		c.SetVec(eq, b.At(0, eq))
	}
	a := make([]*mat.Dense, p)
	for lag := 0; lag < p; lag++ {
		aj := mat.NewDense(k, k, nil)
		rowOffset := 1 + lag*k
		for eq := 0; eq < k; eq++ {
			for j := 0; j < k; j++ {
				aj.Set(eq, j, b.At(rowOffset+j, eq))
			}
		}
		a[lag] = aj
	}

	var fitted, resid mat.Dense
	fitted.Mul(x, b)
	resid.Sub(dep, &fitted)

	var utu mat.Dense
	utu.Mul(resid.T(), &resid)
	df := float64(n - m)
	if df <= 0 {
		df = float64(n)
	}
	sigmaData := make([]float64, k*k)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			sigmaData[i*k+j] = utu.At(i, j) / df
		}
	}

	return &estimation{
		a:     a,
		c:     c,
		sigma: mat.NewSymDense(k, sigmaData),
		resid: &resid,
		n:     n,
		m:     m,
	}, nil
}

// criterionValue computes AIC or BIC from the maximum-likelihood residual
// covariance: log|Sigma_ML| plus the parameter penalty.
func criterionValue(criterion config.Criterion, est *estimation, k, p int) float64 {
	n := float64(est.n)
	logDet := mlLogDet(est, k)
	params := float64(k*k*p + k)
	if criterion == config.BIC {
		return logDet + math.Log(n)*params/n
	}
	return logDet + 2*params/n
}

func mlLogDet(est *estimation, k int) float64 {
	var utu mat.Dense
	utu.Mul(est.resid.T(), est.resid)
	data := make([]float64, k*k)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			data[i*k+j] = utu.At(i, j) / float64(est.n)
		}
	}
	sym := mat.NewSymDense(k, data)
	var chol mat.Cholesky
	if chol.Factorize(sym) {
		return chol.LogDet()
	}
	det := mat.Det(sym)
	if det <= 0 {
		return math.Inf(-1)
	}
	return math.Log(det)
}

// checkStability computes the companion-matrix eigenvalues and fails when
// the largest modulus exceeds the bound. Cointegrated systems carry unit
// roots, so VECM callers pass a bound just above one.
func (m *Model) checkStability(bound float64) error {
	kp := m.k * m.p
	companion := mat.NewDense(kp, kp, nil)
	for lag := 0; lag < m.p; lag++ {
		for i := 0; i < m.k; i++ {
			for j := 0; j < m.k; j++ {
				companion.Set(i, lag*m.k+j, m.a[lag].At(i, j))
			}
		}
	}
	for i := m.k; i < kp; i++ {
		companion.Set(i, i-m.k, 1)
	}

	var eig mat.Eigen
	if !eig.Factorize(companion, mat.EigenNone) {
		return &econerr.ModelNotApplicableError{
			Stage:  econerr.StageForecast,
			Reason: "companion eigen decomposition failed",
		}
	}
	maxMod := 0.0
	for _, v := range eig.Values(nil) {
		mod := math.Hypot(real(v), imag(v))
		if mod > maxMod {
			maxMod = mod
		}
	}
	m.maxRootModulus = maxMod
	if maxMod > bound {
		return &econerr.UnstableModelError{
			Stage:      econerr.StageForecast,
			LagOrder:   m.p,
			MaxModulus: maxMod,
		}
	}
	return nil
}

// diagnostics attaches the advisory statistics: Gaussian log-likelihood,
// AIC/BIC, and a per-equation Ljung-Box portmanteau test on the residuals
// (worst equation reported).
func diagnostics(est *estimation, k, p int) models.Diagnostics {
	n := float64(est.n)
	logDet := mlLogDet(est, k)
	logLik := -n*float64(k)/2*(1+math.Log(2*math.Pi)) - n/2*logDet
	params := float64(k*k*p + k)

	d := models.Diagnostics{
		LogLikelihood: logLik,
		AIC:           -2*logLik + 2*params,
		BIC:           -2*logLik + params*math.Log(n),
	}

	h := 10
	if est.n/5 < h {
		h = est.n / 5
	}
	worstP := 1.0
	worstQ := 0.0
	for eq := 0; eq < k; eq++ {
		col := make([]float64, est.n)
		for i := range col {
			col[i] = est.resid.At(i, eq)
		}
		q, pv := ljungBox(col, h, p)
		if pv < worstP {
			worstP = pv
			worstQ = q
		}
	}
	d.LjungBoxStat = worstQ
	d.LjungBoxPValue = worstP
	d.ResidualsOK = worstP >= 0.05
	return d
}

// ljungBox computes the portmanteau statistic over h autocorrelation lags
// with fitted-lag adjustment.
func ljungBox(resid []float64, h, fittedLags int) (stat, pValue float64) {
	n := len(resid)
	if h < 1 || n < h+2 {
		return 0, 1
	}
	mean := 0.0
	for _, v := range resid {
		mean += v
	}
	mean /= float64(n)
	denom := 0.0
	for _, v := range resid {
		denom += (v - mean) * (v - mean)
	}
	if denom == 0 {
		return 0, 1
	}
	q := 0.0
	for l := 1; l <= h; l++ {
		acf := 0.0
		for i := l; i < n; i++ {
			acf += (resid[i] - mean) * (resid[i-l] - mean)
		}
		acf /= denom
		q += acf * acf / float64(n-l)
	}
	q *= float64(n) * float64(n+2)

	df := h - fittedLags
	if df < 1 {
		df = 1
	}
	chi := distuv.ChiSquared{K: float64(df)}
	pValue = 1 - chi.CDF(q)
	return q, pValue
}

func lastRows(y *mat.Dense, p int) *mat.Dense {
	t, k := y.Dims()
	out := mat.NewDense(p, k, nil)
	for i := 0; i < p; i++ {
		for j := 0; j < k; j++ {
			out.Set(i, j, y.At(t-p+i, j))
		}
	}
	return out
}
