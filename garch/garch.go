package garch

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/optimize"

	"github.com/procurewise/econengine/config"
	"github.com/procurewise/econengine/econerr"
	"github.com/procurewise/econengine/models"
	"github.com/procurewise/econengine/timeseries"
)

// Spec bundles the fit parameters.
type Spec struct {
	P               int // ARCH order, lags of squared returns
	Q               int // GARCH order, lags of conditional variance
	MinObservations int
	MLE             config.MLEConfig
}

// Model is a fitted GARCH(p,q) variance process.
type Model struct {
	id    uuid.UUID
	name  string
	p, q  int
	omega float64
	alpha []float64
	beta  []float64

	// Fit-sample tail state used to seed forecasts.
	lastReturns   []float64 // most recent p returns, newest last
	lastVariances []float64 // most recent q conditional variances, newest last

	sampleVar float64
	nObs      int
	diag      models.Diagnostics
}

func (m *Model) ID() uuid.UUID                   { return m.id }
func (m *Model) Variant() models.Variant         { return models.VariantGARCH }
func (m *Model) Diagnostics() models.Diagnostics { return m.diag }

// Omega returns the fitted baseline variance parameter.
func (m *Model) Omega() float64 { return m.omega }

// Alpha returns the fitted ARCH coefficients.
func (m *Model) Alpha() []float64 { return append([]float64(nil), m.alpha...) }

// Beta returns the fitted GARCH coefficients.
func (m *Model) Beta() []float64 { return append([]float64(nil), m.beta...) }

// Persistence returns sum(alpha) + sum(beta). Values below one mean shocks
// decay and the variance forecast converges to LongRunVariance.
func (m *Model) Persistence() float64 {
	s := 0.0
	for _, a := range m.alpha {
		s += a
	}
	for _, b := range m.beta {
		s += b
	}
	return s
}

// LongRunVariance returns omega / (1 - persistence).
func (m *Model) LongRunVariance() float64 {
	return m.omega / (1 - m.Persistence())
}

// Fit estimates a GARCH(p,q) model on a return series by quasi-maximum
// likelihood using Nelder-Mead on log-transformed parameters. The input must
// carry the Returns kind; levels make the variance recursion meaningless.
func Fit(ret *timeseries.Series, spec Spec) (*Model, error) {
	if ret.Kind() != timeseries.Returns {
		return nil, &econerr.InvalidInputError{
			Stage:  econerr.StageVolatility,
			Reason: fmt.Sprintf("series %q is not a return series", ret.Name()),
		}
	}
	p, q := spec.P, spec.Q
	if p < 1 {
		p = 1
	}
	if q < 0 {
		q = 0
	}
	r := ret.Values()
	need := spec.MinObservations
	if need < 10*(1+p+q) {
		need = 10 * (1 + p + q)
	}
	if len(r) < need {
		return nil, &econerr.InsufficientDataError{
			Stage: econerr.StageVolatility, Variable: ret.Name(),
			Need: need, Got: len(r),
		}
	}

	mean := 0.0
	for _, v := range r {
		mean += v
	}
	mean /= float64(len(r))
	demeaned := make([]float64, len(r))
	sampleVar := 0.0
	for i, v := range r {
		demeaned[i] = v - mean
		sampleVar += demeaned[i] * demeaned[i]
	}
	sampleVar /= float64(len(r) - 1)
	if sampleVar <= 0 {
		return nil, &econerr.InvalidInputError{
			Stage:  econerr.StageVolatility,
			Reason: "return series has zero variance",
		}
	}

	maxIter := spec.MLE.MaxIterations
	if maxIter <= 0 {
		maxIter = 500
	}
	tol := spec.MLE.Tolerance
	if tol <= 0 {
		tol = 1e-8
	}

	// Parameters live on the log scale so positivity is automatic;
	// persistence >= 1 is discouraged with a smooth penalty and rejected
	// after the fact.
	nll := func(x []float64) float64 {
		omega, alpha, beta := transform(x, p, q)
		return negLogLik(demeaned, omega, alpha, beta, sampleVar)
	}
	x0 := make([]float64, 1+p+q)
	x0[0] = math.Log(sampleVar * 0.1)
	for i := 0; i < p; i++ {
		x0[1+i] = math.Log(0.1 / float64(p))
	}
	for j := 0; j < q; j++ {
		x0[1+p+j] = math.Log(0.8 / float64(q+1))
	}

	problem := optimize.Problem{Func: nll}
	settings := &optimize.Settings{
		MajorIterations: maxIter,
		Converger: &optimize.FunctionConverge{
			Absolute:   tol,
			Iterations: 50,
		},
	}
	result, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if err != nil {
		return nil, &econerr.NonConvergentFitError{
			Stage: econerr.StageVolatility, Iterations: maxIter,
			Reason: err.Error(),
		}
	}
	if result.Status == optimize.IterationLimit {
		return nil, &econerr.NonConvergentFitError{
			Stage: econerr.StageVolatility, Iterations: maxIter,
			Reason: "iteration budget exhausted before convergence",
		}
	}

	omega, alpha, beta := transform(result.X, p, q)
	persistence := 0.0
	for _, a := range alpha {
		persistence += a
	}
	for _, b := range beta {
		persistence += b
	}
	if persistence >= 1 {
		return nil, &econerr.NonConvergentFitError{
			Stage: econerr.StageVolatility, Iterations: int(result.Stats.MajorIterations),
			Reason: fmt.Sprintf("fitted persistence %.4f is non-stationary", persistence),
		}
	}

	h := varianceRecursion(demeaned, omega, alpha, beta, sampleVar)
	logLik := 0.0
	for t, ht := range h {
		logLik -= 0.5 * (math.Log(2*math.Pi) + math.Log(ht) + demeaned[t]*demeaned[t]/ht)
	}
	nParams := float64(1 + p + q)
	n := float64(len(r))

	m := &Model{
		id:        uuid.New(),
		name:      ret.Name(),
		p:         p,
		q:         q,
		omega:     omega,
		alpha:     alpha,
		beta:      beta,
		sampleVar: sampleVar,
		nObs:      len(r),
		diag: models.Diagnostics{
			LogLikelihood: logLik,
			AIC:           -2*logLik + 2*nParams,
			BIC:           -2*logLik + nParams*math.Log(n),
		},
	}

	m.lastReturns = make([]float64, p)
	for i := 0; i < p; i++ {
		m.lastReturns[i] = demeaned[len(demeaned)-p+i]
	}
	if q > 0 {
		m.lastVariances = make([]float64, q)
		for j := 0; j < q; j++ {
			m.lastVariances[j] = h[len(h)-q+j]
		}
	}

	// Standardized-residual Ljung-Box as a fit sanity check.
	std := make([]float64, len(demeaned))
	for t := range demeaned {
		std[t] = demeaned[t] * demeaned[t] / h[t]
	}
	stat, pv := portmanteau(std, 10)
	m.diag.LjungBoxStat = stat
	m.diag.LjungBoxPValue = pv
	m.diag.ResidualsOK = pv >= 0.05

	return m, nil
}

// ForecastVolatility projects the conditional variance forward. Index 0 of
// the returned path is the one-step-ahead variance; each further step applies
// h_{t+k} = omega + persistence * h_{t+k-1}, the multi-step expectation under
// E[r^2] = h.
func (m *Model) ForecastVolatility(horizon int) (*models.VolatilityPath, error) {
	if horizon < 1 {
		return nil, &econerr.InvalidInputError{
			Stage: econerr.StageVolatility, Reason: "horizon must be positive",
		}
	}
	variances := make([]float64, horizon)

	h1 := m.omega
	for i := 0; i < m.p; i++ {
		r := m.lastReturns[len(m.lastReturns)-1-i]
		h1 += m.alpha[i] * r * r
	}
	for j := 0; j < m.q; j++ {
		h1 += m.beta[j] * m.lastVariances[len(m.lastVariances)-1-j]
	}
	variances[0] = h1

	persistence := m.Persistence()
	for k := 1; k < horizon; k++ {
		variances[k] = m.omega + persistence*variances[k-1]
	}
	return &models.VolatilityPath{
		ModelID:         m.id,
		Variances:       variances,
		LongRunVariance: m.LongRunVariance(),
	}, nil
}

// transform maps the unconstrained optimizer parameters to (omega, alpha,
// beta) on the positive half-line.
func transform(x []float64, p, q int) (omega float64, alpha, beta []float64) {
	omega = math.Exp(x[0])
	alpha = make([]float64, p)
	for i := 0; i < p; i++ {
		alpha[i] = math.Exp(x[1+i])
	}
	beta = make([]float64, q)
	for j := 0; j < q; j++ {
		beta[j] = math.Exp(x[1+p+j])
	}
	return omega, alpha, beta
}

func negLogLik(r []float64, omega float64, alpha, beta []float64, sampleVar float64) float64 {
	persistence := 0.0
	for _, a := range alpha {
		persistence += a
	}
	for _, b := range beta {
		persistence += b
	}
	penalty := 0.0
	if persistence >= 0.999 {
		penalty = 1e6 * (persistence - 0.999)
	}

	h := varianceRecursion(r, omega, alpha, beta, sampleVar)
	nll := 0.0
	for t, ht := range h {
		if ht <= 0 || math.IsNaN(ht) || math.IsInf(ht, 0) {
			return math.Inf(1)
		}
		nll += 0.5 * (math.Log(ht) + r[t]*r[t]/ht)
	}
	return nll + penalty
}

// varianceRecursion runs the GARCH recursion over the sample, seeding
// pre-sample squared returns and variances with the sample variance.
func varianceRecursion(r []float64, omega float64, alpha, beta []float64, sampleVar float64) []float64 {
	p, q := len(alpha), len(beta)
	n := len(r)
	h := make([]float64, n)
	for t := 0; t < n; t++ {
		ht := omega
		for i := 0; i < p; i++ {
			if t-1-i >= 0 {
				ht += alpha[i] * r[t-1-i] * r[t-1-i]
			} else {
				ht += alpha[i] * sampleVar
			}
		}
		for j := 0; j < q; j++ {
			if t-1-j >= 0 {
				ht += beta[j] * h[t-1-j]
			} else {
				ht += beta[j] * sampleVar
			}
		}
		h[t] = ht
	}
	return h
}
