package varmodel

import (
	"errors"
	"math"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/procurewise/econengine/config"
	"github.com/procurewise/econengine/econerr"
	"github.com/procurewise/econengine/internal/linreg"
	"github.com/procurewise/econengine/models"
	"github.com/procurewise/econengine/stationarity"
	"github.com/procurewise/econengine/timeseries"
)

// FitVECMSearch selects the error-correction lag order the same way Fit
// selects a VAR lag: candidates 2..MaxLag, keeping the fit that minimizes
// the configured information criterion, ties to the smallest lag. The rank
// test is re-run at every candidate so the cointegrating vectors and the
// regression share one lag order. When no candidate lag finds cointegration
// the model is nil and the rank-zero test result is returned for the caller
// to fall back on.
func FitVECMSearch(mv *timeseries.Multivariate, spec Spec) (*Model, *stationarity.CointegrationResult, error) {
	maxLag := spec.MaxLag
	if maxLag < 2 {
		maxLag = 2
	}

	var (
		best      *Model
		bestCoint *stationarity.CointegrationResult
		bestCrit  = math.Inf(1)
		rankZero  *stationarity.CointegrationResult
		lastErr   error
	)
	for p := 2; p <= maxLag; p++ {
		coint, err := stationarity.Johansen(mv, p)
		if err != nil {
			var notApplicable *econerr.ModelNotApplicableError
			if errors.As(err, &notApplicable) {
				return nil, nil, err
			}
			// Larger lags only need more data; keep what we have.
			lastErr = err
			break
		}
		if coint.Rank == 0 {
			if rankZero == nil {
				rankZero = coint
			}
			continue
		}
		m, err := FitVECM(mv, coint, spec)
		if err != nil {
			lastErr = err
			continue
		}
		crit := m.diag.AIC
		if spec.Criterion == config.BIC {
			crit = m.diag.BIC
		}
		if math.IsInf(crit, 0) || math.IsNaN(crit) {
			continue
		}
		if crit < bestCrit {
			best = m
			bestCoint = coint
			bestCrit = crit
		}
	}
	switch {
	case best != nil:
		return best, bestCoint, nil
	case rankZero != nil:
		return nil, rankZero, nil
	case lastErr != nil:
		return nil, nil, lastErr
	default:
		return nil, nil, &econerr.ModelNotApplicableError{
			Stage:  econerr.StageForecast,
			Reason: "no candidate lag order admits an error-correction fit",
		}
	}
}

// FitVECM estimates a vector error-correction model on a cointegrated panel,
// conditioning on the cointegrating vectors found by the Johansen procedure.
// The fitted model is converted to its levels VAR representation so that
// forecasting shares one code path with plain VAR models.
func FitVECM(mv *timeseries.Multivariate, coint *stationarity.CointegrationResult, spec Spec) (*Model, error) {
	if coint == nil || coint.Rank < 1 {
		return nil, &econerr.ModelNotApplicableError{
			Stage:  econerr.StageForecast,
			Reason: "error-correction form requires cointegrating rank of at least one",
		}
	}
	y := mv.Mat()
	t, k := y.Dims()
	r := coint.Rank
	p := coint.LagOrder
	if p < 2 {
		p = 2
	}
	n := t - p
	m := 1 + r + (p-1)*k
	if t < spec.MinObservations || n <= m {
		need := spec.MinObservations
		if need <= p+m {
			need = p + m + 1
		}
		return nil, &econerr.InsufficientDataError{
			Stage: econerr.StageForecast, Need: need, Got: t,
		}
	}

	beta := mat.NewDense(k, r, nil)
	for j := 0; j < r; j++ {
		for i := 0; i < k; i++ {
			beta.Set(i, j, coint.Vectors[j][i])
		}
	}

	// Regress dy_t on [1, beta'y_{t-1}, dy_{t-1}, ..., dy_{t-p+1}].
	dep := mat.NewDense(n, k, nil)
	x := mat.NewDense(n, m, nil)
	for i := 0; i < n; i++ {
		row := i + p
		for j := 0; j < k; j++ {
			dep.Set(i, j, y.At(row, j)-y.At(row-1, j))
		}
		x.Set(i, 0, 1)
		for j := 0; j < r; j++ {
			ect := 0.0
			for v := 0; v < k; v++ {
				ect += beta.At(v, j) * y.At(row-1, v)
			}
			x.Set(i, 1+j, ect)
		}
		col := 1 + r
		for lag := 1; lag <= p-1; lag++ {
			for j := 0; j < k; j++ {
				x.Set(i, col, y.At(row-lag, j)-y.At(row-lag-1, j))
				col++
			}
		}
	}

	b, err := linreg.Solve(x, dep)
	if err != nil {
		return nil, err
	}

	c := mat.NewVecDense(k, nil)
	alpha := mat.NewDense(k, r, nil)
	for eq := 0; eq < k; eq++ {
		c.SetVec(eq, b.At(0, eq))
		for j := 0; j < r; j++ {
			alpha.Set(eq, j, b.At(1+j, eq))
		}
	}
	gamma := make([]*mat.Dense, p-1)
	for lag := 0; lag < p-1; lag++ {
		g := mat.NewDense(k, k, nil)
		rowOffset := 1 + r + lag*k
		for eq := 0; eq < k; eq++ {
			for j := 0; j < k; j++ {
				g.Set(eq, j, b.At(rowOffset+j, eq))
			}
		}
		gamma[lag] = g
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

	vecs := make([][]float64, r)
	for j := 0; j < r; j++ {
		vecs[j] = append([]float64(nil), coint.Vectors[j]...)
	}

	mdl := &Model{
		id:        uuid.New(),
		variant:   models.VariantVECM,
		names:     mv.Names(),
		k:         k,
		p:         p,
		a:         levelsRepresentation(alpha, beta, gamma, k, p),
		c:         c,
		sigma:     mat.NewSymDense(k, sigmaData),
		alpha:     alpha,
		beta:      vecs,
		hist:      lastRows(y, p),
		residuals: &resid,
		nObs:      n,
		residual:  spec.Residual,
	}
	// Cointegrated systems carry unit roots; reject only explosive ones.
	if err := mdl.checkStability(1 + 1e-4); err != nil {
		return nil, err
	}
	mdl.diag = vecmDiagnostics(&resid, n, m, k, p)
	return mdl, nil
}

// levelsRepresentation converts the error-correction coefficients back to
// levels lag matrices: A_1 = I + alpha beta' + Gamma_1, A_j = Gamma_j -
// Gamma_{j-1}, A_p = -Gamma_{p-1}.
func levelsRepresentation(alpha, beta *mat.Dense, gamma []*mat.Dense, k, p int) []*mat.Dense {
	var pi mat.Dense
	pi.Mul(alpha, beta.T())

	a := make([]*mat.Dense, p)
	a1 := mat.NewDense(k, k, nil)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			v := pi.At(i, j)
			if i == j {
				v++
			}
			if len(gamma) > 0 {
				v += gamma[0].At(i, j)
			}
			a1.Set(i, j, v)
		}
	}
	a[0] = a1
	for lag := 1; lag < p-1; lag++ {
		aj := mat.NewDense(k, k, nil)
		aj.Sub(gamma[lag], gamma[lag-1])
		a[lag] = aj
	}
	ap := mat.NewDense(k, k, nil)
	if len(gamma) > 0 {
		ap.Scale(-1, gamma[len(gamma)-1])
	}
	a[p-1] = ap
	return a
}

func vecmDiagnostics(resid *mat.Dense, n, m, k, p int) models.Diagnostics {
	est := &estimation{resid: resid, n: n, m: m}
	d := diagnostics(est, k, p)
	// Parameter counts assume the full VAR form, so the reduced-rank
	// criteria reported here are conservative.
	if math.IsInf(d.AIC, -1) {
		d.AIC = 0
		d.BIC = 0
	}
	return d
}
