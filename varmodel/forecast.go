package varmodel

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/procurewise/econengine/econerr"
	"github.com/procurewise/econengine/internal/dist"
	"github.com/procurewise/econengine/models"
)

// Forecast iterates the fitted system forward and attaches central bands at
// the given confidence level. Step 0 anchors on the last observed values with
// zero-width bounds, so forecasting a horizon of zero reproduces the data.
func (m *Model) Forecast(horizon int, confidence float64) (*models.Forecast, error) {
	if horizon < 0 {
		return nil, &econerr.InvalidInputError{
			Stage: econerr.StageForecast, Reason: "horizon must be non-negative",
		}
	}
	if confidence <= 0 || confidence >= 1 {
		return nil, &econerr.InvalidInputError{
			Stage: econerr.StageForecast, Reason: "confidence must lie strictly between 0 and 1",
		}
	}

	// Ring of the last p observations, newest last, extended step by step.
	path := make([][]float64, m.p, m.p+horizon)
	for i := 0; i < m.p; i++ {
		row := make([]float64, m.k)
		for j := 0; j < m.k; j++ {
			row[j] = m.hist.At(i, j)
		}
		path[i] = row
	}
	for h := 0; h < horizon; h++ {
		next := make([]float64, m.k)
		for eq := 0; eq < m.k; eq++ {
			v := m.c.AtVec(eq)
			for lag := 1; lag <= m.p; lag++ {
				prev := path[len(path)-lag]
				for j := 0; j < m.k; j++ {
					v += m.a[lag-1].At(eq, j) * prev[j]
				}
			}
			next[eq] = v
		}
		path = append(path, next)
	}

	se := m.forecastStdErrs(horizon)
	z := dist.TwoSidedZ(m.residual.Family, m.residual.DOF, confidence)

	vars := make([]models.VariableForecast, m.k)
	for j := 0; j < m.k; j++ {
		pts := make([]models.ForecastPoint, horizon+1)
		anchor := path[m.p-1][j]
		pts[0] = models.ForecastPoint{Step: 0, Point: anchor, Lower: anchor, Upper: anchor}
		for h := 1; h <= horizon; h++ {
			pt := path[m.p-1+h][j]
			w := z * se[h-1][j]
			pts[h] = models.ForecastPoint{Step: h, Point: pt, Lower: pt - w, Upper: pt + w}
		}
		vars[j] = models.VariableForecast{Name: m.names[j], Points: pts}
	}

	return &models.Forecast{
		ModelID:      m.id,
		ModelVariant: m.variant,
		Confidence:   confidence,
		Horizon:      horizon,
		Variables:    vars,
	}, nil
}

// forecastStdErrs returns the per-variable forecast standard errors for steps
// 1..horizon from the MA representation: MSE(h) = sum_{j<h} Psi_j Sigma
// Psi_j'. Widths are non-decreasing in h because each term is positive
// semi-definite.
func (m *Model) forecastStdErrs(horizon int) [][]float64 {
	se := make([][]float64, horizon)
	if horizon == 0 {
		return se
	}

	psi := make([]*mat.Dense, horizon)
	psi0 := mat.NewDense(m.k, m.k, nil)
	for i := 0; i < m.k; i++ {
		psi0.Set(i, i, 1)
	}
	psi[0] = psi0
	for h := 1; h < horizon; h++ {
		acc := mat.NewDense(m.k, m.k, nil)
		for j := 1; j <= h && j <= m.p; j++ {
			var term mat.Dense
			term.Mul(m.a[j-1], psi[h-j])
			acc.Add(acc, &term)
		}
		psi[h] = acc
	}

	mse := mat.NewDense(m.k, m.k, nil)
	for h := 0; h < horizon; h++ {
		var ps, pss mat.Dense
		ps.Mul(psi[h], m.sigma)
		pss.Mul(&ps, psi[h].T())
		mse.Add(mse, &pss)
		row := make([]float64, m.k)
		for j := 0; j < m.k; j++ {
			row[j] = math.Sqrt(math.Max(mse.At(j, j), 0))
		}
		se[h] = row
	}
	return se
}

// ImpulseResponses traces the response of every variable to a one-standard-
// deviation orthogonalized shock in the named variable over the given number
// of steps. Shocks are orthogonalized by the Cholesky factor of the residual
// covariance, so responses depend on the variable ordering.
func (m *Model) ImpulseResponses(shockVar string, steps int) (map[string][]float64, error) {
	shock := -1
	for i, n := range m.names {
		if n == shockVar {
			shock = i
			break
		}
	}
	if shock < 0 {
		return nil, &econerr.InvalidInputError{
			Stage: econerr.StageForecast, Reason: "unknown variable " + shockVar,
		}
	}
	if steps < 1 {
		return nil, &econerr.InvalidInputError{
			Stage: econerr.StageForecast, Reason: "steps must be positive",
		}
	}

	var chol mat.Cholesky
	lower := mat.NewTriDense(m.k, mat.Lower, nil)
	if chol.Factorize(m.sigma) {
		chol.LTo(lower)
	} else {
		// Near-singular covariance: fall back to diagonal shocks.
		for i := 0; i < m.k; i++ {
			lower.SetTri(i, i, math.Sqrt(math.Max(m.sigma.At(i, i), 0)))
		}
	}
	impulse := mat.NewVecDense(m.k, nil)
	for i := 0; i < m.k; i++ {
		impulse.SetVec(i, lower.At(i, shock))
	}

	psi := make([]*mat.Dense, steps)
	psi0 := mat.NewDense(m.k, m.k, nil)
	for i := 0; i < m.k; i++ {
		psi0.Set(i, i, 1)
	}
	psi[0] = psi0
	for h := 1; h < steps; h++ {
		acc := mat.NewDense(m.k, m.k, nil)
		for j := 1; j <= h && j <= m.p; j++ {
			var term mat.Dense
			term.Mul(m.a[j-1], psi[h-j])
			acc.Add(acc, &term)
		}
		psi[h] = acc
	}

	out := make(map[string][]float64, m.k)
	for j, name := range m.names {
		resp := make([]float64, steps)
		for h := 0; h < steps; h++ {
			v := 0.0
			for v2 := 0; v2 < m.k; v2++ {
				v += psi[h].At(j, v2) * impulse.AtVec(v2)
			}
			resp[h] = v
		}
		out[name] = resp
	}
	return out, nil
}
