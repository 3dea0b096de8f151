package varmodel

import (
	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/procurewise/econengine/config"
	"github.com/procurewise/econengine/models"
)

// Spec controls a fit. It is passed explicitly on every call; the package
// keeps no defaults of its own.
type Spec struct {
	MaxLag          int
	Criterion       config.Criterion
	MinObservations int
	Residual        config.ResidualConfig
}

// Model is a fitted VAR or VECM. It is read-only after Fit returns: a new
// fit always starts from scratch on the full window.
type Model struct {
	id      uuid.UUID
	variant models.Variant
	names   []string
	k       int
	p       int

	a     []*mat.Dense  // lag coefficient matrices, each K x K
	c     *mat.VecDense // intercepts
	sigma *mat.SymDense // residual covariance

	// VECM only: adjustment loadings and the cointegrating vectors the fit
	// was conditioned on.
	alpha *mat.Dense
	beta  [][]float64

	hist           *mat.Dense // last p observations of the fitting sample
	residuals      *mat.Dense
	nObs           int
	maxRootModulus float64
	residual       config.ResidualConfig
	diag           models.Diagnostics
}

// ID returns the fit's identifier, stamped on every forecast for
// traceability.
func (m *Model) ID() uuid.UUID { return m.id }

// Variant reports whether the model is a VAR or a VECM.
func (m *Model) Variant() models.Variant { return m.variant }

// Diagnostics returns the advisory goodness-of-fit statistics.
func (m *Model) Diagnostics() models.Diagnostics { return m.diag }

// LagOrder returns the selected lag order.
func (m *Model) LagOrder() int { return m.p }

// Names returns the variable names in equation order.
func (m *Model) Names() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// Coefficients returns a copy of the lag-j coefficient matrix (1-based).
func (m *Model) Coefficients(j int) *mat.Dense {
	if j < 1 || j > m.p {
		return nil
	}
	return mat.DenseCopyOf(m.a[j-1])
}

// CointegratingVectors returns the vectors a VECM was conditioned on, or nil
// for a VAR.
func (m *Model) CointegratingVectors() [][]float64 {
	if m.beta == nil {
		return nil
	}
	out := make([][]float64, len(m.beta))
	for i, v := range m.beta {
		out[i] = make([]float64, len(v))
		copy(out[i], v)
	}
	return out
}

// MaxRootModulus returns the largest companion-root modulus of the fit.
func (m *Model) MaxRootModulus() float64 { return m.maxRootModulus }

// Residuals returns a copy of the in-sample residual matrix, one column per
// equation. Intended for advisory display alongside Diagnostics.
func (m *Model) Residuals() *mat.Dense {
	if m.residuals == nil {
		return nil
	}
	return mat.DenseCopyOf(m.residuals)
}
