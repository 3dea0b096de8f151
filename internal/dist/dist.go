// Package dist maps the configured residual family onto quantile functions.
package dist

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/procurewise/econengine/config"
)

// Quantile returns the p-quantile of the standardized residual distribution.
// For Student-t the variance is rescaled to 1 so bands stay comparable across
// families.
func Quantile(family config.ResidualFamily, dof, p float64) float64 {
	if family == config.FamilyStudentT && dof > 2 {
		t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: dof}
		// Scale so the standardized distribution has unit variance.
		return t.Quantile(p) * math.Sqrt((dof-2)/dof)
	}
	n := distuv.Normal{Mu: 0, Sigma: 1}
	return n.Quantile(p)
}

// TwoSidedZ returns the positive critical value for a central interval at the
// given confidence level.
func TwoSidedZ(family config.ResidualFamily, dof, confidence float64) float64 {
	p := 0.5 + confidence/2
	return Quantile(family, dof, p)
}
