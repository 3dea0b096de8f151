// Package risk turns forecast and volatility outputs into procurement risk
// numbers: parametric value-at-risk, scenario stress deltas, a volatility
// band classification, and a hedge ratio recommendation.
package risk

import (
	"math"
	"sort"

	"github.com/procurewise/econengine/config"
	"github.com/procurewise/econengine/econerr"
	"github.com/procurewise/econengine/internal/dist"
	"github.com/procurewise/econengine/models"
)

// Exposure describes the position being assessed: the commodity's current
// unit price and the quantity held or committed.
type Exposure struct {
	Price    float64
	Quantity float64
}

// ComputeVaR returns the one-period parametric value-at-risk per unit of
// exposure: z * sigma * price, where z is the one-sided critical value of the
// configured residual family at the given confidence.
func ComputeVaR(price, dailyVol, confidence float64, family config.ResidualFamily, dof float64) (float64, error) {
	if price <= 0 {
		return 0, &econerr.InvalidInputError{
			Stage: econerr.StageRisk, Reason: "price must be positive",
		}
	}
	if dailyVol < 0 {
		return 0, &econerr.InvalidInputError{
			Stage: econerr.StageRisk, Reason: "volatility must be non-negative",
		}
	}
	if confidence <= 0 || confidence >= 1 {
		return 0, &econerr.InvalidInputError{
			Stage: econerr.StageRisk, Reason: "confidence must lie strictly between 0 and 1",
		}
	}
	z := dist.Quantile(family, dof, confidence)
	return z * dailyVol * price, nil
}

// StressTest applies each configured scenario shock to the exposure and
// returns the resulting cost delta per scenario. The delta is linear in the
// shock: shock * price * quantity.
func StressTest(exp Exposure, scenarios map[string]float64) map[string]float64 {
	deltas := make(map[string]float64, len(scenarios))
	for name, shock := range scenarios {
		deltas[name] = shock * exp.Price * exp.Quantity
	}
	return deltas
}

// Classify places a daily volatility into the low/medium/high band.
func Classify(dailyVol float64, cfg config.RiskConfig) models.RiskLevel {
	switch {
	case dailyVol < cfg.LowVol:
		return models.RiskLow
	case dailyVol < cfg.HighVol:
		return models.RiskMedium
	default:
		return models.RiskHigh
	}
}

// RecommendHedge maps volatility to a hedge ratio in [0, 1]: the fraction of
// exposure to cover. Volatility at or above the tolerance recommends a full
// hedge; the ratio scales linearly below it.
func RecommendHedge(dailyVol, tolerance float64) float64 {
	if tolerance <= 0 {
		return 1
	}
	ratio := dailyVol / tolerance
	if ratio < 0 {
		return 0
	}
	if ratio > 1 {
		return 1
	}
	return ratio
}

// Assess bundles the full risk picture for one exposure. The daily volatility
// is the square root of the one-step-ahead conditional variance; when the
// volatility path is missing the forecast bands are backed out instead.
func Assess(exp Exposure, fc *models.Forecast, vol *models.VolatilityPath, cfg config.RiskConfig, residual config.ResidualConfig, confidence float64) (*models.RiskAssessment, error) {
	if exp.Quantity <= 0 {
		return nil, &econerr.InvalidInputError{
			Stage: econerr.StageRisk, Reason: "exposure quantity must be positive",
		}
	}

	var dailyVol float64
	switch {
	case vol != nil && len(vol.Variances) > 0:
		dailyVol = math.Sqrt(vol.Variances[0])
	case fc != nil:
		dailyVol = impliedVol(fc, exp.Price, residual)
	default:
		return nil, &econerr.InvalidInputError{
			Stage: econerr.StageRisk, Reason: "need a volatility path or a forecast",
		}
	}

	varPerUnit, err := ComputeVaR(exp.Price, dailyVol, confidence, residual.Family, residual.DOF)
	if err != nil {
		return nil, err
	}

	af := cfg.AnnualizationFactor
	if af <= 0 {
		af = 252
	}
	return &models.RiskAssessment{
		ValueAtRisk:   varPerUnit * exp.Quantity,
		Confidence:    confidence,
		StressDeltas:  StressTest(exp, cfg.Scenarios),
		HedgeRatio:    RecommendHedge(dailyVol, cfg.Tolerance),
		Level:         Classify(dailyVol, cfg),
		DailyVol:      dailyVol,
		AnnualizedVol: dailyVol * math.Sqrt(af),
		Forecast:      fc,
		Volatility:    vol,
	}, nil
}

// impliedVol backs a one-step daily volatility out of the first forecast
// band: half-width / (z * price).
func impliedVol(fc *models.Forecast, price float64, residual config.ResidualConfig) float64 {
	if price <= 0 || len(fc.Variables) == 0 {
		return 0
	}
	z := dist.TwoSidedZ(residual.Family, residual.DOF, fc.Confidence)
	if z <= 0 {
		return 0
	}

	// Use the widest step-1 band across variables as the conservative read.
	vols := make([]float64, 0, len(fc.Variables))
	for _, v := range fc.Variables {
		if len(v.Points) < 2 {
			continue
		}
		p1 := v.Points[1]
		half := (p1.Upper - p1.Lower) / 2
		vols = append(vols, half/(z*price))
	}
	if len(vols) == 0 {
		return 0
	}
	sort.Float64s(vols)
	return vols[len(vols)-1]
}
