// Package models defines the value records exchanged between analysis stages
// and exposed at the output boundary: forecasts, volatility paths, risk
// assessments, and procurement plans. Records are immutable once produced and
// safe to share across concurrent readers; downstream records keep read-only
// references to the upstream records they were derived from.
package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Variant tags a fitted model. Dispatch happens through the Fitted interface,
// never by inspecting strings at runtime.
type Variant string

const (
	VariantVAR   Variant = "VAR"
	VariantVECM  Variant = "VECM"
	VariantGARCH Variant = "GARCH"
)

// Diagnostics carries advisory goodness-of-fit statistics attached to a
// fitted model. They never block forecasting.
type Diagnostics struct {
	AIC           float64
	BIC           float64
	LogLikelihood float64
	// Ljung-Box portmanteau test on residuals (worst equation).
	LjungBoxStat   float64
	LjungBoxPValue float64
	ResidualsOK    bool
}

// Fitted is the capability interface every fitted model variant implements.
type Fitted interface {
	ID() uuid.UUID
	Variant() Variant
	Diagnostics() Diagnostics
}

// ForecastPoint is one horizon step of a variable's forecast. Step 0 is the
// anchor: the last observed value with zero-width bounds.
type ForecastPoint struct {
	Step  int
	Point float64
	Lower float64
	Upper float64
}

// VariableForecast is the ordered forecast path for one variable.
type VariableForecast struct {
	Name   string
	Points []ForecastPoint
}

// Forecast is the output record of the forecast model. ModelID is a weak
// reference to the fitted model that produced it, kept for traceability only.
type Forecast struct {
	ModelID      uuid.UUID
	ModelVariant Variant
	Confidence   float64
	Horizon      int
	Variables    []VariableForecast
}

// ForVariable returns the forecast path for one variable.
func (f *Forecast) ForVariable(name string) (VariableForecast, bool) {
	for _, v := range f.Variables {
		if v.Name == name {
			return v, true
		}
	}
	return VariableForecast{}, false
}

// VolatilityPath is an ordered sequence of conditional variance forecasts
// aligned to the forecast horizon (index 0 = one step ahead).
type VolatilityPath struct {
	ModelID         uuid.UUID
	Variances       []float64
	LongRunVariance float64
}

// RiskLevel is the deterministic volatility-band classification.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RiskAssessment is the output record of the risk engine.
type RiskAssessment struct {
	ValueAtRisk   float64
	Confidence    float64
	StressDeltas  map[string]float64
	HedgeRatio    float64
	Level         RiskLevel
	DailyVol      float64
	AnnualizedVol float64

	// Read-only upstream references for auditability.
	Forecast   *Forecast
	Volatility *VolatilityPath
}

// SupplierCost is one supplier's total landed cost for a given quantity.
type SupplierCost struct {
	Supplier      string
	UnitPrice     decimal.Decimal
	LogisticsCost decimal.Decimal
	FinancingCost decimal.Decimal
	TotalCost     decimal.Decimal
	CostPerUnit   decimal.Decimal
}

// TimingScenario describes one candidate purchase-timing policy and its
// projected economics.
type TimingScenario struct {
	Name      string
	Step      int
	UnitPrice float64
	TotalCost float64
	Savings   float64
}

// ProcurementPlan is the output record of the procurement optimizer.
type ProcurementPlan struct {
	OrderQuantity    float64
	OrderStep        int
	TotalCost        float64
	BaselineCost     float64
	ProjectedSavings float64
	Suppliers        []SupplierCost
	Scenarios        []TimingScenario

	// Read-only upstream references for auditability.
	Forecast *Forecast
	Risk     *RiskAssessment
}
