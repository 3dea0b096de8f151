// Package config holds every tuning knob the analysis core consumes. The
// configuration is an explicit value threaded into each fit/optimize call;
// there are no process-wide mutable defaults.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Criterion selects the information criterion used for lag-order search.
type Criterion string

const (
	AIC Criterion = "aic"
	BIC Criterion = "bic"
)

// ResidualFamily selects the distribution assumed for forecast bands and VaR
// quantiles.
type ResidualFamily string

const (
	FamilyNormal   ResidualFamily = "normal"
	FamilyStudentT ResidualFamily = "student-t"
)

// Correction selects the multiple-comparison correction applied when Granger
// tests scan several candidate lag orders.
type Correction string

const (
	CorrectionBonferroni Correction = "bonferroni"
	CorrectionHolm       Correction = "holm"
	CorrectionNone       Correction = "none"
)

type Config struct {
	LogLevel string `mapstructure:"log_level"`

	MaxLagOrder          int       `mapstructure:"max_lag_order"`
	InformationCriterion Criterion `mapstructure:"information_criterion"`
	ConfidenceLevel      float64   `mapstructure:"confidence_level"`
	MinObservations      int       `mapstructure:"min_observations"`

	Residual  ResidualConfig  `mapstructure:"residual"`
	Causality CausalityConfig `mapstructure:"causality"`
	GARCH     GARCHConfig     `mapstructure:"garch"`
	MLE       MLEConfig       `mapstructure:"mle"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Optimizer OptimizerConfig `mapstructure:"optimizer"`
}

type ResidualConfig struct {
	Family ResidualFamily `mapstructure:"family"`
	DOF    float64        `mapstructure:"dof"` // Student-t degrees of freedom
}

type CausalityConfig struct {
	Correction     Correction `mapstructure:"correction"`
	Alpha          float64    `mapstructure:"alpha"`
	PruneVariables bool       `mapstructure:"prune_variables"`
}

type GARCHConfig struct {
	P int `mapstructure:"p"`
	Q int `mapstructure:"q"`
}

type MLEConfig struct {
	MaxIterations int     `mapstructure:"max_iterations"`
	Tolerance     float64 `mapstructure:"tolerance"`
}

type RiskConfig struct {
	// Daily-volatility band edges separating low/medium/high.
	LowVol  float64 `mapstructure:"low_vol"`
	HighVol float64 `mapstructure:"high_vol"`
	// Daily-volatility level at which a full hedge is recommended.
	Tolerance float64 `mapstructure:"tolerance"`
	// Trading periods per year, used to annualize volatility.
	AnnualizationFactor float64 `mapstructure:"annualization_factor"`
	// Scenario name -> fractional shock applied to the point forecast.
	Scenarios map[string]float64 `mapstructure:"scenarios"`
}

type OptimizerConfig struct {
	HoldingCostRate    float64 `mapstructure:"holding_cost_rate"`    // per month, fraction of unit value
	OrderingCost       float64 `mapstructure:"ordering_cost"`        // fixed cost per order
	WorkingCapitalRate float64 `mapstructure:"working_capital_rate"` // annual cost of capital floor
	MinOrder           float64 `mapstructure:"min_order"`            // units
	MaxCapacity        float64 `mapstructure:"max_capacity"`         // units
	QuantityGridSize   int     `mapstructure:"quantity_grid_size"`
}

// Default returns the documented defaults. Callers override per call site.
func Default() Config {
	return Config{
		LogLevel:             "info",
		MaxLagOrder:          8,
		InformationCriterion: AIC,
		ConfidenceLevel:      0.95,
		MinObservations:      50,
		Residual: ResidualConfig{
			Family: FamilyNormal,
			DOF:    5,
		},
		Causality: CausalityConfig{
			Correction:     CorrectionBonferroni,
			Alpha:          0.05,
			PruneVariables: true,
		},
		GARCH: GARCHConfig{P: 1, Q: 1},
		MLE: MLEConfig{
			MaxIterations: 2000,
			Tolerance:     1e-8,
		},
		Risk: RiskConfig{
			LowVol:              0.015,
			HighVol:             0.03,
			Tolerance:           0.05,
			AnnualizationFactor: 252,
			Scenarios: map[string]float64{
				"supply_shock":    0.10,
				"demand_collapse": -0.10,
				"currency_swing":  0.05,
			},
		},
		Optimizer: OptimizerConfig{
			HoldingCostRate:    0.02,
			OrderingCost:       25000,
			WorkingCapitalRate: 0.12,
			MinOrder:           50,
			MaxCapacity:        2000,
			QuantityGridSize:   20,
		},
	}
}

// Load reads configuration from the given file, falling back to defaults for
// anything unset.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("max_lag_order", def.MaxLagOrder)
	v.SetDefault("information_criterion", string(def.InformationCriterion))
	v.SetDefault("confidence_level", def.ConfidenceLevel)
	v.SetDefault("min_observations", def.MinObservations)
	v.SetDefault("residual.family", string(def.Residual.Family))
	v.SetDefault("residual.dof", def.Residual.DOF)
	v.SetDefault("causality.correction", string(def.Causality.Correction))
	v.SetDefault("causality.alpha", def.Causality.Alpha)
	v.SetDefault("causality.prune_variables", def.Causality.PruneVariables)
	v.SetDefault("garch.p", def.GARCH.P)
	v.SetDefault("garch.q", def.GARCH.Q)
	v.SetDefault("mle.max_iterations", def.MLE.MaxIterations)
	v.SetDefault("mle.tolerance", def.MLE.Tolerance)
	v.SetDefault("risk.low_vol", def.Risk.LowVol)
	v.SetDefault("risk.high_vol", def.Risk.HighVol)
	v.SetDefault("risk.tolerance", def.Risk.Tolerance)
	v.SetDefault("risk.annualization_factor", def.Risk.AnnualizationFactor)
	v.SetDefault("risk.scenarios", def.Risk.Scenarios)
	v.SetDefault("optimizer.holding_cost_rate", def.Optimizer.HoldingCostRate)
	v.SetDefault("optimizer.ordering_cost", def.Optimizer.OrderingCost)
	v.SetDefault("optimizer.working_capital_rate", def.Optimizer.WorkingCapitalRate)
	v.SetDefault("optimizer.min_order", def.Optimizer.MinOrder)
	v.SetDefault("optimizer.max_capacity", def.Optimizer.MaxCapacity)
	v.SetDefault("optimizer.quantity_grid_size", def.Optimizer.QuantityGridSize)
}

// Validate checks internal consistency of the configuration.
func (c Config) Validate() error {
	if c.MaxLagOrder < 1 {
		return errors.New("max_lag_order must be >= 1")
	}
	if c.InformationCriterion != AIC && c.InformationCriterion != BIC {
		return fmt.Errorf("information_criterion must be %q or %q", AIC, BIC)
	}
	if c.ConfidenceLevel <= 0 || c.ConfidenceLevel >= 1 {
		return errors.New("confidence_level must be in (0, 1)")
	}
	if c.MinObservations <= c.MaxLagOrder {
		return errors.New("min_observations must exceed max_lag_order")
	}
	switch c.Residual.Family {
	case FamilyNormal:
	case FamilyStudentT:
		if c.Residual.DOF <= 2 {
			return errors.New("residual.dof must be > 2 for student-t")
		}
	default:
		return fmt.Errorf("residual.family must be %q or %q", FamilyNormal, FamilyStudentT)
	}
	switch c.Causality.Correction {
	case CorrectionBonferroni, CorrectionHolm, CorrectionNone:
	default:
		return fmt.Errorf("causality.correction must be one of bonferroni, holm, none")
	}
	if c.Causality.Alpha <= 0 || c.Causality.Alpha >= 1 {
		return errors.New("causality.alpha must be in (0, 1)")
	}
	if c.GARCH.P < 1 || c.GARCH.Q < 0 {
		return errors.New("garch order requires p >= 1 and q >= 0")
	}
	if c.MLE.MaxIterations < 1 {
		return errors.New("mle.max_iterations must be >= 1")
	}
	if c.Risk.LowVol <= 0 || c.Risk.HighVol <= c.Risk.LowVol {
		return errors.New("risk thresholds require 0 < low_vol < high_vol")
	}
	if c.Risk.Tolerance <= 0 {
		return errors.New("risk.tolerance must be > 0")
	}
	if c.Risk.AnnualizationFactor <= 0 {
		return errors.New("risk.annualization_factor must be > 0")
	}
	if c.Optimizer.MinOrder <= 0 || c.Optimizer.MaxCapacity < c.Optimizer.MinOrder {
		return errors.New("optimizer requires 0 < min_order <= max_capacity")
	}
	if c.Optimizer.QuantityGridSize < 2 {
		return errors.New("optimizer.quantity_grid_size must be >= 2")
	}
	return nil
}
