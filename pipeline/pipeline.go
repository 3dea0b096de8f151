package pipeline

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/procurewise/econengine/causality"
	"github.com/procurewise/econengine/config"
	"github.com/procurewise/econengine/econerr"
	"github.com/procurewise/econengine/garch"
	"github.com/procurewise/econengine/models"
	"github.com/procurewise/econengine/procure"
	"github.com/procurewise/econengine/risk"
	"github.com/procurewise/econengine/stationarity"
	"github.com/procurewise/econengine/timeseries"
	"github.com/procurewise/econengine/varmodel"
)

// Request describes one analysis run.
type Request struct {
	Panel   *timeseries.Multivariate
	Target  string // variable to forecast and procure
	Horizon int    // forecast steps

	// Procurement inputs; a zero Demand skips the optimizer.
	Demand   float64
	Exposure float64 // units currently held or committed
	Quotes   []procure.SupplierQuote
}

// Result is the full audit trail of a run. Fields past the stage that failed
// are nil.
type Result struct {
	RunID         uuid.UUID
	Stationarity  *stationarity.Report
	Causality     *causality.Matrix
	Cointegration *stationarity.CointegrationResult
	Model         models.Fitted
	Forecast      *models.Forecast
	Volatility    *models.VolatilityPath
	Risk          *models.RiskAssessment
	Plan          *models.ProcurementPlan

	// Variables retained after causality pruning.
	Variables []string
}

// Runner wires the analysis stages together under one configuration.
type Runner struct {
	cfg config.Config
	log logrus.FieldLogger
}

// NewRunner validates the configuration and returns a ready Runner.
func NewRunner(cfg config.Config, log logrus.FieldLogger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Runner{cfg: cfg, log: log}, nil
}

// Run executes the full pipeline. Screening and volatility fitting run
// concurrently with the stages they do not depend on; ctx cancellation is
// honored between stages.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Panel == nil || req.Panel.NumVars() == 0 {
		return nil, &econerr.InvalidInputError{
			Stage: econerr.StageSeriesStore, Reason: "empty panel",
		}
	}
	if _, err := req.Panel.Column(req.Target); err != nil {
		return nil, err
	}
	if req.Horizon < 1 {
		return nil, &econerr.InvalidInputError{
			Stage: econerr.StageForecast, Reason: "horizon must be positive",
		}
	}

	res := &Result{RunID: uuid.New()}
	log := r.log.WithFields(logrus.Fields{
		"run_id": res.RunID,
		"target": req.Target,
		"vars":   req.Panel.NumVars(),
		"obs":    req.Panel.Len(),
	})
	log.Info("starting analysis run")

	if err := r.screen(ctx, req, res, log); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	panel := r.prune(req, res, log)
	res.Variables = panel.Names()

	if err := r.fitAndForecast(ctx, panel, req, res, log); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := r.assessRisk(req, res, log); err != nil {
		return nil, err
	}

	if req.Demand > 0 {
		if err := r.optimize(req, res, log); err != nil {
			return nil, err
		}
	}

	log.Info("analysis run complete")
	return res, nil
}

// screen runs the stationarity and causality tests concurrently. A
// single-variable panel skips causality.
func (r *Runner) screen(ctx context.Context, req Request, res *Result, log logrus.FieldLogger) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		report, err := stationarity.Analyze(req.Panel, r.cfg)
		if err != nil {
			return err
		}
		res.Stationarity = report
		return nil
	})
	if req.Panel.NumVars() >= 2 {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			m, err := causality.Test(req.Panel, r.cfg.MaxLagOrder, r.cfg.Causality)
			if err != nil {
				return err
			}
			res.Causality = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"all_stationary":     res.Stationarity.AllStationary(),
		"all_non_stationary": res.Stationarity.AllNonStationary(),
	}).Info("screening complete")
	return nil
}

// prune drops variables with no significant causal link to the target when
// pruning is enabled. The target always stays.
func (r *Runner) prune(req Request, res *Result, log logrus.FieldLogger) *timeseries.Multivariate {
	if !r.cfg.Causality.PruneVariables || res.Causality == nil {
		return req.Panel
	}
	keep := []string{req.Target}
	for _, cause := range res.Causality.Causes(req.Target) {
		keep = append(keep, cause)
	}
	if len(keep) == req.Panel.NumVars() {
		return req.Panel
	}
	pruned, err := req.Panel.Select(keep...)
	if err != nil {
		log.WithError(err).Warn("variable pruning failed, keeping full panel")
		return req.Panel
	}
	log.WithField("kept", keep).Info("pruned panel to causal variables")
	return pruned
}

// fitAndForecast selects the model form from the screening results, fits it
// concurrently with the volatility model, and produces the levels forecast.
func (r *Runner) fitAndForecast(ctx context.Context, panel *timeseries.Multivariate, req Request, res *Result, log logrus.FieldLogger) error {
	spec := varmodel.Spec{
		MaxLag:          r.cfg.MaxLagOrder,
		Criterion:       r.cfg.InformationCriterion,
		MinObservations: r.cfg.MinObservations,
		Residual:        r.cfg.Residual,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return r.fitMean(panel, req, res, spec, log)
	})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.fitVolatility(req, res, log)
		return nil
	})
	return g.Wait()
}

// fitMean picks between VAR in levels, VECM, and VAR in differences.
func (r *Runner) fitMean(panel *timeseries.Multivariate, req Request, res *Result, spec varmodel.Spec, log logrus.FieldLogger) error {
	switch {
	case res.Stationarity.AllStationary():
		log.Info("all variables stationary, fitting VAR in levels")
		return r.fitLevelsVAR(panel, req, res, spec)

	case res.Stationarity.AllNonStationary() && panel.NumVars() >= 2:
		m, coint, err := varmodel.FitVECMSearch(panel, spec)
		var notApplicable *econerr.ModelNotApplicableError
		if errors.As(err, &notApplicable) {
			log.WithError(err).Warn("cointegration test not applicable, falling back to differences")
			return r.fitDifferencedVAR(panel, req, res, spec, log)
		}
		if err != nil {
			return err
		}
		res.Cointegration = coint
		if m == nil {
			log.Info("no cointegration at any candidate lag, fitting VAR in differences")
			return r.fitDifferencedVAR(panel, req, res, spec, log)
		}
		log.WithFields(logrus.Fields{"rank": coint.Rank, "lag": m.LagOrder()}).Info("cointegration found, fitting VECM")
		res.Model = m
		fc, err := m.Forecast(req.Horizon, r.cfg.ConfidenceLevel)
		if err != nil {
			return err
		}
		res.Forecast = fc
		return nil

	default:
		// Mixed integration orders: difference everything once rather
		// than mixing levels and differences in one system.
		log.Warn("mixed stationarity across variables, fitting VAR in differences")
		return r.fitDifferencedVAR(panel, req, res, spec, log)
	}
}

func (r *Runner) fitLevelsVAR(panel *timeseries.Multivariate, req Request, res *Result, spec varmodel.Spec) error {
	m, err := varmodel.Fit(panel, spec)
	if err != nil {
		return err
	}
	res.Model = m
	fc, err := m.Forecast(req.Horizon, r.cfg.ConfidenceLevel)
	if err != nil {
		return err
	}
	res.Forecast = fc
	return nil
}

// fitDifferencedVAR fits the VAR on first differences and integrates the
// forecast back to levels, cumulating the band variances so the levels bands
// widen with horizon.
func (r *Runner) fitDifferencedVAR(panel *timeseries.Multivariate, req Request, res *Result, spec varmodel.Spec, log logrus.FieldLogger) error {
	diffed, err := panel.Diff(1)
	if err != nil {
		return err
	}
	m, err := varmodel.Fit(diffed, spec)
	if err != nil {
		return err
	}
	res.Model = m
	diffFC, err := m.Forecast(req.Horizon, r.cfg.ConfidenceLevel)
	if err != nil {
		return err
	}
	res.Forecast = integrateForecast(diffFC, panel)
	return nil
}

// integrateForecast converts a forecast of first differences into a forecast
// of levels anchored at the last observation. Point paths are cumulative
// sums; band half-widths combine as the square root of the summed squared
// step widths, since step innovations accumulate independently.
func integrateForecast(diffFC *models.Forecast, panel *timeseries.Multivariate) *models.Forecast {
	last := panel.LastRow()
	names := panel.Names()

	out := &models.Forecast{
		ModelID:      diffFC.ModelID,
		ModelVariant: diffFC.ModelVariant,
		Confidence:   diffFC.Confidence,
		Horizon:      diffFC.Horizon,
		Variables:    make([]models.VariableForecast, len(diffFC.Variables)),
	}
	for i, vf := range diffFC.Variables {
		anchor := last[i]
		for j, n := range names {
			if n == vf.Name {
				anchor = last[j]
				break
			}
		}
		pts := make([]models.ForecastPoint, len(vf.Points))
		pts[0] = models.ForecastPoint{Step: 0, Point: anchor, Lower: anchor, Upper: anchor}
		level := anchor
		sumSq := 0.0
		for h := 1; h < len(vf.Points); h++ {
			p := vf.Points[h]
			level += p.Point
			w := (p.Upper - p.Lower) / 2
			sumSq += w * w
			width := math.Sqrt(sumSq)
			pts[h] = models.ForecastPoint{
				Step:  h,
				Point: level,
				Lower: level - width,
				Upper: level + width,
			}
		}
		out.Variables[i] = models.VariableForecast{Name: vf.Name, Points: pts}
	}
	return out
}

// fitVolatility fits the GARCH model on the target's returns. Volatility is
// advisory: a failed fit logs a warning and the run continues with bands
// backed out of the mean forecast instead.
func (r *Runner) fitVolatility(req Request, res *Result, log logrus.FieldLogger) {
	col, err := req.Panel.Column(req.Target)
	if err != nil {
		log.WithError(err).Warn("volatility stage skipped")
		return
	}
	ret, err := col.PctReturns()
	if err != nil {
		log.WithError(err).Warn("volatility stage skipped")
		return
	}
	m, err := garch.Fit(ret, garch.Spec{
		P:               r.cfg.GARCH.P,
		Q:               r.cfg.GARCH.Q,
		MinObservations: r.cfg.MinObservations,
		MLE:             r.cfg.MLE,
	})
	if err != nil {
		log.WithError(err).Warn("volatility fit failed, continuing without it")
		return
	}
	path, err := m.ForecastVolatility(req.Horizon)
	if err != nil {
		log.WithError(err).Warn("volatility forecast failed, continuing without it")
		return
	}
	res.Volatility = path
	log.WithFields(logrus.Fields{
		"persistence":       m.Persistence(),
		"long_run_variance": path.LongRunVariance,
	}).Info("volatility model fitted")
}

func (r *Runner) assessRisk(req Request, res *Result, log logrus.FieldLogger) error {
	col, err := req.Panel.Column(req.Target)
	if err != nil {
		return err
	}
	qty := req.Exposure
	if qty <= 0 {
		qty = req.Demand
	}
	if qty <= 0 {
		qty = 1
	}
	assessment, err := risk.Assess(
		risk.Exposure{Price: col.Last(), Quantity: qty},
		res.Forecast, res.Volatility,
		r.cfg.Risk, r.cfg.Residual, r.cfg.ConfidenceLevel,
	)
	if err != nil {
		return err
	}
	res.Risk = assessment
	log.WithFields(logrus.Fields{
		"var":        assessment.ValueAtRisk,
		"level":      assessment.Level,
		"hedge":      assessment.HedgeRatio,
		"daily_vol":  assessment.DailyVol,
		"annualized": assessment.AnnualizedVol,
	}).Info("risk assessed")
	return nil
}

func (r *Runner) optimize(req Request, res *Result, log logrus.FieldLogger) error {
	plan, err := procure.Optimize(res.Forecast, req.Target, res.Risk, req.Demand, r.cfg.Optimizer)
	if err != nil {
		return err
	}
	if len(req.Quotes) > 0 {
		rate := procure.FinancingRate(r.cfg.Optimizer.WorkingCapitalRate, res.Forecast, req.Target)
		suppliers, err := procure.RankSuppliers(req.Quotes, plan.OrderQuantity, rate)
		if err != nil {
			return err
		}
		plan.Suppliers = suppliers
	}
	res.Plan = plan
	log.WithFields(logrus.Fields{
		"quantity": plan.OrderQuantity,
		"step":     plan.OrderStep,
		"savings":  plan.ProjectedSavings,
	}).Info("procurement plan ready")
	return nil
}
