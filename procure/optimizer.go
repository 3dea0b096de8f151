package procure

import (
	"math"
	"sort"

	"github.com/procurewise/econengine/config"
	"github.com/procurewise/econengine/econerr"
	"github.com/procurewise/econengine/models"
)

// Optimize searches the quantity-by-timing grid for the cheapest plan to
// cover the demand, using the forecast price path of the named variable. The
// baseline is buying the exact demand immediately; the baseline point sits in
// the search grid, so the optimum never costs more than it.
func Optimize(fc *models.Forecast, variable string, assess *models.RiskAssessment, demand float64, cfg config.OptimizerConfig) (*models.ProcurementPlan, error) {
	if demand <= 0 {
		return nil, &econerr.InvalidInputError{
			Stage: econerr.StageProcurement, Reason: "demand must be positive",
		}
	}
	vf, ok := fc.ForVariable(variable)
	if !ok {
		return nil, &econerr.InvalidInputError{
			Stage: econerr.StageProcurement, Reason: "forecast has no variable " + variable,
		}
	}
	prices := make([]float64, len(vf.Points))
	for i, p := range vf.Points {
		if p.Point <= 0 {
			return nil, &econerr.ModelNotApplicableError{
				Stage:  econerr.StageProcurement,
				Reason: "forecast implies a non-positive price, cost model undefined",
			}
		}
		prices[i] = p.Point
	}

	grid := quantityGrid(demand, cfg)
	if len(grid) == 0 {
		return nil, &econerr.NoFeasibleSolutionError{
			Stage:  econerr.StageProcurement,
			Reason: "quantity constraints admit no order size covering the demand",
		}
	}

	baseline := planCost(demand, prices[0], 0, prices[0], demand, cfg)

	bestQ, bestStep := 0.0, 0
	bestCost := math.Inf(1)
	for step, price := range prices {
		for _, q := range grid {
			cost := planCost(q, price, step, prices[0], demand, cfg)
			// Strict improvement only, so ties keep the earliest step
			// and the smallest quantity.
			if cost < bestCost {
				bestCost = cost
				bestQ = q
				bestStep = step
			}
		}
	}
	if math.IsInf(bestCost, 1) {
		return nil, &econerr.NoFeasibleSolutionError{
			Stage:  econerr.StageProcurement,
			Reason: "no finite-cost plan on the search grid",
		}
	}

	return &models.ProcurementPlan{
		OrderQuantity:    bestQ,
		OrderStep:        bestStep,
		TotalCost:        bestCost,
		BaselineCost:     baseline,
		ProjectedSavings: baseline - bestCost,
		Scenarios:        timingScenarios(prices, bestStep, bestQ, demand, cfg),
		Forecast:         fc,
		Risk:             assess,
	}, nil
}

// planCost is the total cost of covering the demand with orders of size q at
// the given unit price: goods, fixed ordering charges per order placed,
// holding of the average cycle stock over a one-year planning period, and
// carrying the demand in stock at today's price for every step the order is
// delayed. Waiting is never free; a price drift smaller than the daily carry
// cannot justify it.
func planCost(q, price float64, step int, basePrice, demand float64, cfg config.OptimizerConfig) float64 {
	if q <= 0 {
		return math.Inf(1)
	}
	orders := math.Ceil(demand / q)
	goods := price * demand
	ordering := cfg.OrderingCost * orders
	holding := cfg.HoldingCostRate * 12 * price * q / 2
	delay := float64(step) * basePrice * cfg.HoldingCostRate / 30 * demand
	return goods + ordering + holding + delay
}

// quantityGrid returns the candidate order sizes: an even spread over
// [MinOrder, MaxCapacity] plus the exact demand when it is feasible.
func quantityGrid(demand float64, cfg config.OptimizerConfig) []float64 {
	lo, hi := cfg.MinOrder, cfg.MaxCapacity
	if lo <= 0 {
		lo = 1
	}
	if hi < lo {
		return nil
	}
	n := cfg.QuantityGridSize
	if n < 2 {
		n = 2
	}
	grid := make([]float64, 0, n+1)
	step := (hi - lo) / float64(n-1)
	for i := 0; i < n; i++ {
		grid = append(grid, lo+float64(i)*step)
	}
	if demand >= lo && demand <= hi {
		grid = append(grid, demand)
	}
	sort.Float64s(grid)
	return grid
}

// timingScenarios names the policies worth comparing: buy immediately, the
// optimizer's pick, and waiting for the lowest forecast price. Savings are
// net of the delay carrying cost, so chasing a distant low can come out
// negative.
func timingScenarios(prices []float64, optimalStep int, q, demand float64, cfg config.OptimizerConfig) []models.TimingScenario {
	baseline := planCost(demand, prices[0], 0, prices[0], demand, cfg)

	lowest := 0
	for i, p := range prices {
		if p < prices[lowest] {
			lowest = i
		}
	}

	mk := func(name string, step int, qty float64) models.TimingScenario {
		total := planCost(qty, prices[step], step, prices[0], demand, cfg)
		return models.TimingScenario{
			Name:      name,
			Step:      step,
			UnitPrice: prices[step],
			TotalCost: total,
			Savings:   baseline - total,
		}
	}
	return []models.TimingScenario{
		mk("buy-now", 0, demand),
		mk("optimal", optimalStep, q),
		mk("lowest-price", lowest, demand),
	}
}
