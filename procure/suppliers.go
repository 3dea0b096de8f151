package procure

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/procurewise/econengine/econerr"
	"github.com/procurewise/econengine/models"
)

// SupplierQuote is one supplier's offer for the commodity.
type SupplierQuote struct {
	Supplier         string
	UnitPrice        decimal.Decimal
	LogisticsPerUnit decimal.Decimal
	PaymentTermDays  int
}

var daysPerYear = decimal.NewFromInt(365)

// RankSuppliers orders quotes by total landed cost for the given quantity:
// goods plus logistics plus the financing cost of carrying the payment term
// at the annual rate. All money math is exact decimal; ties on cost are
// broken by supplier name so the ordering is total.
func RankSuppliers(quotes []SupplierQuote, quantity float64, annualRate float64) ([]models.SupplierCost, error) {
	if len(quotes) == 0 {
		return nil, &econerr.InvalidInputError{
			Stage: econerr.StageProcurement, Reason: "no supplier quotes",
		}
	}
	if quantity <= 0 {
		return nil, &econerr.InvalidInputError{
			Stage: econerr.StageProcurement, Reason: "quantity must be positive",
		}
	}
	qty := decimal.NewFromFloat(quantity)
	rate := decimal.NewFromFloat(annualRate)

	costs := make([]models.SupplierCost, 0, len(quotes))
	for _, q := range quotes {
		if q.UnitPrice.IsNegative() || q.LogisticsPerUnit.IsNegative() || q.PaymentTermDays < 0 {
			return nil, &econerr.InvalidInputError{
				Stage:  econerr.StageProcurement,
				Reason: "quote for " + q.Supplier + " has negative terms",
			}
		}
		goods := q.UnitPrice.Mul(qty)
		logistics := q.LogisticsPerUnit.Mul(qty)
		// Financing the goods value over the payment term.
		termFraction := decimal.NewFromInt(int64(q.PaymentTermDays)).Div(daysPerYear)
		financing := goods.Mul(rate).Mul(termFraction)
		total := goods.Add(logistics).Add(financing)
		costs = append(costs, models.SupplierCost{
			Supplier:      q.Supplier,
			UnitPrice:     q.UnitPrice,
			LogisticsCost: logistics,
			FinancingCost: financing,
			TotalCost:     total,
			CostPerUnit:   total.Div(qty),
		})
	}

	sort.Slice(costs, func(i, j int) bool {
		cmp := costs[i].TotalCost.Cmp(costs[j].TotalCost)
		if cmp != 0 {
			return cmp < 0
		}
		return costs[i].Supplier < costs[j].Supplier
	})
	return costs, nil
}

// FinancingRate returns the annual rate used to price payment terms: the
// working-capital floor or the forecast-implied price drift, whichever is
// higher. A supplier extending terms while prices rally costs more than the
// nominal capital charge.
func FinancingRate(workingCapitalRate float64, fc *models.Forecast, variable string) float64 {
	rate := workingCapitalRate
	if fc == nil || fc.Horizon < 1 {
		return rate
	}
	vf, ok := fc.ForVariable(variable)
	if !ok || len(vf.Points) < 2 {
		return rate
	}
	p0 := vf.Points[0].Point
	ph := vf.Points[len(vf.Points)-1].Point
	if p0 <= 0 {
		return rate
	}
	drift := (ph/p0 - 1) * 365 / float64(fc.Horizon)
	if drift > rate {
		return drift
	}
	return rate
}
