// Package procure converts price forecasts and risk assessments into
// purchasing decisions: supplier ranking by total landed cost, order quantity
// and timing optimization over a discrete grid, and named timing scenarios
// for comparison against a buy-now baseline.
package procure
