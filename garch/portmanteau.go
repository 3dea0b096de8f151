package garch

import "gonum.org/v1/gonum/stat/distuv"

// portmanteau is the Ljung-Box statistic over h autocorrelation lags, applied
// to the squared standardized residuals to detect leftover ARCH structure.
func portmanteau(x []float64, h int) (stat, pValue float64) {
	n := len(x)
	if h < 1 || n < h+2 {
		return 0, 1
	}
	mean := 0.0
	for _, v := range x {
		mean += v
	}
	mean /= float64(n)
	denom := 0.0
	for _, v := range x {
		denom += (v - mean) * (v - mean)
	}
	if denom == 0 {
		return 0, 1
	}
	q := 0.0
	for l := 1; l <= h; l++ {
		acf := 0.0
		for i := l; i < n; i++ {
			acf += (x[i] - mean) * (x[i-l] - mean)
		}
		acf /= denom
		q += acf * acf / float64(n-l)
	}
	q *= float64(n) * float64(n+2)
	chi := distuv.ChiSquared{K: float64(h)}
	return q, 1 - chi.CDF(q)
}
