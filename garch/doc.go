// Package garch fits GARCH(p,q) conditional-variance models to return series
// by quasi-maximum likelihood and projects volatility paths forward. The
// fitted recursion is
//
//	h_t = omega + sum_i alpha_i r_{t-i}^2 + sum_j beta_j h_{t-j}
//
// and forecasts converge geometrically to the long-run variance
// omega / (1 - sum alpha - sum beta) when the process is stationary.
package garch
