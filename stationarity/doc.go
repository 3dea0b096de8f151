// Package stationarity runs the pre-modeling statistical tests: augmented
// Dickey-Fuller unit-root tests per variable with a differencing suggestion,
// and a Johansen-style trace test for cointegration rank. The rank decides
// whether the forecast model is a VAR on differences or a VECM on levels.
package stationarity
