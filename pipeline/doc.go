// Package pipeline orchestrates one end-to-end analysis run: stationarity and
// causality screening, model selection between VAR in levels, VAR in
// differences, and VECM, volatility fitting, risk assessment, and procurement
// optimization. Independent stages run concurrently; a failure in any
// required stage cancels the others.
package pipeline
