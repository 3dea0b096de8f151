// Package varmodel fits vector autoregressions and vector error-correction
// models: lag-order selection by information criterion, least-squares
// estimation, companion-matrix stability checks, impulse responses, and
// iterated forecasts whose confidence bands grow with the cumulative
// impulse-response variance.
package varmodel
