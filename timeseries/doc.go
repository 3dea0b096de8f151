// Package timeseries provides the typed, aligned series store the analysis
// pipeline runs on: immutable single-variable series with strictly increasing
// timestamps, and multivariate panels aligned to a common timestamp index
// under a configurable gap policy.
package timeseries
