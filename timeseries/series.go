package timeseries

import (
	"fmt"
	"math"
	"time"

	"github.com/procurewise/econengine/econerr"
)

// Kind distinguishes raw price levels from derived returns. Downstream models
// that require stationary-by-construction input (GARCH) check it.
type Kind int

const (
	Levels Kind = iota
	Returns
)

func (k Kind) String() string {
	if k == Returns {
		return "returns"
	}
	return "levels"
}

// Series is an immutable, single-variable time series. Timestamps are
// strictly increasing with no duplicates.
type Series struct {
	name       string
	timestamps []time.Time
	values     []float64
	kind       Kind
}

// New constructs a Series after validating the timestamp invariant. The
// input slices are copied.
func New(name string, timestamps []time.Time, values []float64) (*Series, error) {
	if len(timestamps) != len(values) {
		return nil, &econerr.InvalidInputError{
			Stage:  econerr.StageSeriesStore,
			Reason: fmt.Sprintf("series %q: %d timestamps but %d values", name, len(timestamps), len(values)),
		}
	}
	for i := 1; i < len(timestamps); i++ {
		if !timestamps[i].After(timestamps[i-1]) {
			return nil, &econerr.InvalidInputError{
				Stage:  econerr.StageSeriesStore,
				Reason: fmt.Sprintf("series %q: timestamps must be strictly increasing (index %d)", name, i),
			}
		}
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &econerr.InvalidInputError{
				Stage:  econerr.StageSeriesStore,
				Reason: fmt.Sprintf("series %q: non-finite value at index %d", name, i),
			}
		}
	}
	ts := make([]time.Time, len(timestamps))
	copy(ts, timestamps)
	vs := make([]float64, len(values))
	copy(vs, values)
	return &Series{name: name, timestamps: ts, values: vs, kind: Levels}, nil
}

// FromValues constructs a daily-spaced Series starting at start. Convenience
// for synthetic data and tests.
func FromValues(name string, start time.Time, values []float64) (*Series, error) {
	timestamps := make([]time.Time, len(values))
	for i := range timestamps {
		timestamps[i] = start.AddDate(0, 0, i)
	}
	return New(name, timestamps, values)
}

// Name returns the variable name.
func (s *Series) Name() string { return s.name }

// Kind reports whether the series holds levels or returns.
func (s *Series) Kind() Kind { return s.kind }

// Len returns the number of observations.
func (s *Series) Len() int { return len(s.values) }

// At returns the observation at index i.
func (s *Series) At(i int) (time.Time, float64) { return s.timestamps[i], s.values[i] }

// Last returns the most recent value.
func (s *Series) Last() float64 { return s.values[len(s.values)-1] }

// Values returns a copy of the value slice.
func (s *Series) Values() []float64 {
	out := make([]float64, len(s.values))
	copy(out, s.values)
	return out
}

// Timestamps returns a copy of the timestamp index.
func (s *Series) Timestamps() []time.Time {
	out := make([]time.Time, len(s.timestamps))
	copy(out, s.timestamps)
	return out
}

// Mean returns the arithmetic mean of the series.
func (s *Series) Mean() float64 {
	if len(s.values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range s.values {
		sum += v
	}
	return sum / float64(len(s.values))
}

// Variance returns the sample variance.
func (s *Series) Variance() float64 {
	if len(s.values) < 2 {
		return 0
	}
	mean := s.Mean()
	sumSq := 0.0
	for _, v := range s.values {
		d := v - mean
		sumSq += d * d
	}
	return sumSq / float64(len(s.values)-1)
}

// Std returns the sample standard deviation.
func (s *Series) Std() float64 { return math.Sqrt(s.Variance()) }

// Diff returns the first difference of the series.
func (s *Series) Diff() *Series { return s.DiffN(1) }

// DiffN returns the n-th order difference, applied iteratively.
func (s *Series) DiffN(n int) *Series {
	cur := s
	for i := 0; i < n; i++ {
		if cur.Len() < 2 {
			return &Series{name: s.name + "_diff", kind: s.kind}
		}
		vals := make([]float64, cur.Len()-1)
		for t := 1; t < cur.Len(); t++ {
			vals[t-1] = cur.values[t] - cur.values[t-1]
		}
		ts := make([]time.Time, len(vals))
		copy(ts, cur.timestamps[1:])
		cur = &Series{name: s.name + "_diff", timestamps: ts, values: vals, kind: s.kind}
	}
	return cur
}

// PctReturns derives a simple-returns series from a levels series. The result
// is tagged Returns so volatility models can enforce their input contract.
func (s *Series) PctReturns() (*Series, error) {
	if s.kind != Levels {
		return nil, &econerr.InvalidInputError{
			Stage:  econerr.StageSeriesStore,
			Reason: fmt.Sprintf("series %q already holds returns", s.name),
		}
	}
	if s.Len() < 2 {
		return nil, &econerr.InsufficientDataError{
			Stage: econerr.StageSeriesStore, Variable: s.name, Need: 2, Got: s.Len(),
		}
	}
	vals := make([]float64, s.Len()-1)
	for t := 1; t < s.Len(); t++ {
		prev := s.values[t-1]
		if prev == 0 {
			return nil, &econerr.InvalidInputError{
				Stage:  econerr.StageSeriesStore,
				Reason: fmt.Sprintf("series %q: zero level at index %d, returns undefined", s.name, t-1),
			}
		}
		vals[t-1] = s.values[t]/prev - 1
	}
	ts := make([]time.Time, len(vals))
	copy(ts, s.timestamps[1:])
	return &Series{name: s.name + "_ret", timestamps: ts, values: vals, kind: Returns}, nil
}
