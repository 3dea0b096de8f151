package timeseries

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/procurewise/econengine/econerr"
)

// GapPolicy controls how timestamps missing from some variables are handled
// during alignment.
type GapPolicy int

const (
	// GapInnerJoin keeps only timestamps present in every series.
	GapInnerJoin GapPolicy = iota
	// GapForwardFill takes the union of timestamps and carries each
	// variable's last observed value forward. Rows before a variable's first
	// observation are dropped.
	GapForwardFill
)

// Multivariate is an aligned panel of variables sharing one timestamp index.
// Every row holds a value for every variable; no raw missingness survives
// alignment. The backing matrix is row-per-timestamp, column-per-variable.
type Multivariate struct {
	names []string
	index []time.Time
	y     *mat.Dense
}

// Align builds a Multivariate from one or more series under the given gap
// policy.
func Align(policy GapPolicy, series ...*Series) (*Multivariate, error) {
	if len(series) == 0 {
		return nil, &econerr.InvalidInputError{
			Stage: econerr.StageSeriesStore, Reason: "no series to align",
		}
	}
	seen := make(map[string]bool, len(series))
	for _, s := range series {
		if s == nil || s.Len() == 0 {
			return nil, &econerr.InvalidInputError{
				Stage: econerr.StageSeriesStore, Reason: "nil or empty series",
			}
		}
		if seen[s.name] {
			return nil, &econerr.InvalidInputError{
				Stage: econerr.StageSeriesStore, Reason: fmt.Sprintf("duplicate variable name %q", s.name),
			}
		}
		seen[s.name] = true
	}

	var index []time.Time
	switch policy {
	case GapInnerJoin:
		index = intersectIndex(series)
	case GapForwardFill:
		index = unionIndex(series)
	default:
		return nil, &econerr.InvalidInputError{
			Stage: econerr.StageSeriesStore, Reason: fmt.Sprintf("unknown gap policy %d", policy),
		}
	}

	k := len(series)
	rows := make([][]float64, 0, len(index))
	kept := make([]time.Time, 0, len(index))

	cursors := make([]int, k)
	lastVal := make([]float64, k)
	hasVal := make([]bool, k)

	for _, ts := range index {
		row := make([]float64, k)
		complete := true
		for j, s := range series {
			for cursors[j] < s.Len() && !s.timestamps[cursors[j]].After(ts) {
				lastVal[j] = s.values[cursors[j]]
				hasVal[j] = true
				cursors[j]++
			}
			if !hasVal[j] {
				complete = false
				continue
			}
			row[j] = lastVal[j]
		}
		if !complete {
			// Leading gap under forward fill: drop the row.
			continue
		}
		rows = append(rows, row)
		kept = append(kept, ts)
	}

	if len(rows) == 0 {
		return nil, &econerr.InsufficientDataError{
			Stage: econerr.StageSeriesStore, Need: 1, Got: 0,
		}
	}

	data := make([]float64, len(rows)*k)
	for i, row := range rows {
		copy(data[i*k:(i+1)*k], row)
	}
	names := make([]string, k)
	for j, s := range series {
		names[j] = s.name
	}
	return &Multivariate{names: names, index: kept, y: mat.NewDense(len(rows), k, data)}, nil
}

func intersectIndex(series []*Series) []time.Time {
	counts := make(map[int64]int)
	order := make(map[int64]time.Time)
	for _, s := range series {
		for _, ts := range s.timestamps {
			key := ts.UnixNano()
			counts[key]++
			order[key] = ts
		}
	}
	var out []time.Time
	for key, n := range counts {
		if n == len(series) {
			out = append(out, order[key])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func unionIndex(series []*Series) []time.Time {
	seen := make(map[int64]time.Time)
	for _, s := range series {
		for _, ts := range s.timestamps {
			seen[ts.UnixNano()] = ts
		}
	}
	out := make([]time.Time, 0, len(seen))
	for _, ts := range seen {
		out = append(out, ts)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Names returns the variable names in column order.
func (m *Multivariate) Names() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// Len returns the number of aligned rows.
func (m *Multivariate) Len() int {
	r, _ := m.y.Dims()
	return r
}

// NumVars returns the number of variables.
func (m *Multivariate) NumVars() int { return len(m.names) }

// Index returns a copy of the shared timestamp index.
func (m *Multivariate) Index() []time.Time {
	out := make([]time.Time, len(m.index))
	copy(out, m.index)
	return out
}

// Mat returns a copy of the backing matrix (rows = time, cols = variables).
func (m *Multivariate) Mat() *mat.Dense {
	return mat.DenseCopyOf(m.y)
}

// Column extracts one variable as a Series.
func (m *Multivariate) Column(name string) (*Series, error) {
	j, err := m.columnIndex(name)
	if err != nil {
		return nil, err
	}
	vals := make([]float64, m.Len())
	for i := range vals {
		vals[i] = m.y.At(i, j)
	}
	ts := make([]time.Time, len(m.index))
	copy(ts, m.index)
	return &Series{name: name, timestamps: ts, values: vals, kind: Levels}, nil
}

// Select returns a new Multivariate restricted to the named variables, in the
// given order.
func (m *Multivariate) Select(names ...string) (*Multivariate, error) {
	if len(names) == 0 {
		return nil, &econerr.InvalidInputError{
			Stage: econerr.StageSeriesStore, Reason: "no variables selected",
		}
	}
	cols := make([]int, len(names))
	for i, name := range names {
		j, err := m.columnIndex(name)
		if err != nil {
			return nil, err
		}
		cols[i] = j
	}
	rows := m.Len()
	data := make([]float64, rows*len(names))
	for i := 0; i < rows; i++ {
		for c, j := range cols {
			data[i*len(names)+c] = m.y.At(i, j)
		}
	}
	idx := make([]time.Time, len(m.index))
	copy(idx, m.index)
	sel := make([]string, len(names))
	copy(sel, names)
	return &Multivariate{names: sel, index: idx, y: mat.NewDense(rows, len(names), data)}, nil
}

// Diff returns a new panel holding the d-th difference of every column. The
// first d rows of the index are consumed.
func (m *Multivariate) Diff(d int) (*Multivariate, error) {
	if d < 1 {
		return nil, &econerr.InvalidInputError{
			Stage: econerr.StageSeriesStore, Reason: "differencing order must be >= 1",
		}
	}
	rows, k := m.y.Dims()
	if rows <= d {
		return nil, &econerr.InsufficientDataError{
			Stage: econerr.StageSeriesStore, Need: d + 1, Got: rows,
		}
	}
	cur := m.y
	for n := 0; n < d; n++ {
		r, _ := cur.Dims()
		next := mat.NewDense(r-1, k, nil)
		for i := 1; i < r; i++ {
			for j := 0; j < k; j++ {
				next.Set(i-1, j, cur.At(i, j)-cur.At(i-1, j))
			}
		}
		cur = next
	}
	idx := make([]time.Time, rows-d)
	copy(idx, m.index[d:])
	names := make([]string, k)
	copy(names, m.names)
	return &Multivariate{names: names, index: idx, y: cur}, nil
}

// LastRow returns the most recent aligned observation per variable.
func (m *Multivariate) LastRow() []float64 {
	rows, k := m.y.Dims()
	out := make([]float64, k)
	for j := 0; j < k; j++ {
		out[j] = m.y.At(rows-1, j)
	}
	return out
}

func (m *Multivariate) columnIndex(name string) (int, error) {
	for j, n := range m.names {
		if n == name {
			return j, nil
		}
	}
	return 0, &econerr.InvalidInputError{
		Stage: econerr.StageSeriesStore, Reason: fmt.Sprintf("unknown variable %q", name),
	}
}
