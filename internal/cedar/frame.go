// Package cedar handles CEDAR Madrigal data files: loading the supported
// file formats into a common time-indexed table, filename conventions, and
// the instrument code catalog.
package cedar

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Time index column mnemonics present in every CEDAR record layout.
var timeKeys = []string{"year", "month", "day", "hour", "min", "sec"}

// VarMeta describes one measured parameter.
type VarMeta struct {
	Name      string
	Units     string
	Desc      string
	FillValue float64
	MinVal    float64
	MaxVal    float64
	HasLimits bool
}

// Meta holds per-variable metadata and file-level catalog notes.
type Meta struct {
	Vars  map[string]VarMeta
	Notes string
}

// NewMeta returns an empty metadata set.
func NewMeta() *Meta {
	return &Meta{Vars: make(map[string]VarMeta)}
}

// Set stores metadata for one variable, keyed by lower-case name.
func (m *Meta) Set(v VarMeta) {
	v.Name = strings.ToLower(v.Name)
	m.Vars[v.Name] = v
}

// Get retrieves metadata for a variable.
func (m *Meta) Get(name string) (VarMeta, bool) {
	v, ok := m.Vars[strings.ToLower(name)]
	return v, ok
}

// Merge copies entries from other that are not already present.
func (m *Meta) Merge(other *Meta) {
	if other == nil {
		return
	}
	for k, v := range other.Vars {
		if _, ok := m.Vars[k]; !ok {
			m.Vars[k] = v
		}
	}
	if m.Notes == "" {
		m.Notes = other.Notes
	}
}

// Frame is a time-indexed table of float64 parameter columns. Column names
// are lower-case CEDAR mnemonics. All columns have the same length as Times.
type Frame struct {
	Times []time.Time
	cols  map[string][]float64
	order []string
}

// NewFrame creates an empty frame.
func NewFrame() *Frame {
	return &Frame{cols: make(map[string][]float64)}
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.Times)
}

// Columns returns the column names in insertion order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// HasColumn reports whether the named column exists.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.cols[strings.ToLower(name)]
	return ok
}

// Column returns the named column values.
func (f *Frame) Column(name string) ([]float64, bool) {
	c, ok := f.cols[strings.ToLower(name)]
	return c, ok
}

// SetColumn adds or replaces a column. The length must match the time index
// unless the frame is still empty of columns and times.
func (f *Frame) SetColumn(name string, vals []float64) error {
	name = strings.ToLower(name)
	if len(f.Times) > 0 && len(vals) != len(f.Times) {
		return fmt.Errorf("column %s has %d values, frame has %d rows", name, len(vals), len(f.Times))
	}
	if _, exists := f.cols[name]; !exists {
		f.order = append(f.order, name)
	}
	f.cols[name] = vals
	return nil
}

// Select keeps only the rows where keep is true. The keep slice must have
// one entry per row.
func (f *Frame) Select(keep []bool) error {
	if len(keep) != len(f.Times) {
		return fmt.Errorf("selection mask has %d entries, frame has %d rows", len(keep), len(f.Times))
	}

	n := 0
	for _, k := range keep {
		if k {
			n++
		}
	}

	times := make([]time.Time, 0, n)
	for i, k := range keep {
		if k {
			times = append(times, f.Times[i])
		}
	}
	f.Times = times

	for name, col := range f.cols {
		vals := make([]float64, 0, n)
		for i, k := range keep {
			if k {
				vals = append(vals, col[i])
			}
		}
		f.cols[name] = vals
	}
	return nil
}

// Append concatenates another frame with the same column set.
func (f *Frame) Append(other *Frame) error {
	if len(f.order) == 0 {
		f.Times = append(f.Times, other.Times...)
		for _, name := range other.order {
			f.order = append(f.order, name)
			f.cols[name] = append([]float64(nil), other.cols[name]...)
		}
		return nil
	}

	if len(f.order) != len(other.order) {
		return fmt.Errorf("cannot append: column count mismatch (%d vs %d)", len(f.order), len(other.order))
	}
	for _, name := range f.order {
		if _, ok := other.cols[name]; !ok {
			return fmt.Errorf("cannot append: missing column %s", name)
		}
	}

	f.Times = append(f.Times, other.Times...)
	for _, name := range f.order {
		f.cols[name] = append(f.cols[name], other.cols[name]...)
	}
	return nil
}

// SortByTime orders the rows chronologically.
func (f *Frame) SortByTime() {
	idx := make([]int, len(f.Times))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return f.Times[idx[a]].Before(f.Times[idx[b]])
	})

	times := make([]time.Time, len(f.Times))
	for i, j := range idx {
		times[i] = f.Times[j]
	}
	f.Times = times

	for name, col := range f.cols {
		vals := make([]float64, len(col))
		for i, j := range idx {
			vals[i] = col[j]
		}
		f.cols[name] = vals
	}
}

// buildTimeIndex constructs the time index from the CEDAR time columns.
// Returns an error naming the missing mnemonics if any are absent.
func buildTimeIndex(cols map[string][]float64) ([]time.Time, error) {
	var missing []string
	for _, k := range timeKeys {
		if _, ok := cols[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unable to construct time index: missing columns %s", strings.Join(missing, ", "))
	}

	year := cols["year"]
	month := cols["month"]
	day := cols["day"]
	hour := cols["hour"]
	min := cols["min"]
	sec := cols["sec"]

	times := make([]time.Time, len(year))
	for i := range year {
		times[i] = time.Date(int(year[i]), time.Month(month[i]), int(day[i]),
			int(hour[i]), int(min[i]), int(sec[i]), 0, time.UTC)
	}
	return times, nil
}

// FilterSingleDate drops all rows outside the 24 hour window starting at
// date. Madrigal files routinely carry records from the surrounding days.
func FilterSingleDate(f *Frame, date time.Time) error {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	keep := make([]bool, len(f.Times))
	for i, t := range f.Times {
		keep[i] = !t.Before(start) && t.Before(end)
	}
	return f.Select(keep)
}
