package cedar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrame(t *testing.T, times []time.Time, cols map[string][]float64) *Frame {
	t.Helper()
	f := NewFrame()
	f.Times = times
	for name, vals := range cols {
		require.NoError(t, f.SetColumn(name, vals))
	}
	return f
}

func TestBuildTimeIndex(t *testing.T) {
	cols := map[string][]float64{
		"year":  {1998, 1998},
		"month": {1, 1},
		"day":   {1, 2},
		"hour":  {0, 12},
		"min":   {30, 0},
		"sec":   {0, 45},
	}
	times, err := buildTimeIndex(cols)
	require.NoError(t, err)
	require.Len(t, times, 2)
	assert.Equal(t, time.Date(1998, 1, 1, 0, 30, 0, 0, time.UTC), times[0])
	assert.Equal(t, time.Date(1998, 1, 2, 12, 0, 45, 0, time.UTC), times[1])
}

func TestBuildTimeIndexMissingColumns(t *testing.T) {
	cols := map[string][]float64{
		"year":  {1998},
		"month": {1},
		"day":   {1},
	}
	_, err := buildTimeIndex(cols)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hour")
	assert.Contains(t, err.Error(), "min")
	assert.Contains(t, err.Error(), "sec")
}

func TestSetColumnLengthMismatch(t *testing.T) {
	f := testFrame(t, []time.Time{time.Now(), time.Now()}, map[string][]float64{"ti": {1000, 1100}})
	err := f.SetColumn("ne", []float64{1})
	assert.Error(t, err)
}

func TestFilterSingleDate(t *testing.T) {
	day := time.Date(1998, 1, 2, 0, 0, 0, 0, time.UTC)
	times := []time.Time{
		day.Add(-time.Hour),
		day,
		day.Add(12 * time.Hour),
		day.Add(24*time.Hour - time.Second),
		day.Add(24 * time.Hour),
	}
	f := testFrame(t, times, map[string][]float64{"gdalt": {100, 200, 300, 400, 500}})

	require.NoError(t, FilterSingleDate(f, day))
	assert.Equal(t, 3, f.Len())
	col, ok := f.Column("gdalt")
	require.True(t, ok)
	assert.Equal(t, []float64{200, 300, 400}, col)
}

func TestAppendAndSort(t *testing.T) {
	t1 := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
	a := testFrame(t, []time.Time{t1.Add(time.Hour)}, map[string][]float64{"tec": {2}})
	b := testFrame(t, []time.Time{t1}, map[string][]float64{"tec": {1}})

	require.NoError(t, a.Append(b))
	a.SortByTime()

	assert.Equal(t, 2, a.Len())
	assert.True(t, a.Times[0].Before(a.Times[1]))
	col, _ := a.Column("tec")
	assert.Equal(t, []float64{1, 2}, col)
}

func TestAppendColumnMismatch(t *testing.T) {
	t1 := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
	a := testFrame(t, []time.Time{t1}, map[string][]float64{"tec": {1}})
	b := testFrame(t, []time.Time{t1}, map[string][]float64{"dtec": {1}})

	assert.Error(t, a.Append(b))
}

func TestMetaCaseInsensitive(t *testing.T) {
	m := NewMeta()
	m.Set(VarMeta{Name: "TEC", Units: "TECU"})

	vm, ok := m.Get("tec")
	require.True(t, ok)
	assert.Equal(t, "TECU", vm.Units)
}
