package dmsp

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cedarlab/madrigal-lab-apps/internal/cedar"
)

func driftFrame(t *testing.T, cols map[string][]float64) *cedar.Frame {
	t.Helper()
	var n int
	for _, v := range cols {
		n = len(v)
		break
	}
	f := cedar.NewFrame()
	start := time.Date(1998, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		f.Times = append(f.Times, start.Add(time.Duration(i)*time.Second))
	}
	for name, vals := range cols {
		require.NoError(t, f.SetColumn(name, vals))
	}
	return f
}

func TestReferences(t *testing.T) {
	refs, ok := References("ivm")
	require.True(t, ok)
	assert.Contains(t, refs, "Topside Ionospheric Plasma Monitor")

	_, ok = References("ssj")
	assert.False(t, ok)
}

func TestRollingMean(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5, 6}
	out := rollingMean(vals, 15, 5)

	assert.True(t, math.IsNaN(out[3]), "fewer than min periods yields NaN")
	assert.InDelta(t, 3.0, out[4], 1e-12)
	assert.InDelta(t, 3.5, out[5], 1e-12)
}

func TestSmoothRamDriftsNoFlagColumn(t *testing.T) {
	f := driftFrame(t, map[string][]float64{"ion_v_sat_for": {100, 200, 300}})
	require.NoError(t, SmoothRamDrifts(f, "rpa_flag_ut", "ion_v_sat_for"))

	vel, _ := f.Column("ion_v_sat_for")
	assert.Equal(t, []float64{100, 200, 300}, vel)
}

func TestSmoothRamDriftsFlagged(t *testing.T) {
	n := 8
	vel := make([]float64, n)
	flags := make([]float64, n)
	for i := 0; i < n; i++ {
		vel[i] = float64(i + 1)
		flags[i] = 1
	}
	// One bad-flag row keeps its raw value
	flags[2] = 4

	f := driftFrame(t, map[string][]float64{"ion_v_sat_for": vel, "rpa_flag_ut": flags})
	require.NoError(t, SmoothRamDrifts(f, "rpa_flag_ut", "ion_v_sat_for"))

	out, _ := f.Column("ion_v_sat_for")
	assert.Equal(t, 3.0, out[2], "unflagged row untouched")
	// Flagged subseries is 1,2,4,5,6,7,8; fifth flagged sample is vel=6
	assert.InDelta(t, (1.0+2.0+4.0+5.0+6.0)/5.0, out[5], 1e-12)
	assert.True(t, math.IsNaN(out[1]), "too few flagged samples yet")
}

func TestAddDriftUnitVectors(t *testing.T) {
	// Satellite moving along constant MLat in the northern hemisphere
	f := driftFrame(t, map[string][]float64{
		"mlt":  {6.0, 6.5, 7.0, 7.5},
		"mlat": {75.0, 75.0, 75.0, 75.0},
	})
	require.NoError(t, AddDriftUnitVectors(f))

	ramX, _ := f.Column("unit_ram_x")
	assert.True(t, math.IsNaN(ramX[0]), "no direction for the first sample")

	// Unit vectors are normalized
	ramY, _ := f.Column("unit_ram_y")
	crossX, _ := f.Column("unit_cross_x")
	crossY, _ := f.Column("unit_cross_y")
	for i := 1; i < f.Len(); i++ {
		assert.InDelta(t, 1.0, math.Hypot(ramX[i], ramY[i]), 1e-12)
		assert.InDelta(t, 1.0, math.Hypot(crossX[i], crossY[i]), 1e-12)
		// Cross-track is perpendicular to ram
		assert.InDelta(t, 0.0, ramX[i]*crossX[i]+ramY[i]*crossY[i], 1e-12)
	}
}

func TestAddDriftUnitVectorsSouthernFlip(t *testing.T) {
	north := driftFrame(t, map[string][]float64{
		"mlt":  {6.0, 6.5},
		"mlat": {75.0, 75.0},
	})
	south := driftFrame(t, map[string][]float64{
		"mlt":  {6.0, 6.5},
		"mlat": {-75.0, -75.0},
	})
	require.NoError(t, AddDriftUnitVectors(north))
	require.NoError(t, AddDriftUnitVectors(south))

	nX, _ := north.Column("unit_cross_x")
	sX, _ := south.Column("unit_cross_x")
	assert.InDelta(t, -nX[1], sX[1], 1e-12)
}

func TestAddPolarCapDrifts(t *testing.T) {
	f := driftFrame(t, map[string][]float64{
		"mlt":           {6.0, 6.5, 7.0},
		"mlat":          {75.0, 75.0, 75.0},
		"ion_v_sat_for": {500, 500, 500},
		"ion_v_sat_left": {50, 50, 50},
		"rpa_flag_ut":   {1, 4, 1},
	})
	require.NoError(t, AddPolarCapDrifts(f, "rpa_flag_ut", "ion_v_sat_for", "ion_v_sat_left"))

	partial, ok := f.Column("partial")
	require.True(t, ok)
	assert.Equal(t, []float64{0, 1, 0}, partial)

	pcX, ok := f.Column("ion_vel_pc_x")
	require.True(t, ok)
	crossX, _ := f.Column("unit_cross_x")
	// Bad RPA row uses only the cross-track component
	assert.InDelta(t, 50*crossX[1], pcX[1], 1e-9)
}

func TestUpdateEphemeris(t *testing.T) {
	inst := driftFrame(t, map[string][]float64{"ti": {1, 2, 3}})

	ephem := cedar.NewFrame()
	ephem.Times = []time.Time{
		inst.Times[0].Add(-time.Second),
		inst.Times[2],
	}
	require.NoError(t, ephem.SetColumn("sc_aacgm_ltime", []float64{5.5, 6.5}))
	require.NoError(t, ephem.SetColumn("sc_aacgm_lat", []float64{70.0, 71.0}))

	require.NoError(t, UpdateEphemeris(inst, ephem))

	mlt, _ := inst.Column("mlt")
	assert.Equal(t, []float64{5.5, 5.5, 6.5}, mlt)
	mlat, _ := inst.Column("mlat")
	assert.Equal(t, []float64{70.0, 70.0, 71.0}, mlat)
}
