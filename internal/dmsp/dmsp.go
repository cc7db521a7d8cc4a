// Package dmsp provides methods supporting the Defense Meteorological
// Satellite Program ion drift products.
package dmsp

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/cedarlab/madrigal-lab-apps/internal/cedar"
)

// Rolling mean parameters for ram drift smoothing.
const (
	smoothWindow     = 15
	smoothMinPeriods = 5
)

// References returns reference guidance for a DMSP instrument name.
func References(name string) (string, bool) {
	refs := map[string]string{
		"ivm": "F. J. Rich, Users Guide for the Topside Ionospheric Plasma Monitor " +
			"(SSIES, SSIES-2 and SSIES-3) on Spacecraft of the Defense Meteorological " +
			"Satellite Program (Air Force Phillips Laboratory, Hanscom AFB, MA, 1994), Vol. 1, p. 25.",
	}
	r, ok := refs[name]
	return r, ok
}

// SmoothRamDrifts replaces the ram drift velocity at rows where the RPA
// flag equals 1 with a trailing rolling mean over the flagged samples
// (window 15, minimum 5 valid samples). Rows without a good flag keep
// their original value. When the flag column is absent nothing changes.
func SmoothRamDrifts(f *cedar.Frame, rpaFlagKey, rpaVelKey string) error {
	vel, ok := f.Column(rpaVelKey)
	if !ok {
		return fmt.Errorf("missing ram velocity column %s", rpaVelKey)
	}

	flags, hasFlags := f.Column(rpaFlagKey)
	if !hasFlags {
		return nil
	}

	var idx []int
	for i, flag := range flags {
		if flag == 1 {
			idx = append(idx, i)
		}
	}

	// Rolling mean over the flagged subseries
	sub := make([]float64, len(idx))
	for j, i := range idx {
		sub[j] = vel[i]
	}
	smoothed := rollingMean(sub, smoothWindow, smoothMinPeriods)

	out := make([]float64, len(vel))
	copy(out, vel)
	for j, i := range idx {
		out[i] = smoothed[j]
	}
	return f.SetColumn(rpaVelKey, out)
}

// rollingMean computes a trailing moving average, ignoring NaN samples.
// Windows with fewer than minPeriods valid samples yield NaN.
func rollingMean(vals []float64, window, minPeriods int) []float64 {
	out := make([]float64, len(vals))
	valid := make([]float64, 0, window)

	for i := range vals {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		valid = valid[:0]
		for _, v := range vals[start : i+1] {
			if !math.IsNaN(v) {
				valid = append(valid, v)
			}
		}
		if len(valid) < minPeriods {
			out[i] = math.NaN()
		} else {
			out[i] = stat.Mean(valid, nil)
		}
	}
	return out
}

// UpdateEphemeris pads the ephemeris magnetic coordinates onto the
// instrument time index, adding "mlt" and "mlat" columns. For every
// instrument time the most recent preceding ephemeris sample is used.
func UpdateEphemeris(f, ephem *cedar.Frame) error {
	ltime, ok := ephem.Column("sc_aacgm_ltime")
	if !ok {
		return fmt.Errorf("ephemeris missing sc_aacgm_ltime")
	}
	lat, ok := ephem.Column("sc_aacgm_lat")
	if !ok {
		return fmt.Errorf("ephemeris missing sc_aacgm_lat")
	}

	mlt := make([]float64, f.Len())
	mlat := make([]float64, f.Len())

	for i, t := range f.Times {
		// Last ephemeris sample at or before t
		j := sort.Search(len(ephem.Times), func(k int) bool {
			return ephem.Times[k].After(t)
		}) - 1
		if j < 0 {
			mlt[i] = math.NaN()
			mlat[i] = math.NaN()
			continue
		}
		mlt[i] = ltime[j]
		mlat[i] = lat[j]
	}

	if err := f.SetColumn("mlt", mlt); err != nil {
		return err
	}
	return f.SetColumn("mlat", mlat)
}

// AddDriftUnitVectors adds ram and cross-track unit vectors derived from
// the magnetic local time and latitude columns, in both cartesian
// (x along MLT=6, y along MLT=12) and polar forms. Assumes the ram vector
// points perfectly forward along the orbit.
func AddDriftUnitVectors(f *cedar.Frame) error {
	mlt, ok := f.Column("mlt")
	if !ok {
		return fmt.Errorf("missing mlt column")
	}
	mlat, ok := f.Column("mlat")
	if !ok {
		return fmt.Errorf("missing mlat column")
	}

	n := f.Len()
	theta := make([]float64, n)
	posX := make([]float64, n)
	posY := make([]float64, n)

	for i := 0; i < n; i++ {
		theta[i] = mlt[i]*(math.Pi/12.0) - math.Pi*0.5
		r := (90.0 - math.Abs(mlat[i])) * math.Pi / 180.0
		posX[i] = r * math.Cos(theta[i])
		posY[i] = r * math.Sin(theta[i])
	}

	ramX := make([]float64, n)
	ramY := make([]float64, n)
	crossX := make([]float64, n)
	crossY := make([]float64, n)

	for i := 0; i < n; i++ {
		if i == 0 {
			ramX[i] = math.NaN()
			ramY[i] = math.NaN()
			crossX[i] = math.NaN()
			crossY[i] = math.NaN()
			continue
		}
		diffX := posX[i] - posX[i-1]
		diffY := posY[i] - posY[i-1]
		norm := math.Hypot(diffX, diffY)

		ramX[i] = diffX / norm
		ramY[i] = diffY / norm
		crossX[i] = -diffY / norm
		crossY[i] = diffX / norm

		// Southern hemisphere cross-track sign flip
		if mlat[i] < 0 {
			crossX[i] *= -1.0
			crossY[i] *= -1.0
		}
	}

	ramR := make([]float64, n)
	ramTheta := make([]float64, n)
	crossR := make([]float64, n)
	crossTheta := make([]float64, n)

	for i := 0; i < n; i++ {
		sinT := math.Sin(theta[i])
		cosT := math.Cos(theta[i])
		ramR[i] = ramX[i]*cosT + ramY[i]*sinT
		ramTheta[i] = -ramX[i]*sinT + ramY[i]*cosT
		crossR[i] = crossX[i]*cosT + crossY[i]*sinT
		crossTheta[i] = -crossX[i]*sinT + crossY[i]*cosT
	}

	cols := map[string][]float64{
		"unit_ram_x":       ramX,
		"unit_ram_y":       ramY,
		"unit_cross_x":     crossX,
		"unit_cross_y":     crossY,
		"unit_ram_r":       ramR,
		"unit_ram_theta":   ramTheta,
		"unit_cross_r":     crossR,
		"unit_cross_theta": crossTheta,
	}
	for name, vals := range cols {
		if err := f.SetColumn(name, vals); err != nil {
			return err
		}
	}
	return nil
}

// AddPolarCapDrifts adds the polar cap drift components "ion_vel_pc_x"
// and "ion_vel_pc_y" from the ram and cross-track velocities, plus a
// "partial" column that is 1 where no usable RPA data contributed.
// Polar cap drifts assume no vertical component to the X-Y velocities.
func AddPolarCapDrifts(f *cedar.Frame, rpaFlagKey, rpaVelKey, crossVelKey string) error {
	ramVel, ok := f.Column(rpaVelKey)
	if !ok {
		return fmt.Errorf("missing ram velocity column %s", rpaVelKey)
	}
	crossVel, ok := f.Column(crossVelKey)
	if !ok {
		return fmt.Errorf("missing cross-track velocity column %s", crossVelKey)
	}

	n := f.Len()
	partialIdx := make(map[int]bool)
	if flags, hasFlags := f.Column(rpaFlagKey); hasFlags {
		for i, flag := range flags {
			if flag != 1 {
				partialIdx[i] = true
			}
		}
	}

	ivx := make([]float64, n)
	for i := 0; i < n; i++ {
		if partialIdx[i] {
			ivx[i] = 0.0
		} else {
			ivx[i] = ramVel[i]
		}
	}

	if !f.HasColumn("unit_ram_y") {
		if err := AddDriftUnitVectors(f); err != nil {
			return err
		}
	}

	ramX, _ := f.Column("unit_ram_x")
	ramY, _ := f.Column("unit_ram_y")
	crossX, _ := f.Column("unit_cross_x")
	crossY, _ := f.Column("unit_cross_y")

	pcX := make([]float64, n)
	pcY := make([]float64, n)
	partial := make([]float64, n)
	for i := 0; i < n; i++ {
		pcX[i] = ivx[i]*ramX[i] + crossVel[i]*crossX[i]
		pcY[i] = ivx[i]*ramY[i] + crossVel[i]*crossY[i]
		if partialIdx[i] {
			partial[i] = 1.0
		}
	}

	if err := f.SetColumn("ion_vel_pc_x", pcX); err != nil {
		return err
	}
	if err := f.SetColumn("ion_vel_pc_y", pcY); err != nil {
		return err
	}
	return f.SetColumn("partial", partial)
}
