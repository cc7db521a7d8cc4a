// Package jro provides methods supporting the Jicamarca Radio Observatory
// incoherent scatter radar.
package jro

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"

	"github.com/cedarlab/madrigal-lab-apps/internal/cedar"
	"github.com/cedarlab/madrigal-lab-apps/internal/coords"
)

// JRO is located 520 m above sea level (jro.igp.gob.pe/english/).
const radarAltKm = 0.52

// Acknowledgements returns the acknowledgement text for studies using JRO data.
func Acknowledgements() string {
	return "The Jicamarca Radio Observatory is a facility of the Instituto " +
		"Geofisico del Peru operated with support from the NSF AGS-1433968 " +
		"through Cornell University."
}

// References returns reference guidance for the JRO experiments.
func References() string {
	return "Depends on the radar experiment; contact PI"
}

var azdirRE = regexp.MustCompile(`^azdir(\d+)$`)

// CalcMeasurementLoc computes the geographic location of each radar beam
// measurement. For every matched pair of "azdir#" and "eldir#" columns it
// adds "gdlat#" and "gdlon#" columns using the radar location columns
// "gdlatr" and "gdlonr" plus the measurement "range". Returns an error when
// no matching azimuth and elevation pairs exist.
func CalcMeasurementLoc(f *cedar.Frame, meta *cedar.Meta) error {
	var goodDirs []int
	for _, name := range f.Columns() {
		m := azdirRE.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		dir, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if f.HasColumn(fmt.Sprintf("eldir%d", dir)) {
			goodDirs = append(goodDirs, dir)
		}
	}
	if len(goodDirs) == 0 {
		return fmt.Errorf("no matching azimuth and elevation data included")
	}
	sort.Ints(goodDirs)

	latR, ok := f.Column("gdlatr")
	if !ok {
		return fmt.Errorf("missing radar latitude column gdlatr")
	}
	lonR, ok := f.Column("gdlonr")
	if !ok {
		return fmt.Errorf("missing radar longitude column gdlonr")
	}
	rng, ok := f.Column("range")
	if !ok {
		return fmt.Errorf("missing range column")
	}

	for _, dir := range goodDirs {
		az, _ := f.Column(fmt.Sprintf("azdir%d", dir))
		el, _ := f.Column(fmt.Sprintf("eldir%d", dir))

		lat := make([]float64, f.Len())
		lon := make([]float64, f.Len())
		for i := 0; i < f.Len(); i++ {
			lat[i], lon[i], _ = coords.LocalHorizontalToGlobalGeo(
				az[i], el[i], rng[i], latR[i], lonR[i], radarAltKm, true)
		}

		latKey := fmt.Sprintf("gdlat%d", dir)
		lonKey := fmt.Sprintf("gdlon%d", dir)
		if err := f.SetColumn(latKey, lat); err != nil {
			return err
		}
		if err := f.SetColumn(lonKey, lon); err != nil {
			return err
		}

		if meta != nil {
			beam := fmt.Sprintf("Beam %d ", dir)
			meta.Set(cedar.VarMeta{
				Name:      latKey,
				Units:     "degrees",
				Desc:      beam + "latitude",
				FillValue: math.NaN(),
				MinVal:    -90.0,
				MaxVal:    90.0,
				HasLimits: true,
			})
			meta.Set(cedar.VarMeta{
				Name:      lonKey,
				Units:     "degrees",
				Desc:      beam + "longitude",
				FillValue: math.NaN(),
			})
		}
	}
	return nil
}
