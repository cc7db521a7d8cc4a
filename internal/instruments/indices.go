package instruments

import (
	"log/slog"
	"math"
	"strings"

	"github.com/cedarlab/madrigal-lab-apps/internal/cedar"
)

// The geophysical index archives live in a single Madrigal file per
// instrument, with two-digit years in the filename and an epoch break at
// 1950.
const indicesYearBreak = 50

// Madrigal F10.7, Kp and Ap indices.
func init() {
	register(&Adapter{
		Platform: "madrigal",
		Name:     "geoind",
		Tags:     map[string]string{"": ""},
		InstIDs:  map[string][]string{"": {""}},
		InstCode: 210,
		Kindats:  map[string]map[string]string{"": {"": "30007"}},
		Templates: map[string]map[string][]cedar.Template{
			"": {"": {{Pattern: "geo{year2}{month}{day}g.{version}.{file_type}", YearBreak: indicesYearBreak}}},
		},
		Cadence:           CadenceArchive,
		TwoDigitYearBreak: indicesYearBreak,
		Acknowledgements:  cedar.Rules(),
		References: "Covington, A.E. (1948), Solar noise observations on 10.7 " +
			"centimeters, Proceedings of the IRE, 36(44), p 454-457.\n" +
			"J. Bartels, The technique of scaling indices K and Q of geomagnetic " +
			"activity, Ann. Intern. Geophys. Year 4, 215-226, 1957.\n" +
			"P.N. Mayaud, Derivation, Meaning and Use of Geomagnetic Indices, " +
			"Geophysical Monograph 22, Am. Geophys. Union, Washington, D.C., 1980.",
		CleanFunc: func(f *cedar.Frame, meta *cedar.Meta, tag string, level CleanLevel, logger *slog.Logger) error {
			logger.Warn("no cleaning available for the Madrigal geophysical indices")
			return nil
		},
	})
}

// Madrigal Dst index.
func init() {
	register(&Adapter{
		Platform: "madrigal",
		Name:     "dst",
		Tags:     map[string]string{"": ""},
		InstIDs:  map[string][]string{"": {""}},
		InstCode: 212,
		Kindats:  map[string]map[string]string{"": {"": "30006"}},
		Templates: map[string]map[string][]cedar.Template{
			"": {"": {{Pattern: "dst{year2}{month}{day}g.{version}.{file_type}", YearBreak: indicesYearBreak}}},
		},
		Cadence:           CadenceArchive,
		TwoDigitYearBreak: indicesYearBreak,
		Acknowledgements:  cedar.Rules(),
		References: "Sugiura M. and T. Kamei, " +
			"http://wdc.kugi.kyoto-u.ac.jp/dstdir/dst2/onDstindex.html, " +
			"last updated June 1991, accessed Dec 2020",
		CleanFunc: func(f *cedar.Frame, meta *cedar.Meta, tag string, level CleanLevel, logger *slog.Logger) error {
			logger.Warn("no cleaning available for the Madrigal Dst")
			return nil
		},
	})
}

// OMNI2 interplanetary magnetic field archive.
func init() {
	register(&Adapter{
		Platform: "omni2",
		Name:     "imf",
		Tags:     map[string]string{"": ""},
		InstIDs:  map[string][]string{"": {""}},
		InstCode: 120,
		Kindats:  map[string]map[string]string{"": {"": "30012"}},
		Templates: map[string]map[string][]cedar.Template{
			"": {"": {{Pattern: "imf{year2}{month}{day}g.{version}.{file_type}", YearBreak: indicesYearBreak}}},
		},
		Cadence:           CadenceArchive,
		TwoDigitYearBreak: indicesYearBreak,
		Acknowledgements:  cedar.Rules(),
		References: "J.H. King and N.E. Papitashvili, Solar wind spatial scales " +
			"in and comparisons of hourly Wind and ACE plasma and magnetic field " +
			"data, J. Geophys. Res., Vol. 110, No. A2, A02209, 10.1029/2004JA010649.",
		CleanFunc: func(f *cedar.Frame, meta *cedar.Meta, tag string, level CleanLevel, logger *slog.Logger) error {
			logger.Warn("no cleaning available for the collected Omni 2 IMF")
			return nil
		},
	})
}

// NGDC auroral electrojet indices.
func init() {
	register(&Adapter{
		Platform: "ngdc",
		Name:     "ae",
		Tags:     map[string]string{"": ""},
		InstIDs:  map[string][]string{"": {""}},
		InstCode: 211,
		Kindats:  map[string]map[string]string{"": {"": "30008"}},
		Templates: map[string]map[string][]cedar.Template{
			"": {"": {{Pattern: "ane{year2}{month}{day}g.{version}.{file_type}", YearBreak: indicesYearBreak}}},
		},
		Cadence:           CadenceArchive,
		TwoDigitYearBreak: indicesYearBreak,
		Acknowledgements:  cedar.Rules(),
		References: "Davis, T. Neil and Masahisa Sugiura. \"Auroral electrojet " +
			"activity index AE and its universal time variations.\" Journal of " +
			"Geophysical Research 71 (1966): 785-801.",
		CleanFunc: cleanNGDCAE,
	})
}

// aeErrorValue marks parameter errors in the NGDC AE archive; the fill
// value recorded in the file metadata marks missing samples.
const aeErrorValue = -32766.0

// cleanNGDCAE replaces missing samples with NaN in every nT-valued column
// at all levels, and additionally replaces the parameter error value at
// the clean and dusty levels. The dusty and clean levels are the same.
func cleanNGDCAE(f *cedar.Frame, meta *cedar.Meta, tag string, level CleanLevel, logger *slog.Logger) error {
	warned := false
	for _, name := range f.Columns() {
		vm, ok := meta.Get(name)
		if !ok || !strings.Contains(vm.Units, "nT") {
			continue
		}

		vals, _ := f.Column(name)
		out := make([]float64, len(vals))
		for i, v := range vals {
			switch {
			case !math.IsNaN(vm.FillValue) && v == vm.FillValue:
				out[i] = math.NaN()
			case (level == CleanClean || level == CleanDusty) && v == aeErrorValue:
				out[i] = math.NaN()
			default:
				out[i] = v
			}
		}
		if err := f.SetColumn(name, out); err != nil {
			return err
		}

		vm.FillValue = math.NaN()
		meta.Set(vm)

		if level == CleanDusty && !warned {
			logger.Warn("the NGDC AE dusty and clean levels are the same")
			warned = true
		}
	}
	return nil
}
