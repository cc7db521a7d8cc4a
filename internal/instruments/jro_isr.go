package instruments

import (
	"log/slog"
	"strings"

	"github.com/cedarlab/madrigal-lab-apps/internal/cedar"
	"github.com/cedarlab/madrigal-lab-apps/internal/jro"
)

// Jicamarca Radio Observatory incoherent scatter radar.
func init() {
	tags := map[string]string{
		"drifts":       "Drifts and wind",
		"drifts_ave":   "Averaged drifts",
		"oblique_stan": "Standard Faraday rotation double-pulse",
		"oblique_rand": "Randomized Faraday rotation double-pulse",
		"oblique_long": "Long pulse Faraday rotation",
	}
	register(&Adapter{
		Platform: "jro",
		Name:     "isr",
		Tags:     tags,
		InstIDs: map[string][]string{
			"": {"drifts", "drifts_ave", "oblique_stan", "oblique_rand", "oblique_long"},
		},
		InstCode: 10,
		Kindats: map[string]map[string]string{
			"": {
				"drifts":       "1910",
				"drifts_ave":   "1911",
				"oblique_stan": "1800",
				"oblique_rand": "1801",
				"oblique_long": "1802",
			},
		},
		Templates: map[string]map[string][]cedar.Template{
			"": {
				"drifts":       {{Pattern: "jro{year}{month}{day}drifts.{version}.hdf5"}},
				"drifts_ave":   {{Pattern: "jro{year}{month}{day}drifts_avg.{version}.hdf5"}},
				"oblique_stan": {{Pattern: "jro{year}{month}{day}.{version}.hdf5"}},
				"oblique_rand": {{Pattern: "jro{year}{month}{day}?.{version}.hdf5"}},
				"oblique_long": {{Pattern: "jro{year}{month}{day}?.{version}.hdf5"}},
			},
		},
		Cadence:          CadenceDaily,
		Acknowledgements: cedar.Rules() + "\n" + jro.Acknowledgements(),
		References:       jro.References(),
		PreprocessFunc:   preprocessJROISR,
		CleanFunc:        cleanJROISR,
	})
}

// preprocessJROISR trims the loaded data to the day of the first sample.
// JRO experiment files routinely run past local midnight.
func preprocessJROISR(f *cedar.Frame, meta *cedar.Meta) error {
	if f.Len() == 0 {
		return nil
	}
	return cedar.FilterSingleDate(f, f.Times[0])
}

// cleanJROISR applies the JRO cleaning rules. The oblique profile modes
// carry no quality flags at any level. The drift modes keep measurements
// above 200 km where the ion drifts are well resolved.
func cleanJROISR(f *cedar.Frame, meta *cedar.Meta, tag string, level CleanLevel, logger *slog.Logger) error {
	if strings.HasPrefix(tag, "oblique") {
		logger.Info("the double pulse, coded pulse, and long pulse modes " +
			"implemented at Jicamarca have different limitations arising from " +
			"different degrees of precision and accuracy; users should consult " +
			"with the staff to determine which mode is right for their application")
		logger.Warn("this level 2 data has no quality flags")
		return nil
	}

	if level == CleanClean || level == CleanDusty {
		logger.Warn("this level 2 data has no quality flags")
	}

	alt, ok := f.Column("gdalt")
	if !ok {
		logger.Warn("gdalt column missing, no cleaning performed")
		return nil
	}
	keep := make([]bool, f.Len())
	for i := range keep {
		keep[i] = alt[i] > 200.0
	}
	return f.Select(keep)
}
