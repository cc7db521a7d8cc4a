package instruments

import (
	"log/slog"

	"github.com/cedarlab/madrigal-lab-apps/internal/cedar"
	"github.com/cedarlab/madrigal-lab-apps/internal/gnss"
)

// Global Navigation Satellite System vertical total electron content maps.
func init() {
	register(&Adapter{
		Platform: "gnss",
		Name:     "tec",
		Tags:     map[string]string{"vtec": "vertical TEC"},
		InstIDs:  map[string][]string{"": {"vtec"}},
		InstCode: 8000,
		Kindats:  map[string]map[string]string{"": {"vtec": "3500"}},
		Templates: map[string]map[string][]cedar.Template{
			"": {"vtec": {{Pattern: "gps{year2}{month}{day}g.{version}.{file_type}", YearBreak: 99}}},
		},
		Cadence:          CadenceDaily,
		Acknowledgements: gnss.Acknowledgements() + "\n" + cedar.Rules(),
		References:       gnss.References(),
		LoadFunc:         loadGNSSTEC,
		CleanFunc:        cleanGNSSTEC,
	})
}

// loadGNSSTEC loads the TEC maps and fixes the units for the tec and dtec
// parameters, which Madrigal reports without the TECU label.
func loadGNSSTEC(paths []string, tag, instID string) (*cedar.Frame, *cedar.Meta, error) {
	f, meta, err := cedar.Load(paths)
	if err != nil {
		return nil, nil, err
	}
	if tag == "vtec" {
		for _, name := range []string{"tec", "dtec"} {
			vm, _ := meta.Get(name)
			vm.Name = name
			vm.Units = "TECU"
			meta.Set(vm)
		}
	}
	return f, meta, nil
}

// cleanGNSSTEC notes that the TEC maps are delivered at a clean level.
func cleanGNSSTEC(f *cedar.Frame, meta *cedar.Meta, tag string, level CleanLevel, logger *slog.Logger) error {
	if tag == "vtec" {
		logger.Info("data provided at a clean level, further cleaning may be " +
			"performed using the measurement error 'dtec'")
	}
	return nil
}
