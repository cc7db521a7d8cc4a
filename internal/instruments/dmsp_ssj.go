package instruments

import (
	"log/slog"

	"github.com/cedarlab/madrigal-lab-apps/internal/cedar"
)

// DMSP Special Sensor J auroral boundary index.
func init() {
	register(&Adapter{
		Platform: "dmsp",
		Name:     "ssj",
		Tags:     map[string]string{"abi": "Midnight Auroral Boundary Index"},
		InstIDs:  map[string][]string{"": {"abi"}},
		InstCode: 180,
		Kindats:  map[string]map[string]string{"": {"abi": "17110"}},
		Templates: map[string]map[string][]cedar.Template{
			"": {"abi": {{Pattern: "dms_{year}{month}{day}_s?.{version}.{file_type}"}}},
		},
		Cadence: CadenceYearly,
		Acknowledgements: cedar.Rules() + "\nThe Air Force Research Laboratory " +
			"Auroral Boundary Index (ABI) was provided by the United States Air " +
			"Force Research Laboratory, Kirtland Air Force Base, New Mexico.",
		CleanFunc: cleanDMSPSSJ,
	})
}

// cleanDMSPSSJ keeps rows whose equatorward boundary quality flag is at
// most 1 (clean) or 2 (dusty). The dirty level performs no cleaning.
func cleanDMSPSSJ(f *cedar.Frame, meta *cedar.Meta, tag string, level CleanLevel, logger *slog.Logger) error {
	var maxFlag float64
	switch level {
	case CleanClean:
		maxFlag = 1.0
	case CleanDusty:
		maxFlag = 2.0
	default:
		logger.Warn(`no quality control level "dirty", using "none"`)
		return nil
	}

	qc, ok := f.Column("eqb_qc_fl")
	if !ok {
		logger.Warn("eqb_qc_fl column missing, no cleaning performed")
		return nil
	}

	keep := make([]bool, f.Len())
	for i := range keep {
		keep[i] = qc[i] <= maxFlag
	}
	return f.Select(keep)
}
