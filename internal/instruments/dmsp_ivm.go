package instruments

import (
	"fmt"
	"log/slog"

	"github.com/cedarlab/madrigal-lab-apps/internal/cedar"
	"github.com/cedarlab/madrigal-lab-apps/internal/dmsp"
)

// Defense Meteorological Satellite Program Ion Velocity Meter. The "utd"
// tag selects the University of Texas at Dallas processing, which carries
// RPA and IDM quality flags; the empty tag selects the level 2 processing.
func init() {
	tags := map[string]string{
		"utd": "UTDallas DMSP data processing",
		"":    "Level 2 data processing",
	}
	instIDs := map[string][]string{
		"f11": {"utd", ""}, "f12": {"utd", ""}, "f13": {"utd", ""},
		"f14": {"utd", ""}, "f15": {"utd", ""},
		"f16": {""}, "f17": {""}, "f18": {""},
	}
	kindats := map[string]map[string]string{
		"f11": {"utd": "10241", "": "10111"},
		"f12": {"utd": "10242", "": "10112"},
		"f13": {"utd": "10243", "": "10113"},
		"f14": {"utd": "10244", "": "10114"},
		"f15": {"utd": "10245", "": "10115"},
		"f16": {"": "10116"},
		"f17": {"": "10117"},
		"f18": {"": "10118"},
	}

	templates := make(map[string]map[string][]cedar.Template)
	for instID, instTags := range instIDs {
		sat := instID[1:]
		templates[instID] = make(map[string][]cedar.Template)
		for _, tag := range instTags {
			var pattern string
			if tag == "utd" {
				pattern = "dms_ut_{year}{month}{day}_" + sat + ".{version}.{file_type}"
			} else {
				pattern = "dms_{year}{month}{day}_" + sat + "s?.{version}.{file_type}"
			}
			templates[instID][tag] = []cedar.Template{{Pattern: pattern}}
		}
	}

	ivmRefs, _ := dmsp.References("ivm")
	register(&Adapter{
		Platform:         "dmsp",
		Name:             "ivm",
		Tags:             tags,
		InstIDs:          instIDs,
		InstCode:         8100,
		Kindats:          kindats,
		Templates:        templates,
		Cadence:          CadenceDaily,
		Acknowledgements: cedar.Rules(),
		References:       ivmRefs,
		CleanFunc:        cleanDMSPIVM,
	})
}

// cleanDMSPIVM keeps rows whose RPA and IDM quality flags are both within
// the requested level: 1 for clean, 2 for dusty, 3 for dirty. The level 2
// product carries no flags, so it only warns.
func cleanDMSPIVM(f *cedar.Frame, meta *cedar.Meta, tag string, level CleanLevel, logger *slog.Logger) error {
	if tag != "utd" {
		logger.Warn("this level 1 data has no quality flags")
		return nil
	}

	var maxFlag float64
	switch level {
	case CleanClean:
		maxFlag = 1.0
	case CleanDusty:
		maxFlag = 2.0
	case CleanDirty:
		maxFlag = 3.0
	}

	rpa, okRPA := f.Column("rpa_flag_ut")
	idm, okIDM := f.Column("idm_flag_ut")
	if !okRPA || !okIDM {
		return fmt.Errorf("dmsp/ivm: quality flag columns rpa_flag_ut and idm_flag_ut required for cleaning")
	}

	keep := make([]bool, f.Len())
	for i := range keep {
		keep[i] = rpa[i] <= maxFlag && idm[i] <= maxFlag
	}
	return f.Select(keep)
}
