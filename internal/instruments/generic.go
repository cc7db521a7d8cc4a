package instruments

import (
	"log/slog"

	"github.com/cedarlab/madrigal-lab-apps/internal/cedar"
)

// Generic builds an adapter for arbitrary Madrigal time-series data. The
// caller supplies the Madrigal instrument code and an optional comma
// separated kindat spec; an empty spec selects every experiment file for
// the instrument. Prefer the named adapters where they exist.
//
// Generic adapters carry no filename templates, so the local index picks
// up every recognized data file in the instrument directory and remote
// listings are returned unfiltered.
func Generic(instCode int32, kindat string) *Adapter {
	desc := "generalized Madrigal time-series data"
	if info, ok := cedar.LookupInstrument(instCode); ok {
		desc = info.Name
	}

	return &Adapter{
		Platform: "madrigal",
		Name:     "generic",
		Tags:     map[string]string{"": desc},
		InstIDs:  map[string][]string{"": {""}},
		InstCode: instCode,
		Kindats:  map[string]map[string]string{"": {"": kindat}},
		Cadence:  CadenceDaily,

		Acknowledgements: cedar.Rules(),
		References:       "Please remember to cite the instrument articles.",

		CleanFunc: cleanGeneric,
	}
}

func cleanGeneric(f *cedar.Frame, meta *cedar.Meta, tag string, level CleanLevel, logger *slog.Logger) error {
	logger.Warn("the generalized Madrigal adapter cannot apply instrument-specific cleaning")
	return nil
}
