// Package instruments defines the per-instrument adapters that tie the
// Madrigal web services and the CEDAR file loaders together. Each adapter
// carries the instrument identity (platform, name, tags, inst_ids), its
// Madrigal instrument code and kindat table, the local filename templates
// and the load and clean routines specific to that data product.
package instruments

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/cedarlab/madrigal-lab-apps/internal/cedar"
	"github.com/cedarlab/madrigal-lab-apps/internal/madrigal"
)

// CleanLevel selects how aggressively Clean removes suspect data.
type CleanLevel string

const (
	CleanNone  CleanLevel = "none"
	CleanDirty CleanLevel = "dirty"
	CleanDusty CleanLevel = "dusty"
	CleanClean CleanLevel = "clean"
)

// ParseCleanLevel validates a clean level string.
func ParseCleanLevel(s string) (CleanLevel, error) {
	switch CleanLevel(s) {
	case CleanNone, CleanDirty, CleanDusty, CleanClean:
		return CleanLevel(s), nil
	}
	return "", fmt.Errorf("unknown clean level %q (want none, dirty, dusty or clean)", s)
}

// Cadence describes how often an instrument produces a new file.
type Cadence int

const (
	// CadenceDaily instruments produce one file per UT day.
	CadenceDaily Cadence = iota
	// CadenceYearly instruments produce one file per year.
	CadenceYearly
	// CadenceArchive instruments keep the whole record in a single file.
	CadenceArchive
)

// LoadFunc reads a set of local files into a Frame. The tag and inst_id
// allow product-specific fixups after the generic load.
type LoadFunc func(paths []string, tag, instID string) (*cedar.Frame, *cedar.Meta, error)

// CleanFunc removes or repairs suspect rows in place.
type CleanFunc func(f *cedar.Frame, meta *cedar.Meta, tag string, level CleanLevel, logger *slog.Logger) error

// PreprocessFunc adjusts a freshly loaded Frame before it is handed out.
type PreprocessFunc func(f *cedar.Frame, meta *cedar.Meta) error

// Adapter describes one Madrigal instrument data product.
type Adapter struct {
	Platform string
	Name     string

	// Tags maps each tag to its description. InstIDs maps each inst_id to
	// the tags it supports.
	Tags    map[string]string
	InstIDs map[string][]string

	// InstCode is the Madrigal instrument code; Kindats maps
	// inst_id -> tag -> kindat spec (comma separated codes).
	InstCode int32
	Kindats  map[string]map[string]string

	// Templates maps inst_id -> tag -> local filename templates.
	Templates map[string]map[string][]cedar.Template

	Cadence           Cadence
	TwoDigitYearBreak int

	Acknowledgements string
	References       string

	LoadFunc       LoadFunc
	PreprocessFunc PreprocessFunc
	CleanFunc      CleanFunc
}

// Key returns the registry key "platform/name".
func (a *Adapter) Key() string {
	return a.Platform + "/" + a.Name
}

// ValidateSelection checks that the inst_id and tag combination exists.
func (a *Adapter) ValidateSelection(instID, tag string) error {
	tags, ok := a.InstIDs[instID]
	if !ok {
		return fmt.Errorf("%s: unknown inst_id %q", a.Key(), instID)
	}
	for _, t := range tags {
		if t == tag {
			return nil
		}
	}
	return fmt.Errorf("%s: inst_id %q does not support tag %q", a.Key(), instID, tag)
}

// Kindat returns the kindat spec for an inst_id and tag.
func (a *Adapter) Kindat(instID, tag string) (string, error) {
	if err := a.ValidateSelection(instID, tag); err != nil {
		return "", err
	}
	return a.Kindats[instID][tag], nil
}

// TemplatesFor returns the filename templates for an inst_id and tag.
func (a *Adapter) TemplatesFor(instID, tag string) ([]cedar.Template, error) {
	if err := a.ValidateSelection(instID, tag); err != nil {
		return nil, err
	}
	return a.Templates[instID][tag], nil
}

// ListFiles indexes the local files for an inst_id and tag under dir.
// Adapters without filename templates index every recognized data file.
func (a *Adapter) ListFiles(dir, instID, tag string) ([]cedar.LocalFile, error) {
	templates, err := a.TemplatesFor(instID, tag)
	if err != nil {
		return nil, err
	}
	if len(templates) == 0 {
		return cedar.ListLocalAny(dir)
	}
	return cedar.ListLocal(dir, templates)
}

// ListRemote lists the experiment files available on the Madrigal server
// for an inst_id and tag within [start, stop]. Files whose names do not
// match the instrument's filename templates are dropped; adapters without
// templates return the listing unfiltered.
func (a *Adapter) ListRemote(ctx context.Context, c *madrigal.Client, instID, tag string, start, stop time.Time) ([]madrigal.ExperimentFile, error) {
	kindat, err := a.Kindat(instID, tag)
	if err != nil {
		return nil, err
	}
	files, err := c.RemoteFilenames(ctx, a.InstCode, kindat, start, stop, nil)
	if err != nil {
		return nil, err
	}

	templates := a.Templates[instID][tag]
	if len(templates) == 0 {
		return files, nil
	}
	var out []madrigal.ExperimentFile
	for _, rf := range files {
		base := path.Base(rf.Name)
		for _, tmpl := range templates {
			if _, ok := tmpl.MatchDate(base); ok {
				out = append(out, rf)
				break
			}
		}
	}
	return out, nil
}

// DownloadResult summarizes one Download call.
type DownloadResult struct {
	Downloaded int
	Skipped    int
	Files      []string
}

// Download fetches the experiment files covering the given dates into
// destDir, skipping files already present. fileType selects the Madrigal
// export format (hdf5, netCDF4 or simple).
func (a *Adapter) Download(ctx context.Context, c *madrigal.Client, instID, tag string, dates []time.Time, destDir, fileType string) (DownloadResult, error) {
	var res DownloadResult

	kindat, err := a.Kindat(instID, tag)
	if err != nil {
		return res, err
	}
	if len(dates) == 0 {
		return res, fmt.Errorf("%s: no dates requested", a.Key())
	}

	sorted := append([]time.Time(nil), dates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })
	start, stop := sorted[0], sorted[len(sorted)-1]

	files, err := c.RemoteFilenames(ctx, a.InstCode, kindat, start, stop, sorted)
	if err != nil {
		return res, err
	}

	for _, rf := range files {
		local := filepath.Join(destDir, madrigal.LocalName(rf.Name, fileType))
		skipped, err := c.DownloadFile(ctx, rf.Name, local, fileType)
		if err != nil {
			return res, fmt.Errorf("%s: %w", rf.Name, err)
		}
		if skipped {
			res.Skipped++
		} else {
			res.Downloaded++
		}
		res.Files = append(res.Files, local)
	}
	return res, nil
}

// Load reads local files through the adapter's load routine, falling back
// to the generic CEDAR loader.
func (a *Adapter) Load(paths []string, tag, instID string) (*cedar.Frame, *cedar.Meta, error) {
	if err := a.ValidateSelection(instID, tag); err != nil {
		return nil, nil, err
	}

	var (
		f    *cedar.Frame
		meta *cedar.Meta
		err  error
	)
	if a.LoadFunc != nil {
		f, meta, err = a.LoadFunc(paths, tag, instID)
	} else {
		f, meta, err = cedar.Load(paths)
	}
	if err != nil {
		return nil, nil, err
	}

	if a.PreprocessFunc != nil {
		if err := a.PreprocessFunc(f, meta); err != nil {
			return nil, nil, err
		}
	}
	return f, meta, nil
}

// Clean applies the instrument's cleaning routine at the requested level.
// CleanNone always returns without touching the data.
func (a *Adapter) Clean(f *cedar.Frame, meta *cedar.Meta, tag string, level CleanLevel, logger *slog.Logger) error {
	if level == CleanNone || a.CleanFunc == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return a.CleanFunc(f, meta, tag, level, logger)
}
