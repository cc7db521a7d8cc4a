package madrigal

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// GoodExperiment reports whether an experiment holds data for any of the
// requested dates. Experiments with id -1 are Madrigal placeholders and
// never qualify. With no dates, any real experiment qualifies.
func GoodExperiment(exp Experiment, dates []time.Time) bool {
	if exp.ID == -1 {
		return false
	}
	if len(dates) == 0 {
		return true
	}

	expStart := time.Date(exp.Start.Year(), exp.Start.Month(), exp.Start.Day(), 0, 0, 0, 0, time.UTC)
	// Experiment end days are inclusive
	expEnd := time.Date(exp.End.Year(), exp.End.Month(), exp.End.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)

	for _, d := range dates {
		day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		if !day.Before(expStart) && !day.After(expEnd) {
			return true
		}
	}
	return false
}

// ParseKindat splits a comma-separated kindat spec into codes. An empty
// spec returns nil, which selects all kindats.
func ParseKindat(spec string) ([]int, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, nil
	}
	var codes []int
	for _, part := range strings.Split(spec, ",") {
		code, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("kindat spec %q: %w", spec, err)
		}
		codes = append(codes, code)
	}
	return codes, nil
}

// FilterKindat keeps the files whose kindat appears in codes. A nil or
// empty code list keeps everything.
func FilterKindat(files []ExperimentFile, codes []int) []ExperimentFile {
	if len(codes) == 0 {
		return files
	}
	var out []ExperimentFile
	for _, f := range files {
		for _, code := range codes {
			if f.Kindat == code {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

// RemoteFilenames lists the experiment files for an instrument code within
// [start, stop], restricted to the given kindat spec and, when dates are
// supplied, to experiments overlapping those dates.
func (c *Client) RemoteFilenames(ctx context.Context, instCode int32, kindatSpec string, start, stop time.Time, dates []time.Time) ([]ExperimentFile, error) {
	codes, err := ParseKindat(kindatSpec)
	if err != nil {
		return nil, err
	}

	if start.Equal(stop) {
		stop = stop.Add(24 * time.Hour)
	}

	exps, err := c.Experiments(ctx, instCode, start, stop)
	if err != nil {
		return nil, err
	}

	var files []ExperimentFile
	for _, exp := range exps {
		if !GoodExperiment(exp, dates) {
			continue
		}
		expFiles, err := c.ExperimentFiles(ctx, exp.ID)
		if err != nil {
			return nil, fmt.Errorf("experiment %d: %w", exp.ID, err)
		}
		files = append(files, FilterKindat(expFiles, codes)...)
	}
	return files, nil
}
