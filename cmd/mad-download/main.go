// mad-download - Parallel downloader for Madrigal instrument data files
//
// Lists the experiment files for one instrument and date range through the
// Madrigal web services, then downloads them in the requested export format.
// Supports resume, parallel downloads, and a list-only mode.
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/mad-download ./cmd/mad-download

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cedarlab/madrigal-lab-apps/internal/common"
	"github.com/cedarlab/madrigal-lab-apps/internal/instruments"
	"github.com/cedarlab/madrigal-lab-apps/internal/madrigal"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

type downloadStats struct {
	Completed atomic.Uint64
	Failed    atomic.Uint64
	Skipped   atomic.Uint64
}

func parseDay(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

func dateRange(start, end time.Time) []time.Time {
	var dates []time.Time
	for d := start; !d.After(end); d = d.Add(24 * time.Hour) {
		dates = append(dates, d)
	}
	return dates
}

func main() {
	profile := flag.String("profile", "", "TOML profile with Madrigal credentials")
	platform := flag.String("platform", "dmsp", "Instrument platform")
	name := flag.String("name", "ivm", "Instrument name")
	tag := flag.String("tag", "utd", "Instrument tag")
	instID := flag.String("inst-id", "f12", "Instrument ID (e.g. satellite)")
	instCode := flag.Int("inst-code", 0, "Madrigal instrument code for generic access (overrides -platform/-name)")
	kindatSpec := flag.String("kindat", "", "Kindat code(s) for generic access, comma separated (empty: all)")
	startDate := flag.String("start", "", "Start date (YYYY-MM-DD)")
	endDate := flag.String("end", "", "End date (YYYY-MM-DD, default: start date)")
	fileType := flag.String("file-type", "hdf5", "Export format: hdf5, netCDF4 or simple")
	destDir := flag.String("dest", "", "Destination directory (default: <data-dir>/<platform>/<name>)")
	workers := flag.Int("workers", 4, "Parallel download workers")
	listOnly := flag.Bool("list", false, "List remote files without downloading")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "mad-download v%s - Madrigal Data Downloader\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Downloads instrument data files from a Madrigal database.\n")
		fmt.Fprintf(os.Stderr, "Madrigal requires a user name, email and affiliation; set them\n")
		fmt.Fprintf(os.Stderr, "in a TOML profile or the MADRIGAL_USER_* environment variables.\n\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -platform dmsp -name ivm -inst-id f13 -tag utd -start 1998-01-02\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -platform gnss -name tec -tag vtec -start 2013-01-01 -end 2013-01-31 -file-type netCDF4\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -platform jro -name isr -tag drifts -start 2010-04-12 -list\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -inst-code 180 -kindat 17110 -start 2015-01-01\n", os.Args[0])
	}

	flag.Parse()

	var (
		cfg *common.Config
		err error
	)
	if *profile != "" {
		cfg, err = common.LoadProfile(*profile)
	} else {
		cfg = common.DefaultConfig()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var adapter *instruments.Adapter
	if *instCode != 0 {
		adapter = instruments.Generic(int32(*instCode), *kindatSpec)
		*instID, *tag = "", ""
		if *kindatSpec == "" {
			fmt.Fprintln(os.Stderr, "Warning: no kindat supplied, all experiment files will be returned")
		}
	} else {
		adapter, err = instruments.Lookup(*platform, *name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	if err := adapter.ValidateSelection(*instID, *tag); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *startDate == "" {
		fmt.Fprintln(os.Stderr, "Error: -start is required (YYYY-MM-DD)")
		os.Exit(1)
	}
	start, err := parseDay(*startDate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid start date: %v\n", err)
		os.Exit(1)
	}
	end := start
	if *endDate != "" {
		if end, err = parseDay(*endDate); err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid end date: %v\n", err)
			os.Exit(1)
		}
	}
	if end.Before(start) {
		fmt.Fprintln(os.Stderr, "Error: end date before start date")
		os.Exit(1)
	}
	dates := dateRange(start, end)

	dest := *destDir
	if dest == "" {
		dest = cfg.InstrumentDataDir(adapter.Platform, adapter.Name)
	}

	if err := cfg.ValidateUser(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	client, err := madrigal.NewClient(logger, cfg.MadrigalURL, madrigal.User{
		FullName:    cfg.UserFullName,
		Email:       cfg.UserEmail,
		Affiliation: cfg.UserAffiliation,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nShutdown requested...")
		cancel()
	}()

	kindat, err := adapter.Kindat(*instID, *tag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	files, err := client.RemoteFilenames(ctx, adapter.InstCode, kindat, start, end, dates)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: remote listing failed: %v\n", err)
		os.Exit(1)
	}

	if *listOnly {
		fmt.Printf("Remote files for %s/%s (%d files):\n\n", adapter.Platform, adapter.Name, len(files))
		for _, f := range files {
			fmt.Printf("  %s (kindat %d, %s)\n", f.Name, f.Kindat, f.Status)
		}
		return
	}

	fmt.Println("=========================================================")
	fmt.Printf("Madrigal Download v%s\n", Version)
	fmt.Println("=========================================================")
	fmt.Printf("Source:      %s\n", cfg.MadrigalURL)
	fmt.Printf("Instrument:  %s/%s tag=%q inst_id=%s (code %d)\n", adapter.Platform, adapter.Name, *tag, *instID, adapter.InstCode)
	fmt.Printf("Destination: %s\n", dest)
	fmt.Printf("Date Range:  %s to %s\n", start.Format("2006-01-02"), end.Format("2006-01-02"))
	fmt.Printf("Files:       %d\n", len(files))
	fmt.Printf("Workers:     %d parallel\n", *workers)
	fmt.Println()

	if err := os.MkdirAll(dest, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Cannot create directory: %v\n", err)
		os.Exit(1)
	}

	startTime := time.Now()
	stats := &downloadStats{}

	// Worker pool
	sem := make(chan struct{}, *workers)
	var wg sync.WaitGroup

	for _, file := range files {
		sem <- struct{}{}
		wg.Add(1)

		go func(remote string) {
			defer func() { <-sem }()
			defer wg.Done()

			local := filepath.Join(dest, madrigal.LocalName(remote, *fileType))
			skipped, err := client.DownloadFile(ctx, remote, local, *fileType)
			switch {
			case err != nil:
				fmt.Printf("[%s] ERROR: %v\n", filepath.Base(remote), err)
				stats.Failed.Add(1)
			case skipped:
				stats.Skipped.Add(1)
			default:
				fmt.Printf("[%s] Downloaded\n", filepath.Base(local))
				stats.Completed.Add(1)
			}
		}(file.Name)
	}

	wg.Wait()

	elapsed := time.Since(startTime)

	fmt.Println()
	fmt.Println("=========================================================")
	fmt.Println("Download Summary")
	fmt.Println("=========================================================")
	fmt.Printf("Downloaded: %d files\n", stats.Completed.Load())
	fmt.Printf("Skipped:    %d files (already exist)\n", stats.Skipped.Load())
	fmt.Printf("Failed:     %d files\n", stats.Failed.Load())
	fmt.Printf("Elapsed:    %v\n", elapsed.Round(time.Second))
	fmt.Println("=========================================================")

	if stats.Failed.Load() > 0 {
		os.Exit(1)
	}
}
