// mad-parquet - Export Madrigal instrument data to Parquet
//
// Loads local CEDAR files through an instrument adapter, applies the
// requested cleaning level, and writes long-format measurement rows to
// Parquet, one output file per input file.
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/mad-parquet ./cmd/mad-parquet

package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/cedarlab/madrigal-lab-apps/internal/cedar"
	"github.com/cedarlab/madrigal-lab-apps/internal/common"
	"github.com/cedarlab/madrigal-lab-apps/internal/instruments"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

const NumWorkers = 4

// Measurement is one long-format row in the Parquet output.
type Measurement struct {
	Timestamp  int64   `parquet:"timestamp"`
	Platform   string  `parquet:"platform"`
	Name       string  `parquet:"name"`
	Tag        string  `parquet:"tag"`
	InstID     string  `parquet:"inst_id"`
	Param      string  `parquet:"param"`
	Value      float64 `parquet:"value"`
	SourceFile string  `parquet:"source_file"`
}

type Stats struct {
	TotalRows     atomic.Uint64
	FilesComplete atomic.Uint64
	Failed        atomic.Uint64
	StartTime     time.Time
}

func NewStats() *Stats {
	return &Stats{StartTime: time.Now()}
}

// frameRows flattens a loaded Frame into Parquet rows, dropping NaNs.
func frameRows(f *cedar.Frame, platform, name, tag, instID, sourceFile string) []Measurement {
	var rows []Measurement
	for _, param := range f.Columns() {
		vals, _ := f.Column(param)
		for i := 0; i < f.Len(); i++ {
			if math.IsNaN(vals[i]) {
				continue
			}
			rows = append(rows, Measurement{
				Timestamp:  f.Times[i].Unix(),
				Platform:   platform,
				Name:       name,
				Tag:        tag,
				InstID:     instID,
				Param:      param,
				Value:      vals[i],
				SourceFile: sourceFile,
			})
		}
	}
	return rows
}

func exportFile(a *instruments.Adapter, path, outDir, tag, instID string, level instruments.CleanLevel, logger *slog.Logger, stats *Stats) {
	fileName := filepath.Base(path)

	f, meta, err := a.Load([]string{path}, tag, instID)
	if err != nil {
		log.Printf("[%s] Load error: %v", fileName, err)
		stats.Failed.Add(1)
		return
	}
	if err := a.Clean(f, meta, tag, level, logger); err != nil {
		log.Printf("[%s] Clean error: %v", fileName, err)
		stats.Failed.Add(1)
		return
	}

	rows := frameRows(f, a.Platform, a.Name, tag, instID, fileName)

	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	outPath := filepath.Join(outDir, base+".parquet")
	tmpPath := outPath + ".tmp"

	out, err := os.Create(tmpPath)
	if err != nil {
		log.Printf("[%s] Create error: %v", fileName, err)
		stats.Failed.Add(1)
		return
	}

	writer := parquet.NewGenericWriter[Measurement](out, parquet.Compression(&parquet.Snappy))
	if _, err := writer.Write(rows); err != nil {
		log.Printf("[%s] Write error: %v", fileName, err)
		out.Close()
		os.Remove(tmpPath)
		stats.Failed.Add(1)
		return
	}
	if err := writer.Close(); err != nil {
		log.Printf("[%s] Close error: %v", fileName, err)
		out.Close()
		os.Remove(tmpPath)
		stats.Failed.Add(1)
		return
	}
	out.Close()

	if err := os.Rename(tmpPath, outPath); err != nil {
		log.Printf("[%s] Rename error: %v", fileName, err)
		os.Remove(tmpPath)
		stats.Failed.Add(1)
		return
	}

	stats.TotalRows.Add(uint64(len(rows)))
	stats.FilesComplete.Add(1)
	log.Printf("[%s] %d rows -> %s", fileName, len(rows), filepath.Base(outPath))
}

func main() {
	profile := flag.String("profile", "", "TOML profile with data directory settings")
	platform := flag.String("platform", "dmsp", "Instrument platform")
	name := flag.String("name", "ivm", "Instrument name")
	tag := flag.String("tag", "utd", "Instrument tag")
	instID := flag.String("inst-id", "f12", "Instrument ID (e.g. satellite)")
	cleanLevel := flag.String("clean", "none", "Clean level: none, dirty, dusty or clean")
	sourceDir := flag.String("source-dir", "", "Data directory (default: <data-dir>/<platform>/<name>)")
	outDir := flag.String("out-dir", "", "Parquet output directory (default: <source-dir>/parquet)")
	workers := flag.Int("workers", NumWorkers, "Number of parallel file workers")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "mad-parquet v%s - Madrigal Parquet Exporter\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [files...]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Exports loaded and cleaned instrument data to Parquet.\n\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -platform gnss -name tec -tag vtec -clean clean\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -platform jro -name isr -tag drifts jro20100412drifts.001.hdf5\n", os.Args[0])
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
		log.Fatalf("Config error: %v", err)
	}

	adapter, err := instruments.Lookup(*platform, *name)
	if err != nil {
		log.Fatalf("Instrument error: %v", err)
	}
	if err := adapter.ValidateSelection(*instID, *tag); err != nil {
		log.Fatalf("Instrument error: %v", err)
	}
	level, err := instruments.ParseCleanLevel(*cleanLevel)
	if err != nil {
		log.Fatalf("Clean level error: %v", err)
	}

	dir := *sourceDir
	if dir == "" {
		dir = cfg.InstrumentDataDir(*platform, *name)
	}
	dest := *outDir
	if dest == "" {
		dest = filepath.Join(dir, "parquet")
	}
	if err := os.MkdirAll(dest, 0755); err != nil {
		log.Fatalf("Cannot create output directory: %v", err)
	}

	var files []string
	if len(flag.Args()) > 0 {
		files = flag.Args()
	} else {
		local, err := adapter.ListFiles(dir, *instID, *tag)
		if err != nil {
			log.Fatalf("Cannot index %s: %v", dir, err)
		}
		for _, lf := range local {
			files = append(files, filepath.Join(dir, lf.Name))
		}
	}
	if len(files) == 0 {
		log.Fatal("No files to process")
	}

	log.Println("=========================================================")
	log.Printf("Madrigal Parquet Export v%s", Version)
	log.Println("=========================================================")
	log.Printf("Instrument: %s/%s tag=%q inst_id=%s", *platform, *name, *tag, *instID)
	log.Printf("Clean:      %s", level)
	log.Printf("Output:     %s", dest)
	log.Printf("Files:      %d | Workers: %d", len(files), *workers)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	stats := NewStats()

	sem := make(chan struct{}, *workers)
	var wg sync.WaitGroup

	for _, path := range files {
		sem <- struct{}{}
		wg.Add(1)

		go func(fp string) {
			defer func() { <-sem }()
			defer wg.Done()
			exportFile(adapter, fp, dest, *tag, *instID, level, logger, stats)
		}(path)
	}

	wg.Wait()

	elapsed := time.Since(stats.StartTime)

	log.Println()
	log.Println("=========================================================")
	log.Println("Final Statistics")
	log.Println("=========================================================")
	log.Printf("Files:      %d exported, %d failed", stats.FilesComplete.Load(), stats.Failed.Load())
	log.Printf("Total Rows: %d", stats.TotalRows.Load())
	log.Printf("Elapsed:    %v", elapsed.Round(time.Millisecond))
	log.Println("=========================================================")

	if stats.Failed.Load() > 0 {
		os.Exit(1)
	}
}
