// mad-ingest - Madrigal instrument file ingester for ClickHouse
//
// Loads local CEDAR files (hdf5, netCDF4 or simple) through an instrument
// adapter, applies the requested cleaning level, and batch-inserts the
// measurements as long-format rows: one row per time sample and parameter.
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/mad-ingest ./cmd/mad-ingest

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/cedarlab/madrigal-lab-apps/internal/cedar"
	"github.com/cedarlab/madrigal-lab-apps/internal/common"
	"github.com/cedarlab/madrigal-lab-apps/internal/instruments"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

const clickHouseBatchSize = 1_000_000

// appendFrameRows appends one row per sample and parameter to the pending
// batch. NaN values are skipped; the fill convention is resolved at load.
func appendFrameRows(batch driver.Batch, f *cedar.Frame, platform, name, tag, instID, sourceFile string) (int, error) {
	count := 0
	for _, param := range f.Columns() {
		vals, _ := f.Column(param)
		for i := 0; i < f.Len(); i++ {
			if math.IsNaN(vals[i]) {
				continue
			}
			err := batch.Append(
				f.Times[i],
				platform,
				name,
				tag,
				instID,
				param,
				vals[i],
				sourceFile,
			)
			if err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}

func main() {
	profile := flag.String("profile", "", "TOML profile with ClickHouse settings")
	platform := flag.String("platform", "dmsp", "Instrument platform")
	name := flag.String("name", "ivm", "Instrument name")
	tag := flag.String("tag", "utd", "Instrument tag")
	instID := flag.String("inst-id", "f12", "Instrument ID (e.g. satellite)")
	instCode := flag.Int("inst-code", 0, "Madrigal instrument code for generic access (overrides -platform/-name)")
	kindat := flag.String("kindat", "", "Kindat code(s) for generic access, comma separated (empty: all)")
	cleanLevel := flag.String("clean", "none", "Clean level: none, dirty, dusty or clean")
	chHost := flag.String("ch-host", "", "ClickHouse address (default: profile/env)")
	chTable := flag.String("ch-table", "measurements", "ClickHouse table")
	sourceDir := flag.String("source-dir", "", "Data directory (default: <data-dir>/<platform>/<name>)")
	truncate := flag.Bool("truncate", false, "Truncate table before insert")
	silent := flag.Bool("silent", false, "Suppress progress output")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "mad-ingest v%s - Madrigal File Ingester\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [files...]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Loads CEDAR instrument files, cleans them, and inserts\n")
		fmt.Fprintf(os.Stderr, "long-format parameter rows into ClickHouse.\n\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -platform dmsp -name ivm -inst-id f13 -tag utd -clean dusty\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -platform jro -name isr -tag drifts jro20100412drifts.001.hdf5\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -inst-code 180 -kindat 17110 dms_20150101_s1.001.hdf5\n", os.Args[0])
	}

	flag.Parse()

	log.Println("=========================================================")
	log.Printf("Madrigal Ingest v%s", Version)
	log.Println("=========================================================")

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

	var adapter *instruments.Adapter
	if *instCode != 0 {
		adapter = instruments.Generic(int32(*instCode), *kindat)
		*instID, *tag = "", ""
	} else {
		adapter, err = instruments.Lookup(*platform, *name)
		if err != nil {
			log.Fatalf("Instrument error: %v", err)
		}
	}
	if err := adapter.ValidateSelection(*instID, *tag); err != nil {
		log.Fatalf("Instrument error: %v", err)
	}
	level, err := instruments.ParseCleanLevel(*cleanLevel)
	if err != nil {
		log.Fatalf("Clean level error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("\nShutdown requested...")
		cancel()
	}()

	host := *chHost
	if host == "" {
		host = fmt.Sprintf("%s:%d", cfg.ClickHouseHost, cfg.ClickHousePort)
	}

	// Connect to ClickHouse
	log.Printf("Connecting to ClickHouse at %s...", host)
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{host},
		Auth: clickhouse.Auth{
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUser,
			Password: cfg.ClickHousePassword,
		},
		Settings: clickhouse.Settings{
			"max_execution_time":    60,
			"max_insert_block_size": 1048576,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		log.Fatalf("ClickHouse connection failed: %v", err)
	}
	defer conn.Close()

	if err := conn.Ping(ctx); err != nil {
		log.Fatalf("ClickHouse ping failed: %v", err)
	}

	tableFQN := fmt.Sprintf("%s.%s", cfg.ClickHouseDatabase, *chTable)
	log.Printf("ClickHouse table: %s", tableFQN)

	if *truncate {
		log.Printf("Truncating table %s...", tableFQN)
		if err := conn.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s", tableFQN)); err != nil {
			log.Printf("Truncate warning: %v", err)
		}
	}

	// Discover files
	dir := *sourceDir
	if dir == "" {
		dir = cfg.InstrumentDataDir(adapter.Platform, adapter.Name)
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
	log.Printf("Found %d file(s)", len(files))

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	startTime := time.Now()
	totalRows := 0

	stats := common.NewStats()
	stats.SetSilent(*silent)
	stats.StartReporter()
	defer stats.StopReporter()

	var pendingBatch driver.Batch
	pendingCount := 0

	flush := func() error {
		if pendingBatch == nil || pendingCount == 0 {
			return nil
		}
		flushStart := time.Now()
		if err := pendingBatch.Send(); err != nil {
			return err
		}
		stats.SetBatchLatency(uint64(time.Since(flushStart).Nanoseconds()))
		stats.AddRows(uint64(pendingCount))
		log.Printf("Flushed %d rows", pendingCount)
		pendingBatch = nil
		pendingCount = 0
		return nil
	}

	for _, path := range files {
		select {
		case <-ctx.Done():
			log.Fatal("Cancelled")
		default:
		}

		f, meta, err := adapter.Load([]string{path}, *tag, *instID)
		if err != nil {
			log.Printf("[%s] Load error: %v", filepath.Base(path), err)
			stats.AddFileFailed()
			continue
		}
		if info, err := os.Stat(path); err == nil {
			stats.AddBytes(uint64(info.Size()))
		}
		if err := adapter.Clean(f, meta, *tag, level, logger); err != nil {
			log.Printf("[%s] Clean error: %v", filepath.Base(path), err)
			stats.AddFileFailed()
			continue
		}

		if pendingBatch == nil {
			pendingBatch, err = conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s", tableFQN))
			if err != nil {
				log.Fatalf("PrepareBatch failed: %v", err)
			}
		}

		n, err := appendFrameRows(pendingBatch, f,
			adapter.Platform, adapter.Name, *tag, *instID, filepath.Base(path))
		if err != nil {
			log.Fatalf("[%s] Append error: %v", filepath.Base(path), err)
		}
		pendingCount += n
		totalRows += n
		stats.AddFileProcessed()
		log.Printf("[%s] %d samples, %d rows", filepath.Base(path), f.Len(), n)

		if pendingCount >= clickHouseBatchSize {
			if err := flush(); err != nil {
				log.Fatalf("Insert error: %v", err)
			}
		}
	}

	if err := flush(); err != nil {
		log.Fatalf("Insert error: %v", err)
	}

	elapsed := time.Since(startTime)

	log.Println()
	log.Println("=========================================================")
	log.Println("Final Statistics")
	log.Println("=========================================================")
	log.Printf("Total Rows: %d", totalRows)
	log.Printf("Files:      %d processed, %d failed", stats.GetFilesProcessed(), stats.GetFilesFailed())
	log.Printf("Elapsed:    %v", elapsed.Round(time.Millisecond))
	if elapsed.Seconds() > 0 {
		log.Printf("Rate:       %.0f rows/sec", float64(totalRows)/elapsed.Seconds())
	}
	log.Println("=========================================================")
}
