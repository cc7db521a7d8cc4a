// indices-ingest - Geophysical index ingestion into ClickHouse
//
// Loads the Madrigal geophysical index archives (F10.7/Kp/Ap, Dst, OMNI2
// IMF and NGDC AE) and inserts long-format index rows using the native
// ClickHouse protocol.
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/indices-ingest ./cmd/indices-ingest

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

	"github.com/ClickHouse/ch-go"
	"github.com/ClickHouse/ch-go/proto"

	"github.com/cedarlab/madrigal-lab-apps/internal/common"
	"github.com/cedarlab/madrigal-lab-apps/internal/instruments"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

// indexPlatforms are the registered instruments holding index archives.
var indexPlatforms = []struct {
	platform, name string
}{
	{"madrigal", "geoind"},
	{"madrigal", "dst"},
	{"omni2", "imf"},
	{"ngdc", "ae"},
}

// IndexBatch holds column data for native insert
type IndexBatch struct {
	Date       *proto.ColDate32
	Time       *proto.ColDateTime
	Platform   *proto.ColStr
	Instrument *proto.ColStr
	Param      *proto.ColStr
	Value      *proto.ColFloat64
	SourceFile *proto.ColStr
}

func NewIndexBatch() *IndexBatch {
	return &IndexBatch{
		Date:       new(proto.ColDate32),
		Time:       new(proto.ColDateTime),
		Platform:   new(proto.ColStr),
		Instrument: new(proto.ColStr),
		Param:      new(proto.ColStr),
		Value:      new(proto.ColFloat64),
		SourceFile: new(proto.ColStr),
	}
}

func (b *IndexBatch) Reset() {
	b.Date.Reset()
	b.Time.Reset()
	b.Platform.Reset()
	b.Instrument.Reset()
	b.Param.Reset()
	b.Value.Reset()
	b.SourceFile.Reset()
}

func (b *IndexBatch) Len() int {
	return b.Date.Rows()
}

func (b *IndexBatch) Input() proto.Input {
	return proto.Input{
		{Name: "date", Data: b.Date},
		{Name: "time", Data: b.Time},
		{Name: "platform", Data: b.Platform},
		{Name: "instrument", Data: b.Instrument},
		{Name: "param", Data: b.Param},
		{Name: "value", Data: b.Value},
		{Name: "source_file", Data: b.SourceFile},
	}
}

func (b *IndexBatch) AddRecord(t time.Time, platform, instrument, param string, value float64, sourceFile string) {
	b.Date.Append(t)
	b.Time.Append(t)
	b.Platform.Append(platform)
	b.Instrument.Append(instrument)
	b.Param.Append(param)
	b.Value.Append(value)
	b.SourceFile.Append(sourceFile)
}

func flushBatch(ctx context.Context, conn *ch.Client, tableFQN string, batch *IndexBatch) error {
	if batch.Len() == 0 {
		return nil
	}

	query := fmt.Sprintf("INSERT INTO %s (date, time, platform, instrument, param, value, source_file) VALUES", tableFQN)
	err := conn.Do(ctx, ch.Query{
		Body:  query,
		Input: batch.Input(),
	})
	if err != nil {
		return err
	}
	batch.Reset()
	return nil
}

// ingestFile loads one index archive and appends its parameters.
func ingestFile(a *instruments.Adapter, path string, level instruments.CleanLevel, logger *slog.Logger, batch *IndexBatch) (int, error) {
	f, meta, err := a.Load([]string{path}, "", "")
	if err != nil {
		return 0, err
	}
	if err := a.Clean(f, meta, "", level, logger); err != nil {
		return 0, err
	}

	sourceFile := filepath.Base(path)
	count := 0
	for _, param := range f.Columns() {
		vals, _ := f.Column(param)
		for i := 0; i < f.Len(); i++ {
			if math.IsNaN(vals[i]) {
				continue
			}
			batch.AddRecord(f.Times[i], a.Platform, a.Name, param, vals[i], sourceFile)
			count++
		}
	}
	return count, nil
}

func main() {
	profile := flag.String("profile", "", "TOML profile with ClickHouse settings")
	chHost := flag.String("ch-host", "", "ClickHouse address (default: profile/env)")
	chTable := flag.String("ch-table", "indices", "ClickHouse table")
	sourceDir := flag.String("source-dir", "", "Index data directory (default: <data-dir>/indices)")
	cleanLevel := flag.String("clean", "clean", "Clean level: none, dirty, dusty or clean")
	truncate := flag.Bool("truncate", false, "Truncate table before insert")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "indices-ingest v%s - Geophysical Index Ingester\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [files...]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Ingests Madrigal geophysical index archives into ClickHouse.\n\n")
		fmt.Fprintf(os.Stderr, "Supported archives:\n")
		fmt.Fprintf(os.Stderr, "  - madrigal/geoind: F10.7, Kp and Ap\n")
		fmt.Fprintf(os.Stderr, "  - madrigal/dst:    Dst index\n")
		fmt.Fprintf(os.Stderr, "  - omni2/imf:       interplanetary magnetic field\n")
		fmt.Fprintf(os.Stderr, "  - ngdc/ae:         auroral electrojet indices\n\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	log.Println("=========================================================")
	log.Printf("Indices Ingest v%s", Version)
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
	conn, err := ch.Dial(ctx, ch.Options{
		Address:     host,
		Database:    cfg.ClickHouseDatabase,
		User:        cfg.ClickHouseUser,
		Password:    cfg.ClickHousePassword,
		Compression: ch.CompressionLZ4,
	})
	if err != nil {
		log.Fatalf("ClickHouse connection failed: %v", err)
	}
	defer conn.Close()

	tableFQN := fmt.Sprintf("%s.%s", cfg.ClickHouseDatabase, *chTable)
	log.Printf("Table: %s", tableFQN)

	if *truncate {
		log.Printf("Truncating table %s...", tableFQN)
		if err := conn.Do(ctx, ch.Query{Body: fmt.Sprintf("TRUNCATE TABLE %s", tableFQN)}); err != nil {
			log.Printf("Truncate warning: %v", err)
		}
	}

	dir := *sourceDir
	if dir == "" {
		dir = cfg.IndicesDataDir()
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	startTime := time.Now()
	totalRecords := 0
	batch := NewIndexBatch()

	for _, ip := range indexPlatforms {
		select {
		case <-ctx.Done():
			log.Fatal("Cancelled")
		default:
		}

		adapter, err := instruments.Lookup(ip.platform, ip.name)
		if err != nil {
			log.Fatalf("Instrument error: %v", err)
		}

		var files []string
		if len(flag.Args()) > 0 {
			// Explicit files: keep the ones matching this archive
			templates, _ := adapter.TemplatesFor("", "")
			for _, path := range flag.Args() {
				for _, tmpl := range templates {
					if _, ok := tmpl.MatchDate(filepath.Base(path)); ok {
						files = append(files, path)
						break
					}
				}
			}
		} else {
			local, err := adapter.ListFiles(dir, "", "")
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				log.Fatalf("Cannot index %s: %v", dir, err)
			}
			for _, lf := range local {
				files = append(files, filepath.Join(dir, lf.Name))
			}
		}

		for _, path := range files {
			count, err := ingestFile(adapter, path, level, logger, batch)
			if err != nil {
				log.Printf("[%s] Parse error: %v", filepath.Base(path), err)
				continue
			}
			log.Printf("[%s] Parsed %d records (%s/%s)", filepath.Base(path), count, ip.platform, ip.name)
			totalRecords += count
		}
	}

	if batch.Len() > 0 {
		inserted := batch.Len()
		if err := flushBatch(ctx, conn, tableFQN, batch); err != nil {
			log.Fatalf("Insert error: %v", err)
		}
		log.Printf("Inserted %d records", inserted)
	}

	elapsed := time.Since(startTime)

	log.Println()
	log.Println("=========================================================")
	log.Println("Final Statistics")
	log.Println("=========================================================")
	log.Printf("Total Records: %d", totalRecords)
	log.Printf("Elapsed:       %v", elapsed.Round(time.Millisecond))
	if elapsed.Seconds() > 0 {
		log.Printf("Rate:          %.0f records/sec", float64(totalRecords)/elapsed.Seconds())
	}
	log.Println("=========================================================")
}
