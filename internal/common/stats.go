package common

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Stats holds atomic counters for ingest telemetry
type Stats struct {
	TotalRowsProcessed  uint64 // Atomic counter for total parameter rows processed
	TotalBytesRead      uint64 // Atomic counter for total bytes read
	FilesProcessed      uint64 // Atomic counter for data files fully ingested
	FilesFailed         uint64 // Atomic counter for data files that failed to load or clean
	CurrentBatchLatency uint64 // Atomic counter for batch latency in nanoseconds

	// Internal state for reporter
	running   atomic.Bool
	stopCh    chan struct{}
	silent    bool
	lastRows  uint64
	lastBytes uint64
	lastTime  time.Time

	// Moving average window for rate calculation
	rateWindow     []float64
	rateWindowSize int
	rateIndex      int
}

// NewStats creates a new Stats instance
func NewStats() *Stats {
	return &Stats{
		stopCh:         make(chan struct{}),
		rateWindow:     make([]float64, 10), // 10-sample moving average (5 seconds)
		rateWindowSize: 10,
		rateIndex:      0,
	}
}

// AddRows atomically increments the total rows processed counter
func (s *Stats) AddRows(count uint64) {
	atomic.AddUint64(&s.TotalRowsProcessed, count)
}

// AddBytes atomically increments the total bytes read counter
func (s *Stats) AddBytes(count uint64) {
	atomic.AddUint64(&s.TotalBytesRead, count)
}

// AddFileProcessed atomically increments the processed file counter
func (s *Stats) AddFileProcessed() {
	atomic.AddUint64(&s.FilesProcessed, 1)
}

// AddFileFailed atomically increments the failed file counter
func (s *Stats) AddFileFailed() {
	atomic.AddUint64(&s.FilesFailed, 1)
}

// GetFilesProcessed atomically reads the processed file counter
func (s *Stats) GetFilesProcessed() uint64 {
	return atomic.LoadUint64(&s.FilesProcessed)
}

// GetFilesFailed atomically reads the failed file counter
func (s *Stats) GetFilesFailed() uint64 {
	return atomic.LoadUint64(&s.FilesFailed)
}

// SetBatchLatency atomically sets the current batch latency in nanoseconds
func (s *Stats) SetBatchLatency(ns uint64) {
	atomic.StoreUint64(&s.CurrentBatchLatency, ns)
}

// GetTotalRows atomically reads the total rows processed
func (s *Stats) GetTotalRows() uint64 {
	return atomic.LoadUint64(&s.TotalRowsProcessed)
}

// GetTotalBytes atomically reads the total bytes read
func (s *Stats) GetTotalBytes() uint64 {
	return atomic.LoadUint64(&s.TotalBytesRead)
}

// GetBatchLatency atomically reads the current batch latency
func (s *Stats) GetBatchLatency() uint64 {
	return atomic.LoadUint64(&s.CurrentBatchLatency)
}

// SetSilent enables or disables silent mode
func (s *Stats) SetSilent(silent bool) {
	s.silent = silent
}

// StartReporter starts a background goroutine that prints telemetry stats
// every 500ms using standard newline-based logging to avoid conflicts with log.Printf
func (s *Stats) StartReporter() {
	if s.running.Load() {
		return // Already running
	}

	s.running.Store(true)
	s.lastTime = time.Now()
	s.lastRows = 0
	s.lastBytes = 0

	go s.reporterLoop()
}

// StopReporter stops the background reporter goroutine
func (s *Stats) StopReporter() {
	if !s.running.Load() {
		return
	}

	s.running.Store(false)
	close(s.stopCh)
}

// reporterLoop is the background goroutine that periodically prints stats
func (s *Stats) reporterLoop() {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.printStatus()
		}
	}
}

// printStatus prints the current telemetry status using standard logging
func (s *Stats) printStatus() {
	if s.silent {
		return
	}

	now := time.Now()
	elapsed := now.Sub(s.lastTime).Seconds()

	if elapsed < 0.001 {
		// Avoid division by zero on first tick
		return
	}

	currentRows := s.GetTotalRows()
	currentBytes := s.GetTotalBytes()
	batchLatencyNs := s.GetBatchLatency()

	deltaRows := currentRows - s.lastRows
	deltaBytes := currentBytes - s.lastBytes

	mibPerSec := (float64(deltaBytes) / (1024 * 1024)) / elapsed
	krps := (float64(deltaRows) / 1_000) / elapsed

	// Update moving average for rate
	s.rateWindow[s.rateIndex] = krps
	s.rateIndex = (s.rateIndex + 1) % s.rateWindowSize

	var sum float64
	var count int
	for i := 0; i < s.rateWindowSize; i++ {
		if s.rateWindow[i] > 0 {
			sum += s.rateWindow[i]
			count++
		}
	}
	smoothedKrps := 0.0
	if count > 0 {
		smoothedKrps = sum / float64(count)
	}

	batchLatencyMs := float64(batchLatencyNs) / 1_000_000

	fmt.Printf("[Progress] Throughput: %.2f MiB/s | Rows: %.2f krps (avg: %.2f) | Batch: %.2f ms | Total: %d rows, %d files\n",
		mibPerSec,
		krps,
		smoothedKrps,
		batchLatencyMs,
		currentRows,
		s.GetFilesProcessed(),
	)

	s.lastRows = currentRows
	s.lastBytes = currentBytes
	s.lastTime = now
}

// Reset resets all counters (useful for testing or restarting)
func (s *Stats) Reset() {
	atomic.StoreUint64(&s.TotalRowsProcessed, 0)
	atomic.StoreUint64(&s.TotalBytesRead, 0)
	atomic.StoreUint64(&s.FilesProcessed, 0)
	atomic.StoreUint64(&s.FilesFailed, 0)
	atomic.StoreUint64(&s.CurrentBatchLatency, 0)
	s.lastRows = 0
	s.lastBytes = 0
	s.lastTime = time.Now()

	for i := range s.rateWindow {
		s.rateWindow[i] = 0
	}
	s.rateIndex = 0
}
