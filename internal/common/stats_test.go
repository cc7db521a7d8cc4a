package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatsCounters(t *testing.T) {
	s := NewStats()

	s.AddRows(100)
	s.AddRows(50)
	s.AddBytes(2048)
	s.AddFileProcessed()
	s.AddFileProcessed()
	s.AddFileFailed()
	s.SetBatchLatency(1_500_000)

	assert.Equal(t, uint64(150), s.GetTotalRows())
	assert.Equal(t, uint64(2048), s.GetTotalBytes())
	assert.Equal(t, uint64(2), s.GetFilesProcessed())
	assert.Equal(t, uint64(1), s.GetFilesFailed())
	assert.Equal(t, uint64(1_500_000), s.GetBatchLatency())

	s.Reset()
	assert.Equal(t, uint64(0), s.GetTotalRows())
	assert.Equal(t, uint64(0), s.GetFilesProcessed())
	assert.Equal(t, uint64(0), s.GetFilesFailed())
}
