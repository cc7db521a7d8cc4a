package cedar

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateRender(t *testing.T) {
	tmpl := Template{Pattern: "dms_ut_{year}{month}{day}_11.002.{file_type}"}
	name := tmpl.Render(time.Date(1998, 1, 2, 0, 0, 0, 0, time.UTC), FileTypeHDF5)
	assert.Equal(t, "dms_ut_19980102_11.002.hdf5", name)

	name = tmpl.Render(time.Date(1998, 1, 2, 0, 0, 0, 0, time.UTC), FileTypeSimple)
	assert.Equal(t, "dms_ut_19980102_11.002.simple.gz", name)
}

func TestTemplateMatchDate(t *testing.T) {
	tmpl := Template{Pattern: "gps{year}{month}{day}g.{version}.{file_type}"}

	date, ok := tmpl.MatchDate("gps20130101g.001.hdf5")
	require.True(t, ok)
	assert.Equal(t, time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC), date)

	_, ok = tmpl.MatchDate("jro20130101d.001.hdf5")
	assert.False(t, ok)

	_, ok = tmpl.MatchDate("gps20131301g.001.hdf5")
	assert.False(t, ok, "month 13 must not match")
}

func TestTemplateTwoDigitYear(t *testing.T) {
	tmpl := Template{Pattern: "geo{year2}{month}{day}g.{version}.{file_type}", YearBreak: 50}

	date, ok := tmpl.MatchDate("geo500101g.002.hdf5")
	require.True(t, ok)
	assert.Equal(t, 1950, date.Year())

	date, ok = tmpl.MatchDate("geo491231g.002.hdf5")
	require.True(t, ok)
	assert.Equal(t, 2049, date.Year())
}

func TestTemplateWildcard(t *testing.T) {
	tmpl := Template{Pattern: "dms_{year}{month}{day}_12s?.{version}.{file_type}"}

	date, ok := tmpl.MatchDate("dms_20170101_12s1.001.hdf5")
	require.True(t, ok)
	assert.Equal(t, time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC), date)

	_, ok = tmpl.MatchDate("dms_20170101_12s11.001.hdf5")
	assert.False(t, ok, "wildcard matches exactly one character")
}

func TestTemplateNoDateTokens(t *testing.T) {
	tmpl := Template{Pattern: "dst19570101_to_20251231.{file_type}"}

	date, ok := tmpl.MatchDate("dst19570101_to_20251231.hdf5")
	require.True(t, ok)
	assert.True(t, date.IsZero())
}

func TestListLocal(t *testing.T) {
	dir := t.TempDir()
	names := []string{
		"dms_ut_19980101_11.002.hdf5",
		"dms_ut_19980102_11.002.hdf5",
		"notes.txt",
	}
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("x"), 0644))
	}

	tmpl := Template{Pattern: "dms_ut_{year}{month}{day}_11.002.{file_type}"}
	files, err := ListLocal(dir, []Template{tmpl})
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "dms_ut_19980101_11.002.hdf5", files[0].Name)
	assert.Equal(t, time.Date(1998, 1, 2, 0, 0, 0, 0, time.UTC), files[1].Date)
}

func TestLookupInstrument(t *testing.T) {
	info, ok := LookupInstrument(8100)
	require.True(t, ok)
	assert.Equal(t, "dmsp_ivm", info.Mnemonic)
	assert.Equal(t, CategorySatellite, info.Category)

	_, ok = LookupInstrument(9999)
	assert.False(t, ok)
}

func TestInstrumentCategoryFallback(t *testing.T) {
	assert.Equal(t, CategoryISR, InstrumentCategory(72))
	assert.Equal(t, CategoryGeoIndex, InstrumentCategory(250))
	assert.Equal(t, CategoryGNSS, InstrumentCategory(8001))
}
