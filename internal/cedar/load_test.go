package cedar

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSimpleGz(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

const simpleBody = `YEAR MONTH DAY HOUR MIN SEC GDALT TI
1998 1 1 0 0 0 250.0 1000.0
1998 1 1 0 1 0 300.0 missing
1998 1 1 0 2 0 350.0 1200.0
`

func TestLoadSimple(t *testing.T) {
	path := writeSimpleGz(t, t.TempDir(), "dms_ut_19980101_11.002.simple.gz", simpleBody)

	frame, meta, err := LoadSimple(path)
	require.NoError(t, err)

	assert.Equal(t, 3, frame.Len())
	assert.Equal(t, time.Date(1998, 1, 1, 0, 1, 0, 0, time.UTC), frame.Times[1])

	gdalt, ok := frame.Column("gdalt")
	require.True(t, ok)
	assert.Equal(t, []float64{250, 300, 350}, gdalt)

	ti, ok := frame.Column("ti")
	require.True(t, ok)
	assert.True(t, math.IsNaN(ti[1]), "missing cell should load as NaN")

	_, ok = meta.Get("ti")
	assert.True(t, ok)
}

func TestLoadSimpleRaggedRow(t *testing.T) {
	body := "YEAR MONTH DAY HOUR MIN SEC TI\n1998 1 1 0 0 0\n"
	path := writeSimpleGz(t, t.TempDir(), "bad.simple.gz", body)

	_, _, err := LoadSimple(path)
	assert.Error(t, err)
}

func TestLoadMultiFileSorted(t *testing.T) {
	dir := t.TempDir()
	day2 := writeSimpleGz(t, dir, "a_19980102.simple.gz",
		"YEAR MONTH DAY HOUR MIN SEC TI\n1998 1 2 0 0 0 1100.0\n")
	day1 := writeSimpleGz(t, dir, "a_19980101.simple.gz",
		"YEAR MONTH DAY HOUR MIN SEC TI\n1998 1 1 0 0 0 1000.0\n")

	frame, _, err := Load([]string{day2, day1})
	require.NoError(t, err)
	require.Equal(t, 2, frame.Len())
	assert.True(t, frame.Times[0].Before(frame.Times[1]))

	ti, _ := frame.Column("ti")
	assert.Equal(t, []float64{1000, 1100}, ti)
}

func TestLoadUnrecognizedType(t *testing.T) {
	_, _, err := Load([]string{"data.grib"})
	assert.Error(t, err)
}

func TestLoadNetCDFGriddedCoords(t *testing.T) {
	// Gridded exports carry coordinate variables (gdlat, glon) on their
	// own dimensions, shorter than the time index.
	path := filepath.Join(t.TempDir(), "gps130101g.001.nc")

	cw, err := cdf.OpenWriter(path)
	require.NoError(t, err)

	units, err := util.NewOrderedMap([]string{"units"},
		map[string]interface{}{"units": "TECU"})
	require.NoError(t, err)

	require.NoError(t, cw.AddVar("timestamps", api.Variable{
		Values:     []float64{1357000200, 1357000500},
		Dimensions: []string{"timestamps"},
	}))
	require.NoError(t, cw.AddVar("tec", api.Variable{
		Values:     []float64{12.5, 14.0},
		Dimensions: []string{"timestamps"},
		Attributes: units,
	}))
	require.NoError(t, cw.AddVar("gdlat", api.Variable{
		Values:     []float64{-90, -89, -88},
		Dimensions: []string{"gdlat"},
	}))
	require.NoError(t, cw.Close())

	frame, meta, err := LoadNetCDF(path)
	require.NoError(t, err)

	assert.Equal(t, 2, frame.Len())
	assert.Equal(t, time.Unix(1357000200, 0).UTC(), frame.Times[0])

	tec, ok := frame.Column("tec")
	require.True(t, ok)
	assert.Equal(t, []float64{12.5, 14.0}, tec)
	assert.False(t, frame.HasColumn("gdlat"), "coordinate variables stay out of the table")

	vm, ok := meta.Get("tec")
	require.True(t, ok)
	assert.Equal(t, "TECU", vm.Units)
}

func TestListLocalAny(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"dms_20150101_s1.001.hdf5",
		"exp1234.simple.gz",
		"grid.nc",
		"notes.txt",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	files, err := ListLocalAny(dir)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "dms_20150101_s1.001.hdf5", files[0].Name)
	assert.True(t, files[0].Date.IsZero())
}
