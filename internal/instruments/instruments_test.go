package instruments

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cedarlab/madrigal-lab-apps/internal/cedar"
	"github.com/cedarlab/madrigal-lab-apps/internal/madrigal"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func testFrame(t *testing.T, cols map[string][]float64) *cedar.Frame {
	t.Helper()
	var n int
	for _, v := range cols {
		n = len(v)
		break
	}
	f := cedar.NewFrame()
	start := time.Date(1998, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		f.Times = append(f.Times, start.Add(time.Duration(i)*time.Minute))
	}
	for name, vals := range cols {
		require.NoError(t, f.SetColumn(name, vals))
	}
	return f
}

func TestLookup(t *testing.T) {
	for _, key := range []struct{ platform, name string }{
		{"dmsp", "ivm"}, {"dmsp", "ssj"}, {"jro", "isr"}, {"gnss", "tec"},
		{"madrigal", "geoind"}, {"madrigal", "dst"}, {"omni2", "imf"}, {"ngdc", "ae"},
	} {
		a, err := Lookup(key.platform, key.name)
		require.NoError(t, err)
		assert.Equal(t, key.platform, a.Platform)
		assert.Equal(t, key.name, a.Name)
	}

	_, err := Lookup("dmsp", "nope")
	assert.Error(t, err)

	assert.Len(t, All(), 8)
}

func TestParseCleanLevel(t *testing.T) {
	for _, s := range []string{"none", "dirty", "dusty", "clean"} {
		level, err := ParseCleanLevel(s)
		require.NoError(t, err)
		assert.Equal(t, CleanLevel(s), level)
	}
	_, err := ParseCleanLevel("sparkling")
	assert.Error(t, err)
}

func TestDMSPIVMSelection(t *testing.T) {
	a, err := Lookup("dmsp", "ivm")
	require.NoError(t, err)

	kindat, err := a.Kindat("f13", "utd")
	require.NoError(t, err)
	assert.Equal(t, "10243", kindat)

	kindat, err = a.Kindat("f17", "")
	require.NoError(t, err)
	assert.Equal(t, "10117", kindat)

	// f16 only has level 2 data
	_, err = a.Kindat("f16", "utd")
	assert.Error(t, err)

	templates, err := a.TemplatesFor("f12", "utd")
	require.NoError(t, err)
	require.Len(t, templates, 1)

	date, ok := templates[0].MatchDate("dms_ut_19980102_12.001.hdf5")
	require.True(t, ok)
	assert.Equal(t, time.Date(1998, 1, 2, 0, 0, 0, 0, time.UTC), date)

	_, ok = templates[0].MatchDate("dms_ut_19980102_11.001.hdf5")
	assert.False(t, ok, "satellite number must match the inst_id")
}

func TestDMSPIVMLevel2Template(t *testing.T) {
	a, err := Lookup("dmsp", "ivm")
	require.NoError(t, err)

	templates, err := a.TemplatesFor("f15", "")
	require.NoError(t, err)
	require.Len(t, templates, 1)

	date, ok := templates[0].MatchDate("dms_20171230_15s1.001.hdf5")
	require.True(t, ok)
	assert.Equal(t, time.Date(2017, 12, 30, 0, 0, 0, 0, time.UTC), date)
}

func TestCleanDMSPIVM(t *testing.T) {
	newIVMFrame := func() *cedar.Frame {
		return testFrame(t, map[string][]float64{
			"rpa_flag_ut":   {1, 2, 3, 4, 1},
			"idm_flag_ut":   {1, 1, 2, 1, 3},
			"ion_v_sat_for": {10, 20, 30, 40, 50},
		})
	}
	a, err := Lookup("dmsp", "ivm")
	require.NoError(t, err)

	cases := []struct {
		level CleanLevel
		want  []float64
	}{
		{CleanClean, []float64{10}},
		{CleanDusty, []float64{10, 20}},
		{CleanDirty, []float64{10, 20, 30, 50}},
	}
	for _, tc := range cases {
		f := newIVMFrame()
		require.NoError(t, a.Clean(f, cedar.NewMeta(), "utd", tc.level, discardLogger()))
		vel, _ := f.Column("ion_v_sat_for")
		assert.Equal(t, tc.want, vel, string(tc.level))
	}

	// Level 2 data has no flags and is left alone
	f := newIVMFrame()
	require.NoError(t, a.Clean(f, cedar.NewMeta(), "", CleanClean, discardLogger()))
	assert.Equal(t, 5, f.Len())

	// none never touches the data
	f = newIVMFrame()
	require.NoError(t, a.Clean(f, cedar.NewMeta(), "utd", CleanNone, discardLogger()))
	assert.Equal(t, 5, f.Len())
}

func TestCleanDMSPSSJ(t *testing.T) {
	newSSJFrame := func() *cedar.Frame {
		return testFrame(t, map[string][]float64{
			"eqb_qc_fl": {0, 1, 2, 3},
			"mlat":      {60, 61, 62, 63},
		})
	}
	a, err := Lookup("dmsp", "ssj")
	require.NoError(t, err)

	f := newSSJFrame()
	require.NoError(t, a.Clean(f, cedar.NewMeta(), "abi", CleanClean, discardLogger()))
	assert.Equal(t, 2, f.Len())

	f = newSSJFrame()
	require.NoError(t, a.Clean(f, cedar.NewMeta(), "abi", CleanDusty, discardLogger()))
	assert.Equal(t, 3, f.Len())

	f = newSSJFrame()
	require.NoError(t, a.Clean(f, cedar.NewMeta(), "abi", CleanDirty, discardLogger()))
	assert.Equal(t, 4, f.Len(), "dirty keeps everything")
}

func TestCleanJROISR(t *testing.T) {
	newJROFrame := func() *cedar.Frame {
		return testFrame(t, map[string][]float64{
			"gdalt": {150, 199, 201, 400},
			"vipn":  {1, 2, 3, 4},
		})
	}
	a, err := Lookup("jro", "isr")
	require.NoError(t, err)

	for _, level := range []CleanLevel{CleanClean, CleanDusty, CleanDirty} {
		f := newJROFrame()
		require.NoError(t, a.Clean(f, cedar.NewMeta(), "drifts", level, discardLogger()))
		alt, _ := f.Column("gdalt")
		assert.Equal(t, []float64{201, 400}, alt, string(level))
	}

	// Oblique modes have no quality flags
	f := newJROFrame()
	require.NoError(t, a.Clean(f, cedar.NewMeta(), "oblique_stan", CleanClean, discardLogger()))
	assert.Equal(t, 4, f.Len())
}

func TestPreprocessJROISR(t *testing.T) {
	f := testFrame(t, map[string][]float64{"gdalt": {300, 300, 300}})
	f.Times = []time.Time{
		time.Date(2010, 4, 12, 22, 0, 0, 0, time.UTC),
		time.Date(2010, 4, 12, 23, 30, 0, 0, time.UTC),
		time.Date(2010, 4, 13, 1, 0, 0, 0, time.UTC),
	}
	require.NoError(t, preprocessJROISR(f, cedar.NewMeta()))
	assert.Equal(t, 2, f.Len(), "samples past midnight dropped")
}

func TestCleanGNSSTEC(t *testing.T) {
	a, err := Lookup("gnss", "tec")
	require.NoError(t, err)

	f := testFrame(t, map[string][]float64{"tec": {10, 20}})
	require.NoError(t, a.Clean(f, cedar.NewMeta(), "vtec", CleanClean, discardLogger()))
	assert.Equal(t, 2, f.Len(), "informational only")
}

func TestCleanNGDCAE(t *testing.T) {
	a, err := Lookup("ngdc", "ae")
	require.NoError(t, err)

	newAEFrame := func() (*cedar.Frame, *cedar.Meta) {
		f := testFrame(t, map[string][]float64{
			"ae":    {120, -32767, -32766, 250},
			"recno": {1, 2, 3, 4},
		})
		meta := cedar.NewMeta()
		meta.Set(cedar.VarMeta{Name: "ae", Units: "nT", FillValue: -32767})
		meta.Set(cedar.VarMeta{Name: "recno", Units: ""})
		return f, meta
	}

	f, meta := newAEFrame()
	require.NoError(t, a.Clean(f, meta, "", CleanDirty, discardLogger()))
	ae, _ := f.Column("ae")
	assert.True(t, math.IsNaN(ae[1]), "fill value replaced at every level")
	assert.Equal(t, -32766.0, ae[2], "error value kept at dirty")

	f, meta = newAEFrame()
	require.NoError(t, a.Clean(f, meta, "", CleanClean, discardLogger()))
	ae, _ = f.Column("ae")
	assert.True(t, math.IsNaN(ae[1]))
	assert.True(t, math.IsNaN(ae[2]), "error value replaced at clean")

	vm, ok := meta.Get("ae")
	require.True(t, ok)
	assert.True(t, math.IsNaN(vm.FillValue))

	recno, _ := f.Column("recno")
	assert.Equal(t, []float64{1, 2, 3, 4}, recno, "non-nT columns untouched")
}

func TestIndexTemplates(t *testing.T) {
	a, err := Lookup("madrigal", "geoind")
	require.NoError(t, err)

	templates, err := a.TemplatesFor("", "")
	require.NoError(t, err)
	require.Len(t, templates, 1)

	date, ok := templates[0].MatchDate("geo500101g.002.hdf5")
	require.True(t, ok)
	assert.Equal(t, 1950, date.Year())

	date, ok = templates[0].MatchDate("geo120101g.002.hdf5")
	require.True(t, ok)
	assert.Equal(t, 2012, date.Year())
}

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"dms_ut_19980102_12.001.hdf5",
		"dms_ut_19980103_12.001.hdf5",
		"dms_ut_19980102_11.001.hdf5",
		"notes.txt",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	a, err := Lookup("dmsp", "ivm")
	require.NoError(t, err)

	files, err := a.ListFiles(dir, "f12", "utd")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "dms_ut_19980102_12.001.hdf5", files[0].Name)
	assert.Equal(t, "dms_ut_19980103_12.001.hdf5", files[1].Name)
}

func TestGenericAdapter(t *testing.T) {
	a := Generic(180, "17110")
	assert.Equal(t, "madrigal/generic", a.Key())
	assert.Equal(t, int32(180), a.InstCode)

	kindat, err := a.Kindat("", "")
	require.NoError(t, err)
	assert.Equal(t, "17110", kindat)

	assert.Error(t, a.ValidateSelection("f12", ""))

	// Known codes pick up their catalog description
	assert.Contains(t, a.Tags[""], "SSJ")
	assert.NotEmpty(t, Generic(9999, "").Tags[""])

	// Cleaning warns but never drops data
	f := testFrame(t, map[string][]float64{"el_i_ener": {1, 2, 3}})
	require.NoError(t, a.Clean(f, cedar.NewMeta(), "", CleanClean, discardLogger()))
	assert.Equal(t, 3, f.Len())
}

func TestGenericListFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"dms_20150101_s1.001.hdf5",
		"exp5678.netCDF4",
		"readme.md",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	a := Generic(180, "")
	files, err := a.ListFiles(dir, "", "")
	require.NoError(t, err)
	require.Len(t, files, 2, "every recognized data file is indexed")
	assert.Equal(t, "dms_20150101_s1.001.hdf5", files[0].Name)
}

func TestListRemote(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/getExperimentsService.py", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "100,http://x/madtoc/1998/dms/02jan98,dmsp,1000,Test Site,8100,DMSP,1998,1,2,0,0,0,1998,1,2,23,59,59,1")
	})
	mux.HandleFunc("/getExperimentFilesService.py", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "/opt/madrigal/dms_ut_19980102_12.001.hdf5,10242,UTD format,1,Final,0")
		fmt.Fprintln(w, "/opt/madrigal/dms_ut_19980102_11.001.hdf5,10242,UTD format,1,Final,0")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := madrigal.NewClient(discardLogger(), srv.URL, madrigal.User{
		FullName: "Ruby Payne-Scott", Email: "ruby@example.com", Affiliation: "CSIRO",
	})
	require.NoError(t, err)

	a, err := Lookup("dmsp", "ivm")
	require.NoError(t, err)

	day := time.Date(1998, 1, 2, 0, 0, 0, 0, time.UTC)
	files, err := a.ListRemote(context.Background(), client, "f12", "utd", day, day)
	require.NoError(t, err)
	require.Len(t, files, 1, "names that do not match the f12 template are dropped")
	assert.Equal(t, "/opt/madrigal/dms_ut_19980102_12.001.hdf5", files[0].Name)
}

func TestDownload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/getExperimentsService.py", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "100,http://x/madtoc/1998/dms/02jan98,dmsp,1000,Test Site,8100,DMSP,1998,1,2,0,0,0,1998,1,2,23,59,59,1")
	})
	mux.HandleFunc("/getExperimentFilesService.py", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "/opt/madrigal/dms_ut_19980102_12.001.hdf5,10242,UTD format,1,Final,0")
		fmt.Fprintln(w, "/opt/madrigal/dms_19980102_12s1.001.hdf5,10112,Level 2,1,Final,0")
	})
	mux.HandleFunc("/getMadfile.cgi", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "hdf5-bytes")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := madrigal.NewClient(discardLogger(), srv.URL, madrigal.User{
		FullName: "Ruby Payne-Scott", Email: "ruby@example.com", Affiliation: "CSIRO",
	})
	require.NoError(t, err)

	a, err := Lookup("dmsp", "ivm")
	require.NoError(t, err)

	dir := t.TempDir()
	dates := []time.Time{time.Date(1998, 1, 2, 0, 0, 0, 0, time.UTC)}

	res, err := a.Download(context.Background(), client, "f12", "utd", dates, dir, cedar.FileTypeHDF5)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Downloaded, "kindat filter keeps only the utd file")
	assert.Equal(t, 0, res.Skipped)
	require.Len(t, res.Files, 1)
	assert.Equal(t, filepath.Join(dir, "dms_ut_19980102_12.001.hdf5"), res.Files[0])

	// A second run skips the existing file
	res, err = a.Download(context.Background(), client, "f12", "utd", dates, dir, cedar.FileTypeHDF5)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Downloaded)
	assert.Equal(t, 1, res.Skipped)
}
