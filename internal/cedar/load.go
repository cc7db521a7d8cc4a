package cedar

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"reflect"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/klauspost/pgzip"
)

// Supported file type names, matching the Madrigal download formats.
const (
	FileTypeHDF5    = "hdf5"
	FileTypeNetCDF4 = "netCDF4"
	FileTypeSimple  = "simple"
)

// Load reads one or more local Madrigal files into a single frame. Files
// are dispatched on their extension, concatenated, and sorted by time.
func Load(paths []string) (*Frame, *Meta, error) {
	if len(paths) == 0 {
		return nil, nil, fmt.Errorf("no files to load")
	}

	frame := NewFrame()
	meta := NewMeta()

	for _, path := range paths {
		f, m, err := loadOne(path)
		if err != nil {
			return nil, nil, fmt.Errorf("load %s: %w", path, err)
		}
		if err := frame.Append(f); err != nil {
			return nil, nil, fmt.Errorf("load %s: %w", path, err)
		}
		meta.Merge(m)
	}

	frame.SortByTime()
	return frame, meta, nil
}

var dataFileSuffixes = []string{".hdf5", ".h5", ".netcdf4", ".nc", ".simple.gz", ".simple"}

// recognizedDataFile reports whether a filename carries one of the
// loadable extensions.
func recognizedDataFile(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range dataFileSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

func loadOne(path string) (*Frame, *Meta, error) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".hdf5") || strings.HasSuffix(lower, ".h5"):
		return LoadHDF5(path)
	case strings.HasSuffix(lower, ".netcdf4") || strings.HasSuffix(lower, ".nc"):
		return LoadNetCDF(path)
	case strings.HasSuffix(lower, ".simple.gz") || strings.HasSuffix(lower, ".simple"):
		return LoadSimple(path)
	default:
		return nil, nil, fmt.Errorf("unrecognized file type: %s", path)
	}
}

// LoadNetCDF reads a Madrigal netCDF4 file. The "timestamps" variable
// carries the time index as seconds since the Unix epoch; the remaining
// variables become parameter columns.
func LoadNetCDF(path string) (*Frame, *Meta, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer nc.Close()

	frame := NewFrame()
	meta := NewMeta()

	if notes, has := attrString(nc.Attributes(), "catalog_text"); has {
		meta.Notes = notes
	}

	var names []string
	for _, name := range nc.ListVariables() {
		if strings.EqualFold(name, "timestamps") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	tsGetter, err := nc.GetVarGetter("timestamps")
	if err != nil {
		return nil, nil, fmt.Errorf("no timestamps variable: %w", err)
	}
	tsVals, err := tsGetter.Values()
	if err != nil {
		return nil, nil, err
	}
	stamps, ok := toFloat64s(tsVals)
	if !ok {
		return nil, nil, fmt.Errorf("timestamps variable has unexpected type %T", tsVals)
	}
	frame.Times = make([]time.Time, len(stamps))
	for i, s := range stamps {
		sec, frac := math.Modf(s)
		frame.Times[i] = time.Unix(int64(sec), int64(frac*1e9)).UTC()
	}

	for _, name := range names {
		vg, err := nc.GetVarGetter(name)
		if err != nil {
			return nil, nil, err
		}
		vals, err := vg.Values()
		if err != nil {
			return nil, nil, err
		}
		col, ok := toFloat64s(vals)
		if !ok {
			// Non-numeric or multi-dimensional variables are skipped
			continue
		}
		if len(col) != len(frame.Times) {
			// Coordinate variables (gridded exports) carry their own
			// dimension, not the time index
			continue
		}
		if err := frame.SetColumn(name, col); err != nil {
			return nil, nil, err
		}

		vm := VarMeta{Name: name, FillValue: math.NaN()}
		attrs := vg.Attributes()
		if u, has := attrString(attrs, "units"); has {
			vm.Units = u
		}
		if d, has := attrString(attrs, "description"); has {
			vm.Desc = d
		}
		meta.Set(vm)
	}

	return frame, meta, nil
}

// LoadHDF5 reads a Madrigal CEDAR HDF5 file: the record table lives at
// Data/Table Layout and the parameter metadata at Metadata/Data Parameters.
func LoadHDF5(path string) (*Frame, *Meta, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer nc.Close()

	dataGrp, err := nc.GetGroup("Data")
	if err != nil {
		return nil, nil, fmt.Errorf("no Data group: %w", err)
	}
	defer dataGrp.Close()

	tableGetter, err := dataGrp.GetVarGetter("Table Layout")
	if err != nil {
		return nil, nil, fmt.Errorf("no Table Layout: %w", err)
	}
	tableVals, err := tableGetter.Values()
	if err != nil {
		return nil, nil, err
	}

	cols, order, err := compoundColumns(tableVals)
	if err != nil {
		return nil, nil, err
	}

	times, err := buildTimeIndex(cols)
	if err != nil {
		return nil, nil, err
	}

	frame := NewFrame()
	frame.Times = times
	for _, name := range order {
		if err := frame.SetColumn(name, cols[name]); err != nil {
			return nil, nil, err
		}
	}

	meta := NewMeta()
	for _, name := range order {
		meta.Set(VarMeta{Name: name, FillValue: math.NaN()})
	}
	// Parameter descriptions are optional; the record table alone is usable.
	_ = loadHDF5Meta(nc, meta)

	return frame, meta, nil
}

// loadHDF5Meta fills in units and descriptions from Metadata/Data Parameters.
func loadHDF5Meta(nc api.Group, meta *Meta) error {
	metaGrp, err := nc.GetGroup("Metadata")
	if err != nil {
		return err
	}
	defer metaGrp.Close()

	pg, err := metaGrp.GetVarGetter("Data Parameters")
	if err != nil {
		return err
	}
	vals, err := pg.Values()
	if err != nil {
		return err
	}

	rv := reflect.ValueOf(vals)
	if rv.Kind() != reflect.Slice {
		return fmt.Errorf("Data Parameters has unexpected type %T", vals)
	}

	for i := 0; i < rv.Len(); i++ {
		rec := rv.Index(i)
		if rec.Kind() != reflect.Struct {
			continue
		}
		mnemonic := compoundString(rec, "mnemonic", 0)
		if mnemonic == "" {
			continue
		}
		vm, _ := meta.Get(mnemonic)
		vm.Name = strings.ToLower(mnemonic)
		if vm.Desc == "" {
			vm.Desc = compoundString(rec, "description", 1)
		}
		if vm.Units == "" {
			vm.Units = compoundString(rec, "units", 2)
		}
		meta.Set(vm)
	}
	return nil
}

// LoadSimple reads the gzipped whitespace table format. The first line
// holds the parameter mnemonics; unparsable cells become NaN.
func LoadSimple(path string) (*Frame, *Meta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	var scanner *bufio.Scanner
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err := pgzip.NewReaderN(f, 256*1024, runtime.NumCPU())
		if err != nil {
			return nil, nil, err
		}
		defer gz.Close()
		scanner = bufio.NewScanner(gz)
	} else {
		scanner = bufio.NewScanner(f)
	}
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("empty file")
	}

	header := strings.Fields(scanner.Text())
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.ToLower(h)
	}

	cols := make(map[string][]float64, len(names))
	for _, n := range names {
		cols[n] = nil
	}

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != len(names) {
			return nil, nil, fmt.Errorf("row has %d fields, header has %d", len(fields), len(names))
		}
		for i, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				v = math.NaN()
			}
			cols[names[i]] = append(cols[names[i]], v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}

	times, err := buildTimeIndex(cols)
	if err != nil {
		return nil, nil, err
	}

	frame := NewFrame()
	frame.Times = times
	meta := NewMeta()
	for _, n := range names {
		if err := frame.SetColumn(n, cols[n]); err != nil {
			return nil, nil, err
		}
		meta.Set(VarMeta{Name: n, FillValue: math.NaN()})
	}

	return frame, meta, nil
}

// compoundColumns splits a slice of record structs into per-field float64
// columns keyed by the lower-cased field name.
func compoundColumns(vals interface{}) (map[string][]float64, []string, error) {
	rv := reflect.ValueOf(vals)
	if rv.Kind() != reflect.Slice {
		return nil, nil, fmt.Errorf("record table has unexpected type %T", vals)
	}
	if rv.Len() == 0 {
		return nil, nil, fmt.Errorf("record table is empty")
	}
	if rv.Index(0).Kind() != reflect.Struct {
		return nil, nil, fmt.Errorf("record table entries are %s, expected struct", rv.Index(0).Kind())
	}

	rt := rv.Index(0).Type()
	n := rv.Len()

	cols := make(map[string][]float64)
	var order []string

	for j := 0; j < rt.NumField(); j++ {
		name := strings.ToLower(rt.Field(j).Name)
		if !numericKind(rt.Field(j).Type.Kind()) {
			continue
		}
		col := make([]float64, n)
		for i := 0; i < n; i++ {
			col[i] = asFloat64(rv.Index(i).Field(j))
		}
		cols[name] = col
		order = append(order, name)
	}

	if len(cols) == 0 {
		return nil, nil, fmt.Errorf("record table has no numeric fields")
	}
	return cols, order, nil
}

func compoundString(rec reflect.Value, name string, fallbackIdx int) string {
	rt := rec.Type()
	for j := 0; j < rt.NumField(); j++ {
		if strings.EqualFold(rt.Field(j).Name, name) && rec.Field(j).Kind() == reflect.String {
			return strings.TrimSpace(rec.Field(j).String())
		}
	}
	if fallbackIdx < rt.NumField() && rec.Field(fallbackIdx).Kind() == reflect.String {
		return strings.TrimSpace(rec.Field(fallbackIdx).String())
	}
	return ""
}

func numericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func asFloat64(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float()
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		return float64(v.Int())
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		return float64(v.Uint())
	}
	return math.NaN()
}

// toFloat64s converts any 1D numeric slice to float64.
func toFloat64s(vals interface{}) ([]float64, bool) {
	switch v := vals.(type) {
	case []float64:
		return v, true
	case []float32:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, true
	case []int64:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, true
	case []int32:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, true
	case []int16:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, true
	case []int8:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, true
	case []uint64:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, true
	case []uint32:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, true
	case []uint16:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, true
	}
	return nil, false
}

// attrString fetches a string attribute from an attribute map.
func attrString(attrs api.AttributeMap, key string) (string, bool) {
	if attrs == nil {
		return "", false
	}
	v, has := attrs.Get(key)
	if !has {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case []string:
		if len(s) > 0 {
			return s[0], true
		}
	}
	return "", false
}
