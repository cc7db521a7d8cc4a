package cedar

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Template is a filename pattern with date and format placeholders, e.g.
// "dms_ut_{year}{month}{day}_11.002.{file_type}". Recognized tokens are
// {year} (4 digits), {year2} (2 digits, interpreted with YearBreak),
// {month} and {day} (2 digits), {version} (digits) and {file_type} (format
// extension). A literal "?" matches any single character.
type Template struct {
	Pattern string

	// YearBreak resolves {year2}: two-digit years at or above it belong
	// to the 1900s, years below it to the 2000s.
	YearBreak int
}

var tokenRE = regexp.MustCompile(`\{(year2|year|month|day|version|file_type)\}`)

// Render produces a concrete filename for a date and file type. The
// {version} token renders as a wildcard-free "001" default.
func (t Template) Render(date time.Time, fileType string) string {
	return tokenRE.ReplaceAllStringFunc(t.Pattern, func(tok string) string {
		switch tok {
		case "{year}":
			return fmt.Sprintf("%04d", date.Year())
		case "{year2}":
			return fmt.Sprintf("%02d", date.Year()%100)
		case "{month}":
			return fmt.Sprintf("%02d", int(date.Month()))
		case "{day}":
			return fmt.Sprintf("%02d", date.Day())
		case "{version}":
			return "001"
		case "{file_type}":
			return fileTypeExt(fileType)
		}
		return tok
	})
}

// Regexp compiles the template into a matcher with named capture groups
// for the date tokens.
func (t Template) Regexp() (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteString("^")
	rest := t.Pattern
	for {
		loc := tokenRE.FindStringIndex(rest)
		if loc == nil {
			sb.WriteString(quoteLiteral(rest))
			break
		}
		sb.WriteString(quoteLiteral(rest[:loc[0]]))
		switch rest[loc[0]:loc[1]] {
		case "{year}":
			sb.WriteString(`(?P<year>\d{4})`)
		case "{year2}":
			sb.WriteString(`(?P<year2>\d{2})`)
		case "{month}":
			sb.WriteString(`(?P<month>\d{2})`)
		case "{day}":
			sb.WriteString(`(?P<day>\d{2})`)
		case "{version}":
			sb.WriteString(`(?P<version>\d+)`)
		case "{file_type}":
			sb.WriteString(`(?P<file_type>hdf5|h5|netCDF4|nc|simple\.gz|simple)`)
		}
		rest = rest[loc[1]:]
	}
	sb.WriteString("$")
	return regexp.Compile(sb.String())
}

// MatchDate reports whether a filename matches the template and, when the
// template carries date tokens, the file date. Templates without date
// tokens (single-file archives) match with a zero time.
func (t Template) MatchDate(name string) (time.Time, bool) {
	re, err := t.Regexp()
	if err != nil {
		return time.Time{}, false
	}
	m := re.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, false
	}

	groups := make(map[string]string)
	for i, gname := range re.SubexpNames() {
		if gname != "" && i < len(m) {
			groups[gname] = m[i]
		}
	}

	var year int
	switch {
	case groups["year"] != "":
		year, _ = strconv.Atoi(groups["year"])
	case groups["year2"] != "":
		y2, _ := strconv.Atoi(groups["year2"])
		if y2 >= t.YearBreak {
			year = 1900 + y2
		} else {
			year = 2000 + y2
		}
	default:
		return time.Time{}, true
	}
	month := 1
	day := 1
	if ms, ok := groups["month"]; ok {
		month, _ = strconv.Atoi(ms)
	}
	if ds, ok := groups["day"]; ok {
		day, _ = strconv.Atoi(ds)
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}

// ListLocal scans a directory for files matching any of the templates and
// returns them sorted by name along with their dates where known.
func ListLocal(dir string, templates []Template) ([]LocalFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var out []LocalFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		for _, tmpl := range templates {
			if date, ok := tmpl.MatchDate(e.Name()); ok {
				out = append(out, LocalFile{Name: e.Name(), Date: date})
				break
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ListLocalAny indexes every recognized data file in a directory, for
// products without a fixed filename convention. File dates are unknown.
func ListLocalAny(dir string) ([]LocalFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var out []LocalFile
	for _, e := range entries {
		if e.IsDir() || !recognizedDataFile(e.Name()) {
			continue
		}
		out = append(out, LocalFile{Name: e.Name()})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// LocalFile is one data file found in the local index.
type LocalFile struct {
	Name string
	Date time.Time
}

// quoteLiteral escapes literal pattern text, keeping "?" as a
// single-character wildcard.
func quoteLiteral(s string) string {
	return strings.ReplaceAll(regexp.QuoteMeta(s), `\?`, ".")
}

// fileTypeExt maps a Madrigal file type name to its filename extension.
func fileTypeExt(fileType string) string {
	switch fileType {
	case FileTypeNetCDF4:
		return "netCDF4"
	case FileTypeSimple:
		return "simple.gz"
	default:
		return "hdf5"
	}
}
