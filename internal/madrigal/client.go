// Package madrigal is a thin client for the Madrigal database web services:
// experiment listing, experiment file listing, and single file download.
package madrigal

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultURL is the CEDAR Madrigal archive.
const DefaultURL = "http://cedar.openmadrigal.org"

// User identifies the data consumer. Madrigal requires all three fields on
// every download so usage can be reported to the instrument PIs.
type User struct {
	FullName    string
	Email       string
	Affiliation string
}

// Validate reports an error naming any missing identification field.
func (u User) Validate() error {
	var missing []string
	if u.FullName == "" {
		missing = append(missing, "full name")
	}
	if u.Email == "" {
		missing = append(missing, "email")
	}
	if u.Affiliation == "" {
		missing = append(missing, "affiliation")
	}
	if len(missing) > 0 {
		return fmt.Errorf("madrigal user %s required", strings.Join(missing, ", "))
	}
	return nil
}

// Client talks to one Madrigal site.
type Client struct {
	logger  *slog.Logger
	httpCli *http.Client
	baseURL string
	user    User
}

// NewClient creates a Madrigal client for the given site URL.
func NewClient(logger *slog.Logger, baseURL string, user User) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("madrigal url: %w", err)
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
		user:    user,
		httpCli: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   30 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        4,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: 4,
			},
			Timeout: 5 * time.Minute,
		},
	}, nil
}

// Experiment is one entry from the experiment listing service.
type Experiment struct {
	ID       int64
	URL      string
	Name     string
	SiteID   int
	SiteName string
	InstCode int32
	InstName string
	Start    time.Time
	End      time.Time
	IsLocal  bool
}

// ExperimentFile is one entry from the experiment file listing service.
type ExperimentFile struct {
	Name       string
	Kindat     int
	KindatDesc string
	Category   int
	Status     string
	Permission int
}

// Experiments lists the experiments for an instrument code in [start, stop].
func (c *Client) Experiments(ctx context.Context, instCode int32, start, stop time.Time) ([]Experiment, error) {
	q := url.Values{}
	q.Set("code", strconv.FormatInt(int64(instCode), 10))
	q.Set("startyear", strconv.Itoa(start.Year()))
	q.Set("startmonth", strconv.Itoa(int(start.Month())))
	q.Set("startday", strconv.Itoa(start.Day()))
	q.Set("starthour", strconv.Itoa(start.Hour()))
	q.Set("startmin", strconv.Itoa(start.Minute()))
	q.Set("startsec", strconv.Itoa(start.Second()))
	q.Set("endyear", strconv.Itoa(stop.Year()))
	q.Set("endmonth", strconv.Itoa(int(stop.Month())))
	q.Set("endday", strconv.Itoa(stop.Day()))
	q.Set("endhour", strconv.Itoa(stop.Hour()))
	q.Set("endmin", strconv.Itoa(stop.Minute()))
	q.Set("endsec", strconv.Itoa(stop.Second()))
	q.Set("local", "0")

	lines, err := c.getLines(ctx, "/getExperimentsService.py", q)
	if err != nil {
		return nil, err
	}

	var exps []Experiment
	for _, line := range lines {
		exp, err := parseExperiment(line)
		if err != nil {
			c.logger.Warn("skipping unparsable experiment line", "line", line, "err", err)
			continue
		}
		exps = append(exps, exp)
	}
	c.logger.Info("listed experiments", "instCode", instCode, "count", len(exps))
	return exps, nil
}

// ExperimentFiles lists the data files belonging to one experiment.
func (c *Client) ExperimentFiles(ctx context.Context, expID int64) ([]ExperimentFile, error) {
	q := url.Values{}
	q.Set("id", strconv.FormatInt(expID, 10))

	lines, err := c.getLines(ctx, "/getExperimentFilesService.py", q)
	if err != nil {
		return nil, err
	}

	var files []ExperimentFile
	for _, line := range lines {
		ef, err := parseExperimentFile(line)
		if err != nil {
			c.logger.Warn("skipping unparsable file line", "line", line, "err", err)
			continue
		}
		files = append(files, ef)
	}
	return files, nil
}

// getLines issues one CGI request and returns the non-empty response lines.
// Madrigal reports request errors as HTML error text in a 200 response, so
// lines that look like markup are rejected.
func (c *Client) getLines(ctx context.Context, endpoint string, q url.Values) ([]string, error) {
	reqURL := c.baseURL + endpoint + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("madrigal GET %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("madrigal GET %s: HTTP %d", endpoint, resp.StatusCode)
	}

	var lines []string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "<") {
			return nil, fmt.Errorf("madrigal GET %s: error response: %s", endpoint, line)
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// parseExperiment decodes one comma-separated experiment line:
// id,url,name,siteid,sitename,instcode,instname,start fields,end fields,isLocal
func parseExperiment(line string) (Experiment, error) {
	f := strings.Split(line, ",")
	if len(f) < 20 {
		return Experiment{}, fmt.Errorf("expected 20 fields, got %d", len(f))
	}

	id, err := strconv.ParseInt(f[0], 10, 64)
	if err != nil {
		return Experiment{}, fmt.Errorf("experiment id: %w", err)
	}
	siteID, _ := strconv.Atoi(f[3])
	instCode, err := strconv.ParseInt(f[5], 10, 32)
	if err != nil {
		return Experiment{}, fmt.Errorf("instrument code: %w", err)
	}

	start, err := parseDateFields(f[7:13])
	if err != nil {
		return Experiment{}, fmt.Errorf("start time: %w", err)
	}
	end, err := parseDateFields(f[13:19])
	if err != nil {
		return Experiment{}, fmt.Errorf("end time: %w", err)
	}

	return Experiment{
		ID:       id,
		URL:      f[1],
		Name:     f[2],
		SiteID:   siteID,
		SiteName: f[4],
		InstCode: int32(instCode),
		InstName: f[6],
		Start:    start,
		End:      end,
		IsLocal:  f[19] == "1" || strings.EqualFold(f[19], "true"),
	}, nil
}

// parseExperimentFile decodes one comma-separated file line:
// name,kindat,kindat description,category,status,permission
func parseExperimentFile(line string) (ExperimentFile, error) {
	f := strings.Split(line, ",")
	if len(f) < 6 {
		return ExperimentFile{}, fmt.Errorf("expected 6 fields, got %d", len(f))
	}

	kindat, err := strconv.Atoi(f[1])
	if err != nil {
		return ExperimentFile{}, fmt.Errorf("kindat: %w", err)
	}
	category, _ := strconv.Atoi(f[3])
	permission, _ := strconv.Atoi(f[5])

	return ExperimentFile{
		Name:       f[0],
		Kindat:     kindat,
		KindatDesc: f[2],
		Category:   category,
		Status:     f[4],
		Permission: permission,
	}, nil
}

func parseDateFields(f []string) (time.Time, error) {
	vals := make([]int, 6)
	for i := range vals {
		v, err := strconv.Atoi(strings.TrimSpace(f[i]))
		if err != nil {
			return time.Time{}, err
		}
		vals[i] = v
	}
	return time.Date(vals[0], time.Month(vals[1]), vals[2], vals[3], vals[4], vals[5], 0, time.UTC), nil
}
