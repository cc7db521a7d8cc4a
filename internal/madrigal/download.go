package madrigal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// File type codes used by getMadfile.cgi.
var fileTypeCodes = map[string]string{
	"simple":  "-1",
	"hdf5":    "-2",
	"netCDF4": "-3",
}

// DownloadFile fetches one remote experiment file into destPath in the
// requested format. Files already on disk with non-zero size are skipped.
// The download goes to a temporary file and is renamed into place once
// complete, so interrupted transfers never leave partial data files.
func (c *Client) DownloadFile(ctx context.Context, remoteName, destPath, fileType string) (skipped bool, err error) {
	code, ok := fileTypeCodes[fileType]
	if !ok {
		return false, fmt.Errorf("unknown file type %q", fileType)
	}

	if info, err := os.Stat(destPath); err == nil && info.Size() > 0 {
		c.logger.Info("file exists, skipping", "dest", destPath)
		return true, nil
	}

	q := url.Values{}
	q.Set("fileName", remoteName)
	q.Set("fileType", code)
	q.Set("user_fullname", c.user.FullName)
	q.Set("user_email", c.user.Email)
	q.Set("user_affiliation", c.user.Affiliation)

	reqURL := c.baseURL + "/getMadfile.cgi?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return false, fmt.Errorf("HTTP GET failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, fmt.Errorf("not found (404)")
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return false, fmt.Errorf("create file failed: %w", err)
	}

	n, err := io.Copy(f, resp.Body)
	f.Close()

	if err != nil {
		os.Remove(tmpPath)
		return false, fmt.Errorf("download failed: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return false, fmt.Errorf("rename failed: %w", err)
	}

	c.logger.Info("downloaded", "dest", destPath, "bytes", n)
	return false, nil
}

// LocalName maps a remote experiment file path to the local filename for a
// given file type, replacing the remote extension the way Madrigal does
// when converting formats on download.
func LocalName(remoteName, fileType string) string {
	base := remoteName
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}

	ext := map[string]string{"simple": "simple.gz", "hdf5": "hdf5", "netCDF4": "netCDF4"}[fileType]
	if ext == "" {
		ext = "hdf5"
	}
	if strings.Contains(base, "."+ext) || (fileType == "hdf5" && strings.HasSuffix(base, ".h5")) {
		return base
	}

	if i := strings.LastIndex(base, "."); i >= 0 {
		return base[:i+1] + ext
	}
	return base + "." + ext
}
