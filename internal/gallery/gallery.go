// Package gallery is a client for NuGet v3 flat-container feeds, the layout
// the PowerShell Gallery serves module packages from.
package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/openpcli/pcli-setup/internal/messages"
	"github.com/openpcli/pcli-setup/internal/version"
)

// DefaultBaseURL is the PowerShell Gallery flat-container endpoint.
const DefaultBaseURL = "https://www.powershellgallery.com/api/v3-flatcontainer"

const userAgent = "pcli-setup"

const (
	defaultTimeout  = 30 * time.Second
	defaultMaxBytes = int64(200 * 1024 * 1024) // 200 MiB

	requestRetryCount   = 1
	requestRetryBackoff = 250 * time.Millisecond
)

var gallerySleep = time.Sleep

// ErrNotFound indicates the feed has no such package or version.
var ErrNotFound = errors.New("not found on the gallery feed")

// RateLimitError indicates the gallery refused the request with HTTP 429.
//
// Callers should treat this as transient and avoid immediate retries.
type RateLimitError struct {
	StatusCode int
	Status     string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf(messages.GalleryRateLimitedFmt, e.StatusCode, e.Status)
}

// IsRateLimitError reports whether err represents a gallery rate-limit condition.
func IsRateLimitError(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// Options tunes a Client. Zero values select the defaults.
type Options struct {
	Timeout  time.Duration
	MaxBytes int64
}

// Client fetches version indexes and module packages from one feed.
type Client struct {
	baseURL  string
	http     *http.Client
	maxBytes int64
}

// New returns a Client for the feed at baseURL.
func New(baseURL string, opts Options) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New(messages.GalleryBaseURLRequired)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}, nil
}

// BaseURL returns the feed endpoint the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type versionIndex struct {
	Versions []string `json:"versions"`
}

// Versions returns the package's published stable versions, oldest first.
// Prerelease and otherwise non-numeric entries are skipped; the installer
// only places stable versions.
func (c *Client) Versions(ctx context.Context, name string) ([]string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New(messages.GalleryEmptyPackageName)
	}
	url := c.indexURL(name)
	resp, err := c.get(ctx, url, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var payload versionIndex
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf(messages.GalleryDecodeIndexFmt, name, err)
	}

	var stable []string
	for _, raw := range payload.Versions {
		normalized, err := version.Normalize(raw)
		if err != nil {
			continue
		}
		stable = append(stable, normalized)
	}
	if len(stable) == 0 {
		return nil, fmt.Errorf(messages.GalleryNoVersionsFmt, name)
	}
	sortVersions(stable)
	return stable, nil
}

// Latest returns the newest stable version of the package.
func (c *Client) Latest(ctx context.Context, name string) (string, error) {
	versions, err := c.Versions(ctx, name)
	if err != nil {
		return "", err
	}
	return versions[len(versions)-1], nil
}

// ResolveVersion turns an optional requested version into a concrete published
// one. An empty request selects the latest stable version.
func (c *Client) ResolveVersion(ctx context.Context, name string, requested string) (string, error) {
	versions, err := c.Versions(ctx, name)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(requested) == "" {
		return versions[len(versions)-1], nil
	}
	want, err := version.Normalize(requested)
	if err != nil {
		return "", err
	}
	for _, v := range versions {
		if v == want {
			return v, nil
		}
	}
	return "", fmt.Errorf(messages.GalleryVersionNotFoundFmt, name, want, ErrNotFound)
}

// Download fetches the package's nupkg into destDir and returns its path.
// The file lands under its canonical flat-container name; a partial download
// never replaces a committed one.
func (c *Client) Download(ctx context.Context, name string, ver string, destDir string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New(messages.GalleryEmptyPackageName)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf(messages.GalleryCreateDirFmt, err)
	}

	asset := nupkgName(name, ver)
	finalPath := filepath.Join(destDir, asset)

	tmp, err := os.CreateTemp(destDir, asset+".tmp-*")
	if err != nil {
		return "", fmt.Errorf(messages.GalleryCreateTempFileFmt, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	url := c.nupkgURL(name, ver)
	if err := c.downloadToFile(ctx, url, name, tmp); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf(messages.GallerySyncTempFileFmt, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf(messages.GalleryCloseTempFileFmt, err)
	}
	if err := os.Rename(tmpName, finalPath); err != nil {
		return "", fmt.Errorf(messages.GalleryRenameNupkgFmt, err)
	}
	committed = true
	return finalPath, nil
}

// Ping checks that the feed answers HTTP at all. Any non-5xx response counts
// as reachable; the probe uses this to gate network install methods.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, c.baseURL+"/")
	if err != nil {
		return fmt.Errorf(messages.GalleryRequestFmt, c.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf(messages.GalleryPingStatusFmt, resp.Status)
	}
	return nil
}

func (c *Client) indexURL(name string) string {
	return c.baseURL + "/" + strings.ToLower(name) + "/index.json"
}

func (c *Client) nupkgURL(name string, ver string) string {
	return c.baseURL + "/" + strings.ToLower(name) + "/" + ver + "/" + nupkgName(name, ver)
}

// nupkgName returns the flat-container asset name for a package version.
func nupkgName(name string, ver string) string {
	return strings.ToLower(name) + "." + ver + ".nupkg"
}

// do issues a single GET without retries.
func (c *Client) do(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	return c.http.Do(req)
}

// get issues a GET with retries and returns a 200 response whose body the
// caller must close. 404 maps to ErrNotFound for pkg.
func (c *Client) get(ctx context.Context, url string, pkg string) (*http.Response, error) {
	for attempt := 0; attempt <= requestRetryCount; attempt++ {
		resp, err := c.do(ctx, url)
		if err != nil {
			if shouldRetry(attempt, err, 0) {
				gallerySleep(requestRetryBackoff)
				continue
			}
			if isTimeoutError(err) {
				return nil, fmt.Errorf(messages.GalleryDownloadTimeoutFmt, url, err)
			}
			return nil, fmt.Errorf(messages.GalleryRequestFmt, url, err)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return resp, nil
		case resp.StatusCode == http.StatusNotFound:
			_ = resp.Body.Close()
			return nil, fmt.Errorf(messages.GalleryPackageNotFoundFmt, pkg, ErrNotFound)
		case resp.StatusCode == http.StatusTooManyRequests:
			_ = resp.Body.Close()
			return nil, &RateLimitError{StatusCode: resp.StatusCode, Status: resp.Status}
		default:
			status := resp.StatusCode
			statusText := resp.Status
			_ = resp.Body.Close()
			if shouldRetry(attempt, nil, status) {
				gallerySleep(requestRetryBackoff)
				continue
			}
			return nil, fmt.Errorf(messages.GalleryUnexpectedStatusFmt, url, statusText)
		}
	}
	return nil, fmt.Errorf(messages.GalleryRequestFmt, url, errors.New("retry budget exhausted"))
}

// downloadToFile streams url into dest, rewinding between retries so a
// partial body never survives into the committed file.
func (c *Client) downloadToFile(ctx context.Context, url string, pkg string, dest *os.File) error {
	for attempt := 0; attempt <= requestRetryCount; attempt++ {
		resp, err := c.do(ctx, url)
		if err != nil {
			if shouldRetry(attempt, err, 0) {
				gallerySleep(requestRetryBackoff)
				continue
			}
			if isTimeoutError(err) {
				return fmt.Errorf(messages.GalleryDownloadTimeoutFmt, url, err)
			}
			return fmt.Errorf(messages.GalleryRequestFmt, url, err)
		}

		if resp.StatusCode == http.StatusNotFound {
			_ = resp.Body.Close()
			return fmt.Errorf(messages.GalleryPackageNotFoundFmt, pkg, ErrNotFound)
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			_ = resp.Body.Close()
			return &RateLimitError{StatusCode: resp.StatusCode, Status: resp.Status}
		}
		if resp.StatusCode != http.StatusOK {
			status := resp.StatusCode
			statusText := resp.Status
			_ = resp.Body.Close()
			if shouldRetry(attempt, nil, status) {
				gallerySleep(requestRetryBackoff)
				continue
			}
			return fmt.Errorf(messages.GalleryUnexpectedStatusFmt, url, statusText)
		}

		if err := dest.Truncate(0); err != nil {
			_ = resp.Body.Close()
			return fmt.Errorf(messages.GalleryTruncateTempFileFmt, err)
		}
		if _, err := dest.Seek(0, io.SeekStart); err != nil {
			_ = resp.Body.Close()
			return fmt.Errorf(messages.GalleryResetTempFileFmt, err)
		}

		n, copyErr := io.Copy(dest, io.LimitReader(resp.Body, c.maxBytes+1))
		_ = resp.Body.Close()
		if copyErr != nil {
			if shouldRetry(attempt, copyErr, 0) {
				gallerySleep(requestRetryBackoff)
				continue
			}
			if isTimeoutError(copyErr) {
				return fmt.Errorf(messages.GalleryDownloadTimeoutFmt, url, copyErr)
			}
			return fmt.Errorf(messages.GalleryReadBodyFmt, url, copyErr)
		}
		if n > c.maxBytes {
			return fmt.Errorf(messages.GalleryDownloadTooLargeFmt, url, n, c.maxBytes)
		}
		return nil
	}
	return fmt.Errorf(messages.GalleryRequestFmt, url, errors.New("retry budget exhausted"))
}

// sortVersions orders normalized versions ascending. Unparsable entries never
// reach here; Versions filters them first.
func sortVersions(versions []string) {
	sort.SliceStable(versions, func(i, j int) bool {
		cmp, err := version.Compare(versions[i], versions[j])
		return err == nil && cmp < 0
	})
}

// isTimeoutError reports whether err is a network timeout.
func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

func shouldRetry(attempt int, err error, statusCode int) bool {
	if attempt >= requestRetryCount {
		return false
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false
		}
		var netErr net.Error
		return errors.As(err, &netErr)
	}
	return statusCode >= 500 && statusCode <= 599
}
