// Implements the Papyrus dump download client with rate limiting.

package papyrus

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public location of the Papyrus bioactivity dumps.
const DefaultBaseURL = "https://zenodo.org/records/7019874/files"

// Client downloads Papyrus dump files. Requests are rate limited so repeated
// invocations stay polite to the public host.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a download client for the given base URL; an empty URL
// selects DefaultBaseURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		// No overall timeout: dumps are multi-gigabyte. Cancellation comes
		// from the request context.
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// DumpName returns the dump file name for the requested variant.
func DumpName(stereo, plusplus bool) string {
	switch {
	case plusplus:
		return "papyrus_pp.tsv.gz"
	case stereo:
		return "papyrus_3d.tsv.gz"
	default:
		return "papyrus_2d.tsv.gz"
	}
}

// EnsureDump returns the local path of the requested dump variant inside dir,
// downloading it first when it is not already present.
func (c *Client) EnsureDump(ctx context.Context, dir string, stereo, plusplus bool) (string, error) {
	name := DumpName(stereo, plusplus)
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := c.download(ctx, c.baseURL+"/"+name, path); err != nil {
		return "", err
	}
	return path, nil
}

// download streams url into path via a temp file so a cancelled transfer
// never leaves a truncated dump behind.
func (c *Client) download(ctx context.Context, url, path string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download of %s failed: status %d", url, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to download %s: %w", url, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to move dump into place: %w", err)
	}
	return nil
}
