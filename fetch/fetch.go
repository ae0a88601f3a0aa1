package fetch

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

// Downloader saves a remote asset to a local file
type Downloader interface {
	Download(ctx context.Context, url, outFile string) error
}

// HTTPDownloader fetches assets over HTTP(S)
type HTTPDownloader struct {
	httpClient *http.Client
	minBytes   int64
}

// NewHTTPDownloader creates a downloader with a per-request timeout
func NewHTTPDownloader(timeout time.Duration) *HTTPDownloader {
	return &HTTPDownloader{
		httpClient: &http.Client{Timeout: timeout},
		minBytes:   1,
	}
}

// Download streams url into outFile. Non-200 responses and empty bodies fail.
func (d *HTTPDownloader) Download(ctx context.Context, url, outFile string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; NarratedVideoPipeline/1.0)")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, req.URL.Host)
	}

	f, err := os.Create(outFile)
	if err != nil {
		return err
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if n < d.minBytes {
		return fmt.Errorf("response too small (%d bytes)", n)
	}

	log.Printf("[fetch] Saved %s (%.1f KB)", outFile, float64(n)/1024)
	return nil
}
