package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/wegman-software/osmpresets-go/internal/logger"
)

// CacheFileName is the name the downloaded document is stored under
const CacheFileName = "presets.json"

// Fetcher downloads a presets document into a cache directory
type Fetcher struct {
	url        string
	client     *http.Client
	cacheDir   string
	maxRetries int
	retryDelay time.Duration
}

// NewFetcher creates a new presets fetcher
func NewFetcher(url, cacheDir string) *Fetcher {
	return &Fetcher{
		url: url,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		cacheDir:   cacheDir,
		maxRetries: 3,
		retryDelay: 5 * time.Second,
	}
}

// CachePath returns where the document is stored
func (f *Fetcher) CachePath() string {
	return filepath.Join(f.cacheDir, CacheFileName)
}

// Fetch downloads the document unless a cached copy exists and force is
// false. It returns the path of the local copy.
func (f *Fetcher) Fetch(ctx context.Context, force bool) (string, error) {
	log := logger.Get()
	cacheFile := f.CachePath()

	if err := os.MkdirAll(f.cacheDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	if !force {
		if _, err := os.Stat(cacheFile); err == nil {
			log.Debug("Using cached presets file", zap.String("path", cacheFile))
			return cacheFile, nil
		}
	}

	log.Debug("Fetching presets", zap.String("url", f.url))

	resp, err := f.fetchWithRetry(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch presets: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	tmpFile := cacheFile + ".tmp"
	out, err := os.Create(tmpFile)
	if err != nil {
		return "", fmt.Errorf("failed to create cache file: %w", err)
	}

	n, err := io.Copy(out, resp.Body)
	out.Close()
	if err != nil {
		os.Remove(tmpFile)
		return "", fmt.Errorf("failed to write cache file: %w", err)
	}

	if err := os.Rename(tmpFile, cacheFile); err != nil {
		os.Remove(tmpFile)
		return "", fmt.Errorf("failed to rename cache file: %w", err)
	}

	log.Info("Downloaded presets", zap.String("path", cacheFile), zap.Int64("bytes", n))
	return cacheFile, nil
}

// fetchWithRetry performs an HTTP GET, retrying transport and server errors
func (f *Fetcher) fetchWithRetry(ctx context.Context) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(f.retryDelay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "osmpresets-go/1.0")

		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
