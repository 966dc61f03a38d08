// Package imagefetch materializes remote photo URLs into inline payloads on
// a strictly best-effort basis: one bad image must never abort extraction of
// a whole room or property.
package imagefetch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/parcoursmaker/parcoursmaker/pkg/models"
)

// maxImageBytes caps one inlined image. Anything larger degrades to a URL
// passthrough like any other fetch failure.
const maxImageBytes = 20 << 20

// Fetcher retrieves image bytes over HTTP.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher with a per-request timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// Materialize fetches one image and returns it inlined. On any failure —
// network error, non-success status, oversized body — it returns the original
// URL as a passthrough value instead of an error. It never fails.
func (f *Fetcher) Materialize(ctx context.Context, url string) models.MaterializedImage {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		slog.Debug("image fetch degraded to url", "url", url, "error", err)
		return models.PassthroughImage(url)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		slog.Debug("image fetch degraded to url", "url", url, "error", err)
		return models.PassthroughImage(url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Debug("image fetch degraded to url", "url", url, "status", resp.StatusCode)
		return models.PassthroughImage(url)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil || len(data) == 0 || len(data) > maxImageBytes {
		slog.Debug("image fetch degraded to url", "url", url, "bytes", len(data), "error", err)
		return models.PassthroughImage(url)
	}

	return models.EncodedImage(contentType(resp), data)
}

// MaterializeAll fetches all URLs concurrently and returns the results in
// input order, regardless of completion order: downstream room-to-photo
// association is positional. Each fetch writes only to its own slot, so no
// locking is needed.
func (f *Fetcher) MaterializeAll(ctx context.Context, urls []string) []models.MaterializedImage {
	results := make([]models.MaterializedImage, len(urls))

	var wg sync.WaitGroup
	for i, url := range urls {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			results[i] = f.Materialize(ctx, url)
		}(i, url)
	}
	wg.Wait()

	return results
}

func contentType(resp *http.Response) string {
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		return models.DefaultImageMIME
	}
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}
