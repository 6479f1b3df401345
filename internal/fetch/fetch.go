// Package fetch downloads render inputs to local scratch paths.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "textoverlay/internal/pkg/errors"
)

// Fetcher streams one remote asset to dest.
type Fetcher interface {
	Fetch(ctx context.Context, url, dest string) error
}

// HTTPFetcher downloads over plain HTTP(S).
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// Options configure an HTTPFetcher.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Client    *http.Client
}

// NewHTTPFetcher builds a fetcher. A zero Timeout leaves the request bounded
// only by the caller's context.
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = "textoverlay/1.0"
	}
	return &HTTPFetcher{client: client, userAgent: ua}
}

// Fetch writes the response body of url to dest without buffering it in
// memory. Any non-2xx status is a download failure.
func (f *HTTPFetcher) Fetch(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return apperrors.Download(err, url)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return apperrors.Download(err, url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return apperrors.Download(fmt.Errorf("unexpected status %d", resp.StatusCode), url).
			WithField("status", resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return apperrors.Download(err, url)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return apperrors.Download(err, url)
	}
	if err := out.Close(); err != nil {
		return apperrors.Download(err, url)
	}
	return nil
}

// Download is one url to fetch into a local path.
type Download struct {
	URL  string
	Dest string
}

// All runs every download concurrently and returns the first failure. The
// remaining downloads are cancelled once one fails.
func All(ctx context.Context, f Fetcher, downloads []Download) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, d := range downloads {
		d := d
		g.Go(func() error {
			return f.Fetch(gctx, d.URL, d.Dest)
		})
	}
	return g.Wait()
}
