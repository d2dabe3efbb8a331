package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nordvik/plume/internal/apperr"
	"github.com/nordvik/plume/internal/wordpress"
)

// UploadImages runs the resilient upload procedure for each request against
// host. The result slice always has the same length and order as the input;
// a failed item is recorded in place and never aborts its siblings.
//
// Items are independent, so they run on a small worker pool; each worker
// writes only its own index.
func (p *Publisher) UploadImages(ctx context.Context, host MediaHost, reqs []UploadRequest) []UploadResult {
	results := make([]UploadResult, len(reqs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.parallel)
	for i, req := range reqs {
		g.Go(func() error {
			results[i] = p.uploadOne(gCtx, host, req)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// uploadOne downloads one source image and pushes it to the media endpoint,
// retrying only on 429.
func (p *Publisher) uploadOne(ctx context.Context, host MediaHost, req UploadRequest) UploadResult {
	result := UploadResult{SourceURL: req.SourceURL, AltText: req.AltText}

	// Download failures are treated as permanent for this item: generated
	// image URLs are short-lived, so retrying the fetch rarely helps.
	data, err := p.fetch(ctx, req.SourceURL)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	filename, mimeType := mediaFilename(req.SourceURL, p.now())

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		media, err := host.UploadMedia(ctx, data, filename, mimeType)
		if err == nil {
			result.Success = true
			result.MediaID = media.ID
			result.MediaURL = media.SourceURL
			return result
		}

		var se *wordpress.StatusError
		if !errors.As(err, &se) || se.Status != http.StatusTooManyRequests {
			// Anything but a 429 is terminal, including parse failures
			// behind a successful HTTP status.
			result.Error = err.Error()
			return result
		}

		if attempt == p.maxAttempts {
			result.Error = fmt.Sprintf("%v after %d attempts", apperr.ErrRateLimited, p.maxAttempts)
			return result
		}
		p.sleep(retryDelay(attempt, se.RetryAfter, p.backoffSeed))
	}

	// Unreachable; the loop always returns.
	return result
}

// fetch downloads the source image bytes.
func (p *Publisher) fetch(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", src, err)
	}
	resp, err := p.download.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", src, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("download %s: status %d", src, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", src, err)
	}
	return data, nil
}

// retryDelay computes the wait before the next attempt after a 429.
// A Retry-After header parseable as seconds wins, floored at one second;
// otherwise the delay doubles from seed: seed × 2^(attempt-1).
func retryDelay(attempt int, retryAfter string, seed time.Duration) time.Duration {
	if secs, err := strconv.Atoi(retryAfter); err == nil {
		if secs < 1 {
			secs = 1
		}
		return time.Duration(secs) * time.Second
	}
	return seed << (attempt - 1)
}

// mediaFilename derives an upload filename and MIME type from the source
// URL's path, with query and fragment stripped. When no filename can be
// extracted, it falls back to a timestamp-based synthetic name and a generic
// binary type.
func mediaFilename(src string, now time.Time) (string, string) {
	fallback := fmt.Sprintf("image-%d.bin", now.Unix())

	u, err := url.Parse(src)
	if err != nil {
		return fallback, "application/octet-stream"
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return fallback, "application/octet-stream"
	}

	mimeType := mime.TypeByExtension(path.Ext(name))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return name, mimeType
}
