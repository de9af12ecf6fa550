package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/clipforge/clipforge/errors"
	"github.com/clipforge/clipforge/log"
)

// Request is the POST /fetch payload.
type Request struct {
	URL     string
	Quality string
}

// Result mirrors what the Job Coordinator needs to admit the downloaded
// file as a source.
type Result struct {
	LocalPath string
	SizeBytes int64
}

// Fetcher downloads a single media container from a public URL into the
// upload directory, enforcing the source size/duration caps. Network
// failures are classified transient (retried) or permanent (not retried)
// by isTransient.
type Fetcher struct {
	Client             *http.Client
	MaxSourceSizeBytes int64
}

func NewFetcher(maxSourceSizeBytes int64) *Fetcher {
	return &Fetcher{
		Client:             &http.Client{Timeout: 0},
		MaxSourceSizeBytes: maxSourceSizeBytes,
	}
}

func retryBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * time.Second
	return backoff.WithMaxRetries(b, 3)
}

// Fetch downloads req.URL into destPath, failing with KindSourceTooLarge
// if the response exceeds MaxSourceSizeBytes (checked against
// Content-Length up front, then enforced again while streaming in case
// the header was absent or wrong).
func (f *Fetcher) Fetch(ctx context.Context, requestID string, req Request, destPath string) (Result, error) {
	var result Result

	err := backoff.Retry(func() error {
		size, err := f.attempt(ctx, requestID, req.URL, destPath)
		if err != nil {
			if errors.AsKind(err) == errors.KindSourceTooLarge || !isTransient(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = Result{LocalPath: destPath, SizeBytes: size}
		return nil
	}, retryBackoff())

	return result, err
}

func (f *Fetcher) attempt(ctx context.Context, requestID, url, destPath string) (int64, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("permanent: building request: %w", err)
	}

	resp, err := f.Client.Do(httpReq)
	if err != nil {
		return 0, err // network errors are transient by default
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return 0, fmt.Errorf("permanent: unexpected status %d fetching %s", resp.StatusCode, url)
	}
	if resp.StatusCode >= 500 {
		return 0, fmt.Errorf("transient: server error %d fetching %s", resp.StatusCode, url)
	}

	if resp.ContentLength > 0 && resp.ContentLength > f.MaxSourceSizeBytes {
		return 0, errors.NewKindError(errors.KindSourceTooLarge,
			fmt.Sprintf("remote content-length %d exceeds MAX_SOURCE_SIZE", resp.ContentLength))
	}

	out, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("permanent: creating destination file: %w", err)
	}
	defer out.Close()

	limited := &limitedWriter{max: f.MaxSourceSizeBytes}
	written, err := io.Copy(out, io.TeeReader(resp.Body, limited))
	if err != nil {
		if limited.exceeded {
			return 0, errors.NewKindError(errors.KindSourceTooLarge,
				"downloaded bytes exceeded MAX_SOURCE_SIZE before completion")
		}
		return 0, err
	}

	log.Log(requestID, "fetch complete", "url", log.RedactURL(url), "bytes", written)
	return written, nil
}

// limitedWriter counts bytes written through it and records whether the
// configured max was exceeded, without needing the caller to discard a
// partially downloaded file mid-stream.
type limitedWriter struct {
	max      int64
	total    int64
	exceeded bool
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	w.total += int64(len(p))
	if w.max > 0 && w.total > w.max {
		w.exceeded = true
		return 0, fmt.Errorf("exceeded max size of %d bytes", w.max)
	}
	return len(p), nil
}

// isTransient classifies a fetch error: anything not explicitly marked
// "permanent:" is treated as a transient network failure eligible for
// retry.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return len(msg) < 10 || msg[:10] != "permanent:"
}
