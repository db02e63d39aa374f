package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"comfyd/internal/common/fsutil"
	"comfyd/pkg/types"
)

// Options configures a fetch run.
type Options struct {
	// Token is the bearer credential for gated artifacts.
	Token string
	// Client overrides the HTTP client (tests).
	Client *http.Client
	// MaxElapsed caps total retry time per artifact. Zero means the
	// default (15 minutes; these are multi-GB downloads).
	MaxElapsed time.Duration
	// RetryInterval is the initial backoff between attempts.
	RetryInterval time.Duration
	Logger        zerolog.Logger
}

const defaultMaxElapsed = 15 * time.Minute

func newFetchClient() *http.Client {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// Timeout=0: downloads run for as long as the per-attempt context allows.
	return &http.Client{Transport: tr, Timeout: 0}
}

// Fetch downloads every artifact in the plan under root. Family fetches are
// independent: a failure in one artifact does not stop the others, and the
// directory layout is created before any download. The combined error
// reports every failed artifact; nil means the full plan is on disk.
func Fetch(ctx context.Context, root string, plan types.Plan, opts Options) error {
	if err := EnsureLayout(root, plan); err != nil {
		return err
	}
	if opts.Client == nil {
		opts.Client = newFetchClient()
	}
	if opts.MaxElapsed <= 0 {
		opts.MaxElapsed = defaultMaxElapsed
	}
	var errs []error
	for _, a := range plan.Artifacts {
		if err := fetchArtifact(ctx, root, a, opts); err != nil {
			fetchFailures.WithLabelValues(string(a.Family)).Inc()
			opts.Logger.Error().Str("dest", a.Dest).Err(err).Msg("artifact fetch failed")
			errs = append(errs, fmt.Errorf("%s: %w", a.Dest, err))
		}
	}
	return errors.Join(errs...)
}

func fetchArtifact(ctx context.Context, root string, a types.ArtifactSpec, opts Options) error {
	dest := filepath.Join(root, a.Dest)
	if fsutil.PathExists(dest) {
		opts.Logger.Info().Str("dest", a.Dest).Msg("artifact already present, skipping")
		return nil
	}
	if a.Gated && opts.Token == "" {
		return credentialRequiredError{dest: a.Dest}
	}

	start := time.Now()
	var written int64
	op := func() error {
		n, err := downloadOnce(ctx, dest, a, opts)
		written = n
		return err
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = opts.RetryInterval
	if b.InitialInterval <= 0 {
		b.InitialInterval = 2 * time.Second
	}
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = opts.MaxElapsed
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return err
	}
	artifactsFetched.WithLabelValues(string(a.Family)).Inc()
	fetchBytes.WithLabelValues(string(a.Family)).Add(float64(written))
	opts.Logger.Info().
		Str("dest", a.Dest).
		Str("size", humanize.Bytes(uint64(written))).
		Dur("dur", time.Since(start)).
		Msg("artifact fetched")
	return nil
}

// downloadOnce performs one attempt: stream to a partial file, then rename.
// A failed attempt never leaves bytes under the final destination name.
func downloadOnce(ctx context.Context, dest string, a types.ArtifactSpec, opts Options) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
	if err != nil {
		return 0, backoff.Permanent(err)
	}
	if a.Gated {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}
	resp, err := opts.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, backoff.Permanent(ctx.Err())
		}
		return 0, err // network errors are retryable
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		serr := httpStatusError{url: a.URL, status: resp.StatusCode}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return 0, serr
		}
		// auth/404-class failures will not improve with retries
		return 0, backoff.Permanent(serr)
	}

	partial := dest + ".partial-" + uuid.NewString()
	f, err := os.Create(partial)
	if err != nil {
		return 0, backoff.Permanent(err)
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(partial)
		if ctx.Err() != nil {
			return 0, backoff.Permanent(ctx.Err())
		}
		return 0, err
	}
	if err := os.Rename(partial, dest); err != nil {
		_ = os.Remove(partial)
		return 0, backoff.Permanent(err)
	}
	return n, nil
}
