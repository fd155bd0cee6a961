// Package openbadges fetches remote Open Badges documents over HTTP.
// It is the transport behind badge verification: scheme checks, size caps,
// retry on transient failures, and a short-lived response cache
package openbadges

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	perr "badgehub/internal/platform/errors"
	"badgehub/internal/platform/logger"
)

const (
	defaultUA        = "badgehub-verifier"
	defaultTimeout   = 10 * time.Second
	defaultMaxBytes  = 1 << 20
	defaultMaxRetry  = 3
	defaultRetryBase = 250 * time.Millisecond
	defaultCacheTTL  = 5 * time.Minute
)

// Options configures the Fetcher
type Options struct {
	UserAgent string
	Timeout   time.Duration

	// MaxBytes caps the response body size per document
	MaxBytes int64

	// Retry config for transient and rate limited responses
	MaxRetries int
	RetryBase  time.Duration

	// CacheTTL bounds how long fetched documents are served from memory.
	// Zero keeps the default; negative disables caching
	CacheTTL time.Duration
}

// Fetcher is an HTTP client for JSON-LD badge documents
type Fetcher struct {
	http  *http.Client
	opts  Options
	log   logger.Logger
	now   func() time.Time
	sleep func(time.Duration)

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	data    []byte
	expires time.Time
}

// NewFetcher creates a Fetcher with sane defaults
func NewFetcher(o Options) *Fetcher {
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = defaultMaxBytes
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetry
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	if o.CacheTTL == 0 {
		o.CacheTTL = defaultCacheTTL
	}
	return &Fetcher{
		http:  &http.Client{Timeout: o.Timeout},
		opts:  o,
		log:   *logger.Named("openbadges"),
		now:   time.Now,
		sleep: time.Sleep,
		cache: make(map[string]cacheEntry),
	}
}

// FetchJSON resolves an IRI to its JSON document body.
// Only absolute http and https IRIs are accepted
func (f *Fetcher) FetchJSON(ctx context.Context, iri string) ([]byte, error) {
	u, err := url.Parse(strings.TrimSpace(iri))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, perr.InvalidArgf("openbadges: unsupported iri %q", iri)
	}
	key := u.String()

	if data, ok := f.cached(key); ok {
		return data, nil
	}

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, key, nil)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "openbadges new request failed")
		}
		req.Header.Set("User-Agent", f.opts.UserAgent)
		req.Header.Set("Accept", "application/ld+json, application/json;q=0.9, */*;q=0.1")

		start := f.now()
		resp, err := f.http.Do(req)
		lat := f.now().Sub(start)

		if err != nil {
			if !f.shouldRetry(attempts) {
				return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "openbadges fetch failed")
			}
			back := f.backoff(attempts)
			f.log.Warn().Str("iri", key).Dur("retry_in", back).Int("attempt", attempts).Msg("openbadges transport error retrying")
			f.sleep(back)
			attempts++
			continue
		}

		f.log.Debug().
			Str("iri", key).
			Int("status", resp.StatusCode).
			Int("attempt", attempts).
			Dur("latency", lat).
			Msg("openbadges http response")

		switch {
		case resp.StatusCode == http.StatusOK:
			data, err := f.readBody(resp.Body, key)
			if err != nil {
				return nil, err
			}
			f.store(key, data)
			return data, nil

		case resp.StatusCode == http.StatusNotFound:
			_ = drainClose(resp.Body)
			return nil, perr.NotFoundf("openbadges: document not found at %s", key)

		case resp.StatusCode == http.StatusGone:
			// Hosts serve revocation stubs with 410, and the stub is the document.
			data, err := f.readBody(resp.Body, key)
			if err != nil || len(data) == 0 {
				return nil, perr.NotFoundf("openbadges: document gone at %s", key)
			}
			f.store(key, data)
			return data, nil

		case resp.StatusCode == http.StatusTooManyRequests ||
			resp.StatusCode == http.StatusBadGateway ||
			resp.StatusCode == http.StatusServiceUnavailable ||
			resp.StatusCode == http.StatusGatewayTimeout:
			_ = drainClose(resp.Body)
			if !f.shouldRetry(attempts) {
				return nil, perr.Unavailablef("openbadges: transient status %d from %s", resp.StatusCode, key)
			}
			back := f.backoff(attempts)
			f.log.Warn().Str("iri", key).Int("status", resp.StatusCode).Dur("retry_in", back).Msg("openbadges transient status retrying")
			f.sleep(back)
			attempts++
			continue

		default:
			tail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			_ = resp.Body.Close()
			return nil, perr.Newf(perr.ErrorCodeUnknown, "openbadges: unexpected status %d from %s body %s", resp.StatusCode, key, string(tail))
		}
	}
}

// readBody reads the capped body and rejects documents above the limit
func (f *Fetcher) readBody(body io.ReadCloser, key string) ([]byte, error) {
	defer func() { _ = body.Close() }()
	data, err := io.ReadAll(io.LimitReader(body, f.opts.MaxBytes+1))
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "openbadges read failed")
	}
	if int64(len(data)) > f.opts.MaxBytes {
		return nil, perr.InvalidArgf("openbadges: document at %s exceeds %d bytes", key, f.opts.MaxBytes)
	}
	return data, nil
}

func (f *Fetcher) cached(key string) ([]byte, bool) {
	if f.opts.CacheTTL < 0 {
		return nil, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.cache[key]
	if !ok || f.now().After(e.expires) {
		delete(f.cache, key)
		return nil, false
	}
	return e.data, true
}

func (f *Fetcher) store(key string, data []byte) {
	if f.opts.CacheTTL < 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache[key] = cacheEntry{data: data, expires: f.now().Add(f.opts.CacheTTL)}
}

func (f *Fetcher) backoff(attempt int) time.Duration {
	ms := int64(f.opts.RetryBase / time.Millisecond)
	ms = ms << uint(attempt)
	max := int64(10 * time.Second / time.Millisecond)
	if ms > max {
		ms = max
	}
	return time.Duration(ms) * time.Millisecond
}

func (f *Fetcher) shouldRetry(attempt int) bool {
	return attempt < f.opts.MaxRetries
}

func drainClose(rc io.ReadCloser) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 1<<14))
	return rc.Close()
}
