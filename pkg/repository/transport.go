package repository

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/matzehuels/mvnkit/pkg/buildinfo"
	"github.com/matzehuels/mvnkit/pkg/errors"
	"github.com/matzehuels/mvnkit/pkg/httputil"
	"github.com/matzehuels/mvnkit/pkg/observability"
)

// response is a fetched file.
type response struct {
	data         []byte
	lastModified time.Time
}

func (r *Repository) newHTTPClient() *http.Client {
	timeout := r.opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.Proxy = r.proxyFunc
	return &http.Client{Timeout: timeout, Transport: t}
}

// proxyFunc selects the configured proxy for this repository, falling back
// to the environment.
func (r *Repository) proxyFunc(req *http.Request) (*url.URL, error) {
	if p, ok := SelectProxy(r.opts.Proxies, r.ID, r.URL); ok {
		r.logger.Debugf("using proxy %s for %s", p, r.ID)
		return p.URL(), nil
	}
	return http.ProxyFromEnvironment(req)
}

// get fetches rawURL. Concurrent requests for the same URL share one
// round trip.
func (r *Repository) get(ctx context.Context, rawURL string) (*response, error) {
	v, err, _ := r.flight.Do(rawURL, func() (any, error) {
		var resp *response
		err := httputil.Retry(ctx, r.opts.Retry, func() error {
			var err error
			resp, err = r.fetch(ctx, rawURL)
			return err
		})
		return resp, err
	})
	if err != nil {
		return nil, err
	}
	return v.(*response), nil
}

func (r *Repository) fetch(ctx context.Context, rawURL string) (*response, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "bad repository url %s", rawURL)
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent())

	host, path := req.URL.Host, req.URL.Path
	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := r.client.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &httputil.RetryableError{Err: r.transportError(rawURL, err)}
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := r.checkStatus(resp, rawURL); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &httputil.RetryableError{Err: r.transportError(rawURL, err)}
	}
	out := &response{data: data}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			out.lastModified = t
		}
	}
	return out, nil
}

func (r *Repository) checkStatus(resp *http.Response, rawURL string) error {
	code := resp.StatusCode
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound || code == http.StatusBadRequest || code == http.StatusGone:
		return errors.New(errors.ErrCodeNotFound, "%s not found @ %s", rawURL, r.ID)
	case code == http.StatusTooManyRequests:
		after := retryAfter(resp.Header.Get("Retry-After"))
		rl := &errors.RateLimitedError{RetryAfter: int(after / time.Second), URL: rawURL}
		return &httputil.RetryableError{Err: errors.Wrap(errors.ErrCodeRateLimited, rl, "%s", r.ID), After: after}
	case code >= 500:
		return &httputil.RetryableError{Err: errors.New(errors.ErrCodeNetwork, "GET %s: status %d", rawURL, code)}
	default:
		return errors.New(errors.ErrCodeNetwork, "GET %s: status %d", rawURL, code)
	}
}

// transportError adds a connectivity hint to a failed request.
func (r *Repository) transportError(rawURL string, err error) error {
	if p, ok := SelectProxy(r.opts.Proxies, r.ID, r.URL); ok {
		return errors.Wrap(errors.ErrCodeNetwork, err, "failed to use proxy %s for %s", p, r.ID)
	}
	settings := r.opts.SettingsFile
	if settings == "" {
		settings = "your settings"
	}
	return errors.Wrap(errors.ErrCodeNetwork, err, "GET %s: do you need to configure a proxy in %s?", rawURL, settings)
}

func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
