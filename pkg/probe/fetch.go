package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

type FetchOptions struct {
	Timeout      time.Duration
	MaxBodyBytes int64
	MaxRedirects int
	Insecure     bool
	UserAgent    string
	Guard        *Guard
}

// HTTPFetcher downloads a single page for content analysis.
type HTTPFetcher struct {
	client    *http.Client
	maxBody   int64
	userAgent string
}

func NewHTTPFetcher(opts FetchOptions) *HTTPFetcher {
	transport := &http.Transport{
		DialContext:           opts.Guard.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   opts.Timeout,
		ResponseHeaderTimeout: opts.Timeout,
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: opts.Insecure},
	}

	maxRedirects := opts.MaxRedirects
	client := &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 2 << 20
	}

	return &HTTPFetcher{
		client:    client,
		maxBody:   maxBody,
		userAgent: opts.UserAgent,
	}
}

// Fetch returns ErrUnavailable for transport errors, redirect loops,
// non-2xx responses and bodies larger than the configured cap.
func (f *HTTPFetcher) Fetch(ctx context.Context, u *url.URL) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create http request: %v", ErrUnavailable, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: http get failed: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: http status %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrUnavailable, err)
	}
	if int64(len(body)) > f.maxBody {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrUnavailable, f.maxBody)
	}

	return &Page{
		RequestURL:  u,
		FinalURL:    resp.Request.URL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
