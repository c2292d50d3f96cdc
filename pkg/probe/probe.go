// Package probe holds the live network checks used during feature
// extraction. Every probe honors the context deadline, never retries, and
// wraps its failures in ErrUnavailable.
package probe

import (
	"context"
	"errors"
	"net/url"
	"time"
)

var (
	// ErrUnavailable marks a probe that could not produce a measurement.
	ErrUnavailable = errors.New("probe unavailable")
	// ErrBlockedTarget is returned when a dial would reach a private address.
	ErrBlockedTarget = errors.New("target address is not publicly routable")
)

type DNSResult struct {
	Resolvable bool
	Addresses  []string
	// SPFChecked is false when the TXT query failed; HasSPF is then meaningless.
	SPFChecked bool
	HasSPF     bool
}

type WhoisRecord struct {
	Domain    string
	Registrar string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type Certificate struct {
	ChainValid  bool
	ChainError  string
	HostMatch   bool
	IssuerOrg   string
	Reliability int
	NotBefore   time.Time
	NotAfter    time.Time
}

type Page struct {
	RequestURL  *url.URL
	FinalURL    *url.URL
	StatusCode  int
	ContentType string
	Body        []byte
}

type Resolver interface {
	Resolve(ctx context.Context, host string) (DNSResult, error)
}

type WhoisLookup interface {
	Lookup(ctx context.Context, domain string) (WhoisRecord, error)
}

type TLSInspector interface {
	Inspect(ctx context.Context, host, port string) (Certificate, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, u *url.URL) (*Page, error)
}

// Set bundles the probes an extractor uses. A nil member disables that probe.
type Set struct {
	DNS     Resolver
	Whois   WhoisLookup
	TLS     TLSInspector
	Fetcher Fetcher
}
