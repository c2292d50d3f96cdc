package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/csaibalakrishna/URL-DETECTOR/pkg/common"
	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"golang.org/x/net/publicsuffix"
)

// WhoisProbe looks up registration data for the registrable domain.
type WhoisProbe struct {
	query func(domain string) (string, error)
}

func NewWhoisProbe(timeout time.Duration) *WhoisProbe {
	client := whois.NewClient()
	client.SetTimeout(timeout)
	return &WhoisProbe{
		query: func(domain string) (string, error) {
			return client.Whois(domain)
		},
	}
}

// Lookup fails with ErrUnavailable for IP hosts, failed queries, unparseable
// records and records without a creation date (privacy redaction included).
func (p *WhoisProbe) Lookup(ctx context.Context, domain string) (rec WhoisRecord, err error) {
	domain = common.ASCIIHost(domain)
	if common.IsIPLiteral(domain) {
		return rec, fmt.Errorf("%w: whois skipped for IP literal %s", ErrUnavailable, domain)
	}

	apexDomain, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil {
		return rec, fmt.Errorf("%w: could not determine apex domain for %q: %v", ErrUnavailable, domain, err)
	}
	rec.Domain = apexDomain

	// whoisparser panics on some malformed records
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: recovered from panic in whoisparser for domain %s: %v", ErrUnavailable, apexDomain, r)
		}
	}()

	type whoisResult struct {
		raw string
		err error
	}
	resultChan := make(chan whoisResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultChan <- whoisResult{err: fmt.Errorf("whois query panic: %v", r)}
			}
		}()
		raw, err := p.query(apexDomain)
		resultChan <- whoisResult{raw: raw, err: err}
	}()

	var res whoisResult
	select {
	case <-ctx.Done():
		return rec, fmt.Errorf("%w: whois %s: %v", ErrUnavailable, apexDomain, ctx.Err())
	case res = <-resultChan:
	}
	if res.err != nil {
		return rec, fmt.Errorf("%w: whois lookup for %q failed: %v", ErrUnavailable, apexDomain, res.err)
	}

	info, err := whoisparser.Parse(res.raw)
	if err != nil {
		return rec, fmt.Errorf("%w: whoisparser for %q failed: %v", ErrUnavailable, apexDomain, err)
	}
	if info.Domain == nil {
		return rec, fmt.Errorf("%w: whois record for %q has no domain section", ErrUnavailable, apexDomain)
	}

	created, ok := common.ParseWhoisDate(info.Domain.CreatedDate)
	if !ok {
		return rec, fmt.Errorf("%w: whois record for %q has no usable creation date", ErrUnavailable, apexDomain)
	}
	rec.CreatedAt = created

	if expires, ok := common.ParseWhoisDate(info.Domain.ExpirationDate); ok {
		rec.ExpiresAt = expires
	}
	if info.Registrar != nil {
		rec.Registrar = info.Registrar.Name
	}

	return rec, nil
}
