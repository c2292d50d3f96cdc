package probe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/csaibalakrishna/URL-DETECTOR/pkg/common"
	"github.com/miekg/dns"
)

// DNSProbe asks a single recursive resolver for address and SPF records.
type DNSProbe struct {
	client *dns.Client
	server string
}

func NewDNSProbe(server string, timeout time.Duration) *DNSProbe {
	return &DNSProbe{
		client: &dns.Client{Net: "udp", Timeout: timeout},
		server: server,
	}
}

// Resolve reports whether host has an A or AAAA record. NXDOMAIN is a
// measured "not resolvable"; transport errors are ErrUnavailable.
func (p *DNSProbe) Resolve(ctx context.Context, host string) (DNSResult, error) {
	var res DNSResult
	host = common.ASCIIHost(host)

	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		addrs, err := p.addresses(ctx, host, qtype)
		if err != nil {
			return res, fmt.Errorf("%w: dns %s %s: %v", ErrUnavailable, dns.TypeToString[qtype], host, err)
		}
		if len(addrs) > 0 {
			res.Resolvable = true
			res.Addresses = addrs
			break
		}
	}

	spf, err := p.hasSPF(ctx, common.RegistrableDomain(host))
	if err == nil {
		res.SPFChecked = true
		res.HasSPF = spf
	}

	return res, nil
}

func (p *DNSProbe) exchange(ctx context.Context, name string, qtype uint16) (*dns.Msg, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), qtype)

	in, _, err := p.client.ExchangeContext(ctx, m, p.server)
	if err != nil {
		return nil, err
	}
	return in, nil
}

func (p *DNSProbe) addresses(ctx context.Context, host string, qtype uint16) ([]string, error) {
	in, err := p.exchange(ctx, host, qtype)
	if err != nil {
		return nil, err
	}

	switch in.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, nil
	default:
		return nil, fmt.Errorf("rcode %s", dns.RcodeToString[in.Rcode])
	}

	var out []string
	for _, rr := range in.Answer {
		switch r := rr.(type) {
		case *dns.A:
			out = append(out, r.A.String())
		case *dns.AAAA:
			out = append(out, r.AAAA.String())
		}
	}
	return out, nil
}

func (p *DNSProbe) hasSPF(ctx context.Context, domain string) (bool, error) {
	in, err := p.exchange(ctx, domain, dns.TypeTXT)
	if err != nil {
		return false, err
	}
	if in.Rcode != dns.RcodeSuccess && in.Rcode != dns.RcodeNameError {
		return false, fmt.Errorf("rcode %s", dns.RcodeToString[in.Rcode])
	}

	for _, a := range in.Answer {
		if t, ok := a.(*dns.TXT); ok {
			if strings.HasPrefix(strings.Join(t.Txt, ""), "v=spf1") {
				return true, nil
			}
		}
	}
	return false, nil
}
