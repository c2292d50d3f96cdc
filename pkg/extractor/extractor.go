// Package extractor turns a URL into the canonical feature vector and its
// explanation. Lexical and protocol slots are always computed; network
// slots come from the probes and fall back to the sentinel when a probe is
// disabled, fails, panics or runs out of time.
package extractor

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/csaibalakrishna/URL-DETECTOR/pkg/common"
	"github.com/csaibalakrishna/URL-DETECTOR/pkg/config"
	"github.com/csaibalakrishna/URL-DETECTOR/pkg/features"
	"github.com/csaibalakrishna/URL-DETECTOR/pkg/logger"
	"github.com/csaibalakrishna/URL-DETECTOR/pkg/probe"
	"golang.org/x/sync/errgroup"
)

// Probe names used in Extraction.
const (
	ProbeDNS   = "dns"
	ProbeWhois = "whois"
	ProbeTLS   = "tls"
	ProbeFetch = "fetch"
)

type Options struct {
	DNSTimeout   time.Duration
	WhoisTimeout time.Duration
	TLSTimeout   time.Duration
	FetchTimeout time.Duration
	TotalBudget  time.Duration

	SuspiciousTokens []string
	Shorteners       []string
	AbusedTLDs       []string
}

func OptionsFrom(pc config.ProbeConfig, lc config.LexicalConfig) Options {
	return Options{
		DNSTimeout:       pc.DNSTimeout,
		WhoisTimeout:     pc.WhoisTimeout,
		TLSTimeout:       pc.TLSTimeout,
		FetchTimeout:     pc.FetchTimeout,
		TotalBudget:      pc.TotalBudget,
		SuspiciousTokens: lc.SuspiciousTokens,
		Shorteners:       lc.Shorteners,
		AbusedTLDs:       lc.AbusedTLDs,
	}
}

// NewProbes builds the live probe set. It is empty when probes are disabled.
func NewProbes(cfg config.ProbeConfig) probe.Set {
	if !cfg.Enabled {
		return probe.Set{}
	}
	guard := &probe.Guard{BlockPrivate: cfg.BlockPrivateTargets}
	return probe.Set{
		DNS:   probe.NewDNSProbe(cfg.DNSServer, cfg.DNSTimeout),
		Whois: probe.NewWhoisProbe(cfg.WhoisTimeout),
		TLS:   probe.NewTLSProbe(guard),
		Fetcher: probe.NewHTTPFetcher(probe.FetchOptions{
			Timeout:      cfg.FetchTimeout,
			MaxBodyBytes: cfg.MaxBodyBytes,
			MaxRedirects: cfg.MaxRedirects,
			Insecure:     cfg.InsecureFetch,
			UserAgent:    cfg.UserAgent,
			Guard:        guard,
		}),
	}
}

// Extraction is the outcome of one Run.
type Extraction struct {
	Vector      features.Vector
	Explanation features.Explanation
	// Attempted lists the probes that were started, in a stable order.
	Attempted []string
	// Failed maps a started probe to the reason it produced nothing.
	Failed map[string]string
}

// NetworkDown reports whether no started probe produced a measurement,
// including the case where none was started.
func (x Extraction) NetworkDown() bool {
	return len(x.Failed) == len(x.Attempted)
}

type Extractor struct {
	probes probe.Set
	opts   Options
	log    *logger.Logger
	now    func() time.Time
}

func New(probes probe.Set, opts Options, log *logger.Logger) *Extractor {
	if log == nil {
		log = logger.Nop()
	}
	return &Extractor{
		probes: probes,
		opts:   opts,
		log:    log.WithComponent("extractor"),
		now:    time.Now,
	}
}

// Extract returns the feature vector and explanation for u.
func (e *Extractor) Extract(ctx context.Context, u *url.URL) (features.Vector, features.Explanation) {
	x := e.Run(ctx, u)
	return x.Vector, x.Explanation
}

type probeResults struct {
	dns      probe.DNSResult
	dnsErr   error
	whois    probe.WhoisRecord
	whoisErr error
	cert     probe.Certificate
	certErr  error
	page     *probe.Page
	pageErr  error
}

func (e *Extractor) Run(ctx context.Context, u *url.URL) Extraction {
	b := features.NewBuilder()
	host := common.ASCIIHost(u.Hostname())
	isIP := common.IsIPLiteral(host)
	isHTTPS := strings.EqualFold(u.Scheme, "https")

	func() {
		defer func() {
			if r := recover(); r != nil {
				e.log.Errorw("lexical analysis panicked", "url", u.String(), "panic", r)
				for _, g := range []features.Group{features.GroupLexical, features.GroupProtocol} {
					b.UnavailableGroup(g, fmt.Sprintf("internal error: %v", r))
				}
			}
		}()
		e.analyzeURL(b, u)
	}()

	if e.opts.TotalBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.TotalBudget)
		defer cancel()
	}

	var (
		res       probeResults
		mu        sync.Mutex
		attempted []string
	)
	start := func(name string) {
		mu.Lock()
		attempted = append(attempted, name)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)

	if e.probes.DNS != nil && !isIP {
		start(ProbeDNS)
		g.Go(func() error {
			res.dns, res.dnsErr = runProbe(gctx, e.opts.DNSTimeout, ProbeDNS, func(ctx context.Context) (probe.DNSResult, error) {
				return e.probes.DNS.Resolve(ctx, host)
			})
			return nil
		})
	}
	if e.probes.Whois != nil && !isIP {
		start(ProbeWhois)
		g.Go(func() error {
			res.whois, res.whoisErr = runProbe(gctx, e.opts.WhoisTimeout, ProbeWhois, func(ctx context.Context) (probe.WhoisRecord, error) {
				return e.probes.Whois.Lookup(ctx, common.RegistrableDomain(host))
			})
			return nil
		})
	}
	if e.probes.TLS != nil && isHTTPS {
		start(ProbeTLS)
		g.Go(func() error {
			port := u.Port()
			if port == "" {
				port = "443"
			}
			res.cert, res.certErr = runProbe(gctx, e.opts.TLSTimeout, ProbeTLS, func(ctx context.Context) (probe.Certificate, error) {
				return e.probes.TLS.Inspect(ctx, host, port)
			})
			return nil
		})
	}
	if e.probes.Fetcher != nil {
		start(ProbeFetch)
		g.Go(func() error {
			res.page, res.pageErr = runProbe(gctx, e.opts.FetchTimeout, ProbeFetch, func(ctx context.Context) (*probe.Page, error) {
				return e.probes.Fetcher.Fetch(ctx, u)
			})
			return nil
		})
	}

	_ = g.Wait()

	failed := make(map[string]string)
	fail := func(name string, err error) string {
		reason := err.Error()
		failed[name] = reason
		e.log.Debugw("probe unavailable", "probe", name, "url", u.String(), "error", reason)
		return reason
	}

	switch {
	case isIP:
		b.UnavailableGroup(features.GroupDNS, "IP literal host; no DNS lookup")
	case e.probes.DNS == nil:
		b.UnavailableGroup(features.GroupDNS, "dns probe disabled")
	case res.dnsErr != nil:
		b.UnavailableGroup(features.GroupDNS, fail(ProbeDNS, res.dnsErr))
	default:
		e.fillDNS(b, res.dns)
	}

	switch {
	case isIP:
		b.UnavailableGroup(features.GroupWhois, "IP literal host; no WHOIS lookup")
	case e.probes.Whois == nil:
		b.UnavailableGroup(features.GroupWhois, "whois probe disabled")
	case res.whoisErr != nil:
		b.UnavailableGroup(features.GroupWhois, fail(ProbeWhois, res.whoisErr))
	default:
		e.fillWhois(b, res.whois)
	}

	switch {
	case !isHTTPS:
		for _, name := range features.InGroup(features.GroupTLS) {
			b.Set(name, 0, "no certificate presented over http -> suspicious")
		}
	case e.probes.TLS == nil:
		b.UnavailableGroup(features.GroupTLS, "tls probe disabled")
	case res.certErr != nil:
		b.UnavailableGroup(features.GroupTLS, fail(ProbeTLS, res.certErr))
	default:
		e.fillTLS(b, res.cert)
	}

	switch {
	case e.probes.Fetcher == nil:
		b.UnavailableGroup(features.GroupContent, "fetch disabled")
	case res.pageErr != nil:
		b.UnavailableGroup(features.GroupContent, fail(ProbeFetch, res.pageErr))
	case res.page == nil:
		b.UnavailableGroup(features.GroupContent, fail(ProbeFetch, fmt.Errorf("%w: empty response", probe.ErrUnavailable)))
	default:
		if ok := e.contentFromPage(b, res.page, host); !ok {
			failed[ProbeFetch] = "page could not be analyzed"
		}
	}

	sort.Strings(attempted)
	vec, expl := b.Build()
	return Extraction{
		Vector:      vec,
		Explanation: expl,
		Attempted:   attempted,
		Failed:      failed,
	}
}

// runProbe bounds fn by timeout and turns panics and overruns into
// ErrUnavailable. fn keeps running in the background if it ignores ctx.
func runProbe[T any](ctx context.Context, timeout time.Duration, name string, fn func(context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: %s probe panicked: %v", probe.ErrUnavailable, name, r)}
			}
		}()
		v, err := fn(ctx)
		done <- outcome{val: v, err: err}
	}()

	select {
	case o := <-done:
		return o.val, o.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("%w: %s probe: %v", probe.ErrUnavailable, name, ctx.Err())
	}
}

func (e *Extractor) fillDNS(b *features.Builder, r probe.DNSResult) {
	b.Flag(features.DNSResolvable, r.Resolvable, "host resolves", false)
	if r.SPFChecked {
		b.Flag(features.DNSHasSPF, r.HasSPF, "domain publishes SPF", false)
	} else {
		b.Unavailable(features.DNSHasSPF, "SPF lookup failed")
	}
}

func (e *Extractor) fillWhois(b *features.Builder, rec probe.WhoisRecord) {
	if rec.CreatedAt.IsZero() {
		b.Unavailable(features.DomainAgeDays, "no creation date in WHOIS record")
		return
	}
	days := int(e.now().Sub(rec.CreatedAt).Hours() / 24)
	if days < 0 {
		days = 0
	}
	verdict := "ok"
	if days < 180 {
		verdict = "suspicious"
	}
	b.Set(features.DomainAgeDays, float64(days),
		fmt.Sprintf("registered %d days ago (%s) -> %s", days, rec.CreatedAt.Format("2006-01-02"), verdict))
}

func (e *Extractor) fillTLS(b *features.Builder, c probe.Certificate) {
	if c.ChainValid {
		b.Set(features.TLSChainValid, 1, "certificate chain verifies -> ok")
	} else {
		b.Set(features.TLSChainValid, 0, fmt.Sprintf("certificate chain does not verify (%s) -> suspicious", c.ChainError))
	}
	b.Flag(features.TLSHostMatch, c.HostMatch, "certificate matches host", false)

	verdict := "ok"
	if c.Reliability == 0 {
		verdict = "suspicious"
	}
	issuer := c.IssuerOrg
	if issuer == "" {
		issuer = "unknown issuer"
	}
	b.Set(features.TLSIssuerReliability, float64(c.Reliability),
		fmt.Sprintf("%s, reliability %s -> %s", issuer, common.MapReliabilityScore(c.Reliability), verdict))
}

func (e *Extractor) contentFromPage(b *features.Builder, page *probe.Page, host string) bool {
	ct := strings.ToLower(page.ContentType)
	if ct != "" && !strings.Contains(ct, "html") {
		b.UnavailableGroup(features.GroupContent, fmt.Sprintf("non-HTML response (%s)", page.ContentType))
		return false
	}

	signals, err := func() (s pageSignals, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("content analysis panicked: %v", r)
			}
		}()
		return analyzePage(page, host)
	}()
	if err != nil {
		e.log.Debugw("content analysis failed", "host", host, "error", err)
		b.UnavailableGroup(features.GroupContent, err.Error())
		return false
	}
	e.fillContent(b, signals)
	return true
}
