package extractor

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/csaibalakrishna/URL-DETECTOR/pkg/common"
	"github.com/csaibalakrishna/URL-DETECTOR/pkg/features"
)

func countNote(n int, what string, suspiciousAt int) string {
	verdict := "ok"
	if n >= suspiciousAt {
		verdict = "suspicious"
	}
	return fmt.Sprintf("%d %s -> %s", n, what, verdict)
}

// analyzeURL fills the lexical and protocol slots. It does no I/O.
func (e *Extractor) analyzeURL(b *features.Builder, u *url.URL) {
	full := u.String()
	host := common.ASCIIHost(u.Hostname())
	isIP := common.IsIPLiteral(host)

	b.Set(features.URLLength, float64(len(full)), countNote(len(full), "characters in URL", 75))
	b.Set(features.HostnameLength, float64(len(host)), countNote(len(host), "characters in hostname", 30))
	b.Set(features.HostDotCount, float64(strings.Count(host, ".")), countNote(strings.Count(host, "."), "dots in hostname", 4))
	b.Set(features.HyphenCount, float64(strings.Count(full, "-")), countNote(strings.Count(full, "-"), "hyphens in URL", 3))
	b.Set(features.AtSymbolCount, float64(strings.Count(full, "@")), countNote(strings.Count(full, "@"), "'@' in URL", 1))
	slashes := common.DoubleSlashCount(full)
	b.Set(features.DoubleSlashCount, float64(slashes), countNote(slashes, "'//' after the scheme", 1))

	b.Flag(features.IPLiteralHost, isIP, "uses IP address host", true)
	b.Flag(features.ShortenerHost, common.IsShortener(host, e.opts.Shorteners), "uses URL shortening service", true)

	tokens := common.SuspiciousTokens(full, e.opts.SuspiciousTokens)
	tokenNote := countNote(len(tokens), "suspicious tokens", 1)
	if len(tokens) > 0 {
		tokenNote = fmt.Sprintf("%s (%s)", tokenNote, strings.Join(tokens, ", "))
	}
	b.Set(features.SuspiciousTokenCount, float64(len(tokens)), tokenNote)

	b.Flag(features.AbusedTLD, common.HasAbusedTLD(host, e.opts.AbusedTLDs), "TLD frequently abused", true)

	if isIP {
		b.Set(features.SubdomainCount, 0, "IP literal host has no subdomains")
	} else {
		n := common.SubdomainCount(host)
		b.Set(features.SubdomainCount, float64(n), countNote(n, "subdomain labels", 3))
	}

	ratio := common.CalDigitLetterRatio(host)
	ratioNote := fmt.Sprintf("%.2f digits per letter -> ok", ratio)
	if ratio > 0.5 {
		ratioNote = fmt.Sprintf("%.2f digits per letter -> suspicious", ratio)
	}
	b.Set(features.DigitLetterRatio, ratio, ratioNote)

	if homograph, err := common.UsesHomographTrick(host); err != nil {
		b.Set(features.HomographHost, 1, "hostname punycode does not decode -> suspicious")
	} else {
		b.Flag(features.HomographHost, homograph, "hostname mixes scripts", true)
	}

	b.Flag(features.RandomLookingHost, !isIP && common.HasRandomLookingString(host), "hostname looks random", true)

	encoded := common.CountEncodedChars(full)
	b.Set(features.EncodedCharCount, float64(encoded), countNote(encoded, "percent-encoded bytes", 5))

	b.Flag(features.HTTPSScheme, strings.EqualFold(u.Scheme, "https"), "uses https", false)
	b.Flag(features.NonStandardPort, nonStandardPort(u), "explicit non-default port", true)
}

func nonStandardPort(u *url.URL) bool {
	port := u.Port()
	switch {
	case port == "":
		return false
	case strings.EqualFold(u.Scheme, "http"):
		return port != "80"
	case strings.EqualFold(u.Scheme, "https"):
		return port != "443"
	}
	return true
}
