package analyzer

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/csaibalakrishna/URL-DETECTOR/pkg/common"
	"golang.org/x/net/idna"
)

// MaxURLLength bounds accepted input, in bytes.
const MaxURLLength = 2048

func invalid(raw, format string, args ...any) *ValidationError {
	return &ValidationError{Input: raw, Reason: fmt.Sprintf(format, args...)}
}

// ParseURL validates raw and returns it with scheme and host lowercased and
// the fragment dropped. Private and loopback IP literals are accepted.
func ParseURL(raw string) (*url.URL, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, invalid(raw, "URL is empty")
	}
	if len(s) > MaxURLLength {
		return nil, invalid(raw, "URL is longer than %d bytes", MaxURLLength)
	}
	for _, r := range s {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return nil, invalid(raw, "URL contains whitespace or control characters")
		}
	}

	u, err := url.Parse(s)
	if err != nil {
		return nil, invalid(raw, "cannot parse URL: %v", unwrapURLError(err))
	}
	if u.Scheme == "" {
		return nil, invalid(raw, "missing scheme (expected http:// or https://)")
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, invalid(raw, "unsupported scheme %q", u.Scheme)
	}
	if u.Opaque != "" || u.Host == "" {
		return nil, invalid(raw, "missing host")
	}

	host := u.Hostname()
	if host == "" {
		return nil, invalid(raw, "missing host")
	}
	if port := u.Port(); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil || n < 1 || n > 65535 {
			return nil, invalid(raw, "invalid port %q", port)
		}
	}
	if !common.IsIPLiteral(host) {
		ascii, err := idna.Lookup.ToASCII(strings.TrimSuffix(host, "."))
		if err != nil {
			return nil, invalid(raw, "invalid hostname %q", host)
		}
		// Probes put the host on the wire, so it must be in punycode form.
		if port := u.Port(); port != "" {
			u.Host = net.JoinHostPort(ascii, port)
		} else {
			u.Host = ascii
		}
	}

	normalized, err := url.Parse(common.CanonicalizeURL(u))
	if err != nil {
		return nil, invalid(raw, "cannot normalize URL: %v", unwrapURLError(err))
	}
	return normalized, nil
}

func unwrapURLError(err error) error {
	if ue, ok := err.(*url.Error); ok {
		return ue.Err
	}
	return err
}
