package common

import (
	"crypto/x509"
	"net"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

var (
	yyyymmddRe = regexp.MustCompile(`(\d{8})`)
	encodedRe  = regexp.MustCompile(`%[0-9A-Fa-f]{2}`)
)

var trustedIssuers = []string{
	"Actalis", "Amazon", "Apple", "Buypass", "Certigna", "Certum", "CFCA",
	"Chunghwa Telecom", "Comodo", "Cybertrust", "DigiCert", "Entrust",
	"eMudhra", "Firmaprofesional", "GeoTrust", "GlobalSign", "GoDaddy", "IdenTrust",
	"Internet2", "Let's Encrypt", "Microsoft", "NetLock", "Network Solutions",
	"QuoVadis", "Sectigo", "Secom", "SSL.com", "SwissSign", "Symantec",
	"Telia Company", "Thawte", "Trustwave", "TWCA", "Unizeto", "VeriSign",
	"Verizon", "WISeKey", "Xolphin", "Google Trust Services", "ZeroSSL",
}

// GetCertReliability scores a leaf certificate: one point for a well known
// issuer, one for a validity period longer than a year.
func GetCertReliability(cert *x509.Certificate, issuerO string) int {
	trustedScore := 0
	for _, prefix := range trustedIssuers {
		if strings.HasPrefix(issuerO, prefix) {
			trustedScore = 1
			break
		}
	}

	durationScore := 0
	if cert.NotAfter.Sub(cert.NotBefore).Hours()/24 > 365 {
		durationScore = 1
	}

	return trustedScore + durationScore
}

// Reliability Score System
func MapReliabilityScore(score int) string {
	switch score {
	case 2:
		return "HIGH"
	case 1:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// GetIssuerOrganization returns the first O= of the issuer.
func GetIssuerOrganization(cert *x509.Certificate) string {
	if len(cert.Issuer.Organization) > 0 {
		return cert.Issuer.Organization[0]
	}
	return ""
}

// SuspiciousTokens returns the distinct tokens of the list found in the URL.
func SuspiciousTokens(rawURL string, tokens []string) []string {
	urlLower := strings.ToLower(rawURL)
	var found []string
	seen := make(map[string]bool, len(tokens))
	for _, word := range tokens {
		word = strings.ToLower(strings.TrimSpace(word))
		if word == "" || seen[word] {
			continue
		}
		seen[word] = true
		if strings.Contains(urlLower, word) {
			found = append(found, word)
		}
	}
	return found
}

// Calculating digits to letters ratio
func CalDigitLetterRatio(domain string) float64 {
	digits := 0
	letters := 0
	for _, ch := range domain {
		if ch >= '0' && ch <= '9' {
			digits++
		} else if unicode.IsLetter(ch) {
			letters++
		}
	}
	if letters == 0 {
		return float64(digits)
	}
	return float64(digits) / float64(letters)
}

// LooksLikeObfuscatedJS flags inline scripts built to hide what they do.
func LooksLikeObfuscatedJS(js string) bool {
	js = strings.ToLower(js)

	return strings.Contains(js, "eval(") ||
		strings.Contains(js, "unescape(") ||
		strings.Contains(js, "string.fromcharcode") ||
		strings.Contains(js, "atob(") ||
		hasLongUnbrokenString(js)
}

// very long word with no spaces (e.g. base64 or packed)
func hasLongUnbrokenString(js string) bool {
	for _, w := range strings.Fields(js) {
		if len(w) > 200 {
			return true
		}
	}
	return false
}

// HasRandomLookingString reports a vowel ratio below 0.2 across the letters
// of the host. Hosts without letters are not considered random.
func HasRandomLookingString(domain string) bool {
	vowels, letters := 0, 0
	for _, ch := range domain {
		if !unicode.IsLetter(ch) {
			continue
		}
		letters++
		if strings.ContainsRune("aeiouy", unicode.ToLower(ch)) {
			vowels++
		}
	}
	if letters == 0 {
		return false
	}
	return float64(vowels)/float64(letters) < 0.2
}

// UsesHomographTrick reports hosts that mix Latin letters with letters of
// another script once punycode is decoded.
func UsesHomographTrick(domain string) (bool, error) {
	decoded, err := idna.ToUnicode(domain)
	if err != nil {
		return false, err
	}

	hasLatin := false
	hasOther := false
	for _, r := range decoded {
		switch {
		case unicode.In(r, unicode.Latin):
			hasLatin = true
		case unicode.IsLetter(r):
			hasOther = true
		}
	}
	return hasLatin && hasOther, nil
}

func SubdomainCount(domain string) int {
	eTLDPlusOne, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil {
		return strings.Count(domain, ".")
	}
	if len(domain) > len(eTLDPlusOne) {
		subdomainPart := domain[:len(domain)-len(eTLDPlusOne)-1]
		return strings.Count(subdomainPart, ".") + 1
	}
	return 0
}

// RegistrableDomain returns eTLD+1, or the host itself when it has none.
func RegistrableDomain(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if apex, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return apex
	}
	return host
}

// SameSite compares two hosts by registrable domain.
func SameSite(a, b string) bool {
	if a == "" || b == "" {
		return a == b
	}
	return RegistrableDomain(a) == RegistrableDomain(b)
}

// ASCIIHost lowercases host and converts IDN labels to punycode. IP
// literals and hosts that do not convert are returned lowercased.
func ASCIIHost(host string) string {
	host = strings.ToLower(host)
	if IsIPLiteral(host) {
		return host
	}
	ascii, err := idna.Lookup.ToASCII(strings.TrimSuffix(host, "."))
	if err != nil {
		return host
	}
	return ascii
}

func IsIPLiteral(host string) bool {
	return net.ParseIP(strings.Trim(host, "[]")) != nil
}

// IsShortener matches the host or any parent domain against the list.
func IsShortener(host string, shorteners []string) bool {
	host = strings.ToLower(host)
	for _, s := range shorteners {
		s = strings.ToLower(s)
		if host == s || strings.HasSuffix(host, "."+s) {
			return true
		}
	}
	return false
}

// TopLevelDomain returns the last label of a hostname.
func TopLevelDomain(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if i := strings.LastIndexByte(host, '.'); i >= 0 {
		return host[i+1:]
	}
	return ""
}

func HasAbusedTLD(host string, tlds []string) bool {
	if IsIPLiteral(host) {
		return false
	}
	tld := TopLevelDomain(host)
	if tld == "" {
		return false
	}
	for _, t := range tlds {
		if strings.EqualFold(strings.TrimPrefix(t, "."), tld) {
			return true
		}
	}
	return false
}

func CountEncodedChars(rawURL string) int {
	return len(encodedRe.FindAllStringIndex(rawURL, -1))
}

// DoubleSlashCount counts "//" after the scheme separator.
func DoubleSlashCount(rawURL string) int {
	rest := rawURL
	if i := strings.Index(rawURL, "://"); i >= 0 {
		rest = rawURL[i+3:]
	}
	return strings.Count(rest, "//")
}

// IsPrivateIP reports loopback, link-local, private and unspecified addresses.
func IsPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsPrivate() ||
		ip.IsUnspecified()
}

// NormalizeURL ensures a URL has a scheme.
func NormalizeURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL != "" && !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return "https://" + rawURL
	}
	return rawURL
}

// ParseWhoisDate tries multiple common layouts to parse a date string.
func ParseWhoisDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	if match := yyyymmddRe.FindStringSubmatch(raw); len(match) > 1 {
		if t, err := time.Parse("20060102", match[1]); err == nil {
			return t, true
		}
	}

	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05Z",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
		"02-Jan-2006",
		"2006/01/02",
		"2006.01.02",
		"02.01.2006",
		"2006-01-02 15:04:05 MST",
		time.RFC1123,
		time.RFC1123Z,
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// CanonicalizeURL lowercases scheme and host and drops the fragment.
func CanonicalizeURL(u *url.URL) string {
	c := *u
	c.Scheme = strings.ToLower(c.Scheme)
	c.Host = strings.ToLower(c.Host)
	c.Fragment = ""
	c.RawFragment = ""
	return c.String()
}
