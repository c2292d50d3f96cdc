package features

// SchemaVersion is bumped whenever the canonical list changes shape.
const SchemaVersion = 1

// Sentinel marks a slot whose signal could not be determined.
const Sentinel = -1.0

// Group ties a feature to the check that produces it.
type Group string

const (
	GroupLexical  Group = "lexical"
	GroupProtocol Group = "protocol"
	GroupDNS      Group = "dns"
	GroupWhois    Group = "whois"
	GroupTLS      Group = "tls"
	GroupContent  Group = "content"
)

// 🌐 URL structure
const (
	URLLength            = "url_length"
	HostnameLength       = "hostname_length"
	HostDotCount         = "host_dot_count"
	HyphenCount          = "hyphen_count"
	AtSymbolCount        = "at_symbol_count"
	DoubleSlashCount     = "double_slash_count"
	IPLiteralHost        = "ip_literal_host"
	ShortenerHost        = "shortener_host"
	SuspiciousTokenCount = "suspicious_token_count"
	AbusedTLD            = "abused_tld"
	SubdomainCount       = "subdomain_count"
	DigitLetterRatio     = "digit_letter_ratio"
	HomographHost        = "homograph_host"
	RandomLookingHost    = "random_looking_host"
	EncodedCharCount     = "encoded_char_count"
)

// 🔒 Protocol
const (
	HTTPSScheme     = "https_scheme"
	NonStandardPort = "nonstandard_port"
)

// 🌎 DNS & registration
const (
	DNSResolvable = "dns_resolvable"
	DNSHasSPF     = "dns_has_spf"
	DomainAgeDays = "domain_age_days"
)

// 📜 Certificate
const (
	TLSChainValid        = "tls_chain_valid"
	TLSHostMatch         = "tls_host_match"
	TLSIssuerReliability = "tls_issuer_reliability"
)

// 📝 Page content
const (
	ExternalLinkRatio     = "external_link_ratio"
	PasswordForm          = "password_form"
	ExternalFormAction    = "external_form_action"
	IframePresent         = "iframe_present"
	FaviconExternal       = "favicon_external"
	ObfuscatedScriptCount = "obfuscated_script_count"
	RedirectedOffHost     = "redirected_off_host"
	RightClickDisabled    = "right_click_disabled"
	PopupWindow           = "popup_window"
	EmailInPage           = "email_in_page"
)

// Feature describes one slot of the vector.
type Feature struct {
	Name        string `json:"name"`
	Group       Group  `json:"group"`
	Description string `json:"description"`
}

// canonical is the slot order shared by extraction, datasets and the model.
// Append only; reordering invalidates every persisted model.
var canonical = []Feature{
	{URLLength, GroupLexical, "URL length in characters"},
	{HostnameLength, GroupLexical, "hostname length in characters"},
	{HostDotCount, GroupLexical, "dots in the hostname"},
	{HyphenCount, GroupLexical, "hyphens in the URL"},
	{AtSymbolCount, GroupLexical, "'@' characters in the URL"},
	{DoubleSlashCount, GroupLexical, "'//' sequences after the scheme"},
	{IPLiteralHost, GroupLexical, "host is an IP address"},
	{ShortenerHost, GroupLexical, "host is a known URL shortener"},
	{SuspiciousTokenCount, GroupLexical, "distinct phishing-bait tokens in the URL"},
	{AbusedTLD, GroupLexical, "TLD is frequently abused"},
	{SubdomainCount, GroupLexical, "labels left of the registrable domain"},
	{DigitLetterRatio, GroupLexical, "digits per letter in the hostname"},
	{HomographHost, GroupLexical, "hostname mixes Latin and other scripts"},
	{RandomLookingHost, GroupLexical, "hostname has a low vowel ratio"},
	{EncodedCharCount, GroupLexical, "percent-encoded bytes in the URL"},

	{HTTPSScheme, GroupProtocol, "scheme is https"},
	{NonStandardPort, GroupProtocol, "explicit non-default port"},

	{DNSResolvable, GroupDNS, "host has an A or AAAA record"},
	{DNSHasSPF, GroupDNS, "registrable domain publishes SPF"},

	{DomainAgeDays, GroupWhois, "days since domain registration"},

	{TLSChainValid, GroupTLS, "certificate chain verifies against system roots"},
	{TLSHostMatch, GroupTLS, "certificate covers the host"},
	{TLSIssuerReliability, GroupTLS, "issuer reliability score (0-2)"},

	{ExternalLinkRatio, GroupContent, "share of links pointing off-site"},
	{PasswordForm, GroupContent, "page has a password input"},
	{ExternalFormAction, GroupContent, "a form submits to another site"},
	{IframePresent, GroupContent, "page embeds an iframe"},
	{FaviconExternal, GroupContent, "favicon served from another site"},
	{ObfuscatedScriptCount, GroupContent, "inline scripts that look obfuscated"},
	{RedirectedOffHost, GroupContent, "fetch ended on another site"},
	{RightClickDisabled, GroupContent, "page suppresses the context menu"},
	{PopupWindow, GroupContent, "page opens popup windows"},
	{EmailInPage, GroupContent, "page text contains an email address"},
}

var index = func() map[string]int {
	m := make(map[string]int, len(canonical))
	for i, f := range canonical {
		m[f.Name] = i
	}
	return m
}()

// Count is the fixed vector length.
func Count() int { return len(canonical) }

// All returns a copy of the canonical feature list.
func All() []Feature {
	out := make([]Feature, len(canonical))
	copy(out, canonical)
	return out
}

// Names returns the feature names in slot order.
func Names() []string {
	out := make([]string, len(canonical))
	for i, f := range canonical {
		out[i] = f.Name
	}
	return out
}

// Index returns the slot of a feature name.
func Index(name string) (int, bool) {
	i, ok := index[name]
	return i, ok
}

// Lookup returns the definition of a feature name.
func Lookup(name string) (Feature, bool) {
	i, ok := index[name]
	if !ok {
		return Feature{}, false
	}
	return canonical[i], true
}

// InGroup returns the names of every feature in g, in slot order.
func InGroup(g Group) []string {
	var out []string
	for _, f := range canonical {
		if f.Group == g {
			out = append(out, f.Name)
		}
	}
	return out
}

// SameSchema reports whether names matches the canonical list exactly.
func SameSchema(names []string) bool {
	if len(names) != len(canonical) {
		return false
	}
	for i, n := range names {
		if canonical[i].Name != n {
			return false
		}
	}
	return true
}
