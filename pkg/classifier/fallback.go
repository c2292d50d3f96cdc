package classifier

import (
	"math"
	"sort"

	"github.com/csaibalakrishna/URL-DETECTOR/pkg/features"
)

// Contribution is one feature's share in a prediction.
type Contribution struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Weight float64 `json:"weight"`
}

type fallbackRule struct {
	name   string
	weight func(v float64) float64
}

func when(hit func(v float64) bool, w float64) func(float64) float64 {
	return func(v float64) float64 {
		if hit(v) {
			return w
		}
		return 0
	}
}

func is(x float64) func(float64) bool { return func(v float64) bool { return v == x } }
func atLeast(x float64) func(float64) bool { return func(v float64) bool { return v >= x } }
func below(x float64) func(float64) bool { return func(v float64) bool { return v < x } }
func above(x float64) func(float64) bool { return func(v float64) bool { return v > x } }

// fallbackRules score suspicious signals when no model is available.
var fallbackRules = []fallbackRule{
	{features.IPLiteralHost, when(is(1), 0.35)},
	{features.HTTPSScheme, when(is(0), 0.15)},
	{features.SuspiciousTokenCount, func(v float64) float64 { return math.Min(0.1*v, 0.2) }},
	{features.AtSymbolCount, when(atLeast(1), 0.25)},
	{features.DoubleSlashCount, when(atLeast(1), 0.15)},
	{features.ShortenerHost, when(is(1), 0.25)},
	{features.AbusedTLD, when(is(1), 0.2)},
	{features.URLLength, when(atLeast(75), 0.1)},
	{features.HyphenCount, when(atLeast(3), 0.05)},
	{features.SubdomainCount, when(atLeast(3), 0.1)},
	{features.HomographHost, when(is(1), 0.3)},
	{features.RandomLookingHost, when(is(1), 0.15)},
	{features.EncodedCharCount, when(atLeast(5), 0.05)},
	{features.NonStandardPort, when(is(1), 0.1)},
	{features.DNSResolvable, when(is(0), 0.3)},
	{features.DomainAgeDays, when(below(180), 0.25)},
	{features.TLSChainValid, when(is(0), 0.2)},
	{features.TLSHostMatch, when(is(0), 0.1)},
	{features.ExternalLinkRatio, when(above(0.5), 0.1)},
	{features.PasswordForm, when(is(1), 0.1)},
	{features.ExternalFormAction, when(is(1), 0.25)},
	{features.IframePresent, when(is(1), 0.05)},
	{features.FaviconExternal, when(is(1), 0.05)},
	{features.ObfuscatedScriptCount, when(atLeast(1), 0.1)},
	{features.RedirectedOffHost, when(is(1), 0.1)},
	{features.RightClickDisabled, when(is(1), 0.1)},
	{features.PopupWindow, when(is(1), 0.05)},
}

// FallbackScore is the rule-based phishing score in [0,1] and the rules that
// fired, heaviest first. Sentinel slots never fire. Over plain http the TLS
// slots are skipped since the missing scheme is already counted.
func FallbackScore(v features.Vector) (float64, []Contribution) {
	overHTTP := v.Available(features.HTTPSScheme) && v.Get(features.HTTPSScheme) == 0

	score := 0.0
	var fired []Contribution
	for _, rule := range fallbackRules {
		if !v.Available(rule.name) {
			continue
		}
		if overHTTP && (rule.name == features.TLSChainValid || rule.name == features.TLSHostMatch) {
			continue
		}
		value := v.Get(rule.name)
		if w := rule.weight(value); w > 0 {
			score += w
			fired = append(fired, Contribution{Name: rule.name, Value: value, Weight: w})
		}
	}

	sort.SliceStable(fired, func(i, j int) bool { return fired[i].Weight > fired[j].Weight })
	return math.Min(1, math.Max(0, score)), fired
}
