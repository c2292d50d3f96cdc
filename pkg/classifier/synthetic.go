package classifier

import (
	"math"
	"math/rand"

	"github.com/csaibalakrishna/URL-DETECTOR/pkg/features"
)

// Class labels used by training data and the forest.
const (
	ClassLegitimate = 0
	ClassPhishing   = 1
)

type sampler func(r *rand.Rand) float64

func bern(p float64) sampler {
	return func(r *rand.Rand) float64 {
		if r.Float64() < p {
			return 1
		}
		return 0
	}
}

// choice draws values[i] with probability weights[i]; weights sum to 1.
func choice(values []float64, weights []float64) sampler {
	return func(r *rand.Rand) float64 {
		u := r.Float64()
		acc := 0.0
		for i, w := range weights {
			acc += w
			if u < acc {
				return values[i]
			}
		}
		return values[len(values)-1]
	}
}

func uniform(lo, hi float64) sampler {
	return func(r *rand.Rand) float64 { return lo + r.Float64()*(hi-lo) }
}

func normal(mean, sd, lo, hi float64) sampler {
	return func(r *rand.Rand) float64 {
		return math.Min(hi, math.Max(lo, mean+sd*r.NormFloat64()))
	}
}

func count(mean, sd, lo float64) sampler {
	return func(r *rand.Rand) float64 {
		return math.Max(lo, math.Round(mean+sd*r.NormFloat64()))
	}
}

func mix(p float64, a, b sampler) sampler {
	return func(r *rand.Rand) float64 {
		if r.Float64() < p {
			return a(r)
		}
		return b(r)
	}
}

type profile struct {
	legit, phish sampler
}

// profiles holds the class-conditional distribution of every feature.
var profiles = map[string]profile{
	features.URLLength:             {count(45, 15, 12), count(85, 35, 15)},
	features.HostnameLength:        {count(14, 5, 4), count(26, 10, 4)},
	features.HostDotCount:          {choice([]float64{1, 2, 3}, []float64{0.55, 0.4, 0.05}), choice([]float64{1, 2, 3, 4, 5}, []float64{0.25, 0.3, 0.25, 0.1, 0.1})},
	features.HyphenCount:           {choice([]float64{0, 1, 2}, []float64{0.7, 0.2, 0.1}), choice([]float64{0, 1, 2, 3, 4}, []float64{0.35, 0.25, 0.2, 0.1, 0.1})},
	features.AtSymbolCount:         {bern(0.005), bern(0.15)},
	features.DoubleSlashCount:      {bern(0.02), bern(0.2)},
	features.IPLiteralHost:         {bern(0.01), bern(0.25)},
	features.ShortenerHost:         {bern(0.01), bern(0.12)},
	features.SuspiciousTokenCount:  {choice([]float64{0, 1, 2}, []float64{0.8, 0.17, 0.03}), choice([]float64{0, 1, 2, 3}, []float64{0.2, 0.35, 0.3, 0.15})},
	features.AbusedTLD:             {bern(0.02), bern(0.35)},
	features.SubdomainCount:        {choice([]float64{0, 1, 2}, []float64{0.4, 0.5, 0.1}), choice([]float64{0, 1, 2, 3}, []float64{0.2, 0.3, 0.25, 0.25})},
	features.DigitLetterRatio:      {uniform(0, 0.08), normal(0.25, 0.2, 0, 1.5)},
	features.HomographHost:         {bern(0.002), bern(0.05)},
	features.RandomLookingHost:     {bern(0.03), bern(0.2)},
	features.EncodedCharCount:      {choice([]float64{0, 1, 3}, []float64{0.9, 0.05, 0.05}), choice([]float64{0, 2, 6}, []float64{0.6, 0.2, 0.2})},
	features.HTTPSScheme:           {bern(0.92), bern(0.45)},
	features.NonStandardPort:       {bern(0.01), bern(0.08)},
	features.DNSResolvable:         {bern(0.99), bern(0.75)},
	features.DNSHasSPF:             {bern(0.85), bern(0.3)},
	features.DomainAgeDays:         {mix(0.93, uniform(730, 9500), uniform(30, 730)), mix(0.8, uniform(0, 180), uniform(180, 1500))},
	features.TLSChainValid:         {bern(0.97), bern(0.6)},
	features.TLSHostMatch:          {bern(0.97), bern(0.55)},
	features.TLSIssuerReliability:  {choice([]float64{2, 1, 0}, []float64{0.7, 0.28, 0.02}), choice([]float64{0, 1, 2}, []float64{0.35, 0.6, 0.05})},
	features.ExternalLinkRatio:     {normal(0.2, 0.12, 0, 1), normal(0.6, 0.2, 0, 1)},
	features.PasswordForm:          {bern(0.1), bern(0.6)},
	features.ExternalFormAction:    {bern(0.02), bern(0.4)},
	features.IframePresent:         {bern(0.15), bern(0.4)},
	features.FaviconExternal:       {bern(0.05), bern(0.5)},
	features.ObfuscatedScriptCount: {choice([]float64{0, 1}, []float64{0.9, 0.1}), choice([]float64{0, 1, 2}, []float64{0.5, 0.3, 0.2})},
	features.RedirectedOffHost:     {bern(0.05), bern(0.3)},
	features.RightClickDisabled:    {bern(0.01), bern(0.25)},
	features.PopupWindow:           {bern(0.05), bern(0.3)},
	features.EmailInPage:           {bern(0.5), bern(0.3)},
}

// outageRates is the chance a whole probe group comes back unavailable,
// per class. Phishing hosts are short-lived and fail lookups more often.
var outageRates = map[features.Group][2]float64{
	features.GroupDNS:     {0.03, 0.1},
	features.GroupWhois:   {0.15, 0.3},
	features.GroupTLS:     {0.03, 0.1},
	features.GroupContent: {0.15, 0.35},
}

var networkGroups = []features.Group{features.GroupDNS, features.GroupWhois, features.GroupTLS, features.GroupContent}

// Generate draws n labeled vectors, half of each class, from the
// class-conditional profiles. Group outages inject the sentinel the same way
// the extractor does, and IP-literal or plain-http samples get the slot
// values the extractor would produce for them.
func Generate(n int, seed int64) ([]features.Vector, []int) {
	r := rand.New(rand.NewSource(seed))
	X := make([]features.Vector, 0, n)
	y := make([]int, 0, n)

	nLegit := n / 2
	for i := 0; i < n; i++ {
		class := ClassPhishing
		if i < nLegit {
			class = ClassLegitimate
		}
		X = append(X, sampleVector(r, class))
		y = append(y, class)
	}

	r.Shuffle(len(X), func(i, j int) {
		X[i], X[j] = X[j], X[i]
		y[i], y[j] = y[j], y[i]
	})
	return X, y
}

func sampleVector(r *rand.Rand, class int) features.Vector {
	v := features.NewVector()
	for _, f := range features.All() {
		i, _ := features.Index(f.Name)
		p := profiles[f.Name]
		if class == ClassLegitimate {
			v[i] = p.legit(r)
		} else {
			v[i] = p.phish(r)
		}
	}

	set := func(name string, value float64) {
		i, _ := features.Index(name)
		v[i] = value
	}
	setGroup := func(g features.Group, value float64) {
		for _, name := range features.InGroup(g) {
			set(name, value)
		}
	}

	for _, g := range networkGroups {
		if r.Float64() < outageRates[g][class] {
			setGroup(g, features.Sentinel)
		}
	}

	if v.Get(features.IPLiteralHost) == 1 {
		set(features.HostDotCount, 3)
		set(features.SubdomainCount, 0)
		set(features.RandomLookingHost, 0)
		set(features.AbusedTLD, 0)
		set(features.HomographHost, 0)
		setGroup(features.GroupDNS, features.Sentinel)
		setGroup(features.GroupWhois, features.Sentinel)
	}
	if v.Get(features.HTTPSScheme) == 0 {
		setGroup(features.GroupTLS, 0)
	}
	return v
}
