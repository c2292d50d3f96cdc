package classifier

import (
	"testing"

	"github.com/csaibalakrishna/URL-DETECTOR/pkg/features"
	"github.com/stretchr/testify/assert"
)

func TestFallbackRulesUseKnownFeatures(t *testing.T) {
	for _, r := range fallbackRules {
		_, ok := features.Index(r.name)
		assert.True(t, ok, r.name)
	}
}

func TestFallbackScore(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]float64
		want   float64
	}{
		{name: "nothing measured", values: nil, want: 0},
		{
			name:   "clean https",
			values: map[string]float64{features.HTTPSScheme: 1, features.TLSChainValid: 1, features.DomainAgeDays: 4000},
			want:   0,
		},
		{
			name:   "tokens are capped",
			values: map[string]float64{features.SuspiciousTokenCount: 5},
			want:   0.2,
		},
		{
			name:   "tls ignored over http",
			values: map[string]float64{features.HTTPSScheme: 0, features.TLSChainValid: 0, features.TLSHostMatch: 0},
			want:   0.15,
		},
		{
			name:   "invalid chain over https",
			values: map[string]float64{features.HTTPSScheme: 1, features.TLSChainValid: 0},
			want:   0.2,
		},
		{
			name: "clipped to one",
			values: map[string]float64{
				features.IPLiteralHost: 1, features.AtSymbolCount: 2, features.ShortenerHost: 1,
				features.HomographHost: 1, features.DNSResolvable: 0,
			},
			want: 1,
		},
		{
			name:   "sentinel never fires",
			values: map[string]float64{features.DNSResolvable: features.Sentinel, features.DomainAgeDays: features.Sentinel},
			want:   0,
		},
		{
			name:   "young domain",
			values: map[string]float64{features.DomainAgeDays: 12},
			want:   0.25,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, fired := FallbackScore(vectorWith(tt.values))
			assert.InDelta(t, tt.want, got, 1e-9)
			if tt.want == 0 {
				assert.Empty(t, fired)
			}
		})
	}
}

func TestFallbackContributionsAreSorted(t *testing.T) {
	_, fired := FallbackScore(privateLoginVector())
	for i := 1; i < len(fired); i++ {
		assert.GreaterOrEqual(t, fired[i-1].Weight, fired[i].Weight)
	}
}
