package classifier

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/csaibalakrishna/URL-DETECTOR/pkg/config"
	"github.com/csaibalakrishna/URL-DETECTOR/pkg/features"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vectorWith(values map[string]float64) features.Vector {
	v := features.NewVector()
	for name, x := range values {
		i, ok := features.Index(name)
		if !ok {
			panic("unknown feature " + name)
		}
		v[i] = x
	}
	return v
}

// wikipediaVector is what the extractor yields for https://www.wikipedia.org
// with healthy probes.
func wikipediaVector() features.Vector {
	return vectorWith(map[string]float64{
		features.URLLength: 25, features.HostnameLength: 17, features.HostDotCount: 2,
		features.HyphenCount: 0, features.AtSymbolCount: 0, features.DoubleSlashCount: 0,
		features.IPLiteralHost: 0, features.ShortenerHost: 0, features.SuspiciousTokenCount: 0,
		features.AbusedTLD: 0, features.SubdomainCount: 1, features.DigitLetterRatio: 0,
		features.HomographHost: 0, features.RandomLookingHost: 0, features.EncodedCharCount: 0,
		features.HTTPSScheme: 1, features.NonStandardPort: 0,
		features.DNSResolvable: 1, features.DNSHasSPF: 1, features.DomainAgeDays: 8900,
		features.TLSChainValid: 1, features.TLSHostMatch: 1, features.TLSIssuerReliability: 2,
		features.ExternalLinkRatio: 0.2, features.PasswordForm: 0, features.ExternalFormAction: 0,
		features.IframePresent: 0, features.FaviconExternal: 0, features.ObfuscatedScriptCount: 0,
		features.RedirectedOffHost: 0, features.RightClickDisabled: 0, features.PopupWindow: 0,
		features.EmailInPage: 0,
	})
}

// privateLoginVector is http://192.168.1.1/login.php with the fetch blocked.
func privateLoginVector() features.Vector {
	return vectorWith(map[string]float64{
		features.URLLength: 28, features.HostnameLength: 11, features.HostDotCount: 3,
		features.HyphenCount: 0, features.AtSymbolCount: 0, features.DoubleSlashCount: 0,
		features.IPLiteralHost: 1, features.ShortenerHost: 0, features.SuspiciousTokenCount: 1,
		features.AbusedTLD: 0, features.SubdomainCount: 0, features.DigitLetterRatio: 8,
		features.HomographHost: 0, features.RandomLookingHost: 0, features.EncodedCharCount: 0,
		features.HTTPSScheme: 0, features.NonStandardPort: 0,
		features.TLSChainValid: 0, features.TLSHostMatch: 0, features.TLSIssuerReliability: 0,
	})
}

func TestThresholdBoundariesAreInclusive(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		p    float64
		want Label
	}{
		{0, LabelLegitimate},
		{0.3999, LabelLegitimate},
		{0.40, LabelSuspicious},
		{0.6999, LabelSuspicious},
		{0.70, LabelPhishing},
		{1, LabelPhishing},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, th.Label(tt.p), "p=%v", tt.p)
	}
}

func TestThresholdsValidate(t *testing.T) {
	assert.NoError(t, Thresholds{Low: 0.4, High: 0.7}.Validate())
	assert.NoError(t, Thresholds{Low: 0.5, High: 0.5}.Validate())
	assert.Error(t, Thresholds{Low: 0.8, High: 0.7}.Validate())
	assert.Error(t, Thresholds{Low: -0.1, High: 0.7}.Validate())
	assert.Error(t, Thresholds{Low: 0.1, High: 1.5}.Validate())
}

func TestPredictRejectsInvalidVectors(t *testing.T) {
	c := New(trainedArtifact(t), DefaultThresholds(), "", nil)

	nan := features.NewVector()
	nan[0] = math.NaN()

	for name, v := range map[string]features.Vector{
		"empty": {},
		"short": {1, 2, 3},
		"nan":   nan,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := c.Predict(v)
			assert.ErrorIs(t, err, ErrInvalidVector)
		})
	}
}

func TestPredictWithModel(t *testing.T) {
	c := New(trainedArtifact(t), DefaultThresholds(), "", nil)
	require.False(t, c.Degraded())
	assert.Equal(t, ModeModel, c.Mode())

	legit, err := c.Predict(wikipediaVector())
	require.NoError(t, err)
	assert.Equal(t, LabelLegitimate, legit.Label, "p=%v", legit.Probability)
	assert.False(t, legit.Degraded)
	assert.Equal(t, ModeModel, legit.Mode)
	assert.InDelta(t, math.Max(legit.Probability, 1-legit.Probability), legit.Confidence, 1e-12)
	assert.NotEmpty(t, legit.TopFeatures)
	assert.LessOrEqual(t, len(legit.TopFeatures), topFeatureCount)

	risky, err := c.Predict(privateLoginVector())
	require.NoError(t, err)
	assert.NotEqual(t, LabelLegitimate, risky.Label, "p=%v", risky.Probability)
}

func TestPredictFallbackWithoutModel(t *testing.T) {
	c := New(nil, DefaultThresholds(), "no model at x.json", nil)
	require.True(t, c.Degraded())
	assert.Equal(t, ModeFallback, c.Mode())
	assert.Empty(t, c.FeatureImportance())

	legit, err := c.Predict(wikipediaVector())
	require.NoError(t, err)
	assert.Equal(t, LabelLegitimate, legit.Label)
	assert.True(t, legit.Degraded)
	assert.Equal(t, "no model at x.json", legit.Reason)

	risky, err := c.Predict(privateLoginVector())
	require.NoError(t, err)
	assert.NotEqual(t, LabelLegitimate, risky.Label)
	assert.Equal(t, features.IPLiteralHost, risky.TopFeatures[0].Name)
}

func TestPredictRecoversModelPanic(t *testing.T) {
	broken := &Artifact{
		FeatureNames: features.Names(),
		Forest: &Forest{
			NumFeatures: features.Count(),
			Importance:  make([]float64, features.Count()),
			Trees: []Tree{{Nodes: []Node{
				{Feature: 999, Left: 1, Right: 2},
				{Leaf: true, Prob: 0},
				{Leaf: true, Prob: 1},
			}}},
		},
	}
	c := New(broken, DefaultThresholds(), "", nil)

	p, err := c.Predict(wikipediaVector())
	require.NoError(t, err)
	assert.True(t, p.Degraded)
	assert.Equal(t, ModeFallback, p.Mode)
	assert.Contains(t, p.Reason, "panicked")
}

func TestFeatureImportance(t *testing.T) {
	c := New(trainedArtifact(t), DefaultThresholds(), "", nil)
	imp := c.FeatureImportance()

	require.Len(t, imp, features.Count())
	total := 0.0
	for _, v := range imp {
		total += v
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func testModelConfig(path string) config.ModelConfig {
	cfg := config.Default().Model
	cfg.Path = path
	cfg.Trees = 10
	cfg.MaxDepth = 6
	cfg.SyntheticSamples = 600
	return cfg
}

func TestLoad(t *testing.T) {
	t.Run("missing artifact falls back", func(t *testing.T) {
		c := Load(context.Background(), testModelConfig(filepath.Join(t.TempDir(), "model.json")), nil)
		assert.True(t, c.Degraded())
		assert.Contains(t, c.Reason(), "no model")
	})

	t.Run("missing artifact is trained when asked", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "model.json")
		cfg := testModelConfig(path)
		cfg.TrainIfMissing = true

		c := Load(context.Background(), cfg, nil)
		require.False(t, c.Degraded())
		assert.FileExists(t, path)

		again := Load(context.Background(), testModelConfig(path), nil)
		assert.False(t, again.Degraded())
	})

	t.Run("saved artifact is loaded", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "model.json")
		require.NoError(t, SaveArtifact(path, trainedArtifact(t)))

		c := Load(context.Background(), testModelConfig(path), nil)
		assert.False(t, c.Degraded())
		assert.Equal(t, ModeModel, c.Mode())
	})
}
