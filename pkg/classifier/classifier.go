// Package classifier scores feature vectors with a random forest loaded from
// a JSON artifact, or with a rule-based fallback when no usable model exists.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/csaibalakrishna/URL-DETECTOR/pkg/config"
	"github.com/csaibalakrishna/URL-DETECTOR/pkg/features"
	"github.com/csaibalakrishna/URL-DETECTOR/pkg/logger"
)

var ErrInvalidVector = errors.New("invalid feature vector")

type Label string

const (
	LabelLegitimate Label = "legitimate"
	LabelSuspicious Label = "suspicious"
	LabelPhishing   Label = "phishing"
	// LabelUnknown is used by callers that could not score at all.
	LabelUnknown Label = "unknown"
)

type Mode string

const (
	ModeModel    Mode = "random_forest"
	ModeFallback Mode = "rule_based"
)

// Thresholds map a phishing probability to a label. Both bounds are
// inclusive: p >= High is phishing, p >= Low is suspicious.
type Thresholds struct {
	Low  float64
	High float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{Low: 0.40, High: 0.70}
}

func (t Thresholds) Validate() error {
	if t.Low < 0 || t.High > 1 || t.Low > t.High {
		return fmt.Errorf("thresholds must satisfy 0 <= low <= high <= 1 (low=%v high=%v)", t.Low, t.High)
	}
	return nil
}

func (t Thresholds) Label(p float64) Label {
	switch {
	case p >= t.High:
		return LabelPhishing
	case p >= t.Low:
		return LabelSuspicious
	default:
		return LabelLegitimate
	}
}

type Prediction struct {
	Probability float64        `json:"probability"`
	Label       Label          `json:"label"`
	Confidence  float64        `json:"confidence"`
	Mode        Mode           `json:"mode"`
	Degraded    bool           `json:"degraded"`
	Reason      string         `json:"reason,omitempty"`
	TopFeatures []Contribution `json:"top_features,omitempty"`
}

const topFeatureCount = 5

// Classifier is immutable after construction and safe for concurrent use.
type Classifier struct {
	artifact   *Artifact
	thresholds Thresholds
	// reason is why the classifier runs on the fallback.
	reason string
	log    *logger.Logger
}

// New wraps a loaded artifact. A nil artifact gives a fallback-only
// classifier that reports reason as its degraded cause.
func New(a *Artifact, t Thresholds, reason string, log *logger.Logger) *Classifier {
	if log == nil {
		log = logger.Nop()
	}
	if a == nil && reason == "" {
		reason = ErrModelUnavailable.Error()
	}
	if a != nil {
		reason = ""
	}
	return &Classifier{artifact: a, thresholds: t, reason: reason, log: log.WithComponent("classifier")}
}

// Load builds a classifier from cfg. It never fails: a missing, corrupt or
// incompatible artifact leaves the classifier in fallback mode, unless
// TrainIfMissing is set, in which case a synthetic model is trained and
// saved once.
func Load(ctx context.Context, cfg config.ModelConfig, log *logger.Logger) *Classifier {
	if log == nil {
		log = logger.Nop()
	}
	t := Thresholds{Low: cfg.LowThreshold, High: cfg.HighThreshold}

	a, err := LoadArtifact(cfg.Path)
	if err == nil {
		log.Infow("Loaded model",
			"path", cfg.Path,
			"trees", len(a.Forest.Trees),
			"trained_at", a.TrainedAt,
			"accuracy", a.Metrics.Accuracy)
		return New(a, t, "", log)
	}
	log.Warnw("Model unavailable, using rule-based fallback", "path", cfg.Path, "error", err)

	if !cfg.TrainIfMissing {
		return New(nil, t, err.Error(), log)
	}

	log.Infow("Training synthetic model", "samples", cfg.SyntheticSamples, "path", cfg.Path)
	X, y := Generate(cfg.SyntheticSamples, cfg.Seed)
	trained, trainErr := Train(ctx, X, y, ParamsFrom(cfg), log)
	if trainErr != nil {
		log.Errorw("Training failed", "error", trainErr)
		return New(nil, t, fmt.Sprintf("%v; training failed: %v", err, trainErr), log)
	}
	if saveErr := SaveArtifact(cfg.Path, trained); saveErr != nil {
		log.Warnw("Could not persist trained model", "path", cfg.Path, "error", saveErr)
	}
	return New(trained, t, "", log)
}

func ParamsFrom(cfg config.ModelConfig) ForestParams {
	return ForestParams{
		Trees:           cfg.Trees,
		MaxDepth:        cfg.MaxDepth,
		MinSamplesSplit: cfg.MinSamplesSplit,
		Seed:            cfg.Seed,
	}
}

var shared struct {
	once sync.Once
	c    *Classifier
}

// Shared returns the process-wide classifier, loading it on first use.
// Later calls ignore their arguments.
func Shared(ctx context.Context, cfg config.ModelConfig, log *logger.Logger) *Classifier {
	shared.once.Do(func() {
		shared.c = Load(ctx, cfg, log)
	})
	return shared.c
}

func (c *Classifier) Mode() Mode {
	if c.artifact == nil {
		return ModeFallback
	}
	return ModeModel
}

// Degraded reports whether every prediction comes from the fallback.
func (c *Classifier) Degraded() bool { return c.artifact == nil }

func (c *Classifier) Reason() string { return c.reason }

func (c *Classifier) Thresholds() Thresholds { return c.thresholds }

// Artifact returns the loaded model, or nil in fallback mode.
func (c *Classifier) Artifact() *Artifact { return c.artifact }

// FeatureImportance maps feature names to the forest's impurity-based
// importance. It is empty in fallback mode.
func (c *Classifier) FeatureImportance() map[string]float64 {
	out := map[string]float64{}
	if c.artifact == nil {
		return out
	}
	for i, name := range c.artifact.FeatureNames {
		out[name] = c.artifact.Forest.Importance[i]
	}
	return out
}

// Predict validates v and scores it. Only an invalid vector is an error.
func (c *Classifier) Predict(v features.Vector) (Prediction, error) {
	if err := v.Validate(); err != nil {
		return Prediction{}, fmt.Errorf("%w: %w", ErrInvalidVector, err)
	}

	if c.artifact == nil {
		return c.fallback(v, c.reason), nil
	}

	p, err := c.score(v)
	if err != nil {
		c.log.Errorw("Model scoring failed, using rule-based fallback", "error", err)
		return c.fallback(v, err.Error()), nil
	}

	return Prediction{
		Probability: p,
		Label:       c.thresholds.Label(p),
		Confidence:  math.Max(p, 1-p),
		Mode:        ModeModel,
		TopFeatures: c.topByImportance(v),
	}, nil
}

func (c *Classifier) score(v features.Vector) (p float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model panicked: %v", r)
		}
	}()
	p = c.artifact.Forest.PredictProba(v)
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, fmt.Errorf("model returned probability %v", p)
	}
	return p, nil
}

func (c *Classifier) fallback(v features.Vector, reason string) Prediction {
	p, fired := FallbackScore(v)
	if len(fired) > topFeatureCount {
		fired = fired[:topFeatureCount]
	}
	return Prediction{
		Probability: p,
		Label:       c.thresholds.Label(p),
		Confidence:  math.Max(p, 1-p),
		Mode:        ModeFallback,
		Degraded:    true,
		Reason:      reason,
		TopFeatures: fired,
	}
}

// topByImportance lists the measured slots the forest relies on most.
func (c *Classifier) topByImportance(v features.Vector) []Contribution {
	imp := c.artifact.Forest.Importance
	var out []Contribution
	for i, name := range c.artifact.FeatureNames {
		if v[i] == features.Sentinel || imp[i] == 0 {
			continue
		}
		out = append(out, Contribution{Name: name, Value: v[i], Weight: imp[i]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
	if len(out) > topFeatureCount {
		out = out[:topFeatureCount]
	}
	return out
}
