// Package analyzer is the public entry point: it validates a URL, extracts
// its features, scores them and assembles the result shown to users.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/csaibalakrishna/URL-DETECTOR/pkg/classifier"
	"github.com/csaibalakrishna/URL-DETECTOR/pkg/extractor"
	"github.com/csaibalakrishna/URL-DETECTOR/pkg/features"
	"github.com/csaibalakrishna/URL-DETECTOR/pkg/logger"
	"github.com/google/uuid"
)

// FeatureExtractor is satisfied by *extractor.Extractor.
type FeatureExtractor interface {
	Run(ctx context.Context, u *url.URL) extractor.Extraction
}

// Scorer is satisfied by *classifier.Classifier.
type Scorer interface {
	Predict(v features.Vector) (classifier.Prediction, error)
}

type Probabilities struct {
	Legitimate float64 `json:"legitimate"`
	Phishing   float64 `json:"phishing"`
}

type Result struct {
	ID              string                    `json:"id"`
	URL             string                    `json:"url"`
	NormalizedURL   string                    `json:"normalized_url"`
	Label           classifier.Label          `json:"label"`
	RiskScore       int                       `json:"risk_score"`
	Probability     float64                   `json:"probability"`
	Probabilities   Probabilities             `json:"probabilities"`
	Confidence      float64                   `json:"confidence"`
	RiskLevel       string                    `json:"risk_level"`
	Explanation     features.Explanation      `json:"explanation"`
	TopFeatures     []classifier.Contribution `json:"top_features"`
	DegradedMode    bool                      `json:"degraded_mode"`
	DegradedReasons []string                  `json:"degraded_reasons,omitempty"`
	Model           classifier.Mode           `json:"model"`
	AnalyzedAt      time.Time                 `json:"analyzed_at"`
	DurationMS      int64                     `json:"duration_ms"`
	Error           string                    `json:"error,omitempty"`
}

// RiskLevel buckets a phishing probability for display.
func RiskLevel(p float64) string {
	switch {
	case p >= 0.8:
		return "High"
	case p >= 0.6:
		return "Medium-High"
	case p >= 0.4:
		return "Medium"
	case p >= 0.2:
		return "Low-Medium"
	default:
		return "Low"
	}
}

type Analyzer struct {
	extractor  FeatureExtractor
	classifier Scorer
	log        *logger.Logger
	now        func() time.Time
}

func New(ex FeatureExtractor, sc Scorer, log *logger.Logger) *Analyzer {
	if log == nil {
		log = logger.Nop()
	}
	return &Analyzer{
		extractor:  ex,
		classifier: sc,
		log:        log.WithComponent("analyzer"),
		now:        time.Now,
	}
}

// Analyze returns a result for every syntactically valid URL. The only
// error it returns is *ValidationError; internal failures become a result
// labeled unknown with degraded mode set.
func (a *Analyzer) Analyze(ctx context.Context, raw string) (res *Result, err error) {
	start := a.now()

	u, err := ParseURL(raw)
	if err != nil {
		return nil, err
	}

	res = &Result{
		ID:            uuid.NewString(),
		URL:           strings.TrimSpace(raw),
		NormalizedURL: u.String(),
		AnalyzedAt:    start.UTC(),
	}
	log := a.log.WithFields("analysis_id", res.ID, "url", res.NormalizedURL)

	stage := "feature extraction"
	defer func() {
		if r := recover(); r != nil {
			ie := &InternalError{Stage: stage, Cause: fmt.Errorf("panic: %v", r)}
			log.Errorw("Analysis failed", "error", ie, "stack", string(debug.Stack()))
			a.markUnknown(res, ie)
			res.DurationMS = a.now().Sub(start).Milliseconds()
			err = nil
		}
	}()

	x := a.extractor.Run(ctx, u)
	res.Explanation = x.Explanation

	stage = "classification"
	pred, perr := a.classifier.Predict(x.Vector)
	if perr != nil {
		ie := &InternalError{Stage: stage, Cause: perr}
		log.Errorw("Analysis failed", "error", ie)
		a.markUnknown(res, ie)
		res.DurationMS = a.now().Sub(start).Milliseconds()
		return res, nil
	}

	p := pred.Probability
	res.Label = pred.Label
	res.Probability = p
	res.RiskScore = int(math.Round(p * 100))
	res.Probabilities = Probabilities{Legitimate: 1 - p, Phishing: p}
	res.Confidence = pred.Confidence
	res.RiskLevel = RiskLevel(p)
	res.TopFeatures = pred.TopFeatures
	res.Model = pred.Mode

	if pred.Degraded {
		res.DegradedReasons = append(res.DegradedReasons, "model unavailable, rule-based scoring: "+pred.Reason)
	}
	if x.NetworkDown() {
		res.DegradedReasons = append(res.DegradedReasons, networkReason(x))
	}
	res.DegradedMode = len(res.DegradedReasons) > 0
	res.DurationMS = a.now().Sub(start).Milliseconds()

	log.Infow("URL analyzed",
		"label", res.Label,
		"probability", res.Probability,
		"model", res.Model,
		"degraded", res.DegradedMode,
		"unavailable_features", len(res.Explanation.Unavailable()),
		"duration_ms", res.DurationMS)

	return res, nil
}

func networkReason(x extractor.Extraction) string {
	if len(x.Attempted) == 0 {
		return "network probes disabled, lexical signals only"
	}
	failed := make([]string, 0, len(x.Failed))
	for name := range x.Failed {
		failed = append(failed, name)
	}
	sort.Strings(failed)
	return fmt.Sprintf("network probes unavailable (%s), lexical signals only", strings.Join(failed, ", "))
}

func (a *Analyzer) markUnknown(res *Result, ie *InternalError) {
	res.Label = classifier.LabelUnknown
	res.RiskScore = 0
	res.Probability = 0
	res.Probabilities = Probabilities{}
	res.Confidence = 0
	res.RiskLevel = "Unknown"
	res.TopFeatures = nil
	res.DegradedMode = true
	res.DegradedReasons = []string{ie.Error()}
	res.Error = "unable to analyze this URL"
}

// IsValidationError reports whether err rejects the input itself.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
