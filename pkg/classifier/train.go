package classifier

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/csaibalakrishna/URL-DETECTOR/pkg/features"
	"github.com/csaibalakrishna/URL-DETECTOR/pkg/logger"
)

// Metrics are computed on the held-out split at a 0.5 cut.
type Metrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	TrainSize int     `json:"train_size"`
	TestSize  int     `json:"test_size"`
}

// StratifiedSplit returns train and test row indices, keeping the class
// ratio of y in both parts.
func StratifiedSplit(y []int, testFraction float64, seed int64) (train, test []int) {
	r := rand.New(rand.NewSource(seed))
	byClass := map[int][]int{}
	var classes []int
	for i, label := range y {
		if _, seen := byClass[label]; !seen {
			classes = append(classes, label)
		}
		byClass[label] = append(byClass[label], i)
	}

	for _, c := range classes {
		rows := byClass[c]
		r.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		nTest := int(float64(len(rows))*testFraction + 0.5)
		if nTest >= len(rows) {
			nTest = len(rows) - 1
		}
		test = append(test, rows[:nTest]...)
		train = append(train, rows[nTest:]...)
	}
	return train, test
}

func evaluate(f *Forest, X []features.Vector, y []int, rows []int) Metrics {
	var tp, fp, tn, fn int
	for _, i := range rows {
		predicted := f.PredictProba(X[i]) >= 0.5
		switch {
		case predicted && y[i] == ClassPhishing:
			tp++
		case predicted:
			fp++
		case y[i] == ClassPhishing:
			fn++
		default:
			tn++
		}
	}

	m := Metrics{TestSize: len(rows)}
	if len(rows) > 0 {
		m.Accuracy = float64(tp+tn) / float64(len(rows))
	}
	if tp+fp > 0 {
		m.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		m.Recall = float64(tp) / float64(tp+fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}

// Train fits a forest on a stratified 80/20 split of the samples and
// returns an artifact carrying the held-out metrics.
func Train(ctx context.Context, X []features.Vector, y []int, params ForestParams, log *logger.Logger) (*Artifact, error) {
	if log == nil {
		log = logger.Nop()
	}
	if len(X) != len(y) {
		return nil, fmt.Errorf("%d vectors but %d labels", len(X), len(y))
	}

	var legit, phish int
	for i, v := range X {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		switch y[i] {
		case ClassLegitimate:
			legit++
		case ClassPhishing:
			phish++
		default:
			return nil, fmt.Errorf("sample %d: unknown label %d", i, y[i])
		}
	}
	if legit < 2 || phish < 2 {
		return nil, fmt.Errorf("need at least two samples of each class (legitimate=%d phishing=%d)", legit, phish)
	}

	trainRows, testRows := StratifiedSplit(y, 0.2, params.Seed)

	trainX := make([][]float64, len(trainRows))
	trainY := make([]int, len(trainRows))
	for k, i := range trainRows {
		trainX[k] = X[i]
		trainY[k] = y[i]
	}

	start := time.Now()
	forest, err := FitForest(ctx, trainX, trainY, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fit forest: %w", err)
	}

	metrics := evaluate(forest, X, y, testRows)
	metrics.TrainSize = len(trainRows)

	log.Infow("Model trained",
		"trees", params.Trees,
		"train_size", metrics.TrainSize,
		"test_size", metrics.TestSize,
		"accuracy", metrics.Accuracy,
		"precision", metrics.Precision,
		"recall", metrics.Recall,
		"duration", time.Since(start))

	return &Artifact{
		SchemaVersion: features.SchemaVersion,
		FeatureNames:  features.Names(),
		TrainedAt:     time.Now().UTC(),
		Params:        params,
		Metrics:       metrics,
		Forest:        forest,
	}, nil
}
