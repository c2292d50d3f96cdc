package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/csaibalakrishna/URL-DETECTOR/pkg/features"
)

var (
	// ErrModelUnavailable covers a missing, unreadable or corrupt artifact.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrIncompatibleModel is an artifact trained on a different feature list.
	ErrIncompatibleModel = fmt.Errorf("%w: incompatible feature schema", ErrModelUnavailable)
)

// Artifact is the persisted model. FeatureNames records the canonical list
// the forest was trained on.
type Artifact struct {
	SchemaVersion int          `json:"schema_version"`
	FeatureNames  []string     `json:"feature_names"`
	TrainedAt     time.Time    `json:"trained_at"`
	Params        ForestParams `json:"params"`
	Metrics       Metrics      `json:"metrics"`
	Forest        *Forest      `json:"forest"`
}

// Compatible reports whether the artifact can score vectors built from the
// current canonical feature list.
func (a *Artifact) Compatible() error {
	if !features.SameSchema(a.FeatureNames) {
		return fmt.Errorf("%w: artifact has %d features, current list has %d",
			ErrIncompatibleModel, len(a.FeatureNames), features.Count())
	}
	if a.Forest == nil {
		return fmt.Errorf("%w: artifact has no forest", ErrModelUnavailable)
	}
	if a.Forest.NumFeatures != features.Count() {
		return fmt.Errorf("%w: forest expects %d features", ErrIncompatibleModel, a.Forest.NumFeatures)
	}
	if err := a.Forest.check(); err != nil {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	return nil
}

// SaveArtifact writes the artifact next to path and renames it into place,
// so readers never see a partial file.
func SaveArtifact(path string, a *Artifact) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	enc := json.NewEncoder(tmp)
	if err := enc.Encode(a); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode model: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync model file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close model file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move model into place: %w", err)
	}
	return nil
}

// LoadArtifact reads and checks an artifact. Every failure wraps
// ErrModelUnavailable; schema mismatches also wrap ErrIncompatibleModel.
func LoadArtifact(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: no model at %s", ErrModelUnavailable, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	defer f.Close()

	var a Artifact
	if err := json.NewDecoder(f).Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: corrupt model file %s: %v", ErrModelUnavailable, path, err)
	}
	if err := a.Compatible(); err != nil {
		return nil, err
	}
	return &a, nil
}
