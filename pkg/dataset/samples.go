package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/csaibalakrishna/URL-DETECTOR/pkg/features"
)

// Samples is a loaded feature table ready for training.
type Samples struct {
	URLs   []string
	X      []features.Vector
	Labels []int
}

func (s *Samples) Len() int { return len(s.X) }

// LoadSamples reads a feature table. Columns are matched by canonical name,
// so column order does not matter and extra columns are ignored, but a file
// missing any canonical feature or the label column is rejected.
func LoadSamples(path string) (*Samples, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer file.Close()
	return ReadSamples(file)
}

// ReadSamples is LoadSamples over an arbitrary reader.
func ReadSamples(r io.Reader) (*Samples, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("could not read header row: %w", err)
	}
	required := append(features.Names(), "label")
	colIndex, err := columns(header, required...)
	if err != nil {
		return nil, err
	}
	urlCol, hasURL := colIndex["url"]

	s := &Samples{}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV record: %w", err)
		}

		v := features.NewVector()
		for i, name := range features.Names() {
			raw := field(record, colIndex[name])
			if raw == "" {
				continue
			}
			x, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: column %s: %w", line, name, err)
			}
			v[i] = x
		}
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		label, err := ParseLabel(field(record, colIndex["label"]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		if hasURL {
			s.URLs = append(s.URLs, field(record, urlCol))
		} else {
			s.URLs = append(s.URLs, "")
		}
		s.X = append(s.X, v)
		s.Labels = append(s.Labels, label)
	}

	if s.Len() == 0 {
		return nil, errors.New("dataset contains no samples")
	}
	return s, nil
}
