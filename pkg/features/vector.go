package features

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrVectorLength = errors.New("feature vector has wrong length")
	ErrVectorValue  = errors.New("feature vector has a non-finite value")
)

// Vector is the fixed-order numeric encoding of a URL.
type Vector []float64

// NewVector returns a vector with every slot set to Sentinel.
func NewVector() Vector {
	v := make(Vector, len(canonical))
	for i := range v {
		v[i] = Sentinel
	}
	return v
}

// Get returns the value of a named slot, or Sentinel for unknown names.
func (v Vector) Get(name string) float64 {
	i, ok := index[name]
	if !ok || i >= len(v) {
		return Sentinel
	}
	return v[i]
}

// Available reports whether the named slot holds a measured value.
func (v Vector) Available(name string) bool {
	return v.Get(name) != Sentinel
}

// Validate checks length and that every value is finite.
func (v Vector) Validate() error {
	if len(v) != len(canonical) {
		return fmt.Errorf("%w: got %d, want %d", ErrVectorLength, len(v), len(canonical))
	}
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w: slot %d (%s)", ErrVectorValue, i, canonical[i].Name)
		}
	}
	return nil
}

// Clone returns an independent copy.
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	copy(out, v)
	return out
}
