package classifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// separable has one informative column (0) and one noise column (1).
func separable() ([][]float64, []int) {
	var X [][]float64
	var y []int
	for i := 0; i < 200; i++ {
		label := i % 2
		X = append(X, []float64{float64(label)*10 + float64(i%5), float64(i % 7)})
		y = append(y, label)
	}
	return X, y
}

func TestFitForestLearnsSeparableData(t *testing.T) {
	X, y := separable()
	f, err := FitForest(context.Background(), X, y, ForestParams{Trees: 15, MaxDepth: 4, MinSamplesSplit: 2, Seed: 1})
	require.NoError(t, err)
	require.NoError(t, f.check())

	assert.Less(t, f.PredictProba([]float64{2, 3}), 0.2)
	assert.Greater(t, f.PredictProba([]float64{12, 3}), 0.8)
	assert.Greater(t, f.Importance[0], f.Importance[1])
	assert.InDelta(t, 1.0, f.Importance[0]+f.Importance[1], 1e-9)
}

func TestFitForestIsDeterministic(t *testing.T) {
	X, y := separable()
	p := ForestParams{Trees: 5, MaxDepth: 3, Seed: 9}

	a, err := FitForest(context.Background(), X, y, p)
	require.NoError(t, err)
	b, err := FitForest(context.Background(), X, y, p)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestFitForestRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		X    [][]float64
		y    []int
		p    ForestParams
	}{
		{name: "empty", p: DefaultForestParams()},
		{name: "label count mismatch", X: [][]float64{{1}, {2}}, y: []int{0}, p: DefaultForestParams()},
		{name: "ragged rows", X: [][]float64{{1, 2}, {2}}, y: []int{0, 1}, p: DefaultForestParams()},
		{name: "no trees", X: [][]float64{{1}, {2}}, y: []int{0, 1}, p: ForestParams{MaxDepth: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FitForest(context.Background(), tt.X, tt.y, tt.p)
			assert.Error(t, err)
		})
	}
}

func TestFitForestHonorsCancellation(t *testing.T) {
	X, y := separable()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FitForest(ctx, X, y, ForestParams{Trees: 50, MaxDepth: 5, Seed: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestForestCheck(t *testing.T) {
	leaf := Node{Leaf: true, Prob: 0.5}
	tests := []struct {
		name    string
		forest  Forest
		wantErr bool
	}{
		{
			name:   "single leaf",
			forest: Forest{NumFeatures: 1, Importance: []float64{0}, Trees: []Tree{{Nodes: []Node{leaf}}}},
		},
		{
			name:    "no trees",
			forest:  Forest{NumFeatures: 1, Importance: []float64{0}},
			wantErr: true,
		},
		{
			name: "child points backwards",
			forest: Forest{NumFeatures: 1, Importance: []float64{0}, Trees: []Tree{{Nodes: []Node{
				{Feature: 0, Left: 0, Right: 1}, leaf,
			}}}},
			wantErr: true,
		},
		{
			name: "feature out of range",
			forest: Forest{NumFeatures: 1, Importance: []float64{0}, Trees: []Tree{{Nodes: []Node{
				{Feature: 3, Left: 1, Right: 2}, leaf, leaf,
			}}}},
			wantErr: true,
		},
		{
			name:    "leaf probability out of range",
			forest:  Forest{NumFeatures: 1, Importance: []float64{0}, Trees: []Tree{{Nodes: []Node{{Leaf: true, Prob: 2}}}}},
			wantErr: true,
		},
		{
			name:    "importance length mismatch",
			forest:  Forest{NumFeatures: 2, Importance: []float64{0}, Trees: []Tree{{Nodes: []Node{leaf}}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.forest.check()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
