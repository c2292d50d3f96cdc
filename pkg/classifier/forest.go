package classifier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// ForestParams controls random forest training.
type ForestParams struct {
	Trees           int   `json:"trees"`
	MaxDepth        int   `json:"max_depth"`
	MinSamplesSplit int   `json:"min_samples_split"`
	Seed            int64 `json:"seed"`
}

func DefaultForestParams() ForestParams {
	return ForestParams{Trees: 100, MaxDepth: 10, MinSamplesSplit: 2, Seed: 42}
}

// Node is one split or leaf of a decision tree. Children always come after
// their parent in Tree.Nodes.
type Node struct {
	Leaf      bool    `json:"leaf,omitempty"`
	Feature   int     `json:"f,omitempty"`
	Threshold float64 `json:"t,omitempty"`
	Left      int     `json:"l,omitempty"`
	Right     int     `json:"r,omitempty"`
	// Prob is the share of phishing samples that reached a leaf.
	Prob float64 `json:"p,omitempty"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t *Tree) predict(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Prob
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Forest is a bagged ensemble of CART trees split on Gini impurity.
type Forest struct {
	NumFeatures int       `json:"num_features"`
	Trees       []Tree    `json:"trees"`
	Importance  []float64 `json:"importance"`
}

// PredictProba returns the mean phishing probability over all trees.
func (f *Forest) PredictProba(x []float64) float64 {
	sum := 0.0
	for i := range f.Trees {
		sum += f.Trees[i].predict(x)
	}
	return sum / float64(len(f.Trees))
}

// check rejects structurally broken forests, typically from a corrupt file.
func (f *Forest) check() error {
	if f.NumFeatures <= 0 {
		return errors.New("forest has no features")
	}
	if len(f.Trees) == 0 {
		return errors.New("forest has no trees")
	}
	if len(f.Importance) != f.NumFeatures {
		return fmt.Errorf("importance has %d entries, want %d", len(f.Importance), f.NumFeatures)
	}
	for ti, t := range f.Trees {
		if len(t.Nodes) == 0 {
			return fmt.Errorf("tree %d is empty", ti)
		}
		for ni, n := range t.Nodes {
			if n.Leaf {
				if n.Prob < 0 || n.Prob > 1 || math.IsNaN(n.Prob) {
					return fmt.Errorf("tree %d node %d: leaf probability %v out of range", ti, ni, n.Prob)
				}
				continue
			}
			if n.Feature < 0 || n.Feature >= f.NumFeatures {
				return fmt.Errorf("tree %d node %d: feature %d out of range", ti, ni, n.Feature)
			}
			if n.Left <= ni || n.Right <= ni || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
				return fmt.Errorf("tree %d node %d: bad child index", ti, ni)
			}
		}
	}
	return nil
}

// FitForest trains a forest on X (rows of equal length) and binary labels y.
// Trees are grown concurrently; each has its own seeded source so the result
// depends only on the inputs and p.Seed.
func FitForest(ctx context.Context, X [][]float64, y []int, p ForestParams) (*Forest, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, fmt.Errorf("need equal, non-zero numbers of rows and labels (got %d and %d)", len(X), len(y))
	}
	if p.Trees <= 0 || p.MaxDepth <= 0 {
		return nil, fmt.Errorf("trees and max depth must be positive")
	}
	if p.MinSamplesSplit < 2 {
		p.MinSamplesSplit = 2
	}
	nf := len(X[0])
	for i, row := range X {
		if len(row) != nf {
			return nil, fmt.Errorf("row %d has %d features, want %d", i, len(row), nf)
		}
	}

	forest := &Forest{
		NumFeatures: nf,
		Trees:       make([]Tree, p.Trees),
		Importance:  make([]float64, nf),
	}
	perTree := make([][]float64, p.Trees)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for t := 0; t < p.Trees; t++ {
		t := t
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b := &treeBuilder{
				X:      X,
				y:      y,
				params: p,
				rng:    rand.New(rand.NewSource(p.Seed + int64(t)*7919)),
				mtry:   int(math.Max(1, math.Floor(math.Sqrt(float64(nf))))),
				imp:    make([]float64, nf),
			}
			sample := make([]int, len(X))
			for i := range sample {
				sample[i] = b.rng.Intn(len(X))
			}
			b.grow(sample, 0)
			forest.Trees[t] = Tree{Nodes: b.nodes}
			perTree[t] = b.imp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Normalize per tree, then average, so every tree weighs the same.
	for _, imp := range perTree {
		total := 0.0
		for _, v := range imp {
			total += v
		}
		if total == 0 {
			continue
		}
		for i, v := range imp {
			forest.Importance[i] += v / total
		}
	}
	sum := 0.0
	for _, v := range forest.Importance {
		sum += v
	}
	if sum > 0 {
		for i := range forest.Importance {
			forest.Importance[i] /= sum
		}
	}
	return forest, nil
}

type treeBuilder struct {
	X      [][]float64
	y      []int
	params ForestParams
	rng    *rand.Rand
	mtry   int
	nodes  []Node
	imp    []float64
}

func gini(pos, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(pos) / float64(n)
	return 2 * p * (1 - p)
}

func (b *treeBuilder) grow(sample []int, depth int) int {
	idx := len(b.nodes)
	b.nodes = append(b.nodes, Node{})

	pos := 0
	for _, i := range sample {
		pos += b.y[i]
	}
	n := len(sample)
	leaf := Node{Leaf: true, Prob: float64(pos) / float64(n)}

	if depth >= b.params.MaxDepth || n < b.params.MinSamplesSplit || pos == 0 || pos == n {
		b.nodes[idx] = leaf
		return idx
	}

	feature, threshold, gain, ok := b.bestSplit(sample, pos)
	if !ok {
		b.nodes[idx] = leaf
		return idx
	}
	b.imp[feature] += gain

	var left, right []int
	for _, i := range sample {
		if b.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[idx] = Node{Feature: feature, Threshold: threshold, Left: l, Right: r}
	return idx
}

type valueLabel struct {
	v float64
	y int
}

// bestSplit searches mtry random features for the threshold with the largest
// weighted impurity decrease. gain is scaled by the node's sample count.
func (b *treeBuilder) bestSplit(sample []int, pos int) (feature int, threshold, gain float64, ok bool) {
	n := len(sample)
	parent := gini(pos, n) * float64(n)
	best := 0.0

	pairs := make([]valueLabel, n)

	// Keep drawing past mtry until some feature can split the node.
	for drawn, f := range b.rng.Perm(len(b.X[0])) {
		if drawn >= b.mtry && ok {
			break
		}
		for j, i := range sample {
			pairs[j] = valueLabel{v: b.X[i][f], y: b.y[i]}
		}
		sort.Slice(pairs, func(a, c int) bool { return pairs[a].v < pairs[c].v })

		leftPos := 0
		for k := 0; k < n-1; k++ {
			leftPos += pairs[k].y
			if pairs[k].v == pairs[k+1].v {
				continue
			}
			ln := k + 1
			rn := n - ln
			child := gini(leftPos, ln)*float64(ln) + gini(pos-leftPos, rn)*float64(rn)
			if d := parent - child; d > best+1e-12 {
				best = d
				feature = f
				threshold = (pairs[k].v + pairs[k+1].v) / 2
				ok = true
			}
		}
	}
	return feature, threshold, best, ok
}
