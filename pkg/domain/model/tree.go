package model

import (
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/kardialab/kardia/pkg/xerrors"
)

// DecisionTree is a CART-style binary classifier splitting on numeric
// thresholds with the gini criterion. The preprocessed feature matrix is
// dense and free of missing values, so no surrogate-split handling is needed.
type DecisionTree struct {
	MaxDepth        int // 0 => no limit
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 0 => all features; >0 => sample per split
	Seed            int64

	Root *TreeNode
}

// TreeNode fields stay exported so a fitted tree survives gob encoding inside
// the pipeline artifact.
type TreeNode struct {
	Leaf      bool
	Feature   int
	Threshold float64 // x <= Threshold goes left
	Proba     float64 // positive fraction at the leaf
	N         int
	Left      *TreeNode
	Right     *TreeNode
}

type TreeOption func(*DecisionTree)

func WithMaxDepth(d int) TreeOption        { return func(t *DecisionTree) { t.MaxDepth = d } }
func WithMinSamplesSplit(n int) TreeOption { return func(t *DecisionTree) { t.MinSamplesSplit = n } }
func WithMinSamplesLeaf(n int) TreeOption  { return func(t *DecisionTree) { t.MinSamplesLeaf = n } }
func WithMaxFeatures(k int) TreeOption     { return func(t *DecisionTree) { t.MaxFeatures = k } }
func WithTreeSeed(seed int64) TreeOption   { return func(t *DecisionTree) { t.Seed = seed } }

func NewDecisionTree(opts ...TreeOption) *DecisionTree {
	t := &DecisionTree{
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Seed:            1,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *DecisionTree) Name() string {
	return "decision_tree"
}

func (t *DecisionTree) Params() map[string]any {
	return map[string]any{
		"max_depth":         t.MaxDepth,
		"min_samples_split": t.MinSamplesSplit,
		"min_samples_leaf":  t.MinSamplesLeaf,
		"max_features":      t.MaxFeatures,
	}
}

func (t *DecisionTree) Fit(X *mat.Dense, y []int) error {
	n, p := X.Dims()
	if n == 0 {
		return xerrors.New("dtree: empty matrix")
	}
	if len(y) != n {
		return xerrors.New("dtree: X and y length mismatch")
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	rnd := rand.New(rand.NewSource(t.Seed))
	t.Root = t.build(X, y, idx, 0, p, rnd)
	return nil
}

func (t *DecisionTree) PredictProba(X *mat.Dense) ([]float64, error) {
	if t.Root == nil {
		return nil, xerrors.New("dtree: model is not fitted")
	}
	n, _ := X.Dims()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		node := t.Root
		for !node.Leaf {
			if X.At(i, node.Feature) <= node.Threshold {
				node = node.Left
			} else {
				node = node.Right
			}
		}
		out[i] = node.Proba
	}
	return out, nil
}

func (t *DecisionTree) build(X *mat.Dense, y []int, idx []int, depth, p int, rnd *rand.Rand) *TreeNode {
	pos := 0
	for _, i := range idx {
		pos += y[i]
	}
	node := &TreeNode{N: len(idx), Proba: float64(pos) / float64(len(idx))}

	pure := pos == 0 || pos == len(idx)
	if pure || len(idx) < t.MinSamplesSplit || (t.MaxDepth > 0 && depth >= t.MaxDepth) {
		node.Leaf = true
		return node
	}

	feature, threshold, gain := t.bestSplit(X, y, idx, p, rnd)
	if gain <= 0 {
		node.Leaf = true
		return node
	}

	var left, right []int
	for _, i := range idx {
		if X.At(i, feature) <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	node.Feature = feature
	node.Threshold = threshold
	node.Left = t.build(X, y, left, depth+1, p, rnd)
	node.Right = t.build(X, y, right, depth+1, p, rnd)
	return node
}

func (t *DecisionTree) bestSplit(X *mat.Dense, y []int, idx []int, p int, rnd *rand.Rand) (feature int, threshold, gain float64) {
	features := make([]int, p)
	for j := range features {
		features[j] = j
	}
	if t.MaxFeatures > 0 && t.MaxFeatures < p {
		rnd.Shuffle(p, func(a, b int) { features[a], features[b] = features[b], features[a] })
		features = features[:t.MaxFeatures]
		sort.Ints(features)
	}

	total := len(idx)
	totalPos := 0
	for _, i := range idx {
		totalPos += y[i]
	}
	parent := gini(totalPos, total)

	feature = -1
	type pair struct {
		v   float64
		pos int
	}
	vals := make([]pair, 0, total)

	for _, f := range features {
		vals = vals[:0]
		for _, i := range idx {
			vals = append(vals, pair{X.At(i, f), y[i]})
		}
		sort.Slice(vals, func(a, b int) bool { return vals[a].v < vals[b].v })

		leftN, leftPos := 0, 0
		for s := 1; s < total; s++ {
			leftN++
			leftPos += vals[s-1].pos
			if vals[s].v == vals[s-1].v {
				continue
			}
			rightN := total - leftN
			if leftN < t.MinSamplesLeaf || rightN < t.MinSamplesLeaf {
				continue
			}
			rightPos := totalPos - leftPos
			weighted := (float64(leftN)*gini(leftPos, leftN) +
				float64(rightN)*gini(rightPos, rightN)) / float64(total)
			if g := parent - weighted; g > gain {
				gain = g
				feature = f
				threshold = (vals[s-1].v + vals[s].v) / 2
			}
		}
	}
	return feature, threshold, gain
}

func gini(pos, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(pos) / float64(n)
	return 2 * p * (1 - p)
}
