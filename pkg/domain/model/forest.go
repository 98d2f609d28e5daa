package model

import (
	"math"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/kardialab/kardia/pkg/xerrors"
)

// RandomForest averages the probabilities of bootstrap-trained decision
// trees. Trees are trained concurrently, each with its own seeded source, so
// a forest trained twice from the same seed is identical.
type RandomForest struct {
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MaxFeatures     int // 0 => sqrt(p), chosen at fit time
	Bootstrap       bool
	Seed            int64

	Trees []*DecisionTree
}

type ForestOption func(*RandomForest)

func WithNEstimators(n int) ForestOption { return func(rf *RandomForest) { rf.NEstimators = n } }
func WithForestMaxDepth(d int) ForestOption {
	return func(rf *RandomForest) { rf.MaxDepth = d }
}
func WithForestMinSamplesSplit(n int) ForestOption {
	return func(rf *RandomForest) { rf.MinSamplesSplit = n }
}
func WithForestSeed(seed int64) ForestOption { return func(rf *RandomForest) { rf.Seed = seed } }

func NewRandomForest(opts ...ForestOption) *RandomForest {
	rf := &RandomForest{
		NEstimators:     100,
		MinSamplesSplit: 2,
		Bootstrap:       true,
		Seed:            1,
	}
	for _, o := range opts {
		o(rf)
	}
	return rf
}

func (rf *RandomForest) Name() string {
	return "random_forest"
}

func (rf *RandomForest) Params() map[string]any {
	return map[string]any{
		"n_estimators":      rf.NEstimators,
		"max_depth":         rf.MaxDepth,
		"min_samples_split": rf.MinSamplesSplit,
		"max_features":      rf.MaxFeatures,
	}
}

func (rf *RandomForest) Fit(X *mat.Dense, y []int) error {
	n, p := X.Dims()
	if n == 0 {
		return xerrors.New("randomforest: empty matrix")
	}
	if len(y) != n {
		return xerrors.New("randomforest: X and y length mismatch")
	}
	if rf.NEstimators < 1 {
		return xerrors.New("randomforest: needs at least one tree")
	}

	maxFeatures := rf.MaxFeatures
	if maxFeatures == 0 {
		maxFeatures = int(math.Sqrt(float64(p)))
		if maxFeatures < 1 {
			maxFeatures = 1
		}
	}

	rf.Trees = make([]*DecisionTree, rf.NEstimators)
	var wg sync.WaitGroup
	errCh := make(chan error, rf.NEstimators)

	for nth := 0; nth < rf.NEstimators; nth++ {
		wg.Add(1)
		go func(nth int) {
			defer wg.Done()

			treeRand := rand.New(rand.NewSource(rf.Seed + int64(nth)))

			rows := make([]int, n)
			for i := range rows {
				if rf.Bootstrap {
					rows[i] = treeRand.Intn(n)
				} else {
					rows[i] = i
				}
			}

			Xs := mat.NewDense(n, p, nil)
			ys := make([]int, n)
			for i, r := range rows {
				Xs.SetRow(i, mat.Row(nil, r, X))
				ys[i] = y[r]
			}

			tree := NewDecisionTree(
				WithMaxDepth(rf.MaxDepth),
				WithMinSamplesSplit(rf.MinSamplesSplit),
				WithMaxFeatures(maxFeatures),
				WithTreeSeed(rf.Seed+int64(nth)),
			)
			if err := tree.Fit(Xs, ys); err != nil {
				errCh <- err
				return
			}
			rf.Trees[nth] = tree
		}(nth)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			return err
		}
	}
	return nil
}

func (rf *RandomForest) PredictProba(X *mat.Dense) ([]float64, error) {
	if len(rf.Trees) == 0 {
		return nil, xerrors.New("randomforest: model is not fitted")
	}
	n, _ := X.Dims()

	perTree := make([][]float64, len(rf.Trees))
	var wg sync.WaitGroup
	errCh := make(chan error, len(rf.Trees))

	for nth, tree := range rf.Trees {
		wg.Add(1)
		go func(nth int, tree *DecisionTree) {
			defer wg.Done()
			proba, err := tree.PredictProba(X)
			if err != nil {
				errCh <- err
				return
			}
			perTree[nth] = proba
		}(nth, tree)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			return nil, err
		}
	}

	out := make([]float64, n)
	for _, proba := range perTree {
		for i, p := range proba {
			out[i] += p
		}
	}
	for i := range out {
		out[i] /= float64(len(rf.Trees))
	}
	return out, nil
}
