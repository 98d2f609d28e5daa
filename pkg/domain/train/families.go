package train

import (
	"github.com/kardialab/kardia/pkg/domain/model"
)

// Candidate is one hyperparameter configuration of an estimator family.
type Candidate struct {
	Params map[string]any
	New    func(seed int64) model.Classifier
}

// Family is a candidate estimator family with its search grid.
type Family struct {
	Name       string
	Candidates []Candidate
}

// Families builds the default search space: logistic regression and random
// forest. Fast mode shrinks the grids; it never changes what the winning
// artifact looks like, only how much of the space is searched.
func Families(fast bool) []Family {
	return []Family{
		logisticFamily(fast),
		forestFamily(fast),
	}
}

func logisticFamily(fast bool) Family {
	cs := []float64{0.01, 0.1, 1, 10}
	if fast {
		cs = []float64{0.1, 1}
	}

	f := Family{Name: "logistic_regression"}
	for _, c := range cs {
		c := c
		f.Candidates = append(f.Candidates, Candidate{
			Params: map[string]any{"C": c},
			New: func(int64) model.Classifier {
				return model.NewLogisticRegression(c)
			},
		})
	}
	return f
}

func forestFamily(fast bool) Family {
	nEstimators := []int{100, 200, 400}
	maxDepths := []int{0, 5, 10}
	minSplits := []int{2, 5}
	if fast {
		nEstimators = []int{100}
		maxDepths = []int{0, 5}
	}

	f := Family{Name: "random_forest"}
	for _, n := range nEstimators {
		for _, depth := range maxDepths {
			for _, split := range minSplits {
				n, depth, split := n, depth, split
				f.Candidates = append(f.Candidates, Candidate{
					Params: map[string]any{
						"n_estimators":      n,
						"max_depth":         depth,
						"min_samples_split": split,
					},
					New: func(seed int64) model.Classifier {
						return model.NewRandomForest(
							model.WithNEstimators(n),
							model.WithForestMaxDepth(depth),
							model.WithForestMinSamplesSplit(split),
							model.WithForestSeed(seed),
						)
					},
				})
			}
		}
	}
	return f
}
