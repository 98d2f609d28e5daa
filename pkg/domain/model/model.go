// Package model holds the binary classifiers the trainer searches over and
// the evaluation metrics used to score them. All classifiers are deterministic
// for a fixed seed, so a persisted pipeline answers identical requests with
// identical output.
package model

import "gonum.org/v1/gonum/mat"

// Classifier is a binary classifier over a preprocessed feature matrix.
type Classifier interface {
	// Fit trains on X (n x p) against labels y (0/1, length n).
	Fit(X *mat.Dense, y []int) error

	// PredictProba returns the positive-class probability per row of X.
	PredictProba(X *mat.Dense) ([]float64, error)

	// Name identifies the estimator family.
	Name() string

	// Params reports the hyperparameters for the experiment run record.
	Params() map[string]any
}

// Labels thresholds probabilities into 0/1 class labels.
func Labels(proba []float64, threshold float64) []int {
	out := make([]int, len(proba))
	for i, p := range proba {
		if p >= threshold {
			out[i] = 1
		}
	}
	return out
}
