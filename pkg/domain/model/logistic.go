package model

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/kardialab/kardia/pkg/xerrors"
)

// LogisticRegression is a binary classifier trained by full-batch gradient
// descent on the L2-regularized log loss. C is the inverse regularization
// strength. Training starts from zero weights; the loss is convex, so the fit
// is deterministic.
type LogisticRegression struct {
	C            float64
	Epochs       int
	LearningRate float64

	W []float64
	B float64
}

func NewLogisticRegression(c float64) *LogisticRegression {
	return &LogisticRegression{
		C:            c,
		Epochs:       500,
		LearningRate: 0.5,
	}
}

func (m *LogisticRegression) Name() string {
	return "logistic_regression"
}

func (m *LogisticRegression) Params() map[string]any {
	return map[string]any{"C": m.C, "epochs": m.Epochs, "learning_rate": m.LearningRate}
}

func (m *LogisticRegression) Fit(X *mat.Dense, y []int) error {
	n, p := X.Dims()
	if n == 0 {
		return xerrors.New("logistic: empty matrix")
	}
	if len(y) != n {
		return xerrors.New("logistic: X and y length mismatch")
	}
	if m.C <= 0 {
		return xerrors.New("logistic: C must be positive")
	}

	m.W = make([]float64, p)
	m.B = 0

	w := mat.NewVecDense(p, m.W)
	z := mat.NewVecDense(n, nil)
	d := mat.NewVecDense(n, nil)
	gw := mat.NewVecDense(p, nil)

	// penalty weight per the 1/(2C) * ||w||^2 regularizer averaged over n rows
	reg := 1 / (m.C * float64(n))

	for epoch := 0; epoch < m.Epochs; epoch++ {
		z.MulVec(X, w)
		for i := 0; i < n; i++ {
			d.SetVec(i, sigmoid(z.AtVec(i)+m.B)-float64(y[i]))
		}

		gw.MulVec(X.T(), d)
		gb := 0.0
		for i := 0; i < n; i++ {
			gb += d.AtVec(i)
		}

		for j := 0; j < p; j++ {
			grad := gw.AtVec(j)/float64(n) + reg*m.W[j]
			m.W[j] -= m.LearningRate * grad
		}
		m.B -= m.LearningRate * gb / float64(n)
	}
	return nil
}

func (m *LogisticRegression) PredictProba(X *mat.Dense) ([]float64, error) {
	if m.W == nil {
		return nil, xerrors.New("logistic: model is not fitted")
	}
	n, p := X.Dims()
	if p != len(m.W) {
		return nil, xerrors.New("logistic: feature count mismatch")
	}

	w := mat.NewVecDense(p, m.W)
	z := mat.NewVecDense(n, nil)
	z.MulVec(X, w)

	out := make([]float64, n)
	for i := range out {
		out[i] = sigmoid(z.AtVec(i) + m.B)
	}
	return out, nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
