package model_test

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/kardialab/kardia/pkg/domain/model"
	"github.com/kardialab/kardia/pkg/utils/try"
)

// two well-separated gaussian blobs along the first feature
func blobs(n int, seed int64) (*mat.Dense, []int) {
	rnd := rand.New(rand.NewSource(seed))
	X := mat.NewDense(n, 2, nil)
	y := make([]int, n)
	for i := 0; i < n; i++ {
		center := -2.0
		if i%2 == 1 {
			center = 2.0
			y[i] = 1
		}
		X.Set(i, 0, center+rnd.NormFloat64()*0.5)
		X.Set(i, 1, rnd.NormFloat64())
	}
	return X, y
}

func TestLogisticRegression(t *testing.T) {

	t.Run("it separates two blobs", func(t *testing.T) {
		X, y := blobs(200, 42)
		m := model.NewLogisticRegression(1.0)
		if err := m.Fit(X, y); err != nil {
			t.Fatal(err)
		}
		proba := try.To(m.PredictProba(X)).OrFatal(t)
		acc := model.Accuracy(y, model.Labels(proba, 0.5))
		if acc < 0.95 {
			t.Errorf("accuracy on separable data: %v", acc)
		}
	})

	t.Run("probabilities stay in [0,1]", func(t *testing.T) {
		X, y := blobs(100, 7)
		m := model.NewLogisticRegression(0.1)
		if err := m.Fit(X, y); err != nil {
			t.Fatal(err)
		}
		for _, p := range try.To(m.PredictProba(X)).OrFatal(t) {
			if p < 0 || 1 < p || math.IsNaN(p) {
				t.Fatalf("probability out of range: %v", p)
			}
		}
	})

	t.Run("the fit is deterministic", func(t *testing.T) {
		X, y := blobs(100, 7)
		a := model.NewLogisticRegression(1.0)
		b := model.NewLogisticRegression(1.0)
		try.To(0, a.Fit(X, y)).OrFatal(t)
		try.To(0, b.Fit(X, y)).OrFatal(t)
		for j := range a.W {
			if a.W[j] != b.W[j] {
				t.Fatal("weights differ between identical fits")
			}
		}
	})

	t.Run("predicting before fitting is an error", func(t *testing.T) {
		m := model.NewLogisticRegression(1.0)
		if _, err := m.PredictProba(mat.NewDense(1, 2, nil)); err == nil {
			t.Error("unfitted model did not fail")
		}
	})

	t.Run("a feature width mismatch is an error", func(t *testing.T) {
		X, y := blobs(50, 3)
		m := model.NewLogisticRegression(1.0)
		try.To(0, m.Fit(X, y)).OrFatal(t)
		if _, err := m.PredictProba(mat.NewDense(1, 5, nil)); err == nil {
			t.Error("width mismatch not reported")
		}
	})
}

func TestDecisionTree(t *testing.T) {

	t.Run("it fits an axis-aligned boundary exactly", func(t *testing.T) {
		X := mat.NewDense(8, 1, []float64{1, 2, 3, 4, 10, 11, 12, 13})
		y := []int{0, 0, 0, 0, 1, 1, 1, 1}

		tree := model.NewDecisionTree()
		if err := tree.Fit(X, y); err != nil {
			t.Fatal(err)
		}
		proba := try.To(tree.PredictProba(X)).OrFatal(t)
		for i, p := range proba {
			if model.Labels([]float64{p}, 0.5)[0] != y[i] {
				t.Errorf("row %d misclassified: proba=%v", i, p)
			}
		}
	})

	t.Run("max depth limits the tree", func(t *testing.T) {
		X, y := blobs(100, 11)
		tree := model.NewDecisionTree(model.WithMaxDepth(1))
		if err := tree.Fit(X, y); err != nil {
			t.Fatal(err)
		}
		if !tree.Root.Left.Leaf || !tree.Root.Right.Leaf {
			t.Error("depth-1 tree has non-leaf children")
		}
	})

	t.Run("a pure node becomes a leaf", func(t *testing.T) {
		X := mat.NewDense(3, 1, []float64{1, 2, 3})
		y := []int{1, 1, 1}
		tree := model.NewDecisionTree()
		if err := tree.Fit(X, y); err != nil {
			t.Fatal(err)
		}
		if !tree.Root.Leaf || tree.Root.Proba != 1 {
			t.Errorf("pure node not a leaf: %+v", tree.Root)
		}
	})
}

func TestRandomForest(t *testing.T) {

	t.Run("it separates two blobs", func(t *testing.T) {
		X, y := blobs(200, 42)
		rf := model.NewRandomForest(
			model.WithNEstimators(25), model.WithForestSeed(42),
		)
		if err := rf.Fit(X, y); err != nil {
			t.Fatal(err)
		}
		proba := try.To(rf.PredictProba(X)).OrFatal(t)
		acc := model.Accuracy(y, model.Labels(proba, 0.5))
		if acc < 0.95 {
			t.Errorf("accuracy on separable data: %v", acc)
		}
	})

	t.Run("the same seed trains the same forest", func(t *testing.T) {
		X, y := blobs(80, 5)
		a := model.NewRandomForest(model.WithNEstimators(10), model.WithForestSeed(9))
		b := model.NewRandomForest(model.WithNEstimators(10), model.WithForestSeed(9))
		try.To(0, a.Fit(X, y)).OrFatal(t)
		try.To(0, b.Fit(X, y)).OrFatal(t)

		pa := try.To(a.PredictProba(X)).OrFatal(t)
		pb := try.To(b.PredictProba(X)).OrFatal(t)
		for i := range pa {
			if pa[i] != pb[i] {
				t.Fatal("forests with the same seed disagree")
			}
		}
	})

	t.Run("probability averages stay in [0,1]", func(t *testing.T) {
		X, y := blobs(60, 17)
		rf := model.NewRandomForest(model.WithNEstimators(8), model.WithForestSeed(17))
		try.To(0, rf.Fit(X, y)).OrFatal(t)
		for _, p := range try.To(rf.PredictProba(X)).OrFatal(t) {
			if p < 0 || 1 < p {
				t.Fatalf("probability out of range: %v", p)
			}
		}
	})
}

func TestMetrics(t *testing.T) {

	t.Run("accuracy, precision and recall on a known confusion", func(t *testing.T) {
		yTrue := []int{1, 1, 1, 0, 0, 0}
		yPred := []int{1, 1, 0, 1, 0, 0}
		// tp=2, fp=1, fn=1, tn=2

		if acc := model.Accuracy(yTrue, yPred); math.Abs(acc-4.0/6.0) > 1e-12 {
			t.Errorf("accuracy: %v", acc)
		}
		prec, rec := model.PrecisionRecall(yTrue, yPred)
		if math.Abs(prec-2.0/3.0) > 1e-12 {
			t.Errorf("precision: %v", prec)
		}
		if math.Abs(rec-2.0/3.0) > 1e-12 {
			t.Errorf("recall: %v", rec)
		}
	})

	t.Run("perfect ranking has AUC 1", func(t *testing.T) {
		auc := try.To(model.ROCAUC(
			[]int{0, 0, 1, 1}, []float64{0.1, 0.2, 0.8, 0.9},
		)).OrFatal(t)
		if auc != 1 {
			t.Errorf("auc: %v", auc)
		}
	})

	t.Run("inverted ranking has AUC 0", func(t *testing.T) {
		auc := try.To(model.ROCAUC(
			[]int{1, 1, 0, 0}, []float64{0.1, 0.2, 0.8, 0.9},
		)).OrFatal(t)
		if auc != 0 {
			t.Errorf("auc: %v", auc)
		}
	})

	t.Run("ties average to AUC 0.5", func(t *testing.T) {
		auc := try.To(model.ROCAUC(
			[]int{0, 1, 0, 1}, []float64{0.5, 0.5, 0.5, 0.5},
		)).OrFatal(t)
		if math.Abs(auc-0.5) > 1e-12 {
			t.Errorf("auc: %v", auc)
		}
	})

	t.Run("a single-class sample is an error", func(t *testing.T) {
		if _, err := model.ROCAUC([]int{1, 1}, []float64{0.1, 0.9}); err == nil {
			t.Error("single-class AUC accepted")
		}
	})
}
