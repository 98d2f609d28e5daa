package model

import (
	"sort"

	"github.com/kardialab/kardia/pkg/xerrors"
)

// Classification metrics (binary, labels 0/1).

func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	c := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			c++
		}
	}
	return float64(c) / float64(len(yTrue))
}

func PrecisionRecall(yTrue, yPred []int) (prec, rec float64) {
	tp, fp, fn := 0, 0, 0
	for i := range yTrue {
		if yPred[i] == 1 && yTrue[i] == 1 {
			tp++
		}
		if yPred[i] == 1 && yTrue[i] == 0 {
			fp++
		}
		if yPred[i] == 0 && yTrue[i] == 1 {
			fn++
		}
	}
	if tp+fp > 0 {
		prec = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		rec = float64(tp) / float64(tp+fn)
	}
	return
}

// ROCAUC computes the area under the ROC curve by the rank statistic
// (Mann-Whitney U), with average ranks over probability ties. Both classes
// must be present.
func ROCAUC(yTrue []int, proba []float64) (float64, error) {
	if len(yTrue) != len(proba) {
		return 0, xerrors.New("roc-auc: labels and scores length mismatch")
	}

	n := len(yTrue)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return proba[order[a]] < proba[order[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && proba[order[j]] == proba[order[i]] {
			j++
		}
		avg := float64(i+j+1) / 2 // 1-based average rank of the tie group
		for k := i; k < j; k++ {
			ranks[order[k]] = avg
		}
		i = j
	}

	nPos, nNeg := 0, 0
	sumPos := 0.0
	for i, label := range yTrue {
		if label == 1 {
			nPos++
			sumPos += ranks[i]
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return 0, xerrors.New("roc-auc: needs both classes present")
	}

	u := sumPos - float64(nPos)*float64(nPos+1)/2
	return u / (float64(nPos) * float64(nNeg)), nil
}
