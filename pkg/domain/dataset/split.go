package dataset

import (
	"math/rand"

	"github.com/kardialab/kardia/pkg/xerrors"
)

// TrainTestSplit partitions row indices into train and test sets, stratified
// on the binary labels so both sides preserve the class balance. The split is
// deterministic for a given seed.
func TrainTestSplit(y []int, testRatio float64, seed int64) (train, test []int, err error) {
	if testRatio <= 0 || 1 <= testRatio {
		return nil, nil, xerrors.New("test ratio must be in (0, 1)")
	}

	rnd := rand.New(rand.NewSource(seed))
	for _, class := range []int{0, 1} {
		members := []int{}
		for i, label := range y {
			if label == class {
				members = append(members, i)
			}
		}
		rnd.Shuffle(len(members), func(a, b int) {
			members[a], members[b] = members[b], members[a]
		})

		nTest := int(float64(len(members)) * testRatio)
		test = append(test, members[:nTest]...)
		train = append(train, members[nTest:]...)
	}

	if len(train) == 0 || len(test) == 0 {
		return nil, nil, xerrors.New("dataset too small to split")
	}
	return train, test, nil
}

// StratifiedKFold assigns each row to one of k folds, keeping the class
// balance of the binary labels within every fold. The returned slice holds,
// per fold, the row indices of that fold (the validation set; the remaining
// rows form the training set of the fold).
func StratifiedKFold(y []int, k int, seed int64) ([][]int, error) {
	if k < 2 {
		return nil, xerrors.New("k-fold needs k >= 2")
	}
	if k > len(y) {
		return nil, xerrors.New("more folds than rows")
	}

	folds := make([][]int, k)
	rnd := rand.New(rand.NewSource(seed))
	for _, class := range []int{0, 1} {
		members := []int{}
		for i, label := range y {
			if label == class {
				members = append(members, i)
			}
		}
		rnd.Shuffle(len(members), func(a, b int) {
			members[a], members[b] = members[b], members[a]
		})
		for i, row := range members {
			folds[i%k] = append(folds[i%k], row)
		}
	}
	return folds, nil
}

// Complement returns all indices of [0, n) not in the given set. Used to turn
// a validation fold into its training counterpart.
func Complement(n int, exclude []int) []int {
	drop := make(map[int]struct{}, len(exclude))
	for _, i := range exclude {
		drop[i] = struct{}{}
	}
	out := make([]int, 0, n-len(exclude))
	for i := 0; i < n; i++ {
		if _, ok := drop[i]; !ok {
			out = append(out, i)
		}
	}
	return out
}
