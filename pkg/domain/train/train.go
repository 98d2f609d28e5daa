// Package train runs the model selection for the heart-disease classifier:
// per estimator family, a stratified k-fold cross-validated grid search
// scored by ROC-AUC, a refit of the winning configuration on the full
// training split, and a final evaluation on a stratified holdout. One run
// record per family goes to the experiment tracker.
package train

import (
	"context"

	"github.com/kardialab/kardia/pkg/domain/dataset"
	"github.com/kardialab/kardia/pkg/domain/pipeline"
	"github.com/kardialab/kardia/pkg/domain/preprocess"
	"github.com/kardialab/kardia/pkg/domain/schema"
	"github.com/kardialab/kardia/pkg/tracking"
	"github.com/kardialab/kardia/pkg/xerrors"

	"github.com/kardialab/kardia/pkg/domain/model"
)

type Options struct {
	// Fast shrinks the hyperparameter grids and the fold count. The produced
	// artifact keeps the exact same shape.
	Fast bool

	// Folds for cross validation. 0 means 5, or 3 in fast mode.
	Folds int

	// TestRatio of the stratified holdout split. 0 means 0.2.
	TestRatio float64

	// Seed drives every random choice of the run: splits, folds, bootstrap.
	Seed int64

	// ArtifactRef is recorded on every run record so the tracker points at
	// the artifact this training wrote.
	ArtifactRef string

	// Families overrides the default search space. Tests use this to keep
	// grids small.
	Families []Family
}

func (o Options) folds() int {
	if o.Folds > 0 {
		return o.Folds
	}
	if o.Fast {
		return 3
	}
	return 5
}

func (o Options) testRatio() float64 {
	if o.TestRatio > 0 {
		return o.TestRatio
	}
	return 0.2
}

// Evaluation is the holdout performance of a refitted family winner.
type Evaluation struct {
	Accuracy  float64
	Precision float64
	Recall    float64
	ROCAUC    float64
}

func (e Evaluation) asMap() map[string]float64 {
	return map[string]float64{
		"accuracy":  e.Accuracy,
		"precision": e.Precision,
		"recall":    e.Recall,
		"roc_auc":   e.ROCAUC,
	}
}

// FamilyResult is the outcome of one family's search.
type FamilyResult struct {
	Family     string
	BestParams map[string]any
	CVScore    float64
	Holdout    Evaluation

	pipe *pipeline.Pipeline
}

// Result is the outcome of a whole training invocation.
type Result struct {
	Best      FamilyResult
	PerFamily []FamilyResult

	// Pipeline is the overall winner, refitted on the full training split.
	Pipeline *pipeline.Pipeline
}

// Run searches every family and returns the overall winner by CV score.
// It records one run per family on the tracker. The caller persists the
// winning pipeline; nothing is written to the models directory here, so a
// failed search never leaves a partial artifact.
func Run(
	ctx context.Context,
	tbl *dataset.Table,
	y []int,
	s *schema.Schema,
	opts Options,
	tracker tracking.Store,
) (*Result, error) {
	if tbl.NumRows() != len(y) {
		return nil, xerrors.New("table and labels disagree on row count")
	}

	trainIdx, testIdx, err := dataset.TrainTestSplit(y, opts.testRatio(), opts.Seed)
	if err != nil {
		return nil, err
	}
	trainTbl := tbl.Select(trainIdx)
	trainY := dataset.SelectLabels(y, trainIdx)
	testTbl := tbl.Select(testIdx)
	testY := dataset.SelectLabels(y, testIdx)

	folds, err := dataset.StratifiedKFold(trainY, opts.folds(), opts.Seed)
	if err != nil {
		return nil, err
	}

	families := opts.Families
	if families == nil {
		families = Families(opts.Fast)
	}

	result := &Result{}
	for _, family := range families {
		if err := ctx.Err(); err != nil {
			return nil, xerrors.Wrap(err)
		}

		fr, err := searchFamily(ctx, family, trainTbl, trainY, testTbl, testY, folds, s, opts)
		if err != nil {
			return nil, xerrors.WrapWithNote("family "+family.Name, err)
		}
		result.PerFamily = append(result.PerFamily, fr)

		if tracker != nil {
			run := tracking.NewRun(family.Name, fr.BestParams)
			run.CVScore = fr.CVScore
			run.Metrics = fr.Holdout.asMap()
			run.ArtifactRef = opts.ArtifactRef
			if err := tracker.Record(ctx, run); err != nil {
				return nil, xerrors.WrapWithNote("recording run for "+family.Name, err)
			}
		}

		if result.Pipeline == nil || fr.CVScore > result.Best.CVScore {
			result.Best = fr
			result.Pipeline = fr.pipe
		}
	}

	if result.Pipeline == nil {
		return nil, xerrors.New("no estimator family produced a model")
	}
	return result, nil
}

func searchFamily(
	ctx context.Context,
	family Family,
	trainTbl *dataset.Table,
	trainY []int,
	testTbl *dataset.Table,
	testY []int,
	folds [][]int,
	s *schema.Schema,
	opts Options,
) (FamilyResult, error) {
	if len(family.Candidates) == 0 {
		return FamilyResult{}, xerrors.New("empty candidate grid")
	}

	best := FamilyResult{Family: family.Name, CVScore: -1}
	for _, cand := range family.Candidates {
		if err := ctx.Err(); err != nil {
			return FamilyResult{}, xerrors.Wrap(err)
		}

		score, err := crossValidate(cand, trainTbl, trainY, folds, s, opts.Seed)
		if err != nil {
			return FamilyResult{}, err
		}
		if score > best.CVScore {
			best.CVScore = score
			best.BestParams = cand.Params
			best.pipe = pipeline.New(preprocess.FromSchema(s), cand.New(opts.Seed))
		}
	}

	// refit the family winner on the full training split
	if err := best.pipe.Fit(trainTbl, trainY); err != nil {
		return FamilyResult{}, err
	}

	proba, err := best.pipe.PredictProbaTable(testTbl)
	if err != nil {
		return FamilyResult{}, err
	}
	labels := model.Labels(proba, best.pipe.Threshold)
	auc, err := model.ROCAUC(testY, proba)
	if err != nil {
		return FamilyResult{}, err
	}
	prec, rec := model.PrecisionRecall(testY, labels)
	best.Holdout = Evaluation{
		Accuracy:  model.Accuracy(testY, labels),
		Precision: prec,
		Recall:    rec,
		ROCAUC:    auc,
	}
	return best, nil
}

// crossValidate scores one candidate as the mean validation ROC-AUC over the
// folds. The transformer is refitted inside every fold, so no statistic leaks
// from validation rows into the fit.
func crossValidate(
	cand Candidate,
	tbl *dataset.Table,
	y []int,
	folds [][]int,
	s *schema.Schema,
	seed int64,
) (float64, error) {
	total := 0.0
	for _, valIdx := range folds {
		fitIdx := dataset.Complement(len(y), valIdx)

		p := pipeline.New(preprocess.FromSchema(s), cand.New(seed))
		if err := p.Fit(tbl.Select(fitIdx), dataset.SelectLabels(y, fitIdx)); err != nil {
			return 0, err
		}

		proba, err := p.PredictProbaTable(tbl.Select(valIdx))
		if err != nil {
			return 0, err
		}
		auc, err := model.ROCAUC(dataset.SelectLabels(y, valIdx), proba)
		if err != nil {
			return 0, err
		}
		total += auc
	}
	return total / float64(len(folds)), nil
}
