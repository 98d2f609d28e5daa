// Package pipeline composes a fitted column transformer and a classifier into
// the single unit that is trained, persisted and served. Inference always
// goes through the same transformer that training fitted, so the feature
// layout can never drift between the two.
package pipeline

import (
	"github.com/kardialab/kardia/pkg/domain/dataset"
	"github.com/kardialab/kardia/pkg/domain/model"
	"github.com/kardialab/kardia/pkg/domain/preprocess"
	"github.com/kardialab/kardia/pkg/domain/schema"
	"github.com/kardialab/kardia/pkg/xerrors"
)

// DefaultThreshold converts the positive-class probability into the 0/1
// label. No analyst-chosen business threshold exists for this model, so the
// conventional 0.5 applies.
const DefaultThreshold = 0.5

type Pipeline struct {
	Transformer *preprocess.ColumnTransformer
	Model       model.Classifier
	Threshold   float64
}

func New(t *preprocess.ColumnTransformer, m model.Classifier) *Pipeline {
	return &Pipeline{Transformer: t, Model: m, Threshold: DefaultThreshold}
}

// Fit fits the transformer on the table, then the classifier on the
// transformed matrix.
func (p *Pipeline) Fit(tbl *dataset.Table, y []int) error {
	if err := p.Transformer.Fit(tbl); err != nil {
		return xerrors.WrapWithNote("fitting transformer", err)
	}
	X, err := p.Transformer.Transform(tbl)
	if err != nil {
		return xerrors.Wrap(err)
	}
	if err := p.Model.Fit(X, y); err != nil {
		return xerrors.WrapWithNote("fitting "+p.Model.Name(), err)
	}
	return nil
}

// PredictProbaTable scores every row of a table. Used during evaluation.
func (p *Pipeline) PredictProbaTable(tbl *dataset.Table) ([]float64, error) {
	X, err := p.Transformer.Transform(tbl)
	if err != nil {
		return nil, xerrors.Wrap(err)
	}
	return p.Model.PredictProba(X)
}

// PredictProba scores validated request rows. Used at serving time.
func (p *Pipeline) PredictProba(rows []schema.Row) ([]float64, error) {
	X, err := p.Transformer.TransformRows(rows)
	if err != nil {
		return nil, xerrors.Wrap(err)
	}
	return p.Model.PredictProba(X)
}

// Predict returns the thresholded labels together with the probabilities they
// were derived from.
func (p *Pipeline) Predict(rows []schema.Row) ([]int, []float64, error) {
	proba, err := p.PredictProba(rows)
	if err != nil {
		return nil, nil, err
	}
	return model.Labels(proba, p.Threshold), proba, nil
}
