// Package serving loads a trained model artifact and exposes it to the
// prediction handlers behind a narrow interface.
package serving

import (
	"github.com/kardialab/kardia/pkg/domain/pipeline"
	"github.com/kardialab/kardia/pkg/domain/schema"
)

// Model is what the prediction handlers need from a loaded artifact.
type Model interface {
	// Schema of the features the model was trained on.
	Schema() *schema.Schema

	// Predict labels the rows and returns the positive-class probabilities.
	Predict(rows []schema.Row) ([]int, []float64, error)

	// Family of the served estimator.
	Family() string

	// Threshold separating the classes.
	Threshold() float64
}

type loaded struct {
	pipe   *pipeline.Pipeline
	schema *schema.Schema
}

var _ Model = &loaded{}

// Load reads the artifact pair from dir.
func Load(dir string) (Model, error) {
	pipe, s, err := pipeline.LoadArtifact(dir)
	if err != nil {
		return nil, err
	}
	return &loaded{pipe: pipe, schema: s}, nil
}

func (l *loaded) Schema() *schema.Schema {
	return l.schema
}

func (l *loaded) Predict(rows []schema.Row) ([]int, []float64, error) {
	return l.pipe.Predict(rows)
}

func (l *loaded) Family() string {
	return l.pipe.Model.Name()
}

func (l *loaded) Threshold() float64 {
	return l.pipe.Threshold
}
