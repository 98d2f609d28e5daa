// Package tracking records training runs: which estimator family was
// searched, the winning hyperparameters, the cross-validation score and the
// holdout metrics. Records go to a directory of JSON files or to postgres,
// chosen by the tracking URI.
package tracking

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Run is one recorded training run.
type Run struct {
	ID          string             `json:"id"`
	Family      string             `json:"family"`
	Params      map[string]any     `json:"params"`
	CVScore     float64            `json:"cv_score"`
	Metrics     map[string]float64 `json:"metrics"`
	ArtifactRef string             `json:"artifact_ref,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

func NewRun(family string, params map[string]any) Run {
	return Run{
		ID:        uuid.NewString(),
		Family:    family,
		Params:    params,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

type Store interface {
	// Record persists one run. Runs are append only.
	Record(ctx context.Context, run Run) error

	// List returns recorded runs, newest first.
	List(ctx context.Context) ([]Run, error)

	Close() error
}

// New dispatches on the URI: postgres:// and postgresql:// open a database
// backed store, anything else is taken as a directory path.
func New(ctx context.Context, uri string) (Store, error) {
	if strings.HasPrefix(uri, "postgres://") || strings.HasPrefix(uri, "postgresql://") {
		return NewPostgresStore(ctx, uri)
	}
	return NewFileStore(uri)
}
