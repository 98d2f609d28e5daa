package tracking

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/kardialab/kardia/pkg/xerrors"
)

const runsDDL = `
create table if not exists runs (
    id           varchar(36)  primary key,
    family       varchar(64)  not null,
    params       jsonb        not null,
    cv_score     float8       not null,
    metrics      jsonb        not null,
    artifact_ref varchar(255) not null default '',
    created_at   timestamptz  not null
);
`

// PostgresStore persists runs in a single append-only table. The table is
// created on open if it does not exist.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = &PostgresStore{}

func NewPostgresStore(ctx context.Context, url string) (*PostgresStore, error) {
	pool, err := pgxpool.Connect(ctx, url)
	if err != nil {
		return nil, xerrors.Wrap(err)
	}
	if _, err := pool.Exec(ctx, runsDDL); err != nil {
		pool.Close()
		return nil, xerrors.WrapWithNote("preparing runs table", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Record(ctx context.Context, run Run) error {
	params, err := json.Marshal(run.Params)
	if err != nil {
		return xerrors.Wrap(err)
	}
	metrics, err := json.Marshal(run.Metrics)
	if err != nil {
		return xerrors.Wrap(err)
	}

	_, err = s.pool.Exec(
		ctx,
		`insert into runs (id, family, params, cv_score, metrics, artifact_ref, created_at)
		 values ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.Family, params, run.CVScore, metrics, run.ArtifactRef, run.CreatedAt,
	)
	return xerrors.Wrap(err)
}

func (s *PostgresStore) List(ctx context.Context) ([]Run, error) {
	rows, err := s.pool.Query(
		ctx,
		`select id, family, params, cv_score, metrics, artifact_ref, created_at
		 from runs order by created_at desc`,
	)
	if err != nil {
		return nil, xerrors.Wrap(err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			run     Run
			params  []byte
			metrics []byte
		)
		if err := rows.Scan(
			&run.ID, &run.Family, &params, &run.CVScore,
			&metrics, &run.ArtifactRef, &run.CreatedAt,
		); err != nil {
			return nil, xerrors.Wrap(err)
		}
		if err := json.Unmarshal(params, &run.Params); err != nil {
			return nil, xerrors.WrapWithNote("broken params for run "+run.ID, err)
		}
		if err := json.Unmarshal(metrics, &run.Metrics); err != nil {
			return nil, xerrors.WrapWithNote("broken metrics for run "+run.ID, err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(err)
	}
	return runs, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
