package tracking

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kardialab/kardia/pkg/xerrors"
)

// FileStore keeps one JSON file per run under a directory.
type FileStore struct {
	dir string
}

var _ Store = &FileStore{}

func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, xerrors.New("tracking directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, xerrors.Wrap(err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Record(ctx context.Context, run Run) error {
	if err := ctx.Err(); err != nil {
		return xerrors.Wrap(err)
	}

	buf, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return xerrors.Wrap(err)
	}

	dest := filepath.Join(s.dir, run.ID+".json")
	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return xerrors.Wrap(err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return xerrors.Wrap(err)
	}
	return nil
}

func (s *FileStore) List(ctx context.Context) ([]Run, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, xerrors.Wrap(err)
	}

	runs := []Run{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, xerrors.Wrap(err)
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		buf, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, xerrors.Wrap(err)
		}
		var run Run
		if err := json.Unmarshal(buf, &run); err != nil {
			return nil, xerrors.WrapWithNote("broken run record "+entry.Name(), err)
		}
		runs = append(runs, run)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs, nil
}

func (s *FileStore) Close() error {
	return nil
}
