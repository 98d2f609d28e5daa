package pipeline

import (
	"encoding/gob"
	"os"
	"path/filepath"

	"github.com/kardialab/kardia/pkg/domain/model"
	"github.com/kardialab/kardia/pkg/domain/schema"
	"github.com/kardialab/kardia/pkg/xerrors"
)

// Artifact layout inside the models directory. The two files are written and
// loaded together; a pipeline without its schema (or the reverse) is not a
// usable artifact and is rejected at load time.
const (
	ModelFile  = "model.gob"
	SchemaFile = "schema.json"
)

func init() {
	// concrete classifier types travelling behind the Classifier interface
	gob.Register(&model.LogisticRegression{})
	gob.Register(&model.DecisionTree{})
	gob.Register(&model.RandomForest{})
}

// SaveArtifact persists the fitted pipeline and its schema under dir. Each
// file is written to a temporary name and renamed into place, so a crashed or
// failed training run never leaves a half-written artifact where the serving
// process would pick it up.
func SaveArtifact(dir string, p *Pipeline, s *schema.Schema) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return xerrors.Wrap(err)
	}

	modelPath := filepath.Join(dir, ModelFile)
	tmp := modelPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return xerrors.Wrap(err)
	}
	if err := gob.NewEncoder(f).Encode(p); err != nil {
		f.Close()
		os.Remove(tmp)
		return xerrors.WrapWithNote("encoding pipeline", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return xerrors.Wrap(err)
	}

	if err := s.Save(filepath.Join(dir, SchemaFile)); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, modelPath); err != nil {
		return xerrors.Wrap(err)
	}
	return nil
}

// LoadArtifact reads back a pipeline and schema written by SaveArtifact.
// Both files must be present and readable.
func LoadArtifact(dir string) (*Pipeline, *schema.Schema, error) {
	s, err := schema.Load(filepath.Join(dir, SchemaFile))
	if err != nil {
		return nil, nil, xerrors.WrapWithNote("artifact schema", err)
	}

	f, err := os.Open(filepath.Join(dir, ModelFile))
	if err != nil {
		return nil, nil, xerrors.WrapWithNote("artifact pipeline", err)
	}
	defer f.Close()

	p := &Pipeline{}
	if err := gob.NewDecoder(f).Decode(p); err != nil {
		return nil, nil, xerrors.WrapWithNote("broken pipeline artifact", err)
	}
	if p.Transformer == nil || p.Model == nil {
		return nil, nil, xerrors.New("pipeline artifact misses transformer or model")
	}

	// the schema and the transformer must describe the same field set
	names := map[string]bool{}
	for _, n := range p.Transformer.NumericNames {
		names[n] = true
	}
	for _, n := range p.Transformer.CategoricalNames {
		names[n] = true
	}
	if len(names) != len(s.Fields) {
		return nil, nil, xerrors.New("schema and pipeline disagree on the field set")
	}
	for _, f := range s.Fields {
		if !names[f.Name] {
			return nil, nil, xerrors.New("schema field unknown to pipeline: " + f.Name)
		}
	}

	return p, s, nil
}
