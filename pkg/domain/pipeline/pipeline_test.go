package pipeline_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kardialab/kardia/pkg/domain/dataset"
	"github.com/kardialab/kardia/pkg/domain/model"
	"github.com/kardialab/kardia/pkg/domain/pipeline"
	"github.com/kardialab/kardia/pkg/domain/preprocess"
	"github.com/kardialab/kardia/pkg/domain/schema"
	"github.com/kardialab/kardia/pkg/utils/try"
)

// a small table where the label follows the age column
const trainCSV = `age,chol,cp,target
40,200,0,0
42,210,1,0
44,195,0,0
46,220,2,0
48,230,1,0
60,240,2,1
62,250,3,1
64,245,2,1
66,260,3,1
68,255,3,1
`

func fitted(t *testing.T) (*pipeline.Pipeline, *schema.Schema) {
	t.Helper()
	tbl := try.To(dataset.Read(strings.NewReader(trainCSV))).OrFatal(t)
	y := try.To(tbl.Label("target")).OrFatal(t)
	s := try.To(schema.FromTable(tbl, []string{"age", "chol"}, []string{"cp"})).OrFatal(t)

	p := pipeline.New(preprocess.FromSchema(s), model.NewLogisticRegression(1.0))
	try.To(0, p.Fit(tbl, y)).OrFatal(t)
	return p, s
}

func TestPipeline(t *testing.T) {

	t.Run("labels follow the threshold", func(t *testing.T) {
		p, _ := fitted(t)
		rows := []schema.Row{
			{"age": 41, "chol": 205, "cp": 0},
			{"age": 67, "chol": 258, "cp": 3},
		}
		labels, proba, err := p.Predict(rows)
		if err != nil {
			t.Fatal(err)
		}
		for i := range rows {
			want := 0
			if proba[i] >= p.Threshold {
				want = 1
			}
			if labels[i] != want {
				t.Errorf("row %d: label %d does not match proba %v", i, labels[i], proba[i])
			}
		}
		if labels[0] != 0 || labels[1] != 1 {
			t.Errorf("separable rows misclassified: %v (proba %v)", labels, proba)
		}
	})

	t.Run("identical rows give identical output", func(t *testing.T) {
		p, _ := fitted(t)
		row := schema.Row{"age": 55, "chol": 230, "cp": 1}
		_, p1, err := p.Predict([]schema.Row{row})
		if err != nil {
			t.Fatal(err)
		}
		_, p2, err := p.Predict([]schema.Row{row})
		if err != nil {
			t.Fatal(err)
		}
		if p1[0] != p2[0] {
			t.Errorf("inference is not deterministic: %v vs %v", p1[0], p2[0])
		}
	})
}

func TestArtifact(t *testing.T) {

	t.Run("a saved pipeline loads back and scores identically", func(t *testing.T) {
		p, s := fitted(t)
		dir := t.TempDir()
		if err := pipeline.SaveArtifact(dir, p, s); err != nil {
			t.Fatal(err)
		}

		loaded, loadedSchema, err := pipeline.LoadArtifact(dir)
		if err != nil {
			t.Fatal(err)
		}
		if len(loadedSchema.Fields) != len(s.Fields) {
			t.Errorf("schema changed on round trip")
		}

		row := schema.Row{"age": 63, "chol": 233, "cp": 3}
		before := try.To(p.PredictProba([]schema.Row{row})).OrFatal(t)
		after := try.To(loaded.PredictProba([]schema.Row{row})).OrFatal(t)
		if before[0] != after[0] {
			t.Errorf("probability drifted across serialization: %v vs %v", before[0], after[0])
		}
	})

	t.Run("a random forest pipeline survives the round trip", func(t *testing.T) {
		tbl := try.To(dataset.Read(strings.NewReader(trainCSV))).OrFatal(t)
		y := try.To(tbl.Label("target")).OrFatal(t)
		s := try.To(schema.FromTable(tbl, []string{"age", "chol"}, []string{"cp"})).OrFatal(t)

		p := pipeline.New(
			preprocess.FromSchema(s),
			model.NewRandomForest(model.WithNEstimators(5), model.WithForestSeed(3)),
		)
		try.To(0, p.Fit(tbl, y)).OrFatal(t)

		dir := t.TempDir()
		if err := pipeline.SaveArtifact(dir, p, s); err != nil {
			t.Fatal(err)
		}
		loaded, _, err := pipeline.LoadArtifact(dir)
		if err != nil {
			t.Fatal(err)
		}

		row := schema.Row{"age": 63, "chol": 233, "cp": 3}
		before := try.To(p.PredictProba([]schema.Row{row})).OrFatal(t)
		after := try.To(loaded.PredictProba([]schema.Row{row})).OrFatal(t)
		if before[0] != after[0] {
			t.Errorf("probability drifted across serialization: %v vs %v", before[0], after[0])
		}
	})

	t.Run("loading a pipeline without its schema is rejected", func(t *testing.T) {
		p, s := fitted(t)
		dir := t.TempDir()
		if err := pipeline.SaveArtifact(dir, p, s); err != nil {
			t.Fatal(err)
		}
		if err := os.Remove(filepath.Join(dir, pipeline.SchemaFile)); err != nil {
			t.Fatal(err)
		}
		if _, _, err := pipeline.LoadArtifact(dir); err == nil {
			t.Error("pipeline without schema loaded")
		}
	})

	t.Run("loading a schema without its pipeline is rejected", func(t *testing.T) {
		p, s := fitted(t)
		dir := t.TempDir()
		if err := pipeline.SaveArtifact(dir, p, s); err != nil {
			t.Fatal(err)
		}
		if err := os.Remove(filepath.Join(dir, pipeline.ModelFile)); err != nil {
			t.Fatal(err)
		}
		if _, _, err := pipeline.LoadArtifact(dir); err == nil {
			t.Error("schema without pipeline loaded")
		}
	})

	t.Run("a schema from a different field set is rejected", func(t *testing.T) {
		p, s := fitted(t)
		dir := t.TempDir()
		if err := pipeline.SaveArtifact(dir, p, s); err != nil {
			t.Fatal(err)
		}

		other := &schema.Schema{Fields: []schema.Field{
			{Name: "bloodtype", Kind: schema.Categorical, Levels: []float64{0, 1}},
			{Name: "age", Kind: schema.Numeric},
			{Name: "chol", Kind: schema.Numeric},
		}}
		if err := other.Save(filepath.Join(dir, pipeline.SchemaFile)); err != nil {
			t.Fatal(err)
		}
		if _, _, err := pipeline.LoadArtifact(dir); err == nil {
			t.Error("mismatched schema accepted")
		}
	})

	t.Run("no temporary files are left behind", func(t *testing.T) {
		p, s := fitted(t)
		dir := t.TempDir()
		if err := pipeline.SaveArtifact(dir, p, s); err != nil {
			t.Fatal(err)
		}
		entries := try.To(os.ReadDir(dir)).OrFatal(t)
		for _, e := range entries {
			if strings.HasSuffix(e.Name(), ".tmp") {
				t.Errorf("temporary file left behind: %s", e.Name())
			}
		}
	})
}
