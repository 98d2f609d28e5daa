package tracking_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kardialab/kardia/pkg/tracking"
	"github.com/kardialab/kardia/pkg/utils/try"
)

func TestFileStore(t *testing.T) {
	t.Run("it lists recorded runs newest first", func(t *testing.T) {
		ctx := context.Background()
		store := try.To(tracking.NewFileStore(t.TempDir())).OrFatal(t)
		defer store.Close()

		older := tracking.NewRun("logistic_regression", map[string]any{"C": 1.0})
		older.CVScore = 0.91
		older.Metrics = map[string]float64{"accuracy": 0.88}
		older.CreatedAt = time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)

		newer := tracking.NewRun("random_forest", map[string]any{"n_estimators": 100})
		newer.CVScore = 0.94
		newer.ArtifactRef = "models/model.gob"
		newer.CreatedAt = time.Date(2024, 4, 1, 11, 0, 0, 0, time.UTC)

		if err := store.Record(ctx, older); err != nil {
			t.Fatal(err)
		}
		if err := store.Record(ctx, newer); err != nil {
			t.Fatal(err)
		}

		runs := try.To(store.List(ctx)).OrFatal(t)
		if len(runs) != 2 {
			t.Fatalf("unexpected run count: %d", len(runs))
		}
		if runs[0].ID != newer.ID || runs[1].ID != older.ID {
			t.Errorf("runs are not newest first: %s, %s", runs[0].ID, runs[1].ID)
		}
		if runs[0].ArtifactRef != "models/model.gob" {
			t.Errorf("unexpected artifact ref: %s", runs[0].ArtifactRef)
		}
		if runs[1].CVScore != 0.91 {
			t.Errorf("unexpected cv score: %f", runs[1].CVScore)
		}
		if runs[1].Metrics["accuracy"] != 0.88 {
			t.Errorf("unexpected metrics: %v", runs[1].Metrics)
		}
	})

	t.Run("it round-trips params through JSON", func(t *testing.T) {
		ctx := context.Background()
		store := try.To(tracking.NewFileStore(t.TempDir())).OrFatal(t)
		defer store.Close()

		run := tracking.NewRun("random_forest", map[string]any{
			"n_estimators": 200, "max_depth": 5,
		})
		if err := store.Record(ctx, run); err != nil {
			t.Fatal(err)
		}

		runs := try.To(store.List(ctx)).OrFatal(t)
		if len(runs) != 1 {
			t.Fatalf("unexpected run count: %d", len(runs))
		}
		// JSON numbers decode as float64
		if got := runs[0].Params["n_estimators"]; got != 200.0 {
			t.Errorf("unexpected param: %v", got)
		}
	})

	t.Run("it leaves no temporary files behind", func(t *testing.T) {
		ctx := context.Background()
		dir := t.TempDir()
		store := try.To(tracking.NewFileStore(dir)).OrFatal(t)
		defer store.Close()

		if err := store.Record(ctx, tracking.NewRun("logistic_regression", nil)); err != nil {
			t.Fatal(err)
		}

		entries := try.To(os.ReadDir(dir)).OrFatal(t)
		for _, entry := range entries {
			if strings.HasSuffix(entry.Name(), ".tmp") {
				t.Errorf("leftover temporary file: %s", entry.Name())
			}
		}
	})

	t.Run("it ignores unrelated files in the directory", func(t *testing.T) {
		ctx := context.Background()
		dir := t.TempDir()
		store := try.To(tracking.NewFileStore(dir)).OrFatal(t)
		defer store.Close()

		if err := os.WriteFile(filepath.Join(dir, "README"), []byte("runs"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := store.Record(ctx, tracking.NewRun("logistic_regression", nil)); err != nil {
			t.Fatal(err)
		}

		runs := try.To(store.List(ctx)).OrFatal(t)
		if len(runs) != 1 {
			t.Errorf("unexpected run count: %d", len(runs))
		}
	})

	t.Run("it rejects an empty directory path", func(t *testing.T) {
		if _, err := tracking.NewFileStore(""); err == nil {
			t.Error("expected an error")
		}
	})

	t.Run("it fails on a broken run record", func(t *testing.T) {
		ctx := context.Background()
		dir := t.TempDir()
		store := try.To(tracking.NewFileStore(dir)).OrFatal(t)
		defer store.Close()

		if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := store.List(ctx); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestNew(t *testing.T) {
	t.Run("it opens a file store for a plain directory path", func(t *testing.T) {
		store := try.To(tracking.New(context.Background(), t.TempDir())).OrFatal(t)
		defer store.Close()
		if _, ok := store.(*tracking.FileStore); !ok {
			t.Errorf("unexpected store type: %T", store)
		}
	})
}
