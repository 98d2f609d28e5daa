package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	kct "github.com/kardialab/kardia/pkg/configs/trainer"
	"github.com/kardialab/kardia/pkg/domain/dataset"
	"github.com/kardialab/kardia/pkg/domain/pipeline"
	"github.com/kardialab/kardia/pkg/domain/schema"
	"github.com/kardialab/kardia/pkg/domain/train"
	"github.com/kardialab/kardia/pkg/tracking"
)

func main() {

	configPath := flag.String("config-path", "", "trainer config path")
	dataPath := flag.String("data", "", "training CSV. overrides the config")
	fast := flag.Bool("fast", false, "search a reduced hyperparameter grid")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	conf := loadConfig(*configPath)
	if *dataPath != "" {
		conf.DataPath = *dataPath
	}

	tbl, err := dataset.Load(conf.DataPath)
	if err != nil {
		log.Fatalf("can not read dataset %s: %s", conf.DataPath, err)
	}
	y, err := tbl.Label(conf.Label)
	if err != nil {
		log.Fatalf("label column %s is broken: %s", conf.Label, err)
	}
	s, err := schema.FromTable(tbl, conf.Numeric, conf.Categorical)
	if err != nil {
		log.Fatalf("can not derive schema: %s", err)
	}
	log.Printf(
		"dataset %s: %d rows, %d features",
		conf.DataPath, tbl.NumRows(), len(s.Fields),
	)

	tracker, err := tracking.New(ctx, conf.TrackingURI)
	if err != nil {
		log.Fatalf("can not open run store %s: %s", conf.TrackingURI, err)
	}
	defer tracker.Close()

	result, err := train.Run(ctx, tbl, y, s, train.Options{
		Fast:        *fast,
		Folds:       conf.Folds,
		TestRatio:   conf.TestRatio,
		Seed:        conf.Seed,
		ArtifactRef: filepath.Join(conf.ModelDir, pipeline.ModelFile),
	}, tracker)
	if err != nil {
		log.Fatalf("training failed: %s", err)
	}

	for _, fr := range result.PerFamily {
		log.Printf(
			"family %s: cv roc_auc = %.4f, holdout roc_auc = %.4f, accuracy = %.4f",
			fr.Family, fr.CVScore, fr.Holdout.ROCAUC, fr.Holdout.Accuracy,
		)
	}
	log.Printf("winner: %s %v", result.Best.Family, result.Best.BestParams)

	if err := pipeline.SaveArtifact(conf.ModelDir, result.Pipeline, s); err != nil {
		log.Fatalf("can not save model artifact: %s", err)
	}
	log.Printf("model artifact saved under %s", conf.ModelDir)
}

func loadConfig(path string) *kct.TrainerConfig {
	if path == "" {
		conf, err := kct.Unmarshal([]byte("{}"))
		if err != nil {
			log.Fatalf("can not build default configration: %s", err)
		}
		return conf
	}
	conf, err := kct.LoadTrainerConfig(path)
	if err != nil {
		log.Fatalf("can not read configration: %s", err)
	}
	return conf
}
