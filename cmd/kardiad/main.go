package main

import (
	"context"
	"flag"
	"log"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/kardialab/kardia/pkg/auth"
	kcs "github.com/kardialab/kardia/pkg/configs/server"
	"github.com/kardialab/kardia/pkg/domain/pipeline"
	"github.com/kardialab/kardia/pkg/metrics"
	"github.com/kardialab/kardia/pkg/serving"
	"github.com/kardialab/kardia/pkg/utils/echoutil"
	"github.com/kardialab/kardia/pkg/utils/filewatch"

	"github.com/kardialab/kardia/cmd/kardiad/handlers"
)

func main() {

	configPath := flag.String("config-path", "", "server config path")
	loglevel := flag.String("loglevel", "info", "log level. debug|info|warn|error|off")
	pcert := flag.String("cert", "", "certification file for TLS")
	pkey := flag.String("certkey", "", "key of certification file for TLS")
	flag.Parse()

	e := echo.New()

	// set log
	echoutil.SetLevel(e, *loglevel)
	e.HTTPErrorHandler = func(err error, ctx echo.Context) {
		e.DefaultHTTPErrorHandler(err, ctx)
		e.Logger.Error(err)
	}
	e.Use(echoutil.LogHandlerFunc)

	// read configfile
	conf := &kcs.ServerConfig{}
	if *configPath != "" {
		c, err := kcs.LoadServerConfig(*configPath)
		if err != nil {
			log.Fatalf("can not read configration: %s", err)
		}
		conf = c
	} else {
		c, err := kcs.Unmarshal([]byte("{}"))
		if err != nil {
			log.Fatalf("can not build default configration: %s", err)
		}
		conf = c
	}

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: corsOrigins(conf),
	}))

	exporter := metrics.NewExporter()
	e.Use(exporter.Middleware())

	// load the model artifact. a missing artifact is not fatal: the server
	// starts anyway and /api/health reports model_loaded = false.
	var model serving.Model
	if m, err := serving.Load(conf.ModelDir); err != nil {
		log.Printf("can not load model from %s: %s", conf.ModelDir, err)
	} else {
		model = m
	}

	// quit when the artifact changes on disk. the supervisor restarts the
	// process and the new model is picked up at the next startup.
	watched := []string{conf.ModelDir}
	if model != nil {
		watched = []string{
			filepath.Join(conf.ModelDir, pipeline.ModelFile),
			filepath.Join(conf.ModelDir, pipeline.SchemaFile),
		}
	}
	ctx, cancel, err := filewatch.UntilModifyContext(context.Background(), watched...)
	if err != nil {
		log.Printf("can not watch model artifact: %s", err)
	} else {
		defer cancel()
		context.AfterFunc(ctx, func() {
			log.Println("model artifact is updated. quit to restart server.")
			graceful, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := e.Shutdown(graceful); err != nil {
				log.Printf("error on shutdown by model artifact update: %s", err)
			}
		})
	}

	// handlers
	{
		guarded := e.Group("/api", auth.Middleware(conf.AuthSecret))
		guarded.POST("/predict", handlers.PredictHandler(model))
		guarded.POST("/predict/batch", handlers.BatchPredictHandler(model))
		guarded.GET("/model", handlers.ModelInfoHandler(model))

		e.GET("/api/health", handlers.HealthHandler(model))
		e.GET("/metrics", echo.WrapHandler(exporter.Handler()))
	}

	log.Println("registred routes:")
	for _, r := range e.Routes() {
		log.Println(r.Method, r.Path)
	}

	cert, key := *pcert, *pkey
	if cert != "" && key != "" {
		e.Logger.Fatal(e.StartTLS(":"+conf.ServerPort, cert, key))
	} else {
		e.Logger.Fatal(e.Start(":" + conf.ServerPort))
	}
}

func corsOrigins(conf *kcs.ServerConfig) []string {
	if len(conf.CORSOrigins) == 0 {
		return []string{"*"}
	}
	return conf.CORSOrigins
}
