package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/BiggestM/EMNISTByClass/classify"
	"github.com/BiggestM/EMNISTByClass/config"
	"github.com/BiggestM/EMNISTByClass/dataset"
	"github.com/BiggestM/EMNISTByClass/pipeline"
	"github.com/BiggestM/EMNISTByClass/scale"
	"github.com/BiggestM/EMNISTByClass/symbols"
)

func runPipeline(ctx context.Context, fs afero.Fs, cfg *config.Config, log logr.Logger, stdout, stderr io.Writer) error {
	if _, err := scale.New(cfg.Scaler); err != nil {
		return err
	}
	clf, err := classify.New(cfg.Classifier.Name, cfg.Classifier.K)
	if err != nil {
		return err
	}

	opts := []pipeline.Option{
		pipeline.WithShape(dataset.Shape{Rows: cfg.Height, Cols: cfg.Width}),
		pipeline.WithValidationFraction(cfg.ValidationFraction),
		pipeline.WithSeed(cfg.Seed),
		pipeline.WithScaler(func() scale.Scaler {
			s, _ := scale.New(cfg.Scaler)
			return s
		}),
		pipeline.WithClassifierName(cfg.Classifier.Name),
		pipeline.WithPerClass(cfg.Report.PerClass),
		pipeline.WithLogger(log.WithName("pipeline")),
	}

	if cfg.Trace {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(stderr), stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("error creating trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
		defer func() {
			if err := tp.Shutdown(context.WithoutCancel(ctx)); err != nil {
				log.Error(err, "trace shutdown failed")
			}
		}()
		opts = append(opts, pipeline.WithTracerProvider(tp))
	}

	var reg *prometheus.Registry
	if cfg.MetricsFile != "" {
		reg = prometheus.NewRegistry()
		opts = append(opts, pipeline.WithMetrics(pipeline.NewMetrics(reg)))
	}

	src := dataset.NewDirSource(fs, cfg.DataDir, cfg.TrainFile, cfg.TestFile)
	mapping := func() (*symbols.Mapping, error) {
		return symbols.LoadFile(fs, filepath.Join(cfg.DataDir, cfg.MappingFile))
	}

	log.Info("starting run", "dataDir", cfg.DataDir, "classifier", cfg.Classifier.Name, "scaler", cfg.Scaler)
	res, runErr := pipeline.New(src, mapping, clf, opts...).Run(ctx)

	// Metrics are written for failed runs too.
	if reg != nil {
		if err := prometheus.WriteToTextfile(cfg.MetricsFile, reg); err != nil {
			log.Error(err, "writing metrics failed", "path", cfg.MetricsFile)
		}
	}
	if runErr != nil {
		return runErr
	}

	switch cfg.Report.Format {
	case "yaml":
		return res.Report.WriteYAML(stdout)
	default:
		return res.Report.WriteText(stdout, res.Symbols)
	}
}
