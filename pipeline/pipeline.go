// Package pipeline runs the character classification workflow end to end:
//
//	load mapping -> load training -> load testing -> partition ->
//	features -> fit scaler -> transform -> fit classifier ->
//	predict/evaluate validation -> predict/evaluate test
//
// Stages run strictly in order and each consumes only the outputs of the
// stages before it. The first failing stage aborts the run; its error is
// wrapped in a *common.StageError naming the stage.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gonum.org/v1/gonum/mat"

	"github.com/BiggestM/EMNISTByClass/common"
	"github.com/BiggestM/EMNISTByClass/dataset"
	"github.com/BiggestM/EMNISTByClass/evaluate"
	"github.com/BiggestM/EMNISTByClass/partition"
	"github.com/BiggestM/EMNISTByClass/scale"
	"github.com/BiggestM/EMNISTByClass/symbols"
)

const tracerName = "github.com/BiggestM/EMNISTByClass/pipeline"

// Stage names, used in errors, spans, logs and metrics.
const (
	StageLoadMapping        = "load-mapping"
	StageLoadTraining       = "load-training"
	StageLoadTesting        = "load-testing"
	StagePartition          = "partition"
	StageFeatures           = "features"
	StageFitScaler          = "fit-scaler"
	StageTransform          = "transform"
	StageFitClassifier      = "fit-classifier"
	StagePredictValidation  = "predict-validation"
	StageEvaluateValidation = "evaluate-validation"
	StagePredictTest        = "predict-test"
	StageEvaluateTest       = "evaluate-test"
)

// MappingLoader returns the class index to character table.
type MappingLoader func() (*symbols.Mapping, error)

// Pipeline wires a dataset source, a symbol table and a classifier.
type Pipeline struct {
	data       dataset.Source
	mapping    MappingLoader
	classifier common.Classifier

	shape          dataset.Shape
	fraction       float64
	seed           int64
	intensity      float64
	newScaler      func() scale.Scaler
	classifierName string
	perClass       bool

	log     logr.Logger
	tracer  trace.Tracer
	metrics *Metrics
}

// New returns a Pipeline reading records from data and the symbol table from
// mapping, and training clf.
func New(data dataset.Source, mapping MappingLoader, clf common.Classifier, opts ...Option) *Pipeline {
	p := &Pipeline{
		data:       data,
		mapping:    mapping,
		classifier: clf,
		tracer:     otel.GetTracerProvider().Tracer(tracerName),
	}
	for _, opt := range defaultOptions() {
		opt(p)
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.classifierName == "" {
		p.classifierName = fmt.Sprintf("%T", clf)
	}
	return p
}

// Result is the outcome of a successful run.
type Result struct {
	Report  evaluate.Report
	Symbols *symbols.Mapping
	// Scaler is the fitted feature scaler. Its state was computed from the
	// training partition only.
	Scaler scale.Scaler
}

// partitions holds the examples of each partition, flattened to features.
type partitions struct {
	trainX, valX, testX *mat.Dense
	trainY, valY, testY []int
}

// Run executes every stage in order and returns the metrics of both
// evaluated partitions.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	log := p.log.WithValues("run.id", runID)
	ctx, span := p.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(attribute.String("run.id", runID)))
	defer span.End()

	res, err := p.run(ctx, log)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error(err, "run failed")
		return nil, err
	}
	res.Report.RunID = runID
	res.Report.Classifier = p.classifierName
	log.Info("run finished",
		"validation.accuracy", res.Report.Validation.Accuracy,
		"test.accuracy", res.Report.Test.Accuracy)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, log logr.Logger) (*Result, error) {
	var (
		mapping     *symbols.Mapping
		train, test *dataset.Dataset
		parts       partitions
		trainImages []dataset.Image
		valImages   []dataset.Image
	)
	res := &Result{Scaler: p.newScaler()}

	// The mapping is read first so a corrupt table aborts before any dataset
	// is read.
	err := p.stage(ctx, log, StageLoadMapping, func(span trace.Span) error {
		var err error
		mapping, err = p.mapping()
		if err != nil {
			return err
		}
		span.SetAttributes(attribute.Int("symbols.classes", mapping.Len()))
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Symbols = mapping

	load := func(split dataset.Split, out **dataset.Dataset) func(trace.Span) error {
		return func(span trace.Span) error {
			d, err := dataset.Load(p.data, split, p.shape)
			if err != nil {
				return err
			}
			*out = d
			p.metrics.addRecords(string(split), d.Len())
			span.SetAttributes(attribute.Int("data.samples", d.Len()))
			log.Info("loaded records", "split", string(split), "data.samples", d.Len())
			return nil
		}
	}
	if err := p.stage(ctx, log, StageLoadTraining, load(dataset.Training, &train)); err != nil {
		return nil, err
	}
	if err := p.stage(ctx, log, StageLoadTesting, load(dataset.Testing, &test)); err != nil {
		return nil, err
	}

	err = p.stage(ctx, log, StagePartition, func(span trace.Span) error {
		var err error
		trainImages, parts.trainY, valImages, parts.valY, err = partition.Split(train.Images, train.Labels, p.fraction, p.seed)
		if err != nil {
			return err
		}
		parts.testY = test.Labels
		span.SetAttributes(
			attribute.Int("partition.train", len(parts.trainY)),
			attribute.Int("partition.validation", len(parts.valY)),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, log, StageFeatures, func(span trace.Span) error {
		var err error
		if parts.trainX, err = dataset.Features(trainImages, p.intensity); err != nil {
			return fmt.Errorf("training partition: %w", err)
		}
		if parts.valX, err = dataset.Features(valImages, p.intensity); err != nil {
			return fmt.Errorf("validation partition: %w", err)
		}
		if parts.testX, err = dataset.Features(test.Images, p.intensity); err != nil {
			return fmt.Errorf("test partition: %w", err)
		}
		_, dim := parts.trainX.Dims()
		span.SetAttributes(attribute.Int("data.features", dim))
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, log, StageFitScaler, func(span trace.Span) error {
		if err := res.Scaler.Fit(parts.trainX); err != nil {
			return err
		}
		constant := len(res.Scaler.ConstantDims())
		p.metrics.setConstant(constant)
		span.SetAttributes(attribute.Int("scale.constant_features", constant))
		log.Info("fitted scaler", "data.features", res.Scaler.Dimensions(), "scale.constant_features", constant)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, log, StageTransform, func(trace.Span) error {
		var err error
		if parts.trainX, err = scale.Transform(res.Scaler, parts.trainX); err != nil {
			return fmt.Errorf("training partition: %w", err)
		}
		if parts.valX, err = scale.Transform(res.Scaler, parts.valX); err != nil {
			return fmt.Errorf("validation partition: %w", err)
		}
		if parts.testX, err = scale.Transform(res.Scaler, parts.testX); err != nil {
			return fmt.Errorf("test partition: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, log, StageFitClassifier, func(trace.Span) error {
		if err := p.classifier.Fit(parts.trainX, parts.trainY); err != nil {
			return &common.ClassifierError{Op: "fit", Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Report.Validation, err = p.score(ctx, log, "validation", StagePredictValidation, StageEvaluateValidation, parts.valX, parts.valY)
	if err != nil {
		return nil, err
	}
	res.Report.Test, err = p.score(ctx, log, "test", StagePredictTest, StageEvaluateTest, parts.testX, parts.testY)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// score runs the predict and evaluate stages for one partition.
func (p *Pipeline) score(ctx context.Context, log logr.Logger, name, predictStage, evalStage string, x *mat.Dense, y []int) (evaluate.Metric, error) {
	var pred []int
	err := p.stage(ctx, log, predictStage, func(trace.Span) error {
		var err error
		pred, err = p.classifier.Predict(x)
		if err != nil {
			return &common.ClassifierError{Op: "predict", Err: err}
		}
		if rows, _ := x.Dims(); len(pred) != rows {
			return &common.ClassifierError{Op: "predict", Err: common.LengthMismatch{Want: rows, Got: len(pred)}}
		}
		return nil
	})
	if err != nil {
		return evaluate.Metric{}, err
	}

	m := evaluate.Metric{Partition: name, Examples: len(y)}
	err = p.stage(ctx, log, evalStage, func(span trace.Span) error {
		var err error
		if m.Accuracy, err = evaluate.Accuracy(y, pred); err != nil {
			return err
		}
		if p.perClass {
			if m.Classes, err = evaluate.PerClass(y, pred); err != nil {
				return err
			}
		}
		p.metrics.setAccuracy(name, m.Accuracy)
		span.SetAttributes(attribute.Float64("accuracy", m.Accuracy))
		return nil
	})
	return m, err
}

// stage runs f inside a span named after the stage, records its duration and
// wraps any error with the stage name.
func (p *Pipeline) stage(ctx context.Context, log logr.Logger, name string, f func(span trace.Span) error) error {
	_, span := p.tracer.Start(ctx, name)
	defer span.End()

	start := time.Now()
	err := f(span)
	elapsed := time.Since(start)
	p.metrics.observeStage(name, elapsed)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &common.StageError{Stage: name, Err: err}
	}
	log.V(1).Info("stage done", "stage", name, "duration", elapsed)
	return nil
}
