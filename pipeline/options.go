package pipeline

import (
	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/trace"

	"github.com/BiggestM/EMNISTByClass/dataset"
	"github.com/BiggestM/EMNISTByClass/partition"
	"github.com/BiggestM/EMNISTByClass/scale"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithShape sets the image shape of every record. Defaults to dataset.EMNIST.
func WithShape(s dataset.Shape) Option {
	return func(p *Pipeline) { p.shape = s }
}

// WithValidationFraction sets the share of training records held out for
// validation. Defaults to partition.DefaultFraction.
func WithValidationFraction(f float64) Option {
	return func(p *Pipeline) { p.fraction = f }
}

// WithSeed sets the partition seed. Defaults to partition.DefaultSeed.
func WithSeed(seed int64) Option {
	return func(p *Pipeline) { p.seed = seed }
}

// WithIntensity sets the value pixels are divided by before scaling.
// Defaults to 255.
func WithIntensity(v float64) Option {
	return func(p *Pipeline) { p.intensity = v }
}

// WithScaler sets the factory for the feature scaler. A new scaler is made
// for every run. Defaults to scale.Normal.
func WithScaler(newScaler func() scale.Scaler) Option {
	return func(p *Pipeline) { p.newScaler = newScaler }
}

// WithClassifierName sets the classifier name shown in the report.
func WithClassifierName(name string) Option {
	return func(p *Pipeline) { p.classifierName = name }
}

// WithPerClass adds per-class scores to the report.
func WithPerClass(on bool) Option {
	return func(p *Pipeline) { p.perClass = on }
}

// WithLogger sets the logger. Defaults to logr.Discard().
func WithLogger(log logr.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithTracerProvider sets where stage spans are sent. Defaults to the global
// otel provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Pipeline) { p.tracer = tp.Tracer(tracerName) }
}

// WithMetrics records run metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

func defaultOptions() []Option {
	return []Option{
		WithShape(dataset.EMNIST),
		WithValidationFraction(partition.DefaultFraction),
		WithSeed(partition.DefaultSeed),
		WithIntensity(255),
		WithScaler(func() scale.Scaler { return &scale.Normal{} }),
		WithLogger(logr.Discard()),
	}
}
