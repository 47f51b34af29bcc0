package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the Prometheus collectors updated by a run.
type Metrics struct {
	RecordsLoaded    *prometheus.CounterVec
	Accuracy         *prometheus.GaugeVec
	StageDuration    *prometheus.HistogramVec
	ConstantFeatures prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RecordsLoaded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "emnist",
			Name:      "records_loaded_total",
			Help:      "Records parsed from the dataset, by split.",
		}, []string{"split"}),
		Accuracy: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "emnist",
			Name:      "accuracy_ratio",
			Help:      "Fraction of correctly classified examples, by partition.",
		}, []string{"partition"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "emnist",
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage"}),
		ConstantFeatures: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "emnist",
			Name:      "constant_features",
			Help:      "Features with a single value across the training partition.",
		}),
	}
}

func (m *Metrics) observeStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) addRecords(split string, n int) {
	if m == nil {
		return
	}
	m.RecordsLoaded.WithLabelValues(split).Add(float64(n))
}

func (m *Metrics) setAccuracy(partition string, v float64) {
	if m == nil {
		return
	}
	m.Accuracy.WithLabelValues(partition).Set(v)
}

func (m *Metrics) setConstant(n int) {
	if m == nil {
		return
	}
	m.ConstantFeatures.Set(float64(n))
}
