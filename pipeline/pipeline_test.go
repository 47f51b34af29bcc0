package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gonum.org/v1/gonum/mat"

	"github.com/BiggestM/EMNISTByClass/classify"
	"github.com/BiggestM/EMNISTByClass/common"
	"github.com/BiggestM/EMNISTByClass/dataset"
	"github.com/BiggestM/EMNISTByClass/pipeline"
	"github.com/BiggestM/EMNISTByClass/scale"
	"github.com/BiggestM/EMNISTByClass/symbols"
)

const (
	dir       = "/data"
	trainFile = "train.csv"
	testFile  = "test.csv"
	mapFile   = "mapping.txt"
)

// blankRecords returns one all-zero 28x28 record per label.
func blankRecords(labels ...int) string {
	pix := strings.TrimSuffix(strings.Repeat("0,", dataset.EMNIST.Size()), ",")
	var b strings.Builder
	for _, l := range labels {
		fmt.Fprintf(&b, "%d,%s\n", l, pix)
	}
	return b.String()
}

func digits() []int { return []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9} }

const digitMapping = "0 48\n1 49\n2 50\n3 51\n4 52\n5 53\n6 54\n7 55\n8 56\n9 57\n"

// countingSource records which splits were opened.
type countingSource struct {
	dataset.Source
	opened []dataset.Split
}

func (c *countingSource) Open(split dataset.Split) (io.ReadCloser, string, error) {
	c.opened = append(c.opened, split)
	return c.Source.Open(split)
}

// brokenClassifier fails on Fit, or returns too few predictions.
type brokenClassifier struct {
	fitErr error
	short  bool
}

func (b *brokenClassifier) Fit(mat.Matrix, []int) error { return b.fitErr }

func (b *brokenClassifier) Predict(inputs mat.Matrix) ([]int, error) {
	rows, _ := inputs.Dims()
	if b.short {
		rows--
	}
	return make([]int, rows), nil
}

var _ = Describe("Pipeline", func() {
	var (
		fs      afero.Fs
		src     *countingSource
		mapping pipeline.MappingLoader
	)

	write := func(name, content string) {
		Expect(afero.WriteFile(fs, dir+"/"+name, []byte(content), 0o644)).To(Succeed())
	}

	BeforeEach(func() {
		fs = afero.NewMemMapFs()
		src = &countingSource{Source: dataset.NewDirSource(fs, dir, trainFile, testFile)}
		mapping = func() (*symbols.Mapping, error) {
			return symbols.LoadFile(fs, dir+"/"+mapFile)
		}
		write(mapFile, digitMapping)
		write(trainFile, blankRecords(digits()...))
		write(testFile, blankRecords(digits()...))
	})

	Context("with blank images", func() {
		It("splits, scales and scores every partition", func() {
			res, err := pipeline.New(src, mapping, &classify.Majority{}).Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Report.Validation.Examples).To(Equal(2))
			Expect(res.Report.Test.Examples).To(Equal(10))
			// The majority label is drawn from the training partition, so it
			// never appears in validation and appears once in test.
			Expect(res.Report.Validation.Accuracy).To(Equal(0.0))
			Expect(res.Report.Test.Accuracy).To(BeNumerically("~", 0.1, 1e-12))
			Expect(res.Report.RunID).NotTo(BeEmpty())
			Expect(res.Report.Classifier).To(Equal("*classify.Majority"))
			Expect(res.Symbols.Label(7)).To(Equal("7"))

			n, ok := res.Scaler.(*scale.Normal)
			Expect(ok).To(BeTrue())
			Expect(n.Dim).To(Equal(784))
			Expect(n.Constant).To(HaveLen(784))
			for j := 0; j < n.Dim; j++ {
				Expect(n.Mu[j]).To(Equal(0.0))
				Expect(n.Sigma[j]).To(Equal(1.0))
			}
		})

		It("is reproducible for a fixed seed", func() {
			first, err := pipeline.New(src, mapping, &classify.Centroid{}, pipeline.WithSeed(7)).Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			second, err := pipeline.New(src, mapping, &classify.Centroid{}, pipeline.WithSeed(7)).Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Report.Validation).To(Equal(first.Report.Validation))
			Expect(second.Report.Test).To(Equal(first.Report.Test))
			Expect(second.Report.RunID).NotTo(Equal(first.Report.RunID))
		})

		It("adds per-class scores on request", func() {
			res, err := pipeline.New(src, mapping, &classify.Majority{},
				pipeline.WithPerClass(true),
				pipeline.WithClassifierName("majority"),
			).Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Report.Classifier).To(Equal("majority"))
			Expect(res.Report.Test.Classes).To(HaveLen(10))
			Expect(res.Report.Validation.Classes).To(HaveLen(2))
		})
	})

	It("aborts on a duplicate mapping index before reading any records", func() {
		write(mapFile, "0 65\n0 66\n")
		_, err := pipeline.New(src, mapping, &classify.Majority{}).Run(context.Background())
		Expect(err).To(MatchError(common.ErrMalformedMapping))

		var stageErr *common.StageError
		Expect(errors.As(err, &stageErr)).To(BeTrue())
		Expect(stageErr.Stage).To(Equal(pipeline.StageLoadMapping))
		Expect(src.opened).To(BeEmpty())
	})

	It("names the line of a short record", func() {
		write(trainFile, blankRecords(0, 1)+"2,"+strings.TrimSuffix(strings.Repeat("0,", 783), ",")+"\n")
		_, err := pipeline.New(src, mapping, &classify.Majority{}).Run(context.Background())
		Expect(err).To(MatchError(common.ErrMalformedRecord))

		var rec *common.RecordError
		Expect(errors.As(err, &rec)).To(BeTrue())
		Expect(rec.Line).To(Equal(3))
		Expect(src.opened).To(Equal([]dataset.Split{dataset.Training}))
	})

	It("rejects an out of range validation fraction", func() {
		_, err := pipeline.New(src, mapping, &classify.Majority{}, pipeline.WithValidationFraction(1)).Run(context.Background())
		Expect(err).To(MatchError(common.ErrInvalidFraction))
	})

	It("reports classifier failures with their cause", func() {
		cause := errors.New("out of memory")
		_, err := pipeline.New(src, mapping, &brokenClassifier{fitErr: cause}).Run(context.Background())
		Expect(err).To(MatchError(common.ErrClassifierFailure))
		Expect(err).To(MatchError(cause))
	})

	It("rejects a prediction count that differs from the inputs", func() {
		_, err := pipeline.New(src, mapping, &brokenClassifier{short: true}).Run(context.Background())
		Expect(err).To(MatchError(common.ErrClassifierFailure))
		Expect(err).To(MatchError(common.ErrLengthMismatch))

		var stageErr *common.StageError
		Expect(errors.As(err, &stageErr)).To(BeTrue())
		Expect(stageErr.Stage).To(Equal(pipeline.StagePredictValidation))
	})

	It("traces every stage under one run span", func() {
		rec := tracetest.NewSpanRecorder()
		tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

		_, err := pipeline.New(src, mapping, &classify.Majority{}, pipeline.WithTracerProvider(tp)).Run(context.Background())
		Expect(err).NotTo(HaveOccurred())

		var names []string
		var root sdktrace.ReadOnlySpan
		for _, s := range rec.Ended() {
			names = append(names, s.Name())
			if s.Name() == "pipeline.run" {
				root = s
			}
		}
		Expect(names).To(Equal([]string{
			pipeline.StageLoadMapping,
			pipeline.StageLoadTraining,
			pipeline.StageLoadTesting,
			pipeline.StagePartition,
			pipeline.StageFeatures,
			pipeline.StageFitScaler,
			pipeline.StageTransform,
			pipeline.StageFitClassifier,
			pipeline.StagePredictValidation,
			pipeline.StageEvaluateValidation,
			pipeline.StagePredictTest,
			pipeline.StageEvaluateTest,
			"pipeline.run",
		}))
		Expect(root).NotTo(BeNil())
		for _, s := range rec.Ended() {
			Expect(s.SpanContext().TraceID()).To(Equal(root.SpanContext().TraceID()))
		}
	})

	It("updates the run metrics", func() {
		reg := prometheus.NewRegistry()
		m := pipeline.NewMetrics(reg)

		_, err := pipeline.New(src, mapping, &classify.Majority{}, pipeline.WithMetrics(m)).Run(context.Background())
		Expect(err).NotTo(HaveOccurred())

		Expect(testutil.ToFloat64(m.RecordsLoaded.WithLabelValues("training"))).To(Equal(10.0))
		Expect(testutil.ToFloat64(m.RecordsLoaded.WithLabelValues("testing"))).To(Equal(10.0))
		Expect(testutil.ToFloat64(m.Accuracy.WithLabelValues("test"))).To(BeNumerically("~", 0.1, 1e-12))
		Expect(testutil.ToFloat64(m.ConstantFeatures)).To(Equal(784.0))
		Expect(testutil.CollectAndCount(m.StageDuration)).To(Equal(12))
	})
})
