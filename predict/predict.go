// Package predict provides a set of helper routines for predicting
package predict

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/BiggestM/EMNISTByClass/common"
)

// BatchPredictor hands out row predictors. Each parallel worker gets its own
// predictor so implementations can keep scratch memory without locking.
type BatchPredictor interface {
	NewPredictor() Predictor
}

// Predictor classifies a single feature row.
type Predictor interface {
	Predict(input []float64) int
}

// Batch predicts one label per row of inputs in parallel. inputDim is the
// number of features the predictor expects.
func Batch(batch BatchPredictor, inputs mat.Matrix, inputDim int) ([]int, error) {
	nSamples, dimInputs := inputs.Dims()
	if inputDim != dimInputs {
		return nil, fmt.Errorf("%w: inputs have %d features, want %d", common.ErrDimensionMismatch, dimInputs, inputDim)
	}
	outputs := make([]int, nSamples)

	// If the input is a RawRowViewer, save time by avoiding a copy
	var f func(start, end int)
	if rv, ok := inputs.(mat.RawRowViewer); ok {
		f = func(start, end int) {
			p := batch.NewPredictor()
			for i := start; i < end; i++ {
				outputs[i] = p.Predict(rv.RawRowView(i))
			}
		}
	} else {
		f = func(start, end int) {
			p := batch.NewPredictor()
			input := make([]float64, inputDim)
			for i := start; i < end; i++ {
				mat.Row(input, i, inputs)
				outputs[i] = p.Predict(input)
			}
		}
	}

	grain := common.GetGrainSize(nSamples, 1, 500)
	common.ParallelFor(nSamples, grain, f)
	return outputs, nil
}
