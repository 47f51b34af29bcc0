package common

import "gonum.org/v1/gonum/mat"

// Classifier is the capability any learning algorithm must provide to be
// driven by the pipeline. Inputs are row matrices of scaled features; labels
// are class indices aligned with the rows.
//
// Fit trains the classifier in place. Predict must return exactly one label per
// input row. Implementations must not modify inputs or labels.
type Classifier interface {
	Fit(inputs mat.Matrix, labels []int) error
	Predict(inputs mat.Matrix) ([]int, error)
}
