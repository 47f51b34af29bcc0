// Package scale learns per-feature normalization from training data and
// applies it to any other data with the same features.
//
// A Scaler is fitted exactly once. Transform only reads the fitted state, so
// scaling validation or test data can never change what was learned from the
// training data.
package scale

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/BiggestM/EMNISTByClass/common"
)

// ErrAlreadyFitted is returned when Fit is called on a fitted Scaler.
var ErrAlreadyFitted = errors.New("scale: already fitted")

// Scaler is an interface for transforming data so it is appropriately scaled
// for the learning algorithm. The data are the rows of a matrix.
type Scaler interface {
	Fit(data mat.Matrix) error   // Uses the rows of data to set the scale
	Scale(point []float64) error // Scales (in place) the data point
	IsFitted() bool              // Returns true if the scale has been set
	Dimensions() int             // Number of dimensions for which the data was scaled
	ConstantDims() []int         // Dimensions where every training value was equal
}

// New returns an unfitted Scaler by name: "standard" for Normal, "minmax"
// for Linear and "none" for None.
func New(name string) (Scaler, error) {
	switch name {
	case "standard", "":
		return &Normal{}, nil
	case "minmax":
		return &Linear{}, nil
	case "none":
		return &None{}, nil
	}
	return nil, fmt.Errorf("scale: unknown scaler %q", name)
}

type SliceError struct {
	Header string
	Idx    int
	Err    error
}

func (s *SliceError) Error() string {
	return fmt.Sprintf("%v: element %v, error %v", s.Header, s.Idx, s.Err)
}

func (s *SliceError) Unwrap() error { return s.Err }

type ErrorList []*SliceError

func (e ErrorList) Error() string {
	return fmt.Sprintf("%v errors found, first: %v", len(e), e[0])
}

func (e ErrorList) Unwrap() []error {
	errs := make([]error, len(e))
	for i, s := range e {
		errs[i] = s
	}
	return errs
}

// Transform returns a scaled copy of data. data is not modified. Rows are
// scaled in parallel. It fails with common.ErrNotFitted if the scaler has not
// been fitted, and common.ErrDimensionMismatch if the number of columns is not
// the fitted dimension.
func Transform(scaler Scaler, data mat.Matrix) (*mat.Dense, error) {
	if !scaler.IsFitted() {
		return nil, common.ErrNotFitted
	}
	nSamples, dim := data.Dims()
	if dim != scaler.Dimensions() {
		return nil, fmt.Errorf("%w: data has %d features, scaler fitted on %d",
			common.ErrDimensionMismatch, dim, scaler.Dimensions())
	}
	out := mat.DenseCopyOf(data)

	m := &sync.Mutex{}
	var e ErrorList
	f := func(start, end int) {
		for r := start; r < end; r++ {
			errTmp := scaler.Scale(out.RawRowView(r))
			if errTmp != nil {
				m.Lock()
				e = append(e, &SliceError{Header: "scale", Idx: r, Err: errTmp})
				m.Unlock()
			}
		}
	}
	grain := common.GetGrainSize(nSamples, 1, 500)
	common.ParallelFor(nSamples, grain, f)

	if len(e) != 0 {
		return nil, e
	}
	return out, nil
}

// FitTransform fits scaler on the training data and returns the scaled copy.
func FitTransform(scaler Scaler, train mat.Matrix) (*mat.Dense, error) {
	if err := scaler.Fit(train); err != nil {
		return nil, err
	}
	return Transform(scaler, train)
}

func checkFit(fitted bool, data mat.Matrix) (rows, dim int, err error) {
	if fitted {
		return 0, 0, ErrAlreadyFitted
	}
	rows, dim = data.Dims()
	if rows == 0 || dim == 0 {
		return 0, 0, common.ErrEmptyDataset
	}
	return rows, dim, nil
}

// None is a type specifying no transformation of the input should be done
type None struct {
	Dim    int // Dimensions
	Fitted bool
}

func (n *None) IsFitted() bool {
	return n.Fitted
}

func (n *None) Scale(x []float64) error {
	if len(x) != n.Dim {
		return common.ErrDimensionMismatch
	}
	return nil
}

func (n *None) Dimensions() int {
	return n.Dim
}

func (n *None) ConstantDims() []int { return nil }

func (n *None) Fit(data mat.Matrix) error {
	_, dim, err := checkFit(n.Fitted, data)
	if err != nil {
		return err
	}
	n.Dim = dim
	n.Fitted = true
	return nil
}

// Linear is a type for scaling the data to be between 0 and 1
type Linear struct {
	Min      []float64 // Minimum value of the data
	Max      []float64 // Maximum value of the data
	Constant []int     // Dimensions where every training value was equal
	Fitted   bool      // Flag if the scale has been set
	Dim      int       // Number of dimensions of the data
}

// IsFitted returns true if the scale has been set
func (l *Linear) IsFitted() bool {
	return l.Fitted
}

// Dimensions returns the length of the data point
func (l *Linear) Dimensions() int {
	return l.Dim
}

// ConstantDims returns the dimensions that were constant in the training data
func (l *Linear) ConstantDims() []int {
	return l.Constant
}

// Fit sets a linear scale between 0 and 1. If the minimum and maximum value
// are identical in a dimension, the minimum and maximum values will be set to
// that value +/- 0.5 so the dimension scales to 0.5, and the dimension is
// recorded in Constant.
func (l *Linear) Fit(data mat.Matrix) error {
	rows, dim, err := checkFit(l.Fitted, data)
	if err != nil {
		return err
	}

	lo := make([]float64, dim)
	hi := make([]float64, dim)
	for i := range lo {
		lo[i] = math.Inf(1)
		hi[i] = math.Inf(-1)
	}
	// Find the minimum and maximum in each dimension
	for i := 0; i < rows; i++ {
		for j := 0; j < dim; j++ {
			val := data.At(i, j)
			if val < lo[j] {
				lo[j] = val
			}
			if val > hi[j] {
				hi[j] = val
			}
		}
	}

	var uniform []int
	for i := range lo {
		if lo[i] == hi[i] {
			uniform = append(uniform, i)
			lo[i] -= 0.5
			hi[i] += 0.5
		}
	}
	l.Min = lo
	l.Max = hi
	l.Constant = uniform
	l.Dim = dim
	l.Fitted = true
	return nil
}

// Scale scales the point returning an error if the length doesn't match
func (l *Linear) Scale(point []float64) error {
	if len(point) != l.Dim {
		return common.ErrDimensionMismatch
	}
	for i, val := range point {
		point[i] = (val - l.Min[i]) / (l.Max[i] - l.Min[i])
	}
	return nil
}

// Normal scales the data to have a mean of 0 and a variance of 1
// in each dimension
type Normal struct {
	Mu       []float64
	Sigma    []float64
	Constant []int // Dimensions where every training value was equal
	Dim      int
	Fitted   bool
}

// IsFitted returns true if the scale has been set
func (n *Normal) IsFitted() bool {
	return n.Fitted
}

// Dimensions returns the length of the data point
func (n *Normal) Dimensions() int {
	return n.Dim
}

// ConstantDims returns the dimensions that were constant in the training data
func (n *Normal) ConstantDims() []int {
	return n.Constant
}

// Fit finds the scaling of the data such that the dataset has a mean of 0
// and a variance of 1 using the population mean and standard deviation of
// each column.
//
// If every entry of a column has the same value the mean is set to that value
// and the standard deviation to 1.0, so the column scales to exactly 0 for
// that value. Such columns are listed in Constant.
func (n *Normal) Fit(data mat.Matrix) error {
	rows, dim, err := checkFit(n.Fitted, data)
	if err != nil {
		return err
	}

	mean := make([]float64, dim)
	std := make([]float64, dim)
	var uniform []int
	col := make([]float64, rows)
	for j := 0; j < dim; j++ {
		mat.Col(col, j, data)
		if lo := floats.Min(col); lo == floats.Max(col) {
			mean[j] = lo
			std[j] = 1.0
			uniform = append(uniform, j)
			continue
		}
		mean[j], std[j] = stat.PopMeanStdDev(col, nil)
		if !(std[j] > 0) {
			std[j] = 1.0
			uniform = append(uniform, j)
		}
	}

	n.Mu = mean
	n.Sigma = std
	n.Constant = uniform
	n.Dim = dim
	n.Fitted = true
	return nil
}

// Scale scales the data point
func (n *Normal) Scale(point []float64) error {
	if len(point) != n.Dim {
		return common.ErrDimensionMismatch
	}
	for i := range point {
		point[i] = (point[i] - n.Mu[i]) / n.Sigma[i]
	}
	return nil
}
