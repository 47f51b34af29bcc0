package classify

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/BiggestM/EMNISTByClass/common"
	"github.com/BiggestM/EMNISTByClass/predict"
)

// Centroid is a nearest class mean classifier. Each input is assigned the
// class whose mean training row is closest in Euclidean distance; ties go to
// the smaller class index.
type Centroid struct {
	Classes   []int      // Sorted class indices
	Centroids *mat.Dense // Row i is the mean of class Classes[i]
	Dim       int
}

func (c *Centroid) Fit(inputs mat.Matrix, labels []int) error {
	rows, dim := inputs.Dims()
	if err := common.VerifyLabels(rows, labels); err != nil {
		return err
	}
	classes, n := counts(labels)
	pos := make(map[int]int, len(classes))
	for i, l := range classes {
		pos[l] = i
	}

	centroids := mat.NewDense(len(classes), dim, nil)
	row := make([]float64, dim)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, inputs)
		floats.Add(centroids.RawRowView(pos[labels[i]]), row)
	}
	for i, l := range classes {
		floats.Scale(1/float64(n[l]), centroids.RawRowView(i))
	}

	c.Classes = classes
	c.Centroids = centroids
	c.Dim = dim
	return nil
}

func (c *Centroid) Predict(inputs mat.Matrix) ([]int, error) {
	if c.Centroids == nil {
		return nil, ErrNotTrained
	}
	return predict.Batch(c, inputs, c.Dim)
}

// NewPredictor implements predict.BatchPredictor.
func (c *Centroid) NewPredictor() predict.Predictor {
	return &centroidPredictor{c: c, diff: make([]float64, c.Dim)}
}

type centroidPredictor struct {
	c    *Centroid
	diff []float64
}

func (p *centroidPredictor) Predict(input []float64) int {
	best, bestDist := 0, math.Inf(1)
	for i := range p.c.Classes {
		floats.SubTo(p.diff, input, p.c.Centroids.RawRowView(i))
		if d := floats.Dot(p.diff, p.diff); d < bestDist {
			best, bestDist = i, d
		}
	}
	return p.c.Classes[best]
}
