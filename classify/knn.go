package classify

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/BiggestM/EMNISTByClass/common"
	"github.com/BiggestM/EMNISTByClass/predict"
)

// KNN classifies an input by majority vote among the K nearest training rows.
// A tied vote goes to the tied class with the nearest member.
type KNN struct {
	K int

	x      *mat.Dense
	labels []int
}

// Fit stores a copy of the training data.
func (m *KNN) Fit(inputs mat.Matrix, labels []int) error {
	if m.K <= 0 {
		return fmt.Errorf("classify: knn needs K > 0, got %d", m.K)
	}
	rows, _ := inputs.Dims()
	if err := common.VerifyLabels(rows, labels); err != nil {
		return err
	}
	m.x = mat.DenseCopyOf(inputs)
	m.labels = append([]int(nil), labels...)
	return nil
}

func (m *KNN) Predict(inputs mat.Matrix) ([]int, error) {
	if m.x == nil {
		return nil, ErrNotTrained
	}
	_, dim := m.x.Dims()
	return predict.Batch(m, inputs, dim)
}

// NewPredictor implements predict.BatchPredictor.
func (m *KNN) NewPredictor() predict.Predictor {
	_, dim := m.x.Dims()
	k := m.K
	if k > len(m.labels) {
		k = len(m.labels)
	}
	return &knnPredictor{
		m:     m,
		k:     k,
		diff:  make([]float64, dim),
		nbrs:  make([]neighbor, 0, k+1),
		votes: make(map[int]int, k),
	}
}

type neighbor struct {
	dist  float64
	label int
}

type knnPredictor struct {
	m     *KNN
	k     int
	diff  []float64
	nbrs  []neighbor
	votes map[int]int
}

func (p *knnPredictor) Predict(input []float64) int {
	// Keep a small slice of the k nearest so far, sorted by distance.
	p.nbrs = p.nbrs[:0]
	for j, l := range p.m.labels {
		floats.SubTo(p.diff, input, p.m.x.RawRowView(j))
		d := floats.Dot(p.diff, p.diff)
		if len(p.nbrs) == p.k && d >= p.nbrs[p.k-1].dist {
			continue
		}
		i := len(p.nbrs)
		if i < p.k {
			p.nbrs = append(p.nbrs, neighbor{})
		} else {
			i = p.k - 1
		}
		for i > 0 && p.nbrs[i-1].dist > d {
			p.nbrs[i] = p.nbrs[i-1]
			i--
		}
		p.nbrs[i] = neighbor{dist: d, label: l}
	}

	clear(p.votes)
	best, bestVotes := p.nbrs[0].label, 0
	for _, n := range p.nbrs {
		p.votes[n.label]++
	}
	// Walking nearest first, a class only takes the lead with strictly more
	// votes, so ties resolve to the class with the nearest member.
	for _, n := range p.nbrs {
		if v := p.votes[n.label]; v > bestVotes {
			best, bestVotes = n.label, v
		}
	}
	return best
}
