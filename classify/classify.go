// Package classify holds reference implementations of common.Classifier.
//
// They are simple, deterministic baselines that exercise the pipeline; any
// other type with the same Fit and Predict methods can replace them.
package classify

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/BiggestM/EMNISTByClass/common"
)

// ErrNotTrained is returned by Predict before a successful Fit.
var ErrNotTrained = errors.New("classify: not trained")

// DefaultK is the neighbour count used by New for "knn" when k <= 0.
const DefaultK = 5

// New returns an untrained classifier by name: "majority", "centroid" or "knn".
// k is only used by "knn".
func New(name string, k int) (common.Classifier, error) {
	switch name {
	case "majority":
		return &Majority{}, nil
	case "centroid", "":
		return &Centroid{}, nil
	case "knn":
		if k <= 0 {
			k = DefaultK
		}
		return &KNN{K: k}, nil
	}
	return nil, fmt.Errorf("classify: unknown classifier %q", name)
}

// counts returns the sorted distinct labels and how often each occurs.
func counts(labels []int) (classes []int, n map[int]int) {
	n = make(map[int]int)
	for _, l := range labels {
		if n[l] == 0 {
			classes = append(classes, l)
		}
		n[l]++
	}
	sort.Ints(classes)
	return classes, n
}

// Majority predicts the most frequent training label for every input.
// Ties go to the smallest label.
type Majority struct {
	Label   int
	Trained bool
}

func (m *Majority) Fit(inputs mat.Matrix, labels []int) error {
	rows, _ := inputs.Dims()
	if err := common.VerifyLabels(rows, labels); err != nil {
		return err
	}
	classes, n := counts(labels)
	best := classes[0]
	for _, c := range classes[1:] {
		if n[c] > n[best] {
			best = c
		}
	}
	m.Label = best
	m.Trained = true
	return nil
}

func (m *Majority) Predict(inputs mat.Matrix) ([]int, error) {
	if !m.Trained {
		return nil, ErrNotTrained
	}
	rows, _ := inputs.Dims()
	out := make([]int, rows)
	for i := range out {
		out[i] = m.Label
	}
	return out, nil
}
