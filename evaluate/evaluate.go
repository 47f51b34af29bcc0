// Package evaluate scores predicted labels against true labels.
package evaluate

import (
	"sort"

	"github.com/BiggestM/EMNISTByClass/common"
)

func check(trueLabels, predLabels []int) error {
	if len(trueLabels) != len(predLabels) {
		return common.LengthMismatch{Want: len(trueLabels), Got: len(predLabels)}
	}
	if len(trueLabels) == 0 {
		return common.ErrEmptyEvaluation
	}
	return nil
}

// Accuracy returns the fraction of positions where the predicted label equals
// the true label. It fails with common.ErrLengthMismatch if the inputs differ
// in length and common.ErrEmptyEvaluation if they are empty.
func Accuracy(trueLabels, predLabels []int) (float64, error) {
	if err := check(trueLabels, predLabels); err != nil {
		return 0, err
	}
	c := 0
	for i := range trueLabels {
		if trueLabels[i] == predLabels[i] {
			c++
		}
	}
	return float64(c) / float64(len(trueLabels)), nil
}

// ClassScore counts how many examples of one true class were predicted correctly.
type ClassScore struct {
	Class   int `yaml:"class"`
	Correct int `yaml:"correct"`
	Total   int `yaml:"total"`
}

// Accuracy returns Correct/Total.
func (c ClassScore) Accuracy() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Correct) / float64(c.Total)
}

// PerClass returns one score for every class present in trueLabels, ordered
// by class index. Classes that only appear in predLabels are not listed.
func PerClass(trueLabels, predLabels []int) ([]ClassScore, error) {
	if err := check(trueLabels, predLabels); err != nil {
		return nil, err
	}
	byClass := make(map[int]*ClassScore)
	for i, l := range trueLabels {
		s, ok := byClass[l]
		if !ok {
			s = &ClassScore{Class: l}
			byClass[l] = s
		}
		s.Total++
		if predLabels[i] == l {
			s.Correct++
		}
	}
	out := make([]ClassScore, 0, len(byClass))
	for _, s := range byClass {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Class < out[j].Class })
	return out, nil
}
