// Package classtest contains helper functions for testing types that
// implement common.Classifier.
package classtest

import (
	"errors"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/BiggestM/EMNISTByClass/common"
)

// Blobs returns n rows of dim features drawn around one well separated centre
// per class, with labels cycling through 0..classes-1.
func Blobs(n, dim, classes int, seed int64) (*mat.Dense, []int) {
	rnd := rand.New(rand.NewSource(seed))
	x := mat.NewDense(n, dim, nil)
	labels := make([]int, n)
	for i := 0; i < n; i++ {
		l := i % classes
		labels[i] = l
		for j := 0; j < dim; j++ {
			centre := 0.0
			if j%classes == l {
				centre = 10
			}
			x.Set(i, j, centre+rnd.NormFloat64()*0.1)
		}
	}
	return x, labels
}

// TestClassifier checks the Classifier contract on classifiers made by
// newClassifier:
//   - Predict before Fit fails
//   - Fit rejects labels that are not aligned with the rows
//   - Fit and Predict leave their arguments untouched
//   - Predict returns exactly one label per row, and only labels seen in training
func TestClassifier(t *testing.T, newClassifier func() common.Classifier, name string) {
	x, labels := Blobs(60, 4, 3, 1)
	xCopy := mat.DenseCopyOf(x)
	labelsCopy := append([]int(nil), labels...)

	c := newClassifier()
	if _, err := c.Predict(x); err == nil {
		t.Errorf("%v: Predict before Fit did not fail", name)
	}

	if err := newClassifier().Fit(x, labels[:10]); !errors.Is(err, common.ErrLengthMismatch) {
		t.Errorf("%v: Fit with misaligned labels returned %v, want ErrLengthMismatch", name, err)
	}

	if err := c.Fit(x, labels); err != nil {
		t.Fatalf("%v: Fit: %v", name, err)
	}
	if !mat.Equal(x, xCopy) {
		t.Errorf("%v: Fit modified the inputs", name)
	}
	for i := range labels {
		if labels[i] != labelsCopy[i] {
			t.Fatalf("%v: Fit modified the labels", name)
		}
	}

	test, _ := Blobs(17, 4, 3, 2)
	pred, err := c.Predict(test)
	if err != nil {
		t.Fatalf("%v: Predict: %v", name, err)
	}
	if len(pred) != 17 {
		t.Errorf("%v: Predict returned %v labels for 17 rows", name, len(pred))
	}
	for i, p := range pred {
		if p < 0 || p > 2 {
			t.Errorf("%v: row %v predicted unseen label %v", name, i, p)
		}
	}
	if !mat.Equal(x, xCopy) {
		t.Errorf("%v: Predict modified the training inputs", name)
	}
}
