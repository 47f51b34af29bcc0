// Package partition splits labelled examples into disjoint training and
// validation subsets.
//
// The split is a seeded random permutation and is not stratified: class
// proportions in each subset are whatever the permutation yields, so a
// validation subset drawn from data with rare classes may miss some classes
// entirely.
package partition

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/BiggestM/EMNISTByClass/common"
)

// DefaultFraction is the share of examples assigned to validation.
const DefaultFraction = 0.2

// DefaultSeed is the permutation seed used when none is configured.
const DefaultSeed int64 = 42

// Indices returns the positions of the training and validation examples for
// n examples. The first ceil(fraction*n) entries of a permutation seeded by
// seed go to validation, the rest to training. Identical arguments always
// return identical indices.
func Indices(n int, fraction float64, seed int64) (train, val []int, err error) {
	if !(fraction > 0 && fraction < 1) {
		return nil, nil, fmt.Errorf("%w: %v is not in (0, 1)", common.ErrInvalidFraction, fraction)
	}
	if n <= 0 {
		return nil, nil, common.ErrEmptyDataset
	}
	nVal := int(math.Ceil(fraction * float64(n)))
	if nVal >= n {
		return nil, nil, fmt.Errorf("%w: %d examples leave no training examples at fraction %v",
			common.ErrEmptyDataset, n, fraction)
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return perm[nVal:], perm[:nVal], nil
}

// Split divides items and their aligned labels into training and validation
// subsets. The same permutation index is applied to an item and its label, so
// trainLabels[i] is the label of trainItems[i]. The inputs are not modified.
func Split[T any](items []T, labels []int, fraction float64, seed int64) (trainItems []T, trainLabels []int, valItems []T, valLabels []int, err error) {
	if len(items) != len(labels) {
		return nil, nil, nil, nil, common.LengthMismatch{Want: len(items), Got: len(labels)}
	}
	trainIdx, valIdx, err := Indices(len(items), fraction, seed)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	trainItems, trainLabels = gather(items, labels, trainIdx)
	valItems, valLabels = gather(items, labels, valIdx)
	return trainItems, trainLabels, valItems, valLabels, nil
}

func gather[T any](items []T, labels []int, idx []int) ([]T, []int) {
	outItems := make([]T, len(idx))
	outLabels := make([]int, len(idx))
	for i, j := range idx {
		outItems[i] = items[j]
		outLabels[i] = labels[j]
	}
	return outItems, outLabels
}
