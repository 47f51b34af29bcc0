package scale

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/BiggestM/EMNISTByClass/common"
)

func flatten(data [][]float64) *mat.Dense {
	nSamples := len(data)
	nDim := len(data[0])
	m := mat.NewDense(nSamples, nDim, nil)
	for i := range data {
		if len(data[i]) != nDim {
			panic("bad flatten")
		}
		m.SetRow(i, data[i])
	}
	return m
}

func testScaling(t *testing.T, u Scaler, data *mat.Dense, scaledData *mat.Dense, name string) {
	origData := mat.DenseCopyOf(data)

	scaled, err := Transform(u, data)
	if err != nil {
		t.Errorf("Error found in Transform for case %v: %v", name, err)
		return
	}
	if !mat.EqualApprox(scaled, scaledData, 1e-14) {
		t.Errorf("Improper scaling for case %v. Expected: %v, Found: %v", name, mat.Formatted(scaledData), mat.Formatted(scaled))
	}
	if !mat.Equal(data, origData) {
		t.Errorf("Transform modified its input for case %v", name)
	}
}

type linearTest struct {
	data       [][]float64
	scaledData [][]float64
	min        []float64
	max        []float64
	name       string
	uniform    []int
}

func testLinear(t *testing.T, kind linearTest) {
	u := &Linear{}

	data := flatten(kind.data)
	if err := u.Fit(data); err != nil {
		t.Errorf("Error where there shouldn't be for case %v: %v", kind.name, err)
	}
	if !floats.EqualApprox(u.Min, kind.min, 1e-14) {
		t.Errorf("Min doesn't match for case %v", kind.name)
	}
	if !floats.EqualApprox(u.Max, kind.max, 1e-14) {
		t.Errorf("Max doesn't match for case %v", kind.name)
	}
	if !intsEqual(u.Constant, kind.uniform) {
		t.Errorf("Uniform dimensions don't match for case %v. Expected: %v, Found: %v", kind.name, kind.uniform, u.Constant)
	}
	testScaling(t, u, data, flatten(kind.scaledData), kind.name)
}

func TestLinear(t *testing.T) {
	cases := []linearTest{
		{
			data: [][]float64{
				{1},
				{2},
				{-3},
				{-4},
			},
			scaledData: [][]float64{
				{5.0 / 6.0},
				{6.0 / 6.0},
				{1.0 / 6.0},
				{0.0 / 6.0},
			},
			min:  []float64{-4},
			max:  []float64{2},
			name: "OneD",
		},
		{
			data: [][]float64{
				{1, 4},
				{2, 9},
				{-3, 12},
				{-4, 15},
			},
			scaledData: [][]float64{
				{5.0 / 6.0, 0},
				{6.0 / 6.0, 5.0 / 11},
				{1.0 / 6.0, 8.0 / 11},
				{0.0 / 6.0, 1},
			},
			min:  []float64{-4, 4},
			max:  []float64{2, 15},
			name: "TwoD",
		},
		{
			data: [][]float64{
				{1, 4},
				{2, 4},
				{-3, 4},
				{-4, 4},
			},
			scaledData: [][]float64{
				{5.0 / 6.0, 0.5},
				{6.0 / 6.0, 0.5},
				{1.0 / 6.0, 0.5},
				{0.0 / 6.0, 0.5},
			},
			min:     []float64{-4, 3.5},
			max:     []float64{2, 4.5},
			name:    "EqDim",
			uniform: []int{1},
		},
	}
	for i := range cases {
		testLinear(t, cases[i])
	}
}

type normalTest struct {
	data       [][]float64
	scaledData [][]float64
	mu         []float64
	sigma      []float64
	name       string
	uniform    []int
}

func testNormal(t *testing.T, kind normalTest) {
	u := &Normal{}
	data := flatten(kind.data)
	if err := u.Fit(data); err != nil {
		t.Errorf("Error where there shouldn't be for case %v: %v", kind.name, err)
	}
	if !floats.EqualApprox(u.Mu, kind.mu, 1e-14) {
		t.Errorf("Mu doesn't match for case %v. Expected: %v, Found: %v", kind.name, kind.mu, u.Mu)
	}
	if !floats.EqualApprox(u.Sigma, kind.sigma, 1e-14) {
		t.Errorf("Sigma doesn't match for case %v. Expected: %v, Found: %v", kind.name, kind.sigma, u.Sigma)
	}
	if !intsEqual(u.Constant, kind.uniform) {
		t.Errorf("Uniform dimensions don't match for case %v. Expected: %v, Found: %v", kind.name, kind.uniform, u.Constant)
	}
	testScaling(t, u, data, flatten(kind.scaledData), kind.name)
}

func TestNormal(t *testing.T) {
	cases := []normalTest{
		{
			data: [][]float64{
				{1},
				{2},
				{-3},
				{-4},
			},
			scaledData: [][]float64{
				{2 / math.Sqrt(6.5)},
				{3 / math.Sqrt(6.5)},
				{-2 / math.Sqrt(6.5)},
				{-3 / math.Sqrt(6.5)},
			},
			mu:    []float64{-1},
			sigma: []float64{math.Sqrt(6.5)},
			name:  "OneD",
		},
		{
			data: [][]float64{
				{1, 4},
				{2, 9},
				{-3, 12},
				{-4, 15},
			},
			scaledData: [][]float64{
				{2 / math.Sqrt(6.5), -6 / math.Sqrt(16.5)},
				{3 / math.Sqrt(6.5), -1 / math.Sqrt(16.5)},
				{-2 / math.Sqrt(6.5), 2 / math.Sqrt(16.5)},
				{-3 / math.Sqrt(6.5), 5 / math.Sqrt(16.5)},
			},
			mu:    []float64{-1, 10},
			sigma: []float64{math.Sqrt(6.5), math.Sqrt(16.5)},
			name:  "TwoD",
		},
		{
			data: [][]float64{
				{1, 4},
				{2, 4},
				{-3, 4},
				{-4, 4},
			},
			scaledData: [][]float64{
				{2 / math.Sqrt(6.5), 0},
				{3 / math.Sqrt(6.5), 0},
				{-2 / math.Sqrt(6.5), 0},
				{-3 / math.Sqrt(6.5), 0},
			},
			mu:      []float64{-1, 4},
			sigma:   []float64{math.Sqrt(6.5), 1},
			name:    "EqDim",
			uniform: []int{1},
		},
	}
	for i := range cases {
		testNormal(t, cases[i])
	}
}

func TestZeroVariance(t *testing.T) {
	// Constant columns at a value that is not exactly representable after
	// summation must still scale to exactly zero.
	const rows, dim = 8, 784
	data := mat.NewDense(rows, dim, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < dim; j++ {
			data.Set(i, j, float64(j%3)*0.1)
		}
	}
	n := &Normal{}
	scaled, err := FitTransform(n, data)
	if err != nil {
		t.Fatal(err)
	}
	if len(n.ConstantDims()) != dim {
		t.Errorf("Expected %v uniform dimensions, found %v", dim, len(n.ConstantDims()))
	}
	for j, s := range n.Sigma {
		if s != 1 {
			t.Fatalf("Sigma[%v] = %v, want 1", j, s)
		}
	}
	for i := 0; i < rows; i++ {
		for j, v := range scaled.RawRowView(i) {
			if v != 0 || math.IsNaN(v) {
				t.Fatalf("scaled[%v][%v] = %v, want 0", i, j, v)
			}
		}
	}

	// A held-out value in a constant column keeps its offset from the mean.
	point := make([]float64, dim)
	point[0] = 0.5
	if err := n.Scale(point); err != nil {
		t.Fatal(err)
	}
	if point[0] != 0.5 {
		t.Errorf("Expected value - mean for a constant column, found %v", point[0])
	}
}

func TestFitOnTrainingOnly(t *testing.T) {
	train := flatten([][]float64{{1, 4}, {2, 9}, {-3, 12}, {-4, 15}})
	val := flatten([][]float64{{100, -100}, {50, 0}})

	a := &Normal{}
	if err := a.Fit(train); err != nil {
		t.Fatal(err)
	}
	mu := append([]float64(nil), a.Mu...)
	sigma := append([]float64(nil), a.Sigma...)

	if _, err := Transform(a, val); err != nil {
		t.Fatal(err)
	}
	if !floats.Equal(mu, a.Mu) || !floats.Equal(sigma, a.Sigma) {
		t.Errorf("Transform changed the fitted state")
	}

	// Statistics depend on the training rows alone.
	b := &Normal{}
	if err := b.Fit(mat.DenseCopyOf(train)); err != nil {
		t.Fatal(err)
	}
	for i := range mu {
		if math.Float64bits(mu[i]) != math.Float64bits(b.Mu[i]) ||
			math.Float64bits(sigma[i]) != math.Float64bits(b.Sigma[i]) {
			t.Errorf("Refit on the same training rows is not bit identical at %v", i)
		}
	}

	scaled, err := Transform(a, val)
	if err != nil {
		t.Fatal(err)
	}
	want := (100 - a.Mu[0]) / a.Sigma[0]
	if scaled.At(0, 0) != want {
		t.Errorf("Validation row not scaled with training statistics. Expected: %v, Found: %v", want, scaled.At(0, 0))
	}
}

func TestNotFitted(t *testing.T) {
	data := flatten([][]float64{{1, 2}, {3, 4}})
	for _, s := range []Scaler{&Normal{}, &Linear{}, &None{}} {
		if _, err := Transform(s, data); !errors.Is(err, common.ErrNotFitted) {
			t.Errorf("%T: expected ErrNotFitted, found %v", s, err)
		}
	}
}

func TestFitErrors(t *testing.T) {
	data := flatten([][]float64{{1, 2}, {3, 4}})
	for _, s := range []Scaler{&Normal{}, &Linear{}, &None{}} {
		if err := s.Fit(data); err != nil {
			t.Fatalf("%T: %v", s, err)
		}
		if err := s.Fit(data); !errors.Is(err, ErrAlreadyFitted) {
			t.Errorf("%T: expected ErrAlreadyFitted on refit, found %v", s, err)
		}
		if s.Dimensions() != 2 {
			t.Errorf("%T: expected 2 dimensions, found %v", s, s.Dimensions())
		}
		wide := flatten([][]float64{{1, 2, 3}})
		if _, err := Transform(s, wide); !errors.Is(err, common.ErrDimensionMismatch) {
			t.Errorf("%T: expected ErrDimensionMismatch, found %v", s, err)
		}
		if err := s.Scale([]float64{1}); !errors.Is(err, common.ErrDimensionMismatch) {
			t.Errorf("%T: expected ErrDimensionMismatch from Scale, found %v", s, err)
		}
	}
}

func TestNone(t *testing.T) {
	data := flatten([][]float64{{1, 2}, {3, 4}})
	n := &None{}
	scaled, err := FitTransform(n, data)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.Equal(scaled, data) {
		t.Errorf("None changed the data")
	}
}

func TestNew(t *testing.T) {
	for name, want := range map[string]Scaler{
		"":         &Normal{},
		"standard": &Normal{},
		"minmax":   &Linear{},
		"none":     &None{},
	} {
		s, err := New(name)
		if err != nil {
			t.Errorf("%q: %v", name, err)
			continue
		}
		if s.IsFitted() {
			t.Errorf("%q: new scaler is fitted", name)
		}
		if got, exp := typeName(s), typeName(want); got != exp {
			t.Errorf("%q: expected %v, found %v", name, exp, got)
		}
	}
	if _, err := New("robust"); err == nil {
		t.Errorf("expected error for unknown scaler")
	}
}

func typeName(s Scaler) string {
	switch s.(type) {
	case *Normal:
		return "Normal"
	case *Linear:
		return "Linear"
	case *None:
		return "None"
	}
	return "unknown"
}

func intsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
