package dataset

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/BiggestM/EMNISTByClass/common"
)

// Shape is the height and width of every image in a dataset.
type Shape struct {
	Rows int
	Cols int
}

// EMNIST is the shape of the EMNIST character images.
var EMNIST = Shape{Rows: 28, Cols: 28}

// Size returns the number of pixels in an image of this shape.
func (s Shape) Size() int { return s.Rows * s.Cols }

func (s Shape) String() string { return fmt.Sprintf("%dx%d", s.Rows, s.Cols) }

// Image is a grayscale image stored row-major: Pix[r*Cols+c] is the
// intensity at row r, column c.
type Image struct {
	Rows int
	Cols int
	Pix  []uint8
}

// Reshape builds an Image from a flat row-major pixel sequence. The first
// shape.Cols values form row 0 and so on. The pixels are copied.
func Reshape(flat []uint8, shape Shape) (Image, error) {
	if len(flat) != shape.Size() {
		return Image{}, fmt.Errorf("%w: %d pixel values, want %d", common.ErrDimensionMismatch, len(flat), shape.Size())
	}
	pix := make([]uint8, len(flat))
	copy(pix, flat)
	return Image{Rows: shape.Rows, Cols: shape.Cols, Pix: pix}, nil
}

// Shape returns the dimensions of the image.
func (im Image) Shape() Shape { return Shape{Rows: im.Rows, Cols: im.Cols} }

// At returns the intensity at row r, column c.
func (im Image) At(r, c int) uint8 {
	if r < 0 || r >= im.Rows || c < 0 || c >= im.Cols {
		panic("dataset: pixel index out of range")
	}
	return im.Pix[r*im.Cols+c]
}

// Flatten returns a copy of the pixels in row-major order.
func (im Image) Flatten() []uint8 {
	flat := make([]uint8, len(im.Pix))
	copy(flat, im.Pix)
	return flat
}

// Features converts images into a feature matrix with one row per image and
// one column per pixel, in row-major pixel order. Every value is divided by
// intensity, so an intensity of 255 maps 8-bit pixels into [0, 1].
func Features(images []Image, intensity float64) (*mat.Dense, error) {
	if len(images) == 0 {
		return nil, common.ErrEmptyDataset
	}
	if !(intensity > 0) {
		return nil, fmt.Errorf("dataset: intensity must be positive, got %v", intensity)
	}
	shape := images[0].Shape()
	dim := shape.Size()
	data := make([]float64, len(images)*dim)
	for i, im := range images {
		if im.Shape() != shape || len(im.Pix) != dim {
			return nil, fmt.Errorf("%w: image %d is %v, want %v", common.ErrDimensionMismatch, i, im.Shape(), shape)
		}
		row := data[i*dim : (i+1)*dim]
		for j, p := range im.Pix {
			row[j] = float64(p) / intensity
		}
	}
	return mat.NewDense(len(images), dim, data), nil
}
