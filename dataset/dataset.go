// Package dataset loads labelled grayscale character images from
// record-oriented text files.
//
// Each record is one line: an integer class label followed by Rows*Cols
// comma-separated pixel intensities in [0, 255], in row-major order.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/BiggestM/EMNISTByClass/common"
)

// Split selects which part of the dataset to load.
type Split string

const (
	Training Split = "training"
	Testing  Split = "testing"
)

// ParseSplit converts s into a Split. Anything other than "training" or
// "testing" is an ErrInvalidSplit.
func ParseSplit(s string) (Split, error) {
	sp := Split(s)
	if err := sp.Validate(); err != nil {
		return "", err
	}
	return sp, nil
}

// Validate returns ErrInvalidSplit unless s is Training or Testing.
func (s Split) Validate() error {
	switch s {
	case Training, Testing:
		return nil
	}
	return fmt.Errorf("%w: %q, use %q or %q", common.ErrInvalidSplit, string(s), Training, Testing)
}

// Dataset is a collection of images with index-aligned labels:
// Labels[i] is the class of Images[i].
type Dataset struct {
	Images []Image
	Labels []int
}

// Len returns the number of examples.
func (d *Dataset) Len() int { return len(d.Labels) }

// A Source opens the records of a split. The returned name identifies the
// records in error messages.
type Source interface {
	Open(split Split) (rc io.ReadCloser, name string, err error)
}

// DirSource reads each split from a named file inside a directory.
type DirSource struct {
	Fs    afero.Fs
	Dir   string
	Files map[Split]string
}

// NewDirSource returns a DirSource reading trainFile and testFile from dir on fs.
func NewDirSource(fs afero.Fs, dir, trainFile, testFile string) *DirSource {
	return &DirSource{
		Fs:  fs,
		Dir: dir,
		Files: map[Split]string{
			Training: trainFile,
			Testing:  testFile,
		},
	}
}

// Open opens the file configured for split.
func (d *DirSource) Open(split Split) (io.ReadCloser, string, error) {
	if err := split.Validate(); err != nil {
		return nil, "", err
	}
	name, ok := d.Files[split]
	if !ok || name == "" {
		return nil, "", fmt.Errorf("dataset: no file configured for split %q", split)
	}
	path := filepath.Join(d.Dir, name)
	f, err := d.Fs.Open(path)
	if err != nil {
		return nil, path, err
	}
	return f, path, nil
}

// Load reads the records of split from src and reshapes them into images of
// the given shape.
func Load(src Source, split Split, shape Shape) (*Dataset, error) {
	if err := split.Validate(); err != nil {
		return nil, err
	}
	rc, name, err := src.Open(split)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s split: %w", split, err)
	}
	defer rc.Close()
	return LoadReader(rc, name, shape)
}

// LoadReader parses records from r. name is used in errors only.
// A record whose pixel count differs from shape.Size(), or with a field that
// is not an integer in range, fails with a *common.RecordError naming the line.
func LoadReader(r io.Reader, name string, shape Shape) (*Dataset, error) {
	if shape.Rows <= 0 || shape.Cols <= 0 {
		return nil, fmt.Errorf("dataset: invalid image shape %v", shape)
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	cr.TrimLeadingSpace = true

	size := shape.Size()
	pix := make([]uint8, size)
	d := &Dataset{}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, &common.RecordError{Source: name, Line: perr.Line, Reason: perr.Err.Error()}
			}
			return nil, fmt.Errorf("dataset: read %s: %w", name, err)
		}
		line, _ := cr.FieldPos(0)

		if len(rec)-1 != size {
			return nil, &common.RecordError{
				Source: name,
				Line:   line,
				Reason: fmt.Sprintf("%d pixel values, want %d", len(rec)-1, size),
			}
		}
		label, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil || label < 0 {
			return nil, &common.RecordError{Source: name, Line: line, Reason: fmt.Sprintf("bad label %q", rec[0])}
		}
		for i, field := range rec[1:] {
			v, err := strconv.ParseUint(strings.TrimSpace(field), 10, 8)
			if err != nil {
				return nil, &common.RecordError{
					Source: name,
					Line:   line,
					Reason: fmt.Sprintf("pixel %d: %q is not an intensity in [0, 255]", i, field),
				}
			}
			pix[i] = uint8(v)
		}
		im, err := Reshape(pix, shape)
		if err != nil {
			return nil, &common.RecordError{Source: name, Line: line, Reason: err.Error()}
		}
		d.Images = append(d.Images, im)
		d.Labels = append(d.Labels, label)
	}
	if d.Len() == 0 {
		return nil, fmt.Errorf("%w: no records in %s", common.ErrEmptyDataset, name)
	}
	return d, nil
}
