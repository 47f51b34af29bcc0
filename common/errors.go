package common

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure kinds of a run. Errors returned by the
// pipeline packages match one of these through errors.Is.
var (
	ErrInvalidSplit      = errors.New("emnist: invalid split")
	ErrMalformedRecord   = errors.New("emnist: malformed record")
	ErrMalformedMapping  = errors.New("emnist: malformed mapping")
	ErrInvalidFraction   = errors.New("emnist: invalid fraction")
	ErrEmptyDataset      = errors.New("emnist: empty dataset")
	ErrNotFitted         = errors.New("emnist: scaler not fitted")
	ErrLengthMismatch    = errors.New("emnist: length mismatch")
	ErrEmptyEvaluation   = errors.New("emnist: empty evaluation")
	ErrClassifierFailure = errors.New("emnist: classifier failure")
	ErrDimensionMismatch = errors.New("emnist: feature dimension mismatch")
)

// RecordError reports a dataset record that could not be parsed.
// Line is 1-based.
type RecordError struct {
	Source string
	Line   int
	Reason string
}

func (r *RecordError) Error() string {
	return fmt.Sprintf("emnist: malformed record: %s line %d: %s", r.Source, r.Line, r.Reason)
}

func (r *RecordError) Is(target error) bool { return target == ErrMalformedRecord }

// MappingError reports a bad line in a symbol mapping file.
type MappingError struct {
	Line   int
	Reason string
}

func (m *MappingError) Error() string {
	return fmt.Sprintf("emnist: malformed mapping: line %d: %s", m.Line, m.Reason)
}

func (m *MappingError) Is(target error) bool { return target == ErrMalformedMapping }

// LengthMismatch is returned when two collections that must be index aligned
// have different lengths.
type LengthMismatch struct {
	Want int
	Got  int
}

func (l LengthMismatch) Error() string {
	return fmt.Sprintf("emnist: length mismatch. want: %v, got: %v", l.Want, l.Got)
}

func (l LengthMismatch) Is(target error) bool { return target == ErrLengthMismatch }

// ClassifierError wraps an error raised by a Classifier. Op is "fit" or "predict".
type ClassifierError struct {
	Op  string
	Err error
}

func (c *ClassifierError) Error() string {
	return fmt.Sprintf("emnist: classifier failure during %s: %v", c.Op, c.Err)
}

func (c *ClassifierError) Is(target error) bool { return target == ErrClassifierFailure }

func (c *ClassifierError) Unwrap() error { return c.Err }

// StageError names the pipeline stage an error came from.
type StageError struct {
	Stage string
	Err   error
}

func (s *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", s.Stage, s.Err)
}

func (s *StageError) Unwrap() error { return s.Err }

// VerifyLabels returns a LengthMismatch if the number of rows in inputs is not
// the number of labels, and ErrEmptyDataset if there are no rows at all.
func VerifyLabels(rows int, labels []int) error {
	if rows != len(labels) {
		return LengthMismatch{Want: rows, Got: len(labels)}
	}
	if rows == 0 {
		return ErrEmptyDataset
	}
	return nil
}
