// Package symbols reads the table that maps class indices to the characters
// they stand for. The table is used for display only; nothing in training or
// evaluation consults it.
package symbols

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/spf13/afero"

	"github.com/BiggestM/EMNISTByClass/common"
)

// Mapping is an immutable class index to character table.
type Mapping struct {
	m map[int]rune
}

// Load parses a mapping from r. Each non-blank line holds two
// whitespace-separated integers: a class index and a Unicode code point.
// A line with any other content, an invalid code point, or a class index
// seen before fails with a *common.MappingError.
func Load(r io.Reader) (*Mapping, error) {
	m := make(map[int]rune)
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return nil, &common.MappingError{Line: line, Reason: fmt.Sprintf("%d fields, want 2", len(fields))}
		}
		idx, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, &common.MappingError{Line: line, Reason: fmt.Sprintf("bad class index %q", fields[0])}
		}
		code, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, &common.MappingError{Line: line, Reason: fmt.Sprintf("bad code point %q", fields[1])}
		}
		if code < 0 || code > utf8.MaxRune || !utf8.ValidRune(rune(code)) {
			return nil, &common.MappingError{Line: line, Reason: fmt.Sprintf("invalid code point %d", code)}
		}
		if _, ok := m[idx]; ok {
			return nil, &common.MappingError{Line: line, Reason: fmt.Sprintf("duplicate class index %d", idx)}
		}
		m[idx] = rune(code)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("symbols: read mapping: %w", err)
	}
	return &Mapping{m: m}, nil
}

// LoadFile opens path on fs and parses it with Load.
func LoadFile(fs afero.Fs, path string) (*Mapping, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("symbols: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Symbol returns the character for class idx.
func (m *Mapping) Symbol(idx int) (rune, bool) {
	r, ok := m.m[idx]
	return r, ok
}

// Label returns the character for class idx as a string, or "?" when the
// class is not in the table.
func (m *Mapping) Label(idx int) string {
	if m == nil {
		return "?"
	}
	r, ok := m.m[idx]
	if !ok {
		return "?"
	}
	return string(r)
}

// Len returns the number of classes in the table.
func (m *Mapping) Len() int { return len(m.m) }

// Classes returns the class indices in increasing order.
func (m *Mapping) Classes() []int {
	idx := make([]int, 0, len(m.m))
	for k := range m.m {
		idx = append(idx, k)
	}
	sort.Ints(idx)
	return idx
}
