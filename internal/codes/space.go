package codes

import (
	"errors"
	"fmt"
	"iter"
)

// DefaultAlphabet is the ordered character set codes are drawn from. Letters
// sort before digits, so the first code is all "A" and the last all "9".
const DefaultAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Space is the finite set of every string of a fixed length over an ordered
// alphabet. Codes are addressed by their position in lexicographic order.
type Space struct {
	alphabet []rune
	position map[rune]int
	length   int
	size     int
}

// NewSpace validates the alphabet and length and returns the code space.
func NewSpace(alphabet string, length int) (*Space, error) {
	if length < 1 {
		return nil, fmt.Errorf("code length must be >= 1, got %d", length)
	}
	chars := []rune(alphabet)
	if len(chars) == 0 {
		return nil, errors.New("alphabet must not be empty")
	}
	position := make(map[rune]int, len(chars))
	for i, r := range chars {
		if _, dup := position[r]; dup {
			return nil, fmt.Errorf("alphabet has duplicate character %q", r)
		}
		position[r] = i
	}
	size := 1
	for range length {
		if size > maxSpaceSize/len(chars) {
			return nil, fmt.Errorf("code space %d^%d is too large", len(chars), length)
		}
		size *= len(chars)
	}
	return &Space{
		alphabet: chars,
		position: position,
		length:   length,
		size:     size,
	}, nil
}

const maxSpaceSize = 1 << 30

// ForKind builds the space for a kind over the given alphabet.
func ForKind(kind Kind, alphabet string) (*Space, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown code kind %d", int(kind))
	}
	return NewSpace(alphabet, kind.CodeLength())
}

// Size is the number of codes in the space.
func (s *Space) Size() int {
	return s.size
}

// Length is the length of every code in the space.
func (s *Space) Length() int {
	return s.length
}

// At returns the code at position i. It panics when i is out of range.
func (s *Space) At(i int) string {
	if i < 0 || i >= s.size {
		panic(fmt.Sprintf("codes: index %d out of range [0,%d)", i, s.size))
	}
	base := len(s.alphabet)
	out := make([]rune, s.length)
	for pos := s.length - 1; pos >= 0; pos-- {
		out[pos] = s.alphabet[i%base]
		i /= base
	}
	return string(out)
}

// Index returns the position of code, or false when code is not in the space.
func (s *Space) Index(code string) (int, bool) {
	chars := []rune(code)
	if len(chars) != s.length {
		return 0, false
	}
	idx := 0
	for _, r := range chars {
		p, ok := s.position[r]
		if !ok {
			return 0, false
		}
		idx = idx*len(s.alphabet) + p
	}
	return idx, true
}

// All yields every code in order.
func (s *Space) All() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, code := range s.From(0) {
			if !yield(code) {
				return
			}
		}
	}
}

// From yields (index, code) pairs starting at position start.
func (s *Space) From(start int) iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		if start < 0 {
			start = 0
		}
		for i := start; i < s.size; i++ {
			if !yield(i, s.At(i)) {
				return
			}
		}
	}
}

// String describes the space for logs.
func (s *Space) String() string {
	return fmt.Sprintf("%d^%d over %q", len(s.alphabet), s.length, string(s.alphabet))
}
