// Package record holds the ordered key/value row type shared by the crawler,
// the crawl log, and the normalization pipeline.
package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// Field is one named cell of a Record.
type Field struct {
	Name  string
	Value string
}

// Record is an ordered mapping from column name to cell value. Names are
// unique; setting an existing name replaces its value in place.
type Record struct {
	fields []Field
}

// New builds a Record from alternating name/value pairs.
func New(pairs ...string) Record {
	var r Record
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Set(pairs[i], pairs[i+1])
	}
	return r
}

// FromFields builds a Record from fields, keeping the last value for repeated names.
func FromFields(fields []Field) Record {
	var r Record
	for _, f := range fields {
		r.Set(f.Name, f.Value)
	}
	return r
}

// Len returns the number of fields.
func (r Record) Len() int {
	return len(r.fields)
}

// Fields returns a copy of the fields in order.
func (r Record) Fields() []Field {
	return slices.Clone(r.fields)
}

// Keys returns the field names in order.
func (r Record) Keys() []string {
	keys := make([]string, len(r.fields))
	for i, f := range r.fields {
		keys[i] = f.Name
	}
	return keys
}

// Get returns the value stored under name.
func (r Record) Get(name string) (string, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Value returns the value stored under name, or "" when absent.
func (r Record) Value(name string) string {
	v, _ := r.Get(name)
	return v
}

// Set stores value under name, appending the field when it is new.
func (r *Record) Set(name, value string) {
	for i := range r.fields {
		if r.fields[i].Name == name {
			r.fields[i].Value = value
			return
		}
	}
	r.fields = append(r.fields, Field{Name: name, Value: value})
}

// Rename returns a copy with field names replaced according to mapping.
// Names missing from mapping pass through; mapped names that are absent are
// simply not produced. If a rename collides with an existing name the later
// field wins.
func (r Record) Rename(mapping map[string]string) Record {
	var out Record
	for _, f := range r.fields {
		name := f.Name
		if target, ok := mapping[name]; ok {
			name = target
		}
		out.Set(name, f.Value)
	}
	return out
}

// Key is a canonical encoding of the record's content that ignores field
// order. Two records have equal keys exactly when they hold the same
// name/value pairs.
func (r Record) Key() string {
	sorted := slices.Clone(r.fields)
	slices.SortFunc(sorted, func(a, b Field) int {
		return strings.Compare(a.Name, b.Name)
	})
	var b strings.Builder
	for _, f := range sorted {
		fmt.Fprintf(&b, "%d:%s%d:%s", len(f.Name), f.Name, len(f.Value), f.Value)
	}
	return b.String()
}

// Equal reports structural equality, ignoring field order.
func (r Record) Equal(other Record) bool {
	return r.Len() == other.Len() && r.Key() == other.Key()
}

// MarshalJSON encodes the record as a JSON object with keys in field order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := marshalString(f.Name)
		if err != nil {
			return nil, err
		}
		value, err := marshalString(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ErrNotObject is returned when decoding input that is not a flat JSON object
// of string values.
var ErrNotObject = errors.New("record must be a JSON object of string values")

// UnmarshalJSON decodes a JSON object, keeping keys in document order. Null
// values are treated as absent fields.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return ErrNotObject
	}
	var out Record
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrNotObject, err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return ErrNotObject
		}
		valTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrNotObject, err)
		}
		switch v := valTok.(type) {
		case string:
			out.Set(key, v)
		case nil:
		default:
			return fmt.Errorf("%w: field %q has non-string value", ErrNotObject, key)
		}
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data", ErrNotObject)
	}
	*r = out
	return nil
}

func marshalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("encode %q: %w", s, err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
