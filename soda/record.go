// Copyright 2023 Soda Tools

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package soda

import (
	"bytes"
	"encoding/json"

	"github.com/stockparfait/errors"
)

// Field is a single named value of a Record. The value keeps the raw JSON
// bytes, so numbers and nested structures re-serialize exactly as received.
type Field struct {
	Name  string
	Value json.RawMessage
}

// Record is one dataset row as an ordered field bag. Datasets are
// schemaless from the client's point of view, and the field order must
// survive a decode / encode round trip for the accumulated output file to be
// byte-stable.
type Record struct {
	fields []Field
}

var _ json.Unmarshaler = &Record{}
var _ json.Marshaler = Record{}

// Len returns the number of fields in the record.
func (r *Record) Len() int { return len(r.fields) }

// Fields returns the record's fields in their original order.
func (r *Record) Fields() []Field { return r.fields }

// Add appends a field to the record. For use in tests and builders.
func (r *Record) Add(name string, value json.RawMessage) {
	r.fields = append(r.fields, Field{Name: name, Value: value})
}

// Get returns the raw value of the named field.
func (r *Record) Get(name string) (json.RawMessage, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// String returns the named field as a string, if it is a JSON string.
func (r *Record) String(name string) (string, bool) {
	raw, ok := r.Get(name)
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Number returns the named field as a float64, if it is a JSON number.
func (r *Record) Number(name string) (float64, bool) {
	raw, ok := r.Get(name)
	if !ok {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	return n, true
}

// Bool returns the named field as a bool, if it is a JSON boolean.
func (r *Record) Bool(name string) (bool, bool) {
	raw, ok := r.Get(name)
	if !ok {
		return false, false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, false
	}
	return b, true
}

// IsNull tests whether the named field is present and is JSON null.
func (r *Record) IsNull(name string) bool {
	raw, ok := r.Get(name)
	return ok && bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// UnmarshalJSON implements json.Unmarshaler preserving the field order.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return errors.Annotate(err, "failed to read record")
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.Reason("record is not a JSON object: %v", tok)
	}
	r.fields = nil
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return errors.Annotate(err, "failed to read field name")
		}
		name, ok := tok.(string)
		if !ok {
			return errors.Reason("field name is not a string: %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return errors.Annotate(err, "failed to read value of field '%s'", name)
		}
		r.fields = append(r.fields, Field{Name: name, Value: raw})
	}
	if _, err := dec.Token(); err != nil { // the closing '}'
		return errors.Annotate(err, "failed to read end of record")
	}
	return nil
}

// MarshalJSON implements json.Marshaler preserving the field order and the
// original value bytes.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, errors.Annotate(err, "failed to encode field name '%s'", f.Name)
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(f.Value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
