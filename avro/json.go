// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package avro

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/pkg/errors"

	"github.com/criccomini/twister/value"
)

// MarshalJSON writes the schema in its full JSON form. Named types are
// written out at their first occurrence and referenced by name after
// that, so cyclic schemas terminate.
func (s *Schema) MarshalJSON() ([]byte, error) {
	w := schemaWriter{written: make(map[string]bool)}
	if err := w.full(s); err != nil {
		return nil, err
	}
	return w.buf.Bytes(), nil
}

// String returns the full JSON form, or the type name if it cannot be
// rendered.
func (s *Schema) String() string {
	b, err := s.MarshalJSON()
	if err != nil {
		return s.Type.String()
	}
	return string(b)
}

// CanonicalForm returns the Parsing Canonical Form of s: only the
// attributes that affect the binary encoding, with full names, in a fixed
// attribute order and without whitespace.
func (s *Schema) CanonicalForm() string {
	w := schemaWriter{written: make(map[string]bool)}
	w.canonical(s)
	return w.buf.String()
}

// Fingerprint returns the CRC-64-AVRO fingerprint of the canonical form.
func (s *Schema) Fingerprint() uint64 {
	return Rabin([]byte(s.CanonicalForm()))
}

type schemaWriter struct {
	buf     bytes.Buffer
	written map[string]bool
}

func (w *schemaWriter) str(s string) {
	b, _ := json.Marshal(s)
	w.buf.Write(b)
}

func (w *schemaWriter) key(k string, first bool) {
	if !first {
		w.buf.WriteByte(',')
	}
	w.str(k)
	w.buf.WriteByte(':')
}

func (w *schemaWriter) canonical(s *Schema) {
	switch s.Type {
	case Null, Boolean, Int, Long, Float, Double, String, Bytes:
		w.str(s.Type.String())
		return
	case Union:
		w.buf.WriteByte('[')
		for i, b := range s.Branches {
			if i > 0 {
				w.buf.WriteByte(',')
			}
			w.canonical(b)
		}
		w.buf.WriteByte(']')
		return
	}

	if s.Type.IsNamed() {
		if w.written[s.Name] {
			w.str(s.Name)
			return
		}
		w.written[s.Name] = true
		w.buf.WriteByte('{')
		w.key("name", true)
		w.str(s.Name)
		w.key("type", false)
	} else {
		w.buf.WriteByte('{')
		w.key("type", true)
	}
	w.str(s.Type.String())

	switch s.Type {
	case Record:
		w.key("fields", false)
		w.buf.WriteByte('[')
		for i, f := range s.Fields {
			if i > 0 {
				w.buf.WriteByte(',')
			}
			w.buf.WriteByte('{')
			w.key("name", true)
			w.str(f.Name)
			w.key("type", false)
			w.canonical(f.Schema)
			w.buf.WriteByte('}')
		}
		w.buf.WriteByte(']')
	case Enum:
		w.key("symbols", false)
		w.strings(s.Symbols)
	case Array:
		w.key("items", false)
		w.canonical(s.Items)
	case Map:
		w.key("values", false)
		w.canonical(s.Values)
	case Fixed:
		w.key("size", false)
		w.buf.WriteString(strconv.Itoa(s.Size))
	}
	w.buf.WriteByte('}')
}

func (w *schemaWriter) strings(ss []string) {
	w.buf.WriteByte('[')
	for i, x := range ss {
		if i > 0 {
			w.buf.WriteByte(',')
		}
		w.str(x)
	}
	w.buf.WriteByte(']')
}

func (w *schemaWriter) full(s *Schema) error {
	if s == nil {
		return errors.New("avro: nil schema")
	}
	if s.Type == Union {
		w.buf.WriteByte('[')
		for i, b := range s.Branches {
			if i > 0 {
				w.buf.WriteByte(',')
			}
			if err := w.full(b); err != nil {
				return err
			}
		}
		w.buf.WriteByte(']')
		return nil
	}
	if !s.Type.IsNamed() && s.Type != Array && s.Type != Map && s.Logical == nil {
		w.str(s.Type.String())
		return nil
	}
	if s.Type.IsNamed() && w.written[s.Name] {
		w.str(s.Name)
		return nil
	}

	w.buf.WriteByte('{')
	w.key("type", true)
	w.str(s.Type.String())
	if s.Type.IsNamed() {
		w.written[s.Name] = true
		w.key("name", false)
		w.str(s.Name)
		if s.Doc != "" {
			w.key("doc", false)
			w.str(s.Doc)
		}
		if len(s.Aliases) > 0 {
			w.key("aliases", false)
			w.strings(s.Aliases)
		}
	}

	switch s.Type {
	case Record:
		w.key("fields", false)
		w.buf.WriteByte('[')
		for i, f := range s.Fields {
			if i > 0 {
				w.buf.WriteByte(',')
			}
			if err := w.field(f); err != nil {
				return errors.Wrapf(err, "avro: field %s.%s", s.Name, f.Name)
			}
		}
		w.buf.WriteByte(']')
	case Enum:
		w.key("symbols", false)
		w.strings(s.Symbols)
	case Array:
		w.key("items", false)
		if err := w.full(s.Items); err != nil {
			return err
		}
	case Map:
		w.key("values", false)
		if err := w.full(s.Values); err != nil {
			return err
		}
	case Fixed:
		w.key("size", false)
		w.buf.WriteString(strconv.Itoa(s.Size))
	}

	if s.Logical != nil {
		w.key("logicalType", false)
		w.str(s.Logical.Name)
		if s.Logical.Name == LogicalDecimal {
			w.key("precision", false)
			w.buf.WriteString(strconv.Itoa(s.Logical.Precision))
			w.key("scale", false)
			w.buf.WriteString(strconv.Itoa(s.Logical.Scale))
		}
	}
	w.buf.WriteByte('}')
	return nil
}

func (w *schemaWriter) field(f *Field) error {
	w.buf.WriteByte('{')
	w.key("name", true)
	w.str(f.Name)
	w.key("type", false)
	if err := w.full(f.Schema); err != nil {
		return err
	}
	if f.Doc != "" {
		w.key("doc", false)
		w.str(f.Doc)
	}
	if f.HasDefault {
		d, err := defaultJSON(f.Default, f.Schema)
		if err != nil {
			return err
		}
		b, err := json.Marshal(d)
		if err != nil {
			return errors.Wrap(err, "avro: failed to marshal default")
		}
		w.key("default", false)
		w.buf.Write(b)
	}
	w.buf.WriteByte('}')
	return nil
}

// defaultJSON renders a field default as the JSON value the schema
// language expects. Union defaults follow the first branch.
func defaultJSON(v value.Value, s *Schema) (interface{}, error) {
	if s.Type == Union {
		if len(s.Branches) == 0 {
			return nil, errors.New("avro: default for empty union")
		}
		return defaultJSON(v, s.Branches[0])
	}

	switch tv := v.(type) {
	case nil, value.Null:
		return nil, nil
	case value.Bool:
		return bool(tv), nil
	case value.Int32:
		return int64(tv), nil
	case value.Int64:
		return int64(tv), nil
	case value.Float32:
		return jsonFloat(float64(tv)), nil
	case value.Float64:
		return jsonFloat(float64(tv)), nil
	case value.String:
		return string(tv), nil
	case value.Bytes:
		return latin1(tv), nil
	case value.List:
		if s.Type != Array {
			break
		}
		out := make([]interface{}, len(tv))
		for i, e := range tv {
			d, err := defaultJSON(e, s.Items)
			if err != nil {
				return nil, err
			}
			out[i] = d
		}
		return out, nil
	case value.Map:
		if s.Type != Map && s.Type != Record {
			break
		}
		out := make(map[string]interface{}, len(tv))
		for k, e := range tv {
			es := s.Values
			if s.Type == Record {
				f, ok := s.Field(k)
				if !ok {
					continue
				}
				es = f.Schema
			}
			d, err := defaultJSON(e, es)
			if err != nil {
				return nil, err
			}
			out[k] = d
		}
		return out, nil
	case *value.Record:
		if s.Type != Record {
			break
		}
		out := make(map[string]interface{}, tv.Len())
		for _, fv := range tv.Fields() {
			f, ok := s.Field(fv.Name)
			if !ok {
				continue
			}
			d, err := defaultJSON(fv.Value, f.Schema)
			if err != nil {
				return nil, err
			}
			out[fv.Name] = d
		}
		return out, nil
	}
	return nil, errors.Errorf("avro: cannot render %s default for %s", value.KindOf(v), s.Type)
}

// jsonFloat keeps non-finite floats representable.
func jsonFloat(f float64) interface{} {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return f
}

// latin1 maps each byte to the code point of the same value, the way
// bytes and fixed defaults are written.
func latin1(b []byte) string {
	r := make([]rune, len(b))
	for i, c := range b {
		r[i] = rune(c)
	}
	return string(r)
}
