// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

// Package translate converts protocol buffer message descriptors into
// Avro schemas and JSON Schema documents, and reshapes decoded protobuf
// values to match the translated Avro schema.
package translate // import "github.com/criccomini/twister/translate"

import (
	"github.com/pkg/errors"

	"github.com/criccomini/twister/avro"
	"github.com/criccomini/twister/proto"
	"github.com/criccomini/twister/value"
)

// ToAvro returns the Avro record schema equivalent to m. Each message
// becomes one record named after it; a message referenced again, including
// recursively, is referenced by name. Oneof groups become a single
// nullable union field named after the group, placed after the regular
// fields.
func ToAvro(m *proto.Message) (*avro.Schema, error) {
	b := avroBuilder{
		records: make(map[string]*avro.Schema),
		enums:   make(map[string]*avro.Schema),
	}
	s, err := b.record(m)
	if err != nil {
		return nil, errors.Wrapf(err, "translate: failed to convert %s", m.Name)
	}
	if err := s.Validate(); err != nil {
		return nil, errors.Wrapf(err, "translate: %s has no valid avro form", m.Name)
	}
	return s, nil
}

type avroBuilder struct {
	records map[string]*avro.Schema
	enums   map[string]*avro.Schema
}

func (b avroBuilder) record(m *proto.Message) (*avro.Schema, error) {
	if s, ok := b.records[m.Name]; ok {
		return s, nil
	}
	if m.MapEntry {
		return nil, errors.Errorf("map entry %s used as a message", m.Name)
	}
	s := avro.NewRecord(m.Name)
	b.records[m.Name] = s

	for _, f := range m.Fields {
		if f.Oneof != nil {
			continue
		}
		af, err := b.field(f)
		if err != nil {
			return nil, errors.WithMessagef(err, "field %s.%s", m.Name, f.Name)
		}
		s.Fields = append(s.Fields, af)
	}

	for _, o := range oneofs(m) {
		u, err := b.oneof(m, o)
		if err != nil {
			return nil, errors.WithMessagef(err, "oneof %s.%s", m.Name, o.Name)
		}
		s.Fields = append(s.Fields, avro.NewField(o.Name, u).WithDefault(value.Null{}))
	}
	return s, nil
}

// oneofs returns the groups of m in declaration order, including groups
// only reachable through a field.
func oneofs(m *proto.Message) []*proto.Oneof {
	seen := make(map[*proto.Oneof]bool, len(m.Oneofs))
	out := make([]*proto.Oneof, 0, len(m.Oneofs))
	for _, o := range m.Oneofs {
		if !seen[o] {
			seen[o] = true
			out = append(out, o)
		}
	}
	for _, f := range m.Fields {
		if f.Oneof != nil && !seen[f.Oneof] {
			seen[f.Oneof] = true
			out = append(out, f.Oneof)
		}
	}
	return out
}

func (b avroBuilder) field(f *proto.Field) (*avro.Field, error) {
	s, err := b.fieldType(f)
	if err != nil {
		return nil, err
	}
	af := avro.NewField(f.Name, s)
	switch {
	case f.IsMap():
		af.WithDefault(value.Map{})
	case f.Repeated:
		af.WithDefault(value.List{})
	case f.Type == proto.TypeMessage:
		af.WithDefault(value.Null{})
	case f.Default != nil:
		// unsigned 64-bit defaults have no literal form for decimal bytes
		if _, isBig := f.Default.(value.BigInt); !isBig {
			af.WithDefault(f.Default)
		}
	}
	return af, nil
}

func (b avroBuilder) fieldType(f *proto.Field) (*avro.Schema, error) {
	if f.IsMap() {
		val, ok := f.Message.FieldByNumber(2)
		if !ok {
			return nil, errors.Errorf("map entry %s has no value field", f.Message.Name)
		}
		vs, err := b.elem(val)
		if err != nil {
			return nil, err
		}
		return avro.NewMap(vs), nil
	}

	s, err := b.elem(f)
	if err != nil {
		return nil, err
	}
	switch {
	case f.Repeated:
		return avro.NewArray(s), nil
	case f.Type == proto.TypeMessage:
		return avro.Nullable(s), nil
	}
	return s, nil
}

// elem maps one occurrence of f to its Avro type.
func (b avroBuilder) elem(f *proto.Field) (*avro.Schema, error) {
	switch f.Type {
	case proto.TypeBool:
		return avro.NewBoolean(), nil
	case proto.TypeInt32, proto.TypeSInt32, proto.TypeSFixed32:
		return avro.NewInt(), nil
	case proto.TypeUInt32, proto.TypeFixed32, proto.TypeInt64, proto.TypeSInt64, proto.TypeSFixed64:
		return avro.NewLong(), nil
	case proto.TypeUInt64, proto.TypeFixed64:
		return avro.NewDecimal(20, 0), nil
	case proto.TypeFloat:
		return avro.NewFloat(), nil
	case proto.TypeDouble:
		return avro.NewDouble(), nil
	case proto.TypeString:
		return avro.NewString(), nil
	case proto.TypeBytes:
		return avro.NewBytes(), nil
	case proto.TypeEnum:
		return b.enum(f.Enum), nil
	case proto.TypeMessage:
		return b.record(f.Message)
	}
	return nil, errors.Errorf("unsupported field type %s", f.Type)
}

func (b avroBuilder) enum(e *proto.Enum) *avro.Schema {
	if s, ok := b.enums[e.Name]; ok {
		return s
	}
	syms := make([]string, len(e.Values))
	for i, v := range e.Values {
		syms[i] = v.Name
	}
	s := avro.NewEnum(e.Name, syms...)
	b.enums[e.Name] = s
	return s
}

// oneof builds the union for group o: null first, then one branch per
// distinct arm type.
func (b avroBuilder) oneof(m *proto.Message, o *proto.Oneof) (*avro.Schema, error) {
	u := avro.NewUnion(avro.NewNull())
	seen := make(map[string]bool)
	for _, f := range m.OneofFields(o) {
		s, err := b.elem(f)
		if err != nil {
			return nil, errors.WithMessagef(err, "arm %s", f.Name)
		}
		key := s.Type.String()
		if s.Type.IsNamed() {
			key = s.Name
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		u.Branches = append(u.Branches, s)
	}
	return u, nil
}
