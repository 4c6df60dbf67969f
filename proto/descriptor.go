// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

// Package proto encodes and decodes Values in the protocol buffers wire
// format, driven by a runtime message descriptor instead of generated
// code.
package proto // import "github.com/criccomini/twister/proto"

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/criccomini/twister/value"
)

// FieldType is the declared scalar or composite type of a field.
type FieldType uint8

const (
	TypeInvalid FieldType = iota
	TypeBool
	TypeInt32
	TypeInt64
	TypeUInt32
	TypeUInt64
	TypeSInt32
	TypeSInt64
	TypeFixed32
	TypeFixed64
	TypeSFixed32
	TypeSFixed64
	TypeFloat
	TypeDouble
	TypeString
	TypeBytes
	TypeEnum
	TypeMessage
)

var typeNames = [...]string{
	TypeInvalid:  "invalid",
	TypeBool:     "bool",
	TypeInt32:    "int32",
	TypeInt64:    "int64",
	TypeUInt32:   "uint32",
	TypeUInt64:   "uint64",
	TypeSInt32:   "sint32",
	TypeSInt64:   "sint64",
	TypeFixed32:  "fixed32",
	TypeFixed64:  "fixed64",
	TypeSFixed32: "sfixed32",
	TypeSFixed64: "sfixed64",
	TypeFloat:    "float",
	TypeDouble:   "double",
	TypeString:   "string",
	TypeBytes:    "bytes",
	TypeEnum:     "enum",
	TypeMessage:  "message",
}

func (t FieldType) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("FieldType(%d)", t)
}

// WireType returns the wire type the encoder writes for t.
func (t FieldType) WireType() protowire.Type {
	switch t {
	case TypeFixed64, TypeSFixed64, TypeDouble:
		return protowire.Fixed64Type
	case TypeFixed32, TypeSFixed32, TypeFloat:
		return protowire.Fixed32Type
	case TypeString, TypeBytes, TypeMessage:
		return protowire.BytesType
	}
	return protowire.VarintType
}

// packable reports whether repeated fields of t may arrive packed.
func (t FieldType) packable() bool {
	return t != TypeInvalid && t.WireType() != protowire.BytesType
}

// EnumValue is one named number of an enum.
type EnumValue struct {
	Name   string
	Number int32
}

type Enum struct {
	Name   string
	Values []EnumValue
}

func NewEnum(name string, values ...EnumValue) *Enum {
	return &Enum{Name: name, Values: values}
}

// ByNumber returns the first name declared for n.
func (e *Enum) ByNumber(n int32) (string, bool) {
	for _, v := range e.Values {
		if v.Number == n {
			return v.Name, true
		}
	}
	return "", false
}

func (e *Enum) ByName(name string) (int32, bool) {
	for _, v := range e.Values {
		if v.Name == name {
			return v.Number, true
		}
	}
	return 0, false
}

// Oneof names a group of fields of which at most one is set.
type Oneof struct {
	Name string
}

type Field struct {
	Name   string
	Number protowire.Number
	Type   FieldType

	// Enum is set for TypeEnum, Message for TypeMessage.
	Enum    *Enum
	Message *Message

	Repeated bool
	Oneof    *Oneof

	// Default is surfaced by the decoder when the field is absent.
	Default value.Value
}

// IsMap reports whether f is a map field: a repeated map-entry message.
func (f *Field) IsMap() bool {
	return f.Repeated && f.Type == TypeMessage && f.Message != nil && f.Message.MapEntry
}

// Message describes one message type. A Message must not be modified once
// it is handed to a codec.
type Message struct {
	Name   string
	Fields []*Field
	Oneofs []*Oneof

	// MapEntry marks the synthetic key/value message of a map field.
	MapEntry bool

	once     sync.Once
	byNumber map[protowire.Number]*Field
	byName   map[string]*Field
}

func NewMessage(name string, fields ...*Field) *Message {
	return &Message{Name: name, Fields: fields}
}

// NewMapField returns a map field whose entries have the given key and
// value fields. The entry message is named after the field.
func NewMapField(name string, number protowire.Number, key, val *Field) *Field {
	key.Name, key.Number = "key", 1
	val.Name, val.Number = "value", 2
	entry := NewMessage(name+"Entry", key, val)
	entry.MapEntry = true
	return &Field{Name: name, Number: number, Type: TypeMessage, Message: entry, Repeated: true}
}

func (m *Message) index() {
	m.once.Do(func() {
		m.byNumber = make(map[protowire.Number]*Field, len(m.Fields))
		m.byName = make(map[string]*Field, len(m.Fields))
		for _, f := range m.Fields {
			m.byNumber[f.Number] = f
			m.byName[f.Name] = f
		}
	})
}

func (m *Message) FieldByNumber(n protowire.Number) (*Field, bool) {
	m.index()
	f, ok := m.byNumber[n]
	return f, ok
}

func (m *Message) FieldByName(name string) (*Field, bool) {
	m.index()
	f, ok := m.byName[name]
	return f, ok
}

// OneofFields returns the arms of o in declaration order.
func (m *Message) OneofFields(o *Oneof) []*Field {
	var arms []*Field
	for _, f := range m.Fields {
		if f.Oneof == o {
			arms = append(arms, f)
		}
	}
	return arms
}

// mapEntryFields returns the key and value fields of a map-entry message.
func (m *Message) mapEntryFields() (key, val *Field) {
	key, _ = m.FieldByNumber(1)
	val, _ = m.FieldByNumber(2)
	return key, val
}

// Field numbers reserved by the wire format implementation.
const (
	minReserved = 19000
	maxReserved = 19999
)

// Validate checks field numbers, names, map entries and oneof arms of m
// and every message it references.
func (m *Message) Validate() error {
	return m.validate(make(map[*Message]bool))
}

func (m *Message) validate(seen map[*Message]bool) error {
	if seen[m] {
		return nil
	}
	seen[m] = true

	if m.Name == "" {
		return errors.New("proto: message without a name")
	}
	numbers := make(map[protowire.Number]bool, len(m.Fields))
	names := make(map[string]bool, len(m.Fields))
	for _, f := range m.Fields {
		if f.Name == "" {
			return errors.Errorf("proto: %s has a field without a name", m.Name)
		}
		if !f.Number.IsValid() || (f.Number >= minReserved && f.Number <= maxReserved) {
			return errors.Errorf("proto: %s.%s has invalid number %d", m.Name, f.Name, f.Number)
		}
		if numbers[f.Number] {
			return errors.Errorf("proto: %s repeats field number %d", m.Name, f.Number)
		}
		numbers[f.Number] = true
		if names[f.Name] {
			return errors.Errorf("proto: %s repeats field name %q", m.Name, f.Name)
		}
		names[f.Name] = true

		switch f.Type {
		case TypeInvalid:
			return errors.Errorf("proto: %s.%s has no type", m.Name, f.Name)
		case TypeEnum:
			if f.Enum == nil || len(f.Enum.Values) == 0 {
				return errors.Errorf("proto: %s.%s has an empty enum", m.Name, f.Name)
			}
		case TypeMessage:
			if f.Message == nil {
				return errors.Errorf("proto: %s.%s has no message type", m.Name, f.Name)
			}
			if f.Message.MapEntry && !f.Repeated {
				return errors.Errorf("proto: map entry %s.%s must be repeated", m.Name, f.Name)
			}
			if err := f.Message.validate(seen); err != nil {
				return errors.Wrapf(err, "proto: field %s.%s", m.Name, f.Name)
			}
		}
		if f.Oneof != nil && f.Repeated {
			return errors.Errorf("proto: oneof arm %s.%s is repeated", m.Name, f.Name)
		}
	}

	if m.MapEntry {
		key, val := m.mapEntryFields()
		if len(m.Fields) != 2 || key == nil || val == nil {
			return errors.Errorf("proto: map entry %s needs fields 1 and 2", m.Name)
		}
		switch key.Type {
		case TypeFloat, TypeDouble, TypeBytes, TypeEnum, TypeMessage:
			return errors.Errorf("proto: map entry %s has %s keys", m.Name, key.Type)
		}
		if key.Repeated || val.Repeated {
			return errors.Errorf("proto: map entry %s has repeated fields", m.Name)
		}
	}
	return nil
}

// Messages returns m and every message reachable from it, sorted by name.
func (m *Message) Messages() []*Message {
	seen := map[*Message]bool{}
	var walk func(*Message)
	walk = func(x *Message) {
		if seen[x] {
			return
		}
		seen[x] = true
		for _, f := range x.Fields {
			if f.Message != nil {
				walk(f.Message)
			}
		}
	}
	walk(m)

	out := make([]*Message, 0, len(seen))
	for x := range seen {
		out = append(out, x)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
