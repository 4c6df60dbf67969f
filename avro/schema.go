// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package avro // import "github.com/criccomini/twister/avro"

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/criccomini/twister/value"
)

// Type is the wire type of a schema node.
type Type uint8

const (
	Null Type = iota
	Boolean
	Int
	Long
	Float
	Double
	String
	Bytes
	Fixed
	Enum
	Array
	Map
	Union
	Record
)

var typeNames = [...]string{
	Null:    "null",
	Boolean: "boolean",
	Int:     "int",
	Long:    "long",
	Float:   "float",
	Double:  "double",
	String:  "string",
	Bytes:   "bytes",
	Fixed:   "fixed",
	Enum:    "enum",
	Array:   "array",
	Map:     "map",
	Union:   "union",
	Record:  "record",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", t)
}

// IsNamed reports whether nodes of this type carry a full name.
func (t Type) IsNamed() bool {
	return t == Record || t == Enum || t == Fixed
}

// Logical type names understood by DefaultRegistry.
const (
	LogicalDecimal              = "decimal"
	LogicalUUID                 = "uuid"
	LogicalDate                 = "date"
	LogicalTimeMillis           = "time-millis"
	LogicalTimeMicros           = "time-micros"
	LogicalTimestampMillis      = "timestamp-millis"
	LogicalTimestampMicros      = "timestamp-micros"
	LogicalLocalTimestampMillis = "local-timestamp-millis"
	LogicalLocalTimestampMicros = "local-timestamp-micros"
)

// LogicalType annotates a schema node with a semantic refinement.
// Precision and Scale are only meaningful for decimal.
type LogicalType struct {
	Name      string
	Precision int
	Scale     int
}

// Schema is one node of a Format-A schema tree. Nodes are shared by
// pointer, so a record may reference itself or an ancestor. A schema must
// not be modified once it is handed to a codec.
type Schema struct {
	Type Type

	// Name is the full (namespace-qualified) name of Record, Enum and Fixed.
	Name    string
	Aliases []string
	Doc     string

	Size    int
	Symbols []string
	Items   *Schema
	Values  *Schema

	Branches []*Schema
	Fields   []*Field

	Logical *LogicalType
}

// Field is one field of a Record schema.
type Field struct {
	Name    string
	Schema  *Schema
	Doc     string
	Default value.Value
	// HasDefault distinguishes an explicit null default from no default.
	HasDefault bool
}

func primitive(t Type) *Schema { return &Schema{Type: t} }

func NewNull() *Schema    { return primitive(Null) }
func NewBoolean() *Schema { return primitive(Boolean) }
func NewInt() *Schema     { return primitive(Int) }
func NewLong() *Schema    { return primitive(Long) }
func NewFloat() *Schema   { return primitive(Float) }
func NewDouble() *Schema  { return primitive(Double) }
func NewString() *Schema  { return primitive(String) }
func NewBytes() *Schema   { return primitive(Bytes) }

func NewFixed(name string, size int) *Schema {
	return &Schema{Type: Fixed, Name: name, Size: size}
}

func NewEnum(name string, symbols ...string) *Schema {
	return &Schema{Type: Enum, Name: name, Symbols: symbols}
}

func NewArray(items *Schema) *Schema {
	return &Schema{Type: Array, Items: items}
}

func NewMap(values *Schema) *Schema {
	return &Schema{Type: Map, Values: values}
}

func NewUnion(branches ...*Schema) *Schema {
	return &Schema{Type: Union, Branches: branches}
}

func NewRecord(name string, fields ...*Field) *Schema {
	return &Schema{Type: Record, Name: name, Fields: fields}
}

// NewField returns a record field without a default.
func NewField(name string, s *Schema) *Field {
	return &Field{Name: name, Schema: s}
}

// WithDefault sets the field's default and returns f.
func (f *Field) WithDefault(v value.Value) *Field {
	f.Default = v
	f.HasDefault = true
	return f
}

// WithLogical annotates s with a logical type and returns s.
func (s *Schema) WithLogical(name string) *Schema {
	s.Logical = &LogicalType{Name: name}
	return s
}

// NewDecimal returns bytes annotated with decimal(precision, scale).
func NewDecimal(precision, scale int) *Schema {
	s := NewBytes()
	s.Logical = &LogicalType{Name: LogicalDecimal, Precision: precision, Scale: scale}
	return s
}

// Nullable returns s wrapped in a union with a leading null branch, or s
// itself when it already admits null.
func Nullable(s *Schema) *Schema {
	if s.AcceptsNull() {
		return s
	}
	return NewUnion(NewNull(), s)
}

// AcceptsNull reports whether null is a valid value for s.
func (s *Schema) AcceptsNull() bool {
	return s.Type == Null || s.NullBranch() >= 0
}

// NullBranch returns the index of the null branch of a union, or -1.
func (s *Schema) NullBranch() int {
	if s.Type != Union {
		return -1
	}
	for i, b := range s.Branches {
		if b.Type == Null {
			return i
		}
	}
	return -1
}

// LogicalName returns the logical type name, or "".
func (s *Schema) LogicalName() string {
	if s.Logical == nil {
		return ""
	}
	return s.Logical.Name
}

// Field returns the record field called name.
func (s *Schema) Field(name string) (*Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// SymbolIndex returns the position of sym among the enum symbols, or -1.
func (s *Schema) SymbolIndex(sym string) int {
	for i, x := range s.Symbols {
		if x == sym {
			return i
		}
	}
	return -1
}

// Namespace returns the dotted prefix of a full name.
func (s *Schema) Namespace() string {
	if i := strings.LastIndexByte(s.Name, '.'); i >= 0 {
		return s.Name[:i]
	}
	return ""
}

// ShortName returns the last component of a full name.
func (s *Schema) ShortName() string {
	if i := strings.LastIndexByte(s.Name, '.'); i >= 0 {
		return s.Name[i+1:]
	}
	return s.Name
}

// unionKey identifies a branch for the duplicate check: unnamed types by
// type, named types by name.
func (s *Schema) unionKey() string {
	if s.Type.IsNamed() {
		return s.Name
	}
	return s.Type.String()
}

// Validate checks the structural invariants of the schema tree.
func (s *Schema) Validate() error {
	return s.validate(make(map[*Schema]bool))
}

func (s *Schema) validate(seen map[*Schema]bool) error {
	if s == nil {
		return errors.New("avro: nil schema")
	}
	if seen[s] {
		return nil
	}
	seen[s] = true

	if s.Type.IsNamed() && s.Name == "" {
		return errors.Errorf("avro: %s schema without a name", s.Type)
	}
	if err := checkLogical(s); err != nil {
		return err
	}

	switch s.Type {
	case Fixed:
		if s.Size < 0 {
			return errors.Errorf("avro: fixed %s has negative size", s.Name)
		}
	case Enum:
		syms := make(map[string]bool, len(s.Symbols))
		for _, sym := range s.Symbols {
			if syms[sym] {
				return errors.Errorf("avro: enum %s repeats symbol %q", s.Name, sym)
			}
			syms[sym] = true
		}
	case Array:
		return errors.Wrap(s.Items.validate(seen), "avro: array items")
	case Map:
		return errors.Wrap(s.Values.validate(seen), "avro: map values")
	case Union:
		keys := make(map[string]bool, len(s.Branches))
		for i, b := range s.Branches {
			if b == nil {
				return errors.Errorf("avro: union branch %d is nil", i)
			}
			if b.Type == Union {
				return errors.New("avro: union directly contains a union")
			}
			k := b.unionKey()
			if keys[k] {
				return errors.Errorf("avro: union contains %s twice", k)
			}
			keys[k] = true
			if err := b.validate(seen); err != nil {
				return errors.Wrapf(err, "avro: union branch %d", i)
			}
		}
	case Record:
		names := make(map[string]bool, len(s.Fields))
		for _, f := range s.Fields {
			if names[f.Name] {
				return errors.Errorf("avro: record %s repeats field %q", s.Name, f.Name)
			}
			names[f.Name] = true
			if err := f.Schema.validate(seen); err != nil {
				return errors.Wrapf(err, "avro: field %s.%s", s.Name, f.Name)
			}
		}
	}
	return nil
}
