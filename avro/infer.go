// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package avro

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/criccomini/twister"
	"github.com/criccomini/twister/value"
)

// TimePrecision selects the unit of inferred time and timestamp types.
type TimePrecision uint8

const (
	Millis TimePrecision = iota
	Micros
)

// Inferrer derives a schema from a sample value. It is immutable and safe
// for concurrent use.
type Inferrer struct {
	mapAsRecord bool
	precision   TimePrecision
}

type InferOption func(*Inferrer)

// MapAsRecord selects whether nested objects become records (the default)
// or maps over a union of the observed value types.
func MapAsRecord(yes bool) InferOption {
	return func(inf *Inferrer) { inf.mapAsRecord = yes }
}

func WithTimePrecision(p TimePrecision) InferOption {
	return func(inf *Inferrer) { inf.precision = p }
}

func NewInferrer(opts ...InferOption) *Inferrer {
	inf := &Inferrer{mapAsRecord: true, precision: Millis}
	for _, o := range opts {
		o(inf)
	}
	return inf
}

// Infer returns a schema for v. Objects become records named after
// rootName; nested records are named parent_field. Map entries are laid
// out in key order, record fields in record order.
func (inf *Inferrer) Infer(v value.Value, rootName string) (*Schema, error) {
	p := inferPass{Inferrer: inf, names: make(map[string]*Schema)}
	s, err := p.infer(v, rootName, "")
	if err != nil {
		return nil, errors.Wrapf(err, "avro: failed to infer schema for %s", rootName)
	}
	return s, nil
}

// inferPass carries the record name table of one Infer call.
type inferPass struct {
	*Inferrer
	names map[string]*Schema
}

func (p inferPass) infer(v value.Value, field, parent string) (*Schema, error) {
	name := field
	if parent != "" {
		name = parent + "_" + field
	}

	switch tv := v.(type) {
	case nil, value.Null:
		return NewNull(), nil
	case value.Bool:
		return NewBoolean(), nil
	case value.Int32:
		return NewInt(), nil
	case value.Int64:
		return NewLong(), nil
	case value.Float32:
		return NewFloat(), nil
	case value.Float64:
		return NewDouble(), nil
	case value.String:
		return NewString(), nil
	case value.Bytes:
		return NewBytes(), nil
	case value.Decimal:
		d := tv
		if d.Scale < 0 {
			d, _ = d.Rescale(0)
		}
		// precision covers the leading zeros of values below one
		prec, scale := d.Precision(), int(d.Scale)
		if prec < scale {
			prec = scale
		}
		return NewDecimal(prec, scale), nil
	case value.UUID:
		return NewString().WithLogical(LogicalUUID), nil
	case value.Date:
		return NewInt().WithLogical(LogicalDate), nil
	case value.Time:
		if p.precision == Micros {
			return NewLong().WithLogical(LogicalTimeMicros), nil
		}
		return NewInt().WithLogical(LogicalTimeMillis), nil
	case value.Timestamp:
		if p.precision == Micros {
			return NewLong().WithLogical(LogicalTimestampMicros), nil
		}
		return NewLong().WithLogical(LogicalTimestampMillis), nil
	case value.LocalTimestamp:
		if p.precision == Micros {
			return NewLong().WithLogical(LogicalLocalTimestampMicros), nil
		}
		return NewLong().WithLogical(LogicalLocalTimestampMillis), nil
	case value.List:
		if len(tv) == 0 {
			return nil, twister.NewError(twister.EmptyArrayInference).WithField(field)
		}
		items, err := p.infer(tv[0], field, name)
		if err != nil {
			return nil, err
		}
		return NewArray(Nullable(items)), nil
	case value.Map:
		fields := make([]value.Field, 0, len(tv))
		for _, k := range value.SortedKeys(tv) {
			fields = append(fields, value.F(k, tv[k]))
		}
		return p.object(fields, name)
	case *value.Record:
		return p.object(tv.Fields(), name)
	}
	return nil, twister.NewError(twister.UnsupportedValueType).
		WithField(field).
		WithKinds("inferable value", value.KindOf(v).String())
}

func (p inferPass) object(fields []value.Field, name string) (*Schema, error) {
	if !p.mapAsRecord {
		return p.mapOf(fields, name)
	}

	rec := NewRecord(name)
	for _, f := range fields {
		fs, err := p.infer(f.Value, f.Name, name)
		if err != nil {
			return nil, errors.WithMessagef(err, "field %s", f.Name)
		}
		rec.Fields = append(rec.Fields, NewField(f.Name, Nullable(fs)))
	}
	return p.register(rec), nil
}

// mapOf builds a map whose values are a union of null and one schema per
// distinct observed type, in order of first appearance.
func (p inferPass) mapOf(fields []value.Field, name string) (*Schema, error) {
	u := NewUnion(NewNull())
	seen := map[Type]bool{Null: true}
	for _, f := range fields {
		fs, err := p.infer(f.Value, f.Name, name)
		if err != nil {
			return nil, errors.WithMessagef(err, "key %q", f.Name)
		}
		if seen[fs.Type] {
			continue
		}
		seen[fs.Type] = true
		u.Branches = append(u.Branches, fs)
	}
	return NewMap(u), nil
}

// register records rec under its name. A structurally identical record
// seen earlier is reused; a different one forces a numeric suffix.
func (p inferPass) register(rec *Schema) *Schema {
	base := rec.Name
	for i := 2; ; i++ {
		prev, ok := p.names[rec.Name]
		if !ok {
			p.names[rec.Name] = rec
			return rec
		}
		if sameShape(prev, rec) {
			return prev
		}
		rec.Name = base + "_" + strconv.Itoa(i)
	}
}

func sameShape(a, b *Schema) bool {
	if len(a.Fields) != len(b.Fields) {
		return false
	}
	for i := range a.Fields {
		if a.Fields[i].Name != b.Fields[i].Name {
			return false
		}
		if a.Fields[i].Schema.String() != b.Fields[i].Schema.String() {
			return false
		}
	}
	return true
}
