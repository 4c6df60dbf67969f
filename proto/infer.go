// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package proto

import (
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/criccomini/twister"
	"github.com/criccomini/twister/value"
)

// Infer derives a message descriptor from a record or map. Fields are
// numbered from 1 in record order, or key order for maps. Nested objects
// become messages named name_field.
func Infer(v value.Value, name string) (*Message, error) {
	m, err := inferMessage(v, name)
	if err != nil {
		return nil, errors.Wrapf(err, "proto: failed to infer descriptor for %s", name)
	}
	return m, nil
}

func inferMessage(v value.Value, name string) (*Message, error) {
	var entries []value.Field
	switch tv := v.(type) {
	case *value.Record:
		entries = tv.Fields()
	case value.Map:
		for _, k := range value.SortedKeys(tv) {
			entries = append(entries, value.F(k, tv[k]))
		}
	default:
		return nil, twister.NewError(twister.UnsupportedValueType).WithField(name).WithKinds("record", value.KindOf(v).String())
	}

	m := NewMessage(name)
	for i, e := range entries {
		f := &Field{Name: e.Name, Number: protowire.Number(i + 1)}
		fv := e.Value
		if list, ok := fv.(value.List); ok {
			if len(list) == 0 {
				return nil, twister.NewError(twister.EmptyArrayInference).WithField(e.Name)
			}
			if _, nested := list[0].(value.List); nested {
				return nil, twister.NewError(twister.UnsupportedValueType).WithField(e.Name).WithKinds("list element", "list")
			}
			f.Repeated = true
			fv = list[0]
		}

		if err := inferType(f, fv, name+"_"+e.Name); err != nil {
			return nil, errors.WithMessagef(err, "field %s", e.Name)
		}
		m.Fields = append(m.Fields, f)
	}
	return m, nil
}

func inferType(f *Field, v value.Value, nestedName string) error {
	switch tv := v.(type) {
	case value.Int32:
		f.Type = TypeInt32
	case value.Int64:
		f.Type = TypeInt64
	case value.Bool:
		f.Type = TypeBool
	case value.String:
		f.Type = TypeString
	case value.Float64:
		f.Type = TypeDouble
	case value.Float32:
		f.Type = TypeFloat
	case value.Bytes:
		f.Type = TypeBytes
	case value.BigInt:
		b := tv.Big()
		if b.Sign() < 0 || !b.IsUint64() {
			return twister.NewError(twister.ValueOutOfRange).WithField(f.Name).WithKinds("uint64", b.String())
		}
		f.Type = TypeUInt64
	case *value.Record, value.Map:
		nested, err := inferMessage(v, nestedName)
		if err != nil {
			return err
		}
		f.Type = TypeMessage
		f.Message = nested
	default:
		return twister.NewError(twister.UnsupportedValueType).WithField(f.Name).WithKinds("inferable value", value.KindOf(v).String())
	}
	return nil
}
