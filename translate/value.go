// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package translate

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/criccomini/twister"
	"github.com/criccomini/twister/proto"
	"github.com/criccomini/twister/value"
)

// AvroValue reshapes v, a record or map holding a message of type m, so
// that it encodes with the schema ToAvro(m) returns. Oneof arms move into
// their group field and unsigned 64-bit integers become decimals. Absent
// fields take their protobuf zero value.
func AvroValue(v value.Value, m *proto.Message) (*value.Record, error) {
	rec, err := avroRecord(v, m)
	if err != nil {
		return nil, errors.Wrapf(err, "translate: failed to reshape %s", m.Name)
	}
	return rec, nil
}

func getter(v value.Value) (func(string) (value.Value, bool), bool) {
	switch tv := v.(type) {
	case *value.Record:
		return tv.Get, true
	case value.Map:
		return func(name string) (value.Value, bool) {
			fv, ok := tv[name]
			return fv, ok
		}, true
	}
	return nil, false
}

func avroRecord(v value.Value, m *proto.Message) (*value.Record, error) {
	get, ok := getter(v)
	if !ok {
		return nil, twister.NewError(twister.TypeMismatch).WithField(m.Name).WithKinds("message", value.KindOf(v).String())
	}

	out := value.NewRecord()
	for _, f := range m.Fields {
		if f.Oneof != nil {
			continue
		}
		fv, ok := get(f.Name)
		if !ok || value.IsNull(fv) {
			z, err := zero(f)
			if err != nil {
				return nil, err
			}
			out.Set(f.Name, z)
			continue
		}
		cv, err := convertField(f, fv)
		if err != nil {
			return nil, errors.WithMessagef(err, "field %s", f.Name)
		}
		out.Set(f.Name, cv)
	}

	for _, o := range oneofs(m) {
		var arm value.Value = value.Null{}
		for _, f := range m.OneofFields(o) {
			fv, ok := get(f.Name)
			if !ok || value.IsNull(fv) {
				continue
			}
			cv, err := convertElem(f, fv)
			if err != nil {
				return nil, errors.WithMessagef(err, "field %s", f.Name)
			}
			arm = cv
		}
		out.Set(o.Name, arm)
	}
	return out, nil
}

func convertField(f *proto.Field, v value.Value) (value.Value, error) {
	switch {
	case f.IsMap():
		val, _ := f.Message.FieldByNumber(2)
		entries, ok := v.(value.Map)
		if !ok {
			return nil, twister.NewError(twister.TypeMismatch).WithField(f.Name).WithKinds("map", value.KindOf(v).String())
		}
		out := make(value.Map, len(entries))
		for k, e := range entries {
			ce, err := convertElem(val, e)
			if err != nil {
				return nil, errors.WithMessagef(err, "key %q", k)
			}
			out[k] = ce
		}
		return out, nil
	case f.Repeated:
		list, ok := v.(value.List)
		if !ok {
			return nil, twister.NewError(twister.TypeMismatch).WithField(f.Name).WithKinds("list", value.KindOf(v).String())
		}
		out := make(value.List, len(list))
		for i, e := range list {
			ce, err := convertElem(f, e)
			if err != nil {
				return nil, errors.WithMessagef(err, "item %d", i)
			}
			out[i] = ce
		}
		return out, nil
	}
	return convertElem(f, v)
}

func convertElem(f *proto.Field, v value.Value) (value.Value, error) {
	switch f.Type {
	case proto.TypeMessage:
		return avroRecord(v, f.Message)
	case proto.TypeUInt64, proto.TypeFixed64:
		switch tv := v.(type) {
		case value.BigInt:
			return value.NewDecimal(tv.Big(), 0), nil
		case value.Int32, value.Int64:
			i, _ := value.AsInt64(v)
			return value.NewDecimal(big.NewInt(i), 0), nil
		}
		return nil, twister.NewError(twister.TypeMismatch).WithField(f.Name).WithKinds(f.Type.String(), value.KindOf(v).String())
	}
	return v, nil
}

// zero is the value an absent field of type f holds.
func zero(f *proto.Field) (value.Value, error) {
	switch {
	case f.IsMap():
		return value.Map{}, nil
	case f.Repeated:
		return value.List{}, nil
	case f.Type == proto.TypeMessage:
		return value.Null{}, nil
	case f.Default != nil:
		return convertElem(f, f.Default)
	}

	switch f.Type {
	case proto.TypeBool:
		return value.Bool(false), nil
	case proto.TypeInt32, proto.TypeSInt32, proto.TypeSFixed32:
		return value.Int32(0), nil
	case proto.TypeUInt32, proto.TypeFixed32, proto.TypeInt64, proto.TypeSInt64, proto.TypeSFixed64:
		return value.Int64(0), nil
	case proto.TypeUInt64, proto.TypeFixed64:
		return value.NewDecimal(new(big.Int), 0), nil
	case proto.TypeFloat:
		return value.Float32(0), nil
	case proto.TypeDouble:
		return value.Float64(0), nil
	case proto.TypeString:
		return value.String(""), nil
	case proto.TypeBytes:
		return value.Bytes{}, nil
	case proto.TypeEnum:
		if name, ok := f.Enum.ByNumber(0); ok {
			return value.String(name), nil
		}
		if len(f.Enum.Values) > 0 {
			return value.String(f.Enum.Values[0].Name), nil
		}
	}
	return nil, errors.Errorf("no zero value for field %s of type %s", f.Name, f.Type)
}
