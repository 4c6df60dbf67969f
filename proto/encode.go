// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package proto

import (
	"math"
	"strconv"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/criccomini/twister"
	"github.com/criccomini/twister/value"
)

// fields returns the fields of a record or map value in order, together
// with a position lookup used to pick the active oneof arm.
func fields(v value.Value) (get func(string) (value.Value, bool), pos func(string) int, ok bool) {
	switch tv := v.(type) {
	case *value.Record:
		return tv.Get, tv.Position, true
	case value.Map:
		get = func(name string) (value.Value, bool) {
			fv, ok := tv[name]
			return fv, ok
		}
		// map entries carry no order; the arm declared last wins
		return get, func(string) int { return -1 }, true
	}
	return nil, nil, false
}

func (c *Codec) appendMessage(b []byte, v value.Value, m *Message, depth int) ([]byte, error) {
	if depth > c.maxDepth {
		return nil, depthExceeded(c.maxDepth)
	}
	get, pos, ok := fields(v)
	if !ok {
		return nil, twister.NewError(twister.TypeMismatch).WithField(m.Name).WithKinds("message", value.KindOf(v).String())
	}

	active := make(map[*Oneof]*Field, len(m.Oneofs))
	for _, f := range m.Fields {
		if f.Oneof == nil {
			continue
		}
		fv, ok := get(f.Name)
		if !ok || value.IsNull(fv) {
			continue
		}
		cur, set := active[f.Oneof]
		if !set || pos(f.Name) >= pos(cur.Name) {
			active[f.Oneof] = f
		}
	}

	for _, f := range m.Fields {
		if f.Oneof != nil && active[f.Oneof] != f {
			continue
		}
		fv, ok := get(f.Name)
		if !ok || value.IsNull(fv) {
			continue
		}

		var err error
		switch {
		case f.IsMap():
			b, err = c.appendMap(b, f, fv, depth)
		case f.Repeated:
			list, isList := fv.(value.List)
			if !isList {
				err = mismatch(f, "list", fv)
				break
			}
			for i, item := range list {
				if value.IsNull(item) {
					continue
				}
				if b, err = c.appendField(b, f, item, depth); err != nil {
					err = errors.WithMessagef(err, "item %d", i)
					break
				}
			}
		default:
			b, err = c.appendField(b, f, fv, depth)
		}
		if err != nil {
			return nil, errors.WithMessagef(err, "field %s", f.Name)
		}
	}
	return b, nil
}

// appendMap writes one length-delimited entry per map key, in key order.
func (c *Codec) appendMap(b []byte, f *Field, v value.Value, depth int) ([]byte, error) {
	var entries []value.Field
	switch tv := v.(type) {
	case value.Map:
		for _, k := range value.SortedKeys(tv) {
			entries = append(entries, value.F(k, tv[k]))
		}
	case *value.Record:
		entries = tv.Fields()
	default:
		return nil, mismatch(f, "map", v)
	}

	keyField, valField := f.Message.mapEntryFields()
	for _, e := range entries {
		k, err := parseKey(keyField, e.Name)
		if err != nil {
			return nil, err
		}
		entry := value.NewRecord(value.F(keyField.Name, k), value.F(valField.Name, e.Value))
		if b, err = c.appendField(b, f, entry, depth); err != nil {
			return nil, errors.WithMessagef(err, "key %q", e.Name)
		}
	}
	return b, nil
}

// parseKey converts a map key back to the key field's type.
func parseKey(f *Field, key string) (value.Value, error) {
	var (
		v   value.Value
		err error
	)
	switch f.Type {
	case TypeString:
		return value.String(key), nil
	case TypeBool:
		var bv bool
		bv, err = strconv.ParseBool(key)
		v = value.Bool(bv)
	case TypeUInt64, TypeFixed64:
		var u uint64
		u, err = strconv.ParseUint(key, 10, 64)
		v = value.BigIntFromUint64(u)
	default:
		var i int64
		i, err = strconv.ParseInt(key, 10, 64)
		v = value.Int64(i)
	}
	if err != nil {
		return nil, twister.NewError(twister.TypeMismatch).WithField(f.Name).WithKinds(f.Type.String()+" key", strconv.Quote(key)).WithCause(err)
	}
	return v, nil
}

// appendField writes the tag and value of one occurrence of f.
func (c *Codec) appendField(b []byte, f *Field, v value.Value, depth int) ([]byte, error) {
	if f.Type == TypeMessage {
		sub, err := c.appendMessage(nil, v, f.Message, depth+1)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, f.Number, protowire.BytesType)
		return protowire.AppendBytes(b, sub), nil
	}

	b = protowire.AppendTag(b, f.Number, f.Type.WireType())
	switch f.Type {
	case TypeBool:
		bv, ok := v.(value.Bool)
		if !ok {
			return nil, mismatch(f, "bool", v)
		}
		return protowire.AppendVarint(b, protowire.EncodeBool(bool(bv))), nil
	case TypeInt32:
		i, err := signed(f, v, math.MinInt32, math.MaxInt32)
		return protowire.AppendVarint(b, uint64(i)), err
	case TypeInt64:
		i, err := signed(f, v, math.MinInt64, math.MaxInt64)
		return protowire.AppendVarint(b, uint64(i)), err
	case TypeSInt32:
		i, err := signed(f, v, math.MinInt32, math.MaxInt32)
		return protowire.AppendVarint(b, protowire.EncodeZigZag(i)), err
	case TypeSInt64:
		i, err := signed(f, v, math.MinInt64, math.MaxInt64)
		return protowire.AppendVarint(b, protowire.EncodeZigZag(i)), err
	case TypeUInt32:
		u, err := unsigned(f, v, math.MaxUint32)
		return protowire.AppendVarint(b, u), err
	case TypeUInt64:
		u, err := unsigned(f, v, math.MaxUint64)
		return protowire.AppendVarint(b, u), err
	case TypeFixed32:
		u, err := unsigned(f, v, math.MaxUint32)
		return protowire.AppendFixed32(b, uint32(u)), err
	case TypeFixed64:
		u, err := unsigned(f, v, math.MaxUint64)
		return protowire.AppendFixed64(b, u), err
	case TypeSFixed32:
		i, err := signed(f, v, math.MinInt32, math.MaxInt32)
		return protowire.AppendFixed32(b, uint32(int32(i))), err
	case TypeSFixed64:
		i, err := signed(f, v, math.MinInt64, math.MaxInt64)
		return protowire.AppendFixed64(b, uint64(i)), err
	case TypeFloat:
		fv, ok := value.AsFloat64(v)
		if !ok {
			return nil, mismatch(f, "float", v)
		}
		return protowire.AppendFixed32(b, math.Float32bits(float32(fv))), nil
	case TypeDouble:
		fv, ok := value.AsFloat64(v)
		if !ok {
			return nil, mismatch(f, "double", v)
		}
		return protowire.AppendFixed64(b, math.Float64bits(fv)), nil
	case TypeString:
		s, ok := v.(value.String)
		if !ok {
			return nil, mismatch(f, "string", v)
		}
		return protowire.AppendString(b, string(s)), nil
	case TypeBytes:
		raw, ok := v.(value.Bytes)
		if !ok {
			return nil, mismatch(f, "bytes", v)
		}
		return protowire.AppendBytes(b, raw), nil
	case TypeEnum:
		n, err := enumNumber(f, v)
		return protowire.AppendVarint(b, uint64(int64(n))), err
	}
	return nil, errors.Errorf("proto: field %s has unknown type %s", f.Name, f.Type)
}

func enumNumber(f *Field, v value.Value) (int32, error) {
	switch tv := v.(type) {
	case value.String:
		n, ok := f.Enum.ByName(string(tv))
		if !ok {
			return 0, twister.NewError(twister.UnknownEnumSymbol).WithField(f.Name).WithKinds("symbol of enum "+f.Enum.Name, string(tv))
		}
		return n, nil
	case value.Int32, value.Int64:
		i, err := signed(f, v, math.MinInt32, math.MaxInt32)
		return int32(i), err
	}
	return 0, mismatch(f, "enum symbol", v)
}

func mismatch(f *Field, expected string, v value.Value) error {
	return twister.NewError(twister.TypeMismatch).WithField(f.Name).WithKinds(expected, value.KindOf(v).String())
}

func isInteger(v value.Value) bool {
	switch v.(type) {
	case value.Int32, value.Int64, value.BigInt:
		return true
	}
	return false
}

func signed(f *Field, v value.Value, lo, hi int64) (int64, error) {
	if !isInteger(v) {
		return 0, mismatch(f, f.Type.String(), v)
	}
	i, ok := value.AsInt64(v)
	if !ok || i < lo || i > hi {
		return 0, twister.NewError(twister.ValueOutOfRange).WithField(f.Name).WithKinds(f.Type.String(), valueText(v))
	}
	return i, nil
}

func unsigned(f *Field, v value.Value, hi uint64) (uint64, error) {
	if !isInteger(v) {
		return 0, mismatch(f, f.Type.String(), v)
	}
	u, ok := value.AsUint64(v)
	if !ok || u > hi {
		return 0, twister.NewError(twister.ValueOutOfRange).WithField(f.Name).WithKinds(f.Type.String(), valueText(v))
	}
	return u, nil
}

func valueText(v value.Value) string {
	if s, ok := value.FormatKey(v); ok {
		return s
	}
	return value.KindOf(v).String()
}
