// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package avro

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/criccomini/twister"
	"github.com/criccomini/twister/value"
)

type encoder struct {
	w        *Writer
	registry Registry
	maxDepth int
}

func (e *encoder) encode(v value.Value, s *Schema, depth int) error {
	if depth > e.maxDepth {
		return depthExceeded(e.maxDepth)
	}
	if s == nil {
		return errors.New("avro: nil schema")
	}
	if s.Type == Union {
		idx, err := e.registry.resolveBranch(v, s)
		if err != nil {
			return err
		}
		e.w.WriteLong(int64(idx))
		return e.encode(v, s.Branches[idx], depth+1)
	}
	if h, ok := e.registry.handlerFor(s); ok && value.KindOf(v) == h.Kind() {
		return h.Encode(e.w, v, s)
	}

	switch s.Type {
	case Null:
		if !value.IsNull(v) {
			return mismatch("null", v)
		}
		return nil
	case Boolean:
		b, ok := v.(value.Bool)
		if !ok {
			return mismatch("boolean", v)
		}
		e.w.WriteBoolean(bool(b))
		return nil
	case Int:
		i, err := integer(v, "int", math.MinInt32, math.MaxInt32)
		if err != nil {
			return err
		}
		e.w.WriteInt(int32(i))
		return nil
	case Long:
		i, err := integer(v, "long", math.MinInt64, math.MaxInt64)
		if err != nil {
			return err
		}
		e.w.WriteLong(i)
		return nil
	case Float:
		f, ok := value.AsFloat64(v)
		if !ok {
			return mismatch("float", v)
		}
		e.w.WriteFloat(float32(f))
		return nil
	case Double:
		f, ok := value.AsFloat64(v)
		if !ok {
			return mismatch("double", v)
		}
		e.w.WriteDouble(f)
		return nil
	case String:
		str, ok := v.(value.String)
		if !ok {
			return mismatch("string", v)
		}
		e.w.WriteString(string(str))
		return nil
	case Bytes:
		b, ok := v.(value.Bytes)
		if !ok {
			return mismatch("bytes", v)
		}
		e.w.WriteBytes(b)
		return nil
	case Fixed:
		b, ok := v.(value.Bytes)
		if !ok {
			return mismatch("fixed", v)
		}
		if len(b) != s.Size {
			return twister.NewError(twister.FixedSizeMismatch).
				WithField(s.Name).
				WithKinds(strconv.Itoa(s.Size)+" bytes", strconv.Itoa(len(b))+" bytes")
		}
		e.w.WriteFixed(b)
		return nil
	case Enum:
		sym, ok := v.(value.String)
		if !ok {
			return mismatch("enum symbol", v)
		}
		idx := s.SymbolIndex(string(sym))
		if idx < 0 {
			return twister.NewError(twister.UnknownEnumSymbol).
				WithField(s.Name).
				WithKinds("one of "+strings.Join(s.Symbols, ", "), string(sym))
		}
		e.w.WriteLong(int64(idx))
		return nil
	case Array:
		list, ok := v.(value.List)
		if !ok {
			return mismatch("list", v)
		}
		if len(list) > 0 {
			e.w.WriteLong(int64(len(list)))
			for i, item := range list {
				if err := e.encode(item, s.Items, depth+1); err != nil {
					return errors.WithMessagef(err, "item %d", i)
				}
			}
		}
		e.w.WriteLong(0)
		return nil
	case Map:
		return e.encodeMap(v, s, depth)
	case Record:
		return e.encodeRecord(v, s, depth)
	}
	return errors.Errorf("avro: unknown schema type %s", s.Type)
}

// encodeMap writes a map in one block. Map entries go out in sorted key
// order, record fields in record order.
func (e *encoder) encodeMap(v value.Value, s *Schema, depth int) error {
	var fields []value.Field
	switch tv := v.(type) {
	case value.Map:
		for _, k := range value.SortedKeys(tv) {
			fields = append(fields, value.F(k, tv[k]))
		}
	case *value.Record:
		fields = tv.Fields()
	default:
		return mismatch("map", v)
	}

	if len(fields) > 0 {
		e.w.WriteLong(int64(len(fields)))
		for _, f := range fields {
			e.w.WriteString(f.Name)
			if err := e.encode(f.Value, s.Values, depth+1); err != nil {
				return errors.WithMessagef(err, "key %q", f.Name)
			}
		}
	}
	e.w.WriteLong(0)
	return nil
}

func (e *encoder) encodeRecord(v value.Value, s *Schema, depth int) error {
	var get func(string) (value.Value, bool)
	switch tv := v.(type) {
	case *value.Record:
		get = tv.Get
	case value.Map:
		get = func(name string) (value.Value, bool) {
			fv, ok := tv[name]
			return fv, ok
		}
	default:
		return mismatch("record "+s.Name, v)
	}

	for _, f := range s.Fields {
		fv, ok := get(f.Name)
		if !ok {
			switch {
			case f.HasDefault:
				fv = f.Default
			case f.Schema.AcceptsNull():
				fv = value.Null{}
			default:
				return twister.NewError(twister.MissingField).WithField(f.Name).WithKinds(s.Name+"."+f.Name, "absent")
			}
		}
		if err := e.encode(fv, f.Schema, depth+1); err != nil {
			return errors.WithMessagef(err, "field %s", f.Name)
		}
	}
	return nil
}

// integer returns v as an int64 within [lo, hi]. Only integer kinds are
// accepted.
func integer(v value.Value, want string, lo, hi int64) (int64, error) {
	switch v.(type) {
	case value.Int32, value.Int64, value.BigInt:
	default:
		return 0, mismatch(want, v)
	}
	i, ok := value.AsInt64(v)
	if !ok || i < lo || i > hi {
		return 0, twister.NewError(twister.ValueOutOfRange).WithKinds(want, valueText(v))
	}
	return i, nil
}

func valueText(v value.Value) string {
	switch tv := v.(type) {
	case value.Int32:
		return strconv.FormatInt(int64(tv), 10)
	case value.Int64:
		return strconv.FormatInt(int64(tv), 10)
	case value.BigInt:
		return tv.String()
	}
	return value.KindOf(v).String()
}
