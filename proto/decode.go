// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package proto

import (
	"math"
	"unicode/utf8"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/criccomini/twister"
	"github.com/criccomini/twister/value"
)

func (c *Codec) decodeMessage(b []byte, m *Message, depth int) (*value.Record, error) {
	if depth > c.maxDepth {
		return nil, depthExceeded(c.maxDepth)
	}

	rec := value.NewRecord()
	for _, f := range m.Fields {
		// a oneof arm only holds its default once it is the chosen arm
		if f.Default != nil && !f.Repeated && f.Oneof == nil {
			rec.Set(f.Name, f.Default)
		}
	}

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, wireError(n)
		}
		b = b[n:]

		f, ok := m.FieldByNumber(num)
		if !ok {
			if !c.discardUnknown {
				return nil, twister.NewError(twister.UnknownFieldNumber).
					WithField(m.Name).
					WithNumber(int64(num))
			}
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, wireError(n)
			}
			b = b[n:]
			continue
		}

		n, err := c.decodeField(rec, m, f, typ, b, depth)
		if err != nil {
			return nil, errors.WithMessagef(err, "field %s", f.Name)
		}
		b = b[n:]
	}
	return rec, nil
}

// decodeField reads one occurrence of f and stores it in rec. It returns
// the number of bytes consumed.
func (c *Codec) decodeField(rec *value.Record, m *Message, f *Field, typ protowire.Type, b []byte, depth int) (int, error) {
	if typ == protowire.BytesType && f.Repeated && f.Type.packable() {
		payload, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return 0, wireError(n)
		}
		for len(payload) > 0 {
			v, pn, err := c.decodeScalar(f, f.Type.WireType(), payload)
			if err != nil {
				return 0, err
			}
			appendList(rec, f.Name, v)
			payload = payload[pn:]
		}
		return n, nil
	}

	if !accepts(f.Type, typ) {
		return 0, twister.NewError(twister.UnsupportedWireType).
			WithField(f.Name).
			WithNumber(int64(f.Number)).
			WithKinds(wireName(f.Type.WireType())+" for "+f.Type.String(), wireName(typ))
	}

	var (
		v   value.Value
		n   int
		err error
	)
	if f.Type == TypeMessage {
		payload, pn := protowire.ConsumeBytes(b)
		if pn < 0 {
			return 0, wireError(pn)
		}
		n = pn
		if f.IsMap() {
			return n, c.mergeMapEntry(rec, f, payload, depth)
		}
		v, err = c.decodeMessage(payload, f.Message, depth+1)
	} else {
		v, n, err = c.decodeScalar(f, typ, b)
	}
	if err != nil {
		return 0, err
	}

	switch {
	case f.Repeated:
		appendList(rec, f.Name, v)
	case f.Oneof != nil:
		for _, arm := range m.OneofFields(f.Oneof) {
			if arm != f {
				rec.Delete(arm.Name)
			}
		}
		rec.Set(f.Name, v)
	default:
		rec.Set(f.Name, v)
	}
	return n, nil
}

// accepts reports whether a field of type t may arrive with wire type w.
// Unsigned 32 and 64-bit fixed fields are also read from varints.
func accepts(t FieldType, w protowire.Type) bool {
	if t.WireType() == w {
		return true
	}
	return w == protowire.VarintType && (t == TypeFixed32 || t == TypeFixed64)
}

func appendList(rec *value.Record, name string, v value.Value) {
	list, _ := rec.Get(name)
	l, _ := list.(value.List)
	rec.Set(name, append(l, v))
}

func (c *Codec) mergeMapEntry(rec *value.Record, f *Field, payload []byte, depth int) error {
	entry, err := c.decodeMessage(payload, f.Message, depth+1)
	if err != nil {
		return err
	}
	keyField, valField := f.Message.mapEntryFields()

	k, ok := entry.Get(keyField.Name)
	if !ok {
		k = zeroValue(keyField)
	}
	key, ok := value.FormatKey(k)
	if !ok {
		return twister.NewError(twister.TypeMismatch).WithField(f.Name).WithKinds("scalar map key", value.KindOf(k).String())
	}
	v, ok := entry.Get(valField.Name)
	if !ok {
		v = zeroValue(valField)
	}

	cur, _ := rec.Get(f.Name)
	m, ok := cur.(value.Map)
	if !ok {
		m = value.Map{}
		rec.Set(f.Name, m)
	}
	m[key] = v
	return nil
}

// zeroValue is what an absent map key or value decodes to.
func zeroValue(f *Field) value.Value {
	if f.Default != nil {
		return f.Default
	}
	switch f.Type {
	case TypeBool:
		return value.Bool(false)
	case TypeInt32, TypeSInt32, TypeSFixed32:
		return value.Int32(0)
	case TypeInt64, TypeSInt64, TypeSFixed64, TypeUInt32, TypeFixed32:
		return value.Int64(0)
	case TypeUInt64, TypeFixed64:
		return value.BigIntFromUint64(0)
	case TypeFloat:
		return value.Float32(0)
	case TypeDouble:
		return value.Float64(0)
	case TypeString:
		return value.String("")
	case TypeBytes:
		return value.Bytes{}
	case TypeEnum:
		if name, ok := f.Enum.ByNumber(0); ok {
			return value.String(name)
		}
		if len(f.Enum.Values) > 0 {
			return value.String(f.Enum.Values[0].Name)
		}
	case TypeMessage:
		return value.NewRecord()
	}
	return value.Null{}
}

// decodeScalar reads one non-message value of f's type from b.
func (c *Codec) decodeScalar(f *Field, typ protowire.Type, b []byte) (value.Value, int, error) {
	switch typ {
	case protowire.VarintType:
		u, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, 0, wireError(n)
		}
		v, err := fromVarint(f, u)
		return v, n, err
	case protowire.Fixed64Type:
		u, n := protowire.ConsumeFixed64(b)
		if n < 0 {
			return nil, 0, wireError(n)
		}
		switch f.Type {
		case TypeDouble:
			return value.Float64(math.Float64frombits(u)), n, nil
		case TypeFixed64:
			return value.BigIntFromUint64(u), n, nil
		}
		return value.Int64(int64(u)), n, nil
	case protowire.Fixed32Type:
		u, n := protowire.ConsumeFixed32(b)
		if n < 0 {
			return nil, 0, wireError(n)
		}
		switch f.Type {
		case TypeFloat:
			return value.Float32(math.Float32frombits(u)), n, nil
		case TypeFixed32:
			return value.Int64(int64(u)), n, nil
		}
		return value.Int32(int32(u)), n, nil
	case protowire.BytesType:
		raw, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, 0, wireError(n)
		}
		if f.Type == TypeString {
			if !utf8.Valid(raw) {
				return nil, 0, twister.NewError(twister.MalformedInput).WithField(f.Name).WithKinds("UTF-8 string", "invalid UTF-8")
			}
			return value.String(raw), n, nil
		}
		return value.Bytes(append([]byte(nil), raw...)), n, nil
	}
	return nil, 0, twister.NewError(twister.UnsupportedWireType).WithField(f.Name).WithKinds(wireName(f.Type.WireType()), wireName(typ))
}

func fromVarint(f *Field, u uint64) (value.Value, error) {
	switch f.Type {
	case TypeBool:
		return value.Bool(u != 0), nil
	case TypeInt32:
		return value.Int32(int32(u)), nil
	case TypeSInt32:
		return value.Int32(int32(protowire.DecodeZigZag(u & math.MaxUint32))), nil
	case TypeSInt64:
		return value.Int64(protowire.DecodeZigZag(u)), nil
	case TypeUInt32, TypeFixed32:
		return value.Int64(int64(uint32(u))), nil
	case TypeUInt64, TypeFixed64:
		return value.BigIntFromUint64(u), nil
	case TypeEnum:
		name, ok := f.Enum.ByNumber(int32(u))
		if !ok {
			return nil, twister.NewError(twister.UnknownEnumValue).
				WithField(f.Name).
				WithNumber(int64(int32(u))).
				WithKinds("value of enum "+f.Enum.Name, valueText(value.Int64(int32(u))))
		}
		return value.String(name), nil
	}
	return value.Int64(int64(u)), nil
}
