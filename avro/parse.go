// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package avro

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/criccomini/twister/value"
)

// ParseSchema parses a schema written in the JSON schema language. Named
// types may be referenced by full or short name once they have been
// declared, including from inside their own definition.
func ParseSchema(data []byte) (*Schema, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var node interface{}
	if err := dec.Decode(&node); err != nil {
		return nil, errors.Wrap(err, "avro: failed to parse schema json")
	}

	p := parser{names: make(map[string]*Schema)}
	s, err := p.parse(node, "")
	if err != nil {
		return nil, errors.Wrap(err, "avro: failed to parse schema")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// MustParseSchema is like ParseSchema but panics on error.
func MustParseSchema(data string) *Schema {
	s, err := ParseSchema([]byte(data))
	if err != nil {
		panic(err)
	}
	return s
}

var primitives = map[string]Type{
	"null":    Null,
	"boolean": Boolean,
	"int":     Int,
	"long":    Long,
	"float":   Float,
	"double":  Double,
	"string":  String,
	"bytes":   Bytes,
}

type parser struct {
	names map[string]*Schema
}

func fullName(name, namespace string) string {
	if strings.Contains(name, ".") || namespace == "" {
		return name
	}
	return namespace + "." + name
}

func (p *parser) lookup(name, namespace string) (*Schema, error) {
	if s, ok := p.names[fullName(name, namespace)]; ok {
		return s, nil
	}
	if s, ok := p.names[name]; ok {
		return s, nil
	}
	return nil, errors.Errorf("unknown type %q", name)
}

func (p *parser) parse(node interface{}, namespace string) (*Schema, error) {
	switch n := node.(type) {
	case string:
		if t, ok := primitives[n]; ok {
			return primitive(t), nil
		}
		return p.lookup(n, namespace)
	case []interface{}:
		u := NewUnion()
		for i, b := range n {
			bs, err := p.parse(b, namespace)
			if err != nil {
				return nil, errors.Wrapf(err, "union branch %d", i)
			}
			u.Branches = append(u.Branches, bs)
		}
		return u, nil
	case map[string]interface{}:
		return p.parseObject(n, namespace)
	}
	return nil, errors.Errorf("unexpected schema node %T", node)
}

func (p *parser) parseObject(n map[string]interface{}, namespace string) (*Schema, error) {
	t, ok := n["type"].(string)
	if !ok {
		if inner, has := n["type"]; has {
			return p.parse(inner, namespace)
		}
		return nil, errors.New("schema object without type")
	}

	var s *Schema
	if pt, ok := primitives[t]; ok {
		s = primitive(pt)
	} else {
		switch t {
		case "record", "error", "enum", "fixed":
			named, err := p.parseNamed(t, n, namespace)
			if err != nil {
				return nil, err
			}
			s = named
		case "array":
			items, err := p.parse(n["items"], namespace)
			if err != nil {
				return nil, errors.Wrap(err, "array items")
			}
			s = NewArray(items)
		case "map":
			values, err := p.parse(n["values"], namespace)
			if err != nil {
				return nil, errors.Wrap(err, "map values")
			}
			s = NewMap(values)
		default:
			return p.lookup(t, namespace)
		}
	}

	if lt, ok := n["logicalType"].(string); ok {
		s.Logical = logicalFor(lt, n, s)
	}
	return s, nil
}

func (p *parser) parseNamed(t string, n map[string]interface{}, namespace string) (*Schema, error) {
	name, _ := n["name"].(string)
	if name == "" {
		return nil, errors.Errorf("%s without a name", t)
	}
	if ns, ok := n["namespace"].(string); ok && !strings.Contains(name, ".") {
		namespace = ns
	}
	full := fullName(name, namespace)
	if i := strings.LastIndexByte(full, '.'); i >= 0 {
		namespace = full[:i]
	} else {
		namespace = ""
	}
	if _, dup := p.names[full]; dup {
		return nil, errors.Errorf("type %s defined twice", full)
	}

	s := &Schema{Name: full}
	s.Doc, _ = n["doc"].(string)
	if aliases, ok := n["aliases"].([]interface{}); ok {
		for _, a := range aliases {
			if as, ok := a.(string); ok {
				s.Aliases = append(s.Aliases, fullName(as, namespace))
			}
		}
	}
	p.names[full] = s

	switch t {
	case "fixed":
		s.Type = Fixed
		size, err := intAttr(n, "size")
		if err != nil {
			return nil, errors.Wrapf(err, "fixed %s", full)
		}
		s.Size = size
	case "enum":
		s.Type = Enum
		syms, _ := n["symbols"].([]interface{})
		for _, sym := range syms {
			str, ok := sym.(string)
			if !ok {
				return nil, errors.Errorf("enum %s: symbol %v is not a string", full, sym)
			}
			s.Symbols = append(s.Symbols, str)
		}
	default:
		s.Type = Record
		fields, _ := n["fields"].([]interface{})
		for i, fn := range fields {
			fm, ok := fn.(map[string]interface{})
			if !ok {
				return nil, errors.Errorf("record %s: field %d is not an object", full, i)
			}
			f, err := p.parseField(fm, namespace)
			if err != nil {
				return nil, errors.Wrapf(err, "record %s", full)
			}
			s.Fields = append(s.Fields, f)
		}
	}
	return s, nil
}

func (p *parser) parseField(n map[string]interface{}, namespace string) (*Field, error) {
	name, _ := n["name"].(string)
	if name == "" {
		return nil, errors.New("field without a name")
	}
	fs, err := p.parse(n["type"], namespace)
	if err != nil {
		return nil, errors.Wrapf(err, "field %s", name)
	}
	f := NewField(name, fs)
	f.Doc, _ = n["doc"].(string)
	if d, ok := n["default"]; ok {
		dv, err := defaultValue(d, fs)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s default", name)
		}
		f.WithDefault(dv)
	}
	return f, nil
}

func intAttr(n map[string]interface{}, key string) (int, error) {
	num, ok := n[key].(json.Number)
	if !ok {
		return 0, errors.Errorf("missing integer %q", key)
	}
	i, err := num.Int64()
	if err != nil || i < 0 || i > math.MaxInt32 {
		return 0, errors.Errorf("invalid %q: %s", key, num)
	}
	return int(i), nil
}

// logicalFor returns the annotation for a logicalType attribute. Known
// logical types on the wrong underlying type are ignored, as are decimals
// without a valid precision.
func logicalFor(name string, n map[string]interface{}, s *Schema) *LogicalType {
	lt := &LogicalType{Name: name}
	valid := true
	switch name {
	case LogicalDecimal:
		prec, err := intAttr(n, "precision")
		scale := 0
		if _, has := n["scale"]; has {
			var serr error
			scale, serr = intAttr(n, "scale")
			if serr != nil {
				err = serr
			}
		}
		valid = err == nil && prec > 0 && scale <= prec && (s.Type == Bytes || s.Type == Fixed)
		lt.Precision, lt.Scale = prec, scale
	case LogicalUUID:
		valid = s.Type == String || (s.Type == Fixed && s.Size == 16)
	case LogicalDate, LogicalTimeMillis:
		valid = s.Type == Int
	case LogicalTimeMicros, LogicalTimestampMillis, LogicalTimestampMicros,
		LogicalLocalTimestampMillis, LogicalLocalTimestampMicros:
		valid = s.Type == Long
	}
	if !valid {
		return nil
	}
	return lt
}

// defaultValue converts a JSON default into a Value for schema s.
func defaultValue(d interface{}, s *Schema) (value.Value, error) {
	switch s.Type {
	case Union:
		if len(s.Branches) == 0 {
			return nil, errors.New("empty union")
		}
		return defaultValue(d, s.Branches[0])
	case Null:
		if d != nil {
			return nil, errors.Errorf("expected null, got %v", d)
		}
		return value.Null{}, nil
	case Boolean:
		b, ok := d.(bool)
		if !ok {
			return nil, errors.Errorf("expected boolean, got %v", d)
		}
		return value.Bool(b), nil
	case Int, Long:
		num, ok := d.(json.Number)
		if !ok {
			return nil, errors.Errorf("expected integer, got %v", d)
		}
		i, err := num.Int64()
		if err != nil {
			return nil, errors.Wrap(err, "integer default")
		}
		if s.Type == Int {
			if i < math.MinInt32 || i > math.MaxInt32 {
				return nil, errors.Errorf("int default %d out of range", i)
			}
			return value.Int32(i), nil
		}
		return value.Int64(i), nil
	case Float, Double:
		var f float64
		switch tv := d.(type) {
		case json.Number:
			var err error
			if f, err = tv.Float64(); err != nil {
				return nil, errors.Wrap(err, "float default")
			}
		case string:
			switch tv {
			case "NaN":
				f = math.NaN()
			case "Infinity":
				f = math.Inf(1)
			case "-Infinity":
				f = math.Inf(-1)
			default:
				return nil, errors.Errorf("expected number, got %q", tv)
			}
		default:
			return nil, errors.Errorf("expected number, got %v", d)
		}
		if s.Type == Float {
			return value.Float32(f), nil
		}
		return value.Float64(f), nil
	case String, Enum:
		str, ok := d.(string)
		if !ok {
			return nil, errors.Errorf("expected string, got %v", d)
		}
		return value.String(str), nil
	case Bytes, Fixed:
		str, ok := d.(string)
		if !ok {
			return nil, errors.Errorf("expected string, got %v", d)
		}
		b := make([]byte, 0, len(str))
		for _, r := range str {
			if r > 0xff {
				return nil, errors.Errorf("bytes default has code point %U", r)
			}
			b = append(b, byte(r))
		}
		return value.Bytes(b), nil
	case Array:
		arr, ok := d.([]interface{})
		if !ok {
			return nil, errors.Errorf("expected array, got %v", d)
		}
		list := make(value.List, len(arr))
		for i, e := range arr {
			ev, err := defaultValue(e, s.Items)
			if err != nil {
				return nil, errors.Wrapf(err, "item %d", i)
			}
			list[i] = ev
		}
		return list, nil
	case Map:
		obj, ok := d.(map[string]interface{})
		if !ok {
			return nil, errors.Errorf("expected object, got %v", d)
		}
		m := make(value.Map, len(obj))
		for k, e := range obj {
			ev, err := defaultValue(e, s.Values)
			if err != nil {
				return nil, errors.Wrapf(err, "key %q", k)
			}
			m[k] = ev
		}
		return m, nil
	case Record:
		obj, ok := d.(map[string]interface{})
		if !ok {
			return nil, errors.Errorf("expected object, got %v", d)
		}
		rec := value.NewRecord()
		for _, f := range s.Fields {
			e, has := obj[f.Name]
			if !has {
				if f.HasDefault {
					rec.Set(f.Name, f.Default)
				}
				continue
			}
			ev, err := defaultValue(e, f.Schema)
			if err != nil {
				return nil, errors.Wrapf(err, "field %s", f.Name)
			}
			rec.Set(f.Name, ev)
		}
		return rec, nil
	}
	return nil, errors.Errorf("no default for %s", s.Type)
}
