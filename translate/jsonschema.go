// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package translate

import (
	"github.com/criccomini/twister/proto"
)

// ToJSONSchema describes the JSON form of m as a JSON Schema document.
// A message seen a second time, recursively or not, is replaced by a
// "$ref" into "$defs", and only referenced messages are listed there.
// Oneof groups become one "anyOf" property named after the group.
func ToJSONSchema(m *proto.Message) map[string]interface{} {
	b := jsonSchemaBuilder{
		visited:    make(map[string]map[string]interface{}),
		referenced: make(map[string]bool),
	}
	root := b.message(m)

	out := make(map[string]interface{}, len(root)+1)
	for k, v := range root {
		out[k] = v
	}
	if len(b.referenced) > 0 {
		defs := make(map[string]interface{}, len(b.referenced))
		for name := range b.referenced {
			defs[name] = b.visited[name]
		}
		out["$defs"] = defs
	}
	return out
}

type jsonSchemaBuilder struct {
	visited    map[string]map[string]interface{}
	referenced map[string]bool
}

func (b jsonSchemaBuilder) message(m *proto.Message) map[string]interface{} {
	if _, ok := b.visited[m.Name]; ok {
		b.referenced[m.Name] = true
		return map[string]interface{}{"$ref": "#/$defs/" + m.Name}
	}

	props := make(map[string]interface{}, len(m.Fields))
	schema := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	b.visited[m.Name] = schema

	for _, f := range m.Fields {
		if f.Oneof == nil {
			props[f.Name] = b.property(f)
		}
	}
	for _, o := range oneofs(m) {
		var arms []interface{}
		for _, f := range m.OneofFields(o) {
			arms = append(arms, map[string]interface{}{f.Name: b.property(f)})
		}
		props[o.Name] = map[string]interface{}{"anyOf": arms}
	}
	return schema
}

func (b jsonSchemaBuilder) property(f *proto.Field) map[string]interface{} {
	if f.IsMap() {
		val, _ := f.Message.FieldByNumber(2)
		return map[string]interface{}{
			"type":                 "object",
			"additionalProperties": b.property(val),
		}
	}

	var p map[string]interface{}
	switch f.Type {
	case proto.TypeBool:
		p = map[string]interface{}{"type": "boolean"}
	case proto.TypeString:
		p = map[string]interface{}{"type": "string"}
	case proto.TypeBytes:
		p = map[string]interface{}{"type": "string", "format": "byte"}
	case proto.TypeFloat, proto.TypeDouble:
		p = map[string]interface{}{"type": "number"}
	case proto.TypeInt32, proto.TypeSInt32, proto.TypeSFixed32, proto.TypeUInt32, proto.TypeFixed32:
		p = map[string]interface{}{"type": "integer", "format": "int32"}
	case proto.TypeInt64, proto.TypeSInt64, proto.TypeSFixed64, proto.TypeUInt64, proto.TypeFixed64:
		p = map[string]interface{}{"type": "integer", "format": "int64"}
	case proto.TypeEnum:
		names := make([]string, len(f.Enum.Values))
		for i, v := range f.Enum.Values {
			names[i] = v.Name
		}
		p = map[string]interface{}{"type": "string", "enum": names}
	case proto.TypeMessage:
		p = make(map[string]interface{})
		for k, v := range b.message(f.Message) {
			p[k] = v
		}
	default:
		p = map[string]interface{}{}
	}

	if f.Repeated {
		return map[string]interface{}{"type": "array", "items": p}
	}
	return p
}
