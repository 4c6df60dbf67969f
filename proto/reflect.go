// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package proto

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"google.golang.org/protobuf/encoding/protowire"
	gproto "google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/criccomini/twister/value"
)

var kindTypes = map[protoreflect.Kind]FieldType{
	protoreflect.BoolKind:     TypeBool,
	protoreflect.EnumKind:     TypeEnum,
	protoreflect.Int32Kind:    TypeInt32,
	protoreflect.Sint32Kind:   TypeSInt32,
	protoreflect.Uint32Kind:   TypeUInt32,
	protoreflect.Int64Kind:    TypeInt64,
	protoreflect.Sint64Kind:   TypeSInt64,
	protoreflect.Uint64Kind:   TypeUInt64,
	protoreflect.Sfixed32Kind: TypeSFixed32,
	protoreflect.Fixed32Kind:  TypeFixed32,
	protoreflect.FloatKind:    TypeFloat,
	protoreflect.Sfixed64Kind: TypeSFixed64,
	protoreflect.Fixed64Kind:  TypeFixed64,
	protoreflect.DoubleKind:   TypeDouble,
	protoreflect.StringKind:   TypeString,
	protoreflect.BytesKind:    TypeBytes,
	protoreflect.MessageKind:  TypeMessage,
	protoreflect.GroupKind:    TypeMessage,
}

var protoTypes = map[FieldType]descriptorpb.FieldDescriptorProto_Type{
	TypeBool:     descriptorpb.FieldDescriptorProto_TYPE_BOOL,
	TypeInt32:    descriptorpb.FieldDescriptorProto_TYPE_INT32,
	TypeInt64:    descriptorpb.FieldDescriptorProto_TYPE_INT64,
	TypeUInt32:   descriptorpb.FieldDescriptorProto_TYPE_UINT32,
	TypeUInt64:   descriptorpb.FieldDescriptorProto_TYPE_UINT64,
	TypeSInt32:   descriptorpb.FieldDescriptorProto_TYPE_SINT32,
	TypeSInt64:   descriptorpb.FieldDescriptorProto_TYPE_SINT64,
	TypeFixed32:  descriptorpb.FieldDescriptorProto_TYPE_FIXED32,
	TypeFixed64:  descriptorpb.FieldDescriptorProto_TYPE_FIXED64,
	TypeSFixed32: descriptorpb.FieldDescriptorProto_TYPE_SFIXED32,
	TypeSFixed64: descriptorpb.FieldDescriptorProto_TYPE_SFIXED64,
	TypeFloat:    descriptorpb.FieldDescriptorProto_TYPE_FLOAT,
	TypeDouble:   descriptorpb.FieldDescriptorProto_TYPE_DOUBLE,
	TypeString:   descriptorpb.FieldDescriptorProto_TYPE_STRING,
	TypeBytes:    descriptorpb.FieldDescriptorProto_TYPE_BYTES,
	TypeEnum:     descriptorpb.FieldDescriptorProto_TYPE_ENUM,
	TypeMessage:  descriptorpb.FieldDescriptorProto_TYPE_MESSAGE,
}

// FromDescriptor converts a protobuf message descriptor, typically from
// generated code or protodesc, into a Message. Messages and enums are
// named by full name and built once each, so recursive types are
// supported. Synthetic oneofs of proto3 optional fields are dropped.
func FromDescriptor(md protoreflect.MessageDescriptor) *Message {
	b := fromBuilder{
		msgs:  make(map[protoreflect.FullName]*Message),
		enums: make(map[protoreflect.FullName]*Enum),
	}
	return b.message(md)
}

type fromBuilder struct {
	msgs  map[protoreflect.FullName]*Message
	enums map[protoreflect.FullName]*Enum
}

func (b fromBuilder) message(md protoreflect.MessageDescriptor) *Message {
	if m, ok := b.msgs[md.FullName()]; ok {
		return m
	}
	m := &Message{Name: string(md.FullName()), MapEntry: md.IsMapEntry()}
	b.msgs[md.FullName()] = m

	oneofs := make(map[protoreflect.FullName]*Oneof)
	ods := md.Oneofs()
	for i := 0; i < ods.Len(); i++ {
		od := ods.Get(i)
		if od.IsSynthetic() {
			continue
		}
		o := &Oneof{Name: string(od.Name())}
		oneofs[od.FullName()] = o
		m.Oneofs = append(m.Oneofs, o)
	}

	fds := md.Fields()
	for i := 0; i < fds.Len(); i++ {
		fd := fds.Get(i)
		f := &Field{
			Name:     string(fd.Name()),
			Number:   protowire.Number(fd.Number()),
			Type:     kindTypes[fd.Kind()],
			Repeated: fd.Cardinality() == protoreflect.Repeated,
		}
		if od := fd.ContainingOneof(); od != nil && !od.IsSynthetic() {
			f.Oneof = oneofs[od.FullName()]
		}
		switch f.Type {
		case TypeEnum:
			f.Enum = b.enum(fd.Enum())
		case TypeMessage:
			f.Message = b.message(fd.Message())
		}
		if fd.HasDefault() {
			f.Default = defaultOf(fd)
		}
		m.Fields = append(m.Fields, f)
	}
	return m
}

func (b fromBuilder) enum(ed protoreflect.EnumDescriptor) *Enum {
	if e, ok := b.enums[ed.FullName()]; ok {
		return e
	}
	e := &Enum{Name: string(ed.FullName())}
	vals := ed.Values()
	for i := 0; i < vals.Len(); i++ {
		v := vals.Get(i)
		e.Values = append(e.Values, EnumValue{Name: string(v.Name()), Number: int32(v.Number())})
	}
	b.enums[ed.FullName()] = e
	return e
}

func defaultOf(fd protoreflect.FieldDescriptor) value.Value {
	d := fd.Default()
	switch fd.Kind() {
	case protoreflect.BoolKind:
		return value.Bool(d.Bool())
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		return value.Int32(d.Int())
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return value.Int64(d.Int())
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		return value.Int64(d.Uint())
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return value.BigIntFromUint64(d.Uint())
	case protoreflect.FloatKind:
		return value.Float32(d.Float())
	case protoreflect.DoubleKind:
		return value.Float64(d.Float())
	case protoreflect.StringKind:
		return value.String(d.String())
	case protoreflect.BytesKind:
		return value.Bytes(append([]byte(nil), d.Bytes()...))
	case protoreflect.EnumKind:
		if ev := fd.DefaultEnumValue(); ev != nil {
			return value.String(ev.Name())
		}
	}
	return nil
}

// ToDescriptorProto renders m and everything it references as a proto2
// file. Messages and enums are declared at file level under their names
// with dots replaced by underscores; map entries are nested in the
// message that uses them.
func ToDescriptorProto(m *Message, fileName string) *descriptorpb.FileDescriptorProto {
	t := toBuilder{enums: make(map[*Enum]bool)}
	fdp := &descriptorpb.FileDescriptorProto{
		Name:   gproto.String(fileName),
		Syntax: gproto.String("proto2"),
	}
	for _, x := range m.Messages() {
		if x.MapEntry {
			continue
		}
		fdp.MessageType = append(fdp.MessageType, t.message(x))
	}
	fdp.EnumType = t.enumTypes
	return fdp
}

type toBuilder struct {
	enums     map[*Enum]bool
	enumTypes []*descriptorpb.EnumDescriptorProto
}

func identifier(name string) string {
	return strings.ReplaceAll(name, ".", "_")
}

// mapEntryName is the entry message name protoc derives from a map field
// name.
func mapEntryName(field string) string {
	var sb strings.Builder
	upper := true
	for _, r := range field {
		switch {
		case r == '_':
			upper = true
		case upper:
			sb.WriteRune(unicode.ToUpper(r))
			upper = false
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteString("Entry")
	return sb.String()
}

func (t *toBuilder) message(m *Message) *descriptorpb.DescriptorProto {
	name := identifier(m.Name)
	dp := &descriptorpb.DescriptorProto{Name: gproto.String(name)}

	oneofIndex := make(map[*Oneof]int32, len(m.Oneofs))
	for i, o := range m.Oneofs {
		oneofIndex[o] = int32(i)
		dp.OneofDecl = append(dp.OneofDecl, &descriptorpb.OneofDescriptorProto{Name: gproto.String(o.Name)})
	}

	for _, f := range m.Fields {
		fp := t.field(f)
		if f.Oneof != nil {
			idx, ok := oneofIndex[f.Oneof]
			if !ok {
				idx = int32(len(dp.OneofDecl))
				oneofIndex[f.Oneof] = idx
				dp.OneofDecl = append(dp.OneofDecl, &descriptorpb.OneofDescriptorProto{Name: gproto.String(f.Oneof.Name)})
			}
			fp.OneofIndex = gproto.Int32(idx)
		}
		if f.IsMap() {
			entryName := mapEntryName(f.Name)
			entry := t.message(f.Message)
			entry.Name = gproto.String(entryName)
			entry.Options = &descriptorpb.MessageOptions{MapEntry: gproto.Bool(true)}
			dp.NestedType = append(dp.NestedType, entry)
			fp.TypeName = gproto.String("." + name + "." + entryName)
		}
		dp.Field = append(dp.Field, fp)
	}
	return dp
}

func (t *toBuilder) field(f *Field) *descriptorpb.FieldDescriptorProto {
	label := descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
	if f.Repeated {
		label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED
	}
	fp := &descriptorpb.FieldDescriptorProto{
		Name:   gproto.String(f.Name),
		Number: gproto.Int32(int32(f.Number)),
		Label:  label.Enum(),
		Type:   protoTypes[f.Type].Enum(),
	}
	switch f.Type {
	case TypeMessage:
		fp.TypeName = gproto.String("." + identifier(f.Message.Name))
	case TypeEnum:
		fp.TypeName = gproto.String("." + identifier(f.Enum.Name))
		t.enum(f.Enum)
	}
	if f.Default != nil && !f.Repeated {
		if s, ok := defaultText(f.Default); ok {
			fp.DefaultValue = gproto.String(s)
		}
	}
	return fp
}

func (t *toBuilder) enum(e *Enum) {
	if t.enums[e] {
		return
	}
	t.enums[e] = true
	ep := &descriptorpb.EnumDescriptorProto{Name: gproto.String(identifier(e.Name))}
	for _, v := range e.Values {
		ep.Value = append(ep.Value, &descriptorpb.EnumValueDescriptorProto{
			Name:   gproto.String(v.Name),
			Number: gproto.Int32(v.Number),
		})
	}
	t.enumTypes = append(t.enumTypes, ep)
}

// defaultText renders a default in descriptor text form.
func defaultText(v value.Value) (string, bool) {
	switch tv := v.(type) {
	case value.Float32:
		return strconv.FormatFloat(float64(tv), 'g', -1, 32), true
	case value.Float64:
		return strconv.FormatFloat(float64(tv), 'g', -1, 64), true
	case value.String:
		return string(tv), true
	case value.Bytes:
		var sb strings.Builder
		for _, c := range tv {
			if c >= 0x20 && c < 0x7f && c != '\\' && c != '"' && c != '\'' {
				sb.WriteByte(c)
			} else {
				fmt.Fprintf(&sb, "\\%03o", c)
			}
		}
		return sb.String(), true
	}
	return value.FormatKey(v)
}
