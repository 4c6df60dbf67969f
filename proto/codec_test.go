// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package proto

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
	gproto "google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/criccomini/twister"
	"github.com/criccomini/twister/value"
)

func everything() *Message {
	color := NewEnum("Color", EnumValue{"RED", 0}, EnumValue{"GREEN", 1})
	child := NewMessage("Child", &Field{Name: "name", Number: 1, Type: TypeString})
	return NewMessage("Everything",
		&Field{Name: "b", Number: 1, Type: TypeBool},
		&Field{Name: "i32", Number: 2, Type: TypeInt32},
		&Field{Name: "i64", Number: 3, Type: TypeInt64},
		&Field{Name: "u32", Number: 4, Type: TypeUInt32},
		&Field{Name: "u64", Number: 5, Type: TypeUInt64},
		&Field{Name: "s32", Number: 6, Type: TypeSInt32},
		&Field{Name: "s64", Number: 7, Type: TypeSInt64},
		&Field{Name: "f32", Number: 8, Type: TypeFixed32},
		&Field{Name: "f64", Number: 9, Type: TypeFixed64},
		&Field{Name: "sf32", Number: 10, Type: TypeSFixed32},
		&Field{Name: "sf64", Number: 11, Type: TypeSFixed64},
		&Field{Name: "fl", Number: 12, Type: TypeFloat},
		&Field{Name: "db", Number: 13, Type: TypeDouble},
		&Field{Name: "str", Number: 14, Type: TypeString},
		&Field{Name: "raw", Number: 15, Type: TypeBytes},
		&Field{Name: "color", Number: 16, Type: TypeEnum, Enum: color},
		&Field{Name: "child", Number: 17, Type: TypeMessage, Message: child},
		&Field{Name: "nums", Number: 18, Type: TypeInt32, Repeated: true},
		NewMapField("labels", 19, &Field{Type: TypeString}, &Field{Type: TypeInt64}),
		&Field{Name: "kids", Number: 20, Type: TypeMessage, Message: child, Repeated: true},
	)
}

func compile(t *testing.T, m *Message) protoreflect.MessageDescriptor {
	fd, err := protodesc.NewFile(ToDescriptorProto(m, "test.proto"), nil)
	require.NoError(t, err)
	md := fd.Messages().ByName(protoreflect.Name(identifier(m.Name)))
	require.NotNil(t, md)
	return md
}

func TestConformance(t *testing.T) {
	r := require.New(t)

	md := compile(t, everything())
	m := FromDescriptor(md)
	r.NoError(m.Validate())

	dm := dynamicpb.NewMessage(md)
	set := func(name string, v protoreflect.Value) {
		dm.Set(md.Fields().ByName(protoreflect.Name(name)), v)
	}
	set("b", protoreflect.ValueOfBool(true))
	set("i32", protoreflect.ValueOfInt32(-7))
	set("i64", protoreflect.ValueOfInt64(math.MinInt64))
	set("u32", protoreflect.ValueOfUint32(math.MaxUint32))
	set("u64", protoreflect.ValueOfUint64(math.MaxUint64))
	set("s32", protoreflect.ValueOfInt32(math.MinInt32))
	set("s64", protoreflect.ValueOfInt64(-2))
	set("f32", protoreflect.ValueOfUint32(7))
	set("f64", protoreflect.ValueOfUint64(1<<63))
	set("sf32", protoreflect.ValueOfInt32(-3))
	set("sf64", protoreflect.ValueOfInt64(-4))
	set("fl", protoreflect.ValueOfFloat32(1.5))
	set("db", protoreflect.ValueOfFloat64(2.25))
	set("str", protoreflect.ValueOfString("héllo"))
	set("raw", protoreflect.ValueOfBytes([]byte{0, 1}))
	set("color", protoreflect.ValueOfEnum(1))

	childFd := md.Fields().ByName("child")
	child := dm.Mutable(childFd).Message()
	child.Set(childFd.Message().Fields().ByName("name"), protoreflect.ValueOfString("c"))

	nums := dm.Mutable(md.Fields().ByName("nums")).List()
	nums.Append(protoreflect.ValueOfInt32(1))
	nums.Append(protoreflect.ValueOfInt32(-1))

	labels := dm.Mutable(md.Fields().ByName("labels")).Map()
	labels.Set(protoreflect.ValueOfString("a").MapKey(), protoreflect.ValueOfInt64(1))
	labels.Set(protoreflect.ValueOfString("b").MapKey(), protoreflect.ValueOfInt64(2))

	kidsFd := md.Fields().ByName("kids")
	kids := dm.Mutable(kidsFd).List()
	kid := kids.NewElement()
	kid.Message().Set(kidsFd.Message().Fields().ByName("name"), protoreflect.ValueOfString("k"))
	kids.Append(kid)

	want := value.NewRecord(
		value.F("b", value.Bool(true)),
		value.F("i32", value.Int32(-7)),
		value.F("i64", value.Int64(math.MinInt64)),
		value.F("u32", value.Int64(math.MaxUint32)),
		value.F("u64", value.BigIntFromUint64(math.MaxUint64)),
		value.F("s32", value.Int32(math.MinInt32)),
		value.F("s64", value.Int64(-2)),
		value.F("f32", value.Int64(7)),
		value.F("f64", value.BigIntFromUint64(1<<63)),
		value.F("sf32", value.Int32(-3)),
		value.F("sf64", value.Int64(-4)),
		value.F("fl", value.Float32(1.5)),
		value.F("db", value.Float64(2.25)),
		value.F("str", value.String("héllo")),
		value.F("raw", value.Bytes{0, 1}),
		value.F("color", value.String("GREEN")),
		value.F("child", value.NewRecord(value.F("name", value.String("c")))),
		value.F("nums", value.List{value.Int32(1), value.Int32(-1)}),
		value.F("labels", value.Map{"a": value.Int64(1), "b": value.Int64(2)}),
		value.F("kids", value.List{value.NewRecord(value.F("name", value.String("k")))}),
	)

	c := New()

	wire, err := gproto.Marshal(dm)
	r.NoError(err)
	got, err := c.Decode(wire, m)
	r.NoError(err)
	r.Equal(value.ToNative(want), value.ToNative(got))

	ours, err := c.Encode(want, m)
	r.NoError(err)
	back := dynamicpb.NewMessage(md)
	r.NoError(gproto.Unmarshal(ours, back))
	r.True(gproto.Equal(dm, back), "decoded by protobuf differs")
}

func TestUnsignedWidening(t *testing.T) {
	r := require.New(t)

	m := NewMessage("U",
		&Field{Name: "u32", Number: 1, Type: TypeUInt32},
		&Field{Name: "u64", Number: 2, Type: TypeUInt64},
	)
	c := New()

	data, err := c.Encode(value.NewRecord(
		value.F("u32", value.Int64(4294967295)),
		value.F("u64", value.BigIntFromUint64(math.MaxUint64)),
	), m)
	r.NoError(err)

	got, err := c.Decode(data, m)
	r.NoError(err)

	u32, _ := got.Get("u32")
	r.Equal(value.Int64(4294967295), u32)
	u64, _ := got.Get("u64")
	r.True(value.Equal(value.BigIntFromUint64(math.MaxUint64), u64), "got %v", u64)

	_, err = c.Encode(value.NewRecord(value.F("u32", value.Int64(4294967296))), m)
	r.True(errors.Is(err, twister.ErrValueOutOfRange), "got %v", err)
	_, err = c.Encode(value.NewRecord(value.F("u64", value.Int32(-1))), m)
	r.True(errors.Is(err, twister.ErrValueOutOfRange), "got %v", err)
	_, err = c.Encode(value.NewRecord(value.F("u64", value.String("1"))), m)
	r.True(errors.Is(err, twister.ErrTypeMismatch), "got %v", err)
}

func choice() *Message {
	o := &Oneof{Name: "choice"}
	m := NewMessage("Choice",
		&Field{Name: "a", Number: 1, Type: TypeInt32, Oneof: o},
		&Field{Name: "b", Number: 2, Type: TypeString, Oneof: o},
	)
	m.Oneofs = []*Oneof{o}
	return m
}

func TestOneof(t *testing.T) {
	r := require.New(t)

	m := choice()
	c := New()

	first, err := c.Encode(value.NewRecord(value.F("a", value.Int32(5))), m)
	r.NoError(err)
	got, err := c.Decode(first, m)
	r.NoError(err)
	r.True(value.Equal(value.NewRecord(value.F("a", value.Int32(5))), got), "got %v", got)

	second, err := c.Encode(value.NewRecord(value.F("b", value.String("x"))), m)
	r.NoError(err)
	got, err = c.Decode(second, m)
	r.NoError(err)
	r.True(value.Equal(value.NewRecord(value.F("b", value.String("x"))), got), "got %v", got)

	// later arms on the wire replace earlier ones
	got, err = c.Decode(append(append([]byte{}, first...), second...), m)
	r.NoError(err)
	r.Equal(1, got.Len())
	r.True(got.Has("b"))

	// the arm set last in the record is the one written
	both := value.NewRecord(value.F("b", value.String("x")), value.F("a", value.Int32(5)))
	data, err := c.Encode(both, m)
	r.NoError(err)
	r.Equal(first, data)

	md := compile(t, m)
	dm := dynamicpb.NewMessage(md)
	r.NoError(gproto.Unmarshal(data, dm))
	r.Equal(int64(5), dm.Get(md.Fields().ByName("a")).Int())
}

func TestMapMerge(t *testing.T) {
	r := require.New(t)

	m := NewMessage("M",
		NewMapField("counts", 1, &Field{Type: TypeString}, &Field{Type: TypeInt32}),
		NewMapField("names", 2, &Field{Type: TypeInt64}, &Field{Type: TypeString}),
	)
	r.NoError(m.Validate())
	c := New()

	one, err := c.Encode(value.NewRecord(value.F("counts", value.Map{"k": value.Int32(1), "j": value.Int32(9)})), m)
	r.NoError(err)
	two, err := c.Encode(value.NewRecord(value.F("counts", value.Map{"k": value.Int32(2)})), m)
	r.NoError(err)

	got, err := c.Decode(append(append([]byte{}, one...), two...), m)
	r.NoError(err)
	counts, _ := got.Get("counts")
	r.Equal(value.Map{"k": value.Int32(2), "j": value.Int32(9)}, counts)

	data, err := c.Encode(value.NewRecord(value.F("names", value.Map{"-3": value.String("neg"), "10": value.String("ten")})), m)
	r.NoError(err)
	got, err = c.Decode(data, m)
	r.NoError(err)
	names, _ := got.Get("names")
	r.Equal(value.Map{"-3": value.String("neg"), "10": value.String("ten")}, names)

	_, err = c.Encode(value.NewRecord(value.F("names", value.Map{"x": value.String("bad")})), m)
	r.True(errors.Is(err, twister.ErrTypeMismatch), "got %v", err)
}

func TestDecodeErrors(t *testing.T) {
	type testcase struct {
		name string
		data []byte
		opts []Option
		kind twister.ErrorKind
	}

	color := NewEnum("Color", EnumValue{"RED", 0})
	m := NewMessage("E",
		&Field{Name: "n", Number: 1, Type: TypeInt32},
		&Field{Name: "s", Number: 2, Type: TypeString},
		&Field{Name: "c", Number: 3, Type: TypeEnum, Enum: color},
	)

	mkTest := func(tc testcase) func(*testing.T) {
		return func(t *testing.T) {
			_, err := New(tc.opts...).Decode(tc.data, m)
			require.Error(t, err)
			assert.Equal(t, tc.kind, twister.KindOf(errors.Cause(err)), "got %v", err)
		}
	}

	tcs := []testcase{
		{"unknown field", []byte{0x20, 0x01}, nil, twister.UnknownFieldNumber},
		{"wire type mismatch", []byte{0x0a, 0x00}, nil, twister.UnsupportedWireType},
		{"group", []byte{0x0b, 0x0c}, nil, twister.UnsupportedWireType},
		{"truncated varint", []byte{0x08, 0x80}, nil, twister.TruncatedInput},
		{"truncated bytes", []byte{0x12, 0x05, 'a'}, nil, twister.TruncatedInput},
		{"truncated tag", []byte{0x80}, nil, twister.TruncatedInput},
		{"invalid utf8", []byte{0x12, 0x01, 0xff}, nil, twister.MalformedInput},
		{"unknown enum value", []byte{0x18, 0x05}, nil, twister.UnknownEnumValue},
		{"field zero", []byte{0x00, 0x01}, nil, twister.MalformedInput},
		{"truncated unknown", []byte{0x22, 0x05}, []Option{DiscardUnknown(true)}, twister.TruncatedInput},
	}
	for _, tc := range tcs {
		t.Run(tc.name, mkTest(tc))
	}
}

func TestDiscardUnknown(t *testing.T) {
	r := require.New(t)

	m := NewMessage("E", &Field{Name: "n", Number: 1, Type: TypeInt32})
	data := protowire.AppendTag(nil, 5, protowire.BytesType)
	data = protowire.AppendString(data, "skip me")
	data = protowire.AppendTag(data, 6, protowire.StartGroupType)
	data = protowire.AppendTag(data, 1, protowire.VarintType)
	data = protowire.AppendVarint(data, 3)
	data = protowire.AppendTag(data, 6, protowire.EndGroupType)
	data = protowire.AppendTag(data, 1, protowire.VarintType)
	data = protowire.AppendVarint(data, 42)

	got, err := New(DiscardUnknown(true)).Decode(data, m)
	r.NoError(err)
	r.True(value.Equal(value.NewRecord(value.F("n", value.Int32(42))), got), "got %v", got)

	_, err = New().Decode(data, m)
	r.True(errors.Is(err, twister.ErrUnknownFieldNumber), "got %v", err)
}

func TestPackedAndNegative(t *testing.T) {
	r := require.New(t)

	m := NewMessage("P",
		&Field{Name: "xs", Number: 1, Type: TypeInt32, Repeated: true},
		&Field{Name: "ds", Number: 2, Type: TypeDouble, Repeated: true},
		&Field{Name: "n", Number: 3, Type: TypeInt32},
	)

	var packed []byte
	packed = protowire.AppendVarint(packed, 1)
	packed = protowire.AppendVarint(packed, 300)
	data := protowire.AppendTag(nil, 1, protowire.BytesType)
	data = protowire.AppendBytes(data, packed)
	data = protowire.AppendTag(data, 1, protowire.VarintType)
	data = protowire.AppendVarint(data, 7)
	data = protowire.AppendTag(data, 2, protowire.BytesType)
	data = protowire.AppendBytes(data, protowire.AppendFixed64(nil, math.Float64bits(0.5)))

	c := New()
	got, err := c.Decode(data, m)
	r.NoError(err)
	xs, _ := got.Get("xs")
	r.Equal(value.List{value.Int32(1), value.Int32(300), value.Int32(7)}, xs)
	ds, _ := got.Get("ds")
	r.Equal(value.List{value.Float64(0.5)}, ds)

	// negative int32 is sign extended to a ten byte varint
	neg, err := c.Encode(value.NewRecord(value.F("n", value.Int32(-1))), m)
	r.NoError(err)
	r.Len(neg, 11)
	got, err = c.Decode(neg, m)
	r.NoError(err)
	n, _ := got.Get("n")
	r.Equal(value.Int32(-1), n)

	// encode never packs
	out, err := c.Encode(value.NewRecord(value.F("xs", value.List{value.Int32(1), value.Int32(2)})), m)
	r.NoError(err)
	r.Equal([]byte{0x08, 0x01, 0x08, 0x02}, out)
}

func TestDefaultsAndEnums(t *testing.T) {
	r := require.New(t)

	color := NewEnum("Color", EnumValue{"RED", 0}, EnumValue{"BLUE", 2})
	m := NewMessage("D",
		&Field{Name: "greeting", Number: 1, Type: TypeString, Default: value.String("hi")},
		&Field{Name: "color", Number: 2, Type: TypeEnum, Enum: color},
	)
	c := New()

	got, err := c.Decode(nil, m)
	r.NoError(err)
	g, _ := got.Get("greeting")
	r.Equal(value.String("hi"), g)

	data, err := c.Encode(value.Map{"color": value.String("BLUE")}, m)
	r.NoError(err)
	r.Equal([]byte{0x10, 0x02}, data)

	_, err = c.Encode(value.Map{"color": value.String("GREEN")}, m)
	r.True(errors.Is(err, twister.ErrUnknownEnumSymbol), "got %v", err)
}

func TestOneofArmsHaveNoDefaults(t *testing.T) {
	r := require.New(t)

	pick := &Oneof{Name: "pick"}
	m := NewMessage("P",
		&Field{Name: "a", Number: 1, Type: TypeInt32, Oneof: pick, Default: value.Int32(7)},
		&Field{Name: "b", Number: 2, Type: TypeString, Oneof: pick, Default: value.String("d")},
		&Field{Name: "label", Number: 3, Type: TypeString, Default: value.String("none")},
	)
	m.Oneofs = []*Oneof{pick}
	c := New()

	got, err := c.Decode(nil, m)
	r.NoError(err)
	r.True(value.Equal(value.NewRecord(value.F("label", value.String("none"))), got), "got %v", got)

	data, err := c.Encode(value.NewRecord(value.F("b", value.String("x"))), m)
	r.NoError(err)
	got, err = c.Decode(data, m)
	r.NoError(err)
	r.False(got.Has("a"))
	b, _ := got.Get("b")
	r.Equal(value.String("x"), b)
}

func TestDepthLimit(t *testing.T) {
	r := require.New(t)

	node := NewMessage("Node")
	node.Fields = []*Field{{Name: "next", Number: 1, Type: TypeMessage, Message: node}}

	var v value.Value = value.NewRecord()
	for i := 0; i < 8; i++ {
		v = value.NewRecord(value.F("next", v))
	}

	data, err := New().Encode(v, node)
	r.NoError(err)

	_, err = New(WithMaxDepth(3)).Decode(data, node)
	r.True(errors.Is(err, twister.ErrDepthLimitExceeded), "got %v", err)
	_, err = New(WithMaxDepth(3)).Encode(v, node)
	r.True(errors.Is(err, twister.ErrDepthLimitExceeded), "got %v", err)

	got, err := New().Decode(data, node)
	r.NoError(err)
	r.True(value.Equal(v, got))
}

func TestBind(t *testing.T) {
	r := require.New(t)

	var cdc twister.Codec = New().Bind(choice())
	data, err := cdc.Marshal(value.Map{"b": value.String("y")})
	r.NoError(err)
	v, err := cdc.Unmarshal(data)
	r.NoError(err)
	r.True(value.Equal(value.NewRecord(value.F("b", value.String("y"))), v))
}
