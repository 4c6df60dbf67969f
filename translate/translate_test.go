// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package translate

import (
	"math"
	"math/big"
	"testing"

	"github.com/linkedin/goavro/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/criccomini/twister/avro"
	"github.com/criccomini/twister/proto"
	"github.com/criccomini/twister/value"
)

func order() *proto.Message {
	status := proto.NewEnum("shop.Status", proto.EnumValue{Name: "OPEN", Number: 0}, proto.EnumValue{Name: "SHIPPED", Number: 1})
	item := proto.NewMessage("shop.Item",
		&proto.Field{Name: "sku", Number: 1, Type: proto.TypeString},
		&proto.Field{Name: "qty", Number: 2, Type: proto.TypeUInt32},
	)
	payment := &proto.Oneof{Name: "payment"}
	m := proto.NewMessage("shop.Order",
		&proto.Field{Name: "id", Number: 1, Type: proto.TypeUInt64},
		&proto.Field{Name: "status", Number: 2, Type: proto.TypeEnum, Enum: status},
		&proto.Field{Name: "items", Number: 3, Type: proto.TypeMessage, Message: item, Repeated: true},
		proto.NewMapField("notes", 4, &proto.Field{Type: proto.TypeString}, &proto.Field{Type: proto.TypeString}),
		&proto.Field{Name: "card", Number: 5, Type: proto.TypeString, Oneof: payment},
		&proto.Field{Name: "voucher", Number: 6, Type: proto.TypeInt64, Oneof: payment},
		&proto.Field{Name: "gift", Number: 7, Type: proto.TypeMessage, Message: item},
		&proto.Field{Name: "region", Number: 8, Type: proto.TypeString, Default: value.String("eu")},
	)
	m.Oneofs = []*proto.Oneof{payment}
	return m
}

func node() *proto.Message {
	n := proto.NewMessage("tree.Node")
	n.Fields = []*proto.Field{
		{Name: "value", Number: 1, Type: proto.TypeInt32},
		{Name: "children", Number: 2, Type: proto.TypeMessage, Message: n, Repeated: true},
		{Name: "parent", Number: 3, Type: proto.TypeMessage, Message: n},
	}
	return n
}

func TestToAvro(t *testing.T) {
	r := require.New(t)

	s, err := ToAvro(order())
	r.NoError(err)
	r.Equal(avro.Record, s.Type)
	r.Equal("shop.Order", s.Name)
	r.Equal("shop", s.Namespace())

	var names []string
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}
	r.Equal([]string{"id", "status", "items", "notes", "gift", "region", "payment"}, names)

	id, _ := s.Field("id")
	r.Equal(avro.Bytes, id.Schema.Type)
	r.Equal(avro.LogicalDecimal, id.Schema.LogicalName())
	r.Equal(20, id.Schema.Logical.Precision)

	status, _ := s.Field("status")
	r.Equal(avro.Enum, status.Schema.Type)
	r.Equal([]string{"OPEN", "SHIPPED"}, status.Schema.Symbols)

	items, _ := s.Field("items")
	r.Equal(avro.Array, items.Schema.Type)
	r.Equal("shop.Item", items.Schema.Items.Name)
	qty, _ := items.Schema.Items.Field("qty")
	r.Equal(avro.Long, qty.Schema.Type)

	notes, _ := s.Field("notes")
	r.Equal(avro.Map, notes.Schema.Type)
	r.Equal(avro.String, notes.Schema.Values.Type)

	gift, _ := s.Field("gift")
	r.True(gift.Schema.AcceptsNull())
	r.Same(items.Schema.Items, gift.Schema.Branches[1])

	payment, _ := s.Field("payment")
	r.Equal(avro.Union, payment.Schema.Type)
	r.Len(payment.Schema.Branches, 3)
	r.Equal(avro.String, payment.Schema.Branches[1].Type)
	r.Equal(avro.Long, payment.Schema.Branches[2].Type)
	r.True(payment.HasDefault)

	region, _ := s.Field("region")
	r.Equal(value.String("eu"), region.Default)

	_, err = goavro.NewCodec(s.String())
	r.NoError(err, "schema: %s", s)
}

func TestToAvroRecursive(t *testing.T) {
	r := require.New(t)

	s, err := ToAvro(node())
	r.NoError(err)

	children, _ := s.Field("children")
	r.Same(s, children.Schema.Items)
	parent, _ := s.Field("parent")
	r.Same(s, parent.Schema.Branches[1])

	_, err = goavro.NewCodec(s.String())
	r.NoError(err, "schema: %s", s)
}

func TestAvroValue(t *testing.T) {
	r := require.New(t)

	m := order()
	in := value.NewRecord(
		value.F("id", value.BigIntFromUint64(math.MaxUint64)),
		value.F("status", value.String("SHIPPED")),
		value.F("items", value.List{
			value.NewRecord(value.F("sku", value.String("a-1")), value.F("qty", value.Int64(3))),
		}),
		value.F("voucher", value.Int64(77)),
	)

	c := proto.New()
	data, err := c.Encode(in, m)
	r.NoError(err)
	decoded, err := c.Decode(data, m)
	r.NoError(err)

	av, err := AvroValue(decoded, m)
	r.NoError(err)

	want := value.NewRecord(
		value.F("id", value.NewDecimal(new(big.Int).SetUint64(math.MaxUint64), 0)),
		value.F("status", value.String("SHIPPED")),
		value.F("items", value.List{
			value.NewRecord(value.F("sku", value.String("a-1")), value.F("qty", value.Int64(3))),
		}),
		value.F("notes", value.Map{}),
		value.F("gift", value.Null{}),
		value.F("region", value.String("eu")),
		value.F("payment", value.Int64(77)),
	)
	r.True(value.Equal(want, av), "got %v", av)

	s, err := ToAvro(m)
	r.NoError(err)
	ac := avro.New()
	bin, err := ac.Encode(av, s)
	r.NoError(err)

	oracle, err := goavro.NewCodec(s.String())
	r.NoError(err)
	native, rest, err := oracle.NativeFromBinary(bin)
	r.NoError(err)
	r.Empty(rest)
	fields := native.(map[string]interface{})
	r.Equal(map[string]interface{}{"long": int64(77)}, fields["payment"])
	r.Equal("SHIPPED", fields["status"])

	back, err := ac.Decode(bin, s)
	r.NoError(err)
	r.True(value.Equal(av, back), "got %v", back)
}

func TestAvroValueErrors(t *testing.T) {
	m := order()

	_, err := AvroValue(value.String("nope"), m)
	assert.Error(t, err)

	_, err = AvroValue(value.Map{"id": value.String("1")}, m)
	assert.Error(t, err)

	_, err = AvroValue(value.Map{"items": value.String("x")}, m)
	assert.Error(t, err)
}

func TestToJSONSchema(t *testing.T) {
	r := require.New(t)

	js := ToJSONSchema(order())
	r.Equal("object", js["type"])
	defs := js["$defs"].(map[string]interface{})
	r.Len(defs, 1)
	r.Contains(defs, "shop.Item")

	props := js["properties"].(map[string]interface{})
	r.Equal(map[string]interface{}{"type": "integer", "format": "int64"}, props["id"])
	r.Equal(map[string]interface{}{"type": "string", "enum": []string{"OPEN", "SHIPPED"}}, props["status"])
	r.Equal(map[string]interface{}{
		"type":                 "object",
		"additionalProperties": map[string]interface{}{"type": "string"},
	}, props["notes"])

	items := props["items"].(map[string]interface{})
	r.Equal("array", items["type"])
	item := items["items"].(map[string]interface{})
	r.Equal("object", item["type"])

	// the second use of Item is a reference
	r.Equal(map[string]interface{}{"$ref": "#/$defs/shop.Item"}, props["gift"])

	payment := props["payment"].(map[string]interface{})
	arms := payment["anyOf"].([]interface{})
	r.Len(arms, 2)
	r.Equal(map[string]interface{}{"card": map[string]interface{}{"type": "string"}}, arms[0])
	r.NotContains(props, "card")
}

func TestToJSONSchemaRecursive(t *testing.T) {
	r := require.New(t)

	js := ToJSONSchema(node())
	defs, ok := js["$defs"].(map[string]interface{})
	r.True(ok)

	withoutDefs := make(map[string]interface{})
	for k, v := range js {
		if k != "$defs" {
			withoutDefs[k] = v
		}
	}
	r.Equal(withoutDefs, defs["tree.Node"])

	props := js["properties"].(map[string]interface{})
	r.Equal(map[string]interface{}{
		"type":  "array",
		"items": map[string]interface{}{"$ref": "#/$defs/tree.Node"},
	}, props["children"])
	r.Equal(map[string]interface{}{"$ref": "#/$defs/tree.Node"}, props["parent"])
}
