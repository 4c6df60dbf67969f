// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package proto

import (
	"math"
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gproto "google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/criccomini/twister"
	"github.com/criccomini/twister/value"
)

func TestInfer(t *testing.T) {
	r := require.New(t)

	v := value.NewRecord(
		value.F("name", value.String("ada")),
		value.F("age", value.Int32(36)),
		value.F("tags", value.List{value.String("a"), value.String("b")}),
		value.F("address", value.Map{
			"zip":  value.Int64(12345),
			"city": value.String("London"),
		}),
		value.F("score", value.Float64(0.5)),
		value.F("big", value.BigIntFromUint64(math.MaxUint64)),
	)

	m, err := Infer(v, "person")
	r.NoError(err)
	r.NoError(m.Validate())
	r.Equal("person", m.Name)

	type want struct {
		name     string
		number   int32
		typ      FieldType
		repeated bool
	}
	wants := []want{
		{"name", 1, TypeString, false},
		{"age", 2, TypeInt32, false},
		{"tags", 3, TypeString, true},
		{"address", 4, TypeMessage, false},
		{"score", 5, TypeDouble, false},
		{"big", 6, TypeUInt64, false},
	}
	r.Len(m.Fields, len(wants))
	for i, w := range wants {
		f := m.Fields[i]
		assert.Equal(t, w.name, f.Name)
		assert.EqualValues(t, w.number, f.Number, "field %s", w.name)
		assert.Equal(t, w.typ, f.Type, "field %s", w.name)
		assert.Equal(t, w.repeated, f.Repeated, "field %s", w.name)
	}

	addr := m.Fields[3].Message
	r.Equal("person_address", addr.Name)
	r.Equal("city", addr.Fields[0].Name)
	r.EqualValues(1, addr.Fields[0].Number)
	r.Equal("zip", addr.Fields[1].Name)
	r.Equal(TypeInt64, addr.Fields[1].Type)

	// the inferred descriptor is readable by the protobuf runtime
	data, inferred, err := New().EncodeInferred(v, "person")
	r.NoError(err)
	md := compile(t, inferred)
	dm := dynamicpb.NewMessage(md)
	r.NoError(gproto.Unmarshal(data, dm))

	addrFd := md.Fields().ByName("address")
	city := dm.Get(addrFd).Message().Get(addrFd.Message().Fields().ByName("city"))
	r.Equal("London", city.String())
	r.Equal(uint64(math.MaxUint64), dm.Get(md.Fields().ByName("big")).Uint())
}

func TestInferErrors(t *testing.T) {
	type testcase struct {
		name string
		v    value.Value
		kind twister.ErrorKind
	}

	mkTest := func(tc testcase) func(*testing.T) {
		return func(t *testing.T) {
			_, err := Infer(tc.v, "root")
			require.Error(t, err)
			assert.Equal(t, tc.kind, twister.KindOf(errors.Cause(err)), "got %v", err)
		}
	}

	tcs := []testcase{
		{"not an object", value.Int32(1), twister.UnsupportedValueType},
		{"empty list", value.Map{"xs": value.List{}}, twister.EmptyArrayInference},
		{"nested list", value.Map{"xs": value.List{value.List{value.Int32(1)}}}, twister.UnsupportedValueType},
		{"null", value.Map{"n": value.Null{}}, twister.UnsupportedValueType},
		{"negative bigint", value.Map{"n": value.NewBigInt(big.NewInt(-1))}, twister.ValueOutOfRange},
		{"nested empty list", value.Map{"o": value.Map{"xs": value.List{}}}, twister.EmptyArrayInference},
	}
	for _, tc := range tcs {
		t.Run(tc.name, mkTest(tc))
	}
}
