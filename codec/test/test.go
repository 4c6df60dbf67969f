// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package test // import "github.com/criccomini/twister/codec/test"

import (
	"bytes"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/criccomini/twister/codec"
	"github.com/criccomini/twister/value"
)

type NewCodecFunc func() codec.Codec

// RunTests checks behavior every document codec shares.
func RunTests(t *testing.T, newCodec NewCodecFunc) {
	t.Run("RoundTrip", RoundTrip(newCodec))
	t.Run("Stream", Stream(newCodec))
	t.Run("Garbage", Garbage(newCodec))
}

func RoundTrip(newCodec NewCodecFunc) func(*testing.T) {
	type testcase struct {
		name string
		in   value.Value
		want value.Value
	}

	mkTest := func(tc testcase) func(*testing.T) {
		return func(t *testing.T) {
			r := require.New(t)
			c := newCodec()

			data, err := c.Marshal(tc.in)
			r.NoError(err)

			got, err := c.Unmarshal(data)
			r.NoError(err)
			r.True(value.Equal(tc.want, got), "want %v, got %v", tc.want, got)
		}
	}

	tcs := []testcase{
		{"null", value.Null{}, value.Null{}},
		{"bool", value.Bool(true), value.Bool(true)},
		{"small int", value.Int64(7), value.Int32(7)},
		{"negative", value.Int32(-12), value.Int32(-12)},
		{"wide int", value.Int64(1 << 40), value.Int64(1 << 40)},
		{"max uint64", value.BigIntFromUint64(math.MaxUint64), value.BigIntFromUint64(math.MaxUint64)},
		{"double", value.Float64(1.5), value.Float64(1.5)},
		{"string", value.String("héllo"), value.String("héllo")},
		{"list", value.List{value.Int32(1), value.String("x"), value.Null{}}, value.List{value.Int32(1), value.String("x"), value.Null{}}},
		{
			"record",
			value.NewRecord(
				value.F("name", value.String("ada")),
				value.F("tags", value.List{value.String("a")}),
				value.F("inner", value.NewRecord(value.F("ok", value.Bool(false)))),
			),
			value.Map{
				"name":  value.String("ada"),
				"tags":  value.List{value.String("a")},
				"inner": value.Map{"ok": value.Bool(false)},
			},
		},
		{"uuid as text", value.UUID{}, value.String("00000000-0000-0000-0000-000000000000")},
	}

	return func(t *testing.T) {
		for _, tc := range tcs {
			t.Run(tc.name, mkTest(tc))
		}
	}
}

func Stream(newCodec NewCodecFunc) func(*testing.T) {
	return func(t *testing.T) {
		r := require.New(t)
		c := newCodec()

		vs := []value.Value{
			value.Map{"n": value.Int32(1)},
			value.String("two"),
			value.List{value.Int32(3)},
		}

		var buf bytes.Buffer
		enc := c.NewEncoder(&buf)
		for _, v := range vs {
			r.NoError(enc.Encode(v))
		}

		dec := c.NewDecoder(&buf)
		for i, want := range vs {
			got, err := dec.Decode()
			r.NoError(err, "item %d", i)
			r.True(value.Equal(want, got), "item %d: want %v, got %v", i, want, got)
		}
		_, err := dec.Decode()
		r.Equal(io.EOF, err)
	}
}

func Garbage(newCodec NewCodecFunc) func(*testing.T) {
	return func(t *testing.T) {
		_, err := newCodec().Unmarshal([]byte{0xc1})
		require.Error(t, err)
	}
}
