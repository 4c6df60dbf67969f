// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package basic

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/criccomini/twister"
	"github.com/criccomini/twister/codec/json"
	"github.com/criccomini/twister/value"
)

func TestFrame(t *testing.T) {
	type testcase struct {
		name string
		data []byte
		want []byte
	}

	mkTest := func(tc testcase) func(*testing.T) {
		return func(t *testing.T) {
			r := require.New(t)
			f := New(0)

			frame, err := f.EncodeFrame(tc.data)
			r.NoError(err)
			r.Equal(tc.want, frame)

			data, err := f.DecodeFrame(frame)
			r.NoError(err)
			r.Equal(len(tc.data), len(data))
			r.True(bytes.Equal(tc.data, data))
		}
	}

	long := bytes.Repeat([]byte{'x'}, 300)
	tcs := []testcase{
		{"empty", nil, []byte{0x00}},
		{"short", []byte("abc"), []byte{0x03, 'a', 'b', 'c'}},
		{"two byte length", long, append([]byte{0xac, 0x02}, long...)},
	}
	for _, tc := range tcs {
		t.Run(tc.name, mkTest(tc))
	}
}

func TestFrameErrors(t *testing.T) {
	r := require.New(t)
	f := New(4)

	_, err := f.EncodeFrame([]byte("12345"))
	r.Error(err)

	_, err = f.DecodeFrame([]byte{0x05, 1, 2, 3, 4, 5})
	r.Error(err)

	_, err = f.DecodeFrame([]byte{0x03, 1})
	r.True(errors.Is(err, twister.ErrTruncatedInput), "got %v", err)

	_, err = f.DecodeFrame([]byte{0x80})
	r.True(errors.Is(err, twister.ErrTruncatedInput), "got %v", err)

	_, err = f.DecodeFrame([]byte{0x01, 1, 2})
	r.Error(err)
}

func TestNext(t *testing.T) {
	r := require.New(t)
	f := New(0)

	var buf []byte
	for _, s := range []string{"a", "", "bcd"} {
		frame, err := f.EncodeFrame([]byte(s))
		r.NoError(err)
		buf = append(buf, frame...)
	}

	var got []string
	for len(buf) > 0 {
		data, rest, err := f.Next(buf)
		r.NoError(err)
		got = append(got, string(data))
		buf = rest
	}
	r.Equal([]string{"a", "", "bcd"}, got)
}

func TestFramedCodec(t *testing.T) {
	r := require.New(t)

	c := twister.Framed(json.New(), New(0))
	frame, err := c.Marshal(value.Map{"a": value.Int32(1)})
	r.NoError(err)
	r.Equal(byte(len(`{"a":1}`)), frame[0])

	v, err := c.Unmarshal(frame)
	r.NoError(err)
	r.True(value.Equal(value.Map{"a": value.Int32(1)}, v))

	_, err = c.Unmarshal(frame[:3])
	r.Error(err)
}
