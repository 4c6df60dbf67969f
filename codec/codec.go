// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

// Package codec holds document codecs, which turn Values into
// self-describing documents such as JSON, MessagePack or CBOR and back.
package codec // import "github.com/criccomini/twister/codec"

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
	ugorji "github.com/ugorji/go/codec"

	"github.com/criccomini/twister"
	"github.com/criccomini/twister/value"
)

// Codec is a twister.Codec that can also stream a sequence of documents.
type Codec interface {
	twister.Codec

	NewDecoder(io.Reader) Decoder
	NewEncoder(io.Writer) Encoder
}

type Decoder interface {
	Decode() (value.Value, error)
}

type Encoder interface {
	Encode(v value.Value) error
}

// NewHandle returns a Codec over a ugorji handle. name prefixes error
// messages.
func NewHandle(name string, h ugorji.Handle) Codec {
	return &handleCodec{name: name, h: h}
}

type handleCodec struct {
	name string
	h    ugorji.Handle
}

func (c *handleCodec) Marshal(v value.Value) ([]byte, error) {
	var buf bytes.Buffer
	enc := c.NewEncoder(&buf)
	err := enc.Encode(v)
	return buf.Bytes(), errors.Wrapf(err, "%s codec: encode failed", c.name)
}

func (c *handleCodec) Unmarshal(data []byte) (value.Value, error) {
	var x interface{}
	if err := ugorji.NewDecoderBytes(data, c.h).Decode(&x); err != nil {
		return nil, errors.Wrapf(err, "%s codec: decode failed", c.name)
	}
	v, err := value.FromNative(x)
	return v, errors.Wrapf(err, "%s codec: decode failed", c.name)
}

func (c *handleCodec) NewEncoder(w io.Writer) Encoder {
	return &handleEncoder{enc: ugorji.NewEncoder(w, c.h)}
}

func (c *handleCodec) NewDecoder(r io.Reader) Decoder {
	return &handleDecoder{name: c.name, dec: ugorji.NewDecoder(r, c.h)}
}

type handleEncoder struct {
	enc *ugorji.Encoder
}

func (e *handleEncoder) Encode(v value.Value) error {
	return e.enc.Encode(value.ToNative(v))
}

type handleDecoder struct {
	name string
	dec  *ugorji.Decoder
}

// Decode returns io.EOF once the stream is exhausted.
func (d *handleDecoder) Decode() (value.Value, error) {
	var x interface{}
	if err := d.dec.Decode(&x); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.Wrapf(err, "%s codec: decode failed", d.name)
	}
	v, err := value.FromNative(x)
	return v, errors.Wrapf(err, "%s codec: decode failed", d.name)
}
