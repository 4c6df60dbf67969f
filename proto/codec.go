// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package proto

import (
	"io"
	"strconv"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/criccomini/twister"
	"github.com/criccomini/twister/value"
)

// DefaultMaxDepth bounds message nesting during encode and decode.
const DefaultMaxDepth = 10000

// Codec encodes and decodes Values against message descriptors. It holds
// only immutable configuration and is safe for concurrent use.
type Codec struct {
	discardUnknown bool
	maxDepth       int
}

type Option func(*Codec)

// DiscardUnknown makes the decoder skip fields the descriptor does not
// declare instead of failing with UnknownFieldNumber.
func DiscardUnknown(yes bool) Option {
	return func(c *Codec) { c.discardUnknown = yes }
}

// WithMaxDepth sets the nesting limit. Values below 1 are ignored.
func WithMaxDepth(n int) Option {
	return func(c *Codec) {
		if n > 0 {
			c.maxDepth = n
		}
	}
}

func New(opts ...Option) *Codec {
	c := &Codec{maxDepth: DefaultMaxDepth}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Decode reads one message of type m.
func (c *Codec) Decode(data []byte, m *Message) (*value.Record, error) {
	rec, err := c.decodeMessage(data, m, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "proto: failed to decode %s", m.Name)
	}
	return rec, nil
}

// Encode writes v, a *value.Record or value.Map, as a message of type m.
func (c *Codec) Encode(v value.Value, m *Message) ([]byte, error) {
	b, err := c.appendMessage(nil, v, m, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "proto: failed to encode %s", m.Name)
	}
	return b, nil
}

// EncodeInferred infers a descriptor for v named name and encodes v
// with it.
func (c *Codec) EncodeInferred(v value.Value, name string) ([]byte, *Message, error) {
	m, err := Infer(v, name)
	if err != nil {
		return nil, nil, err
	}
	b, err := c.Encode(v, m)
	if err != nil {
		return nil, nil, err
	}
	return b, m, nil
}

// Bind returns a twister.Codec fixed to message type m.
func (c *Codec) Bind(m *Message) twister.Codec {
	return bound{c: c, m: m}
}

type bound struct {
	c *Codec
	m *Message
}

func (b bound) Marshal(v value.Value) ([]byte, error) { return b.c.Encode(v, b.m) }

func (b bound) Unmarshal(data []byte) (value.Value, error) {
	rec, err := b.c.Decode(data, b.m)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// wireError maps a negative protowire length to a typed error.
func wireError(n int) error {
	err := protowire.ParseError(n)
	if err == io.ErrUnexpectedEOF {
		return twister.NewError(twister.TruncatedInput)
	}
	return twister.NewError(twister.MalformedInput).WithCause(err)
}

func wireName(t protowire.Type) string {
	switch t {
	case protowire.VarintType:
		return "varint"
	case protowire.Fixed64Type:
		return "fixed64"
	case protowire.BytesType:
		return "length-delimited"
	case protowire.StartGroupType:
		return "start-group"
	case protowire.EndGroupType:
		return "end-group"
	case protowire.Fixed32Type:
		return "fixed32"
	}
	return "wire type " + strconv.Itoa(int(t))
}

func depthExceeded(max int) error {
	return twister.NewError(twister.DepthLimitExceeded).WithNumber(int64(max))
}
