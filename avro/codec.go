// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package avro

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/criccomini/twister"
	"github.com/criccomini/twister/value"
)

// DefaultMaxDepth bounds schema nesting during encode and decode.
const DefaultMaxDepth = 10000

// Codec encodes and decodes Values against schemas. A Codec holds only
// immutable configuration and is safe for concurrent use.
type Codec struct {
	registry Registry
	maxDepth int
	inferrer *Inferrer
}

// Option configures a Codec.
type Option func(*Codec)

// WithRegistry replaces the logical type registry.
func WithRegistry(r Registry) Option {
	return func(c *Codec) { c.registry = r }
}

// WithMaxDepth sets the nesting limit. Values below 1 are ignored.
func WithMaxDepth(n int) Option {
	return func(c *Codec) {
		if n > 0 {
			c.maxDepth = n
		}
	}
}

// WithInferrer sets the inferrer used by EncodeInferred.
func WithInferrer(inf *Inferrer) Option {
	return func(c *Codec) { c.inferrer = inf }
}

func New(opts ...Option) *Codec {
	c := &Codec{
		registry: DefaultRegistry(),
		maxDepth: DefaultMaxDepth,
	}
	for _, o := range opts {
		o(c)
	}
	if c.inferrer == nil {
		c.inferrer = NewInferrer()
	}
	return c
}

// Decode reads one datum of schema s. All of data must be consumed.
func (c *Codec) Decode(data []byte, s *Schema) (value.Value, error) {
	d := decoder{r: NewReader(data), registry: c.registry, maxDepth: c.maxDepth}
	v, err := d.decode(s, 0)
	if err != nil {
		return nil, errors.Wrap(err, "avro: failed to decode")
	}
	if n := d.r.Len(); n > 0 {
		return nil, errors.Wrap(twister.NewError(twister.MalformedInput).
			WithKinds("end of input", strconv.Itoa(n)+" trailing bytes"), "avro: failed to decode")
	}
	return v, nil
}

// Encode writes v as a datum of schema s into a new buffer.
func (c *Codec) Encode(v value.Value, s *Schema) ([]byte, error) {
	e := encoder{w: NewWriter(), registry: c.registry, maxDepth: c.maxDepth}
	if err := e.encode(v, s, 0); err != nil {
		return nil, errors.Wrap(err, "avro: failed to encode")
	}
	return e.w.Bytes(), nil
}

// EncodeInferred infers a schema for v named rootName and encodes v with
// it.
func (c *Codec) EncodeInferred(v value.Value, rootName string) ([]byte, *Schema, error) {
	s, err := c.inferrer.Infer(v, rootName)
	if err != nil {
		return nil, nil, errors.Wrap(err, "avro: failed to infer schema")
	}
	b, err := c.Encode(v, s)
	if err != nil {
		return nil, nil, err
	}
	return b, s, nil
}

// Bind returns a twister.Codec fixed to schema s.
func (c *Codec) Bind(s *Schema) twister.Codec {
	return bound{c: c, s: s}
}

type bound struct {
	c *Codec
	s *Schema
}

func (b bound) Marshal(v value.Value) ([]byte, error) { return b.c.Encode(v, b.s) }

func (b bound) Unmarshal(data []byte) (value.Value, error) { return b.c.Decode(data, b.s) }

func depthExceeded(max int) error {
	return twister.NewError(twister.DepthLimitExceeded).WithNumber(int64(max))
}
