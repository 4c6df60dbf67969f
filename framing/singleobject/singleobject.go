// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

// Package singleobject implements the Avro single-object encoding: a two
// byte marker, the little-endian CRC-64-AVRO fingerprint of the writer
// schema, then the datum.
package singleobject // import "github.com/criccomini/twister/framing/singleobject"

import (
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/criccomini/twister"
	"github.com/criccomini/twister/avro"
	"github.com/criccomini/twister/value"
)

// HeaderSize is the length of the marker plus fingerprint.
const HeaderSize = 10

var marker = [2]byte{0xc3, 0x01}

// New returns a framing that tags data with fingerprint fp and only
// accepts frames carrying the same fingerprint.
func New(fp uint64) twister.Framing {
	return frame{fp: fp}
}

// ForSchema is New(s.Fingerprint()).
func ForSchema(s *avro.Schema) twister.Framing {
	return New(s.Fingerprint())
}

type frame struct {
	fp uint64
}

func (f frame) EncodeFrame(data []byte) ([]byte, error) {
	out := make([]byte, 0, HeaderSize+len(data))
	out = append(out, marker[:]...)
	out = protowire.AppendFixed64(out, f.fp)
	return append(out, data...), nil
}

func (f frame) DecodeFrame(block []byte) ([]byte, error) {
	fp, data, err := Split(block)
	if err != nil {
		return nil, err
	}
	if fp != f.fp {
		return nil, errors.Errorf("singleobject: fingerprint %016x does not match %016x", fp, f.fp)
	}
	return data, nil
}

// Split returns the fingerprint and datum of a single-object frame.
func Split(block []byte) (uint64, []byte, error) {
	if len(block) < HeaderSize {
		return 0, nil, twister.NewError(twister.TruncatedInput).WithKinds("single-object header", "short frame")
	}
	if block[0] != marker[0] || block[1] != marker[1] {
		return 0, nil, twister.NewError(twister.MalformedInput).WithKinds("single-object marker", "other bytes")
	}
	fp, _ := protowire.ConsumeFixed64(block[2:])
	return fp, block[HeaderSize:], nil
}

// Resolver finds writer schemas by fingerprint.
type Resolver interface {
	Get(fp uint64) (*avro.Schema, error)
}

// Decode reads a single-object frame, resolving the writer schema with
// res, and returns the datum and the schema it was decoded with.
func Decode(c *avro.Codec, res Resolver, block []byte) (value.Value, *avro.Schema, error) {
	fp, data, err := Split(block)
	if err != nil {
		return nil, nil, err
	}
	s, err := res.Get(fp)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "singleobject: no schema for fingerprint %016x", fp)
	}
	v, err := c.Decode(data, s)
	if err != nil {
		return nil, nil, err
	}
	return v, s, nil
}
