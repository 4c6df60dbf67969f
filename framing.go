// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package twister // import "github.com/criccomini/twister"

import (
	"github.com/pkg/errors"

	"github.com/criccomini/twister/value"
)

// Framing wraps an encoded record in an envelope and unwraps it again.
type Framing interface {
	DecodeFrame([]byte) ([]byte, error)
	EncodeFrame([]byte) ([]byte, error)
}

// Framed returns a Codec that frames everything cdc marshals and unframes
// everything before cdc unmarshals it.
func Framed(cdc Codec, f Framing) Codec {
	return &framedCodec{cdc: cdc, f: f}
}

type framedCodec struct {
	cdc Codec
	f   Framing
}

func (fc *framedCodec) Marshal(v value.Value) ([]byte, error) {
	data, err := fc.cdc.Marshal(v)
	if err != nil {
		return nil, err
	}

	frame, err := fc.f.EncodeFrame(data)
	return frame, errors.Wrap(err, "framed: failed to encode frame")
}

func (fc *framedCodec) Unmarshal(frame []byte) (value.Value, error) {
	data, err := fc.f.DecodeFrame(frame)
	if err != nil {
		return nil, errors.Wrap(err, "framed: failed to decode frame")
	}

	return fc.cdc.Unmarshal(data)
}
