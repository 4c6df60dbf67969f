// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package basic // import "github.com/criccomini/twister/framing/basic"

import (
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/criccomini/twister"
)

type Framing interface {
	twister.Framing

	// Next splits the first frame off a buffer of concatenated frames.
	Next(buf []byte) (data, rest []byte, err error)

	MaxFrameSize() int
}

var _ Framing = &varintFrame{}

// DefaultMaxFrameSize bounds a frame's payload unless New says otherwise.
const DefaultMaxFrameSize = 64 << 20

// New returns a framing that prefixes each record with its length as an
// unsigned varint. Payloads longer than maxSize are rejected; maxSize
// below 1 selects DefaultMaxFrameSize.
func New(maxSize int) Framing {
	if maxSize < 1 {
		maxSize = DefaultMaxFrameSize
	}
	return &varintFrame{maxSize: maxSize}
}

type varintFrame struct {
	maxSize int
}

func (f *varintFrame) Next(buf []byte) ([]byte, []byte, error) {
	size, n := protowire.ConsumeVarint(buf)
	if n < 0 {
		return nil, nil, twister.NewError(twister.TruncatedInput).WithCause(protowire.ParseError(n))
	}
	if size > uint64(f.maxSize) {
		return nil, nil, errors.Errorf("frame size %d too large", size)
	}
	end := n + int(size)
	if end > len(buf) {
		return nil, nil, twister.NewError(twister.TruncatedInput).WithNumber(int64(size))
	}
	return buf[n:end], buf[end:], nil
}

func (f *varintFrame) DecodeFrame(block []byte) ([]byte, error) {
	data, rest, err := f.Next(block)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, errors.Errorf("frame sizes don't match: %d trailing bytes", len(rest))
	}
	return data, nil
}

func (f *varintFrame) EncodeFrame(data []byte) ([]byte, error) {
	if len(data) > f.maxSize {
		return nil, errors.New("data too long")
	}

	frame := make([]byte, 0, protowire.SizeVarint(uint64(len(data)))+len(data))
	frame = protowire.AppendVarint(frame, uint64(len(data)))
	return append(frame, data...), nil
}

func (f *varintFrame) MaxFrameSize() int {
	return f.maxSize
}
