// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package avro

import (
	"io"
	"math"
	"strconv"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/criccomini/twister"
)

// Binary primitives of the Format-A wire layout. Longs and ints are zigzag
// varints, floats and doubles little-endian IEEE-754, strings and bytes a
// long length followed by the raw bytes. The varint and fixed-width
// helpers are shared with the Format-B wire layout.

// Reader consumes primitives from a byte slice. It never reads past the
// end of the slice; running out of input yields TruncatedInput.
type Reader struct {
	buf []byte
	off int
}

func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	return len(r.buf) - r.off
}

func varintError(n int) error {
	err := protowire.ParseError(n)
	if err == io.ErrUnexpectedEOF {
		return twister.NewError(twister.TruncatedInput)
	}
	return twister.NewError(twister.MalformedInput).WithCause(err)
}

func truncated(need, have int) error {
	return twister.NewError(twister.TruncatedInput).
		WithKinds(strconv.Itoa(need)+" bytes", strconv.Itoa(have)+" bytes")
}

func (r *Reader) ReadLong() (int64, error) {
	u, n := protowire.ConsumeVarint(r.buf[r.off:])
	if n < 0 {
		return 0, varintError(n)
	}
	r.off += n
	return protowire.DecodeZigZag(u), nil
}

func (r *Reader) ReadInt() (int32, error) {
	v, err := r.ReadLong()
	if err != nil {
		return 0, err
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, twister.NewError(twister.ValueOutOfRange).WithKinds("int", "long "+strconv.FormatInt(v, 10))
	}
	return int32(v), nil
}

func (r *Reader) ReadBoolean() (bool, error) {
	if r.Len() < 1 {
		return false, truncated(1, 0)
	}
	b := r.buf[r.off]
	r.off++
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, twister.NewError(twister.MalformedInput).WithKinds("boolean byte", strconv.Itoa(int(b)))
}

func (r *Reader) ReadFloat() (float32, error) {
	u, n := protowire.ConsumeFixed32(r.buf[r.off:])
	if n < 0 {
		return 0, truncated(4, r.Len())
	}
	r.off += n
	return math.Float32frombits(u), nil
}

func (r *Reader) ReadDouble() (float64, error) {
	u, n := protowire.ConsumeFixed64(r.buf[r.off:])
	if n < 0 {
		return 0, truncated(8, r.Len())
	}
	r.off += n
	return math.Float64frombits(u), nil
}

// ReadFixed returns the next size bytes. The result aliases the input.
func (r *Reader) ReadFixed(size int) ([]byte, error) {
	if size < 0 || size > r.Len() {
		return nil, truncated(size, r.Len())
	}
	b := r.buf[r.off : r.off+size : r.off+size]
	r.off += size
	return b, nil
}

// ReadBytes returns a length-prefixed byte sequence as a fresh copy.
func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadLong()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, twister.NewError(twister.MalformedInput).WithKinds("non-negative length", strconv.FormatInt(n, 10))
	}
	if n > int64(r.Len()) {
		return nil, truncated(int(min(n, math.MaxInt32)), r.Len())
	}
	b, _ := r.ReadFixed(int(n))
	return append([]byte(nil), b...), nil
}

func (r *Reader) ReadString() (string, error) {
	b, err := r.ReadBytes()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", twister.NewError(twister.MalformedInput).WithKinds("UTF-8 string", "invalid UTF-8")
	}
	return string(b), nil
}

// Writer appends primitives to a growing buffer.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the encoded data. The caller owns the slice.
func (w *Writer) Bytes() []byte {
	return w.buf
}

func (w *Writer) Len() int {
	return len(w.buf)
}

func (w *Writer) WriteLong(v int64) {
	w.buf = protowire.AppendVarint(w.buf, protowire.EncodeZigZag(v))
}

func (w *Writer) WriteInt(v int32) {
	w.WriteLong(int64(v))
}

func (w *Writer) WriteBoolean(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

func (w *Writer) WriteFloat(v float32) {
	w.buf = protowire.AppendFixed32(w.buf, math.Float32bits(v))
}

func (w *Writer) WriteDouble(v float64) {
	w.buf = protowire.AppendFixed64(w.buf, math.Float64bits(v))
}

func (w *Writer) WriteFixed(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *Writer) WriteBytes(b []byte) {
	w.WriteLong(int64(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *Writer) WriteString(s string) {
	w.WriteLong(int64(len(s)))
	w.buf = append(w.buf, s...)
}
