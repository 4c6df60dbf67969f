// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package json // import "github.com/criccomini/twister/codec/json"

import (
	"bytes"
	"encoding/json"
	"io"
	"math/big"
	"strings"

	"github.com/pkg/errors"

	"github.com/criccomini/twister/codec"
	"github.com/criccomini/twister/value"
)

// New returns a JSON document codec. Numbers keep their full precision:
// integers become Int32, Int64 or BigInt by size and everything else a
// Float64. Bytes are written as base64 strings and read back as strings.
func New() codec.Codec {
	return &jsonCodec{}
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v value.Value) ([]byte, error) {
	data, err := json.Marshal(value.ToNative(v))
	return data, errors.Wrap(err, "json codec: encode failed")
}

func (c jsonCodec) Unmarshal(data []byte) (value.Value, error) {
	return c.NewDecoder(bytes.NewReader(data)).Decode()
}

func (jsonCodec) NewEncoder(w io.Writer) codec.Encoder {
	return &encoder{enc: json.NewEncoder(w)}
}

func (jsonCodec) NewDecoder(r io.Reader) codec.Decoder {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &decoder{dec: dec}
}

type encoder struct {
	enc *json.Encoder
}

func (e *encoder) Encode(v value.Value) error {
	return errors.Wrap(e.enc.Encode(value.ToNative(v)), "json codec: encode failed")
}

type decoder struct {
	dec *json.Decoder
}

// Decode returns io.EOF once the stream is exhausted.
func (d *decoder) Decode() (value.Value, error) {
	var x interface{}
	if err := d.dec.Decode(&x); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.Wrap(err, "json codec: decode failed")
	}
	n, err := numbers(x)
	if err != nil {
		return nil, errors.Wrap(err, "json codec: decode failed")
	}
	v, err := value.FromNative(n)
	return v, errors.Wrap(err, "json codec: decode failed")
}

// numbers replaces every json.Number in x with an int64, *big.Int or
// float64.
func numbers(x interface{}) (interface{}, error) {
	switch tx := x.(type) {
	case json.Number:
		s := tx.String()
		if !strings.ContainsAny(s, ".eE") {
			if i, err := tx.Int64(); err == nil {
				return i, nil
			}
			if b, ok := new(big.Int).SetString(s, 10); ok {
				return b, nil
			}
		}
		return tx.Float64()
	case []interface{}:
		for i, e := range tx {
			n, err := numbers(e)
			if err != nil {
				return nil, err
			}
			tx[i] = n
		}
	case map[string]interface{}:
		for k, e := range tx {
			n, err := numbers(e)
			if err != nil {
				return nil, err
			}
			tx[k] = n
		}
	}
	return x, nil
}
