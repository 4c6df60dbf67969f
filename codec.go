// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package twister // import "github.com/criccomini/twister"

import (
	"github.com/criccomini/twister/value"
)

// Codec converts between a Value and one serialized representation.
// Schema-driven codecs are bound to their schema before they satisfy this
// interface, see avro.Codec.Bind and proto.Codec.Bind.
type Codec interface {
	// Marshal encodes a single value and returns the serialized byte slice.
	Marshal(v value.Value) ([]byte, error)

	// Unmarshal decodes and returns the value stored in data.
	Unmarshal(data []byte) (value.Value, error)
}
