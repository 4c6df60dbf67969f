// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package cbor // import "github.com/criccomini/twister/codec/cbor"

import (
	ugorji "github.com/ugorji/go/codec"

	"github.com/criccomini/twister/codec"
)

func New() codec.Codec {
	return codec.NewHandle("cbor", &ugorji.CborHandle{})
}
