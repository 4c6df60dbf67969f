// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package msgpack // import "github.com/criccomini/twister/codec/msgpack"

import (
	ugorji "github.com/ugorji/go/codec"

	"github.com/criccomini/twister/codec"
)

// New returns a MessagePack document codec. Strings and binary data stay
// distinct on the wire and timestamps use the timestamp extension.
func New() codec.Codec {
	h := &ugorji.MsgpackHandle{WriteExt: true}
	return codec.NewHandle("msgpack", h)
}
