// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package avro

import (
	"math/big"
	"strconv"

	"github.com/criccomini/twister"
)

// toTwosComplement returns the shortest big-endian two's-complement
// encoding of i.
func toTwosComplement(i *big.Int) []byte {
	switch i.Sign() {
	case 0:
		return []byte{0}
	case 1:
		b := i.Bytes()
		if b[0]&0x80 != 0 {
			b = append([]byte{0}, b...)
		}
		return b
	}

	// The encoding of a negative i is the inverted bytes of |i|-1.
	m := new(big.Int).Neg(i)
	m.Sub(m, big.NewInt(1))
	b := m.Bytes()
	for j := range b {
		b[j] = ^b[j]
	}
	if len(b) == 0 || b[0]&0x80 == 0 {
		b = append([]byte{0xff}, b...)
	}
	return b
}

func fromTwosComplement(b []byte) *big.Int {
	i := new(big.Int).SetBytes(b)
	if len(b) > 0 && b[0]&0x80 != 0 {
		i.Sub(i, new(big.Int).Lsh(big.NewInt(1), uint(len(b))*8))
	}
	return i
}

// signExtend pads a two's-complement encoding to size bytes.
func signExtend(b []byte, size int, negative bool) ([]byte, error) {
	if len(b) > size {
		return nil, twister.NewError(twister.ValueOutOfRange).
			WithKinds("decimal within "+strconv.Itoa(size)+" bytes", strconv.Itoa(len(b))+" bytes")
	}
	out := make([]byte, size)
	if negative {
		for i := range out {
			out[i] = 0xff
		}
	}
	copy(out[size-len(b):], b)
	return out, nil
}
