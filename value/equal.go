// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package value

import (
	"bytes"
	"math"
)

// Equal reports whether a and b are structurally equal. Records and lists
// compare in order, maps without regard to order. A nil interface equals
// Null.
func Equal(a, b Value) bool {
	if KindOf(a) != KindOf(b) {
		return false
	}

	switch av := a.(type) {
	case nil, Null:
		return true
	case Bool:
		return av == b.(Bool)
	case Int32:
		return av == b.(Int32)
	case Int64:
		return av == b.(Int64)
	case Float32:
		bv := b.(Float32)
		return av == bv || (math.IsNaN(float64(av)) && math.IsNaN(float64(bv)))
	case Float64:
		bv := b.(Float64)
		return av == bv || (math.IsNaN(float64(av)) && math.IsNaN(float64(bv)))
	case String:
		return av == b.(String)
	case Bytes:
		return bytes.Equal(av, b.(Bytes))
	case List:
		bv := b.(List)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *Record:
		bv := b.(*Record)
		if av.Len() != bv.Len() {
			return false
		}
		bf := bv.Fields()
		for i, f := range av.Fields() {
			if f.Name != bf[i].Name || !Equal(f.Value, bf[i].Value) {
				return false
			}
		}
		return true
	case Map:
		bv := b.(Map)
		if len(av) != len(bv) {
			return false
		}
		for k, x := range av {
			y, ok := bv[k]
			if !ok || !Equal(x, y) {
				return false
			}
		}
		return true
	case BigInt:
		return av.Big().Cmp(b.(BigInt).Big()) == 0
	case Decimal:
		bv := b.(Decimal)
		return av.Scale == bv.Scale && av.unscaled().Cmp(bv.unscaled()) == 0
	case UUID:
		return av.UUID == b.(UUID).UUID
	case Date:
		return av.Date == b.(Date).Date
	case Time:
		return av.Time == b.(Time).Time
	case Timestamp:
		return av.Time.Equal(b.(Timestamp).Time)
	case LocalTimestamp:
		return av.DateTime == b.(LocalTimestamp).DateTime
	}
	return false
}
