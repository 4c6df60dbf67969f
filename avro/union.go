// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package avro

import (
	"strings"

	"github.com/criccomini/twister"
	"github.com/criccomini/twister/value"
)

// Union branches are chosen by comparing the value's kind with the kinds
// each branch expects. The first exact match wins. Without one, the first
// branch the value can be widened to wins.

var expectedKinds = [...][]value.Kind{
	Null:    {value.KindNull},
	Boolean: {value.KindBool},
	Int:     {value.KindInt32},
	Long:    {value.KindInt64},
	Float:   {value.KindFloat32},
	Double:  {value.KindFloat64},
	String:  {value.KindString},
	Bytes:   {value.KindBytes},
	Fixed:   {value.KindBytes},
	Enum:    {value.KindString},
	Array:   {value.KindList},
	Map:     {value.KindMap, value.KindRecord},
	Record:  {value.KindRecord, value.KindMap},
}

var promotions = map[value.Kind][]Type{
	value.KindInt32:   {Long, Float, Double},
	value.KindInt64:   {Float, Double},
	value.KindFloat32: {Double},
	value.KindFloat64: {Float},
	value.KindBigInt:  {Long, Int},
}

// branchKinds returns the value kinds branch b accepts without conversion.
func (r Registry) branchKinds(b *Schema) []value.Kind {
	if b.Type == Null {
		return expectedKinds[Null]
	}
	if h, ok := r.handlerFor(b); ok {
		return []value.Kind{h.Kind()}
	}
	if int(b.Type) < len(expectedKinds) {
		return expectedKinds[b.Type]
	}
	return nil
}

func (r Registry) resolveBranch(v value.Value, u *Schema) (int, error) {
	k := value.KindOf(v)
	for i, b := range u.Branches {
		for _, bk := range r.branchKinds(b) {
			if bk == k {
				return i, nil
			}
		}
	}

	if targets, ok := promotions[k]; ok {
		for i, b := range u.Branches {
			if _, logical := r.handlerFor(b); logical {
				continue
			}
			for _, t := range targets {
				if b.Type == t && promotable(v, t) {
					return i, nil
				}
			}
		}
	}

	names := make([]string, len(u.Branches))
	for i, b := range u.Branches {
		names[i] = b.unionKey()
		if ln := b.LogicalName(); ln != "" {
			names[i] = ln
		}
	}
	return -1, twister.NewError(twister.NoMatchingUnionBranch).
		WithKinds("one of ["+strings.Join(names, ", ")+"]", k.String())
}

func promotable(v value.Value, t Type) bool {
	b, ok := v.(value.BigInt)
	if !ok {
		return true
	}
	if !b.Big().IsInt64() {
		return false
	}
	i := b.Big().Int64()
	return t == Long || (i >= -1<<31 && i < 1<<31)
}
