// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package value

import (
	"fmt"
	"math"
	"math/big"
	"sort"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// FromNative converts generic Go data, as produced by document decoders,
// into a Value. Integers that fit in 32 bits become Int32, other signed
// integers Int64 and unsigned integers beyond MaxInt64 BigInt.
func FromNative(v interface{}) (Value, error) {
	switch tv := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return tv, nil
	case bool:
		return Bool(tv), nil
	case int:
		return fromInt64(int64(tv)), nil
	case int8:
		return Int32(tv), nil
	case int16:
		return Int32(tv), nil
	case int32:
		return Int32(tv), nil
	case int64:
		return fromInt64(tv), nil
	case uint:
		return fromUint64(uint64(tv)), nil
	case uint8:
		return Int32(tv), nil
	case uint16:
		return Int32(tv), nil
	case uint32:
		return fromInt64(int64(tv)), nil
	case uint64:
		return fromUint64(tv), nil
	case float32:
		return Float32(tv), nil
	case float64:
		return Float64(tv), nil
	case string:
		return String(tv), nil
	case []byte:
		return Bytes(tv), nil
	case *big.Int:
		return NewBigInt(tv), nil
	case uuid.UUID:
		return UUID{tv}, nil
	case time.Time:
		return NewTimestamp(tv), nil
	case civil.Date:
		return Date{tv}, nil
	case civil.Time:
		return Time{tv}, nil
	case civil.DateTime:
		return LocalTimestamp{tv}, nil
	case []interface{}:
		l := make(List, len(tv))
		for i, e := range tv {
			ev, err := FromNative(e)
			if err != nil {
				return nil, errors.Wrapf(err, "value: list element %d", i)
			}
			l[i] = ev
		}
		return l, nil
	case map[string]interface{}:
		m := make(Map, len(tv))
		for k, e := range tv {
			ev, err := FromNative(e)
			if err != nil {
				return nil, errors.Wrapf(err, "value: map entry %q", k)
			}
			m[k] = ev
		}
		return m, nil
	case map[interface{}]interface{}:
		m := make(Map, len(tv))
		for k, e := range tv {
			key := fmt.Sprint(k)
			ev, err := FromNative(e)
			if err != nil {
				return nil, errors.Wrapf(err, "value: map entry %q", key)
			}
			m[key] = ev
		}
		return m, nil
	}
	return nil, errors.Errorf("value: unsupported native type %T", v)
}

func fromInt64(i int64) Value {
	if i >= math.MinInt32 && i <= math.MaxInt32 {
		return Int32(i)
	}
	return Int64(i)
}

func fromUint64(u uint64) Value {
	if u <= math.MaxInt64 {
		return fromInt64(int64(u))
	}
	return BigIntFromUint64(u)
}

// ToNative converts v into plain Go data suitable for document encoders.
// Records and maps become map[string]interface{}, big integers that fit
// become int64 or uint64 and otherwise their decimal string, and the
// logical kinds their canonical text except Timestamp, which stays a
// time.Time.
func ToNative(v Value) interface{} {
	switch tv := v.(type) {
	case nil, Null:
		return nil
	case Bool:
		return bool(tv)
	case Int32:
		return int32(tv)
	case Int64:
		return int64(tv)
	case Float32:
		return float32(tv)
	case Float64:
		return float64(tv)
	case String:
		return string(tv)
	case Bytes:
		return []byte(tv)
	case List:
		out := make([]interface{}, len(tv))
		for i, e := range tv {
			out[i] = ToNative(e)
		}
		return out
	case *Record:
		out := make(map[string]interface{}, tv.Len())
		for _, f := range tv.Fields() {
			out[f.Name] = ToNative(f.Value)
		}
		return out
	case Map:
		out := make(map[string]interface{}, len(tv))
		for k, e := range tv {
			out[k] = ToNative(e)
		}
		return out
	case BigInt:
		b := tv.Big()
		switch {
		case b.IsInt64():
			return b.Int64()
		case b.IsUint64():
			return b.Uint64()
		}
		return b.String()
	case Decimal:
		return tv.String()
	case UUID:
		return tv.UUID.String()
	case Date:
		return tv.Date.String()
	case Time:
		return tv.Time.String()
	case Timestamp:
		return tv.Time
	case LocalTimestamp:
		return tv.DateTime.String()
	}
	return nil
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys(m Map) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AsInt64 returns v as an int64 when v is an integer kind that fits.
func AsInt64(v Value) (int64, bool) {
	switch tv := v.(type) {
	case Int32:
		return int64(tv), true
	case Int64:
		return int64(tv), true
	case BigInt:
		if tv.Big().IsInt64() {
			return tv.Big().Int64(), true
		}
	}
	return 0, false
}

// AsUint64 returns v as a uint64 when v is a non-negative integer kind
// that fits.
func AsUint64(v Value) (uint64, bool) {
	switch tv := v.(type) {
	case Int32:
		if tv >= 0 {
			return uint64(tv), true
		}
	case Int64:
		if tv >= 0 {
			return uint64(tv), true
		}
	case BigInt:
		if tv.Big().IsUint64() {
			return tv.Big().Uint64(), true
		}
	}
	return 0, false
}

// AsFloat64 returns v as a float64 for any numeric kind.
func AsFloat64(v Value) (float64, bool) {
	switch tv := v.(type) {
	case Float32:
		return float64(tv), true
	case Float64:
		return float64(tv), true
	case Int32:
		return float64(tv), true
	case Int64:
		return float64(tv), true
	}
	return 0, false
}

// FormatKey renders a scalar map key as text.
func FormatKey(v Value) (string, bool) {
	switch tv := v.(type) {
	case String:
		return string(tv), true
	case Bool:
		return strconv.FormatBool(bool(tv)), true
	case Int32:
		return strconv.FormatInt(int64(tv), 10), true
	case Int64:
		return strconv.FormatInt(int64(tv), 10), true
	case BigInt:
		return tv.String(), true
	}
	return "", false
}
