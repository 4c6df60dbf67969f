// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

// Package value holds the generic in-memory representation every codec
// reads from and writes to.
//
// A Value is one of a closed set of variants. Composite values are List,
// *Record (ordered, unique field names) and Map (unordered, string keys).
// Whether a nested object is a Record or a Map is decided by the schema it
// is encoded against, not by the Value.
package value // import "github.com/criccomini/twister/value"

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

// Kind identifies the variant of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindString
	KindBytes
	KindList
	KindRecord
	KindMap
	KindBigInt
	KindDecimal
	KindUUID
	KindDate
	KindTime
	KindTimestamp
	KindLocalTimestamp
)

var kindNames = [...]string{
	KindNull:           "null",
	KindBool:           "bool",
	KindInt32:          "int32",
	KindInt64:          "int64",
	KindFloat32:        "float32",
	KindFloat64:        "float64",
	KindString:         "string",
	KindBytes:          "bytes",
	KindList:           "list",
	KindRecord:         "record",
	KindMap:            "map",
	KindBigInt:         "bigint",
	KindDecimal:        "decimal",
	KindUUID:           "uuid",
	KindDate:           "date",
	KindTime:           "time",
	KindTimestamp:      "timestamp",
	KindLocalTimestamp: "local-timestamp",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Value is the universal in-memory form.
type Value interface {
	Kind() Kind
	value()
}

// KindOf returns v's kind, treating a nil interface as Null.
func KindOf(v Value) Kind {
	if v == nil {
		return KindNull
	}
	return v.Kind()
}

// IsNull reports whether v is nil or Null.
func IsNull(v Value) bool {
	return KindOf(v) == KindNull
}

type (
	Null    struct{}
	Bool    bool
	Int32   int32
	Int64   int64
	Float32 float32
	Float64 float64
	String  string
	Bytes   []byte
	List    []Value
	Map     map[string]Value
)

// BigInt is an arbitrary-precision integer. The zero value is 0.
type BigInt struct{ Int *big.Int }

// Decimal is Unscaled * 10^-Scale.
type Decimal struct {
	Unscaled *big.Int
	Scale    int32
}

type UUID struct{ uuid.UUID }

type Date struct{ civil.Date }

// Time is a time of day with nanosecond precision.
type Time struct{ civil.Time }

// Timestamp is an instant, always held in UTC.
type Timestamp struct{ time.Time }

// LocalTimestamp is a date-time without a zone.
type LocalTimestamp struct{ civil.DateTime }

func (Null) Kind() Kind           { return KindNull }
func (Bool) Kind() Kind           { return KindBool }
func (Int32) Kind() Kind          { return KindInt32 }
func (Int64) Kind() Kind          { return KindInt64 }
func (Float32) Kind() Kind        { return KindFloat32 }
func (Float64) Kind() Kind        { return KindFloat64 }
func (String) Kind() Kind         { return KindString }
func (Bytes) Kind() Kind          { return KindBytes }
func (List) Kind() Kind           { return KindList }
func (*Record) Kind() Kind        { return KindRecord }
func (Map) Kind() Kind            { return KindMap }
func (BigInt) Kind() Kind         { return KindBigInt }
func (Decimal) Kind() Kind        { return KindDecimal }
func (UUID) Kind() Kind           { return KindUUID }
func (Date) Kind() Kind           { return KindDate }
func (Time) Kind() Kind           { return KindTime }
func (Timestamp) Kind() Kind      { return KindTimestamp }
func (LocalTimestamp) Kind() Kind { return KindLocalTimestamp }

func (Null) value()           {}
func (Bool) value()           {}
func (Int32) value()          {}
func (Int64) value()          {}
func (Float32) value()        {}
func (Float64) value()        {}
func (String) value()         {}
func (Bytes) value()          {}
func (List) value()           {}
func (*Record) value()        {}
func (Map) value()            {}
func (BigInt) value()         {}
func (Decimal) value()        {}
func (UUID) value()           {}
func (Date) value()           {}
func (Time) value()           {}
func (Timestamp) value()      {}
func (LocalTimestamp) value() {}

// NewBigInt copies i.
func NewBigInt(i *big.Int) BigInt {
	return BigInt{Int: new(big.Int).Set(i)}
}

// BigIntFromUint64 returns u as a BigInt.
func BigIntFromUint64(u uint64) BigInt {
	return BigInt{Int: new(big.Int).SetUint64(u)}
}

// Big returns the integer, treating a nil Int as zero.
func (b BigInt) Big() *big.Int {
	if b.Int == nil {
		return new(big.Int)
	}
	return b.Int
}

func (b BigInt) String() string { return b.Big().String() }

// NewDecimal returns unscaled * 10^-scale.
func NewDecimal(unscaled *big.Int, scale int32) Decimal {
	return Decimal{Unscaled: new(big.Int).Set(unscaled), Scale: scale}
}

// ParseDecimal parses plain decimal notation such as "-12.340".
func ParseDecimal(s string) (Decimal, error) {
	digits := s
	var scale int32
	if i := strings.IndexByte(s, '.'); i >= 0 {
		digits = s[:i] + s[i+1:]
		scale = int32(len(s) - i - 1)
	}
	u, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return Decimal{}, fmt.Errorf("value: invalid decimal %q", s)
	}
	return Decimal{Unscaled: u, Scale: scale}, nil
}

func (d Decimal) unscaled() *big.Int {
	if d.Unscaled == nil {
		return new(big.Int)
	}
	return d.Unscaled
}

// Precision returns the number of decimal digits in the unscaled value.
func (d Decimal) Precision() int {
	s := new(big.Int).Abs(d.unscaled()).String()
	return len(s)
}

// Rescale returns d with the given scale. It fails when digits would be
// lost.
func (d Decimal) Rescale(scale int32) (Decimal, bool) {
	u := d.unscaled()
	switch {
	case scale == d.Scale:
		return d, true
	case scale > d.Scale:
		f := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(scale-d.Scale)), nil)
		return Decimal{Unscaled: new(big.Int).Mul(u, f), Scale: scale}, true
	default:
		f := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(d.Scale-scale)), nil)
		q, r := new(big.Int).QuoRem(u, f, new(big.Int))
		if r.Sign() != 0 {
			return d, false
		}
		return Decimal{Unscaled: q, Scale: scale}, true
	}
}

func (d Decimal) String() string {
	u := d.unscaled()
	if d.Scale <= 0 {
		if d.Scale == 0 || u.Sign() == 0 {
			return u.String()
		}
		f := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(-d.Scale)), nil)
		return new(big.Int).Mul(u, f).String()
	}

	digits := new(big.Int).Abs(u).String()
	scale := int(d.Scale)
	if len(digits) <= scale {
		digits = strings.Repeat("0", scale-len(digits)+1) + digits
	}
	s := digits[:len(digits)-scale] + "." + digits[len(digits)-scale:]
	if u.Sign() < 0 {
		s = "-" + s
	}
	return s
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{civil.Date{Year: year, Month: month, Day: day}}
}

var epochDate = civil.Date{Year: 1970, Month: time.January, Day: 1}

// DateFromEpochDays returns the date that is days after 1970-01-01.
func DateFromEpochDays(days int32) Date {
	return Date{epochDate.AddDays(int(days))}
}

// EpochDays returns the number of days since 1970-01-01.
func (d Date) EpochDays() int64 {
	return int64(d.Date.DaysSince(epochDate))
}

const nanosPerDay = int64(24 * time.Hour)

func NewTime(hour, minute, second, nanosecond int) Time {
	return Time{civil.Time{Hour: hour, Minute: minute, Second: second, Nanosecond: nanosecond}}
}

// TimeFromNanoOfDay returns the time of day n nanoseconds after midnight.
func TimeFromNanoOfDay(n int64) (Time, error) {
	if n < 0 || n >= nanosPerDay {
		return Time{}, fmt.Errorf("value: nano of day %d out of range", n)
	}
	d := time.Duration(n)
	return NewTime(
		int(d/time.Hour),
		int(d%time.Hour/time.Minute),
		int(d%time.Minute/time.Second),
		int(d%time.Second),
	), nil
}

// NanoOfDay returns the nanoseconds since midnight.
func (t Time) NanoOfDay() int64 {
	return int64(t.Hour)*int64(time.Hour) +
		int64(t.Minute)*int64(time.Minute) +
		int64(t.Second)*int64(time.Second) +
		int64(t.Nanosecond)
}

// NewTimestamp converts t to UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t.UTC()}
}

func NewLocalTimestamp(dt civil.DateTime) LocalTimestamp {
	return LocalTimestamp{dt}
}

// LocalTimestampOf returns the wall clock of t in UTC.
func LocalTimestampOf(t time.Time) LocalTimestamp {
	return LocalTimestamp{civil.DateTimeOf(t.UTC())}
}

// UTC interprets the naive date-time as a UTC instant.
func (lt LocalTimestamp) UTC() time.Time {
	return lt.DateTime.In(time.UTC)
}
