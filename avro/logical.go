// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package avro

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/criccomini/twister"
	"github.com/criccomini/twister/value"
)

// LogicalTypeHandler decodes and encodes one logical type over its
// underlying primitive.
type LogicalTypeHandler interface {
	// Kind is the value kind the handler produces, and the kind a value
	// must have to select a union branch annotated with this logical type.
	Kind() value.Kind

	Decode(r *Reader, s *Schema) (value.Value, error)
	Encode(w *Writer, v value.Value, s *Schema) error
}

// LogicalTypeFuncs adapts a pair of functions to LogicalTypeHandler.
type LogicalTypeFuncs struct {
	ValueKind  value.Kind
	DecodeFunc func(r *Reader, s *Schema) (value.Value, error)
	EncodeFunc func(w *Writer, v value.Value, s *Schema) error
}

func (f LogicalTypeFuncs) Kind() value.Kind { return f.ValueKind }

func (f LogicalTypeFuncs) Decode(r *Reader, s *Schema) (value.Value, error) {
	return f.DecodeFunc(r, s)
}

func (f LogicalTypeFuncs) Encode(w *Writer, v value.Value, s *Schema) error {
	return f.EncodeFunc(w, v, s)
}

// Registry maps logical type names to handlers. A Registry is immutable;
// With and Without return modified copies, so one Registry may be shared
// by any number of codecs.
type Registry struct {
	handlers map[string]LogicalTypeHandler
}

// NewRegistry copies handlers into a new Registry.
func NewRegistry(handlers map[string]LogicalTypeHandler) Registry {
	m := make(map[string]LogicalTypeHandler, len(handlers))
	for k, h := range handlers {
		m[k] = h
	}
	return Registry{handlers: m}
}

var defaultRegistry = NewRegistry(map[string]LogicalTypeHandler{
	LogicalDecimal:              decimalHandler,
	LogicalUUID:                 uuidHandler,
	LogicalDate:                 dateHandler,
	LogicalTimeMillis:           timeHandler(Int, time.Millisecond),
	LogicalTimeMicros:           timeHandler(Long, time.Microsecond),
	LogicalTimestampMillis:      timestampHandler(time.Millisecond),
	LogicalTimestampMicros:      timestampHandler(time.Microsecond),
	LogicalLocalTimestampMillis: localTimestampHandler(time.Millisecond),
	LogicalLocalTimestampMicros: localTimestampHandler(time.Microsecond),
})

// DefaultRegistry returns the registry holding handlers for decimal,
// uuid, date, time-millis, time-micros, timestamp-millis,
// timestamp-micros, local-timestamp-millis and local-timestamp-micros.
func DefaultRegistry() Registry {
	return defaultRegistry
}

// Lookup returns the handler registered for name.
func (r Registry) Lookup(name string) (LogicalTypeHandler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// With returns a copy of r where name is handled by h.
func (r Registry) With(name string, h LogicalTypeHandler) Registry {
	nr := NewRegistry(r.handlers)
	nr.handlers[name] = h
	return nr
}

// Without returns a copy of r without a handler for name.
func (r Registry) Without(name string) Registry {
	nr := NewRegistry(r.handlers)
	delete(nr.handlers, name)
	return nr
}

// Names lists the registered logical type names in sorted order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for n := range r.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// handlerFor returns the handler for s's logical type, if s has one and it
// is registered.
func (r Registry) handlerFor(s *Schema) (LogicalTypeHandler, bool) {
	if s.Logical == nil {
		return nil, false
	}
	return r.Lookup(s.Logical.Name)
}

func underlyingMismatch(s *Schema, want ...Type) error {
	for _, t := range want {
		if s.Type == t {
			return nil
		}
	}
	return twister.NewError(twister.UnsupportedLogicalType).
		WithField(s.LogicalName()).
		WithKinds(want[0].String(), s.Type.String())
}

func mismatch(expected string, v value.Value) *twister.Error {
	return twister.NewError(twister.TypeMismatch).WithKinds(expected, value.KindOf(v).String())
}

var decimalHandler = LogicalTypeFuncs{
	ValueKind: value.KindDecimal,
	DecodeFunc: func(r *Reader, s *Schema) (value.Value, error) {
		var (
			b   []byte
			err error
		)
		switch s.Type {
		case Bytes:
			b, err = r.ReadBytes()
		case Fixed:
			b, err = r.ReadFixed(s.Size)
		default:
			return nil, underlyingMismatch(s, Bytes, Fixed)
		}
		if err != nil {
			return nil, err
		}
		return value.Decimal{Unscaled: fromTwosComplement(b), Scale: int32(s.Logical.Scale)}, nil
	},
	EncodeFunc: func(w *Writer, v value.Value, s *Schema) error {
		if err := underlyingMismatch(s, Bytes, Fixed); err != nil {
			return err
		}
		d, ok := v.(value.Decimal)
		if !ok {
			return mismatch("decimal", v)
		}
		d, ok = d.Rescale(int32(s.Logical.Scale))
		if !ok {
			return twister.NewError(twister.ValueOutOfRange).
				WithKinds("scale "+strconv.Itoa(s.Logical.Scale), "decimal "+d.String())
		}
		if p := s.Logical.Precision; p > 0 && d.Precision() > p {
			return twister.NewError(twister.ValueOutOfRange).
				WithKinds("precision "+strconv.Itoa(p), "decimal "+d.String())
		}
		b := toTwosComplement(d.Unscaled)
		if s.Type == Bytes {
			w.WriteBytes(b)
			return nil
		}
		fixed, err := signExtend(b, s.Size, d.Unscaled.Sign() < 0)
		if err != nil {
			return err
		}
		w.WriteFixed(fixed)
		return nil
	},
}

var uuidHandler = LogicalTypeFuncs{
	ValueKind: value.KindUUID,
	DecodeFunc: func(r *Reader, s *Schema) (value.Value, error) {
		if s.Type == Fixed && s.Size == 16 {
			b, err := r.ReadFixed(16)
			if err != nil {
				return nil, err
			}
			var id uuid.UUID
			copy(id[:], b)
			return value.UUID{UUID: id}, nil
		}
		if err := underlyingMismatch(s, String); err != nil {
			return nil, err
		}
		str, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		id, err := uuid.Parse(str)
		if err != nil {
			return nil, twister.NewError(twister.MalformedInput).WithKinds("uuid", "string "+str).WithCause(err)
		}
		return value.UUID{UUID: id}, nil
	},
	EncodeFunc: func(w *Writer, v value.Value, s *Schema) error {
		u, ok := v.(value.UUID)
		if !ok {
			return mismatch("uuid", v)
		}
		id := u.UUID
		if s.Type == Fixed && s.Size == 16 {
			w.WriteFixed(id[:])
			return nil
		}
		if err := underlyingMismatch(s, String); err != nil {
			return err
		}
		w.WriteString(id.String())
		return nil
	},
}

var dateHandler = LogicalTypeFuncs{
	ValueKind: value.KindDate,
	DecodeFunc: func(r *Reader, s *Schema) (value.Value, error) {
		if err := underlyingMismatch(s, Int); err != nil {
			return nil, err
		}
		days, err := r.ReadInt()
		if err != nil {
			return nil, err
		}
		return value.DateFromEpochDays(days), nil
	},
	EncodeFunc: func(w *Writer, v value.Value, s *Schema) error {
		if err := underlyingMismatch(s, Int); err != nil {
			return err
		}
		d, ok := v.(value.Date)
		if !ok {
			return mismatch("date", v)
		}
		days := d.EpochDays()
		if days < math.MinInt32 || days > math.MaxInt32 {
			return twister.NewError(twister.ValueOutOfRange).WithKinds("int days", d.Date.String())
		}
		w.WriteInt(int32(days))
		return nil
	},
}

// timeHandler reads a time of day counted in unit over an int or long.
func timeHandler(underlying Type, unit time.Duration) LogicalTypeHandler {
	return LogicalTypeFuncs{
		ValueKind: value.KindTime,
		DecodeFunc: func(r *Reader, s *Schema) (value.Value, error) {
			if err := underlyingMismatch(s, underlying); err != nil {
				return nil, err
			}
			n, err := r.ReadLong()
			if err != nil {
				return nil, err
			}
			if underlying == Int && (n < math.MinInt32 || n > math.MaxInt32) {
				return nil, twister.NewError(twister.ValueOutOfRange).WithKinds("int", "long "+strconv.FormatInt(n, 10))
			}
			t, err := value.TimeFromNanoOfDay(n * int64(unit))
			if err != nil {
				return nil, twister.NewError(twister.MalformedInput).WithCause(err)
			}
			return t, nil
		},
		EncodeFunc: func(w *Writer, v value.Value, s *Schema) error {
			if err := underlyingMismatch(s, underlying); err != nil {
				return err
			}
			t, ok := v.(value.Time)
			if !ok {
				return mismatch("time", v)
			}
			w.WriteLong(t.NanoOfDay() / int64(unit))
			return nil
		},
	}
}

func fromEpoch(n int64, unit time.Duration) time.Time {
	if unit == time.Millisecond {
		return time.UnixMilli(n).UTC()
	}
	return time.UnixMicro(n).UTC()
}

func toEpoch(t time.Time, unit time.Duration) int64 {
	if unit == time.Millisecond {
		return t.UnixMilli()
	}
	return t.UnixMicro()
}

func timestampHandler(unit time.Duration) LogicalTypeHandler {
	return LogicalTypeFuncs{
		ValueKind: value.KindTimestamp,
		DecodeFunc: func(r *Reader, s *Schema) (value.Value, error) {
			if err := underlyingMismatch(s, Long); err != nil {
				return nil, err
			}
			n, err := r.ReadLong()
			if err != nil {
				return nil, err
			}
			return value.Timestamp{Time: fromEpoch(n, unit)}, nil
		},
		EncodeFunc: func(w *Writer, v value.Value, s *Schema) error {
			if err := underlyingMismatch(s, Long); err != nil {
				return err
			}
			ts, ok := v.(value.Timestamp)
			if !ok {
				return mismatch("timestamp", v)
			}
			w.WriteLong(toEpoch(ts.Time, unit))
			return nil
		},
	}
}

func localTimestampHandler(unit time.Duration) LogicalTypeHandler {
	return LogicalTypeFuncs{
		ValueKind: value.KindLocalTimestamp,
		DecodeFunc: func(r *Reader, s *Schema) (value.Value, error) {
			if err := underlyingMismatch(s, Long); err != nil {
				return nil, err
			}
			n, err := r.ReadLong()
			if err != nil {
				return nil, err
			}
			return value.LocalTimestampOf(fromEpoch(n, unit)), nil
		},
		EncodeFunc: func(w *Writer, v value.Value, s *Schema) error {
			if err := underlyingMismatch(s, Long); err != nil {
				return err
			}
			lt, ok := v.(value.LocalTimestamp)
			if !ok {
				return mismatch("local-timestamp", v)
			}
			w.WriteLong(toEpoch(lt.UTC(), unit))
			return nil
		},
	}
}

// checkLogical reports UnsupportedLogicalType for a decimal annotation
// without sane parameters. Other unknown annotations are left alone.
func checkLogical(s *Schema) error {
	if s.Logical == nil || s.Logical.Name != LogicalDecimal {
		return nil
	}
	if s.Logical.Precision < 0 || s.Logical.Scale < 0 ||
		(s.Logical.Precision > 0 && s.Logical.Scale > s.Logical.Precision) {
		return errors.WithStack(twister.NewError(twister.UnsupportedLogicalType).
			WithField(LogicalDecimal).
			WithKinds("0 <= scale <= precision", "precision "+strconv.Itoa(s.Logical.Precision)+" scale "+strconv.Itoa(s.Logical.Scale)))
	}
	return nil
}
