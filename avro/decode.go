// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package avro

import (
	"math"
	"strconv"

	"github.com/pkg/errors"

	"github.com/criccomini/twister"
	"github.com/criccomini/twister/value"
)

// maxZeroWidthItems caps the items of a block whose item schema occupies
// no bytes, since the remaining input cannot bound their count.
const maxZeroWidthItems = 1 << 20

type decoder struct {
	r        *Reader
	registry Registry
	maxDepth int
}

func (d *decoder) decode(s *Schema, depth int) (value.Value, error) {
	if depth > d.maxDepth {
		return nil, depthExceeded(d.maxDepth)
	}
	if s == nil {
		return nil, errors.New("avro: nil schema")
	}
	if h, ok := d.registry.handlerFor(s); ok {
		return h.Decode(d.r, s)
	}

	switch s.Type {
	case Null:
		return value.Null{}, nil
	case Boolean:
		b, err := d.r.ReadBoolean()
		return value.Bool(b), err
	case Int:
		i, err := d.r.ReadInt()
		return value.Int32(i), err
	case Long:
		l, err := d.r.ReadLong()
		return value.Int64(l), err
	case Float:
		f, err := d.r.ReadFloat()
		return value.Float32(f), err
	case Double:
		f, err := d.r.ReadDouble()
		return value.Float64(f), err
	case String:
		str, err := d.r.ReadString()
		return value.String(str), err
	case Bytes:
		b, err := d.r.ReadBytes()
		return value.Bytes(b), err
	case Fixed:
		b, err := d.r.ReadFixed(s.Size)
		if err != nil {
			return nil, err
		}
		return value.Bytes(append([]byte(nil), b...)), nil
	case Enum:
		idx, err := d.r.ReadLong()
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= int64(len(s.Symbols)) {
			return nil, twister.NewError(twister.UnknownEnumIndex).
				WithField(s.Name).
				WithNumber(idx).
				WithKinds("index below "+strconv.Itoa(len(s.Symbols)), strconv.FormatInt(idx, 10))
		}
		return value.String(s.Symbols[idx]), nil
	case Union:
		idx, err := d.r.ReadLong()
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= int64(len(s.Branches)) {
			return nil, twister.NewError(twister.NoMatchingUnionBranch).
				WithNumber(idx).
				WithKinds("branch below "+strconv.Itoa(len(s.Branches)), strconv.FormatInt(idx, 10))
		}
		return d.decode(s.Branches[idx], depth+1)
	case Array:
		list := value.List{}
		err := d.blocks(minWidth(s.Items, nil), func() error {
			v, err := d.decode(s.Items, depth+1)
			if err != nil {
				return errors.WithMessagef(err, "item %d", len(list))
			}
			list = append(list, v)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return list, nil
	case Map:
		m := value.Map{}
		err := d.blocks(1+minWidth(s.Values, nil), func() error {
			k, err := d.r.ReadString()
			if err != nil {
				return err
			}
			v, err := d.decode(s.Values, depth+1)
			if err != nil {
				return errors.WithMessagef(err, "key %q", k)
			}
			m[k] = v
			return nil
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	case Record:
		rec := value.NewRecord()
		for _, f := range s.Fields {
			v, err := d.decode(f.Schema, depth+1)
			if err != nil {
				return nil, errors.WithMessagef(err, "field %s", f.Name)
			}
			rec.Set(f.Name, v)
		}
		return rec, nil
	}
	return nil, errors.Errorf("avro: unknown schema type %s", s.Type)
}

// blocks reads array or map blocks up to the zero terminator, calling item
// once per element. width is the least number of bytes one element takes.
func (d *decoder) blocks(width int, item func() error) error {
	var total int64
	for {
		n, err := d.r.ReadLong()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		if n < 0 {
			if n == math.MinInt64 {
				return twister.NewError(twister.MalformedInput).WithKinds("block count", strconv.FormatInt(n, 10))
			}
			n = -n
			size, err := d.r.ReadLong()
			if err != nil {
				return err
			}
			if size < 0 {
				return twister.NewError(twister.MalformedInput).WithKinds("block size", strconv.FormatInt(size, 10))
			}
		}

		total += n
		if width > 0 {
			if n > int64(d.r.Len()/width) {
				return twister.NewError(twister.TruncatedInput).
					WithKinds(strconv.FormatInt(n, 10)+" items", strconv.Itoa(d.r.Len())+" bytes")
			}
		} else if total > maxZeroWidthItems {
			return twister.NewError(twister.MalformedInput).
				WithKinds("at most "+strconv.Itoa(maxZeroWidthItems)+" zero-width items", strconv.FormatInt(total, 10))
		}

		for i := int64(0); i < n; i++ {
			if err := item(); err != nil {
				return err
			}
		}
	}
}

// minWidth returns the fewest bytes a datum of s can occupy.
func minWidth(s *Schema, seen map[*Schema]bool) int {
	switch s.Type {
	case Null:
		return 0
	case Float:
		return 4
	case Double:
		return 8
	case Fixed:
		return s.Size
	case Record:
		if seen[s] {
			return 0
		}
		if seen == nil {
			seen = make(map[*Schema]bool)
		}
		seen[s] = true
		w := 0
		for _, f := range s.Fields {
			w += minWidth(f.Schema, seen)
		}
		delete(seen, s)
		return w
	}
	return 1
}
