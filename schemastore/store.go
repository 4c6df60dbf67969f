// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

// Package schemastore keeps Avro schemas addressed by their CRC-64-AVRO
// fingerprint, backed by one of the persist backends.
package schemastore // import "github.com/criccomini/twister/schemastore"

import (
	"encoding/binary"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/criccomini/twister/avro"
	"github.com/criccomini/twister/internal/persist"
	"github.com/criccomini/twister/internal/persist/badger"
	"github.com/criccomini/twister/internal/persist/mkv"
	"github.com/criccomini/twister/internal/persist/sqlite"
)

// ErrNotFound is returned by Get for unknown fingerprints.
var ErrNotFound = persist.ErrNotFound

// Store is safe for concurrent use.
type Store struct {
	saver persist.Saver

	mu     sync.Mutex
	parsed map[uint64]*avro.Schema
}

func newStore(s persist.Saver) *Store {
	return &Store{saver: s, parsed: make(map[uint64]*avro.Schema)}
}

// Open opens the store described by dsn, one of "badger:<dir>",
// "sqlite:<file>" or "kv:<file>".
func Open(dsn string) (*Store, error) {
	i := strings.IndexByte(dsn, ':')
	if i < 0 || i == len(dsn)-1 {
		return nil, errors.Errorf("schemastore: invalid store %q, want backend:path", dsn)
	}
	backend, path := dsn[:i], dsn[i+1:]

	var (
		s   persist.Saver
		err error
	)
	switch backend {
	case "badger":
		s, err = badger.New(path)
	case "sqlite":
		s, err = sqlite.New(path)
	case "kv":
		s, err = mkv.New(path)
	default:
		return nil, errors.Errorf("schemastore: unknown backend %q", backend)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "schemastore: failed to open %s", dsn)
	}
	return newStore(s), nil
}

func key(fp uint64) persist.Key {
	k := make(persist.Key, 8)
	binary.BigEndian.PutUint64(k, fp)
	return k
}

// Put stores s and returns its fingerprint. Storing an equal schema again
// is a no-op.
func (st *Store) Put(s *avro.Schema) (uint64, error) {
	if err := s.Validate(); err != nil {
		return 0, errors.Wrap(err, "schemastore: refusing invalid schema")
	}
	data, err := s.MarshalJSON()
	if err != nil {
		return 0, errors.Wrap(err, "schemastore: failed to render schema")
	}
	fp := s.Fingerprint()
	if err := st.saver.Put(key(fp), data); err != nil {
		return 0, errors.Wrapf(err, "schemastore: failed to store %016x", fp)
	}

	st.mu.Lock()
	delete(st.parsed, fp)
	st.mu.Unlock()
	return fp, nil
}

// Get returns the schema stored under fp.
func (st *Store) Get(fp uint64) (*avro.Schema, error) {
	st.mu.Lock()
	s, ok := st.parsed[fp]
	st.mu.Unlock()
	if ok {
		return s, nil
	}

	data, err := st.saver.Get(key(fp))
	if err != nil {
		return nil, errors.Wrapf(err, "schemastore: failed to load %016x", fp)
	}
	s, err = avro.ParseSchema(data)
	if err != nil {
		return nil, errors.Wrapf(err, "schemastore: stored schema %016x is corrupt", fp)
	}

	st.mu.Lock()
	st.parsed[fp] = s
	st.mu.Unlock()
	return s, nil
}

// Raw returns the stored JSON form of the schema under fp.
func (st *Store) Raw(fp uint64) ([]byte, error) {
	data, err := st.saver.Get(key(fp))
	return data, errors.Wrapf(err, "schemastore: failed to load %016x", fp)
}

// List returns all stored fingerprints in ascending order.
func (st *Store) List() ([]uint64, error) {
	keys, err := st.saver.List()
	if err != nil {
		return nil, errors.Wrap(err, "schemastore: failed to list")
	}
	fps := make([]uint64, 0, len(keys))
	for _, k := range keys {
		if len(k) != 8 {
			return nil, errors.Errorf("schemastore: unexpected key %x", []byte(k))
		}
		fps = append(fps, binary.BigEndian.Uint64(k))
	}
	return fps, nil
}

func (st *Store) Delete(fp uint64) error {
	st.mu.Lock()
	delete(st.parsed, fp)
	st.mu.Unlock()
	return errors.Wrapf(st.saver.Delete(key(fp)), "schemastore: failed to delete %016x", fp)
}

func (st *Store) Close() error {
	return st.saver.Close()
}
