// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package badger

import (
	"github.com/dgraph-io/badger/v3"
	"github.com/pkg/errors"

	"github.com/criccomini/twister/internal/persist"
)

// Saver stores keys under a prefix of a badger database.
type Saver struct {
	db     *badger.DB
	prefix []byte
	shared bool
}

var _ persist.Saver = (*Saver)(nil)

// New opens the database at path and owns it.
func New(path string) (*Saver, error) {
	db, err := badger.Open(BadgerOpts(path))
	if err != nil {
		return nil, errors.Wrapf(err, "persist/badger: failed to open %s", path)
	}
	return &Saver{db: db}, nil
}

// NewShared returns a Saver that keeps its keys under prefix in db. Close
// leaves db open.
func NewShared(db *badger.DB, prefix []byte) (*Saver, error) {
	if len(prefix) == 0 {
		return nil, errors.New("persist/badger: shared saver needs a prefix")
	}
	return &Saver{db: db, prefix: append([]byte(nil), prefix...), shared: true}, nil
}

func (s *Saver) Close() error {
	if s.shared {
		return nil
	}
	return s.db.Close()
}

func (s *Saver) key(k persist.Key) []byte {
	out := make([]byte, 0, len(s.prefix)+len(k))
	out = append(out, s.prefix...)
	return append(out, k...)
}
