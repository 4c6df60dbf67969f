// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

// Package mkv is the persist backend on modernc.org/kv, a single-file
// ordered key/value database.
package mkv

import (
	"os"

	"github.com/pkg/errors"
	"modernc.org/kv"

	"github.com/criccomini/twister/internal/persist"
)

type ModernSaver struct {
	db *kv.DB
}

var _ persist.Saver = (*ModernSaver)(nil)

func (sl ModernSaver) Close() error {
	return sl.db.Close()
}

// New opens the database file at path, creating it when missing.
func New(path string) (*ModernSaver, error) {
	opts := &kv.Options{}

	_, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		db, err := kv.Create(path, opts)
		if err != nil {
			return nil, errors.Wrapf(err, "persist/mkv: failed to create %s", path)
		}
		return &ModernSaver{db: db}, nil
	case err != nil:
		return nil, errors.Wrapf(err, "persist/mkv: failed to stat %s", path)
	}

	db, err := kv.Open(path, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "persist/mkv: failed to open %s", path)
	}
	return &ModernSaver{db: db}, nil
}
