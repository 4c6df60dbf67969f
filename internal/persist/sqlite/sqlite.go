// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package sqlite

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/criccomini/twister/internal/persist"
)

const schema = `CREATE TABLE IF NOT EXISTS persisted (
	key TEXT PRIMARY KEY,
	data BLOB NOT NULL
)`

type SqliteSaver struct {
	db *sql.DB
}

var _ persist.Saver = (*SqliteSaver)(nil)

// New opens or creates the database file at path.
func New(path string) (*SqliteSaver, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "persist/sqlite: failed to open %s", path)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "persist/sqlite: failed to create table")
	}
	return &SqliteSaver{db: db}, nil
}

func (s SqliteSaver) Close() error {
	return s.db.Close()
}
