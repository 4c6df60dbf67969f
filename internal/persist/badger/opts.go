// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

//go:build !lite
// +build !lite

package badger

import (
	"github.com/dgraph-io/badger/v3"
)

// BadgerOpts returns the options New opens a database with. Badger's own
// logging is silenced; the stores report through returned errors.
func BadgerOpts(dbPath string) badger.Options {
	return badger.DefaultOptions(dbPath).WithLogger(nil)
}
