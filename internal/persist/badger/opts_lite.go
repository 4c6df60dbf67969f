// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

//go:build lite
// +build lite

package badger

import (
	"github.com/dgraph-io/badger/v3"
)

// BadgerOpts sizes badger for a store of a few thousand small schemas:
// one small memtable, values kept inline in the LSM tree and no
// background compaction beyond the minimum.
func BadgerOpts(dbPath string) badger.Options {
	return badger.DefaultOptions(dbPath).
		WithMemTableSize(4 << 20).
		WithNumMemtables(1).
		WithValueThreshold(1 << 20).
		WithValueLogFileSize(16 << 20).
		WithNumLevelZeroTables(1).
		WithNumLevelZeroTablesStall(2).
		WithNumCompactors(2).
		WithBlockCacheSize(0).
		WithIndexCacheSize(0).
		WithLogger(nil)
}
