// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package badger

import (
	"bytes"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v3"
	"github.com/stretchr/testify/require"

	"github.com/criccomini/twister/internal/persist"
)

func TestSharedBadger(t *testing.T) {
	r := require.New(t)

	path := filepath.Join("testrun", t.Name())
	os.RemoveAll(path)
	os.MkdirAll(path, 0700)

	o := BadgerOpts(path)
	db, err := badger.Open(o)
	r.NoError(err)

	// each bucket uses keys as if it were alone
	collidingKey := persist.Key("meins")

	fooBucket, err := NewShared(db, []byte("foo"))
	r.NoError(err)

	barBucket, err := NewShared(db, []byte("bar"))
	r.NoError(err)

	fooData := make([]byte, 32)
	rand.Read(fooData)
	r.NoError(fooBucket.Put(collidingKey, fooData))

	barData := make([]byte, 32)
	rand.Read(barData)
	r.NoError(barBucket.Put(collidingKey, barData))

	fooKeys, err := fooBucket.List()
	r.NoError(err)
	r.Len(fooKeys, 1)
	r.Equal(collidingKey, fooKeys[0])

	barKeys, err := barBucket.List()
	r.NoError(err)
	r.Len(barKeys, 1)
	r.Equal(collidingKey, barKeys[0])

	fooGot, err := fooBucket.Get(collidingKey)
	r.NoError(err)
	r.Equal(fooData, fooGot)

	barGot, err := barBucket.Get(collidingKey)
	r.NoError(err)
	r.Equal(barData, barGot)

	// closing a shared saver is a noop
	r.NoError(fooBucket.Close())
	r.NoError(barBucket.Close())

	r.False(db.IsClosed())
	r.NoError(db.Close())

	db, err = badger.Open(o)
	r.NoError(err)
	defer db.Close()

	fooBucket, err = NewShared(db, []byte("foo"))
	r.NoError(err)

	fooKeys, err = fooBucket.List()
	r.NoError(err)
	r.Len(fooKeys, 1)
	r.Equal(collidingKey, fooKeys[0])

	var hasFoo, hasBar bool
	db.View(func(txn *badger.Txn) error {
		iter := txn.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			k := iter.Item().Key()

			if bytes.Equal(k, []byte("foomeins")) {
				hasFoo = true
			}
			if bytes.Equal(k, []byte("barmeins")) {
				hasBar = true
			}
		}
		return nil
	})

	r.True(hasFoo, "foo not found")
	r.True(hasBar, "bar not found")

	_, err = NewShared(db, nil)
	r.Error(err)
}
