// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

// Package persist defines a minimal key/value store with interchangeable
// on-disk backends.
package persist

import (
	"io"

	"github.com/pkg/errors"
)

type Key []byte

var ErrNotFound = errors.New("persist: item not found")

type Saver interface {
	io.Closer

	Put(Key, []byte) error
	Get(Key) ([]byte, error)
	Delete(Key) error

	// List returns all keys in ascending byte order.
	List() ([]Key, error)
}
