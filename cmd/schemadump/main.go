// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

// schemadump prints every schema in a store with its fingerprint and
// canonical form.
package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"go.mindeco.de/logging"

	"github.com/criccomini/twister/schemastore"
)

var check = logging.CheckFatal

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <badger:dir|sqlite:file|kv:file>\n", os.Args[0])
		os.Exit(1)
	}
	logging.SetupLogging(nil)
	log := logging.Logger(os.Args[0])

	st, err := schemastore.Open(os.Args[1])
	check(errors.Wrap(err, "error opening store"))

	fps, err := st.List()
	check(err)

	for _, fp := range fps {
		raw, err := st.Raw(fp)
		check(err)

		s, err := st.Get(fp)
		if err != nil {
			log.Log("event", "unparsable schema", "fingerprint", fmt.Sprintf("%016x", fp), "err", err)
			continue
		}
		fmt.Printf("%016x %s: %d\n", fp, s.Name, len(raw))
		fmt.Println(s.CanonicalForm() + "\n")
	}
	log.Log("event", "done", "schemas", len(fps))

	check(st.Close())
}
