// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

// twister infers schemas from documents and converts documents to and
// from Avro and protobuf binary records.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"go.mindeco.de/logging"
)

var check = logging.CheckFatal

func main() {
	logging.SetupLogging(nil)
	log := logging.Logger("twister")

	check(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr, log))
}

func run(args []string, in io.Reader, out, stderr io.Writer, log logger) error {
	cfgPath := configPath(args)
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	e := &env{in: in, out: out, log: log}

	flagSet := pflag.NewFlagSet("twister", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.String("config", cfgPath, "yaml config file, flags override its values")
	flagSet.StringVarP(&e.schema, "schema", "s", "", "avro schema file or protobuf descriptor (protojson or binary)")
	flagSet.StringVarP(&e.message, "message", "m", "", "message name inside the descriptor (default: the first one)")
	flagSet.BoolP("help", "h", false, "show help")
	addConfigFlags(flagSet, &cfg)

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printHelp(stderr, flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(stderr, flagSet)
		return nil
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	e.cfg = cfg

	rest := flagSet.Args()
	if len(rest) == 0 {
		printHelp(stderr, flagSet)
		return errors.New("no command given")
	}

	switch cmd, cmdArgs := rest[0], rest[1:]; cmd {
	case "infer":
		return e.infer(cmdArgs)
	case "encode":
		return e.encode(cmdArgs)
	case "decode":
		return e.decode(cmdArgs)
	case "translate":
		return e.translate(cmdArgs)
	case "schema":
		return e.schemaCmd(cmdArgs)
	default:
		return errors.Errorf("unknown command %q", cmd)
	}
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprint(w, `twister converts documents to schema-driven binary records.

Usage:
  twister [flags] <command> [args]

Commands:
  infer                      print the schema inferred from the first input document
  encode                     read documents, write length-prefixed binary records
  decode                     read length-prefixed binary records, write documents
  translate avro|jsonschema  convert a protobuf descriptor (--schema)
  schema put <file>          store an avro schema and print its fingerprint
  schema get <fingerprint>   print a stored schema
  schema delete <fingerprint>
  schema list                list stored fingerprints

Flags:
`)
	flagSet.PrintDefaults()
}
