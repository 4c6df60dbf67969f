// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config is read from the --config file. Flags given on the command line
// override it.
type Config struct {
	// Format is the binary format, "avro" or "proto".
	Format string `yaml:"format"`

	// InputFormat and OutputFormat name the document codec on the
	// document side: "json", "msgpack" or "cbor".
	InputFormat  string `yaml:"input_format"`
	OutputFormat string `yaml:"output_format"`

	// RecordName names the root record or message when inferring.
	RecordName string `yaml:"record_name"`

	MapAsRecord   bool   `yaml:"map_as_record"`
	TimePrecision string `yaml:"time_precision"`

	MaxDepth       int  `yaml:"max_depth"`
	DiscardUnknown bool `yaml:"discard_unknown"`

	// Framing separates records on the binary side: "basic" or "single".
	Framing string `yaml:"framing"`

	// Store is "badger:<dir>", "sqlite:<file>" or "kv:<file>".
	Store string `yaml:"store"`
}

func defaultConfig() Config {
	return Config{
		Format:        "avro",
		InputFormat:   "json",
		OutputFormat:  "json",
		RecordName:    "root",
		MapAsRecord:   true,
		TimePrecision: "millis",
		Framing:       "basic",
	}
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "config: failed to read")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "config: failed to parse %s", path)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Format {
	case "avro", "proto":
	default:
		return errors.Errorf("config: unknown format %q", c.Format)
	}
	for _, f := range []string{c.InputFormat, c.OutputFormat} {
		switch f {
		case "json", "msgpack", "cbor":
		default:
			return errors.Errorf("config: unknown document format %q", f)
		}
	}
	switch c.TimePrecision {
	case "millis", "micros":
	default:
		return errors.Errorf("config: unknown time precision %q", c.TimePrecision)
	}
	switch c.Framing {
	case "basic", "single":
	default:
		return errors.Errorf("config: unknown framing %q", c.Framing)
	}
	if c.Framing == "single" && c.Format != "avro" {
		return errors.New("config: single-object framing needs the avro format")
	}
	return nil
}

func addConfigFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVarP(&cfg.Format, "format", "f", cfg.Format, "binary format: avro or proto")
	fs.StringVar(&cfg.InputFormat, "input-format", cfg.InputFormat, "document format read by encode and infer: json, msgpack or cbor")
	fs.StringVar(&cfg.OutputFormat, "output-format", cfg.OutputFormat, "document format written by decode: json, msgpack or cbor")
	fs.StringVarP(&cfg.RecordName, "record-name", "n", cfg.RecordName, "name of the inferred root record or message")
	fs.BoolVar(&cfg.MapAsRecord, "map-as-record", cfg.MapAsRecord, "infer maps as records instead of avro maps")
	fs.StringVar(&cfg.TimePrecision, "time-precision", cfg.TimePrecision, "timestamp precision for inferred schemas: millis or micros")
	fs.IntVar(&cfg.MaxDepth, "max-depth", cfg.MaxDepth, "nesting limit for encode and decode (0 keeps the default)")
	fs.BoolVar(&cfg.DiscardUnknown, "discard-unknown", cfg.DiscardUnknown, "skip unknown protobuf fields instead of failing")
	fs.StringVar(&cfg.Framing, "framing", cfg.Framing, "record framing on the binary side: basic or single")
	fs.StringVar(&cfg.Store, "store", cfg.Store, "schema store: badger:<dir>, sqlite:<file> or kv:<file>")
}

// configPath finds --config before the other flags are parsed, so the
// file provides the defaults those flags override.
func configPath(args []string) string {
	fs := pflag.NewFlagSet("config", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.Usage = func() {}
	path := fs.String("config", "", "")
	fs.BoolP("help", "h", false, "")
	_ = fs.Parse(args)
	return *path
}
