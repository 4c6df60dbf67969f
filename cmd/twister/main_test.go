// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/criccomini/twister/avro"
)

type nopLogger struct{}

func (nopLogger) Log(...interface{}) error { return nil }

func runCmd(t *testing.T, stdin []byte, args ...string) []byte {
	t.Helper()
	var out, stderr bytes.Buffer
	err := run(args, bytes.NewReader(stdin), &out, &stderr, nopLogger{})
	require.NoError(t, err, "twister %s: %s", strings.Join(args, " "), stderr.String())
	return out.Bytes()
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

const people = `{"id": 7, "name": "ada", "tags": ["x", "y"]}
{"id": 8, "name": "bob", "tags": []}
`

func lines(b []byte) []string {
	return strings.Split(strings.TrimSpace(string(b)), "\n")
}

func TestConfigFile(t *testing.T) {
	r := require.New(t)

	path := writeFile(t, "twister.yaml", []byte(`
format: proto
input_format: msgpack
record_name: person
max_depth: 12
discard_unknown: true
store: sqlite:/tmp/schemas.db
`))
	cfg, err := loadConfig(path)
	r.NoError(err)
	r.Equal("proto", cfg.Format)
	r.Equal("msgpack", cfg.InputFormat)
	r.Equal("json", cfg.OutputFormat)
	r.Equal("person", cfg.RecordName)
	r.Equal(12, cfg.MaxDepth)
	r.True(cfg.DiscardUnknown)
	r.True(cfg.MapAsRecord)
	r.Equal("basic", cfg.Framing)
	r.Equal("sqlite:/tmp/schemas.db", cfg.Store)

	r.Equal(path, configPath([]string{"-f", "avro", "--config", path, "infer"}))
	r.Equal("", configPath([]string{"infer"}))
}

func TestConfigErrors(t *testing.T) {
	for _, data := range []string{
		"format: thrift\n",
		"input_format: xml\n",
		"time_precision: nanos\n",
		"framing: single\nformat: proto\n",
		"format: [\n",
	} {
		_, err := loadConfig(writeFile(t, "bad.yaml", []byte(data)))
		assert.Error(t, err, data)
	}

	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFlagsOverrideConfig(t *testing.T) {
	path := writeFile(t, "twister.yaml", []byte("format: avro\nrecord_name: fromfile\n"))

	out := runCmd(t, []byte(people), "--config", path, "--record-name", "person", "infer")
	s, err := avro.ParseSchema(out)
	require.NoError(t, err)
	assert.Equal(t, "person", s.Name)
}

func TestInferAvro(t *testing.T) {
	r := require.New(t)

	s, err := avro.ParseSchema(runCmd(t, []byte(people), "infer"))
	r.NoError(err)
	r.Equal(avro.Record, s.Type)
	r.Equal("root", s.Name)
	id, ok := s.Field("id")
	r.True(ok)
	// inferred fields are nullable
	r.Equal(avro.Union, id.Schema.Type)
	r.Equal(avro.Null, id.Schema.Branches[0].Type)
	r.Equal(avro.Int, id.Schema.Branches[1].Type)
	tags, ok := s.Field("tags")
	r.True(ok)
	r.Equal(avro.Union, tags.Schema.Type)
	r.Equal(avro.Array, tags.Schema.Branches[1].Type)
}

func TestInferProto(t *testing.T) {
	r := require.New(t)

	out := runCmd(t, []byte(people), "-f", "proto", "-n", "person", "infer")
	m, err := loadMessage(writeFile(t, "person.json", out), "")
	r.NoError(err)
	r.Equal("person", m.Name)
	f, ok := m.FieldByName("tags")
	r.True(ok)
	r.True(f.Repeated)
}

// packed has no empty fields, which protobuf would drop.
const packed = `{"id": 1, "name": "ada", "tags": ["x"]}
{"id": -2, "name": "bob", "tags": ["y", "z"]}
`

func roundTrip(t *testing.T, input string, args ...string) {
	t.Helper()
	bin := runCmd(t, []byte(input), append(args, "encode")...)
	require.NotEmpty(t, bin)
	docs := lines(runCmd(t, bin, append(args, "decode")...))
	want := lines([]byte(input))
	require.Len(t, docs, len(want))
	for i := range want {
		assert.JSONEq(t, want[i], docs[i])
	}
}

func TestAvroRoundTrip(t *testing.T) {
	schema := writeFile(t, "person.avsc", runCmd(t, []byte(people), "infer"))
	roundTrip(t, people, "--schema", schema)
	roundTrip(t, people, "--schema", schema, "--framing", "single")
}

func TestProtoRoundTrip(t *testing.T) {
	desc := writeFile(t, "person.json", runCmd(t, []byte(people), "-f", "proto", "-n", "person", "infer"))
	roundTrip(t, packed, "-f", "proto", "--schema", desc, "--message", "person")
}

func TestSingleObjectWithStore(t *testing.T) {
	store := "sqlite:" + filepath.Join(t.TempDir(), "schemas.db")
	// encode infers the schema and stores it, decode finds it by fingerprint
	roundTrip(t, people, "--store", store, "--framing", "single")

	fps := lines(runCmd(t, nil, "--store", store, "schema", "list"))
	require.Len(t, fps, 1)
	s, err := avro.ParseSchema(runCmd(t, nil, "--store", store, "schema", "get", fps[0]))
	require.NoError(t, err)
	assert.Equal(t, "root", s.Name)
}

func TestSchemaCommands(t *testing.T) {
	r := require.New(t)
	store := "badger:" + t.TempDir()

	schema := writeFile(t, "p.avsc", []byte(`{"type":"record","name":"p","fields":[{"name":"a","type":"int"}]}`))
	fp := strings.TrimSpace(string(runCmd(t, nil, "--store", store, "schema", "put", schema)))
	r.Len(fp, 16)

	r.Equal([]string{fp}, lines(runCmd(t, nil, "--store", store, "schema", "list")))

	s, err := avro.ParseSchema(runCmd(t, nil, "--store", store, "schema", "get", fp))
	r.NoError(err)
	r.Equal("p", s.Name)

	runCmd(t, nil, "--store", store, "schema", "delete", fp)
	r.Empty(strings.TrimSpace(string(runCmd(t, nil, "--store", store, "schema", "list"))))

	var out, stderr bytes.Buffer
	err = run([]string{"--store", store, "schema", "get", fp}, nil, &out, &stderr, nopLogger{})
	r.Error(err)
}

func TestTranslate(t *testing.T) {
	r := require.New(t)
	desc := writeFile(t, "person.json", runCmd(t, []byte(people), "-f", "proto", "-n", "person", "infer"))

	s, err := avro.ParseSchema(runCmd(t, nil, "--schema", desc, "translate", "avro"))
	r.NoError(err)
	r.Equal("person", s.Name)

	js := string(runCmd(t, nil, "--schema", desc, "translate", "jsonschema"))
	r.Contains(js, `"properties"`)
	r.Contains(js, `"tags"`)
}

func TestCommandErrors(t *testing.T) {
	for _, args := range [][]string{
		{},
		{"bogus"},
		{"--format", "thrift", "infer"},
		{"decode"},
		{"-f", "proto", "decode"},
		{"schema", "list"},
		{"translate", "avro"},
		{"infer", "extra"},
	} {
		var out, stderr bytes.Buffer
		err := run(args, bytes.NewReader([]byte(people)), &out, &stderr, nopLogger{})
		assert.Error(t, err, "args: %v", args)
	}

	var out, stderr bytes.Buffer
	require.NoError(t, run([]string{"--help"}, nil, &out, &stderr, nopLogger{}))
	assert.Contains(t, stderr.String(), "Commands:")
}
