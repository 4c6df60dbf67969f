// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package main

import (
	stdjson "encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/pkg/errors"

	"github.com/criccomini/twister"
	"github.com/criccomini/twister/avro"
	"github.com/criccomini/twister/framing/basic"
	"github.com/criccomini/twister/framing/singleobject"
	"github.com/criccomini/twister/proto"
	"github.com/criccomini/twister/schemastore"
	"github.com/criccomini/twister/translate"
	"github.com/criccomini/twister/value"
)

type logger interface {
	Log(keyvals ...interface{}) error
}

// env carries what every command needs.
type env struct {
	cfg     Config
	schema  string
	message string

	in  io.Reader
	out io.Writer
	log logger
}

func (e *env) precision() avro.TimePrecision {
	if e.cfg.TimePrecision == "micros" {
		return avro.Micros
	}
	return avro.Millis
}

func (e *env) inferrer() *avro.Inferrer {
	return avro.NewInferrer(avro.MapAsRecord(e.cfg.MapAsRecord), avro.WithTimePrecision(e.precision()))
}

func (e *env) avroCodec() *avro.Codec {
	return avro.New(avro.WithMaxDepth(e.cfg.MaxDepth), avro.WithInferrer(e.inferrer()))
}

func (e *env) protoCodec() *proto.Codec {
	return proto.New(proto.WithMaxDepth(e.cfg.MaxDepth), proto.DiscardUnknown(e.cfg.DiscardUnknown))
}

func (e *env) openStore() (*schemastore.Store, error) {
	if e.cfg.Store == "" {
		return nil, errors.New("no schema store configured, use --store")
	}
	return schemastore.Open(e.cfg.Store)
}

func (e *env) println(data []byte) error {
	if _, err := e.out.Write(append(data, '\n')); err != nil {
		return errors.Wrap(err, "failed to write output")
	}
	return nil
}

// firstDocument reads one document from the input.
func (e *env) firstDocument() (value.Value, error) {
	dc, err := documentCodec(e.cfg.InputFormat)
	if err != nil {
		return nil, err
	}
	v, err := dc.NewDecoder(e.in).Decode()
	if err == io.EOF {
		return nil, errors.New("no input document")
	}
	return v, err
}

func (e *env) infer(args []string) error {
	if len(args) > 0 {
		return errors.Errorf("infer: unexpected argument %q", args[0])
	}
	v, err := e.firstDocument()
	if err != nil {
		return errors.Wrap(err, "infer")
	}

	if e.cfg.Format == "proto" {
		m, err := proto.Infer(v, e.cfg.RecordName)
		if err != nil {
			return errors.Wrap(err, "infer")
		}
		data, err := renderMessage(m, e.cfg.RecordName+".proto")
		if err != nil {
			return err
		}
		return e.println(data)
	}

	s, err := e.inferrer().Infer(v, e.cfg.RecordName)
	if err != nil {
		return errors.Wrap(err, "infer")
	}
	data, err := s.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "infer: failed to render schema")
	}
	if e.cfg.Store != "" {
		if err := e.storeSchema(s); err != nil {
			return err
		}
	}
	return e.println(data)
}

func (e *env) storeSchema(s *avro.Schema) error {
	st, err := e.openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	fp, err := st.Put(s)
	if err != nil {
		return err
	}
	e.log.Log("event", "schema stored", "name", s.Name, "fingerprint", fmt.Sprintf("%016x", fp))
	return nil
}

// binaryCodec returns the codec encode writes with. Without --schema the
// schema is inferred from sample.
func (e *env) binaryCodec(sample value.Value) (twister.Codec, error) {
	if e.cfg.Format == "proto" {
		var (
			m   *proto.Message
			err error
		)
		if e.schema != "" {
			m, err = loadMessage(e.schema, e.message)
		} else {
			m, err = proto.Infer(sample, e.cfg.RecordName)
			if err == nil {
				e.log.Log("event", "descriptor inferred", "message", m.Name)
			}
		}
		if err != nil {
			return nil, err
		}
		return e.protoCodec().Bind(m), nil
	}

	c := e.avroCodec()
	var (
		s   *avro.Schema
		err error
	)
	if e.schema != "" {
		s, err = loadAvroSchema(e.schema)
	} else {
		s, err = e.inferrer().Infer(sample, e.cfg.RecordName)
		if err == nil {
			e.log.Log("event", "schema inferred", "name", s.Name, "fingerprint", fmt.Sprintf("%016x", s.Fingerprint()))
		}
	}
	if err != nil {
		return nil, err
	}
	if e.cfg.Store != "" {
		if err := e.storeSchema(s); err != nil {
			return nil, err
		}
	}
	if e.cfg.Framing == "single" {
		return twister.Framed(c.Bind(s), singleobject.ForSchema(s)), nil
	}
	return c.Bind(s), nil
}

// encode reads documents and writes each one as a length-prefixed binary
// record.
func (e *env) encode(args []string) error {
	if len(args) > 0 {
		return errors.Errorf("encode: unexpected argument %q", args[0])
	}
	dc, err := documentCodec(e.cfg.InputFormat)
	if err != nil {
		return err
	}
	dec := dc.NewDecoder(e.in)
	frames := basic.New(basic.DefaultMaxFrameSize)

	var (
		bin twister.Codec
		n   int
	)
	for {
		v, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrapf(err, "encode: document %d", n)
		}
		if bin == nil {
			if bin, err = e.binaryCodec(v); err != nil {
				return errors.Wrap(err, "encode")
			}
		}
		data, err := bin.Marshal(v)
		if err != nil {
			return errors.Wrapf(err, "encode: document %d", n)
		}
		frame, err := frames.EncodeFrame(data)
		if err != nil {
			return errors.Wrapf(err, "encode: document %d", n)
		}
		if _, err := e.out.Write(frame); err != nil {
			return errors.Wrap(err, "encode: failed to write output")
		}
		n++
	}
	e.log.Log("event", "encoded", "records", n)
	return nil
}

// fixedResolver only knows one schema.
type fixedResolver struct {
	s *avro.Schema
}

func (r fixedResolver) Get(fp uint64) (*avro.Schema, error) {
	if r.s.Fingerprint() != fp {
		return nil, schemastore.ErrNotFound
	}
	return r.s, nil
}

type decodeFunc func([]byte) (value.Value, error)

func (e *env) binaryDecoder() (decodeFunc, func() error, error) {
	noop := func() error { return nil }

	if e.cfg.Format == "proto" {
		if e.schema == "" {
			return nil, nil, errors.New("decoding protobuf needs --schema")
		}
		m, err := loadMessage(e.schema, e.message)
		if err != nil {
			return nil, nil, err
		}
		return e.protoCodec().Bind(m).Unmarshal, noop, nil
	}

	c := e.avroCodec()
	if e.cfg.Framing != "single" {
		if e.schema == "" {
			return nil, nil, errors.New("decoding avro needs --schema or single-object framing")
		}
		s, err := loadAvroSchema(e.schema)
		if err != nil {
			return nil, nil, err
		}
		return c.Bind(s).Unmarshal, noop, nil
	}

	var (
		res     singleobject.Resolver
		closeFn = noop
	)
	switch {
	case e.schema != "":
		s, err := loadAvroSchema(e.schema)
		if err != nil {
			return nil, nil, err
		}
		res = fixedResolver{s: s}
	default:
		st, err := e.openStore()
		if err != nil {
			return nil, nil, err
		}
		res, closeFn = st, st.Close
	}
	return func(frame []byte) (value.Value, error) {
		v, _, err := singleobject.Decode(c, res, frame)
		return v, err
	}, closeFn, nil
}

// decode reads length-prefixed binary records and writes one document per
// record.
func (e *env) decode(args []string) error {
	if len(args) > 0 {
		return errors.Errorf("decode: unexpected argument %q", args[0])
	}
	dc, err := documentCodec(e.cfg.OutputFormat)
	if err != nil {
		return err
	}
	dec, closeFn, err := e.binaryDecoder()
	if err != nil {
		return errors.Wrap(err, "decode")
	}
	defer closeFn()

	buf, err := io.ReadAll(e.in)
	if err != nil {
		return errors.Wrap(err, "decode: failed to read input")
	}
	frames := basic.New(basic.DefaultMaxFrameSize)
	enc := dc.NewEncoder(e.out)
	var n int
	for len(buf) > 0 {
		data, rest, err := frames.Next(buf)
		if err != nil {
			return errors.Wrapf(err, "decode: record %d", n)
		}
		v, err := dec(data)
		if err != nil {
			return errors.Wrapf(err, "decode: record %d", n)
		}
		if err := enc.Encode(v); err != nil {
			return errors.Wrapf(err, "decode: record %d", n)
		}
		buf = rest
		n++
	}
	e.log.Log("event", "decoded", "records", n)
	return nil
}

// translate converts a protobuf descriptor into an avro schema or a JSON
// Schema document.
func (e *env) translate(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: translate avro|jsonschema")
	}
	if e.schema == "" {
		return errors.New("translate needs --schema with a protobuf descriptor")
	}
	m, err := loadMessage(e.schema, e.message)
	if err != nil {
		return errors.Wrap(err, "translate")
	}

	var data []byte
	switch args[0] {
	case "avro":
		s, err := translate.ToAvro(m)
		if err != nil {
			return err
		}
		data, err = s.MarshalJSON()
		if err != nil {
			return errors.Wrap(err, "translate: failed to render schema")
		}
	case "jsonschema":
		data, err = stdjson.MarshalIndent(translate.ToJSONSchema(m), "", "  ")
		if err != nil {
			return errors.Wrap(err, "translate: failed to render schema")
		}
	default:
		return errors.Errorf("translate: unknown target %q", args[0])
	}
	return e.println(data)
}

func parseFingerprint(s string) (uint64, error) {
	fp, err := strconv.ParseUint(s, 16, 64)
	return fp, errors.Wrapf(err, "invalid fingerprint %q", s)
}

func (e *env) schemaCmd(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: schema put <file> | get <fingerprint> | delete <fingerprint> | list")
	}
	st, err := e.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	switch sub, rest := args[0], args[1:]; {
	case sub == "put" && len(rest) == 1:
		s, err := loadAvroSchema(rest[0])
		if err != nil {
			return err
		}
		fp, err := st.Put(s)
		if err != nil {
			return err
		}
		return e.println([]byte(fmt.Sprintf("%016x", fp)))
	case sub == "get" && len(rest) == 1:
		fp, err := parseFingerprint(rest[0])
		if err != nil {
			return err
		}
		data, err := st.Raw(fp)
		if err != nil {
			return err
		}
		return e.println(data)
	case sub == "delete" && len(rest) == 1:
		fp, err := parseFingerprint(rest[0])
		if err != nil {
			return err
		}
		return st.Delete(fp)
	case sub == "list" && len(rest) == 0:
		fps, err := st.List()
		if err != nil {
			return err
		}
		for _, fp := range fps {
			if err := e.println([]byte(fmt.Sprintf("%016x", fp))); err != nil {
				return err
			}
		}
		return nil
	}
	return errors.Errorf("schema: unknown subcommand %q", args)
}
