// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package main

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protojson"
	gproto "google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/criccomini/twister/avro"
	"github.com/criccomini/twister/codec"
	"github.com/criccomini/twister/codec/cbor"
	"github.com/criccomini/twister/codec/json"
	"github.com/criccomini/twister/codec/msgpack"
	"github.com/criccomini/twister/proto"
)

func documentCodec(name string) (codec.Codec, error) {
	switch name {
	case "json":
		return json.New(), nil
	case "msgpack":
		return msgpack.New(), nil
	case "cbor":
		return cbor.New(), nil
	}
	return nil, errors.Errorf("unknown document format %q", name)
}

func loadAvroSchema(path string) (*avro.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read avro schema")
	}
	s, err := avro.ParseSchema(data)
	return s, errors.Wrapf(err, "failed to parse avro schema %s", path)
}

// loadMessage reads a FileDescriptorProto, in protojson or binary form,
// and returns the message called name. An empty name selects the first
// message of the file.
func loadMessage(path, name string) (*proto.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read descriptor")
	}

	var fdp descriptorpb.FileDescriptorProto
	if jerr := protojson.Unmarshal(data, &fdp); jerr != nil {
		fdp.Reset()
		if berr := gproto.Unmarshal(data, &fdp); berr != nil {
			return nil, errors.Wrapf(jerr, "descriptor %s is neither protojson nor binary", path)
		}
	}

	fd, err := protodesc.NewFile(&fdp, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid descriptor %s", path)
	}
	msgs := fd.Messages()
	if msgs.Len() == 0 {
		return nil, errors.Errorf("descriptor %s declares no messages", path)
	}
	if name == "" {
		return proto.FromDescriptor(msgs.Get(0)), nil
	}
	for _, n := range []string{name, strings.ReplaceAll(name, ".", "_")} {
		if md := msgs.ByName(protoreflect.Name(n)); md != nil {
			return proto.FromDescriptor(md), nil
		}
	}
	return nil, errors.Errorf("descriptor %s has no message %q", path, name)
}

func renderMessage(m *proto.Message, fileName string) ([]byte, error) {
	out, err := protojson.MarshalOptions{Multiline: true}.Marshal(proto.ToDescriptorProto(m, fileName))
	return out, errors.Wrap(err, "failed to render descriptor")
}
