package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec serializes output frames for the wire.
type Codec interface {
	// Name is the value clients pass in ?encoding=.
	Name() string

	// Binary reports whether frames must be sent as binary websocket messages.
	Binary() bool

	Encode(f OutputFrame) ([]byte, error)
	Decode(data []byte) (OutputFrame, error)
}

// Encoding names.
const (
	EncodingJSON    = "json"
	EncodingMsgpack = "msgpack"
)

// CodecFor returns the codec registered under name. An empty name selects JSON.
func CodecFor(name string) (Codec, error) {
	switch name {
	case "", EncodingJSON:
		return JSONCodec{}, nil
	case EncodingMsgpack:
		return MsgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
}

// JSONCodec is the default text encoding.
type JSONCodec struct{}

// Name returns "json".
func (JSONCodec) Name() string { return EncodingJSON }

// Binary returns false.
func (JSONCodec) Binary() bool { return false }

// Encode marshals the frame as JSON.
func (JSONCodec) Encode(f OutputFrame) ([]byte, error) {
	return json.Marshal(f)
}

// Decode parses a JSON frame, rejecting missing keys.
func (JSONCodec) Decode(data []byte) (OutputFrame, error) {
	var w frameWire
	if err := json.Unmarshal(data, &w); err != nil {
		return OutputFrame{}, &DecodeError{Kind: "frame", Err: err}
	}
	f, err := w.frame()
	if err != nil {
		return OutputFrame{}, &DecodeError{Kind: "frame", Err: err}
	}
	return f, nil
}

// MsgpackCodec encodes frames as MessagePack maps with the same keys as JSON.
type MsgpackCodec struct{}

// Name returns "msgpack".
func (MsgpackCodec) Name() string { return EncodingMsgpack }

// Binary returns true.
func (MsgpackCodec) Binary() bool { return true }

// Encode marshals the frame as MessagePack.
func (MsgpackCodec) Encode(f OutputFrame) ([]byte, error) {
	return msgpack.Marshal(f)
}

// Decode parses a MessagePack frame, rejecting missing keys.
func (MsgpackCodec) Decode(data []byte) (OutputFrame, error) {
	var w frameWire
	if err := msgpack.Unmarshal(data, &w); err != nil {
		return OutputFrame{}, &DecodeError{Kind: "frame", Err: err}
	}
	f, err := w.frame()
	if err != nil {
		return OutputFrame{}, &DecodeError{Kind: "frame", Err: err}
	}
	return f, nil
}
