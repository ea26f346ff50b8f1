package service

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// jsonCodec encodes messages with encoding/json. Messages are plain Go structs,
// so it replaces connect's protobuf JSON codec under the same name.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	return json.Unmarshal(data, msg)
}

// WithJSONCodec is the option handlers and clients must share.
func WithJSONCodec() connect.Option {
	return connect.WithCodec(jsonCodec{})
}
