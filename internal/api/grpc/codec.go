package grpc

import "encoding/json"

// JSONCodec lets Connect carry plain Go structs. Connect's built-in JSON
// codec requires protobuf messages; registering this one under the same
// name replaces it for both handlers and clients.
type JSONCodec struct{}

// Name implements connect.Codec.
func (JSONCodec) Name() string { return "json" }

// Marshal implements connect.Codec.
func (JSONCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal implements connect.Codec.
func (JSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
