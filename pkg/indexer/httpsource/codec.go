package httpsource

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

const jsonCodecName = "json"

// jsonCodec lets the remote indexer's JSON query documents travel over a
// plain grpc.ClientConn without a compiled protobuf schema: every request
// and response type here is a plain Go struct with json tags, and grpc
// treats it as an opaque payload it marshals/unmarshals through this codec.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return jsonCodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
