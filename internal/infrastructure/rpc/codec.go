package rpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodec is a google.golang.org/grpc/encoding.Codec that frames RPC
// messages as JSON instead of protobuf binary. The service is hand-written
// against plain Go structs (no protoc toolchain is invoked by this build),
// so the wire format this codec produces is JSON-over-HTTP/2 rather than
// canonical gRPC protobuf; api/inventorypb/inventory.proto documents the
// equivalent protobuf shape for a future migration.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return "json"
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
