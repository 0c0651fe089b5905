package handler

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodecName is the content-subtype clients select with
// grpc.CallContentSubtype. Messages are plain structs with json tags.
const jsonCodecName = "json"

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
