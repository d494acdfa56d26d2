package server

import (
	"encoding/json"
	"fmt"
)

// jsonCodec lets connect carry plain Go structs. It replaces connect's
// protojson codec, which only accepts generated protobuf messages.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("failed to decode message: %w", err)
	}
	return nil
}
