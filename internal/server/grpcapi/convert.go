package grpcapi

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// StructFromJSON parses a JSON object into a Struct.
func StructFromJSON(raw []byte) (*structpb.Struct, error) {
	out := &structpb.Struct{}
	if err := (protojson.UnmarshalOptions{DiscardUnknown: true}).Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("decode struct: %w", err)
	}
	return out, nil
}

// DecodeStruct unmarshals a Struct into a Go value through its JSON form.
func DecodeStruct(s *structpb.Struct, out any) error {
	if s == nil {
		return fmt.Errorf("decode struct: nil message")
	}
	raw, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode struct: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode struct: %w", err)
	}
	return nil
}
