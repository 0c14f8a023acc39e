package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/asakaida/rolegate/internal/entities"
	"github.com/asakaida/rolegate/internal/repositories"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// JSON encodes snapshots as a JSON document: {"roles":[...],"users":[...]}
type JSON struct{}

// Proto encodes snapshots as a protobuf google.protobuf.Struct message
type Proto struct{}

var (
	_ repositories.Codec = JSON{}
	_ repositories.Codec = Proto{}
)

// ByName returns the codec registered under name
func ByName(name string) (repositories.Codec, error) {
	switch name {
	case "", "json":
		return JSON{}, nil
	case "proto", "protobuf":
		return Proto{}, nil
	}
	return nil, fmt.Errorf("unknown snapshot codec %q", name)
}

func (JSON) Name() string { return "json" }

// Encode serialises s
func (JSON) Encode(s *entities.Snapshot) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("cannot encode nil snapshot")
	}
	shallow := *s
	data, err := json.Marshal(normalize(&shallow))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

// Decode parses data produced by Encode
func (JSON) Decode(data []byte) (*entities.Snapshot, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, fmt.Errorf("empty snapshot document")
	}
	var s entities.Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return normalize(&s), nil
}

func (Proto) Name() string { return "proto" }

// Encode serialises s through its JSON shape into a structpb.Struct
func (Proto) Encode(s *entities.Snapshot) ([]byte, error) {
	doc, err := JSON{}.Encode(s)
	if err != nil {
		return nil, err
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(doc, &fields); err != nil {
		return nil, fmt.Errorf("failed to build snapshot fields: %w", err)
	}
	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot message: %w", err)
	}
	data, err := proto.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot message: %w", err)
	}
	return data, nil
}

// Decode parses data produced by Encode
func (Proto) Decode(data []byte) (*entities.Snapshot, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty snapshot message")
	}
	var msg structpb.Struct
	if err := proto.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot message: %w", err)
	}
	if _, ok := msg.GetFields()["roles"]; !ok {
		return nil, fmt.Errorf("snapshot message has no roles field")
	}
	doc, err := json.Marshal(msg.AsMap())
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild snapshot document: %w", err)
	}
	return JSON{}.Decode(doc)
}

// normalize replaces nil collections with empty ones so both encodings agree
func normalize(s *entities.Snapshot) *entities.Snapshot {
	if s.Roles == nil {
		s.Roles = []*entities.Role{}
	}
	if s.Users == nil {
		s.Users = []*entities.User{}
	}
	return s
}
