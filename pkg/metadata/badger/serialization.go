package badger

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/pkoutsias/stashfs/pkg/metadata"
)

// Serialization Strategy
// ======================
//
// BadgerDB stores raw bytes, so records are serialized before storage. Two
// encodings are used:
//
// 1. JSON (entity records)
//    - Users, user classes, folders, file headers, groups, nonces
//    - Human-readable, tolerant of schema evolution, easy to debug
//    - Size and speed are a non-issue at metadata scale
//
// 2. Raw UUID bytes (index values)
//    - Name and value indexes store the 16-byte binary UUID they point to
//    - Compact, no parsing beyond uuid.FromBytes

func encodeJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return data, nil
}

func decodeJSON(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}
	return nil
}

func encodeID(id uuid.UUID) []byte {
	return id[:]
}

func decodeID(data []byte) (uuid.UUID, error) {
	id, err := uuid.FromBytes(data)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to decode index value: %w", err)
	}
	return id, nil
}

// ioFailure wraps a backend error in the store's error taxonomy so callers
// can distinguish infrastructure failures from business-rule rejections.
func ioFailure(op string, err error) error {
	return &metadata.StoreError{
		Code:    metadata.ErrIOFailure,
		Message: fmt.Sprintf("%s: %v", op, err),
	}
}
