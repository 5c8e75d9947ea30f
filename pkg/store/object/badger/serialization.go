package badger

import (
	"encoding/json"
	"fmt"

	"github.com/marmos91/dittoiod/pkg/store/object"
)

// Serialization Strategy
// ======================
//
// Object records and side payloads are JSON encoded: they are small, rarely
// written, and easy to inspect with badger's CLI tools. KV entry values are
// stored as raw bytes since their encoding belongs to the caller.

// objectRecord is the persisted form of an object's creation.
type objectRecord struct {
	// Type is the object layout
	Type object.ObjectType `json:"type"`

	// Created is the transaction that created the object
	Created object.TransID `json:"created"`
}

// scratchRecord is the persisted form of a side payload version.
type scratchRecord struct {
	Data     []byte          `json:"data"`
	Checksum object.Checksum `json:"checksum"`
}

// encodeObjectRecord serializes an objectRecord to JSON bytes.
func encodeObjectRecord(rec *objectRecord) ([]byte, error) {
	bytes, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode object record: %w", err)
	}
	return bytes, nil
}

// decodeObjectRecord deserializes an objectRecord from JSON bytes.
func decodeObjectRecord(bytes []byte) (*objectRecord, error) {
	var rec objectRecord
	if err := json.Unmarshal(bytes, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode object record: %w", err)
	}
	return &rec, nil
}

// encodeScratch serializes a side payload to JSON bytes.
func encodeScratch(data []byte, cs object.Checksum) ([]byte, error) {
	bytes, err := json.Marshal(&scratchRecord{Data: data, Checksum: cs})
	if err != nil {
		return nil, fmt.Errorf("failed to encode scratch pad: %w", err)
	}
	return bytes, nil
}

// decodeScratch deserializes a side payload from JSON bytes.
func decodeScratch(bytes []byte) (*object.Scratch, error) {
	var rec scratchRecord
	if err := json.Unmarshal(bytes, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode scratch pad: %w", err)
	}
	return &object.Scratch{Data: rec.Data, Checksum: rec.Checksum}, nil
}
