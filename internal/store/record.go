package store

import (
	"encoding/json"
	"fmt"

	"github.com/hyperjump/kioku/internal/storage"
)

// toRecord converts a typed model into its plain-JSON storage form. Every
// persisted record must round-trip through JSON-serializable data, so the
// conversion is a marshal/unmarshal pair.
func toRecord(v any) (storage.Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var rec storage.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

// fromRecord decodes a storage record into the typed model pointed to by out.
func fromRecord(rec storage.Record, out any) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}
