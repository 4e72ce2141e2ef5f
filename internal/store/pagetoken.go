package store

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// EncodePageToken serialises a continuation key into an opaque token:
// base64 over the JSON encoding of the attribute map. Callers must treat
// tokens as opaque and round-trip them unmodified.
func EncodePageToken(key Item) (string, error) {
	if len(key) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(map[string]string(key))
	if err != nil {
		return "", fmt.Errorf("encode page token: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodePageToken reverses EncodePageToken. An empty token decodes to nil.
func DecodePageToken(token string) (Item, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("decode page token: %w", err)
	}
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode page token: %w", err)
	}
	return Item(m), nil
}
