package types

import (
	"encoding/json"

	"github.com/google/uuid"
)

// NullableUUID separates an absent UUID field from an explicit null.
// Valid is set whenever the key was present in the payload; Value is nil for null.
type NullableUUID struct {
	Valid bool
	Value *uuid.UUID
}

// UnmarshalJSON runs only for keys present in the document, so reaching it marks the field Valid.
func (n *NullableUUID) UnmarshalJSON(data []byte) error {
	var parsed *uuid.UUID
	if err := json.Unmarshal(data, &parsed); err != nil {
		return err
	}
	n.Valid, n.Value = true, parsed
	return nil
}

// MarshalJSON renders the value or null.
func (n NullableUUID) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Value)
}
