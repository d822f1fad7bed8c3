package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// DeriveKey produces a stable, collision-resistant cache key from a scope
// label, an arbitrary payload, and a subject identifier. The payload is
// serialized with encoding/json, which emits struct fields in declaration
// order and map keys sorted, so structurally identical payloads always derive
// the same key.
func DeriveKey(scope string, payload any, subjectID string) string {
	data, err := json.Marshal(payload)
	if err != nil {
		// unserializable payloads (channels, funcs) still need a stable
		// per-scope key; collapse them to the scope+subject bucket
		data = []byte("!")
	}

	sum := sha256.Sum256(data)
	return scope + ":" + subjectID + ":" + hex.EncodeToString(sum[:])
}
