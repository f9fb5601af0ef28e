package cache

import "encoding/json"

// record is the single self-describing blob the Cache snapshots to its
// Persister. Unknown fields are ignored on Load for forward
// compatibility; json.Unmarshal does this for free by default, so
// nothing extra is required here beyond keeping every field optional.
type record struct {
	License            json.RawMessage `json:"license,omitempty"`
	OfflineToken       json.RawMessage `json:"offline_token,omitempty"`
	PublicKey          json.RawMessage `json:"public_key,omitempty"`
	PublicKeyID        string          `json:"public_key_id,omitempty"`
	LastSeenTimestamp  int64           `json:"last_seen_timestamp,omitempty"`
}
