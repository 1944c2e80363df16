package state

import (
	"encoding/json"
	"fmt"
	"sort"
)

// MetSet records which NPCs know the avatar, keyed by NPCKey.
type MetSet map[string]bool

// MarshalJSON writes the set as a sorted list of keys.
func (m MetSet) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if v {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return json.Marshal(keys)
}

// UnmarshalJSON allows MetSet to accept either a map or an array of keys.
func (m *MetSet) UnmarshalJSON(data []byte) error {
	var asArray []string
	if err := json.Unmarshal(data, &asArray); err == nil {
		result := make(MetSet, len(asArray))
		for _, k := range asArray {
			result[k] = true
		}
		*m = result
		return nil
	}
	var asMap map[string]bool
	if err := json.Unmarshal(data, &asMap); err == nil {
		*m = asMap
		return nil
	}
	return fmt.Errorf("met: not a map or array: %s", string(data))
}
