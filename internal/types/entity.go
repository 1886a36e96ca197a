package types

import "strings"

// Entity is a controllable or observable device/sensor, owned by the external
// inventory. The engine only reads these.
type Entity struct {
	ID           string   `json:"entity_id"` // domain.name form
	Domain       string   `json:"domain"`
	AreaID       *string  `json:"area_id,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// EntityDomain extracts the domain prefix from a domain.name entity id.
// Returns "" when the id has no domain separator.
func EntityDomain(entityID string) string {
	idx := strings.IndexByte(entityID, '.')
	if idx <= 0 {
		return ""
	}
	return entityID[:idx]
}
