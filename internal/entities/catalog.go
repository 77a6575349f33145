package entities

import (
	"encoding/json"
	"time"
)

// CatalogEntry is the metadata record for one lendable item as produced
// by the feed parser. Beyond the head fields used for reconciliation the
// payload is round-tripped untouched.
type CatalogEntry struct {
	ID          string          `json:"id"`
	Title       string          `json:"title,omitempty"`
	Updated     time.Time       `json:"updated,omitempty"`
	Acquisition string          `json:"acquisition,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}
