package fhir

import (
	"encoding/json"
	"fmt"
	"time"
)

// Bundle represents a FHIR Bundle resource. Search responses from an engine
// arrive as searchset bundles; Total counts all matches before paging.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id,omitempty"`
	Type         string        `json:"type"`
	Total        *int          `json:"total,omitempty"`
	Link         []BundleLink  `json:"link,omitempty"`
	Entry        []BundleEntry `json:"entry,omitempty"`
	Timestamp    *time.Time    `json:"timestamp,omitempty"`
}

type BundleLink struct {
	Relation string `json:"relation"`
	URL      string `json:"url"`
}

type BundleEntry struct {
	FullURL  string          `json:"fullUrl,omitempty"`
	Resource json.RawMessage `json:"resource,omitempty"`
	Search   *BundleSearch   `json:"search,omitempty"`
}

type BundleSearch struct {
	Mode  string   `json:"mode,omitempty"`
	Score *float64 `json:"score,omitempty"`
}

// LinkURL returns the URL of the link with the given relation, or "".
func (b *Bundle) LinkURL(relation string) string {
	for _, l := range b.Link {
		if l.Relation == relation {
			return l.URL
		}
	}
	return ""
}

// NextURL returns the pagination continuation URL, or "" on the last page.
func (b *Bundle) NextURL() string {
	return b.LinkURL("next")
}

// UnmarshalEntries decodes every entry resource of a bundle into T. Entries
// without a resource body are skipped.
func UnmarshalEntries[T any](b *Bundle) ([]T, error) {
	out := make([]T, 0, len(b.Entry))
	for i, entry := range b.Entry {
		if len(entry.Resource) == 0 {
			continue
		}
		var res T
		if err := json.Unmarshal(entry.Resource, &res); err != nil {
			return nil, fmt.Errorf("decode bundle entry %d: %w", i, err)
		}
		out = append(out, res)
	}
	return out, nil
}

// NewSearchBundle creates a searchset Bundle from a list of resources.
func NewSearchBundle(resources []interface{}, total int, selfURL string) *Bundle {
	now := time.Now().UTC()
	entries := make([]BundleEntry, len(resources))
	for i, r := range resources {
		raw, _ := json.Marshal(r)
		entries[i] = BundleEntry{
			Resource: raw,
			Search:   &BundleSearch{Mode: "match"},
		}
	}

	b := &Bundle{
		ResourceType: "Bundle",
		Type:         "searchset",
		Total:        &total,
		Timestamp:    &now,
		Entry:        entries,
	}
	if selfURL != "" {
		b.Link = []BundleLink{{Relation: "self", URL: selfURL}}
	}
	return b
}
