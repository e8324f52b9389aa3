package snapshot

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Logical keys of the application snapshot.
const (
	KeySettings     = "settings"
	KeyHeaders      = "headers"
	KeyItems        = "items"
	KeyColumnConfig = "columnConfig"
	KeyLayerConfig  = "layerConfig"
	KeyLayersData   = "layersData"
	KeyTabsConfig   = "tabsConfig"
	KeyUser         = "user"
	KeyMetadata     = "_metadata"
)

// FormatVersion is stamped into Metadata.Version by every complete save.
const FormatVersion = 1

// Bundle is one complete application-data snapshot. Payloads are opaque JSON;
// a nil field means the key was absent or null.
type Bundle struct {
	Settings     json.RawMessage `json:"settings,omitempty"`
	Headers      json.RawMessage `json:"headers,omitempty"`
	Items        json.RawMessage `json:"items,omitempty"`
	ColumnConfig json.RawMessage `json:"columnConfig,omitempty"`
	LayerConfig  json.RawMessage `json:"layerConfig,omitempty"`
	LayersData   json.RawMessage `json:"layersData,omitempty"`
	TabsConfig   json.RawMessage `json:"tabsConfig,omitempty"`
	User         json.RawMessage `json:"user,omitempty"`
}

// fields pairs each key with its slot, in write order.
func (b *Bundle) fields() []field {
	return []field{
		{KeySettings, &b.Settings},
		{KeyHeaders, &b.Headers},
		{KeyItems, &b.Items},
		{KeyColumnConfig, &b.ColumnConfig},
		{KeyLayerConfig, &b.LayerConfig},
		{KeyLayersData, &b.LayersData},
		{KeyTabsConfig, &b.TabsConfig},
		{KeyUser, &b.User},
	}
}

// TabBundle is the per-tab dataset stored under the tab_<n>_ key family.
type TabBundle struct {
	Items        json.RawMessage `json:"items,omitempty"`
	ColumnConfig json.RawMessage `json:"columnConfig,omitempty"`
	LayerConfig  json.RawMessage `json:"layerConfig,omitempty"`
	LayersData   json.RawMessage `json:"layersData,omitempty"`
}

func (b *TabBundle) fields(tab int) []field {
	return []field{
		{TabKey(tab, KeyItems), &b.Items},
		{TabKey(tab, KeyColumnConfig), &b.ColumnConfig},
		{TabKey(tab, KeyLayerConfig), &b.LayerConfig},
		{TabKey(tab, KeyLayersData), &b.LayersData},
	}
}

// TabKey returns the storage key for name within tab's key family,
// e.g. TabKey(2, "items") is "tab_2_items".
func TabKey(tab int, name string) string {
	return "tab_" + strconv.Itoa(tab) + "_" + name
}

// Metadata is the freshness record written after every complete snapshot.
type Metadata struct {
	LastUpdated time.Time `json:"lastUpdated"`
	Version     int       `json:"version"`
}

type field struct {
	key  string
	slot *json.RawMessage
}

var jsonNull = []byte("null")

// present reports whether raw holds a value other than null.
func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, jsonNull)
}

// nonEmpty reports whether raw is present and, if it is an array or a
// string, has at least one element or character.
func nonEmpty(raw json.RawMessage) bool {
	if !present(raw) {
		return false
	}
	trimmed := bytes.TrimSpace(raw)
	switch trimmed[0] {
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(trimmed, &elems); err != nil {
			return false
		}
		return len(elems) > 0
	case '"':
		return !bytes.Equal(trimmed, []byte(`""`))
	}
	return true
}
