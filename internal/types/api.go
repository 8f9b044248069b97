package types

import "strings"

// DataProductIdentifier addresses a catalogued product either by its UID or
// by its execution block. At least one of the two must be set.
type DataProductIdentifier struct {
	UID            string `json:"uid,omitempty"`
	ExecutionBlock string `json:"execution_block,omitempty"`
}

func (id DataProductIdentifier) Valid() bool {
	return id.UID != "" || id.ExecutionBlock != ""
}

// FilterItem is one field/operator/value triple of a structured filter
// model. Items with Field "formFields" carry KeyPairs instead of a value.
type FilterItem struct {
	Field    string         `json:"field"`
	Operator string         `json:"operator,omitempty"`
	Value    string         `json:"value,omitempty"`
	KeyPairs []KeyValuePair `json:"keyPairs,omitempty"`
}

// KeyValuePair is one entry of the free-text search panel. Key is a
// dot-separated path into the metadata document.
type KeyValuePair struct {
	Key   string `json:"keyPair"`
	Value string `json:"valuePair"`
}

// ParseKeyValuePair splits a raw "key:value" search term on its first colon.
// Terms without a colon, or with an empty key or value, are rejected.
func ParseKeyValuePair(raw string) (KeyValuePair, bool) {
	key, value, found := strings.Cut(raw, ":")
	if !found || key == "" || value == "" {
		return KeyValuePair{}, false
	}
	return KeyValuePair{Key: key, Value: value}, true
}

// FilterModel is the structured filter model posted by the dashboard's data
// grid. Items are combined with AND.
type FilterModel struct {
	Items []FilterItem `json:"items"`
}

// SearchParameters is the body of the simple search endpoint: a date range
// plus "key:value" pairs.
type SearchParameters struct {
	StartDate     string   `json:"start_date"`
	EndDate       string   `json:"end_date"`
	KeyValuePairs []string `json:"key_value_pairs"`
}
