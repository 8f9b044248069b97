package grid

import (
	"sync"
)

// Column is the presentation descriptor of one discovered flattened key,
// shaped for the dashboard's data grid component.
type Column struct {
	Field      string `json:"field"`
	HeaderName string `json:"headerName"`
	Width      int    `json:"width"`
	Type       string `json:"type"`
	Hide       bool   `json:"hide"`
	Sortable   bool   `json:"sortable"`
	Filterable bool   `json:"filterable"`
}

// ColumnRegistry tracks every flattened key seen so far. Descriptors are
// created lazily the first time a key is seen and never removed, so columns
// discovered before a reindex survive it.
type ColumnRegistry struct {
	mu      sync.Mutex
	columns []Column
	known   map[string]struct{}
}

// NewColumnRegistry seeds the registry with the default layout of the
// dashboard's product table.
func NewColumnRegistry() *ColumnRegistry {
	r := &ColumnRegistry{known: make(map[string]struct{})}
	for _, seed := range []struct {
		field  string
		header string
		width  int
	}{
		{"execution_block", "Execution Block", 250},
		{"date_created", "Date Created", 150},
		{"config.processing_block", "Processing Block", 250},
		{"config.processing_script", "Processing script", 150},
		{"context.observer", "Observer", 150},
		{"context.intent", "Intent", 150},
		{"context.notes", "Notes", 500},
		{"size", "File size", 80},
		{"status", "Status", 80},
	} {
		r.add(Column{
			Field:      seed.field,
			HeaderName: seed.header,
			Width:      seed.width,
			Type:       "string",
			Sortable:   true,
			Filterable: true,
		})
	}
	return r
}

func (r *ColumnRegistry) add(col Column) {
	if _, ok := r.known[col.Field]; ok {
		return
	}
	r.known[col.Field] = struct{}{}
	r.columns = append(r.columns, col)
}

// UpdateColumns registers a default descriptor for the key unless one with
// that field already exists. Idempotent and order independent.
func (r *ColumnRegistry) UpdateColumns(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.add(Column{
		Field:      key,
		HeaderName: key,
		Width:      150,
		Type:       "string",
		Sortable:   true,
		Filterable: true,
	})
}

// Discover registers descriptors for every flattened key of the document.
func (r *ColumnRegistry) Discover(doc map[string]any) {
	for key := range Flatten(doc) {
		r.UpdateColumns(key)
	}
}

// Columns returns a snapshot of the registered descriptors.
func (r *ColumnRegistry) Columns() []Column {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Column, len(r.columns))
	copy(out, r.columns)
	return out
}

// TableConfig is the configuration object served to the dashboard.
func (r *ColumnRegistry) TableConfig() map[string]any {
	return map[string]any{"columns": r.Columns()}
}
