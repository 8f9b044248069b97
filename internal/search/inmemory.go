package search

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/obsnet/dataproduct-catalog/internal/grid"
	"github.com/obsnet/dataproduct-catalog/internal/logger"
	"github.com/obsnet/dataproduct-catalog/internal/store"
	"github.com/obsnet/dataproduct-catalog/internal/types"
)

// SearchStore is the search view capability: a filterable, rebuildable
// flattened projection of the metadata store.
type SearchStore interface {
	// InsertProduct flattens an enriched document into the search view,
	// discovering columns as it goes. A document already known by uid is
	// updated in place rather than appended.
	InsertProduct(ctx context.Context, doc map[string]any) error

	// FilterData runs access filtering, the structured filter model and the
	// free-text panel over the current view.
	FilterData(ctx context.Context, filterModel, searchPanel types.FilterModel, userGroups []string) ([]map[string]any, error)

	// SearchMetadata is the simple date range plus key/value pair search.
	SearchMetadata(ctx context.Context, startDate, endDate string, pairs []types.KeyValuePair) ([]map[string]any, error)

	// Reindex clears the view and repopulates it from the metadata store.
	Reindex(ctx context.Context) error

	Indexing() bool
	Columns() *grid.ColumnRegistry
	Status() map[string]any
}

// InMemorySearch is the fallback search store: the whole view lives in
// process memory. The view is shared mutable state; reads work on a
// snapshot taken under a read lock and reindex publishes a fully rebuilt
// view in one swap, so queries never observe a half built view.
type InMemorySearch struct {
	log     *logger.Logger
	meta    store.MetadataStore
	columns *grid.ColumnRegistry

	mu     sync.RWMutex
	rows   []map[string]any
	docs   map[string]map[string]any
	nextID int

	indexing bool
}

func NewInMemorySearch(meta store.MetadataStore, log *logger.Logger) *InMemorySearch {
	return &InMemorySearch{
		log:     log.With("search", "InMemorySearch"),
		meta:    meta,
		columns: grid.NewColumnRegistry(),
		docs:    make(map[string]map[string]any),
	}
}

func (s *InMemorySearch) InsertProduct(ctx context.Context, doc map[string]any) error {
	uid, ok := doc["uid"].(string)
	if !ok || uid == "" {
		return fmt.Errorf("document without uid cannot be indexed")
	}

	s.columns.Discover(doc)
	flattened := grid.Flatten(doc)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLocked(flattened, uid)
	s.docs[uid] = doc
	sortRowsByDate(s.rows)
	return nil
}

// insertLocked replaces the whole row of a known uid, keeping only its
// surrogate id, so fields removed from a re-ingested document do not linger
// in the view.
func (s *InMemorySearch) insertLocked(flattened map[string]any, uid string) {
	for i, row := range s.rows {
		if row["uid"] == uid {
			flattened["id"] = row["id"]
			s.rows[i] = flattened
			return
		}
	}
	s.nextID++
	flattened["id"] = s.nextID
	s.rows = append(s.rows, flattened)
}

// Reindex rebuilds the whole view from the metadata store and publishes it
// atomically. A failure on one record is logged and the rebuild continues.
// Previously discovered columns are preserved.
func (s *InMemorySearch) Reindex(ctx context.Context) error {
	s.log.Info("Re-indexing in-memory search store...")
	s.setIndexing(true)
	defer s.setIndexing(false)

	documents, err := s.meta.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("reindex: %w", err)
	}

	rows := make([]map[string]any, 0, len(documents))
	docs := make(map[string]map[string]any, len(documents))
	nextID := 0
	for _, doc := range documents {
		uid, ok := doc["uid"].(string)
		if !ok || uid == "" {
			s.log.Error("Skipping document without uid during reindex")
			continue
		}
		s.columns.Discover(doc)
		flattened := grid.Flatten(doc)
		nextID++
		flattened["id"] = nextID
		rows = append(rows, flattened)
		docs[uid] = doc
	}
	sortRowsByDate(rows)

	s.mu.Lock()
	s.rows = rows
	s.docs = docs
	s.nextID = nextID
	s.mu.Unlock()

	s.log.Info("In-memory search store re-indexed", "number_of_dataproducts", len(rows))
	return nil
}

func (s *InMemorySearch) FilterData(ctx context.Context, filterModel, searchPanel types.FilterModel, userGroups []string) ([]map[string]any, error) {
	rows, docs := s.snapshot()
	items := append(append([]types.FilterItem{}, filterModel.Items...), searchPanel.Items...)
	filtered := AccessFilter(rows, userGroups)
	return ApplyFilters(filtered, docs, items, s.log), nil
}

func (s *InMemorySearch) SearchMetadata(ctx context.Context, startDate, endDate string, pairs []types.KeyValuePair) ([]map[string]any, error) {
	panel := buildSearchPanel(startDate, endDate, pairs, s.log)
	return s.FilterData(ctx, types.FilterModel{}, panel, nil)
}

func (s *InMemorySearch) Indexing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexing
}

func (s *InMemorySearch) Columns() *grid.ColumnRegistry { return s.columns }

func (s *InMemorySearch) Status() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"metadata_search_store_in_use": "In memory search store",
		"number_of_dataproducts":       len(s.rows),
		"indexing":                     s.indexing,
	}
}

// snapshot copies the current rows so queries never share map storage with
// a concurrent update-in-place.
func (s *InMemorySearch) snapshot() ([]map[string]any, map[string]map[string]any) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]map[string]any, len(s.rows))
	for i, row := range s.rows {
		copied := make(map[string]any, len(row))
		for k, v := range row {
			copied[k] = v
		}
		rows[i] = copied
	}
	docs := make(map[string]map[string]any, len(s.docs))
	for uid, doc := range s.docs {
		docs[uid] = doc
	}
	return rows, docs
}

func (s *InMemorySearch) setIndexing(v bool) {
	s.mu.Lock()
	s.indexing = v
	s.mu.Unlock()
}

func sortRowsByDate(rows []map[string]any) {
	sort.SliceStable(rows, func(i, j int) bool {
		left, _ := rows[i]["date_created"].(string)
		right, _ := rows[j]["date_created"].(string)
		return left > right
	})
}

// buildSearchPanel turns the simple search parameters into the filter items
// of the free-text panel, falling back to the open-ended defaults when a
// date does not parse.
func buildSearchPanel(startDate, endDate string, pairs []types.KeyValuePair, log *logger.Logger) types.FilterModel {
	if _, err := time.Parse(DateFormat, startDate); err != nil {
		if startDate != "" {
			log.Warn("Invalid start date, using default", "start_date", startDate)
		}
		startDate = DefaultStartDate
	}
	if _, err := time.Parse(DateFormat, endDate); err != nil {
		if endDate != "" {
			log.Warn("Invalid end date, using default", "end_date", endDate)
		}
		endDate = DefaultEndDate
	}
	return types.FilterModel{Items: []types.FilterItem{
		{Field: "date_created", Operator: "greaterThan", Value: startDate},
		{Field: "date_created", Operator: "lessThan", Value: endDate},
		{Field: "formFields", KeyPairs: pairs},
	}}
}
