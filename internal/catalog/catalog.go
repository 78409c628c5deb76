package catalog

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/etabench/etabench/internal/eta"
)

// Source kinds.
const (
	KindCSV   = "csv"
	KindMongo = "mongo"
)

// Source is one imported batch of classified records.
type Source struct {
	ID      string
	Name    string
	Kind    string // KindCSV | KindMongo
	AddedAt time.Time

	// Records is owned by the catalog after Add; callers must not mutate it.
	Records []eta.ClassifiedRecord
}

// Catalog is a thread-safe in-memory source registry, keyed by source id.
type Catalog struct {
	mu   sync.RWMutex
	data map[string]*Source
	seq  int
	now  func() time.Time // injectable for deterministic tests
}

// New creates an empty Catalog.
func New() *Catalog {
	return &Catalog{
		data: make(map[string]*Source),
		now:  time.Now,
	}
}

// Add registers a new source and returns it. IDs follow the original
// dashboard's convention of kind plus import timestamp, with a sequence
// number so two imports in the same millisecond stay distinct.
func (c *Catalog) Add(name, kind string, records []eta.ClassifiedRecord) *Source {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	src := &Source{
		ID:      fmt.Sprintf("%s-%d-%d", kind, c.now().UnixMilli(), c.seq),
		Name:    name,
		Kind:    kind,
		AddedAt: c.now(),
		Records: records,
	}
	c.data[src.ID] = src
	return src
}

// Get returns the source for the given id and whether it was found.
func (c *Catalog) Get(id string) (*Source, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.data[id]
	return s, ok
}

// List returns all sources ordered by import time, oldest first.
func (c *Catalog) List() []*Source {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Source, 0, len(c.data))
	for _, s := range c.data {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].AddedAt.Before(out[j].AddedAt)
	})
	return out
}

// Remove deletes the source with the given id, reporting whether it existed.
func (c *Catalog) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[id]
	delete(c.data, id)
	return ok
}

// Merged returns the concatenated records of the selected sources, in List
// order. An empty or nil id set selects every source. Unknown ids are
// ignored rather than erroring, matching how the UI treats stale selections.
func (c *Catalog) Merged(ids []string) []eta.ClassifiedRecord {
	selected := make(map[string]bool, len(ids))
	for _, id := range ids {
		selected[id] = true
	}

	var out []eta.ClassifiedRecord
	for _, s := range c.List() {
		if len(selected) > 0 && !selected[s.ID] {
			continue
		}
		out = append(out, s.Records...)
	}
	if out == nil {
		out = []eta.ClassifiedRecord{}
	}
	return out
}

// Count returns the number of registered sources.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// TotalRecords returns the record count across all sources.
func (c *Catalog) TotalRecords() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var n int
	for _, s := range c.data {
		n += len(s.Records)
	}
	return n
}
