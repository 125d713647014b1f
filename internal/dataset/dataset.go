// Package dataset holds the in-memory learned dataset: every category
// record the process knows about, keyed by canonical key. The container is
// the single shared mutable state of the categorizer, so all access goes
// through its lock.
package dataset

import (
	"sync"

	"github.com/dietmate/categorizer/internal/model"
)

// Dataset is a concurrency-safe map from canonical key to CategoryRecord.
// Reads take a point-in-time copy; updates to a single key are atomic with
// respect to each other. Cross-key atomicity is not provided.
type Dataset struct {
	records map[string]model.CategoryRecord
	mu      sync.RWMutex
}

// New returns an empty dataset.
func New() *Dataset {
	return &Dataset{records: make(map[string]model.CategoryRecord)}
}

// FromRecords builds a dataset from pre-loaded records. Later entries win
// when two records carry the same canonical key.
func FromRecords(records []model.CategoryRecord) *Dataset {
	d := New()
	for _, r := range records {
		if r.CanonicalKey == "" {
			continue
		}
		d.records[r.CanonicalKey] = r.Clone()
	}
	return d
}

// Get returns a copy of the record stored under key, if any.
func (d *Dataset) Get(key string) (model.CategoryRecord, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	r, ok := d.records[key]
	if !ok {
		return model.CategoryRecord{}, false
	}
	return r.Clone(), true
}

// Snapshot returns a copy of every record. Matching runs against a
// snapshot, so readers never block writers for the duration of a scan.
func (d *Dataset) Snapshot() []model.CategoryRecord {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]model.CategoryRecord, 0, len(d.records))
	for _, r := range d.records {
		out = append(out, r.Clone())
	}
	return out
}

// Update applies fn to the record stored under key while holding the write
// lock, creating the record first when absent. fn receives a pointer to the
// container-owned record and must not retain it.
func (d *Dataset) Update(key string, fn func(r *model.CategoryRecord, created bool)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.records[key]
	if !ok {
		r = model.CategoryRecord{CanonicalKey: key}
	}
	fn(&r, !ok)
	d.records[key] = r
}

// Len returns the number of records currently held.
func (d *Dataset) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.records)
}
