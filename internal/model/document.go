package model

import "time"

// Document field names as stored in the durable collection. The sweeper and
// the persistence gateway address fields by name, so they live here rather
// than in either package.
const (
	FieldCanonicalKey = "canonical_key"
	FieldName         = "name"
	FieldCategoryID   = "category_id"
	FieldUsageCount   = "usage_count"
	FieldVariations   = "variations"
	FieldCreatedAt    = "created_at"
	FieldUpdatedAt    = "updated_at"
	FieldLastUsed     = "last_used"
)

// Document is one stored record together with its store-assigned identifier.
// Unlike CategoryRecord it keeps the raw stored name, which the sweeper uses
// to recompute canonical keys during reconciliation.
type Document struct {
	ID     string
	Name   string
	Record CategoryRecord
}

// ToDocument converts a record into its stored form under the given id.
func ToDocument(id string, r CategoryRecord) Document {
	return Document{ID: id, Name: r.CanonicalKey, Record: r}
}

// Touch refreshes the document's UpdatedAt, used when the sweeper rewrites
// a merge winner.
func (d *Document) Touch(now time.Time) {
	d.Record.UpdatedAt = now
}
