// Package model defines the core data types shared across the categorizer.
package model

import (
	"strings"
	"time"
)

// CategoryRecord is one learned product identity: a canonical key, the
// category confirmed for it, and every raw spelling ever attributed to it.
type CategoryRecord struct {
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastUsed     time.Time
	CanonicalKey string
	CategoryID   string
	Variations   []string
	UsageCount   int
}

// HasVariation reports whether text already appears among the record's
// variations, compared case-insensitively.
func (r *CategoryRecord) HasVariation(text string) bool {
	for _, v := range r.Variations {
		if strings.EqualFold(v, text) {
			return true
		}
	}
	return false
}

// AddVariation appends text to the record's variations unless an equal
// (case-insensitive) entry is already present.
func (r *CategoryRecord) AddVariation(text string) {
	if text == "" || r.HasVariation(text) {
		return
	}
	r.Variations = append(r.Variations, text)
}

// Clone returns a deep copy so callers can hand records out of a shared
// container without aliasing the variations slice.
func (r *CategoryRecord) Clone() CategoryRecord {
	out := *r
	out.Variations = make([]string, len(r.Variations))
	copy(out.Variations, r.Variations)
	return out
}
