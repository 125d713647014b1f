// Package match resolves free-text product descriptions to learned category
// records through three fixed-order tiers: exact key, known variation, then
// fuzzy similarity.
package match

import (
	"log/slog"

	"github.com/dietmate/categorizer/internal/dataset"
	"github.com/dietmate/categorizer/internal/model"
	"github.com/dietmate/categorizer/internal/normalize"
)

const (
	// fuzzyThreshold is the minimum normalized similarity a record's key
	// must reach to qualify in the fuzzy tier.
	fuzzyThreshold = 0.75
	// minCompareLen guards the fuzzy tier against meaningless comparisons
	// of very short strings.
	minCompareLen = 3
)

// Matcher resolves items against the shared dataset. It never mutates the
// dataset and is safe for concurrent use.
type Matcher struct {
	data *dataset.Dataset
}

// NewMatcher creates a matcher over the given dataset.
func NewMatcher(data *dataset.Dataset) *Matcher {
	return &Matcher{data: data}
}

// SuggestCategory resolves item to a category id. Tiers are consulted in
// strict order; the first tier producing at least one candidate wins and
// later tiers are never reached. Returns false when no tier matches.
func (m *Matcher) SuggestCategory(item model.Item) (string, bool) {
	key := normalize.DeriveKey(item.OriginalText)
	if r, ok := m.data.Get(key); ok && r.CategoryID != "" {
		slog.Debug("category resolved", "tier", "exact", "key", key, "category", r.CategoryID)
		return r.CategoryID, true
	}

	canonical := normalize.Canonicalize(item.OriginalText)
	if canonical == "" {
		return "", false
	}

	snapshot := m.data.Snapshot()

	if r, ok := bestByUsage(snapshot, func(r model.CategoryRecord) bool {
		return matchesVariation(r, canonical)
	}); ok {
		slog.Debug("category resolved", "tier", "variation", "key", r.CanonicalKey, "category", r.CategoryID)
		return r.CategoryID, true
	}

	if r, ok := bestByUsage(snapshot, func(r model.CategoryRecord) bool {
		return similarity(canonical, normalize.Canonicalize(r.CanonicalKey)) >= fuzzyThreshold
	}); ok {
		slog.Debug("category resolved", "tier", "fuzzy", "key", r.CanonicalKey, "category", r.CategoryID)
		return r.CategoryID, true
	}

	return "", false
}

// bestByUsage collects records accepted by qualifies and picks the one with
// the highest usage count. Popularity decides ties between qualifying
// candidates, not closeness of the match.
func bestByUsage(records []model.CategoryRecord, qualifies func(model.CategoryRecord) bool) (model.CategoryRecord, bool) {
	var best model.CategoryRecord
	found := false

	for _, r := range records {
		// A record without a key or category cannot be suggested; skip it
		// rather than failing the whole resolution.
		if r.CanonicalKey == "" || r.CategoryID == "" {
			continue
		}
		if !qualifies(r) {
			continue
		}
		if !found || r.UsageCount > best.UsageCount {
			best = r
			found = true
		}
	}

	return best, found
}

func matchesVariation(r model.CategoryRecord, canonical string) bool {
	for _, v := range r.Variations {
		if normalize.Canonicalize(v) == canonical {
			return true
		}
	}
	return false
}
