// Package learn mutates the shared dataset on operator-confirmed
// classifications: existing records gain usage and variations, unseen
// canonical keys become new records.
package learn

import (
	"context"
	"log/slog"
	"time"

	"github.com/dietmate/categorizer/internal/common"
	"github.com/dietmate/categorizer/internal/dataset"
	"github.com/dietmate/categorizer/internal/model"
	"github.com/dietmate/categorizer/internal/normalize"
	"github.com/dietmate/categorizer/internal/persist"
)

// Engine applies confirmed classifications to the dataset and flushes
// through the persistence gateway.
type Engine struct {
	data    *dataset.Dataset
	gateway *persist.Gateway
	now     func() time.Time
}

// NewEngine creates a learning engine over the shared dataset.
func NewEngine(data *dataset.Dataset, gateway *persist.Gateway) *Engine {
	return &Engine{data: data, gateway: gateway, now: time.Now}
}

// UpdateCategorization records one confirmed classification. The record
// under DeriveKey(item.Name) gains a use, the item's raw text as a
// variation, and the confirmed category; an unseen key creates a fresh
// record. The read-modify-write is atomic per key.
func (e *Engine) UpdateCategorization(item model.Item, categoryID string) {
	key := normalize.DeriveKey(item.Name)
	if key == "" {
		key = normalize.DeriveKey(item.OriginalText)
	}
	if key == "" {
		slog.Warn("ignoring confirmation without a derivable key", "name", item.Name)
		return
	}

	now := e.now()
	e.data.Update(key, func(r *model.CategoryRecord, created bool) {
		if created {
			r.CategoryID = categoryID
			r.UsageCount = 1
			r.Variations = []string{item.OriginalText}
			r.CreatedAt = now
			r.UpdatedAt = now
			r.LastUsed = now
			return
		}

		r.UsageCount++
		// Variations keep the raw spelling; the matcher canonicalizes on
		// scan, so dedup here is case-insensitive only.
		r.AddVariation(item.OriginalText)
		r.CategoryID = categoryID
		r.UpdatedAt = now
		r.LastUsed = now
	})

	common.LogDebug("categorization updated", common.Fields{"key": key, "category": categoryID})
}

// UpdateCategoriesBatch applies every confirmed item grouped by category,
// then performs a single flush. This is a bulk operation, not a
// transaction: a flush failure can leave some records updated in memory
// with the store behind, and callers own the retry (flushes are
// idempotent, so retrying is safe).
func (e *Engine) UpdateCategoriesBatch(ctx context.Context, itemsByCategory map[string][]model.Item) error {
	updated := 0
	for categoryID, items := range itemsByCategory {
		for _, item := range items {
			e.UpdateCategorization(item, categoryID)
			updated++
		}
	}

	slog.Info("batch categorization applied", "items", updated, "categories", len(itemsByCategory))

	return e.gateway.SaveData(ctx, e.data)
}
