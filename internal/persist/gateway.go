// Package persist is the gateway between the in-memory dataset and the
// durable document store: it loads the dataset at startup and flushes
// learned corrections back in chunked, idempotent writes.
package persist

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dietmate/categorizer/internal/common"
	"github.com/dietmate/categorizer/internal/dataset"
	"github.com/dietmate/categorizer/internal/docstore"
	"github.com/dietmate/categorizer/internal/model"
	"github.com/dietmate/categorizer/internal/normalize"
)

// Gateway loads and saves the dataset through a document store.
type Gateway struct {
	store docstore.Store
}

// NewGateway creates a gateway over the given store.
func NewGateway(store docstore.Store) *Gateway {
	return &Gateway{store: store}
}

// LoadData reads every stored document into a fresh dataset. Failures are
// logged and swallowed: the caller gets an empty dataset and categorization
// degrades to "no suggestion" instead of taking the host process down.
func (g *Gateway) LoadData(ctx context.Context) *dataset.Dataset {
	docs, err := g.store.GetAll(ctx)
	if err != nil {
		common.LogError(err, "failed to load categorization data, starting empty", common.Fields{})
		return dataset.New()
	}

	byKey := make(map[string]model.CategoryRecord, len(docs))
	for _, doc := range docs {
		key := doc.Record.CanonicalKey
		if key == "" {
			key = normalize.DeriveKey(doc.Name)
		}
		if key == "" {
			slog.Warn("skipping document without a derivable key", "id", doc.ID)
			continue
		}

		r := doc.Record
		r.CanonicalKey = key

		// Pre-reconciliation duplicates can still exist in the store; the
		// most-used record wins until the sweeper merges them.
		if existing, ok := byKey[key]; ok && existing.UsageCount >= r.UsageCount {
			continue
		}
		byKey[key] = r
	}

	records := make([]model.CategoryRecord, 0, len(byKey))
	for _, r := range byKey {
		records = append(records, r)
	}

	slog.Info("categorization data loaded", "records", len(records), "documents", len(docs))

	return dataset.FromRecords(records)
}

// SaveData flushes every record to the store in chunks of at most the
// store's batch limit. Each record is written to the document already
// holding its canonical key when one exists, otherwise to a
// deterministically derived document id. Writes merge rather than replace,
// and re-running a save converges to the same stored state, so retrying a
// partial failure is safe. A failure aborts the remaining chunks and is
// returned as a PersistenceError.
func (g *Gateway) SaveData(ctx context.Context, data *dataset.Dataset) error {
	records := data.Snapshot()
	if len(records) == 0 {
		return nil
	}

	limit := g.store.ChunkLimit()
	if limit <= 0 {
		limit = docstore.DefaultChunkLimit
	}

	committed := 0
	batch := g.store.NewBatch()

	for _, r := range records {
		id, err := g.resolveDocumentID(ctx, r.CanonicalKey)
		if err != nil {
			return common.NewPersistenceError("save", committed, err)
		}
		batch.Upsert(model.ToDocument(id, r))

		if batch.Len() >= limit {
			if err := batch.Commit(ctx); err != nil {
				return common.NewPersistenceError("save", committed, err)
			}
			committed++
			batch = g.store.NewBatch()
		}
	}

	if batch.Len() > 0 {
		if err := batch.Commit(ctx); err != nil {
			return common.NewPersistenceError("save", committed, err)
		}
		committed++
	}

	common.LogDebug("categorization data saved", common.Fields{
		"records": len(records),
		"chunks":  committed,
	})

	return nil
}

// resolveDocumentID finds the stored document already carrying key, falling
// back to the deterministic id derivation for unseen keys.
func (g *Gateway) resolveDocumentID(ctx context.Context, key string) (string, error) {
	docs, err := g.store.FindByField(ctx, model.FieldCanonicalKey, key)
	if err != nil {
		return "", fmt.Errorf("failed to resolve document for %q: %w", key, err)
	}
	if len(docs) > 0 {
		return docs[0].ID, nil
	}
	return DocumentID(key), nil
}
