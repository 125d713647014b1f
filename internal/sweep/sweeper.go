// Package sweep is the offline reconciler for the durable store. Writes to
// the store are not transactional, so two writers can leave two documents
// for one product; the sweeper regroups every document by its recomputed
// canonical key and merges each group down to a single winner.
package sweep

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dietmate/categorizer/internal/common"
	"github.com/dietmate/categorizer/internal/docstore"
	"github.com/dietmate/categorizer/internal/model"
	"github.com/dietmate/categorizer/internal/normalize"
)

// Sweeper merges duplicate documents in the durable store. A single
// Sweeper is single-flight: a run that overlaps another returns
// common.ErrSweepInProgress instead of double-merging.
type Sweeper struct {
	store docstore.Store
	now   func() time.Time
	mu    sync.Mutex
}

// NewSweeper creates a sweeper over the given store.
func NewSweeper(store docstore.Store) *Sweeper {
	return &Sweeper{store: store, now: time.Now}
}

// Result summarizes one sweep run.
type Result struct {
	Documents int
	Groups    int
	Merged    int
	Deleted   int
}

// CleanupDuplicates reads the whole collection, groups documents by the
// canonical key recomputed from their stored name, and merges every group
// with more than one document: the most recently updated document wins,
// variations are unioned, usage counts are summed, losers are deleted.
// Writes go out in chunks; the first error aborts the remaining chunks and
// is returned, while chunks already committed stay committed. Re-running
// after a partial failure is safe and converges.
func (s *Sweeper) CleanupDuplicates(ctx context.Context) (Result, error) {
	if !s.mu.TryLock() {
		return Result{}, common.ErrSweepInProgress
	}
	defer s.mu.Unlock()

	docs, err := s.store.GetAll(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read documents: %w", err)
	}

	groups := groupByKey(docs)
	res := Result{Documents: len(docs), Groups: len(groups)}

	limit := s.store.ChunkLimit()
	if limit <= 0 {
		limit = docstore.DefaultChunkLimit
	}

	batch := s.store.NewBatch()
	flush := func() error {
		if batch.Len() == 0 {
			return nil
		}
		if err := batch.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit merge chunk: %w", err)
		}
		batch = s.store.NewBatch()
		return nil
	}

	// Deterministic group order keeps partially failed runs reproducible.
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		group := groups[key]
		if len(group) < 2 {
			continue
		}

		winner, losers := merge(key, group, s.now())
		res.Merged++
		res.Deleted += len(losers)

		common.LogInfo("merging duplicate documents", common.Fields{
			"key":        key,
			"documents":  len(group),
			"winner":     winner.ID,
			"usageCount": winner.Record.UsageCount,
		})

		// Keep a group inside one chunk when it fits; a group larger than
		// the limit spills its deletes into later chunks. The winner goes
		// out first and deletes are idempotent, so a re-run after a
		// partial commit converges.
		if batch.Len() > 0 && batch.Len()+1+len(losers) > limit {
			if err := flush(); err != nil {
				return res, err
			}
		}

		batch.Upsert(winner)
		for _, id := range losers {
			if batch.Len() >= limit {
				if err := flush(); err != nil {
					return res, err
				}
			}
			batch.Delete(id)
		}
	}

	if err := flush(); err != nil {
		return res, err
	}

	common.LogInfo("sweep complete", common.Fields{
		"documents": res.Documents,
		"groups":    res.Groups,
		"merged":    res.Merged,
		"deleted":   res.Deleted,
	})

	return res, nil
}

// groupByKey buckets documents by the canonical key recomputed from the
// stored name, so documents written with stale or missing keys still land
// in the right group.
func groupByKey(docs []model.Document) map[string][]model.Document {
	groups := make(map[string][]model.Document)
	for _, doc := range docs {
		name := doc.Name
		if name == "" {
			name = doc.Record.CanonicalKey
		}
		key := normalize.DeriveKey(name)
		if key == "" {
			continue
		}
		groups[key] = append(groups[key], doc)
	}
	return groups
}

// merge collapses a duplicate group: the winner is the document with the
// latest UpdatedAt, ties broken by smallest id so the outcome never depends
// on iteration order. The winner absorbs the union of all variations and
// the sum of all usage counts.
func merge(key string, group []model.Document, now time.Time) (model.Document, []string) {
	sort.Slice(group, func(i, j int) bool {
		ti, tj := group[i].Record.UpdatedAt, group[j].Record.UpdatedAt
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return group[i].ID < group[j].ID
	})

	winner := group[0]
	winner.Record.CanonicalKey = key

	seen := make(map[string]bool)
	merged := make([]string, 0, len(winner.Record.Variations))
	total := 0
	for _, doc := range group {
		total += doc.Record.UsageCount
		for _, v := range doc.Record.Variations {
			lower := strings.ToLower(v)
			if v == "" || seen[lower] {
				continue
			}
			seen[lower] = true
			merged = append(merged, v)
		}
	}

	winner.Record.Variations = merged
	winner.Record.UsageCount = total
	winner.Touch(now)

	losers := make([]string, 0, len(group)-1)
	for _, doc := range group[1:] {
		losers = append(losers, doc.ID)
	}

	return winner, losers
}
