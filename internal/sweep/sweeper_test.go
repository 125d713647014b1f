package sweep

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dietmate/categorizer/internal/common"
	"github.com/dietmate/categorizer/internal/docstore"
	"github.com/dietmate/categorizer/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(id, name, category string, usage int, updated time.Time, variations ...string) model.Document {
	return model.Document{
		ID:   id,
		Name: name,
		Record: model.CategoryRecord{
			CanonicalKey: name,
			CategoryID:   category,
			UsageCount:   usage,
			UpdatedAt:    updated,
			Variations:   variations,
		},
	}
}

func TestCleanupDuplicates_MergesGroup(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()

	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(48 * time.Hour)

	store.Seed(
		doc("mleko", "mleko", "dairy", 10, newer, "Mleko 1l", "mleko 500ml"),
		doc("mleko-l", "Mleko 1l", "dairy", 4, older, "MLEKO 1L", "Mleko 2l"),
		doc("pomidor", "pomidor", "vegetables", 3, older, "Pomidory"),
	)

	res, err := NewSweeper(store).CleanupDuplicates(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Documents)
	assert.Equal(t, 1, res.Merged)
	assert.Equal(t, 1, res.Deleted)

	docs, err := store.FindByField(ctx, model.FieldCanonicalKey, "mleko")
	require.NoError(t, err)
	require.Len(t, docs, 1, "exactly one record per canonical key after a sweep")

	winner := docs[0]
	assert.Equal(t, "mleko", winner.ID, "most recently updated document wins")
	assert.Equal(t, 14, winner.Record.UsageCount, "usage counts sum")
	assert.ElementsMatch(t,
		[]string{"Mleko 1l", "mleko 500ml", "Mleko 2l"},
		winner.Record.Variations,
		"variations union with case-insensitive dedup")
	assert.True(t, winner.Record.UpdatedAt.After(newer), "winner's UpdatedAt is refreshed")

	// The untouched singleton is still there.
	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCleanupDuplicates_TieIsDeterministic(t *testing.T) {
	ctx := context.Background()
	ts := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	// Same UpdatedAt on both documents: the sweep must still leave exactly
	// one winner, and repeated runs from the same state must agree.
	var winners []string
	for i := 0; i < 3; i++ {
		store := docstore.NewMemoryStore()
		store.Seed(
			doc("ser-b", "ser", "dairy", 1, ts, "Ser"),
			doc("ser-a", "ser", "deli", 2, ts, "ser żółty"),
		)

		_, err := NewSweeper(store).CleanupDuplicates(ctx)
		require.NoError(t, err)

		docs, err := store.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		winners = append(winners, docs[0].ID)
	}

	assert.Equal(t, winners[0], winners[1])
	assert.Equal(t, winners[1], winners[2])
}

func TestCleanupDuplicates_RegroupsByRecomputedKey(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	ts := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	// Stored keys are stale; grouping must go by the key recomputed from
	// the stored name, so "Mleko 1l" and "mleko" collide.
	a := doc("a", "Mleko 1l", "dairy", 1, ts, "Mleko 1l")
	a.Record.CanonicalKey = "mleko 1l"
	b := doc("b", "mleko", "dairy", 2, ts.Add(time.Hour), "mleko")

	store.Seed(a, b)

	res, err := NewSweeper(store).CleanupDuplicates(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Merged)

	docs, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "mleko", docs[0].Record.CanonicalKey)
	assert.Equal(t, 3, docs[0].Record.UsageCount)
}

func TestCleanupDuplicates_ReadFailureSurfaces(t *testing.T) {
	store := docstore.NewMemoryStore()
	store.GetAllErr = errors.New("transport down")

	_, err := NewSweeper(store).CleanupDuplicates(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "transport down")
}

func TestCleanupDuplicates_PartialFailureKeepsCommittedChunks(t *testing.T) {
	ctx := context.Background()
	// Chunk limit 2: each merge (1 upsert + 1 delete) fills a chunk, so the
	// second merge lands in the second commit, which is made to fail.
	store := docstore.NewMemoryStore().WithChunkLimit(2)
	store.FailAfterCommits = 1
	ts := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	store.Seed(
		doc("jajka", "jajka", "eggs", 1, ts.Add(time.Hour), "Jajka"),
		doc("jajka-szt", "Jajka 10 szt", "eggs", 1, ts, "Jajka 10 szt"),
		doc("mleko", "mleko", "dairy", 1, ts.Add(time.Hour), "mleko"),
		doc("mleko-l", "Mleko 1l", "dairy", 1, ts, "Mleko 1l"),
	)

	res, err := NewSweeper(store).CleanupDuplicates(ctx)
	require.Error(t, err)

	// First merge committed and stays committed; groups are processed in
	// sorted key order, so "jajka" merged before "mleko" failed.
	assert.Equal(t, 1, store.Commits())
	assert.GreaterOrEqual(t, res.Merged, 1)

	docs, err := store.FindByField(ctx, model.FieldCanonicalKey, "jajka")
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n, "mleko group untouched by the aborted chunk")
}

func TestCleanupDuplicates_GroupStraddlingChunkLimit(t *testing.T) {
	ctx := context.Background()
	// Limit 3 with two 2-op merge groups: queuing both groups into one
	// batch would cross the limit mid-group and the commit would be
	// rejected outright, so the second group must flush the first before
	// it queues.
	store := docstore.NewMemoryStore().WithChunkLimit(3)
	ts := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	store.Seed(
		doc("jajka", "jajka", "eggs", 1, ts.Add(time.Hour), "Jajka"),
		doc("jajka-szt", "Jajka 10 szt", "eggs", 2, ts, "Jajka 10 szt"),
		doc("mleko", "mleko", "dairy", 1, ts.Add(time.Hour), "mleko"),
		doc("mleko-l", "Mleko 1l", "dairy", 2, ts, "Mleko 1l"),
	)

	res, err := NewSweeper(store).CleanupDuplicates(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Merged)
	assert.Equal(t, 2, store.Commits(), "groups land in separate chunks")

	docs, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	// A second sweep finds nothing left to merge.
	res, err = NewSweeper(store).CleanupDuplicates(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Merged)
}

func TestCleanupDuplicates_GroupLargerThanChunkLimit(t *testing.T) {
	ctx := context.Background()
	// One 5-document group at limit 3: the single merge (1 upsert + 4
	// deletes) cannot fit in one chunk and must be split across commits.
	store := docstore.NewMemoryStore().WithChunkLimit(3)
	ts := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	store.Seed(
		doc("chleb", "chleb", "bakery", 1, ts.Add(time.Hour), "Chleb"),
		doc("chleb-b", "chleb", "bakery", 2, ts, "chleb razowy"),
		doc("chleb-c", "chleb", "bakery", 3, ts, "CHLEB"),
		doc("chleb-d", "chleb", "bakery", 4, ts, "chleb żytni"),
		doc("chleb-e", "chleb", "bakery", 5, ts, "chlebek"),
	)

	res, err := NewSweeper(store).CleanupDuplicates(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Merged)
	assert.Equal(t, 4, res.Deleted)
	assert.Equal(t, 2, store.Commits())

	docs, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1, "oversized group still collapses to one winner")

	winner := docs[0]
	assert.Equal(t, "chleb", winner.ID)
	assert.Equal(t, 15, winner.Record.UsageCount)
	assert.ElementsMatch(t,
		[]string{"Chleb", "chleb razowy", "chleb żytni", "chlebek"},
		winner.Record.Variations)
}

func TestCleanupDuplicates_SingleFlight(t *testing.T) {
	store := docstore.NewMemoryStore()
	ts := time.Now()
	for i := 0; i < 50; i++ {
		// Letter-only suffixes: digits would be stripped from the key.
		suffix := string(rune('a'+i/26)) + string(rune('a'+i%26))
		store.Seed(
			doc("dup-a-"+suffix, "produkt "+suffix, "misc", 1, ts, "x"),
			doc("dup-b-"+suffix, "produkt "+suffix, "misc", 1, ts, "y"),
		)
	}

	s := NewSweeper(store)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.CleanupDuplicates(context.Background())
		}(i)
	}
	wg.Wait()

	// Overlapping runs either completed alone or were rejected with the
	// sentinel; no other failure mode is acceptable.
	for _, err := range errs {
		if !errors.Is(err, common.ErrSweepInProgress) {
			require.NoError(t, err)
		}
	}

	// Whatever the interleaving, the store converged.
	docs, err := store.GetAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 50)
}
