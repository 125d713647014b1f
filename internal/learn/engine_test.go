package learn

import (
	"context"
	"testing"
	"time"

	"github.com/dietmate/categorizer/internal/dataset"
	"github.com/dietmate/categorizer/internal/docstore"
	"github.com/dietmate/categorizer/internal/match"
	"github.com/dietmate/categorizer/internal/model"
	"github.com/dietmate/categorizer/internal/persist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine() (*Engine, *dataset.Dataset, *docstore.MemoryStore) {
	store := docstore.NewMemoryStore()
	data := dataset.New()
	return NewEngine(data, persist.NewGateway(store)), data, store
}

func TestUpdateCategorization_CreatesRecord(t *testing.T) {
	engine, data, _ := newTestEngine()

	engine.UpdateCategorization(model.Item{OriginalText: "Mleko 3,2% 1l", Name: "Mleko 3,2% 1l"}, "dairy")

	r, ok := data.Get("mleko")
	require.True(t, ok)
	assert.Equal(t, "dairy", r.CategoryID)
	assert.Equal(t, 1, r.UsageCount)
	assert.Equal(t, []string{"Mleko 3,2% 1l"}, r.Variations)
	assert.False(t, r.CreatedAt.IsZero())
	assert.Equal(t, r.CreatedAt, r.UpdatedAt)
	assert.Equal(t, r.CreatedAt, r.LastUsed)
}

func TestUpdateCategorization_IncrementsExisting(t *testing.T) {
	engine, data, _ := newTestEngine()

	engine.UpdateCategorization(model.Item{OriginalText: "Mleko 1l", Name: "Mleko 1l"}, "dairy")
	engine.UpdateCategorization(model.Item{OriginalText: "Mleko 500ml", Name: "Mleko 500ml"}, "dairy")

	r, ok := data.Get("mleko")
	require.True(t, ok)
	assert.Equal(t, 2, r.UsageCount)
	assert.ElementsMatch(t, []string{"Mleko 1l", "Mleko 500ml"}, r.Variations)
}

func TestUpdateCategorization_VariationDedup(t *testing.T) {
	engine, data, _ := newTestEngine()

	engine.UpdateCategorization(model.Item{OriginalText: "Mleko 1l", Name: "Mleko 1l"}, "dairy")
	engine.UpdateCategorization(model.Item{OriginalText: "Mleko 1l", Name: "Mleko 1l"}, "dairy")
	engine.UpdateCategorization(model.Item{OriginalText: "MLEKO 1L", Name: "MLEKO 1L"}, "dairy")

	r, ok := data.Get("mleko")
	require.True(t, ok)
	assert.Equal(t, 3, r.UsageCount, "every confirmation counts")
	assert.Equal(t, []string{"Mleko 1l"}, r.Variations, "case-insensitive duplicates are not re-added")
}

func TestUpdateCategorization_OverridesCategory(t *testing.T) {
	engine, data, _ := newTestEngine()

	engine.UpdateCategorization(model.Item{OriginalText: "Hummus", Name: "Hummus"}, "spreads")
	engine.UpdateCategorization(model.Item{OriginalText: "Hummus", Name: "Hummus"}, "vegan")

	r, ok := data.Get("hummus")
	require.True(t, ok)
	assert.Equal(t, "vegan", r.CategoryID, "latest confirmation wins")
}

func TestUpdateCategorization_TouchesTimestamps(t *testing.T) {
	engine, data, _ := newTestEngine()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := base
	engine.now = func() time.Time { return current }

	engine.UpdateCategorization(model.Item{OriginalText: "Masło", Name: "Masło"}, "dairy")
	current = base.Add(time.Hour)
	engine.UpdateCategorization(model.Item{OriginalText: "MASŁO 200g", Name: "Masło"}, "dairy")

	r, ok := data.Get("masło")
	require.True(t, ok)
	assert.Equal(t, base, r.CreatedAt)
	assert.Equal(t, base.Add(time.Hour), r.UpdatedAt)
	assert.Equal(t, base.Add(time.Hour), r.LastUsed)
}

func TestUpdateCategorization_NoDerivableKey(t *testing.T) {
	engine, data, _ := newTestEngine()

	engine.UpdateCategorization(model.Item{OriginalText: "123 456", Name: "1 kg"}, "misc")

	assert.Equal(t, 0, data.Len())
}

func TestUpdateCategoriesBatch_AppliesAndFlushes(t *testing.T) {
	engine, data, store := newTestEngine()
	ctx := context.Background()

	err := engine.UpdateCategoriesBatch(ctx, map[string][]model.Item{
		"dairy": {
			{OriginalText: "Mleko 1l", Name: "Mleko 1l"},
			{OriginalText: "Masło", Name: "Masło"},
		},
		"vegetables": {
			{OriginalText: "Pomidory 2kg", Name: "Pomidory 2kg"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, data.Len())

	docs, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 3)
	assert.Equal(t, 1, store.Commits())
}

func TestUpdateCategoriesBatch_FlushFailureSurfaces(t *testing.T) {
	engine, data, store := newTestEngine()
	store.FailAfterCommits = 0

	err := engine.UpdateCategoriesBatch(context.Background(), map[string][]model.Item{
		"dairy": {{OriginalText: "Mleko 1l", Name: "Mleko 1l"}},
	})
	require.Error(t, err)

	// The in-memory update stuck even though the flush failed; the batch
	// is bulk, not atomic.
	_, ok := data.Get("mleko")
	assert.True(t, ok)
}

func TestLearnThenSuggest(t *testing.T) {
	engine, data, _ := newTestEngine()
	matcher := match.NewMatcher(data)

	// Empty dataset: nothing to suggest.
	_, ok := matcher.SuggestCategory(model.Item{OriginalText: "Mleko 3,2% 1l"})
	require.False(t, ok)

	engine.UpdateCategorization(model.Item{OriginalText: "Mleko 3,2% 1l", Name: "Mleko 3,2% 1l"}, "dairy")

	// A different quantity of the same product resolves through the exact
	// tier because units are stripped from the key.
	got, ok := matcher.SuggestCategory(model.Item{OriginalText: "mleko 3,2% 500ml"})
	require.True(t, ok)
	assert.Equal(t, "dairy", got)
}
