package docstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dietmate/categorizer/internal/common"
	"github.com/dietmate/categorizer/internal/model"
)

var errSimulatedCommit = errors.New("simulated commit failure")

// MemoryStore is an in-memory Store used by tests and as an injectable
// stand-in for the durable collection. Error fields let tests simulate
// transport failures; FailAfterCommits aborts the n+1th batch commit to
// exercise partial-write paths.
type MemoryStore struct {
	GetAllErr        error
	CommitErr        error
	FailAfterCommits int

	docs       map[string]model.Document
	commits    int
	chunkLimit int
	mu         sync.Mutex
}

// NewMemoryStore returns an empty in-memory store with the default chunk limit.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:             make(map[string]model.Document),
		chunkLimit:       DefaultChunkLimit,
		FailAfterCommits: -1,
	}
}

// WithChunkLimit overrides the chunk limit, letting tests force chunking
// with small datasets.
func (s *MemoryStore) WithChunkLimit(limit int) *MemoryStore {
	s.chunkLimit = limit
	return s
}

// Seed inserts documents directly, bypassing batches.
func (s *MemoryStore) Seed(docs ...model.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range docs {
		s.docs[d.ID] = cloneDoc(d)
	}
}

// Commits reports how many batches have been committed.
func (s *MemoryStore) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

// GetAll fetches every document, ordered by id for determinism.
func (s *MemoryStore) GetAll(_ context.Context) ([]model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.GetAllErr != nil {
		return nil, s.GetAllErr
	}

	out := make([]model.Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, cloneDoc(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FindByField fetches documents whose field equals value.
func (s *MemoryStore) FindByField(_ context.Context, field, value string) ([]model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.GetAllErr != nil {
		return nil, s.GetAllErr
	}

	var out []model.Document
	for _, d := range s.docs {
		if fieldValue(d, field) == value {
			out = append(out, cloneDoc(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Count reports the number of stored documents.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs), nil
}

// ChunkLimit reports the per-batch operation cap.
func (s *MemoryStore) ChunkLimit() int {
	return s.chunkLimit
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

// NewBatch starts an empty write batch.
func (s *MemoryStore) NewBatch() Batch {
	return &memoryBatch{store: s}
}

type memoryBatch struct {
	store *MemoryStore
	ops   []batchOp
}

func (b *memoryBatch) Upsert(doc model.Document) {
	b.ops = append(b.ops, batchOp{doc: doc, id: doc.ID})
}

func (b *memoryBatch) Delete(id string) {
	b.ops = append(b.ops, batchOp{id: id, isDelete: true})
}

func (b *memoryBatch) Len() int {
	return len(b.ops)
}

func (b *memoryBatch) Commit(_ context.Context) error {
	s := b.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(b.ops) > s.chunkLimit {
		return fmt.Errorf("%w: %d > %d", common.ErrChunkTooLarge, len(b.ops), s.chunkLimit)
	}

	if s.FailAfterCommits >= 0 && s.commits >= s.FailAfterCommits {
		return s.commitErr()
	}
	if s.CommitErr != nil && s.FailAfterCommits < 0 {
		return s.CommitErr
	}

	for _, op := range b.ops {
		if op.isDelete {
			delete(s.docs, op.id)
			continue
		}
		s.docs[op.doc.ID] = cloneDoc(op.doc)
	}
	s.commits++

	return nil
}

func (s *MemoryStore) commitErr() error {
	if s.CommitErr != nil {
		return s.CommitErr
	}
	return errSimulatedCommit
}

func fieldValue(d model.Document, field string) string {
	switch field {
	case model.FieldCanonicalKey:
		return d.Record.CanonicalKey
	case model.FieldName:
		return d.Name
	case model.FieldCategoryID:
		return d.Record.CategoryID
	default:
		return ""
	}
}

func cloneDoc(d model.Document) model.Document {
	d.Record = d.Record.Clone()
	return d
}
