package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dietmate/categorizer/internal/common"
	"github.com/dietmate/categorizer/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// queryableFields are the stored columns FindByField may filter on. The
// field name is interpolated into SQL, so it is validated against this set.
var queryableFields = map[string]bool{
	model.FieldCanonicalKey: true,
	model.FieldName:         true,
	model.FieldCategoryID:   true,
}

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db         *sql.DB
	dbPath     string
	chunkLimit int
}

// NewSQLiteStore opens (and if necessary creates) the document collection
// at dbPath. Pass ":memory:" for an ephemeral store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("%w: dbPath is required", common.ErrInvalidConfig)
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping store: %w", err)
	}

	s := &SQLiteStore{db: db, dbPath: dbPath, chunkLimit: DefaultChunkLimit}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			canonical_key TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL DEFAULT '',
			category_id TEXT NOT NULL DEFAULT '',
			usage_count INTEGER NOT NULL DEFAULT 0,
			variations TEXT NOT NULL DEFAULT '[]',
			created_at TIMESTAMP,
			updated_at TIMESTAMP,
			last_used TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_documents_canonical_key ON documents(canonical_key);
	`)
	if err != nil {
		return fmt.Errorf("failed to migrate store: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ChunkLimit reports the per-batch operation cap.
func (s *SQLiteStore) ChunkLimit() int {
	return s.chunkLimit
}

// GetAll fetches every stored document.
func (s *SQLiteStore) GetAll(ctx context.Context) ([]model.Document, error) {
	return s.queryDocuments(ctx, `
		SELECT id, canonical_key, name, category_id, usage_count, variations,
		       created_at, updated_at, last_used
		FROM documents
		ORDER BY id
	`)
}

// FindByField fetches documents whose field equals value.
func (s *SQLiteStore) FindByField(ctx context.Context, field, value string) ([]model.Document, error) {
	if !queryableFields[field] {
		return nil, fmt.Errorf("field %q is not queryable", field)
	}
	return s.queryDocuments(ctx, fmt.Sprintf(`
		SELECT id, canonical_key, name, category_id, usage_count, variations,
		       created_at, updated_at, last_used
		FROM documents
		WHERE %s = ?
		ORDER BY id
	`, field), value)
}

// Count reports the number of stored documents.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) queryDocuments(ctx context.Context, query string, args ...any) ([]model.Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []model.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	return docs, nil
}

func scanDocument(rows *sql.Rows) (model.Document, error) {
	var (
		doc        model.Document
		variations string
		createdAt  sql.NullTime
		updatedAt  sql.NullTime
		lastUsed   sql.NullTime
	)

	err := rows.Scan(
		&doc.ID,
		&doc.Record.CanonicalKey,
		&doc.Name,
		&doc.Record.CategoryID,
		&doc.Record.UsageCount,
		&variations,
		&createdAt,
		&updatedAt,
		&lastUsed,
	)
	if err != nil {
		return model.Document{}, fmt.Errorf("failed to scan document: %w", err)
	}

	if err := json.Unmarshal([]byte(variations), &doc.Record.Variations); err != nil {
		return model.Document{}, fmt.Errorf("failed to decode variations for %s: %w", doc.ID, err)
	}
	doc.Record.CreatedAt = createdAt.Time
	doc.Record.UpdatedAt = updatedAt.Time
	doc.Record.LastUsed = lastUsed.Time

	return doc, nil
}

// NewBatch starts an empty write batch.
func (s *SQLiteStore) NewBatch() Batch {
	return &sqliteBatch{store: s}
}

type batchOp struct {
	doc      model.Document
	id       string
	isDelete bool
}

type sqliteBatch struct {
	store *SQLiteStore
	ops   []batchOp
}

func (b *sqliteBatch) Upsert(doc model.Document) {
	b.ops = append(b.ops, batchOp{doc: doc, id: doc.ID})
}

func (b *sqliteBatch) Delete(id string) {
	b.ops = append(b.ops, batchOp{id: id, isDelete: true})
}

func (b *sqliteBatch) Len() int {
	return len(b.ops)
}

// Commit applies the batch inside a single SQL transaction, so a chunk is
// all-or-nothing even though a sequence of chunks is not.
func (b *sqliteBatch) Commit(ctx context.Context) error {
	if len(b.ops) > b.store.chunkLimit {
		return fmt.Errorf("%w: %d > %d", common.ErrChunkTooLarge, len(b.ops), b.store.chunkLimit)
	}

	tx, err := b.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, op := range b.ops {
		if op.isDelete {
			if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, op.id); err != nil {
				return fmt.Errorf("failed to delete %s: %w", op.id, err)
			}
			continue
		}
		if err := upsertTx(ctx, tx, op.doc); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// upsertTx merge-writes doc: on conflict only the columns the document
// model carries are replaced, anything else on the row stays as it was.
func upsertTx(ctx context.Context, tx *sql.Tx, doc model.Document) error {
	variations, err := json.Marshal(nonNil(doc.Record.Variations))
	if err != nil {
		return fmt.Errorf("failed to encode variations for %s: %w", doc.ID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, canonical_key, name, category_id, usage_count, variations, created_at, updated_at, last_used)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			canonical_key = excluded.canonical_key,
			name = excluded.name,
			category_id = excluded.category_id,
			usage_count = excluded.usage_count,
			variations = excluded.variations,
			updated_at = excluded.updated_at,
			last_used = excluded.last_used
	`,
		doc.ID,
		doc.Record.CanonicalKey,
		doc.Name,
		doc.Record.CategoryID,
		doc.Record.UsageCount,
		string(variations),
		nullTime(doc.Record.CreatedAt),
		nullTime(doc.Record.UpdatedAt),
		nullTime(doc.Record.LastUsed),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", doc.ID, err)
	}

	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
