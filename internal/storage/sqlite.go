package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
)

// Source tracks the last-seen fingerprint of one corpus file
type Source struct {
	SourceFile string
	FileHash   string
	IndexedAt  time.Time
}

// ChunkRow is a persisted retrieval unit
type ChunkRow struct {
	ID           int64
	SourceFile   string
	SectionTitle string
	Content      string
	ContentHash  string
	IndexedAt    time.Time
}

// EmbeddingRow is a cached vector for a chunk. Vector holds the packed
// little-endian float32 representation; Dim is its element count.
type EmbeddingRow struct {
	ChunkID     int64
	Model       string
	Dim         int
	Vector      []byte
	ContentHash string
	CreatedAt   time.Time
}

// PendingChunk is a chunk that needs (re-)embedding for the active model:
// either no cached record exists or the cached fingerprint is stale.
type PendingChunk struct {
	ChunkID     int64
	Content     string
	ContentHash string
}

// TextResult is one lexical search candidate with its raw BM25 score.
// FTS5 bm25() returns negative values where more negative means a better
// match; normalization happens upstream.
type TextResult struct {
	ChunkID int64
	Score   float64
}

// Stats summarizes the index contents
type Stats struct {
	Sources    int
	Chunks     int
	Embeddings int
	SizeMB     float64
}

// Store wraps a SQLite database holding the retrieval index
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the index database at path and
// applies any pending migrations. ":memory:" is accepted for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL keeps readers unblocked during an indexing pass
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *Store) BeginTx(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx, store: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Tx wraps a SQL transaction over the store
type Tx struct {
	tx    *sql.Tx
	store *Store
}

func (t *Tx) Commit() error {
	return t.tx.Commit()
}

func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// Source operations

func getSource(ctx context.Context, q querier, sourceFile string) (*Source, error) {
	query := `SELECT source_file, file_hash, indexed_at FROM sources WHERE source_file = ?`
	var src Source
	var indexedAt int64
	err := q.QueryRowContext(ctx, query, sourceFile).Scan(&src.SourceFile, &src.FileHash, &indexedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	src.IndexedAt = time.Unix(indexedAt, 0)
	return &src, nil
}

func (s *Store) GetSource(ctx context.Context, sourceFile string) (*Source, error) {
	return getSource(ctx, s.db, sourceFile)
}

func (t *Tx) GetSource(ctx context.Context, sourceFile string) (*Source, error) {
	return getSource(ctx, t.tx, sourceFile)
}

func upsertSource(ctx context.Context, q querier, src *Source) error {
	query := `
		INSERT INTO sources (source_file, file_hash, indexed_at)
		VALUES (?, ?, ?)
		ON CONFLICT(source_file) DO UPDATE SET
			file_hash = excluded.file_hash,
			indexed_at = excluded.indexed_at
	`
	if src.IndexedAt.IsZero() {
		src.IndexedAt = time.Now()
	}
	if _, err := q.ExecContext(ctx, query, src.SourceFile, src.FileHash, src.IndexedAt.Unix()); err != nil {
		return fmt.Errorf("failed to upsert source: %w", err)
	}
	return nil
}

func (s *Store) UpsertSource(ctx context.Context, src *Source) error {
	return upsertSource(ctx, s.db, src)
}

func (t *Tx) UpsertSource(ctx context.Context, src *Source) error {
	return upsertSource(ctx, t.tx, src)
}

// Chunk operations

func insertChunk(ctx context.Context, q querier, chunk *ChunkRow) error {
	query := `
		INSERT INTO chunks (source_file, section_title, content, content_hash, indexed_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if chunk.IndexedAt.IsZero() {
		chunk.IndexedAt = time.Now()
	}
	result, err := q.ExecContext(ctx, query,
		chunk.SourceFile, chunk.SectionTitle, chunk.Content, chunk.ContentHash, chunk.IndexedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert chunk: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	chunk.ID = id
	return nil
}

func (s *Store) InsertChunk(ctx context.Context, chunk *ChunkRow) error {
	return insertChunk(ctx, s.db, chunk)
}

func (t *Tx) InsertChunk(ctx context.Context, chunk *ChunkRow) error {
	return insertChunk(ctx, t.tx, chunk)
}

// deleteChunksBySource removes all chunks for one corpus file. The FTS
// delete trigger removes the matching index entries by rowid.
func deleteChunksBySource(ctx context.Context, q querier, sourceFile string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM chunks WHERE source_file = ?`, sourceFile)
	return err
}

func (s *Store) DeleteChunksBySource(ctx context.Context, sourceFile string) error {
	return deleteChunksBySource(ctx, s.db, sourceFile)
}

func (t *Tx) DeleteChunksBySource(ctx context.Context, sourceFile string) error {
	return deleteChunksBySource(ctx, t.tx, sourceFile)
}

func scanChunkRows(rows *sql.Rows) ([]*ChunkRow, error) {
	defer func() { _ = rows.Close() }()

	chunks := make([]*ChunkRow, 0)
	for rows.Next() {
		var chunk ChunkRow
		var indexedAt int64
		err := rows.Scan(&chunk.ID, &chunk.SourceFile, &chunk.SectionTitle,
			&chunk.Content, &chunk.ContentHash, &indexedAt)
		if err != nil {
			return nil, err
		}
		chunk.IndexedAt = time.Unix(indexedAt, 0)
		chunks = append(chunks, &chunk)
	}
	return chunks, rows.Err()
}

// GetChunksByIDs fetches chunk rows for a candidate set. Rows come back
// ordered by id; ordering by relevance happens upstream.
func (s *Store) GetChunksByIDs(ctx context.Context, ids []int64) ([]*ChunkRow, error) {
	if len(ids) == 0 {
		return []*ChunkRow{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := `
		SELECT id, source_file, section_title, content, content_hash, indexed_at
		FROM chunks
		WHERE id IN (` + strings.Join(placeholders, ",") + `)
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanChunkRows(rows)
}

// ListChunksBySource returns all chunks for one corpus file in insertion order
func (s *Store) ListChunksBySource(ctx context.Context, sourceFile string) ([]*ChunkRow, error) {
	query := `
		SELECT id, source_file, section_title, content, content_hash, indexed_at
		FROM chunks
		WHERE source_file = ?
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query, sourceFile)
	if err != nil {
		return nil, err
	}
	return scanChunkRows(rows)
}

// Embedding operations

// ListPendingEmbeddings returns chunks with no cached embedding for model,
// or whose cached fingerprint no longer matches the chunk content.
func (s *Store) ListPendingEmbeddings(ctx context.Context, model string) ([]PendingChunk, error) {
	query := `
		SELECT c.id, c.content, c.content_hash
		FROM chunks c
		LEFT JOIN embeddings e
		  ON e.chunk_id = c.id AND e.model = ?
		WHERE e.chunk_id IS NULL OR e.content_hash != c.content_hash
		ORDER BY c.id
	`
	rows, err := s.db.QueryContext(ctx, query, model)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	pending := make([]PendingChunk, 0)
	for rows.Next() {
		var p PendingChunk
		if err := rows.Scan(&p.ChunkID, &p.Content, &p.ContentHash); err != nil {
			return nil, err
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

func upsertEmbedding(ctx context.Context, q querier, emb *EmbeddingRow) error {
	query := `
		INSERT INTO embeddings (chunk_id, model, dim, vector, content_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			model = excluded.model,
			dim = excluded.dim,
			vector = excluded.vector,
			content_hash = excluded.content_hash,
			created_at = excluded.created_at
	`
	if emb.CreatedAt.IsZero() {
		emb.CreatedAt = time.Now()
	}
	_, err := q.ExecContext(ctx, query,
		emb.ChunkID, emb.Model, emb.Dim, emb.Vector, emb.ContentHash, emb.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}
	return nil
}

func (s *Store) UpsertEmbedding(ctx context.Context, emb *EmbeddingRow) error {
	return upsertEmbedding(ctx, s.db, emb)
}

func (t *Tx) UpsertEmbedding(ctx context.Context, emb *EmbeddingRow) error {
	return upsertEmbedding(ctx, t.tx, emb)
}

// GetEmbedding fetches the cached embedding for one chunk
func (s *Store) GetEmbedding(ctx context.Context, chunkID int64) (*EmbeddingRow, error) {
	query := `
		SELECT chunk_id, model, dim, vector, content_hash, created_at
		FROM embeddings
		WHERE chunk_id = ?
	`
	var emb EmbeddingRow
	var createdAt int64
	err := s.db.QueryRowContext(ctx, query, chunkID).Scan(
		&emb.ChunkID, &emb.Model, &emb.Dim, &emb.Vector, &emb.ContentHash, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	emb.CreatedAt = time.Unix(createdAt, 0)
	return &emb, nil
}

// ListEmbeddings returns all cached embeddings for the given model
func (s *Store) ListEmbeddings(ctx context.Context, model string) ([]*EmbeddingRow, error) {
	query := `
		SELECT chunk_id, model, dim, vector, content_hash, created_at
		FROM embeddings
		WHERE model = ?
		ORDER BY chunk_id
	`
	rows, err := s.db.QueryContext(ctx, query, model)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	embeddings := make([]*EmbeddingRow, 0)
	for rows.Next() {
		var emb EmbeddingRow
		var createdAt int64
		err := rows.Scan(&emb.ChunkID, &emb.Model, &emb.Dim, &emb.Vector, &emb.ContentHash, &createdAt)
		if err != nil {
			return nil, err
		}
		emb.CreatedAt = time.Unix(createdAt, 0)
		embeddings = append(embeddings, &emb)
	}
	return embeddings, rows.Err()
}

// Search operations

// SearchText runs a ranked FTS5 MATCH query and returns raw bm25 scores.
// The match string must already be sanitized; FTS syntax errors surface
// as an error the caller is expected to degrade on.
func (s *Store) SearchText(ctx context.Context, match string, limit int) ([]TextResult, error) {
	query := `
		SELECT rowid, bm25(chunks_fts) AS score
		FROM chunks_fts
		WHERE chunks_fts MATCH ?
		ORDER BY score
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, match, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute FTS search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]TextResult, 0)
	for rows.Next() {
		var r TextResult
		if err := rows.Scan(&r.ChunkID, &r.Score); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Status operations

// GetStats returns index row counts and on-disk size
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sources").Scan(&stats.Sources); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&stats.Chunks); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embeddings").Scan(&stats.Embeddings); err != nil {
		return nil, err
	}

	var pageCount, pageSize int
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		stats.SizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	return stats, nil
}
