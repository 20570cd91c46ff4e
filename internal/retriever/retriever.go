package retriever

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/docrag-mcp/internal/chunker"
	"github.com/dshills/docrag-mcp/internal/embedder"
	"github.com/dshills/docrag-mcp/internal/storage"
	"github.com/dshills/docrag-mcp/pkg/types"
)

// ErrIndexBusy is returned when an EnsureIndex call overlaps a running one
var ErrIndexBusy = errors.New("indexing already in progress")

// Retriever indexes a markdown corpus and answers retrieval queries.
// It holds configuration only; the store opens and closes per operation.
type Retriever struct {
	cfg    Config
	embed  embedder.Embedder // nil when the semantic signal is off
	lock   IndexLock
	logger *log.Logger
}

// Options override per-query limits. Zero values fall back to the
// retriever's configured defaults.
type Options struct {
	TopK          int
	MaxChars      int
	LexicalLimit  int
	SemanticLimit int
}

// Status describes the index for diagnostics
type Status struct {
	CorpusDir          string  `json:"corpus_dir"`
	DBPath             string  `json:"db_path"`
	DatabaseAccessible bool    `json:"database_accessible"`
	Sources            int     `json:"sources"`
	Chunks             int     `json:"chunks"`
	Embeddings         int     `json:"embeddings"`
	SizeMB             float64 `json:"size_mb"`
	Semantic           bool    `json:"semantic"`
	EmbeddingModel     string  `json:"embedding_model,omitempty"`
}

// IndexStats summarizes one EnsureIndex pass
type IndexStats struct {
	FilesScanned     int `json:"files_scanned"`
	FilesIndexed     int `json:"files_indexed"`
	FilesSkipped     int `json:"files_skipped"`
	ChunksWritten    int `json:"chunks_written"`
	EmbeddingsCached int `json:"embeddings_cached"`
}

// New creates a Retriever. When semantic retrieval is enabled and an API
// key is present it wires up the embedding provider; otherwise queries
// run keyword-only.
func New(cfg Config) (*Retriever, error) {
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Retriever{
		cfg:    cfg,
		logger: log.New(os.Stderr, "[docrag] ", log.LstdFlags),
	}

	if cfg.Semantic && cfg.APIKey != "" {
		emb, err := embedder.New(embedder.Config{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			CacheSize: 10000,
		})
		if err != nil {
			return nil, fmt.Errorf("create embedder: %w", err)
		}
		r.embed = emb
	}

	return r, nil
}

// NewWithEmbedder creates a Retriever with an injected embedding provider
func NewWithEmbedder(cfg Config, emb embedder.Embedder) (*Retriever, error) {
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Retriever{
		cfg:    cfg,
		embed:  emb,
		logger: log.New(os.Stderr, "[docrag] ", log.LstdFlags),
	}, nil
}

// Close releases the embedding provider, if any
func (r *Retriever) Close() error {
	if r.embed != nil {
		return r.embed.Close()
	}
	return nil
}

// EnsureIndex synchronizes the store with the corpus directory. Files
// whose stored fingerprint matches are skipped; changed files are
// re-chunked inside one transaction. A missing corpus directory is a
// no-op, and unreadable files are skipped with a log line rather than
// failing the pass. When the semantic signal is on, missing or stale
// embeddings are fetched afterwards on a best-effort basis.
func (r *Retriever) EnsureIndex(ctx context.Context) (*IndexStats, error) {
	if !r.lock.TryAcquire() {
		return nil, ErrIndexBusy
	}
	defer r.lock.Release()

	stats := &IndexStats{}

	entries, err := os.ReadDir(r.cfg.CorpusDir)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return nil, fmt.Errorf("read corpus dir: %w", err)
	}

	store, err := storage.Open(r.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		stats.FilesScanned++
		written, err := r.indexFile(ctx, store, entry.Name())
		if err != nil {
			return nil, err
		}
		if written > 0 {
			stats.FilesIndexed++
			stats.ChunksWritten += written
		} else {
			stats.FilesSkipped++
		}
	}

	if r.embed != nil {
		stats.EmbeddingsCached = r.ensureEmbeddingsCached(ctx, store)
	}

	return stats, nil
}

// indexFile brings one corpus file up to date and reports how many chunk
// rows it wrote; zero means the file was skipped.
func (r *Retriever) indexFile(ctx context.Context, store *storage.Store, name string) (int, error) {
	data, err := os.ReadFile(filepath.Join(r.cfg.CorpusDir, name))
	if err != nil {
		r.logger.Printf("skipping unreadable file %s: %v", name, err)
		return 0, nil
	}

	content := string(data)
	fileHash := types.Fingerprint(content)

	src, err := store.GetSource(ctx, name)
	if err == nil && src.FileHash == fileHash {
		return 0, nil
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return 0, fmt.Errorf("get source %s: %w", name, err)
	}

	chunks := chunker.SplitMarkdown(content, name)

	tx, err := store.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := tx.DeleteChunksBySource(ctx, name); err != nil {
		return 0, fmt.Errorf("delete chunks for %s: %w", name, err)
	}
	for _, chunk := range chunks {
		row := &storage.ChunkRow{
			SourceFile:   chunk.SourceFile,
			SectionTitle: chunk.SectionTitle,
			Content:      chunk.Content,
			ContentHash:  chunk.ContentHash,
		}
		if err := tx.InsertChunk(ctx, row); err != nil {
			return 0, fmt.Errorf("insert chunk for %s: %w", name, err)
		}
	}
	if err := tx.UpsertSource(ctx, &storage.Source{SourceFile: name, FileHash: fileHash}); err != nil {
		return 0, fmt.Errorf("upsert source %s: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit %s: %w", name, err)
	}

	r.logger.Printf("indexed %s (%d chunks)", name, len(chunks))
	return len(chunks), nil
}

// ensureEmbeddingsCached embeds chunks with no cached vector for the
// current model, or with a stale content hash, and reports how many it
// cached. Provider failures abort the pass and leave the cache partial;
// retrieval degrades gracefully over whatever was cached.
func (r *Retriever) ensureEmbeddingsCached(ctx context.Context, store *storage.Store) int {
	pending, err := store.ListPendingEmbeddings(ctx, r.cfg.Model)
	if err != nil {
		r.logger.Printf("list pending embeddings: %v", err)
		return 0
	}

	cached := 0
	for start := 0; start < len(pending); start += r.cfg.BatchSize {
		end := start + r.cfg.BatchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = p.Content
		}

		vectors, err := r.embed.EmbedBatch(ctx, texts)
		if err != nil {
			r.logger.Printf("embedding batch failed, leaving cache partial: %v", err)
			return cached
		}

		for i, p := range batch {
			if len(vectors[i]) == 0 {
				continue
			}
			emb := &storage.EmbeddingRow{
				ChunkID:     p.ChunkID,
				Model:       r.cfg.Model,
				Dim:         len(vectors[i]),
				Vector:      storage.SerializeVector(vectors[i]),
				ContentHash: p.ContentHash,
			}
			if err := store.UpsertEmbedding(ctx, emb); err != nil {
				r.logger.Printf("cache embedding for chunk %d: %v", p.ChunkID, err)
				return cached
			}
			cached++
		}
	}
	return cached
}

// Retrieve answers a query with a packed context string and the scored
// hits behind it. An empty query returns empty results without touching
// the store; a store that does not exist yet triggers a lazy EnsureIndex.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts Options) (string, []types.Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", nil, nil
	}

	topK := r.cfg.TopK
	if opts.TopK > 0 {
		topK = opts.TopK
	}
	maxChars := r.cfg.MaxChars
	if opts.MaxChars > 0 {
		maxChars = opts.MaxChars
	}
	lexicalLimit := r.cfg.LexicalLimit
	if opts.LexicalLimit > 0 {
		lexicalLimit = opts.LexicalLimit
	}
	semanticLimit := r.cfg.SemanticLimit
	if opts.SemanticLimit > 0 {
		semanticLimit = opts.SemanticLimit
	}

	if _, err := os.Stat(r.cfg.DBPath); os.IsNotExist(err) {
		if _, err := r.EnsureIndex(ctx); err != nil && !errors.Is(err, ErrIndexBusy) {
			return "", nil, err
		}
	}

	store, err := storage.Open(r.cfg.DBPath)
	if err != nil {
		return "", nil, fmt.Errorf("open store: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	var lexical, semantic map[int64]float64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lexical = r.lexicalSearch(gctx, store, query, lexicalLimit)
		return nil
	})
	g.Go(func() error {
		semantic = r.semanticSearch(gctx, store, query, semanticLimit)
		return nil
	})
	_ = g.Wait()

	candidates := make(map[int64]struct{}, len(lexical)+len(semantic))
	for id := range lexical {
		candidates[id] = struct{}{}
	}
	for id := range semantic {
		candidates[id] = struct{}{}
	}
	if len(candidates) == 0 {
		return "", nil, nil
	}

	ids := make([]int64, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	chunks, err := store.GetChunksByIDs(ctx, ids)
	if err != nil {
		return "", nil, fmt.Errorf("fetch candidate chunks: %w", err)
	}

	lexNorm := normalizeLexical(lexical)
	semNorm := normalizeSemantic(semantic)

	hits := make([]types.Hit, 0, len(chunks))
	for _, c := range chunks {
		lex, sem, final := fuseScores(lexNorm, semNorm, c.ID, r.cfg.KeywordWeight, r.cfg.SemanticWeight)
		hits = append(hits, types.Hit{
			ChunkID:       c.ID,
			SourceFile:    c.SourceFile,
			SectionTitle:  c.SectionTitle,
			Content:       c.Content,
			LexicalScore:  lex,
			SemanticScore: sem,
			FinalScore:    final,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].FinalScore != hits[j].FinalScore {
			return hits[i].FinalScore > hits[j].FinalScore
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}

	return FormatContext(hits, maxChars), hits, nil
}

// lexicalSearch runs the BM25 signal, degrading to empty on any failure
func (r *Retriever) lexicalSearch(ctx context.Context, store *storage.Store, query string, limit int) map[int64]float64 {
	match := ftsQuery(query)
	if match == "" {
		return nil
	}

	results, err := store.SearchText(ctx, match, limit)
	if err != nil {
		r.logger.Printf("keyword search degraded: %v", err)
		return nil
	}

	scores := make(map[int64]float64, len(results))
	for _, res := range results {
		scores[res.ChunkID] = res.Score
	}
	return scores
}

// semanticSearch embeds the query and scores it against every cached
// vector for the current model. Any failure degrades to empty.
func (r *Retriever) semanticSearch(ctx context.Context, store *storage.Store, query string, limit int) map[int64]float64 {
	if r.embed == nil {
		return nil
	}

	// Top up the durable cache before scoring against it
	r.ensureEmbeddingsCached(ctx, store)

	vectors, err := r.embed.EmbedBatch(ctx, []string{query})
	if err != nil || len(vectors) == 0 || len(vectors[0]) == 0 {
		r.logger.Printf("semantic search degraded: query embedding unavailable: %v", err)
		return nil
	}
	queryVec := vectors[0]

	rows, err := store.ListEmbeddings(ctx, r.cfg.Model)
	if err != nil {
		r.logger.Printf("semantic search degraded: %v", err)
		return nil
	}

	type scored struct {
		id  int64
		sim float64
	}
	all := make([]scored, 0, len(rows))
	for _, row := range rows {
		vec := storage.DeserializeVector(row.Vector, row.Dim)
		if vec == nil {
			continue
		}
		all = append(all, scored{id: row.ChunkID, sim: storage.CosineSimilarity(queryVec, vec)})
	}

	sort.Slice(all, func(i, j int) bool { return all[i].sim > all[j].sim })
	if len(all) > limit {
		all = all[:limit]
	}

	scores := make(map[int64]float64, len(all))
	for _, s := range all {
		scores[s.id] = s.sim
	}
	return scores
}

// GetStatus reports index statistics for diagnostics
func (r *Retriever) GetStatus(ctx context.Context) (*Status, error) {
	status := &Status{
		CorpusDir: r.cfg.CorpusDir,
		DBPath:    r.cfg.DBPath,
		Semantic:  r.embed != nil,
	}
	if r.embed != nil {
		status.EmbeddingModel = r.embed.Model()
	}

	if _, err := os.Stat(r.cfg.DBPath); os.IsNotExist(err) {
		return status, nil
	}

	store, err := storage.Open(r.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()
	status.DatabaseAccessible = true

	stats, err := store.GetStats(ctx)
	if err != nil {
		return nil, err
	}
	status.Sources = stats.Sources
	status.Chunks = stats.Chunks
	status.Embeddings = stats.Embeddings
	status.SizeMB = stats.SizeMB
	return status, nil
}
