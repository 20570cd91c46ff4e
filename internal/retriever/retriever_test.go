package retriever

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docrag-mcp/internal/embedder"
)

// stubEmbedder serves fixed vectors by text, recording call counts
type stubEmbedder struct {
	vectors map[string][]float32
	deflt   []float32
	fail    bool
	calls   int
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.fail {
		return nil, embedder.ErrProviderFailed
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if vec, ok := s.vectors[text]; ok {
			out[i] = vec
		} else {
			out[i] = s.deflt
		}
	}
	return out, nil
}

func (s *stubEmbedder) Model() string { return "stub-model" }
func (s *stubEmbedder) Close() error  { return nil }

func writeCorpusFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func mustIndex(t *testing.T, r *Retriever) *IndexStats {
	t.Helper()
	stats, err := r.EnsureIndex(context.Background())
	require.NoError(t, err)
	return stats
}

// newTestRetriever builds a keyword-only retriever over a temp corpus
func newTestRetriever(t *testing.T, files map[string]string) (*Retriever, string) {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		writeCorpusFile(t, dir, name, content)
	}

	r, err := New(Config{
		CorpusDir: dir,
		DBPath:    filepath.Join(t.TempDir(), "index.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r, dir
}

const graphDoc = `# Graph Networks

## Results

graph neural networks improve throughput
`

const attnDoc = `# Attention

## Method

transformer attention mechanism
`

func TestRetrieve_KeywordRanking(t *testing.T) {
	r, _ := newTestRetriever(t, map[string]string{
		"graph.md": graphDoc,
		"attn.md":  attnDoc,
	})
	ctx := context.Background()

	mustIndex(t, r)

	blob, hits, err := r.Retrieve(ctx, "graph neural networks", Options{})
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	assert.Equal(t, "graph.md", hits[0].SourceFile)
	assert.Equal(t, "Results", hits[0].SectionTitle)
	assert.Contains(t, blob, "graph.md :: Results")
	assert.Contains(t, blob, "graph neural networks improve throughput")
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	// No corpus, no store: an empty query must not touch either
	r, err := New(Config{CorpusDir: "/nonexistent", DBPath: "/nonexistent/index.db"})
	require.NoError(t, err)

	blob, hits, err := r.Retrieve(context.Background(), "   ", Options{})
	require.NoError(t, err)
	assert.Empty(t, blob)
	assert.Empty(t, hits)
}

func TestRetrieve_NoMatches(t *testing.T) {
	r, _ := newTestRetriever(t, map[string]string{"graph.md": graphDoc})
	ctx := context.Background()
	mustIndex(t, r)

	blob, hits, err := r.Retrieve(ctx, "zzzzz qqqqq", Options{})
	require.NoError(t, err)
	assert.Empty(t, blob)
	assert.Empty(t, hits)
}

func TestRetrieve_LazyIndexing(t *testing.T) {
	r, _ := newTestRetriever(t, map[string]string{"graph.md": graphDoc})

	// No EnsureIndex call; the missing store triggers one
	_, hits, err := r.Retrieve(context.Background(), "graph neural networks", Options{})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "graph.md", hits[0].SourceFile)
}

func TestRetrieve_TopKLimit(t *testing.T) {
	files := make(map[string]string)
	for i := 0; i < 5; i++ {
		files[fmt.Sprintf("doc%d.md", i)] = fmt.Sprintf("# Doc %d\n\n## Body\n\nshared keyword payload %d\n", i, i)
	}
	r, _ := newTestRetriever(t, files)
	ctx := context.Background()
	mustIndex(t, r)

	_, hits, err := r.Retrieve(ctx, "shared keyword payload", Options{TopK: 2})
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestEnsureIndex_MissingCorpusDirIsNoOp(t *testing.T) {
	r, err := New(Config{
		CorpusDir: filepath.Join(t.TempDir(), "does-not-exist"),
		DBPath:    filepath.Join(t.TempDir(), "index.db"),
	})
	require.NoError(t, err)

	stats, err := r.EnsureIndex(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.FilesScanned)
}

func TestEnsureIndex_SkipsUnchangedFiles(t *testing.T) {
	r, dir := newTestRetriever(t, map[string]string{"graph.md": graphDoc})
	ctx := context.Background()

	stats := mustIndex(t, r)
	assert.Equal(t, 1, stats.FilesIndexed)
	_, first, err := r.Retrieve(ctx, "graph neural networks", Options{})
	require.NoError(t, err)
	require.NotEmpty(t, first)

	// Unchanged file keeps its chunk rows across another pass
	stats = mustIndex(t, r)
	assert.Equal(t, 1, stats.FilesSkipped)
	assert.Zero(t, stats.ChunksWritten)
	_, second, err := r.Retrieve(ctx, "graph neural networks", Options{})
	require.NoError(t, err)
	require.NotEmpty(t, second)
	assert.Equal(t, first[0].ChunkID, second[0].ChunkID)

	// A modified file is re-chunked under new rows
	writeCorpusFile(t, dir, "graph.md", graphDoc+"\nextra line about graph throughput\n")
	mustIndex(t, r)
	_, third, err := r.Retrieve(ctx, "graph neural networks", Options{})
	require.NoError(t, err)
	require.NotEmpty(t, third)
	assert.NotEqual(t, first[0].ChunkID, third[0].ChunkID)
}

func TestEnsureIndex_IgnoresNonMarkdown(t *testing.T) {
	r, dir := newTestRetriever(t, map[string]string{"graph.md": graphDoc})
	writeCorpusFile(t, dir, "notes.txt", "graph neural networks in a text file")
	ctx := context.Background()

	mustIndex(t, r)

	status, err := r.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Sources)
}

func TestRetrieve_SemanticFusion(t *testing.T) {
	dir := t.TempDir()
	writeCorpusFile(t, dir, "graph.md", graphDoc)
	writeCorpusFile(t, dir, "attn.md", attnDoc)

	// Query vector aligned with the attention chunk, orthogonal to the rest
	stub := &stubEmbedder{
		deflt: []float32{1, 0},
		vectors: map[string][]float32{
			"semantic question": {0, 1},
			"[From: attn.md]\n# Attention\n\n## Method\n\ntransformer attention mechanism": {0, 1},
		},
	}

	r, err := NewWithEmbedder(Config{
		CorpusDir: dir,
		DBPath:    filepath.Join(t.TempDir(), "index.db"),
	}, stub)
	require.NoError(t, err)
	ctx := context.Background()

	mustIndex(t, r)

	// Each file yields an intro chunk plus one section chunk
	status, err := r.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, status.Embeddings)
	assert.True(t, status.Semantic)

	// No keyword overlap: ranking is purely semantic, attention chunk wins
	// and its score passes through without keyword weight dilution
	_, hits, err := r.Retrieve(ctx, "semantic question", Options{})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "attn.md", hits[0].SourceFile)
	assert.Equal(t, "Method", hits[0].SectionTitle)
	assert.Zero(t, hits[0].LexicalScore)
	assert.Equal(t, 1.0, hits[0].SemanticScore)
	assert.Equal(t, 1.0, hits[0].FinalScore)
}

func TestRetrieve_SemanticFailureDegradesToKeyword(t *testing.T) {
	dir := t.TempDir()
	writeCorpusFile(t, dir, "graph.md", graphDoc)

	r, err := NewWithEmbedder(Config{
		CorpusDir: dir,
		DBPath:    filepath.Join(t.TempDir(), "index.db"),
	}, &stubEmbedder{fail: true})
	require.NoError(t, err)
	ctx := context.Background()

	mustIndex(t, r)

	_, hits, err := r.Retrieve(ctx, "graph neural networks", Options{})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "graph.md", hits[0].SourceFile)
	// Keyword-only passthrough: no semantic weight dilution
	assert.Equal(t, hits[0].LexicalScore, hits[0].FinalScore)
}

func TestEnsureIndex_EmbeddingCacheIsIncremental(t *testing.T) {
	dir := t.TempDir()
	writeCorpusFile(t, dir, "graph.md", graphDoc)

	stub := &stubEmbedder{deflt: []float32{1, 0}}
	r, err := NewWithEmbedder(Config{
		CorpusDir: dir,
		DBPath:    filepath.Join(t.TempDir(), "index.db"),
	}, stub)
	require.NoError(t, err)

	stats := mustIndex(t, r)
	require.Equal(t, 1, stub.calls)
	assert.Equal(t, 2, stats.EmbeddingsCached)

	// Nothing pending on a second pass
	stats = mustIndex(t, r)
	assert.Equal(t, 1, stub.calls)
	assert.Zero(t, stats.EmbeddingsCached)
}

func TestEnsureIndex_BusyLock(t *testing.T) {
	r, _ := newTestRetriever(t, nil)

	require.True(t, r.lock.TryAcquire())
	defer r.lock.Release()

	_, err := r.EnsureIndex(context.Background())
	assert.ErrorIs(t, err, ErrIndexBusy)
}

func TestGetStatus_BeforeIndexing(t *testing.T) {
	r, err := New(Config{
		CorpusDir: t.TempDir(),
		DBPath:    filepath.Join(t.TempDir(), "index.db"),
	})
	require.NoError(t, err)

	status, err := r.GetStatus(context.Background())
	require.NoError(t, err)
	assert.Zero(t, status.Sources)
	assert.False(t, status.Semantic)
}

func TestConfig_Validate(t *testing.T) {
	_, err := New(Config{DBPath: "x.db"})
	assert.Error(t, err)

	_, err = New(Config{CorpusDir: "docs"})
	assert.Error(t, err)
}
