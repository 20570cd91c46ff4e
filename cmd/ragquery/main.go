package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/docrag-mcp/internal/embedder"
	"github.com/dshills/docrag-mcp/internal/retriever"
)

// ragquery is a command-line harness for exercising the index and
// retrieval pipeline outside the MCP protocol. Point it at a corpus
// directory and a query; it prints the scored hits and the packed
// context string.
func main() {
	corpusDir := flag.String("corpus", "", "directory of markdown files (default $DOCRAG_CORPUS_DIR)")
	dbPath := flag.String("db", "", "SQLite index path (default $DOCRAG_DB_PATH, or <corpus>/.docrag.db)")
	topK := flag.Int("topk", 0, "maximum hits to return")
	maxChars := flag.Int("max-chars", 0, "context character budget")
	semantic := flag.Bool("semantic", false, "enable the semantic signal (needs OPENROUTER_API_KEY)")
	showContext := flag.Bool("context", true, "print the packed context string")
	flag.Parse()

	query := strings.Join(flag.Args(), " ")
	if strings.TrimSpace(query) == "" {
		fmt.Fprintln(os.Stderr, "usage: ragquery [flags] <query terms...>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg := retriever.ConfigFromEnv()
	if *corpusDir != "" {
		cfg.CorpusDir = *corpusDir
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if cfg.DBPath == "" && cfg.CorpusDir != "" {
		cfg.DBPath = filepath.Join(cfg.CorpusDir, ".docrag.db")
	}
	if *semantic {
		cfg.Semantic = true
	}
	if cfg.Semantic && cfg.APIKey == "" {
		log.Printf("semantic requested but %s is unset; running keyword-only", embedder.EnvAPIKey)
		cfg.Semantic = false
	}

	r, err := retriever.New(cfg)
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}
	defer func() {
		_ = r.Close()
	}()

	ctx := context.Background()
	stats, err := r.EnsureIndex(ctx)
	if err != nil {
		log.Fatalf("indexing failed: %v", err)
	}
	fmt.Printf("Pass: %d scanned, %d indexed, %d skipped, %d chunks, %d embeddings cached\n",
		stats.FilesScanned, stats.FilesIndexed, stats.FilesSkipped, stats.ChunksWritten, stats.EmbeddingsCached)

	status, err := r.GetStatus(ctx)
	if err != nil {
		log.Fatalf("status failed: %v", err)
	}
	fmt.Printf("Index: %d sources, %d chunks, %d embeddings (%.2f MB)\n\n",
		status.Sources, status.Chunks, status.Embeddings, status.SizeMB)

	blob, hits, err := r.Retrieve(ctx, query, retriever.Options{
		TopK:     *topK,
		MaxChars: *maxChars,
	})
	if err != nil {
		log.Fatalf("retrieval failed: %v", err)
	}

	if len(hits) == 0 {
		fmt.Println("No hits.")
		return
	}

	fmt.Printf("Hits for %q:\n", query)
	for i, h := range hits {
		fmt.Printf("  %2d. %-30s %-20s final=%.3f (lex=%.3f sem=%.3f)\n",
			i+1, h.SourceFile, h.SectionTitle, h.FinalScore, h.LexicalScore, h.SemanticScore)
	}

	if *showContext {
		fmt.Printf("\n--- context (%d chars) ---\n%s\n", len(blob), blob)
	}
}
