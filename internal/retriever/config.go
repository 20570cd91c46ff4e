package retriever

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dshills/docrag-mcp/internal/embedder"
)

// Environment variables
const (
	EnvCorpusDir      = "DOCRAG_CORPUS_DIR"
	EnvDBPath         = "DOCRAG_DB_PATH"
	EnvSemantic       = "DOCRAG_SEMANTIC"
	EnvKeywordWeight  = "DOCRAG_KEYWORD_WEIGHT"
	EnvSemanticWeight = "DOCRAG_SEMANTIC_WEIGHT"
)

// Defaults
const (
	DefaultKeywordWeight  = 0.6
	DefaultSemanticWeight = 0.4
	DefaultTopK           = 8
	DefaultMaxChars       = 4000
	DefaultSignalLimit    = 100
	DefaultBatchSize      = embedder.DefaultBatchSize
)

// Config holds retriever configuration. Zero values for the numeric
// fields mean "use the default"; normalize fills them in.
type Config struct {
	CorpusDir string
	DBPath    string

	// Semantic signal
	Semantic       bool
	APIKey         string
	Model          string
	KeywordWeight  float64
	SemanticWeight float64

	// Retrieval limits
	TopK          int
	MaxChars      int
	LexicalLimit  int
	SemanticLimit int
	BatchSize     int
}

func (c *Config) normalize() {
	if c.Model == "" {
		c.Model = embedder.DefaultModel
	}
	if c.KeywordWeight <= 0 {
		c.KeywordWeight = DefaultKeywordWeight
	}
	if c.SemanticWeight <= 0 {
		c.SemanticWeight = DefaultSemanticWeight
	}
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.MaxChars <= 0 {
		c.MaxChars = DefaultMaxChars
	}
	if c.LexicalLimit <= 0 {
		c.LexicalLimit = DefaultSignalLimit
	}
	if c.SemanticLimit <= 0 {
		c.SemanticLimit = DefaultSignalLimit
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
}

// Validate checks the fields without defaults
func (c *Config) Validate() error {
	if c.CorpusDir == "" {
		return fmt.Errorf("corpus directory is required (set %s)", EnvCorpusDir)
	}
	if c.DBPath == "" {
		return fmt.Errorf("database path is required (set %s)", EnvDBPath)
	}
	return nil
}

// ConfigFromEnv builds a Config from DOCRAG_* environment variables.
// The semantic signal turns on when DOCRAG_SEMANTIC is truthy and
// OPENROUTER_API_KEY is set.
func ConfigFromEnv() Config {
	cfg := Config{
		CorpusDir: os.Getenv(EnvCorpusDir),
		DBPath:    os.Getenv(EnvDBPath),
		APIKey:    os.Getenv(embedder.EnvAPIKey),
		Model:     os.Getenv(embedder.EnvModel),
	}

	if v, err := strconv.ParseBool(os.Getenv(EnvSemantic)); err == nil {
		cfg.Semantic = v
	}
	if v, err := strconv.ParseFloat(os.Getenv(EnvKeywordWeight), 64); err == nil {
		cfg.KeywordWeight = v
	}
	if v, err := strconv.ParseFloat(os.Getenv(EnvSemanticWeight), 64); err == nil {
		cfg.SemanticWeight = v
	}

	return cfg
}
