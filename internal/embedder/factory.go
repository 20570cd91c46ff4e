package embedder

import "os"

// Environment variables
const (
	EnvAPIKey = "OPENROUTER_API_KEY"
	EnvModel  = "DOCRAG_EMBEDDING_MODEL"
)

// Config holds embedder configuration
type Config struct {
	APIKey    string
	Model     string
	CacheSize int
}

// New creates an embedder with explicit configuration
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	return NewOpenRouterProvider(cfg.APIKey, cfg.Model, cache)
}

// NewFromEnv creates an embedder from OPENROUTER_API_KEY and
// DOCRAG_EMBEDDING_MODEL. Returns ErrNoAPIKey when the key is unset.
func NewFromEnv() (Embedder, error) {
	return New(Config{
		APIKey:    os.Getenv(EnvAPIKey),
		Model:     os.Getenv(EnvModel),
		CacheSize: 10000,
	})
}

// Available reports whether the environment carries an API key, without
// constructing a provider
func Available() bool {
	return os.Getenv(EnvAPIKey) != ""
}
