package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Provider configuration
const (
	DefaultModel = "openai/text-embedding-3-small"

	// Batch limits
	DefaultBatchSize = 64
	MaxBatchSize     = 100

	defaultEndpoint = "https://openrouter.ai/api/v1/embeddings"
	requestTimeout  = 60 * time.Second
)

// OpenRouterProvider implements Embedder using the OpenRouter API
type OpenRouterProvider struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
	cache      *Cache
}

// NewOpenRouterProvider creates a new OpenRouter embedder
func NewOpenRouterProvider(apiKey, model string, cache *Cache) (*OpenRouterProvider, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if model == "" {
		model = DefaultModel
	}

	return &OpenRouterProvider{
		apiKey:   apiKey,
		model:    model,
		endpoint: defaultEndpoint,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		cache: cache,
	}, nil
}

// EmbedBatch generates embeddings for texts, serving cached vectors where
// possible and calling the API only for misses. Vectors come back in input
// order.
func (p *OpenRouterProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ValidateBatch(texts); err != nil {
		return nil, err
	}

	if len(texts) > MaxBatchSize {
		return nil, fmt.Errorf("%w: max %d texts allowed", ErrBatchTooLarge, MaxBatchSize)
	}

	vectors := make([][]float32, len(texts))
	var missing []int
	for i, text := range texts {
		if p.cache != nil {
			if vec, ok := p.cache.Get(ComputeHash(text)); ok {
				vectors[i] = vec
				continue
			}
		}
		missing = append(missing, i)
	}

	if len(missing) == 0 {
		return vectors, nil
	}

	missingTexts := make([]string, len(missing))
	for i, idx := range missing {
		missingTexts[i] = texts[idx]
	}

	fetched, err := p.callAPI(ctx, missingTexts)
	if err != nil {
		return nil, err
	}
	if len(fetched) != len(missing) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrProviderFailed, len(fetched), len(missing))
	}

	for i, idx := range missing {
		vectors[idx] = fetched[i]
		if p.cache != nil {
			p.cache.Set(ComputeHash(texts[idx]), fetched[i])
		}
	}

	return vectors, nil
}

func (p *OpenRouterProvider) callAPI(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := map[string]interface{}{
		"model": p.model,
		"input": texts,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("HTTP-Referer", "https://github.com/dshills/docrag-mcp")
	req.Header.Set("X-Title", "docrag-mcp")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: api error %d: %s", ErrProviderFailed, resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(apiResp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrProviderFailed, len(apiResp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, d := range apiResp.Data {
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at index %d", ErrProviderFailed, i)
		}
		vectors[i] = d.Embedding
	}

	return vectors, nil
}

// Model returns the model name
func (p *OpenRouterProvider) Model() string {
	return p.model
}

// Close releases provider resources
func (p *OpenRouterProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}
