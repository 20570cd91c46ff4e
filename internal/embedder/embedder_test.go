package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestProvider points an OpenRouterProvider at a stub API server
func newTestProvider(t *testing.T, cache *Cache, handler http.HandlerFunc) *OpenRouterProvider {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewOpenRouterProvider("test-key", "test-model", cache)
	require.NoError(t, err)
	p.endpoint = srv.URL
	return p
}

// embeddingResponse builds the provider wire format: one fixed vector per input
func embeddingResponse(t *testing.T, w http.ResponseWriter, inputs []string) {
	t.Helper()

	type datum struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	}
	resp := struct {
		Data  []datum `json:"data"`
		Model string  `json:"model"`
	}{Model: "test-model"}

	for i := range inputs {
		resp.Data = append(resp.Data, datum{
			Embedding: []float32{float32(i), float32(i) + 0.5},
			Index:     i,
		})
	}
	require.NoError(t, json.NewEncoder(w).Encode(resp))
}

func TestNewOpenRouterProvider_RequiresKey(t *testing.T) {
	_, err := NewOpenRouterProvider("", "model", nil)
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestNewOpenRouterProvider_DefaultModel(t *testing.T) {
	p, err := NewOpenRouterProvider("key", "", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, p.Model())
}

func TestEmbedBatch_OrderAndHeaders(t *testing.T) {
	var gotAuth, gotModel string
	var gotInput []string

	p := newTestProvider(t, nil, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")

		var body struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotModel = body.Model
		gotInput = body.Input
		embeddingResponse(t, w, body.Input)
	})

	vectors, err := p.EmbedBatch(context.Background(), []string{"alpha", "beta", "gamma"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "test-model", gotModel)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, gotInput)

	require.Len(t, vectors, 3)
	assert.Equal(t, []float32{0, 0.5}, vectors[0])
	assert.Equal(t, []float32{2, 2.5}, vectors[2])
}

func TestEmbedBatch_ValidatesInput(t *testing.T) {
	p, err := NewOpenRouterProvider("key", "model", nil)
	require.NoError(t, err)

	_, err = p.EmbedBatch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = p.EmbedBatch(context.Background(), []string{"ok", ""})
	assert.ErrorIs(t, err, ErrInvalidInput)

	big := make([]string, MaxBatchSize+1)
	for i := range big {
		big[i] = "x"
	}
	_, err = p.EmbedBatch(context.Background(), big)
	assert.ErrorIs(t, err, ErrBatchTooLarge)
}

func TestEmbedBatch_APIErrorSurfaces(t *testing.T) {
	p := newTestProvider(t, nil, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := p.EmbedBatch(context.Background(), []string{"alpha"})
	assert.ErrorIs(t, err, ErrProviderFailed)
}

func TestEmbedBatch_CountMismatchRejected(t *testing.T) {
	p := newTestProvider(t, nil, func(w http.ResponseWriter, r *http.Request) {
		embeddingResponse(t, w, []string{"only-one"})
	})

	_, err := p.EmbedBatch(context.Background(), []string{"alpha", "beta"})
	assert.ErrorIs(t, err, ErrProviderFailed)
}

func TestEmbedBatch_CacheSkipsAPICalls(t *testing.T) {
	calls := 0
	cache := NewCache(100)

	p := newTestProvider(t, cache, func(w http.ResponseWriter, r *http.Request) {
		calls++
		var body struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		embeddingResponse(t, w, body.Input)
	})

	ctx := context.Background()
	first, err := p.EmbedBatch(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	// Fully cached batch makes no API call
	second, err := p.EmbedBatch(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)

	// Partial hit sends only the miss
	var lastInput []string
	p2 := newTestProvider(t, cache, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		lastInput = body.Input
		embeddingResponse(t, w, body.Input)
	})

	vectors, err := p2.EmbedBatch(ctx, []string{"alpha", "gamma"})
	require.NoError(t, err)
	assert.Equal(t, []string{"gamma"}, lastInput)
	assert.Equal(t, first[0], vectors[0])
}

func TestCache_ReturnsCopies(t *testing.T) {
	cache := NewCache(10)
	cache.Set("h", []float32{1, 2, 3})

	vec, ok := cache.Get("h")
	require.True(t, ok)
	vec[0] = 99

	again, ok := cache.Get("h")
	require.True(t, ok)
	assert.Equal(t, float32(1), again[0])
}

func TestComputeHash_Deterministic(t *testing.T) {
	assert.Equal(t, ComputeHash("text"), ComputeHash("text"))
	assert.NotEqual(t, ComputeHash("text"), ComputeHash("other"))
	assert.Len(t, ComputeHash(""), 64)
}
