// Package embedder generates vector embeddings for chunk and query text
// via the OpenRouter embeddings API.
//
// Failures are returned to the caller rather than retried; the retrieval
// layer treats embeddings as an optional signal and degrades without them.
// An in-memory LRU cache keyed by content hash avoids re-embedding text
// that was already seen within a process lifetime; durable caching across
// runs lives in the storage layer.
package embedder
