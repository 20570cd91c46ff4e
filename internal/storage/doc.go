// Package storage persists the retrieval index in SQLite.
//
// Four durable structures back the engine:
//   - sources: one row per corpus file with its last-seen content
//     fingerprint, the sole input to incremental-indexing skip logic
//   - chunks: section-level retrieval units
//   - chunks_fts: an FTS5 external-content index over chunks, kept in
//     sync by insert/delete triggers (delete+reinsert, never update)
//   - embeddings: one cached vector per chunk for the configured model,
//     stored as a little-endian packed float32 blob
//
// The store exposes typed records; nothing upstream sees raw rows. Two
// SQLite drivers are supported via build tags: modernc.org/sqlite (pure
// Go, default) and mattn/go-sqlite3 (cgo, fts5 tag). See build_purego.go
// and build_cgo.go.
//
// Callers are expected to open a store per operation and close it before
// returning; the connection pool is capped at a single connection since
// SQLite benefits from a single writer.
package storage
