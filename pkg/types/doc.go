// Package types defines the shared data types for the docrag retrieval
// engine: chunk descriptors produced by the chunker and the hits returned
// from retrieval.
//
// These types form the contract between packages:
//   - chunker produces []Chunk from raw markdown
//   - storage persists chunks and returns typed rows
//   - retriever assembles Hit values for callers
package types
