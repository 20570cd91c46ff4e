// Package mcp exposes the retriever over the Model Context Protocol on
// stdio, with tools for indexing the corpus, running retrieval queries,
// and inspecting index status.
package mcp
