// Package retriever ties the corpus together: it walks a directory of
// markdown files into the chunk store, keeps the embedding cache warm,
// and answers queries by fusing BM25 keyword search with cosine
// similarity over cached embeddings.
//
// Retrieval never fails on a degraded signal. A keyword syntax error or
// an unreachable embedding provider drops that signal for the query;
// only storage-level failures surface as errors.
package retriever
