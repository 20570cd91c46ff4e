// Package chunker splits markdown documents into section-level retrieval
// units.
//
// Documents are split on second-level ("## ") headings so that each chunk
// holds one semantically coherent section. The first top-level ("# ")
// heading provides the document title; content before the first "## "
// heading becomes an "Introduction" chunk, and a document with no "## "
// headings at all yields a single "Full" chunk.
//
// Every chunk body is prefixed with a provenance header naming the source
// file and document title, so retrieved text remains attributable after it
// is packed into a prompt:
//
//	[From: attention.md]
//	# Attention Is All You Need
//
//	## Results
//	...
//
// Chunking is a pure function: the same input text always produces the
// same chunks in document order.
package chunker
