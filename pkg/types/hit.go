package types

// Hit represents a single retrieval result. Hits are built fresh on every
// retrieve call and never persisted.
type Hit struct {
	ChunkID      int64
	SourceFile   string
	SectionTitle string
	Content      string

	// LexicalScore and SemanticScore are the normalized per-signal scores
	// in [0,1]; FinalScore is the fused ranking value.
	LexicalScore  float64
	SemanticScore float64
	FinalScore    float64
}

// Validate checks if the hit is well formed.
func (h *Hit) Validate() error {
	if h.ChunkID == 0 {
		return ErrInvalidChunkID
	}
	if h.Content == "" {
		return ErrEmptyContent
	}
	if h.FinalScore < 0 || h.FinalScore > 1 {
		return ErrInvalidRelevanceScore
	}
	return nil
}
