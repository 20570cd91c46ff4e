package types

import "errors"

// Domain errors for type validation
var (
	ErrInvalidChunkID        = errors.New("invalid chunk ID")
	ErrInvalidRelevanceScore = errors.New("relevance score must be between 0 and 1")
	ErrEmptyContent          = errors.New("content cannot be empty")
)
