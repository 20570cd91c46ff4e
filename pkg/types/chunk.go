package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// Chunk represents one retrievable section of a markdown document as
// produced by the chunker. The Content already carries the provenance
// header naming the source file and document title.
type Chunk struct {
	SourceFile   string
	DocTitle     string
	SectionTitle string
	Content      string
	ContentHash  string // hex SHA-256 of Content
}

// Fingerprint computes the hex SHA-256 fingerprint used for change
// detection on both whole files and chunk bodies.
func Fingerprint(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// ComputeContentHash fills in ContentHash from Content.
func (c *Chunk) ComputeContentHash() {
	c.ContentHash = Fingerprint(c.Content)
}

// Validate checks that the chunk is complete enough to persist.
func (c *Chunk) Validate() error {
	if c.Content == "" {
		return errors.New("chunk content cannot be empty")
	}
	if c.SourceFile == "" {
		return errors.New("chunk source file is required")
	}
	if c.SectionTitle == "" {
		return errors.New("chunk section title is required")
	}
	if c.ContentHash == "" {
		return errors.New("content hash must be computed")
	}
	return nil
}
