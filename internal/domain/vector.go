package domain

import (
	"fmt"
	"strings"
)

// EmbeddingDimensions is the fixed dimensionality of stored vectors,
// matching the text-embedding-ada-002 output size.
const EmbeddingDimensions = 1536

// VectorRecord is the durable representation of one document chunk: an
// embedding plus retrieval metadata, stored under a deterministic id inside
// a per-agent namespace.
type VectorRecord struct {
	ID        string
	Embedding []float32
	Metadata  VectorMetadata
}

// VectorMetadata is the payload stored alongside each embedding.
type VectorMetadata struct {
	KnowledgeItemID string
	Content         string
	Source          string
	ChunkIndex      int
}

// QueryResult is one retrieval match. Ephemeral, never persisted.
type QueryResult struct {
	Text   string
	Score  float32
	Source string
}

// VectorRecordID builds the deterministic record id for a chunk. The
// "{knowledgeItemID}:" prefix is unique to one item within its namespace,
// which makes re-upserts idempotent and prefix deletion exact.
func VectorRecordID(knowledgeItemID string, ordinal int) string {
	return fmt.Sprintf("%s:%d", knowledgeItemID, ordinal)
}

// VectorIDPrefix returns the id prefix covering every record of one item.
func VectorIDPrefix(knowledgeItemID string) string {
	return knowledgeItemID + ":"
}

// NewVectorRecord builds the record for one chunk of a knowledge item.
func NewVectorRecord(item *KnowledgeItem, ordinal int, content string, embedding []float32) VectorRecord {
	return VectorRecord{
		ID:        VectorRecordID(item.ID, ordinal),
		Embedding: embedding,
		Metadata: VectorMetadata{
			KnowledgeItemID: item.ID,
			Content:         content,
			Source:          item.FileName,
			ChunkIndex:      ordinal,
		},
	}
}

// Validate checks a record before it is written to the store.
func (r VectorRecord) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrMissingRequiredField
	}
	if len(r.Embedding) != EmbeddingDimensions {
		return NewDomainError(ErrCodeValidation,
			fmt.Sprintf("embedding has %d dimensions, expected %d", len(r.Embedding), EmbeddingDimensions))
	}
	return nil
}
