package domain

import (
	"strings"
	"time"
)

// ProcessingStatus represents the lifecycle state of a knowledge item
type ProcessingStatus string

const (
	ProcessingStatusPending    ProcessingStatus = "pending"
	ProcessingStatusProcessing ProcessingStatus = "processing"
	ProcessingStatusCompleted  ProcessingStatus = "completed"
	ProcessingStatusFailed     ProcessingStatus = "failed"
)

// IsValid checks whether the status is a known lifecycle state
func (s ProcessingStatus) IsValid() bool {
	switch s {
	case ProcessingStatusPending, ProcessingStatusProcessing,
		ProcessingStatusCompleted, ProcessingStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the item will receive no further transitions
func (s ProcessingStatus) IsTerminal() bool {
	return s == ProcessingStatusCompleted || s == ProcessingStatusFailed
}

// KnowledgeItem represents one uploaded document in an agent's corpus.
// It is created PENDING at upload time and mutated only by the ingestion
// pipeline afterwards.
type KnowledgeItem struct {
	ID           string
	AgentID      string
	FileName     string
	MimeType     string
	SizeBytes    int64
	FilePath     string
	Status       ProcessingStatus
	ChunkCount   int
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewKnowledgeItem creates a pending knowledge item for an uploaded file
func NewKnowledgeItem(id, agentID, fileName, mimeType string, sizeBytes int64, now time.Time) (*KnowledgeItem, error) {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(agentID) == "" {
		return nil, ErrMissingRequiredField
	}
	if strings.TrimSpace(fileName) == "" {
		return nil, ErrMissingRequiredField
	}
	return &KnowledgeItem{
		ID:        id,
		AgentID:   agentID,
		FileName:  fileName,
		MimeType:  mimeType,
		SizeBytes: sizeBytes,
		Status:    ProcessingStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// StatusUpdate carries the optional fields persisted alongside a status
// transition. ChunkCount is set only on completion, ErrorMessage only on
// failure.
type StatusUpdate struct {
	ChunkCount   *int
	ErrorMessage *string
}
