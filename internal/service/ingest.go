package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/relaya-ai/relaya/internal/domain"
	"github.com/relaya-ai/relaya/internal/telemetry"
)

// TextExtractor turns a stored document file into plain text
type TextExtractor interface {
	Extract(path, mimeType string) (string, error)
}

// TransientFileStore deletes uploaded source files once processing is done
type TransientFileStore interface {
	Delete(ctx context.Context, path string) error
}

// StatusRepository persists knowledge item lifecycle transitions
type StatusRepository interface {
	SetStatus(ctx context.Context, knowledgeItemID string, status domain.ProcessingStatus, update domain.StatusUpdate) error
}

// ChunkEmbedder converts a batch of chunk texts into embedding vectors
type ChunkEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorUpserter writes chunk records into an agent's namespace
type VectorUpserter interface {
	Upsert(ctx context.Context, namespace string, records []domain.VectorRecord) error
}

// IngestionService drives one uploaded document through extraction,
// segmentation, embedding, and vector storage, persisting the lifecycle
// status at every transition.
type IngestionService struct {
	extractor  TextExtractor
	files      TransientFileStore
	statusRepo StatusRepository
	embedder   ChunkEmbedder
	vectors    VectorUpserter
	segCfg     SegmentConfig

	// inflight guards against two concurrent runs for the same item id.
	// The upload flow issues at most one run per item, but nothing else
	// enforces that.
	inflight sync.Map
}

// NewIngestionService creates a new IngestionService instance
func NewIngestionService(
	extractor TextExtractor,
	files TransientFileStore,
	statusRepo StatusRepository,
	embedder ChunkEmbedder,
	vectors VectorUpserter,
) *IngestionService {
	return &IngestionService{
		extractor:  extractor,
		files:      files,
		statusRepo: statusRepo,
		embedder:   embedder,
		vectors:    vectors,
		segCfg:     DefaultSegmentConfig(),
	}
}

// IngestInput identifies one pending document and where its file lives.
type IngestInput struct {
	KnowledgeItemID string
	AgentID         string
	FilePath        string
	MimeType        string
	FileName        string
}

// Ingest processes one document end to end. The status record ends at
// COMPLETED with a chunk count, or FAILED with the error message; the
// transient source file is deleted on both paths. The returned error mirrors
// the persisted failure so synchronous callers (worker, tests) can observe it.
func (s *IngestionService) Ingest(ctx context.Context, input IngestInput) error {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.Ingest", telemetry.SpanAttributes{
		AgentID:         input.AgentID,
		KnowledgeItemID: input.KnowledgeItemID,
		Operation:       "ingest",
	})
	defer span.End()

	if _, running := s.inflight.LoadOrStore(input.KnowledgeItemID, struct{}{}); running {
		return domain.NewDomainError(domain.ErrCodeValidation,
			fmt.Sprintf("knowledge item %s is already being processed", input.KnowledgeItemID))
	}
	defer s.inflight.Delete(input.KnowledgeItemID)

	if err := s.statusRepo.SetStatus(ctx, input.KnowledgeItemID, domain.ProcessingStatusProcessing, domain.StatusUpdate{}); err != nil {
		return fmt.Errorf("failed to mark item processing: %w", err)
	}

	chunkCount, err := s.process(ctx, input)
	if err != nil {
		message := err.Error()
		if statusErr := s.statusRepo.SetStatus(ctx, input.KnowledgeItemID, domain.ProcessingStatusFailed, domain.StatusUpdate{
			ErrorMessage: &message,
		}); statusErr != nil {
			log.Printf("failed to persist FAILED status for %s: %v", input.KnowledgeItemID, statusErr)
		}
		s.cleanup(ctx, input)
		return err
	}

	if err := s.statusRepo.SetStatus(ctx, input.KnowledgeItemID, domain.ProcessingStatusCompleted, domain.StatusUpdate{
		ChunkCount: &chunkCount,
	}); err != nil {
		s.cleanup(ctx, input)
		return fmt.Errorf("failed to persist COMPLETED status: %w", err)
	}
	s.cleanup(ctx, input)
	return nil
}

// process runs extraction through storage and returns the chunk count.
func (s *IngestionService) process(ctx context.Context, input IngestInput) (int, error) {
	text, err := s.extractor.Extract(input.FilePath, input.MimeType)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(text) == "" {
		return 0, domain.ErrEmptyDocument
	}

	chunks := segmentText(text, s.segCfg)
	if len(chunks) == 0 {
		return 0, domain.ErrNoChunksProduced
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return 0, err
	}
	if len(embeddings) != len(chunks) {
		return 0, domain.NewDomainError(domain.ErrCodeEmbedding,
			fmt.Sprintf("got %d embeddings for %d chunks", len(embeddings), len(chunks)))
	}

	item := &domain.KnowledgeItem{ID: input.KnowledgeItemID, FileName: input.FileName}
	records := make([]domain.VectorRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = domain.NewVectorRecord(item, i, chunk, embeddings[i])
	}

	if err := s.vectors.Upsert(ctx, input.AgentID, records); err != nil {
		return 0, err
	}

	return len(chunks), nil
}

// cleanup removes the transient source file. A cleanup failure is logged,
// never escalated: it must not mask the processing outcome.
func (s *IngestionService) cleanup(ctx context.Context, input IngestInput) {
	if input.FilePath == "" {
		return
	}
	if err := s.files.Delete(ctx, input.FilePath); err != nil {
		log.Printf("failed to delete transient file %s for item %s: %v", input.FilePath, input.KnowledgeItemID, err)
	}
}
