package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/relaya-ai/relaya/internal/domain"
	"github.com/relaya-ai/relaya/internal/service"
)

const (
	// ClaimBatchSize caps how many pending items one poll cycle picks up
	ClaimBatchSize = 10
)

// PendingItemRepository claims pending knowledge items for processing
type PendingItemRepository interface {
	// ClaimPending atomically moves up to limit pending items to processing
	// and returns them
	ClaimPending(ctx context.Context, limit int) ([]*domain.KnowledgeItem, error)
}

// Ingestor runs the ingestion pipeline for one claimed item
type Ingestor interface {
	Ingest(ctx context.Context, input service.IngestInput) error
}

// IngestWorker picks up pending knowledge items and feeds them through the
// ingestion pipeline. Failure handling lives inside the pipeline itself; the
// worker only claims, dispatches, and logs.
type IngestWorker struct {
	repo   PendingItemRepository
	ingest Ingestor
}

// NewIngestWorker creates a new IngestWorker instance
func NewIngestWorker(repo PendingItemRepository, ingest Ingestor) *IngestWorker {
	return &IngestWorker{
		repo:   repo,
		ingest: ingest,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *IngestWorker) ProcessJobs(ctx context.Context) error {
	items, err := w.repo.ClaimPending(ctx, ClaimBatchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending items: %w", err)
	}

	if len(items) == 0 {
		return nil
	}

	log.Printf("Processing %d pending knowledge items", len(items))

	for _, item := range items {
		input := service.IngestInput{
			KnowledgeItemID: item.ID,
			AgentID:         item.AgentID,
			FilePath:        item.FilePath,
			MimeType:        item.MimeType,
			FileName:        item.FileName,
		}
		if err := w.ingest.Ingest(ctx, input); err != nil {
			log.Printf("Ingestion failed for item %s: %v", item.ID, err)
		}
	}

	return nil
}
