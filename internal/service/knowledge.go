package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/relaya-ai/relaya/internal/domain"
	"github.com/relaya-ai/relaya/internal/pagination"
	"github.com/relaya-ai/relaya/internal/telemetry"
	"github.com/relaya-ai/relaya/internal/vectorstore"
)

// KnowledgeItemRepository defines the repository interface for knowledge item persistence
type KnowledgeItemRepository interface {
	Create(ctx context.Context, item *domain.KnowledgeItem) error
	GetByID(ctx context.Context, id string) (*domain.KnowledgeItem, error)
	ListByAgent(ctx context.Context, agentID string, cursor *pagination.Cursor, limit int) (*KnowledgeItemPage, error)
	Delete(ctx context.Context, id string) error
	DeleteByAgent(ctx context.Context, agentID string) error
}

// KnowledgeItemPage is one page of an agent's corpus listing.
type KnowledgeItemPage struct {
	Items      []*domain.KnowledgeItem
	NextCursor string
	HasMore    bool
}

// UploadStore persists uploaded document blobs until ingestion consumes them
type UploadStore interface {
	Save(ctx context.Context, key string, data []byte) (string, error)
}

// VectorCleaner removes vector records when items or agents are deleted
type VectorCleaner interface {
	DeleteByPrefix(ctx context.Context, namespace, prefix string) error
	DeleteNamespace(ctx context.Context, namespace string) error
	Stats(ctx context.Context, namespace string) vectorstore.NamespaceStats
}

// DocumentArchiver keeps a durable copy of original uploads in object
// storage. Archival is best-effort; the corpus of record is the vector store
// plus the relational rows.
type DocumentArchiver interface {
	PutObject(ctx context.Context, key, contentType string, data []byte) error
	DeleteObject(ctx context.Context, key string) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// KnowledgeService handles the corpus lifecycle around the ingestion
// pipeline: accepting uploads as PENDING items and deleting items together
// with their vector records.
type KnowledgeService struct {
	repo    KnowledgeItemRepository
	uploads UploadStore
	vectors VectorCleaner
	archive DocumentArchiver
	uuidGen UUIDGenerator
}

// NewKnowledgeService creates a new KnowledgeService instance
func NewKnowledgeService(repo KnowledgeItemRepository, uploads UploadStore, vectors VectorCleaner) *KnowledgeService {
	return &KnowledgeService{
		repo:    repo,
		uploads: uploads,
		vectors: vectors,
		uuidGen: &DefaultUUIDGenerator{},
	}
}

// NewKnowledgeServiceWithArchive creates a KnowledgeService that also keeps a
// durable copy of each upload in object storage
func NewKnowledgeServiceWithArchive(repo KnowledgeItemRepository, uploads UploadStore, vectors VectorCleaner, archive DocumentArchiver) *KnowledgeService {
	svc := NewKnowledgeService(repo, uploads, vectors)
	svc.archive = archive
	return svc
}

// NewKnowledgeServiceWithUUIDGen creates a KnowledgeService with a custom UUID generator (for testing)
func NewKnowledgeServiceWithUUIDGen(repo KnowledgeItemRepository, uploads UploadStore, vectors VectorCleaner, uuidGen UUIDGenerator) *KnowledgeService {
	return &KnowledgeService{
		repo:    repo,
		uploads: uploads,
		vectors: vectors,
		uuidGen: uuidGen,
	}
}

// UploadInput represents one uploaded document.
type UploadInput struct {
	AgentID  string
	FileName string
	MimeType string
	Data     []byte
}

// Upload stores the document blob and creates a PENDING knowledge item for
// the ingestion worker to pick up. The request does not wait for processing;
// callers observe progress through the item status.
func (s *KnowledgeService) Upload(ctx context.Context, input UploadInput) (*domain.KnowledgeItem, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.Upload", telemetry.SpanAttributes{
		AgentID:   input.AgentID,
		Operation: "upload",
	})
	defer span.End()

	if len(input.Data) == 0 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "uploaded file is empty")
	}

	now := time.Now().UTC()
	item, err := domain.NewKnowledgeItem(
		s.uuidGen.NewString(),
		input.AgentID,
		input.FileName,
		input.MimeType,
		int64(len(input.Data)),
		now,
	)
	if err != nil {
		return nil, err
	}

	key := path.Join(item.AgentID, item.ID, item.FileName)
	filePath, err := s.uploads.Save(ctx, key, input.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to store uploaded file: %w", err)
	}
	item.FilePath = filePath

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}

	if s.archive != nil {
		if err := s.archive.PutObject(ctx, key, item.MimeType, input.Data); err != nil {
			log.Printf("archive upload failed for item %s: %v", item.ID, err)
		}
	}
	return item, nil
}

// Get returns one knowledge item by id.
func (s *KnowledgeService) Get(ctx context.Context, id string) (*domain.KnowledgeItem, error) {
	return s.repo.GetByID(ctx, id)
}

// ListInput controls corpus listing.
type ListInput struct {
	AgentID string
	Cursor  string
	Limit   int
}

// List returns one page of an agent's corpus, newest first.
func (s *KnowledgeService) List(ctx context.Context, input ListInput) (*KnowledgeItemPage, error) {
	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}
	limit := input.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByAgent(ctx, input.AgentID, cursor, limit)
}

// Delete removes a knowledge item and its vector records. Vector cleanup runs
// first but is best-effort: a failure there is logged and the relational
// deletion proceeds anyway. Orphaned vectors are an acceptable leftover, a
// stuck relational record is not.
func (s *KnowledgeService) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.Delete", telemetry.SpanAttributes{
		KnowledgeItemID: id,
		Operation:       "delete",
	})
	defer span.End()

	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	prefix := domain.VectorIDPrefix(item.ID)
	if err := s.vectors.DeleteByPrefix(ctx, item.AgentID, prefix); err != nil {
		if !errors.Is(err, domain.ErrEmptyDeleteSet) {
			log.Printf("vector cleanup failed for item %s (agent %s): %v", item.ID, item.AgentID, err)
		}
	}

	if s.archive != nil {
		key := path.Join(item.AgentID, item.ID, item.FileName)
		if err := s.archive.DeleteObject(ctx, key); err != nil {
			log.Printf("archive cleanup failed for item %s: %v", item.ID, err)
		}
	}

	return s.repo.Delete(ctx, id)
}

// DeleteAgentCorpus removes every item and vector record belonging to an
// agent. Used when the agent itself is deleted.
func (s *KnowledgeService) DeleteAgentCorpus(ctx context.Context, agentID string) error {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.DeleteAgentCorpus", telemetry.SpanAttributes{
		AgentID:   agentID,
		Operation: "delete_corpus",
	})
	defer span.End()

	if err := s.vectors.DeleteNamespace(ctx, agentID); err != nil {
		log.Printf("namespace deletion failed for agent %s: %v", agentID, err)
	}
	return s.repo.DeleteByAgent(ctx, agentID)
}

// CorpusStats reports the vector count for an agent's namespace. Informational
// only; errors inside the store already degrade to a zero count.
func (s *KnowledgeService) CorpusStats(ctx context.Context, agentID string) vectorstore.NamespaceStats {
	return s.vectors.Stats(ctx, agentID)
}
