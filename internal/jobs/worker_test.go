package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/relaya-ai/relaya/internal/domain"
	"github.com/relaya-ai/relaya/internal/service"
)

// MockJobProcessor is a mock implementation of JobProcessor
type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockPendingItemRepository is a mock implementation of PendingItemRepository
type MockPendingItemRepository struct {
	mock.Mock
}

func (m *MockPendingItemRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.KnowledgeItem, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KnowledgeItem), args.Error(1)
}

// MockIngestor is a mock implementation of Ingestor
type MockIngestor struct {
	mock.Mock
}

func (m *MockIngestor) Ingest(ctx context.Context, input service.IngestInput) error {
	args := m.Called(ctx, input)
	return args.Error(0)
}

func TestWorker_StartStop(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(250 * time.Millisecond)

	worker.Stop()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

func TestWorker_ContextCancellation(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(150 * time.Millisecond)

	cancel()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

func TestIngestWorker_ProcessJobs_NoPendingItems(t *testing.T) {
	mockRepo := new(MockPendingItemRepository)
	mockIngestor := new(MockIngestor)

	mockRepo.On("ClaimPending", mock.Anything, ClaimBatchSize).Return([]*domain.KnowledgeItem{}, nil)

	worker := NewIngestWorker(mockRepo, mockIngestor)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockIngestor.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything)
}

func TestIngestWorker_ProcessJobs_DispatchesClaimedItems(t *testing.T) {
	mockRepo := new(MockPendingItemRepository)
	mockIngestor := new(MockIngestor)

	items := []*domain.KnowledgeItem{
		{
			ID:       "item-1",
			AgentID:  "agent-1",
			FileName: "handbook.txt",
			MimeType: "text/plain",
			FilePath: "/uploads/agent-1/item-1/handbook.txt",
			Status:   domain.ProcessingStatusProcessing,
		},
		{
			ID:       "item-2",
			AgentID:  "agent-2",
			FileName: "faq.md",
			MimeType: "text/markdown",
			FilePath: "/uploads/agent-2/item-2/faq.md",
			Status:   domain.ProcessingStatusProcessing,
		},
	}

	mockRepo.On("ClaimPending", mock.Anything, ClaimBatchSize).Return(items, nil)
	mockIngestor.On("Ingest", mock.Anything, service.IngestInput{
		KnowledgeItemID: "item-1",
		AgentID:         "agent-1",
		FilePath:        "/uploads/agent-1/item-1/handbook.txt",
		MimeType:        "text/plain",
		FileName:        "handbook.txt",
	}).Return(nil)
	mockIngestor.On("Ingest", mock.Anything, service.IngestInput{
		KnowledgeItemID: "item-2",
		AgentID:         "agent-2",
		FilePath:        "/uploads/agent-2/item-2/faq.md",
		MimeType:        "text/markdown",
		FileName:        "faq.md",
	}).Return(nil)

	worker := NewIngestWorker(mockRepo, mockIngestor)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockIngestor.AssertExpectations(t)
}

func TestIngestWorker_ProcessJobs_IngestFailureDoesNotStopBatch(t *testing.T) {
	mockRepo := new(MockPendingItemRepository)
	mockIngestor := new(MockIngestor)

	items := []*domain.KnowledgeItem{
		{ID: "item-1", AgentID: "agent-1"},
		{ID: "item-2", AgentID: "agent-1"},
	}

	mockRepo.On("ClaimPending", mock.Anything, ClaimBatchSize).Return(items, nil)
	mockIngestor.On("Ingest", mock.Anything, mock.MatchedBy(func(input service.IngestInput) bool {
		return input.KnowledgeItemID == "item-1"
	})).Return(errors.New("extraction failed"))
	mockIngestor.On("Ingest", mock.Anything, mock.MatchedBy(func(input service.IngestInput) bool {
		return input.KnowledgeItemID == "item-2"
	})).Return(nil)

	worker := NewIngestWorker(mockRepo, mockIngestor)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockIngestor.AssertNumberOfCalls(t, "Ingest", 2)
}

func TestIngestWorker_ProcessJobs_RepositoryError(t *testing.T) {
	mockRepo := new(MockPendingItemRepository)
	mockIngestor := new(MockIngestor)

	mockRepo.On("ClaimPending", mock.Anything, ClaimBatchSize).Return(nil, errors.New("database error"))

	worker := NewIngestWorker(mockRepo, mockIngestor)
	err := worker.ProcessJobs(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to claim pending items")
	mockIngestor.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything)
}
