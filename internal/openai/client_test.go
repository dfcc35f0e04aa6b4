package openai

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/relaya-ai/relaya/internal/domain"
)

// MockOpenAIAPI is a mock for the OpenAI API
type MockOpenAIAPI struct {
	mock.Mock
}

func (m *MockOpenAIAPI) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func makeEmbedding(seed float32) []float32 {
	embedding := make([]float32, 1536)
	for i := range embedding {
		embedding[i] = seed + float32(i)*0.001
	}
	return embedding
}

func TestClient_EmbedBatch_Success(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := NewClientWithAPI(mockAPI, 1536)

	ctx := context.Background()
	texts := []string{"first chunk of text", "second chunk of text"}
	expected := [][]float32{makeEmbedding(0.1), makeEmbedding(0.2)}

	mockAPI.On("CreateEmbeddings", ctx, texts).Return(expected, nil)

	embeddings, err := client.EmbedBatch(ctx, texts)

	assert.NoError(t, err)
	assert.Equal(t, expected, embeddings)
	mockAPI.AssertExpectations(t)
}

func TestClient_EmbedBatch_FiltersBlankInputs(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := NewClientWithAPI(mockAPI, 1536)

	ctx := context.Background()
	expected := [][]float32{makeEmbedding(0.3)}

	// Only the non-blank text reaches the API.
	mockAPI.On("CreateEmbeddings", ctx, []string{"real content"}).Return(expected, nil)

	embeddings, err := client.EmbedBatch(ctx, []string{"", "   ", "real content", "\n\t"})

	assert.NoError(t, err)
	assert.Len(t, embeddings, 1)
	mockAPI.AssertExpectations(t)
}

func TestClient_EmbedBatch_AllBlank(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := NewClientWithAPI(mockAPI, 1536)

	embeddings, err := client.EmbedBatch(context.Background(), []string{""})

	assert.Nil(t, embeddings)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	mockAPI.AssertNotCalled(t, "CreateEmbeddings")
}

func TestClient_EmbedBatch_APIError(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := NewClientWithAPI(mockAPI, 1536)

	ctx := context.Background()
	apiErr := errors.New("service unavailable")
	mockAPI.On("CreateEmbeddings", ctx, []string{"text"}).Return(nil, apiErr)

	embeddings, err := client.EmbedBatch(ctx, []string{"text"})

	assert.Nil(t, embeddings)
	assert.ErrorIs(t, err, domain.ErrEmbeddingFailure)
	mockAPI.AssertExpectations(t)
}

func TestClient_EmbedBatch_RateLimited(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := NewClientWithAPI(mockAPI, 1536)

	ctx := context.Background()
	apiErr := &openai.APIError{HTTPStatusCode: 429, Message: "rate limit exceeded"}
	mockAPI.On("CreateEmbeddings", ctx, []string{"text"}).Return(nil, apiErr)

	_, err := client.EmbedBatch(ctx, []string{"text"})

	assert.ErrorIs(t, err, domain.ErrRateLimited)
	mockAPI.AssertExpectations(t)
}

func TestClient_EmbedBatch_WrongDimensions(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := NewClientWithAPI(mockAPI, 1536)

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, []string{"text"}).Return([][]float32{make([]float32, 768)}, nil)

	_, err := client.EmbedBatch(ctx, []string{"text"})

	assert.ErrorIs(t, err, ErrWrongDimensions)
	mockAPI.AssertExpectations(t)
}

func TestIsRateLimited(t *testing.T) {
	assert.False(t, IsRateLimited(nil))
	assert.False(t, IsRateLimited(errors.New("boom")))
	assert.True(t, IsRateLimited(&openai.APIError{HTTPStatusCode: 429}))
	assert.False(t, IsRateLimited(&openai.APIError{HTTPStatusCode: 500}))
	assert.True(t, IsRateLimited(&openai.RequestError{HTTPStatusCode: 429}))
	assert.True(t, IsRateLimited(domain.NewDomainErrorWithCause(domain.ErrCodeRateLimited, "exhausted", nil)))
}

func TestNewClient(t *testing.T) {
	client := NewClient("test-api-key")

	assert.NotNil(t, client)
	assert.NotNil(t, client.api)
	assert.Equal(t, 1536, client.Dimensions())
}
