package service

import (
	"context"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/relaya-ai/relaya/internal/domain"
	"github.com/relaya-ai/relaya/internal/telemetry"
)

// VectorQuerier runs similarity queries inside an agent's namespace
type VectorQuerier interface {
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]domain.QueryResult, error)
}

// RetrievalConfig tunes retrieval behavior per deployment.
type RetrievalConfig struct {
	TopK               int
	RelevanceThreshold float32
	ContextCharBudget  int
}

// DefaultRetrievalConfig provides the standard retrieval settings.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		TopK:               3,
		RelevanceThreshold: 0.3,
		ContextCharBudget:  3000,
	}
}

// RetrievalService answers live queries with relevance-filtered matches from
// an agent's corpus and assembles them into a bounded context string.
type RetrievalService struct {
	embedder ChunkEmbedder
	vectors  VectorQuerier
	cfg      RetrievalConfig
}

// NewRetrievalService creates a new RetrievalService instance
func NewRetrievalService(embedder ChunkEmbedder, vectors VectorQuerier) *RetrievalService {
	return NewRetrievalServiceWithConfig(embedder, vectors, DefaultRetrievalConfig())
}

func NewRetrievalServiceWithConfig(embedder ChunkEmbedder, vectors VectorQuerier, cfg RetrievalConfig) *RetrievalService {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultRetrievalConfig().TopK
	}
	if cfg.ContextCharBudget <= 0 {
		cfg.ContextCharBudget = DefaultRetrievalConfig().ContextCharBudget
	}
	return &RetrievalService{
		embedder: embedder,
		vectors:  vectors,
		cfg:      cfg,
	}
}

// Retrieve returns the matches scoring strictly above the relevance
// threshold, in the order the store ranked them. A blank query is rejected;
// embedding or store errors degrade to an empty result set rather than
// propagating, since missing context must never be fatal to the caller.
func (s *RetrievalService) Retrieve(ctx context.Context, query, agentID string) ([]domain.QueryResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.Retrieve", telemetry.SpanAttributes{
		AgentID:   agentID,
		Operation: "retrieve",
	})
	defer span.End()

	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrInvalidInput
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		log.Printf("retrieval: query embedding failed for agent %s: %v", agentID, err)
		return []domain.QueryResult{}, nil
	}

	matches, err := s.vectors.Query(ctx, agentID, embeddings[0], s.cfg.TopK)
	if err != nil {
		log.Printf("retrieval: vector query failed for agent %s: %v", agentID, err)
		return []domain.QueryResult{}, nil
	}

	// Threshold is exclusive. Store order is kept as-is: ties are
	// store-defined and must not be re-sorted here.
	kept := make([]domain.QueryResult, 0, len(matches))
	for _, m := range matches {
		if m.Score > s.cfg.RelevanceThreshold {
			kept = append(kept, m)
		}
	}
	return kept, nil
}

// RetrieveContext assembles the retrieved texts into one grounding string for
// response generation. An empty string signals "no grounding available".
func (s *RetrievalService) RetrieveContext(ctx context.Context, query, agentID string) (string, error) {
	results, err := s.Retrieve(ctx, query, agentID)
	if err != nil {
		return "", err
	}
	return s.AssembleContext(results), nil
}

// AssembleContext builds the grounding string from already-retrieved results.
func (s *RetrievalService) AssembleContext(results []domain.QueryResult) string {
	return assembleContext(results, s.cfg.ContextCharBudget)
}

// assembleContext joins result texts with blank lines, in result order, and
// truncates at the character budget with an ellipsis marker.
func assembleContext(results []domain.QueryResult, budget int) string {
	if len(results) == 0 {
		return ""
	}

	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}
	combined := strings.Join(texts, "\n\n")

	if utf8.RuneCountInString(combined) <= budget {
		return combined
	}
	runes := []rune(combined)
	return string(runes[:budget]) + "..."
}
