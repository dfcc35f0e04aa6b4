package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/relaya-ai/relaya/internal/api"
	"github.com/relaya-ai/relaya/internal/domain"
)

type RetrievalService interface {
	Retrieve(ctx context.Context, query, agentID string) ([]domain.QueryResult, error)
	AssembleContext(results []domain.QueryResult) string
}

type RetrievalHandler struct {
	svc RetrievalService
}

func NewRetrievalHandler(svc RetrievalService) *RetrievalHandler {
	return &RetrievalHandler{svc: svc}
}

type RetrieveRequest struct {
	Query string `json:"query"`
}

type RetrieveMatch struct {
	Text   string  `json:"text"`
	Score  float32 `json:"score"`
	Source string  `json:"source,omitempty"`
}

type RetrieveResponse struct {
	Matches []RetrieveMatch `json:"matches"`
	Context string          `json:"context"`
}

// Retrieve answers a query against an agent's corpus. An empty match list is
// a normal outcome, not an error: the agent simply answers without grounding.
func (h *RetrievalHandler) Retrieve(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	if agentID == "" {
		api.Error(w, http.StatusBadRequest, "agent id is required")
		return
	}

	var req RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	matches, err := h.svc.Retrieve(r.Context(), req.Query, agentID)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	contextStr := h.svc.AssembleContext(matches)

	responses := make([]RetrieveMatch, len(matches))
	for i, m := range matches {
		responses[i] = RetrieveMatch{Text: m.Text, Score: m.Score, Source: m.Source}
	}

	api.Success(w, http.StatusOK, RetrieveResponse{
		Matches: responses,
		Context: contextStr,
	})
}
