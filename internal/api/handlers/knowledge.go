package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/relaya-ai/relaya/internal/api"
	"github.com/relaya-ai/relaya/internal/domain"
	"github.com/relaya-ai/relaya/internal/service"
	"github.com/relaya-ai/relaya/internal/vectorstore"
)

type KnowledgeService interface {
	Upload(ctx context.Context, input service.UploadInput) (*domain.KnowledgeItem, error)
	Get(ctx context.Context, id string) (*domain.KnowledgeItem, error)
	List(ctx context.Context, input service.ListInput) (*service.KnowledgeItemPage, error)
	Delete(ctx context.Context, id string) error
	DeleteAgentCorpus(ctx context.Context, agentID string) error
	CorpusStats(ctx context.Context, agentID string) vectorstore.NamespaceStats
}

type KnowledgeHandler struct {
	svc KnowledgeService
}

func NewKnowledgeHandler(svc KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{svc: svc}
}

type KnowledgeItemResponse struct {
	ID           string `json:"id"`
	AgentID      string `json:"agent_id"`
	FileName     string `json:"file_name"`
	MimeType     string `json:"mime_type"`
	SizeBytes    int64  `json:"size_bytes"`
	Status       string `json:"status"`
	ChunkCount   int    `json:"chunk_count"`
	ErrorMessage string `json:"error_message,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

func knowledgeItemToResponse(item *domain.KnowledgeItem) *KnowledgeItemResponse {
	return &KnowledgeItemResponse{
		ID:           item.ID,
		AgentID:      item.AgentID,
		FileName:     item.FileName,
		MimeType:     item.MimeType,
		SizeBytes:    item.SizeBytes,
		Status:       string(item.Status),
		ChunkCount:   item.ChunkCount,
		ErrorMessage: item.ErrorMessage,
		CreatedAt:    item.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:    item.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// Upload accepts a multipart file upload and registers it as a pending
// knowledge item. Processing happens asynchronously; the response carries the
// item in its PENDING state.
func (h *KnowledgeHandler) Upload(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	if agentID == "" {
		api.Error(w, http.StatusBadRequest, "agent id is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	mimeType := header.Header.Get("Content-Type")

	item, err := h.svc.Upload(r.Context(), service.UploadInput{
		AgentID:  agentID,
		FileName: header.Filename,
		MimeType: mimeType,
		Data:     data,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, knowledgeItemToResponse(item))
}

func (h *KnowledgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	item, err := h.svc.Get(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, knowledgeItemToResponse(item))
}

type KnowledgeListResponse struct {
	Items   []*KnowledgeItemResponse `json:"items"`
	Cursor  string                   `json:"cursor,omitempty"`
	HasMore bool                     `json:"has_more"`
}

func (h *KnowledgeHandler) List(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	if agentID == "" {
		api.Error(w, http.StatusBadRequest, "agent id is required")
		return
	}

	cursor := r.URL.Query().Get("cursor")
	limitStr := r.URL.Query().Get("limit")
	limit := 20
	if limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	page, err := h.svc.List(r.Context(), service.ListInput{
		AgentID: agentID,
		Cursor:  cursor,
		Limit:   limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*KnowledgeItemResponse, len(page.Items))
	for i, item := range page.Items {
		responses[i] = knowledgeItemToResponse(item)
	}

	api.Success(w, http.StatusOK, KnowledgeListResponse{
		Items:   responses,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	})
}

func (h *KnowledgeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *KnowledgeHandler) DeleteCorpus(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	if agentID == "" {
		api.Error(w, http.StatusBadRequest, "agent id is required")
		return
	}

	if err := h.svc.DeleteAgentCorpus(r.Context(), agentID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type CorpusStatsResponse struct {
	VectorCount int64 `json:"vector_count"`
}

func (h *KnowledgeHandler) Stats(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	if agentID == "" {
		api.Error(w, http.StatusBadRequest, "agent id is required")
		return
	}

	stats := h.svc.CorpusStats(r.Context(), agentID)
	api.Success(w, http.StatusOK, CorpusStatsResponse{VectorCount: stats.VectorCount})
}
