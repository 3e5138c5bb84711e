package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/voicerag/internal/api"
	"github.com/cloo-solutions/voicerag/internal/domain"
	"github.com/cloo-solutions/voicerag/internal/pagination"
	"github.com/cloo-solutions/voicerag/internal/service"
)

// multipartMemory is how much of an upload is held in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

type DocumentService interface {
	Upload(ctx context.Context, input service.UploadInput) (*domain.Document, error)
	AddText(ctx context.Context, userID, knowledgeBaseID, title, text string) (*domain.Document, error)
	Get(ctx context.Context, knowledgeBaseID, documentID string) (*domain.Document, error)
	List(ctx context.Context, knowledgeBaseID, cursor string, limit int) (*pagination.PageResult[*domain.Document], error)
}

type DocumentHandler struct {
	svc    DocumentService
	owners OwnershipChecker
}

func NewDocumentHandler(svc DocumentService, owners OwnershipChecker) *DocumentHandler {
	return &DocumentHandler{svc: svc, owners: owners}
}

type AddTextRequest struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

type DocumentResponse struct {
	ID              string `json:"id"`
	KnowledgeBaseID string `json:"knowledge_base_id"`
	Filename        string `json:"filename"`
	ContentType     string `json:"content_type"`
	SizeBytes       int64  `json:"size_bytes"`
	Status          string `json:"status"`
	ChunkCount      int    `json:"chunk_count"`
	Error           string `json:"error,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

type ListDocumentsResponse struct {
	Items   []*DocumentResponse `json:"items"`
	Cursor  string              `json:"cursor,omitempty"`
	HasMore bool                `json:"has_more"`
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:              d.ID,
		KnowledgeBaseID: d.KnowledgeBaseID,
		Filename:        d.Filename,
		ContentType:     d.ContentType,
		SizeBytes:       d.SizeBytes,
		Status:          string(d.Status),
		ChunkCount:      d.ChunkCount,
		Error:           d.Error,
		CreatedAt:       d.CreatedAt.Format(timeFormat),
		UpdatedAt:       d.UpdatedAt.Format(timeFormat),
	}
}

func (h *DocumentHandler) authorize(w http.ResponseWriter, r *http.Request) (userID, knowledgeBaseID string, ok bool) {
	userID, ok = callerID(w, r)
	if !ok {
		return "", "", false
	}
	knowledgeBaseID = chi.URLParam(r, "kbID")
	if _, err := h.owners.AuthorizeKnowledgeBase(r.Context(), userID, knowledgeBaseID); err != nil {
		api.HandleError(w, r, err)
		return "", "", false
	}
	return userID, knowledgeBaseID, true
}

// Upload accepts a multipart form with the document in the "file" field and
// queues it for ingestion.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, knowledgeBaseID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read file")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(content)
	}

	doc, err := h.svc.Upload(r.Context(), service.UploadInput{
		UserID:          userID,
		KnowledgeBaseID: knowledgeBaseID,
		Filename:        header.Filename,
		ContentType:     contentType,
		Content:         content,
	})
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusAccepted, documentToResponse(doc))
}

func (h *DocumentHandler) AddText(w http.ResponseWriter, r *http.Request) {
	userID, knowledgeBaseID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	var req AddTextRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Text == "" {
		api.Error(w, http.StatusBadRequest, "text is required")
		return
	}

	doc, err := h.svc.AddText(r.Context(), userID, knowledgeBaseID, req.Title, req.Text)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusAccepted, documentToResponse(doc))
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, knowledgeBaseID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	doc, err := h.svc.Get(r.Context(), knowledgeBaseID, chi.URLParam(r, "documentID"))
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc))
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	_, knowledgeBaseID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	cursor, limit := pageParams(r)
	page, err := h.svc.List(r.Context(), knowledgeBaseID, cursor, limit)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	items := make([]*DocumentResponse, 0, len(page.Items))
	for _, d := range page.Items {
		items = append(items, documentToResponse(d))
	}
	api.Success(w, http.StatusOK, &ListDocumentsResponse{Items: items, Cursor: page.Cursor, HasMore: page.HasMore})
}
