package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/voicerag/internal/domain"
	"github.com/cloo-solutions/voicerag/internal/pagination"
	"github.com/cloo-solutions/voicerag/internal/service"
)

func pendingDocument(filename string) *domain.Document {
	return domain.NewDocument("doc-1", "kb-1", testUserID, filename, "text/markdown", 12, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
}

func multipartBody(t *testing.T, field, filename string, content []byte) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		part, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file"))
	}
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func TestDocumentHandler_Upload_Success(t *testing.T) {
	svc := new(MockDocumentService)
	owners := new(MockOwnershipChecker)
	owners.On("AuthorizeKnowledgeBase", mock.Anything, testUserID, "kb-1").Return(ownedKnowledgeBase(), nil)
	svc.On("Upload", mock.Anything, mock.MatchedBy(func(in service.UploadInput) bool {
		return in.UserID == testUserID &&
			in.KnowledgeBaseID == "kb-1" &&
			in.Filename == "faq.md" &&
			string(in.Content) == "# Hours\n9-5\n"
	})).Return(pendingDocument("faq.md"), nil)

	body, contentType := multipartBody(t, "file", "faq.md", []byte("# Hours\n9-5\n"))
	req := authedRequest(http.MethodPost, "/knowledge-bases/kb-1/documents", body, "kbID", "kb-1")
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	NewDocumentHandler(svc, owners).Upload(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	var resp DocumentResponse
	decodeData(t, w, &resp)
	assert.Equal(t, "doc-1", resp.ID)
	assert.Equal(t, "pending", resp.Status)
	svc.AssertExpectations(t)
}

func TestDocumentHandler_Upload_MissingFile(t *testing.T) {
	svc := new(MockDocumentService)
	owners := new(MockOwnershipChecker)
	owners.On("AuthorizeKnowledgeBase", mock.Anything, testUserID, "kb-1").Return(ownedKnowledgeBase(), nil)

	body, contentType := multipartBody(t, "", "", nil)
	req := authedRequest(http.MethodPost, "/knowledge-bases/kb-1/documents", body, "kbID", "kb-1")
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	NewDocumentHandler(svc, owners).Upload(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "file is required", decodeError(t, w))
}

func TestDocumentHandler_Upload_NotMultipart(t *testing.T) {
	svc := new(MockDocumentService)
	owners := new(MockOwnershipChecker)
	owners.On("AuthorizeKnowledgeBase", mock.Anything, testUserID, "kb-1").Return(ownedKnowledgeBase(), nil)

	req := authedRequest(http.MethodPost, "/knowledge-bases/kb-1/documents", []byte(`{}`), "kbID", "kb-1")
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	NewDocumentHandler(svc, owners).Upload(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid multipart form", decodeError(t, w))
}

func TestDocumentHandler_Upload_UnsupportedType(t *testing.T) {
	svc := new(MockDocumentService)
	owners := new(MockOwnershipChecker)
	owners.On("AuthorizeKnowledgeBase", mock.Anything, testUserID, "kb-1").Return(ownedKnowledgeBase(), nil)
	svc.On("Upload", mock.Anything, mock.Anything).Return(nil, domain.ErrUnsupportedDocumentType)

	body, contentType := multipartBody(t, "file", "song.mp3", []byte("ID3"))
	req := authedRequest(http.MethodPost, "/knowledge-bases/kb-1/documents", body, "kbID", "kb-1")
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	NewDocumentHandler(svc, owners).Upload(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w), "unsupported document type")
}

func TestDocumentHandler_AddText(t *testing.T) {
	svc := new(MockDocumentService)
	owners := new(MockOwnershipChecker)
	owners.On("AuthorizeKnowledgeBase", mock.Anything, testUserID, "kb-1").Return(ownedKnowledgeBase(), nil)
	svc.On("AddText", mock.Anything, testUserID, "kb-1", "Opening hours", "We open at nine.").
		Return(pendingDocument("Opening hours.md"), nil)

	req := authedRequest(http.MethodPost, "/knowledge-bases/kb-1/documents/text",
		[]byte(`{"title":"Opening hours","text":"We open at nine."}`), "kbID", "kb-1")
	w := httptest.NewRecorder()
	NewDocumentHandler(svc, owners).AddText(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	var resp DocumentResponse
	decodeData(t, w, &resp)
	assert.Equal(t, "Opening hours.md", resp.Filename)
}

func TestDocumentHandler_AddText_MissingText(t *testing.T) {
	svc := new(MockDocumentService)
	owners := new(MockOwnershipChecker)
	owners.On("AuthorizeKnowledgeBase", mock.Anything, testUserID, "kb-1").Return(ownedKnowledgeBase(), nil)

	req := authedRequest(http.MethodPost, "/knowledge-bases/kb-1/documents/text", []byte(`{"title":"x"}`), "kbID", "kb-1")
	w := httptest.NewRecorder()
	NewDocumentHandler(svc, owners).AddText(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "text is required", decodeError(t, w))
}

func TestDocumentHandler_GetAndList(t *testing.T) {
	svc := new(MockDocumentService)
	owners := new(MockOwnershipChecker)
	owners.On("AuthorizeKnowledgeBase", mock.Anything, testUserID, "kb-1").Return(ownedKnowledgeBase(), nil)

	ready := pendingDocument("faq.md")
	ready.Status = domain.DocumentStatusReady
	ready.ChunkCount = 3
	svc.On("Get", mock.Anything, "kb-1", "doc-1").Return(ready, nil)
	svc.On("Get", mock.Anything, "kb-1", "doc-2").Return(nil, domain.ErrDocumentNotFound)
	svc.On("List", mock.Anything, "kb-1", "", 0).Return(&pagination.PageResult[*domain.Document]{
		Items: []*domain.Document{ready},
	}, nil)
	handler := NewDocumentHandler(svc, owners)

	w := httptest.NewRecorder()
	handler.Get(w, authedRequest(http.MethodGet, "/knowledge-bases/kb-1/documents/doc-1", nil, "kbID", "kb-1", "documentID", "doc-1"))
	assert.Equal(t, http.StatusOK, w.Code)
	var got DocumentResponse
	decodeData(t, w, &got)
	assert.Equal(t, "ready", got.Status)
	assert.Equal(t, 3, got.ChunkCount)

	w = httptest.NewRecorder()
	handler.Get(w, authedRequest(http.MethodGet, "/knowledge-bases/kb-1/documents/doc-2", nil, "kbID", "kb-1", "documentID", "doc-2"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	handler.List(w, authedRequest(http.MethodGet, "/knowledge-bases/kb-1/documents", nil, "kbID", "kb-1"))
	assert.Equal(t, http.StatusOK, w.Code)
	var list ListDocumentsResponse
	decodeData(t, w, &list)
	require.Len(t, list.Items, 1)
}
