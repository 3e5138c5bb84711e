package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClient_SendsBearerAndJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+testKey, r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "/agents", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "support", body["name"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"a1","name":"support"}}`))
	}))
	defer srv.Close()

	api := NewAPIClientWithConfig(testKey, srv.URL)
	resp, err := api.Post(context.Background(), "/agents", map[string]string{"name": "support"})
	require.NoError(t, err)

	var item CatalogItem
	require.NoError(t, resp.Decode(&item))
	assert.Equal(t, "a1", item.ID)
}

func TestAPIClient_ErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"agent does not belong to caller"}`))
	}))
	defer srv.Close()

	_, err := NewAPIClientWithConfig(testKey, srv.URL).Get(context.Background(), "/agents/x")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "agent does not belong to caller", apiErr.Message)
}

func TestAPIClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewAPIClientWithConfig(testKey, srv.URL).Get(context.Background(), "/health")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "bad gateway")
}

func TestAPIClient_NoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	resp, err := NewAPIClientWithConfig(testKey, srv.URL).Delete(context.Background(), "/api-keys/k1")
	require.NoError(t, err)
	assert.Error(t, resp.Decode(&struct{}{}))
}

func TestAPIClient_UploadFile(t *testing.T) {
	content := []byte("The office opens at nine.")
	path := filepath.Join(t.TempDir(), "hours.txt")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+testKey, r.Header.Get("Authorization"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		got, err := io.ReadAll(file)
		require.NoError(t, err)

		assert.Equal(t, "hours.txt", header.Filename)
		assert.Equal(t, "text/plain", header.Header.Get("Content-Type"))
		assert.Equal(t, content, got)

		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"data":{"id":"d1","filename":"hours.txt","status":"pending"}}`))
	}))
	defer srv.Close()

	var last atomic.Int64
	resp, err := NewAPIClientWithConfig(testKey, srv.URL).UploadFile(context.Background(), "/knowledge-bases/kb/documents", path, "text/plain", func(current, total int64) {
		last.Store(current)
	})
	require.NoError(t, err)

	var doc Document
	require.NoError(t, resp.Decode(&doc))
	assert.Equal(t, "d1", doc.ID)
	assert.Equal(t, int64(len(content)), last.Load())
}

func TestAPIClient_UploadMissingFile(t *testing.T) {
	_, err := NewAPIClientWithConfig(testKey, "http://127.0.0.1:0").UploadFile(context.Background(), "/x", filepath.Join(t.TempDir(), "nope.pdf"), "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open file")
}

func TestProgressReader_ReportsProgress(t *testing.T) {
	data := []byte("hello world this is test data")

	var calls []int64
	pr := &progressReader{
		reader: bytes.NewReader(data),
		total:  int64(len(data)),
		onProgress: func(current, total int64) {
			calls = append(calls, current)
			assert.Equal(t, int64(len(data)), total)
		},
	}

	result, err := io.ReadAll(pr)
	require.NoError(t, err)
	assert.Equal(t, data, result)
	require.NotEmpty(t, calls)
	assert.Equal(t, int64(len(data)), calls[len(calls)-1])
}

func TestNewAPIClientWithCmd_RequiresKey(t *testing.T) {
	useTempConfig(t)

	_, err := NewAPIClientWithCmd(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), envAPIKey)
}
