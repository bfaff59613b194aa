package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/PaulBabatuyi/files-manager/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadSendsBase64AndDetectsKind(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files", r.URL.Path)
		assert.Equal(t, "tok", r.Header.Get(tokenHeader))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"id": "f1", "name": got["name"], "type": got["type"], "parentId": 0})
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hi"), 0o600))

	rec, err := NewFileClient(srv.URL, "tok").Upload(context.Background(), path, uploadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "f1", rec.ID)
	assert.Equal(t, models.KindFile, rec.Kind)
	assert.Equal(t, "notes.txt", got["name"])
	assert.Equal(t, "aGk=", got["data"])
	assert.Equal(t, float64(0), got["parentId"])
}

func TestAPIErrorsCarryReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Not found"}`))
	}))
	defer srv.Close()

	_, err := NewFileClient(srv.URL, "").Show(context.Background(), "x")
	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Not found", apiErr.Reason)
}

func TestConnectUsesBasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, password, ok := r.BasicAuth()
		if !ok || email != "bob@dylan.com" || password != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Unauthorized"}`))
			return
		}
		w.Write([]byte(`{"token":"abc"}`))
	}))
	defer srv.Close()

	c := NewFileClient(srv.URL, "")
	token, err := c.Connect(context.Background(), "bob@dylan.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	_, err = c.Connect(context.Background(), "bob@dylan.com", "nope")
	assert.EqualError(t, err, "401: Unauthorized")
}

func TestDownloadWithSize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files/f1/data", r.URL.Path)
		assert.Equal(t, "250", r.URL.Query().Get("size"))
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("thumb"))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	n, ct, err := NewFileClient(srv.URL, "").Download(context.Background(), "f1", "250", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, "thumb", buf.String())
}

func TestDetectKind(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	assert.Equal(t, models.KindImage, detectKind(png))
	assert.Equal(t, models.KindFile, detectKind([]byte("plain text")))
}
