package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/PaulBabatuyi/files-manager/internal/access"
	"github.com/PaulBabatuyi/files-manager/internal/middleware"
	"github.com/PaulBabatuyi/files-manager/internal/models"
	"github.com/PaulBabatuyi/files-manager/internal/service"
	"github.com/go-chi/chi/v5"
)

type FileService interface {
	Upload(ctx context.Context, id access.Identity, req service.UploadRequest) (*models.FileRecord, error)
	Show(ctx context.Context, id access.Identity, fileID string) (*models.FileRecord, error)
	List(ctx context.Context, id access.Identity, parent models.ParentRef, page, pageSize int) ([]*models.FileRecord, error)
	SetPublic(ctx context.Context, id access.Identity, fileID string, public bool) (*models.FileRecord, error)
	GetFileBytes(ctx context.Context, id access.Identity, fileID, size string) (*service.FileContent, error)
}

func (h *Handler) postUpload(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFrom(r.Context())
	if id.IsAnonymous() {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req service.UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeServiceError(w, r, err)
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}

	rec, err := h.files.Upload(r.Context(), id, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) getShow(w http.ResponseWriter, r *http.Request) {
	rec, err := h.files.Show(r.Context(), middleware.IdentityFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) getIndex(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))

	recs, err := h.files.List(r.Context(), middleware.IdentityFrom(r.Context()), models.ParseParentRef(q.Get("parentId")), page, pageSize)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *Handler) putPublish(w http.ResponseWriter, r *http.Request) {
	h.setPublic(w, r, true)
}

func (h *Handler) putUnpublish(w http.ResponseWriter, r *http.Request) {
	h.setPublic(w, r, false)
}

func (h *Handler) setPublic(w http.ResponseWriter, r *http.Request, public bool) {
	rec, err := h.files.SetPublic(r.Context(), middleware.IdentityFrom(r.Context()), chi.URLParam(r, "id"), public)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// getFile serves raw bytes. Anonymous callers can read public files.
func (h *Handler) getFile(w http.ResponseWriter, r *http.Request) {
	content, err := h.files.GetFileBytes(r.Context(), middleware.IdentityFrom(r.Context()), chi.URLParam(r, "id"), r.URL.Query().Get("size"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", content.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(content.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(content.Data)
}
