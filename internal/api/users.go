package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/PaulBabatuyi/files-manager/internal/access"
	"github.com/PaulBabatuyi/files-manager/internal/middleware"
	"github.com/PaulBabatuyi/files-manager/internal/models"
	"github.com/PaulBabatuyi/files-manager/internal/service"
)

type UserService interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Connect(ctx context.Context, email, password string) (string, error)
	Disconnect(ctx context.Context, token string) error
	Me(ctx context.Context, id access.Identity) (*models.User, error)
}

type StatusService interface {
	Status(ctx context.Context) service.Status
	Stats(ctx context.Context) (service.Stats, error)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) postUser(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}
	u, err := h.users.Register(r.Context(), body.Email, body.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// getConnect exchanges HTTP Basic credentials for a token.
func (h *Handler) getConnect(w http.ResponseWriter, r *http.Request) {
	email, password, ok := r.BasicAuth()
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	token, err := h.users.Connect(r.Context(), email, password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) getDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Disconnect(r.Context(), r.Header.Get(middleware.TokenHeader)); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getMe(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Me(r.Context(), middleware.IdentityFrom(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) getStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.status.Status(r.Context()))
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.status.Stats(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
