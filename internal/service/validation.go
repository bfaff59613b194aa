package service

import (
	"encoding/base64"
	"encoding/json"
	"mime"
	"path/filepath"
	"strconv"

	"github.com/PaulBabatuyi/files-manager/internal/common"
	"github.com/PaulBabatuyi/files-manager/internal/models"
	"github.com/google/uuid"
)

const defaultContentType = "application/octet-stream"

// UploadRequest is the body of an upload. Data is base64 and required for
// every kind except folder.
type UploadRequest struct {
	Name     string           `json:"name"`
	Type     models.FileKind  `json:"type"`
	ParentID models.ParentRef `json:"parentId"`
	IsPublic bool             `json:"isPublic"`
	Data     string           `json:"data"`
}

// UnmarshalJSON only rejects malformed JSON. A field of the wrong JSON type
// reads as absent, and a parentId that is not 0 or a string is kept verbatim
// so it resolves to no folder.
func (r *UploadRequest) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = UploadRequest{
		Name:     looseString(raw["name"]),
		Type:     models.FileKind(looseString(raw["type"])),
		ParentID: models.Root(),
		Data:     looseString(raw["data"]),
	}
	_ = json.Unmarshal(raw["isPublic"], &r.IsPublic)
	if parent, ok := raw["parentId"]; ok {
		if err := r.ParentID.UnmarshalJSON(parent); err != nil {
			r.ParentID = models.ParentID(string(parent))
		}
	}
	return nil
}

func looseString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// validateUpload checks the request fields in order; the first violation
// wins. It returns the decoded payload for kinds that carry content.
func validateUpload(req *UploadRequest) ([]byte, error) {
	if req.Name == "" {
		return nil, common.MissingField("name")
	}
	if !req.Type.Valid() {
		return nil, common.MissingField("type")
	}
	if req.Type == models.KindFolder {
		return nil, nil
	}
	if req.Data == "" {
		return nil, common.MissingField("data")
	}
	return decodePayload(req.Data)
}

// decodePayload accepts standard base64 with or without padding.
func decodePayload(data string) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err == nil {
		return decoded, nil
	}
	decoded, rawErr := base64.RawStdEncoding.DecodeString(data)
	if rawErr == nil {
		return decoded, nil
	}
	return nil, common.MissingField("data")
}

// validID reports whether id has the shape of a store-generated identifier.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// parseVariantSize returns 0 for the primary blob.
func parseVariantSize(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	size, err := strconv.Atoi(raw)
	if err != nil || !models.ValidVariantSize(size) {
		return 0, common.ErrInvalidSize
	}
	return size, nil
}

// contentTypeFor derives a MIME type from the file name's extension.
func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return defaultContentType
}
