package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/PaulBabatuyi/files-manager/internal/models"
	"github.com/gabriel-vasile/mimetype"
)

const tokenHeader = "X-Token"

// FileClient talks to the files API over HTTP.
type FileClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewFileClient(baseURL, token string) *FileClient {
	return &FileClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

type apiError struct {
	Status int
	Reason string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Reason)
}

func (fc *FileClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, fc.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if fc.token != "" {
		req.Header.Set(tokenHeader, fc.token)
	}

	resp, err := fc.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
		return &apiError{Status: resp.StatusCode, Reason: http.StatusText(resp.StatusCode)}
	}
	return &apiError{Status: resp.StatusCode, Reason: body.Error}
}

// Connect exchanges credentials for a token.
func (fc *FileClient) Connect(ctx context.Context, email, password string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fc.baseURL+"/connect", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(email, password)

	resp, err := fc.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", decodeError(resp)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return out.Token, nil
}

type uploadOptions struct {
	Parent   string
	IsPublic bool
	Folder   bool
}

// Upload sends a local file, or creates a folder named name when opts.Folder is set.
// Images are detected from their content.
func (fc *FileClient) Upload(ctx context.Context, name string, opts uploadOptions) (*models.FileRecord, error) {
	body := map[string]any{
		"name":     filepath.Base(name),
		"isPublic": opts.IsPublic,
		"parentId": models.ParseParentRef(opts.Parent),
	}

	if opts.Folder {
		body["type"] = models.KindFolder
	} else {
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		body["type"] = detectKind(data)
		body["data"] = base64.StdEncoding.EncodeToString(data)
	}

	var rec models.FileRecord
	if err := fc.do(ctx, http.MethodPost, "/files", body, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (fc *FileClient) Show(ctx context.Context, fileID string) (*models.FileRecord, error) {
	var rec models.FileRecord
	if err := fc.do(ctx, http.MethodGet, "/files/"+url.PathEscape(fileID), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (fc *FileClient) List(ctx context.Context, parent string, page, pageSize int) ([]*models.FileRecord, error) {
	q := url.Values{}
	if parent != "" {
		q.Set("parentId", parent)
	}
	q.Set("page", strconv.Itoa(page))
	if pageSize > 0 {
		q.Set("pageSize", strconv.Itoa(pageSize))
	}

	var recs []*models.FileRecord
	if err := fc.do(ctx, http.MethodGet, "/files?"+q.Encode(), nil, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (fc *FileClient) SetPublic(ctx context.Context, fileID string, public bool) (*models.FileRecord, error) {
	action := "unpublish"
	if public {
		action = "publish"
	}
	var rec models.FileRecord
	if err := fc.do(ctx, http.MethodPut, "/files/"+url.PathEscape(fileID)+"/"+action, nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Download writes the file content (or one of its variants) to w.
func (fc *FileClient) Download(ctx context.Context, fileID, size string, w io.Writer) (int64, string, error) {
	path := "/files/" + url.PathEscape(fileID) + "/data"
	if size != "" {
		path += "?size=" + url.QueryEscape(size)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fc.baseURL+path, nil)
	if err != nil {
		return 0, "", err
	}
	if fc.token != "" {
		req.Header.Set(tokenHeader, fc.token)
	}

	resp, err := fc.http.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, "", decodeError(resp)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, "", fmt.Errorf("failed to write output: %w", err)
	}
	return n, resp.Header.Get("Content-Type"), nil
}

func detectKind(data []byte) models.FileKind {
	if strings.HasPrefix(mimetype.Detect(data).String(), "image/") {
		return models.KindImage
	}
	return models.KindFile
}
