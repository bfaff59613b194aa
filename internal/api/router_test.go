package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/PaulBabatuyi/files-manager/internal/access"
	"github.com/PaulBabatuyi/files-manager/internal/common"
	"github.com/PaulBabatuyi/files-manager/internal/middleware"
	"github.com/PaulBabatuyi/files-manager/internal/models"
	"github.com/PaulBabatuyi/files-manager/internal/service"
	"github.com/PaulBabatuyi/files-manager/internal/storage"
	"github.com/PaulBabatuyi/files-manager/internal/tokens"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memDB backs every service with maps, enough to drive the router end to end.
type memDB struct {
	mu    sync.Mutex
	files []*models.FileRecord
	users []*models.User
	jobs  int64
}

func (m *memDB) SaveFile(_ context.Context, rec *models.FileRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = uuid.NewString()
	cp := *rec
	m.files = append(m.files, &cp)
	return nil
}

func (m *memDB) GetFile(_ context.Context, fileID string) (*models.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.files {
		if f.ID == fileID {
			cp := *f
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *memDB) ListFiles(_ context.Context, userID string, parent models.ParentRef, limit, offset int) ([]*models.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*models.FileRecord
	for _, f := range m.files {
		if f.UserID == userID && f.Parent == parent {
			matched = append(matched, f)
		}
	}
	out := []*models.FileRecord{}
	for i := offset; i < len(matched) && len(out) < limit; i++ {
		cp := *matched[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memDB) SetPublic(_ context.Context, fileID, userID string, public bool) (*models.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.files {
		if f.ID == fileID && f.UserID == userID {
			f.IsPublic = public
			cp := *f
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *memDB) EnqueueJob(context.Context, models.JobKind, string, string, int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs++
	return m.jobs, nil
}

func (m *memDB) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return common.ErrEmailExists
		}
	}
	u.ID = uuid.NewString()
	cp := *u
	m.users = append(m.users, &cp)
	return nil
}

func (m *memDB) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *memDB) GetUserByID(_ context.Context, userID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == userID {
			return u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *memDB) CountUsers(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.users)), nil
}

func (m *memDB) CountFiles(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.files)), nil
}

func (m *memDB) Ping(context.Context) error { return nil }

type testServer struct {
	t       *testing.T
	handler http.Handler
	db      *memDB
	fs      afero.Fs
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := &memDB{}
	fs := afero.NewMemMapFs()
	store := tokens.NewMemoryStore(time.Hour)
	logger := zap.NewNop()

	files := service.NewFileService(storage.NewFilesystemStorage(fs, "/data"), db, service.Options{}, logger)
	users := service.NewUserService(db, store, 3, logger)
	status := service.NewStatusService(store, db, db, logger)

	h := NewHandler(files, users, status, logger)
	return &testServer{
		t:       t,
		handler: NewRouter(h, RouterOptions{MaxBodyBytes: 1 << 20, Resolver: access.NewResolver(store)}),
		db:      db,
		fs:      fs,
	}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set(middleware.TokenHeader, token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// login registers email and returns a fresh token for it.
func (s *testServer) login(email string) string {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/users", "", map[string]string{"email": email, "password": "secret"})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/connect", nil)
	req.SetBasicAuth(email, "secret")
	out := httptest.NewRecorder()
	s.handler.ServeHTTP(out, req)
	require.Equal(s.t, http.StatusOK, out.Code)

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(out.Body.Bytes(), &body))
	require.NotEmpty(s.t, body.Token)
	return body.Token
}

func decodeRecord(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestUploadFileAndReadBack(t *testing.T) {
	s := newTestServer(t)
	token := s.login("bob@dylan.com")

	rec := s.do(http.MethodPost, "/files", token, map[string]any{"name": "a.txt", "type": "file", "data": b64("hi")})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeRecord(t, rec)
	assert.Equal(t, "a.txt", body["name"])
	assert.Equal(t, "file", body["type"])
	assert.Equal(t, float64(0), body["parentId"])
	assert.Equal(t, false, body["isPublic"])
	assert.NotContains(t, body, "localPath")

	data := s.do(http.MethodGet, "/files/"+body["id"].(string)+"/data", token, nil)
	require.Equal(t, http.StatusOK, data.Code)
	assert.Equal(t, "hi", data.Body.String())
	assert.NotEmpty(t, data.Header().Get("Content-Type"))
}

func TestUploadErrors(t *testing.T) {
	s := newTestServer(t)
	token := s.login("bob@dylan.com")

	file := decodeRecord(t, s.do(http.MethodPost, "/files", token, map[string]any{"name": "a.txt", "type": "file", "data": b64("hi")}))

	tests := []struct {
		name   string
		token  string
		body   map[string]any
		status int
		reason string
	}{
		{"no token", "", map[string]any{"name": "x", "type": "folder"}, http.StatusUnauthorized, "Unauthorized"},
		{"unknown token", "nope", map[string]any{"name": "x", "type": "folder"}, http.StatusUnauthorized, "Unauthorized"},
		{"missing name", token, map[string]any{"type": "file", "data": b64("x")}, http.StatusBadRequest, "Missing name"},
		{"missing type", token, map[string]any{"name": "x"}, http.StatusBadRequest, "Missing type"},
		{"missing data", token, map[string]any{"name": "x", "type": "image"}, http.StatusBadRequest, "Missing data"},
		{"unknown parent", token, map[string]any{"name": "x", "type": "folder", "parentId": uuid.NewString()}, http.StatusBadRequest, "Parent not found"},
		{"off-type name", token, map[string]any{"name": 3, "type": "file", "data": b64("x"), "parentId": 5}, http.StatusBadRequest, "Missing name"},
		{"off-type type", token, map[string]any{"name": "a.txt", "type": 7, "data": b64("x")}, http.StatusBadRequest, "Missing type"},
		{"numeric parent", token, map[string]any{"name": "a.txt", "type": "file", "data": b64("x"), "parentId": 5}, http.StatusBadRequest, "Parent not found"},
		{"bad data before parent", token, map[string]any{"name": "a.txt", "type": "file", "data": "!!!", "parentId": uuid.NewString()}, http.StatusBadRequest, "Missing data"},
		{"parent is a file", token, map[string]any{"name": "x", "type": "file", "data": b64("x"), "parentId": file["id"]}, http.StatusBadRequest, "Parent is not a folder"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/files", tt.token, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, `{"error":"`+tt.reason+`"}`, rec.Body.String())
		})
	}
}

func TestUploadMalformedJSON(t *testing.T) {
	s := newTestServer(t)
	token := s.login("bob@dylan.com")

	req := httptest.NewRequest(http.MethodPost, "/files", bytes.NewBufferString(`{"name":`))
	req.Header.Set(middleware.TokenHeader, token)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid body"}`, rec.Body.String())
}

func TestPrivateFileOfAnotherUserIsNotFound(t *testing.T) {
	s := newTestServer(t)
	alice := s.login("alice@example.com")
	bob := s.login("bob@example.com")

	file := decodeRecord(t, s.do(http.MethodPost, "/files", alice, map[string]any{"name": "a.txt", "type": "file", "data": b64("hi")}))
	id := file["id"].(string)

	for _, path := range []string{"/files/" + id + "/data", "/files/" + id, "/files/" + uuid.NewString()} {
		rec := s.do(http.MethodGet, path, bob, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.JSONEq(t, `{"error":"Not found"}`, rec.Body.String())
	}

	rec := s.do(http.MethodPut, "/files/"+id+"/publish", bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPublishUnpublish(t *testing.T) {
	s := newTestServer(t)
	token := s.login("bob@dylan.com")
	file := decodeRecord(t, s.do(http.MethodPost, "/files", token, map[string]any{"name": "a.txt", "type": "file", "data": b64("hi")}))
	id := file["id"].(string)

	rec := s.do(http.MethodPut, "/files/"+id+"/publish", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeRecord(t, rec)["isPublic"])

	show := s.do(http.MethodGet, "/files/"+id, token, nil)
	require.Equal(t, http.StatusOK, show.Code)
	assert.Equal(t, true, decodeRecord(t, show)["isPublic"])

	anon := s.do(http.MethodGet, "/files/"+id+"/data", "", nil)
	assert.Equal(t, http.StatusOK, anon.Code)

	rec = s.do(http.MethodPut, "/files/"+id+"/unpublish", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeRecord(t, rec)["isPublic"])

	anon = s.do(http.MethodGet, "/files/"+id+"/data", "", nil)
	assert.Equal(t, http.StatusNotFound, anon.Code)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPut, "/files/"+id+"/publish", "", nil).Code)
}

func TestGetFileBytesClientErrors(t *testing.T) {
	s := newTestServer(t)
	token := s.login("bob@dylan.com")
	folder := decodeRecord(t, s.do(http.MethodPost, "/files", token, map[string]any{"name": "docs", "type": "folder"}))
	img := decodeRecord(t, s.do(http.MethodPost, "/files", token, map[string]any{"name": "a.png", "type": "image", "data": b64("png")}))

	rec := s.do(http.MethodGet, "/files/"+folder["id"].(string)+"/data", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"A folder doesn't have content"}`, rec.Body.String())

	rec = s.do(http.MethodGet, "/files/"+img["id"].(string)+"/data?size=42", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid size"}`, rec.Body.String())

	rec = s.do(http.MethodGet, "/files/"+img["id"].(string)+"/data?size=100", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListFiles(t *testing.T) {
	s := newTestServer(t)
	token := s.login("bob@dylan.com")
	folder := decodeRecord(t, s.do(http.MethodPost, "/files", token, map[string]any{"name": "docs", "type": "folder"}))
	for _, n := range []string{"a", "b", "c"} {
		rec := s.do(http.MethodPost, "/files", token, map[string]any{"name": n, "type": "folder", "parentId": folder["id"]})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	list := func(query string) []map[string]any {
		rec := s.do(http.MethodGet, "/files"+query, token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var out []map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		return out
	}

	assert.Len(t, list(""), 1)
	assert.Len(t, list("?parentId=0"), 1)
	page := list("?parentId=" + folder["id"].(string) + "&page=1&pageSize=2")
	require.Len(t, page, 1)
	assert.Equal(t, "c", page[0]["name"])
	assert.Empty(t, list("?parentId="+folder["id"].(string)+"&page=9"))

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/files", "", nil).Code)
}

func TestUsersAndSessions(t *testing.T) {
	s := newTestServer(t)
	token := s.login("bob@dylan.com")

	rec := s.do(http.MethodPost, "/users", "", map[string]string{"email": "bob@dylan.com", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Already exist"}`, rec.Body.String())

	rec = s.do(http.MethodPost, "/users", "", map[string]string{"password": "x"})
	assert.JSONEq(t, `{"error":"Missing email"}`, rec.Body.String())

	me := s.do(http.MethodGet, "/users/me", token, nil)
	require.Equal(t, http.StatusOK, me.Code)
	body := decodeRecord(t, me)
	assert.Equal(t, "bob@dylan.com", body["email"])
	assert.NotContains(t, body, "passwordHash")

	req := httptest.NewRequest(http.MethodGet, "/connect", nil)
	req.SetBasicAuth("bob@dylan.com", "wrong")
	bad := httptest.NewRecorder()
	s.handler.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusUnauthorized, bad.Code)

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodGet, "/disconnect", token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/users/me", token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/disconnect", token, nil).Code)
}

func TestStatusAndStats(t *testing.T) {
	s := newTestServer(t)
	token := s.login("bob@dylan.com")
	s.do(http.MethodPost, "/files", token, map[string]any{"name": "docs", "type": "folder"})

	rec := s.do(http.MethodGet, "/status", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"redis":true,"db":true}`, rec.Body.String())

	rec = s.do(http.MethodGet, "/stats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"users":1,"files":1}`, rec.Body.String())
}

func TestBodyLimit(t *testing.T) {
	db := &memDB{}
	store := tokens.NewMemoryStore(time.Hour)
	logger := zap.NewNop()
	files := service.NewFileService(storage.NewFilesystemStorage(afero.NewMemMapFs(), "/data"), db, service.Options{}, logger)
	h := NewHandler(files, service.NewUserService(db, store, 3, logger), service.NewStatusService(store, db, db, logger), logger)
	router := NewRouter(h, RouterOptions{MaxBodyBytes: 64, Resolver: access.NewResolver(store)})

	token, err := store.Issue(context.Background(), uuid.NewString())
	require.NoError(t, err)

	payload, err := json.Marshal(map[string]any{"name": "big.bin", "type": "file", "data": b64(string(make([]byte, 256)))})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/files", bytes.NewReader(payload))
	req.Header.Set(middleware.TokenHeader, token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.JSONEq(t, `{"error":"Request too large"}`, rec.Body.String())

	small, err := json.Marshal(map[string]any{"name": "s.txt", "type": "file", "data": b64("hi")})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/files", bytes.NewReader(small))
	req.Header.Set(middleware.TokenHeader, token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestStatusFor(t *testing.T) {
	status, reason := statusFor(common.ErrStorageWriteFailed)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Cannot store the file", reason)

	status, reason = statusFor(context.DeadlineExceeded)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, msgInternal, reason)
}
