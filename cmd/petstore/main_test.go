package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/imposter-project/contract-shim/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPets(t *testing.T) *petService {
	t.Helper()
	seed, err := loadSeed("")
	require.NoError(t, err)
	// each test gets its own store so tests do not see each other's pets
	return newPetService(store.Open(t.Name(), store.NewStoreProvider("store-inmem")), seed)
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	app, err := newEmbeddedApplication(newTestPets(t), []string{"secret"})
	require.NoError(t, err)
	return app
}

func serve(h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPetstore(t *testing.T) {
	auth := map[string]string{"X-API-Key": "secret"}

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		headers    map[string]string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "list pets",
			method:     http.MethodGet,
			path:       "/pets",
			wantStatus: http.StatusOK,
			wantBody:   `[{"id":1,"name":"Rex","tag":"dog"},{"id":2,"name":"Tiddles","tag":"cat"},{"id":3,"name":"Bubbles"}]`,
		},
		{
			name:       "list pets with limit under base path",
			method:     http.MethodGet,
			path:       "/v1/pets?limit=1",
			wantStatus: http.StatusOK,
			wantBody:   `[{"id":1,"name":"Rex","tag":"dog"}]`,
		},
		{
			name:       "limit out of range",
			method:     http.MethodGet,
			path:       "/pets?limit=500",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "show pet",
			method:     http.MethodGet,
			path:       "/pets/2",
			wantStatus: http.StatusOK,
			wantBody:   `{"id":2,"name":"Tiddles","tag":"cat"}`,
		},
		{
			name:       "show missing pet",
			method:     http.MethodGet,
			path:       "/pets/99",
			wantStatus: http.StatusNotFound,
			wantBody:   `{"code":404,"message":"pet 99 not found"}`,
		},
		{
			name:       "pet id is not an integer",
			method:     http.MethodGet,
			path:       "/pets/rex",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "create pet",
			method:     http.MethodPost,
			path:       "/pets",
			body:       `{"name":"Goldie","tag":"fish"}`,
			wantStatus: http.StatusCreated,
			wantBody:   `{"id":4,"name":"Goldie","tag":"fish"}`,
		},
		{
			name:       "create pet with unknown property",
			method:     http.MethodPost,
			path:       "/pets",
			body:       `{"name":"Goldie","colour":"gold"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "delete without key",
			method:     http.MethodDelete,
			path:       "/pets/1",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "delete with key",
			method:     http.MethodDelete,
			path:       "/pets/1",
			headers:    auth,
			wantStatus: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newTestServer(t), tt.method, tt.path, tt.body, tt.headers)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestPetstore_ProblemDocuments(t *testing.T) {
	h := newTestServer(t)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantCode   string
	}{
		{name: "format error", method: http.MethodGet, path: "/pets/rex", wantStatus: http.StatusBadRequest, wantCode: "FORMAT_ERROR"},
		{name: "security error", method: http.MethodPost, path: "/admin/reset", wantStatus: http.StatusForbidden, wantCode: "SECURITY_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, tt.method, tt.path, "", nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, problemContentType, rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), `"code":"`+tt.wantCode+`"`)
			assert.Contains(t, rec.Body.String(), `"type":"`+tt.path+`"`)
		})
	}
}

func TestPetstore_Reset(t *testing.T) {
	h := newTestServer(t)
	auth := map[string]string{"X-API-Key": "secret"}

	require.Equal(t, http.StatusCreated, serve(h, http.MethodPost, "/pets", `{"name":"Goldie"}`, nil).Code)
	require.Equal(t, http.StatusNoContent, serve(h, http.MethodDelete, "/pets/1", "", auth).Code)

	rec := serve(h, http.MethodPost, "/admin/reset", "", auth)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(h, http.MethodGet, "/pets", "", nil)
	assert.JSONEq(t, `[{"id":1,"name":"Rex","tag":"dog"},{"id":2,"name":"Tiddles","tag":"cat"},{"id":3,"name":"Bubbles"}]`, rec.Body.String())

	rec = serve(h, http.MethodPost, "/pets", `{"name":"Nemo"}`, nil)
	assert.JSONEq(t, `{"id":4,"name":"Nemo"}`, rec.Body.String())
}

func TestBuildHandler_ConfigDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "petstore.yaml"), petstoreContract, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "petstore-shim.yaml"), []byte(`contract: petstore.yaml
errorTranslator: api_error
security:
  apiKeys:
    keys: ["${env.TEST_PETSTORE_KEY:-fallback}"]
`), 0644))
	t.Setenv("TEST_PETSTORE_KEY", "from-env")
	t.Setenv("SHIM_MODE", "http")

	_, h, err := buildHandler(context.Background(), &flags{configDir: dir}, newTestPets(t))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/pets/3", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, serve(h, http.MethodDelete, "/pets/3", "", map[string]string{"X-API-Key": "fallback"}).Code)
	assert.Equal(t, http.StatusNoContent, serve(h, http.MethodDelete, "/pets/3", "", map[string]string{"X-API-Key": "from-env"}).Code)
}

func TestParseFlags(t *testing.T) {
	t.Setenv("SHIM_CONFIG_DIR", "")
	t.Setenv("SHIM_STORE_DRIVER", "")
	t.Setenv("PETSTORE_API_KEYS", "")

	f, err := parseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, "store-inmem", f.storeDriver)
	assert.Equal(t, []string{"letmein"}, f.apiKeys)

	f, err = parseFlags([]string{"--config-dir", "/etc/shim", "--api-key", "a", "--api-key", "b"})
	require.NoError(t, err)
	assert.Equal(t, "/etc/shim", f.configDir)
	assert.Equal(t, []string{"a", "b"}, f.apiKeys)
}

func TestLoadSeed(t *testing.T) {
	seed, err := loadSeed("")
	require.NoError(t, err)
	assert.Len(t, seed, 3)

	path := filepath.Join(t.TempDir(), "pets.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"7":{"id":7,"name":"Lucky"}}`), 0644))
	seed, err = loadSeed(path)
	require.NoError(t, err)
	assert.Contains(t, seed, "7")

	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0644))
	_, err = loadSeed(path)
	assert.Error(t, err)
}
