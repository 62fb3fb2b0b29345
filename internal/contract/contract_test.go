package contract

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/imposter-project/contract-shim/pkg/shimerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		wantErr  bool
		errCheck func(t *testing.T, err error)
	}{
		{
			name: "yaml file",
			file: "openapi.yaml",
		},
		{
			name: "json file",
			file: "openapi.json",
		},
		{
			name:    "unknown extension",
			file:    "openapi.unknown",
			wantErr: true,
			errCheck: func(t *testing.T, err error) {
				var loadErr *shimerr.LoadError
				require.True(t, errors.As(err, &loadErr))
				assert.ErrorIs(t, err, shimerr.ErrUnknownExtension)
			},
		},
		{
			name:    "missing file",
			file:    "does-not-exist.yaml",
			wantErr: true,
			errCheck: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, os.ErrNotExist)
			},
		},
		{
			name:    "malformed json",
			file:    "broken.json",
			wantErr: true,
			errCheck: func(t *testing.T, err error) {
				var loadErr *shimerr.LoadError
				require.True(t, errors.As(err, &loadErr))
			},
		},
		{
			name:    "malformed yaml",
			file:    "broken.yaml",
			wantErr: true,
			errCheck: func(t *testing.T, err error) {
				var loadErr *shimerr.LoadError
				require.True(t, errors.As(err, &loadErr))
			},
		},
		{
			name:    "swagger 2 document",
			file:    "swagger.yaml",
			wantErr: true,
			errCheck: func(t *testing.T, err error) {
				var contractErr *shimerr.ContractError
				require.True(t, errors.As(err, &contractErr))
				assert.Contains(t, contractErr.Reason, "unsupported OpenAPI version")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Load(filepath.Join("testdata", tt.file))
			if tt.wantErr {
				require.Error(t, err)
				if tt.errCheck != nil {
					tt.errCheck(t, err)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Test Spec", c.Title())
			assert.Equal(t, "testdata", c.BaseDir)
			assert.NotNil(t, c.Model)
		})
	}
}

func TestParse_Inline(t *testing.T) {
	c, err := Parse([]byte(`openapi: 3.1.0
info:
  title: Inline
  version: "1"
paths: {}
`), "")
	require.NoError(t, err)
	assert.Equal(t, "3.1.0", c.Version)
	assert.Empty(t, c.BaseDir)
	assert.Equal(t, "Inline", c.Title())
}

func TestParse_Garbage(t *testing.T) {
	_, err := Parse([]byte("just some text"), "inline")
	var contractErr *shimerr.ContractError
	require.ErrorAs(t, err, &contractErr)
}

func TestServerBasePaths(t *testing.T) {
	tests := []struct {
		name    string
		servers string
		want    []string
		wantErr bool
	}{
		{
			name:    "no servers",
			servers: "",
			want:    []string{""},
		},
		{
			name: "root server",
			servers: `servers:
  - url: http://localhost:8000
`,
			want: []string{""},
		},
		{
			name: "trailing slash trimmed",
			servers: `servers:
  - url: http://localhost:8000/
  - url: https://example.com/api/v1/
`,
			want: []string{"", "/api/v1"},
		},
		{
			name: "duplicates collapse in document order",
			servers: `servers:
  - url: http://localhost:8001/with/path
  - url: http://localhost:8000
  - url: https://prod.example.com/with/path
`,
			want: []string{"/with/path", ""},
		},
		{
			name: "relative server url",
			servers: `servers:
  - url: /relative
`,
			want: []string{"/relative"},
		},
		{
			name: "variables replaced by defaults",
			servers: `servers:
  - url: https://{region}.example.com/{basePath}
    variables:
      region:
        default: eu
      basePath:
        default: v2
`,
			want: []string{"/v2"},
		},
		{
			name: "unparseable url",
			servers: `servers:
  - url: "http://bad host:port:x/"
`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := "openapi: 3.0.3\ninfo:\n  title: Servers\n  version: \"1\"\n" + tt.servers + "paths: {}\n"
			c, err := Parse([]byte(doc), "")
			require.NoError(t, err)

			got, err := c.ServerBasePaths()
			if tt.wantErr {
				var contractErr *shimerr.ContractError
				require.ErrorAs(t, err, &contractErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_LocalRelative(t *testing.T) {
	c, err := Resolve(context.Background(), "openapi.yaml", "testdata")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "openapi.yaml"), c.Source)
}

func TestResolve_Remote(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "openapi.yaml"))
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(data)
	}))
	defer server.Close()

	location := server.URL + "/openapi.yaml"
	c, err := Resolve(context.Background(), location, "")
	require.NoError(t, err)
	assert.Equal(t, location, c.Source)
	assert.Equal(t, "Test Spec", c.Title())
}

func TestResolve_RemoteFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := Resolve(context.Background(), server.URL+"/missing.yaml", "")
	var loadErr *shimerr.LoadError
	require.ErrorAs(t, err, &loadErr)
}

func TestRemoteFileName(t *testing.T) {
	assert.Equal(t, "contract.json", remoteFileName("https://example.com/api.json?ref=main"))
	assert.Equal(t, "contract.yml", remoteFileName("git::https://example.com/repo.git//api.yml"))
	assert.Equal(t, "contract.yaml", remoteFileName("https://example.com/spec"))
}

func TestLint(t *testing.T) {
	valid, err := Load(filepath.Join("testdata", "openapi.yaml"))
	require.NoError(t, err)
	assert.Empty(t, valid.Lint())

	invalid, err := Load(filepath.Join("testdata", "lint-invalid.yaml"))
	require.NoError(t, err)
	assert.NotEmpty(t, invalid.Lint())
}
