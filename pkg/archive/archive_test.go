package archive

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mslinn/perftest/pkg/config"
)

// fakeS3 accepts PUT object requests and remembers their paths
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusNotImplemented)
		return
	}
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.objects[r.URL.Path] = string(body)
	f.mu.Unlock()
	w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
	w.WriteHeader(http.StatusOK)
}

func TestSplitEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		insecure bool
		host     string
		secure   bool
	}{
		{"http://localhost:9000", false, "localhost:9000", false},
		{"https://s3.amazonaws.com", true, "s3.amazonaws.com", true},
		{"minio.internal:9000", false, "minio.internal:9000", true},
		{"minio.internal:9000", true, "minio.internal:9000", false},
	}

	for _, tt := range tests {
		host, secure := splitEndpoint(tt.endpoint, tt.insecure)
		assert.Equal(t, tt.host, host, tt.endpoint)
		assert.Equal(t, tt.secure, secure, tt.endpoint)
	}
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := New(config.Archive{Endpoint: "localhost:9000"}, zap.NewNop())
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/csv", ContentType("Homepage_wall_time.csv"))
	assert.Equal(t, "text/html", ContentType("Homepage_graph_html.html"))
	assert.Equal(t, "application/octet-stream", ContentType("Homepage_tree.callgrind"))
}

func TestUploadDir(t *testing.T) {
	fake := &fakeS3{objects: map[string]string{}}
	server := httptest.NewServer(fake)
	defer server.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Homepage_wall_time.csv"), []byte("measurement\n6\n"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "profiles"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "profiles", "Homepage_flat.txt"), []byte("flat"), 0644))

	u, err := New(config.Archive{
		Endpoint:  server.URL,
		Bucket:    "perf",
		Prefix:    "nightly",
		AccessKey: "access",
		SecretKey: "secret",
	}, zap.NewNop())
	require.NoError(t, err)

	keys, err := u.UploadDir(context.Background(), dir, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"nightly/run-1/Homepage_wall_time.csv",
		"nightly/run-1/profiles/Homepage_flat.txt",
	}, keys)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Contains(t, fake.objects, "/perf/nightly/run-1/Homepage_wall_time.csv")
	assert.Len(t, fake.objects, 2)
	for p := range fake.objects {
		assert.True(t, strings.HasPrefix(p, "/perf/nightly/run-1/"), p)
	}
}

func TestSink_MissingDirIsNoop(t *testing.T) {
	u, err := New(config.Archive{Endpoint: "http://127.0.0.1:1", Bucket: "perf"}, zap.NewNop())
	require.NoError(t, err)

	s := NewSink(context.Background(), u, filepath.Join(t.TempDir(), "absent"), "run-1")
	assert.Equal(t, "archive", s.Name())
	assert.NoError(t, s.Close())
}
