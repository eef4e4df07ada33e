package symbolclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/symcached/symcached/pkg/artifact"
)

func testID(t *testing.T) artifact.ID {
	t.Helper()
	id, err := artifact.ParseID("ABCDEF0123456789ABCDEF0123456789")
	require.NoError(t, err)
	return id
}

func TestTryGetPDBPathParsesPathPrefix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ntdll.pdb/ABCDEF0123456789ABCDEF01234567891/file.ptr", r.URL.Path)
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("PATH:/srv/sym/ntdll.pdb/ABCD/ntdll.pdb"))
	}))
	defer srv.Close()

	client, err := New(srv.URL)
	require.NoError(t, err)

	path, err := client.TryGetPDBPath(context.Background(), "ntdll.pdb", testID(t), 1)
	require.NoError(t, err)
	assert.Equal(t, "/srv/sym/ntdll.pdb/ABCD/ntdll.pdb", path)
}

func TestTryGetPDBPathNonOKIsNoPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client, err := New(srv.URL)
	require.NoError(t, err)

	path, err := client.TryGetPDBPath(context.Background(), "a.pdb", testID(t), 1)
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestTryGetPDBPathWrongMediaTypeIsNoPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("PATH:/x"))
	}))
	defer srv.Close()

	client, err := New(srv.URL)
	require.NoError(t, err)

	path, err := client.TryGetPDBPath(context.Background(), "a.pdb", testID(t), 1)
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestTryGetPDBPathMissingPrefixIsNoPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("not-a-path-response"))
	}))
	defer srv.Close()

	client, err := New(srv.URL)
	require.NoError(t, err)

	path, err := client.TryGetPDBPath(context.Background(), "a.pdb", testID(t), 1)
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestTryGetPDBPathEmptyRemainderIsNoPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("PATH:"))
	}))
	defer srv.Close()

	client, err := New(srv.URL)
	require.NoError(t, err)

	path, err := client.TryGetPDBPath(context.Background(), "a.pdb", testID(t), 1)
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestBuildURLInsertsSeparatorOnlyWhenNeeded(t *testing.T) {
	withPath, err := New("http://upstream.example/syms/")
	require.NoError(t, err)
	assert.Equal(t, "http://upstream.example/syms/a.pdb/ABCDEF0123456789ABCDEF01234567891/file.ptr",
		withPath.buildURL("a.pdb", testID(t), 1))

	bare, err := New("http://upstream.example")
	require.NoError(t, err)
	assert.Equal(t, "http://upstream.example/a.pdb/ABCDEF0123456789ABCDEF01234567891/file.ptr",
		bare.buildURL("a.pdb", testID(t), 1))
}
