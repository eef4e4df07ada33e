package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/symcached/symcached/pkg/artifact"
	"github.com/symcached/symcached/pkg/cache"
	"github.com/symcached/symcached/pkg/queue"
	"github.com/symcached/symcached/pkg/symbolclient"
	"github.com/symcached/symcached/pkg/symver"
	"github.com/symcached/symcached/pkg/transcoder"
)

const testID = "ABCDEF0123456789ABCDEF0123456789"

// noUpstreamSymbolServer answers every request with a non-200 status, so
// the symbol client reports "no path available" without a nil client
// dereference on the background queue's worker goroutines.
func noUpstreamSymbolServer(t *testing.T) *symbolclient.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)
	client, err := symbolclient.New(srv.URL)
	require.NoError(t, err)
	return client
}

func newOrchestrator(t *testing.T, repo *cache.Repository) *transcoder.Orchestrator {
	t.Helper()
	return transcoder.New(repo, noUpstreamSymbolServer(t), "", nil)
}

func newTestRouter(t *testing.T, repo *cache.Repository, orch *transcoder.Orchestrator) (http.Handler, *queue.Queue) {
	t.Helper()
	q := queue.New(orch)
	require.NoError(t, q.Start())
	t.Cleanup(q.Stop)

	deps := Deps{
		Cache:             repo,
		Orchestrator:      orch,
		Queue:             q,
		MinFormatVersion:  symver.MustParse("3.0.0"),
		AsyncThreshold:    symver.MustParse("3.1.0"),
		TranscoderVersion: symver.MustParse("3.1.0"),
		RequestTimeout:    5 * time.Second,
	}
	return NewRouter(deps), q
}

func testKey(t *testing.T) artifact.Key {
	t.Helper()
	id, err := artifact.ParseID(testID)
	require.NoError(t, err)
	key, err := artifact.NewKey(symver.MustParse("3.1.0"), "ntdll.pdb", id, 1)
	require.NoError(t, err)
	return key
}

func TestServeArtifactRejectsVersionAtOrBelowMinimum(t *testing.T) {
	root := t.TempDir()
	repo := cache.New(root)
	orch := newOrchestrator(t, repo)
	router, _ := newTestRouter(t, repo, orch)

	req := httptest.NewRequest(http.MethodGet, "/v3.0.0/ntdll.pdb/"+testID+"/1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeArtifactPositiveHitStreamsFile(t *testing.T) {
	root := t.TempDir()
	repo := cache.New(root)
	key := testKey(t)

	staged := filepath.Join(root, "staged.symcache")
	require.NoError(t, os.WriteFile(staged, []byte("artifact-bytes"), 0o644))
	_, err := repo.Publish(key, staged)
	require.NoError(t, err)

	orch := newOrchestrator(t, repo)
	router, _ := newTestRouter(t, repo, orch)

	req := httptest.NewRequest(http.MethodGet, "/v3.1.0/ntdll.pdb/"+testID+"/1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "artifact-bytes", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/vnd.ms-symcache")
}

func TestServeArtifactNegativeHitReturns404(t *testing.T) {
	root := t.TempDir()
	repo := cache.New(root)
	key := testKey(t)
	require.NoError(t, repo.MarkNegative(context.Background(), key))

	orch := newOrchestrator(t, repo)
	router, _ := newTestRouter(t, repo, orch)

	req := httptest.NewRequest(http.MethodGet, "/v3.1.0/ntdll.pdb/"+testID+"/1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Header().Get("Retry-After"))
}

func TestServeArtifactAsyncEligibleMissEnqueuesAndReturns404WithRetryAfter(t *testing.T) {
	root := t.TempDir()
	repo := cache.New(root)
	orch := newOrchestrator(t, repo)
	router, _ := newTestRouter(t, repo, orch)

	req := httptest.NewRequest(http.MethodGet, "/v3.2.0/ntdll.pdb/"+testID+"/1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestServeArtifactAcceptRetryAfterOptsIntoAsync(t *testing.T) {
	root := t.TempDir()
	repo := cache.New(root)
	orch := newOrchestrator(t, repo)
	router, _ := newTestRouter(t, repo, orch)

	req := httptest.NewRequest(http.MethodGet, "/v3.0.5/ntdll.pdb/"+testID+"/1", nil)
	req.Header.Set("Accept-Retry-After", "true")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestServeArtifactIfVersionExceedsRejectsNonStrictlyPreceding(t *testing.T) {
	root := t.TempDir()
	repo := cache.New(root)
	key := testKey(t)
	staged := filepath.Join(root, "staged.symcache")
	require.NoError(t, os.WriteFile(staged, []byte("bytes"), 0o644))
	_, err := repo.Publish(key, staged)
	require.NoError(t, err)

	orch := newOrchestrator(t, repo)
	router, _ := newTestRouter(t, repo, orch)

	req := httptest.NewRequest(http.MethodGet, "/v3.1.0/ntdll.pdb/"+testID+"/1", nil)
	req.Header.Set("If-Version-Exceeds", "3.1.0")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeArtifactIfVersionExceedsBoundSatisfiedReturns304(t *testing.T) {
	root := t.TempDir()
	repo := cache.New(root)
	key := testKey(t)
	staged := filepath.Join(root, "staged.symcache")
	require.NoError(t, os.WriteFile(staged, []byte("bytes"), 0o644))
	_, err := repo.Publish(key, staged)
	require.NoError(t, err)

	orch := newOrchestrator(t, repo)
	router, _ := newTestRouter(t, repo, orch)

	req := httptest.NewRequest(http.MethodGet, "/v3.2.0/ntdll.pdb/"+testID+"/1", nil)
	req.Header.Set("If-Version-Exceeds", "3.1.0")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestServeArtifactMultipleIfVersionExceedsHeadersRejected(t *testing.T) {
	root := t.TempDir()
	repo := cache.New(root)
	orch := newOrchestrator(t, repo)
	router, _ := newTestRouter(t, repo, orch)

	req := httptest.NewRequest(http.MethodGet, "/v3.1.0/ntdll.pdb/"+testID+"/1", nil)
	req.Header.Add("If-Version-Exceeds", "3.0.0")
	req.Header.Add("If-Version-Exceeds", "3.0.1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeArtifactOmittedAgeDefaultsToOne(t *testing.T) {
	root := t.TempDir()
	repo := cache.New(root)
	key := testKey(t)
	staged := filepath.Join(root, "staged.symcache")
	require.NoError(t, os.WriteFile(staged, []byte("bytes"), 0o644))
	_, err := repo.Publish(key, staged)
	require.NoError(t, err)

	orch := newOrchestrator(t, repo)
	router, _ := newTestRouter(t, repo, orch)

	req := httptest.NewRequest(http.MethodGet, "/v3.1.0/ntdll.pdb/"+testID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadinessReportsUnavailableWhenCacheRootMissing(t *testing.T) {
	repo := cache.New("/nonexistent/cache/root")
	orch := newOrchestrator(t, repo)
	router, _ := newTestRouter(t, repo, orch)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLivenessAlwaysOK(t *testing.T) {
	root := t.TempDir()
	repo := cache.New(root)
	orch := newOrchestrator(t, repo)
	router, _ := newTestRouter(t, repo, orch)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
