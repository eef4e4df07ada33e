// Package transcoder implements the orchestration protocol that turns a
// cache miss into a published SymCache artifact: stage the upstream PDB,
// invoke the external transcoder binary, and atomically publish its
// output into the cache repository.
package transcoder

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/symcached/symcached/internal/metrics"
	"github.com/symcached/symcached/internal/telemetry"
	"github.com/symcached/symcached/pkg/artifact"
	"github.com/symcached/symcached/pkg/cache"
	"github.com/symcached/symcached/pkg/process"
	"github.com/symcached/symcached/pkg/symbolclient"
)

// Orchestrator runs the try-transcode protocol for one configured
// transcoder binary and version. One instance is shared by the
// synchronous request path and every background worker.
type Orchestrator struct {
	cache        *cache.Repository
	symbolClient *symbolclient.Client
	binaryPath   string
	metrics      *metrics.Metrics
}

// New constructs an Orchestrator. binaryPath is the path to the external
// transcoder executable; the serve command checks that it exists before
// the server starts. m may be nil, disabling instrumentation.
func New(repo *cache.Repository, symbolClient *symbolclient.Client, binaryPath string, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{cache: repo, symbolClient: symbolClient, binaryPath: binaryPath, metrics: m}
}

// TryTranscode runs the eight-step protocol for key and returns the final
// published path, or "" if the artifact could not be produced — a
// negative marker has already been written in that case unless the
// context was canceled, in which case no cache state is touched.
func (o *Orchestrator) TryTranscode(ctx context.Context, key artifact.Key) (string, error) {
	ctx, span := telemetry.StartTranscodeSpan(ctx, key.Name, key.Version.String(), telemetry.ArtifactID(key.ID.String()))
	defer span.End()

	start := time.Now()
	outcome := "error"
	defer func() {
		o.metrics.ObserveTranscodeDuration(outcome, time.Since(start).Seconds())
	}()

	switch result := o.cache.Lookup(ctx, key); result.State {
	case cache.Positive:
		outcome = "cache_hit"
		return result.Path, nil
	case cache.Negative:
		outcome = "cache_negative"
		return "", nil
	}

	pdbPath, err := o.symbolClient.TryGetPDBPath(ctx, key.Name, key.ID, key.Age)
	if err != nil {
		return "", fmt.Errorf("transcoder: querying symbol server: %w", err)
	}
	if pdbPath == "" {
		outcome = "negative"
		return o.markNegative(ctx, key)
	}

	stagingDir, err := o.newStagingDir()
	if err != nil {
		return "", fmt.Errorf("transcoder: creating staging directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(stagingDir) }()

	stagedPDBDir := filepath.Join(stagingDir, "pdb")
	if err := os.MkdirAll(stagedPDBDir, 0o755); err != nil {
		return "", fmt.Errorf("transcoder: creating pdb staging directory: %w", err)
	}
	stagedPDBPath := filepath.Join(stagedPDBDir, filepath.Base(pdbPath))
	if err := copyFile(pdbPath, stagedPDBPath); err != nil {
		outcome = "negative"
		return o.markNegative(ctx, key)
	}

	expectedOutput := filepath.Join(stagingDir, key.Name, key.IDAndAge(), fmt.Sprintf("%s-v%s.symcache", key.Name, key.Version))

	environment := []string{
		fmt.Sprintf("_NT_SYMBOL_PATH=%s/unused", stagedPDBDir),
		fmt.Sprintf("_NT_SYMCACHE_PATH=%s", stagingDir),
	}
	result, err := process.Run(ctx, o.binaryPath, []string{"-pdb", stagedPDBPath}, environment, nil, nil)
	if err != nil {
		return "", fmt.Errorf("transcoder: running child process: %w", err)
	}
	if result.Canceled {
		outcome = "canceled"
		return "", ctx.Err()
	}
	if result.ExitCode != 0 {
		outcome = "negative"
		return o.markNegative(ctx, key)
	}
	if _, err := os.Stat(expectedOutput); err != nil {
		outcome = "negative"
		return o.markNegative(ctx, key)
	}

	finalPath, err := o.cache.Publish(key, expectedOutput)
	if err != nil {
		return o.markNegative(ctx, key)
	}
	outcome = "published"
	return finalPath, nil
}

func (o *Orchestrator) markNegative(ctx context.Context, key artifact.Key) (string, error) {
	if err := o.cache.MarkNegative(ctx, key); err != nil {
		return "", fmt.Errorf("transcoder: writing negative marker: %w", err)
	}
	return "", nil
}

// newStagingDir creates a fresh <cache-root>/.temp/<uuid> directory. It
// lives under the cache root so the final publish rename stays within the
// same volume even though it crosses subdirectories.
func (o *Orchestrator) newStagingDir() (string, error) {
	dir := filepath.Join(o.cache.Root(), ".temp", uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
