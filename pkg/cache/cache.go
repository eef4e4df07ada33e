// Package cache implements the three-state (positive / negative / miss)
// filesystem cache repository described by the transcode proxy's data
// model: a positive SymCache file, or a time-bounded negative marker,
// addressed by ArtifactKey under a single root directory.
package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/symcached/symcached/internal/telemetry"
	"github.com/symcached/symcached/pkg/artifact"
	"github.com/symcached/symcached/pkg/symver"
)

// negativeTTL is the fixed lifetime of a negative marker once written.
const negativeTTL = 24 * time.Hour

// expiryLayout is a round-trip (sub-second precision), UTC ISO-8601 layout.
const expiryLayout = "2006-01-02T15:04:05.999999999Z07:00"

// State is the logical outcome of a cache lookup.
type State int

const (
	// Miss means neither a positive file nor a live negative marker exists.
	Miss State = iota
	// Positive means the artifact file exists at Path.
	Positive
	// Negative means a live (unexpired) negative marker exists.
	Negative
)

// String renders the state for logging.
func (s State) String() string {
	switch s {
	case Positive:
		return "positive"
	case Negative:
		return "negative"
	default:
		return "miss"
	}
}

// Result is the outcome of a lookup.
type Result struct {
	State   State
	Path    string        // valid only when State == Positive
	Version symver.Version // valid only when State == Positive
}

// Repository is a filesystem-backed cache rooted at a single directory.
// Every method tolerates ENOENT and concurrent mutation from other
// processes or goroutines without propagating an error — races are
// expected and resolved by rename atomicity, not locking.
type Repository struct {
	root string
}

// New returns a Repository rooted at root. The directory is not created;
// callers validate its existence at startup per the configuration contract.
func New(root string) *Repository {
	return &Repository{root: root}
}

// Root returns the cache repository's root directory.
func (r *Repository) Root() string { return r.root }

// PositivePath returns the canonical positive-entry path for key. It is a
// pure function of key and the configured root: no filesystem access
// occurs, and two calls with equal keys always yield equal paths.
func (r *Repository) PositivePath(key artifact.Key) string {
	return filepath.Join(r.root, key.Name, key.IDAndAge(), fmt.Sprintf("%s-v%s.symcache", key.Name, key.Version))
}

// NegativePath returns the canonical negative-marker path for key.
func (r *Repository) NegativePath(key artifact.Key) string {
	return filepath.Join(r.root, key.Name, key.IDAndAge(), fmt.Sprintf("%s-v%s.negativesymcache", key.Name, key.Version))
}

// PathFor is the public alias for PositivePath, matching the spec's
// path_for operation name.
func (r *Repository) PathFor(key artifact.Key) string {
	return r.PositivePath(key)
}

// Lookup resolves key against the filesystem. A positive file's mere
// existence is a hit; its content is never validated here. An expired
// negative marker is deleted opportunistically and reported as Miss, not
// Negative: a marker past its TTL carries no information and must not be
// treated as a live negative result.
func (r *Repository) Lookup(ctx context.Context, key artifact.Key) (result Result) {
	_, span := telemetry.StartCacheSpan(ctx, telemetry.SpanCacheLookup, telemetry.ArtifactName(key.Name))
	defer func() {
		span.SetAttributes(telemetry.CacheState(result.State.String()))
		if result.State == Positive {
			span.SetAttributes(telemetry.CachePath(result.Path))
		}
		span.End()
	}()

	positivePath := r.PositivePath(key)
	if _, err := os.Stat(positivePath); err == nil {
		return Result{State: Positive, Path: positivePath, Version: key.Version}
	}

	negativePath := r.NegativePath(key)
	data, err := os.ReadFile(negativePath)
	if err != nil {
		// Missing, permission races, or any other read failure: miss.
		return Result{State: Miss}
	}

	expiry, err := time.Parse(expiryLayout, string(data))
	if err != nil {
		return Result{State: Miss}
	}

	if !time.Now().UTC().Before(expiry) {
		_ = os.Remove(negativePath) // best-effort; swallow any error
		return Result{State: Miss}
	}

	return Result{State: Negative}
}

// MarkNegative writes a negative marker for key with an expiry one
// negativeTTL from now, overwriting any prior marker.
func (r *Repository) MarkNegative(ctx context.Context, key artifact.Key) error {
	_, span := telemetry.StartCacheSpan(ctx, telemetry.SpanCacheMarkNeg, telemetry.ArtifactName(key.Name))
	defer span.End()

	negativePath := r.NegativePath(key)
	if err := os.MkdirAll(filepath.Dir(negativePath), 0o755); err != nil {
		return fmt.Errorf("cache: creating parent directory for %s: %w", negativePath, err)
	}

	expiry := time.Now().UTC().Add(negativeTTL).Format(expiryLayout)
	if err := os.WriteFile(negativePath, []byte(expiry), 0o644); err != nil {
		return fmt.Errorf("cache: writing negative marker %s: %w", negativePath, err)
	}
	return nil
}

// Publish atomically moves the file at stagedPath into key's canonical
// positive location via rename, which is the sole publication mechanism
// for positive entries. If the rename itself fails but the destination now
// exists — another concurrent transcode won the race — Publish reports
// success with the destination path rather than propagating the error.
func (r *Repository) Publish(key artifact.Key, stagedPath string) (string, error) {
	finalPath := r.PositivePath(key)
	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return "", fmt.Errorf("cache: creating parent directory for %s: %w", finalPath, err)
	}

	if err := os.Rename(stagedPath, finalPath); err != nil {
		if _, statErr := os.Stat(finalPath); statErr == nil {
			return finalPath, nil
		}
		return "", fmt.Errorf("cache: publishing %s: %w", finalPath, err)
	}
	return finalPath, nil
}

// Stat reports whether a positive or negative entry is currently on disk
// for key without applying TTL-expiry or filename-parsing logic. It is
// not used on the request path, which uses Lookup instead.
func (r *Repository) Stat(key artifact.Key) (Result, error) {
	if _, err := os.Stat(r.PositivePath(key)); err == nil {
		return Result{State: Positive, Path: r.PositivePath(key), Version: key.Version}, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return Result{}, err
	}

	if _, err := os.Stat(r.NegativePath(key)); err == nil {
		return Result{State: Negative}, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return Result{}, err
	}

	return Result{State: Miss}, nil
}
