package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used across the handler, orchestrator, symbol client,
// queue, and child-process supervisor.
const (
	// ========================================================================
	// Client / request attributes
	// ========================================================================
	AttrClientIP   = "client.ip"
	AttrHTTPMethod = "http.method"
	AttrHTTPPath   = "http.path"
	AttrHTTPStatus = "http.status_code"

	// ========================================================================
	// Artifact attributes
	// ========================================================================
	AttrArtifactName  = "artifact.name"
	AttrArtifactID    = "artifact.id"
	AttrArtifactAge   = "artifact.age"
	AttrFormatVersion = "artifact.format_version"

	// ========================================================================
	// Cache attributes
	// ========================================================================
	AttrCacheState = "cache.state" // positive, negative, miss
	AttrCachePath  = "cache.path"

	// ========================================================================
	// Transcode / queue attributes
	// ========================================================================
	AttrOutcome     = "transcode.outcome"
	AttrStagingDir  = "transcode.staging_dir"
	AttrQueueDepth  = "queue.depth"
	AttrSymbolURL   = "symbolclient.url"
	AttrExitCode    = "process.exit_code"
)

// Span names.
const (
	SpanHTTPRequest    = "http.request"
	SpanCacheLookup    = "cache.lookup"
	SpanCacheMarkNeg   = "cache.mark_negative"
	SpanTranscode      = "transcode.attempt"
	SpanSymbolFetch    = "symbolclient.fetch"
	SpanProcessRun     = "process.run"
	SpanQueueEnqueue   = "queue.enqueue"
	SpanQueueDrain     = "queue.drain"
	SpanSweepCycle     = "sweep.cycle"
)

// ClientIP returns an attribute for the caller's IP address.
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// HTTPMethod returns an attribute for the request method.
func HTTPMethod(method string) attribute.KeyValue {
	return attribute.String(AttrHTTPMethod, method)
}

// HTTPPath returns an attribute for the request path.
func HTTPPath(path string) attribute.KeyValue {
	return attribute.String(AttrHTTPPath, path)
}

// HTTPStatus returns an attribute for the response status code.
func HTTPStatus(code int) attribute.KeyValue {
	return attribute.Int(AttrHTTPStatus, code)
}

// ArtifactName returns an attribute for the artifact file name.
func ArtifactName(name string) attribute.KeyValue {
	return attribute.String(AttrArtifactName, name)
}

// ArtifactID returns an attribute for the hex-encoded artifact identifier.
func ArtifactID(id string) attribute.KeyValue {
	return attribute.String(AttrArtifactID, id)
}

// ArtifactAge returns an attribute for the hex-encoded artifact age.
func ArtifactAge(age string) attribute.KeyValue {
	return attribute.String(AttrArtifactAge, age)
}

// FormatVersion returns an attribute for the requested format version.
func FormatVersion(v string) attribute.KeyValue {
	return attribute.String(AttrFormatVersion, v)
}

// CacheState returns an attribute for a cache lookup result.
func CacheState(state string) attribute.KeyValue {
	return attribute.String(AttrCacheState, state)
}

// CachePath returns an attribute for a resolved on-disk cache path.
func CachePath(path string) attribute.KeyValue {
	return attribute.String(AttrCachePath, path)
}

// Outcome returns an attribute for a transcode attempt's terminal outcome.
func Outcome(outcome string) attribute.KeyValue {
	return attribute.String(AttrOutcome, outcome)
}

// StagingDir returns an attribute for a transcode attempt's staging directory.
func StagingDir(dir string) attribute.KeyValue {
	return attribute.String(AttrStagingDir, dir)
}

// QueueDepth returns an attribute for the current background queue depth.
func QueueDepth(depth int) attribute.KeyValue {
	return attribute.Int(AttrQueueDepth, depth)
}

// SymbolURL returns an attribute for the upstream symbol-server URL fetched.
func SymbolURL(url string) attribute.KeyValue {
	return attribute.String(AttrSymbolURL, url)
}

// ExitCode returns an attribute for a child process's exit code.
func ExitCode(code int) attribute.KeyValue {
	return attribute.Int(AttrExitCode, code)
}

// StartHTTPSpan starts the root span for an inbound HTTP request.
func StartHTTPSpan(ctx context.Context, method, path string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{HTTPMethod(method), HTTPPath(path)}
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, SpanHTTPRequest, trace.WithAttributes(allAttrs...))
}

// StartTranscodeSpan starts a span for one try_transcode attempt.
func StartTranscodeSpan(ctx context.Context, artifactName, formatVersion string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{ArtifactName(artifactName), FormatVersion(formatVersion)}
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, SpanTranscode, trace.WithAttributes(allAttrs...))
}

// StartCacheSpan starts a span for a cache repository operation.
func StartCacheSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, name, trace.WithAttributes(attrs...))
}

// StartSymbolFetchSpan starts a span for an upstream symbol-server call.
func StartSymbolFetchSpan(ctx context.Context, url string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{SymbolURL(url)}
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, SpanSymbolFetch, trace.WithAttributes(allAttrs...))
}

// StartProcessSpan starts a span for a child-process invocation.
func StartProcessSpan(ctx context.Context, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanProcessRun, trace.WithAttributes(attrs...))
}
