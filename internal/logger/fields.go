package logger

import "log/slog"

// Standard field keys for structured logging.
// Use these keys consistently across log statements so aggregation and
// querying stays uniform across the handler, orchestrator, client, and queue.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Artifact identity
	// ========================================================================
	KeyArtifactName    = "artifact_name"    // Artifact file name, e.g. "ntdll.pdb"
	KeyArtifactID      = "artifact_id"      // 128-bit artifact identifier, hex
	KeyArtifactAge     = "artifact_age"     // 32-bit artifact age, hex
	KeyFormatVersion   = "format_version"   // Requested SymCache format version
	KeyResolvedVersion = "resolved_version" // Format version actually served

	// ========================================================================
	// Cache layer
	// ========================================================================
	KeyCacheState = "cache_state" // positive, negative, or miss
	KeyCachePath  = "cache_path"  // Resolved on-disk path for an entry
	KeyNegTTL     = "negative_ttl_sec"

	// ========================================================================
	// HTTP surface
	// ========================================================================
	KeyHTTPStatus = "http_status"
	KeyHTTPMethod = "http_method"
	KeyHTTPPath   = "http_path"
	KeyRetryAfter = "retry_after_sec"
	KeyClientIP   = "client_ip"
	KeyRequestID  = "request_id"

	// ========================================================================
	// Background queue
	// ========================================================================
	KeyQueueDepth  = "queue_depth"
	KeyWorkerCount = "worker_count"
	KeyDeduped     = "deduped"

	// ========================================================================
	// Transcode / symbol-server / child process
	// ========================================================================
	KeySymbolURL    = "symbol_url"
	KeyTranscoderID = "transcoder_pid"
	KeyExitCode     = "exit_code"
	KeyStagingDir   = "staging_dir"
	KeyOutcome      = "outcome" // cache_hit, cache_negative, negative, canceled, published, error

	// ========================================================================
	// Operation metadata
	// ========================================================================
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyAttempt    = "attempt"
)

// TraceID returns a slog.Attr for the OpenTelemetry trace ID.
func TraceID(id string) slog.Attr { return slog.String(KeyTraceID, id) }

// SpanID returns a slog.Attr for the OpenTelemetry span ID.
func SpanID(id string) slog.Attr { return slog.String(KeySpanID, id) }

// ArtifactName returns a slog.Attr for the artifact file name.
func ArtifactName(name string) slog.Attr { return slog.String(KeyArtifactName, name) }

// ArtifactID returns a slog.Attr for a hex-encoded 128-bit artifact identifier.
func ArtifactID(id string) slog.Attr { return slog.String(KeyArtifactID, id) }

// ArtifactAge returns a slog.Attr for a hex-encoded artifact age.
func ArtifactAge(age string) slog.Attr { return slog.String(KeyArtifactAge, age) }

// FormatVersion returns a slog.Attr for the requested format version.
func FormatVersion(v string) slog.Attr { return slog.String(KeyFormatVersion, v) }

// ResolvedVersion returns a slog.Attr for the format version actually served.
func ResolvedVersion(v string) slog.Attr { return slog.String(KeyResolvedVersion, v) }

// CacheState returns a slog.Attr for the cache lookup result.
func CacheState(state string) slog.Attr { return slog.String(KeyCacheState, state) }

// CachePath returns a slog.Attr for a resolved on-disk cache path.
func CachePath(p string) slog.Attr { return slog.String(KeyCachePath, p) }

// NegativeTTL returns a slog.Attr for a negative marker's remaining TTL.
func NegativeTTL(seconds float64) slog.Attr { return slog.Float64(KeyNegTTL, seconds) }

// HTTPStatus returns a slog.Attr for the response status code.
func HTTPStatus(code int) slog.Attr { return slog.Int(KeyHTTPStatus, code) }

// HTTPMethod returns a slog.Attr for the request method.
func HTTPMethod(method string) slog.Attr { return slog.String(KeyHTTPMethod, method) }

// HTTPPath returns a slog.Attr for the request path.
func HTTPPath(path string) slog.Attr { return slog.String(KeyHTTPPath, path) }

// RetryAfter returns a slog.Attr for a retry-after hint in seconds.
func RetryAfter(seconds int) slog.Attr { return slog.Int(KeyRetryAfter, seconds) }

// ClientIP returns a slog.Attr for the client's address.
func ClientIP(addr string) slog.Attr { return slog.String(KeyClientIP, addr) }

// RequestID returns a slog.Attr for the request correlation ID.
func RequestID(id string) slog.Attr { return slog.String(KeyRequestID, id) }

// QueueDepth returns a slog.Attr for the current background queue depth.
func QueueDepth(n int) slog.Attr { return slog.Int(KeyQueueDepth, n) }

// WorkerCount returns a slog.Attr for the configured worker pool size.
func WorkerCount(n int) slog.Attr { return slog.Int(KeyWorkerCount, n) }

// Deduped returns a slog.Attr marking an enqueue as a duplicate of in-flight work.
func Deduped(d bool) slog.Attr { return slog.Bool(KeyDeduped, d) }

// SymbolURL returns a slog.Attr for the upstream symbol-server URL fetched.
func SymbolURL(url string) slog.Attr { return slog.String(KeySymbolURL, url) }

// TranscoderPID returns a slog.Attr for the child transcoder process ID.
func TranscoderPID(pid int) slog.Attr { return slog.Int(KeyTranscoderID, pid) }

// ExitCode returns a slog.Attr for a child process's exit code.
func ExitCode(code int) slog.Attr { return slog.Int(KeyExitCode, code) }

// StagingDir returns a slog.Attr for a transcode attempt's staging directory.
func StagingDir(dir string) slog.Attr { return slog.String(KeyStagingDir, dir) }

// Outcome returns a slog.Attr for a transcode attempt's terminal outcome.
func Outcome(outcome string) slog.Attr { return slog.String(KeyOutcome, outcome) }

// DurationMs returns a slog.Attr for an operation's duration in milliseconds.
func DurationMs(ms float64) slog.Attr { return slog.Float64(KeyDurationMs, ms) }

// Err returns a slog.Attr for an error, or a zero Attr for nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Attempt returns a slog.Attr for a retry attempt number.
func Attempt(n int) slog.Attr { return slog.Int(KeyAttempt, n) }
