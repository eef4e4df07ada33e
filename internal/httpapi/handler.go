package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/symcached/symcached/internal/logger"
	"github.com/symcached/symcached/internal/telemetry"
	"github.com/symcached/symcached/pkg/artifact"
	"github.com/symcached/symcached/pkg/cache"
	"github.com/symcached/symcached/pkg/symver"
)

const contentTypeTemplate = "application/vnd.ms-symcache; version=%s"

// Handler implements the artifact-serving decision table of §4.1.
type Handler struct {
	deps Deps
}

// Liveness always reports healthy once the process is up and serving.
func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Readiness reports healthy only when the cache root exists and, if a
// transcoder binary path is configured, that binary exists. The
// symbol-server base URL is not checked.
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.deps.Cache == nil || !fileExists(h.deps.Cache.Root()) {
		http.Error(w, "cache root unreachable", http.StatusServiceUnavailable)
		return
	}
	if h.deps.TranscoderBinaryPath != "" && !fileExists(h.deps.TranscoderBinaryPath) {
		http.Error(w, "transcoder binary missing", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// ServeArtifact is GET /v{major}.{minor}.{patch}/{name}/{id}[/{age}].
func (h *Handler) ServeArtifact(w http.ResponseWriter, r *http.Request) {
	ctx, span := telemetry.StartHTTPSpan(r.Context(), r.Method, r.URL.Path, telemetry.ClientIP(r.RemoteAddr))
	defer span.End()
	r = r.WithContext(ctx)

	requestedVersion, name, id, age, err := parseRequest(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if requestedVersion.Compare(h.deps.MinFormatVersion) <= 0 {
		h.writeStatus(w, http.StatusNotFound)
		return
	}

	bound, hasBound, err := parseIfVersionExceeds(r, requestedVersion)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Every cache/orchestrator operation uses the configured transcoder
	// version, not the client's requested version — the transcoder binary
	// always writes its own version's artifact regardless of what a
	// client asked for.
	key, err := artifact.NewKey(h.deps.TranscoderVersion, name, id, age)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := h.deps.Cache.Lookup(r.Context(), key)
	h.deps.Metrics.ObserveCacheLookup(result.State.String())

	switch result.State {
	case cache.Positive:
		if hasBound && result.Version.Compare(bound) <= 0 {
			h.writeStatus(w, http.StatusNotModified)
			return
		}
		h.streamFile(w, result.Path, result.Version)
		return

	case cache.Negative:
		h.writeStatus(w, http.StatusNotFound)
		return
	}

	// Miss.
	if hasBound && bound.Compare(h.deps.TranscoderVersion) >= 0 {
		h.writeStatus(w, http.StatusNotModified)
		return
	}

	if h.isAsyncEligible(r, requestedVersion) {
		h.deps.Queue.Enqueue(key)
		w.Header().Set("Retry-After", "1")
		h.writeStatus(w, http.StatusNotFound)
		return
	}

	path, err := h.deps.Orchestrator.TryTranscode(r.Context(), key)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		h.writeError(w, http.StatusInternalServerError, "transcode failed")
		return
	}
	if path == "" {
		h.writeStatus(w, http.StatusNotFound)
		return
	}
	h.streamFile(w, path, h.deps.TranscoderVersion)
}

// isAsyncEligible implements §4.1's async-eligibility rule: the requested
// version strictly exceeds the configured async threshold, or the client
// explicitly opted in via Accept-Retry-After.
func (h *Handler) isAsyncEligible(r *http.Request, requestedVersion symver.Version) bool {
	if requestedVersion.Compare(h.deps.AsyncThreshold) > 0 {
		return true
	}
	return strings.EqualFold(r.Header.Get("Accept-Retry-After"), "true")
}

func (h *Handler) streamFile(w http.ResponseWriter, path string, version symver.Version) {
	f, err := os.Open(path)
	if err != nil {
		h.writeStatus(w, http.StatusNotFound)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", fmt.Sprintf(contentTypeTemplate, version))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, f)
	h.deps.Metrics.ObserveHTTPResponse(strconv.Itoa(http.StatusOK))
}

func (h *Handler) writeStatus(w http.ResponseWriter, status int) {
	w.WriteHeader(status)
	h.deps.Metrics.ObserveHTTPResponse(strconv.Itoa(status))
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	http.Error(w, message, status)
	h.deps.Metrics.ObserveHTTPResponse(strconv.Itoa(status))
	logger.Warn("http request rejected", logger.HTTPStatus(status), "message", message)
}

// parseRequest extracts the format version, name, id, and age from the
// chi URL parameters, defaulting age to 1 when omitted.
func parseRequest(r *http.Request) (symver.Version, string, artifact.ID, uint32, error) {
	major, err := strconv.ParseUint(chi.URLParam(r, "major"), 10, 16)
	if err != nil {
		return symver.Version{}, "", artifact.ID{}, 0, fmt.Errorf("invalid major version")
	}
	minor, err := strconv.ParseUint(chi.URLParam(r, "minor"), 10, 8)
	if err != nil {
		return symver.Version{}, "", artifact.ID{}, 0, fmt.Errorf("invalid minor version")
	}
	patch, err := strconv.ParseUint(chi.URLParam(r, "patch"), 10, 8)
	if err != nil {
		return symver.Version{}, "", artifact.ID{}, 0, fmt.Errorf("invalid patch version")
	}
	requestedVersion := symver.Version{Major: uint16(major), Minor: uint8(minor), Patch: uint8(patch)}

	name := chi.URLParam(r, "name")
	if name == "" {
		return symver.Version{}, "", artifact.ID{}, 0, fmt.Errorf("missing artifact name")
	}

	id, err := artifact.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		return symver.Version{}, "", artifact.ID{}, 0, fmt.Errorf("invalid artifact id")
	}

	age := uint64(1)
	if rawAge := chi.URLParam(r, "age"); rawAge != "" {
		age, err = strconv.ParseUint(rawAge, 10, 32)
		if err != nil {
			return symver.Version{}, "", artifact.ID{}, 0, fmt.Errorf("invalid artifact age")
		}
	}

	return requestedVersion, name, id, uint32(age), nil
}

// parseIfVersionExceeds parses at most one If-Version-Exceeds header,
// rejecting a malformed, multi-valued, major-0, or non-strictly-preceding value.
func parseIfVersionExceeds(r *http.Request, requestedVersion symver.Version) (symver.Version, bool, error) {
	values := r.Header.Values("If-Version-Exceeds")
	if len(values) == 0 {
		return symver.Version{}, false, nil
	}
	if len(values) > 1 {
		return symver.Version{}, false, fmt.Errorf("multiple If-Version-Exceeds headers")
	}

	bound, err := symver.Parse(values[0])
	if err != nil {
		return symver.Version{}, false, fmt.Errorf("malformed If-Version-Exceeds header")
	}
	if bound.Major == 0 {
		return symver.Version{}, false, fmt.Errorf("If-Version-Exceeds major must be non-zero")
	}
	if bound.Compare(requestedVersion) >= 0 {
		return symver.Version{}, false, fmt.Errorf("If-Version-Exceeds must strictly precede the requested version")
	}
	return bound, true, nil
}
