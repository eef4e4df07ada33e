// Package artifact defines ArtifactKey, the value type that identifies one
// requested symbol artifact across the HTTP handler, cache repository,
// transcoder orchestrator, and background queue.
package artifact

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/symcached/symcached/pkg/symver"
)

// Key is the tuple (format version, artifact name, artifact id, artifact
// age) that names one cache entry. It is comparable, so it can be used
// directly as a map key — Go's built-in map hashing over its fields already
// compares keys component by component, with no custom hash function
// needed even though every field (including the 128-bit ID array)
// participates in equality.
type Key struct {
	Version symver.Version
	Name    string
	ID      ID
	Age     uint32
}

// NewKey validates name (must be a bare filename, no directory components)
// and constructs a Key.
func NewKey(version symver.Version, name string, id ID, age uint32) (Key, error) {
	if name == "" {
		return Key{}, fmt.Errorf("artifact: name must not be empty")
	}
	if filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return Key{}, fmt.Errorf("artifact: name %q must not contain directory components", name)
	}
	return Key{Version: version, Name: name, ID: id, Age: age}, nil
}

// AgeHex renders the age as uppercase hex with no padding, as used in the
// on-disk path segment and the upstream symbol-server URL.
func (k Key) AgeHex() string {
	return fmt.Sprintf("%X", k.Age)
}

// IDAndAge is the concatenated "<id-32-hex><age-hex>" path segment shared by
// the positive path, negative path, and upstream symbol-server URL.
func (k Key) IDAndAge() string {
	return k.ID.String() + k.AgeHex()
}

// String renders a human-readable identity for logging.
func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%d (v%s)", k.Name, k.ID, k.Age, k.Version)
}
