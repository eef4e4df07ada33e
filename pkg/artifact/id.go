package artifact

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// ID is a 128-bit artifact identifier, the GUID portion of a request path.
type ID [16]byte

// ParseID accepts a 32-hex-digit identifier with or without canonical
// GUID grouping (dashes), case-insensitively.
func ParseID(s string) (ID, error) {
	stripped := strings.ReplaceAll(s, "-", "")
	if len(stripped) != 32 {
		return ID{}, fmt.Errorf("artifact: id %q must decode to 32 hex digits", s)
	}
	raw, err := hex.DecodeString(stripped)
	if err != nil {
		return ID{}, fmt.Errorf("artifact: id %q is not valid hex: %w", s, err)
	}
	var id ID
	copy(id[:], raw)
	return id, nil
}

// String renders the identifier as 32 uppercase hex digits, the on-disk and
// wire representation used throughout the cache and symbol-client paths.
func (id ID) String() string {
	return strings.ToUpper(hex.EncodeToString(id[:]))
}
