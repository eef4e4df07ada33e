// Package inspector walks a symcache-server cache root directly on disk
// to report the positive and negative entries it finds, without ever
// talking to a running server or mutating cache state.
package inspector

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// EntryState mirrors the server's own cache.State naming for the two
// on-disk entry kinds this walk can observe.
type EntryState string

const (
	StatePositive EntryState = "positive"
	StateNegative EntryState = "negative"
)

const (
	positiveSuffix = ".symcache"
	negativeSuffix = ".negativesymcache"
)

// Entry describes one on-disk cache entry discovered by Walk.
type Entry struct {
	State   EntryState
	Name    string // artifact name, e.g. "ntdll.pdb"
	IDAndAge string // the "<id-hex><age-hex>" directory segment
	Version string // the declared format version embedded in the filename
	Path    string
	Size    int64
	ModTime time.Time
}

// Walk reports every positive and negative entry under root. It tolerates
// a root that does not exist (returns an empty slice, no error) and never
// follows symlinks outside the tree.
func Walk(root string) ([]Entry, error) {
	var entries []Entry

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if d.Name() == ".temp" {
				return filepath.SkipDir
			}
			return nil
		}

		entry, ok := parseEntry(root, path)
		if !ok {
			return nil
		}
		info, err := d.Info()
		if err == nil {
			entry.Size = info.Size()
			entry.ModTime = info.ModTime()
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return entries, nil
}

// parseEntry decodes a cache file path of the form
// <root>/<name>/<idAndAge>/<name>-v<version>.symcache (or
// .negativesymcache) into its constituent fields.
func parseEntry(root, path string) (Entry, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return Entry{}, false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 3 {
		return Entry{}, false
	}

	base := parts[2]
	var state EntryState
	var trimmed string
	switch {
	case strings.HasSuffix(base, negativeSuffix):
		state = StateNegative
		trimmed = strings.TrimSuffix(base, negativeSuffix)
	case strings.HasSuffix(base, positiveSuffix):
		state = StatePositive
		trimmed = strings.TrimSuffix(base, positiveSuffix)
	default:
		return Entry{}, false
	}

	name := parts[0]
	idAndAge := parts[1]

	versionMarker := "-v"
	idx := strings.LastIndex(trimmed, versionMarker)
	if idx < 0 {
		return Entry{}, false
	}
	version := trimmed[idx+len(versionMarker):]

	return Entry{
		State:    state,
		Name:     name,
		IDAndAge: idAndAge,
		Version:  version,
		Path:     path,
	}, true
}
