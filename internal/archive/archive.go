// Package archive manages a single resident comic archive per store.
// Archives are zip-like containers (.cbz/.zip, best-effort .cbr); the
// container is decoded once on Load and page entries are extracted
// lazily so large archives never get materialized up front.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrArchiveParse indicates the input bytes are not a decodable container.
	ErrArchiveParse = errors.New("could not parse comic archive")

	// ErrEmptyArchive indicates the container held zero qualifying images.
	ErrEmptyArchive = errors.New("no images found in archive")

	// ErrNotLoaded indicates an extraction was attempted with no resident archive.
	ErrNotLoaded = errors.New("no archive loaded")

	// ErrEntryNotFound indicates the requested entry is not in the resident archive.
	ErrEntryNotFound = errors.New("entry not found in archive")
)

// imageExtensions are the entry extensions that qualify as pages.
var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}

// PageEntry is one image file inside the resident archive.
// Index is the 0-based position in the natural-sorted page sequence and
// is stable for the lifetime of the loaded archive.
type PageEntry struct {
	FileName string `json:"file_name"`
	Index    int    `json:"index"`
}

// Store holds at most one decoded archive. Loading a new archive
// replaces the old one. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	reader  *zip.Reader
	entries []PageEntry
}

// NewStore creates an empty archive store.
func NewStore() *Store {
	return &Store{}
}

// Load parses data as a zip container, replaces any resident archive,
// and returns the sorted, filtered page entries.
func (s *Store) Load(data []byte) ([]PageEntry, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchiveParse, err)
	}

	var names []string
	for _, f := range reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if qualifies(f.Name) {
			names = append(names, f.Name)
		}
	}
	if len(names) == 0 {
		return nil, ErrEmptyArchive
	}

	sort.SliceStable(names, func(i, j int) bool {
		return NaturalLess(names[i], names[j])
	})

	entries := make([]PageEntry, len(names))
	for i, name := range names {
		entries[i] = PageEntry{FileName: name, Index: i}
	}

	s.mu.Lock()
	s.reader = reader
	s.entries = entries
	s.mu.Unlock()

	return entries, nil
}

// qualifies reports whether an entry name counts as a page image.
// Hidden entries (dot-prefixed name) and macOS resource forks under a
// __MACOSX segment are excluded, as are non-image extensions.
func qualifies(name string) bool {
	lower := strings.ToLower(name)
	if strings.Contains(lower, "__macosx") {
		return false
	}
	if strings.HasPrefix(path.Base(lower), ".") || strings.HasPrefix(lower, ".") {
		return false
	}
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Entries returns the page entries of the resident archive.
func (s *Store) Entries() []PageEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PageEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Loaded reports whether an archive is resident.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader != nil
}

// Entry extracts the raw bytes of a single page and infers its mime
// type from the file extension.
func (s *Store) Entry(fileName string) ([]byte, string, error) {
	s.mu.RLock()
	reader := s.reader
	s.mu.RUnlock()

	if reader == nil {
		return nil, "", ErrNotLoaded
	}

	for _, f := range reader.File {
		if f.Name != fileName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, "", fmt.Errorf("failed to open entry %s: %w", fileName, err)
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read entry %s: %w", fileName, err)
		}
		return data, MimeForName(fileName), nil
	}

	return nil, "", fmt.Errorf("%w: %s", ErrEntryNotFound, fileName)
}

// Clear releases the resident archive. Idempotent.
func (s *Store) Clear() {
	s.mu.Lock()
	s.reader = nil
	s.entries = nil
	s.mu.Unlock()
}

// MimeForName infers an image mime type from a file extension.
// JPEG is the default for anything unrecognized.
func MimeForName(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}

// IsArchiveName reports whether a filename looks like a comic archive.
// Non-zip .cbr files fall through to ErrArchiveParse at load time; true
// RAR decoding is not supported.
func IsArchiveName(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".cbz") ||
		strings.HasSuffix(lower, ".cbr") ||
		strings.HasSuffix(lower, ".zip")
}
