// Package documents holds editor buffers pushed by clients. A buffer
// shadows the file on disk until it is closed, so unsaved edits take part
// in resolution.
package documents

import (
	"os"
	"sort"
	"sync"
	"time"

	"stackresolve/internal/errors"
	"stackresolve/internal/paths"
)

// Document is a buffer overlay keyed by file:// URI.
type Document struct {
	URI       string    `json:"uri"`
	Text      string    `json:"text"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store is an in-memory overlay over the file system. It is safe for
// concurrent use.
type Store struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{docs: make(map[string]Document)}
}

// Put sets the buffer for uri. Plain paths are accepted and keyed by
// their file:// URI. An update older than the stored version is ignored.
func (s *Store) Put(uri, text string, version int) (Document, error) {
	key, err := normalizeURI(uri)
	if err != nil {
		return Document{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.docs[key]; ok && version > 0 && version < cur.Version {
		return cur, nil
	}
	doc := Document{URI: key, Text: text, Version: version, UpdatedAt: time.Now()}
	s.docs[key] = doc
	return doc, nil
}

// Close drops the buffer for uri. It reports whether one was open.
func (s *Store) Close(uri string) bool {
	key, err := normalizeURI(uri)
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[key]
	delete(s.docs, key)
	return ok
}

// Get returns the open buffer for uri, if any.
func (s *Store) Get(uri string) (Document, bool) {
	key, err := normalizeURI(uri)
	if err != nil {
		return Document{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[key]
	return doc, ok
}

// List returns the open buffers ordered by URI.
func (s *Store) List() []Document {
	s.mu.RLock()
	docs := make([]Document, 0, len(s.docs))
	for _, d := range s.docs {
		docs = append(docs, d)
	}
	s.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool { return docs[i].URI < docs[j].URI })
	return docs
}

// Text returns the current contents of uri: the open buffer when there is
// one, otherwise the file on disk.
func (s *Store) Text(uri string) (string, error) {
	if doc, ok := s.Get(uri); ok {
		return doc.Text, nil
	}

	path, err := paths.PathFromURI(uri)
	if err != nil {
		return "", errors.New(errors.InvalidArgument, "Invalid document URI", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.New(errors.FrameResolution, "Unable to read document", err).
			WithDetails(map[string]interface{}{"uri": uri})
	}
	return string(data), nil
}

func normalizeURI(uri string) (string, error) {
	if uri == "" {
		return "", errors.New(errors.InvalidArgument, "Document URI is required", nil)
	}
	path, err := paths.PathFromURI(uri)
	if err != nil {
		return "", errors.New(errors.InvalidArgument, "Invalid document URI", err)
	}
	return paths.FileURI(path), nil
}
