package memory

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/JakeFAU/binbuddy/internal/store"
)

// BlobStore keeps archived payloads in memory and returns pseudo URIs.
type BlobStore struct {
	mu           sync.RWMutex
	data         map[string][]byte
	contentTypes map[string]string
}

// NewBlobStore creates a new in-memory blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{
		data:         make(map[string][]byte),
		contentTypes: make(map[string]string),
	}
}

// PutObject persists the content and returns a URI.
func (s *BlobStore) PutObject(_ context.Context, path string, contentType string, data io.Reader) (string, error) {
	byteData, err := io.ReadAll(data)
	if err != nil {
		return "", fmt.Errorf("failed to read data from reader: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[path] = byteData
	s.contentTypes[path] = contentType
	return "memory://" + path, nil
}

// GetObject returns a copy of the content stored at path.
func (s *BlobStore) GetObject(_ context.Context, path string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[path]
	if !ok {
		return nil, "", store.ErrNotFound
	}
	return append([]byte(nil), data...), s.contentTypes[path], nil
}
