// Package archive keeps the raw OpenFoodFacts responses behind stored
// products so they can be re-parsed or audited later.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/binbuddy/internal/hash/sha256"
)

const contentTypeJSON = "application/json"

var validBarcode = regexp.MustCompile(`^[0-9A-Za-z-]{1,64}$`)

// BlobStore is implemented by the memory, local and gcs stores.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
	GetObject(ctx context.Context, path string) ([]byte, string, error)
}

// Archive writes payloads under a key prefix, skipping uploads whose
// content did not change since the last write from this process.
type Archive struct {
	blobs  BlobStore
	prefix string
	hasher sha256.Hasher
	logger *zap.Logger

	mu      sync.Mutex
	digests map[string]string
}

// New constructs an Archive. An empty prefix stores objects at the root.
func New(blobs BlobStore, prefix string, logger *zap.Logger) *Archive {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archive{
		blobs:   blobs,
		prefix:  strings.Trim(prefix, "/"),
		hasher:  sha256.New(),
		logger:  logger.Named("archive"),
		digests: make(map[string]string),
	}
}

// ProductPath is the object key of a product payload.
func (a *Archive) ProductPath(barcode string) string {
	return path.Join(a.prefix, "openfoodfacts", "products", barcode+".json")
}

// SearchPath is the object key of a search payload, keyed by a digest of the
// normalized query.
func (a *Archive) SearchPath(query string) string {
	digest := a.hasher.Hash([]byte(strings.ToLower(strings.TrimSpace(query))))
	return path.Join(a.prefix, "openfoodfacts", "search", digest[:16]+".json")
}

// PutProduct archives a product payload. It returns the URI and false when
// the identical payload was already written.
func (a *Archive) PutProduct(ctx context.Context, barcode string, raw []byte) (string, bool, error) {
	if !validBarcode.MatchString(barcode) {
		return "", false, fmt.Errorf("invalid barcode %q", barcode)
	}
	return a.put(ctx, a.ProductPath(barcode), raw)
}

// PutSearch archives a search payload.
func (a *Archive) PutSearch(ctx context.Context, query string, raw []byte) (string, bool, error) {
	return a.put(ctx, a.SearchPath(query), raw)
}

// Product returns the archived payload for barcode or store.ErrNotFound.
func (a *Archive) Product(ctx context.Context, barcode string) ([]byte, error) {
	if !validBarcode.MatchString(barcode) {
		return nil, fmt.Errorf("invalid barcode %q", barcode)
	}
	data, _, err := a.blobs.GetObject(ctx, a.ProductPath(barcode))
	if err != nil {
		return nil, fmt.Errorf("read archived product %s: %w", barcode, err)
	}
	return data, nil
}

func (a *Archive) put(ctx context.Context, key string, raw []byte) (string, bool, error) {
	digest := a.hasher.Hash(raw)

	a.mu.Lock()
	unchanged := a.digests[key] == digest
	a.mu.Unlock()
	if unchanged {
		return "", false, nil
	}

	uri, err := a.blobs.PutObject(ctx, key, contentTypeJSON, bytes.NewReader(raw))
	if err != nil {
		return "", false, fmt.Errorf("archive %s: %w", key, err)
	}

	a.mu.Lock()
	a.digests[key] = digest
	a.mu.Unlock()

	a.logger.Debug("payload archived", zap.String("uri", uri), zap.String("sha256", digest))
	return uri, true, nil
}
