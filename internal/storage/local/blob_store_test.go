// Package local_test tests the local filesystem blob store.
package local_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/binbuddy/internal/storage/local"
	"github.com/JakeFAU/binbuddy/internal/store"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		blobs, err := local.New(local.Config{BaseDir: t.TempDir()})
		require.NoError(t, err)
		assert.NotNil(t, blobs)
	})

	t.Run("CreatesMissingDir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "archive", "raw")
		_, err := local.New(local.Config{BaseDir: dir})
		require.NoError(t, err)
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "plain")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		_, err := local.New(local.Config{BaseDir: file})
		assert.Error(t, err)
	})
}

func TestPutAndGetObject(t *testing.T) {
	tempDir := t.TempDir()
	blobs, err := local.New(local.Config{BaseDir: tempDir})
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("RoundTrip", func(t *testing.T) {
		path := "openfoodfacts/products/4006381333931.json"
		data := []byte(`{"status":1}`)
		uri, err := blobs.PutObject(ctx, path, "application/json", bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, "file://"+filepath.Join(tempDir, path), uri)

		got, contentType, err := blobs.GetObject(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, data, got)
		assert.Equal(t, "application/json", contentType)
	})

	t.Run("Missing", func(t *testing.T) {
		_, _, err := blobs.GetObject(ctx, "openfoodfacts/products/none.json")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("EmptyPath", func(t *testing.T) {
		_, err := blobs.PutObject(ctx, "", "text/plain", bytes.NewReader([]byte("data")))
		assert.Error(t, err)
	})

	t.Run("Traversal", func(t *testing.T) {
		_, err := blobs.PutObject(ctx, "../escape.json", "application/json", bytes.NewReader([]byte("{}")))
		assert.ErrorContains(t, err, "path traversal")
		_, _, err = blobs.GetObject(ctx, "../../etc/passwd")
		assert.ErrorContains(t, err, "path traversal")
	})
}
