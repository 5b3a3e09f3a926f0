package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "entries/e1/f1/bill.pdf", ObjectKey("e1", "f1", "bill.pdf"))
	assert.Equal(t, "entries/e1/f1/passwd", ObjectKey("e1", "f1", "../../etc/passwd"))
}

func TestDirStore_RoundTrip(t *testing.T) {
	root := t.TempDir()
	s, err := NewDirStore(root)
	require.NoError(t, err)
	ctx := context.Background()

	key := ObjectKey("e1", "f1", "bill.pdf")
	require.NoError(t, s.Put(ctx, key, strings.NewReader("hello"), 5, "application/pdf"))
	assert.FileExists(t, filepath.Join(root, "entries", "e1", "f1", "bill.pdf"))

	rc, err := s.Get(ctx, key)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello", string(body))

	require.NoError(t, s.Remove(ctx, key))
	_, err = s.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	// empty parents are pruned, the root stays
	_, err = os.Stat(filepath.Join(root, "entries"))
	assert.True(t, os.IsNotExist(err))
	assert.DirExists(t, root)

	assert.NoError(t, s.Remove(ctx, key), "removing twice is fine")
}

func TestDirStore_RejectsEscapingKeys(t *testing.T) {
	s, err := NewDirStore(t.TempDir())
	require.NoError(t, err)

	err = s.Put(context.Background(), "../outside.txt", strings.NewReader("x"), 1, "")
	assert.Error(t, err)
}
