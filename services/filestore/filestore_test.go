package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_Put(t *testing.T) {
	dir := t.TempDir()
	store := NewLocal(dir, "http://localhost:8000/media/")

	url, err := store.Put(context.Background(), "slack-images/1-abc.png", []byte("png"), "image/png", nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/media/slack-images/1-abc.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "slack-images", "1-abc.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
}

func TestLocal_PutStaysInsideDir(t *testing.T) {
	dir := t.TempDir()
	store := NewLocal(dir, "/media")

	url, err := store.Put(context.Background(), "../../etc/evil.png", []byte("x"), "image/png", nil)
	require.NoError(t, err)
	assert.Equal(t, "/media/etc/evil.png", url)
	_, err = os.Stat(filepath.Join(dir, "etc", "evil.png"))
	assert.NoError(t, err)
}

func TestDownloadURL(t *testing.T) {
	assert.Equal(t,
		"https://firebasestorage.googleapis.com/v0/b/vibes.appspot.com/o/slack-images%2F1-abc.png?alt=media&token=tok",
		downloadURL("vibes.appspot.com", "slack-images/1-abc.png", "tok"))
}
