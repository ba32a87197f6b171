package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreWriteRead(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	path, err := store.Write(ctx, "results/gen-1/out.jpg", []byte("bytes"))
	require.NoError(t, err)
	assert.Contains(t, path, store.BasePath())

	data, err := store.Read(ctx, "results/gen-1/out.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("bytes"), data)
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Write(context.Background(), "../escape.txt", []byte("x"))
	assert.Error(t, err)

	_, err = store.AbsPath("..")
	assert.Error(t, err)

	_, err = store.AbsPath("")
	assert.Error(t, err)
}

func TestWaitForSeesLateArrival(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	go func() {
		time.Sleep(30 * time.Millisecond)
		_, _ = store.Write(context.Background(), "downloads/gen-1/source.jpg", []byte("photo"))
	}()

	path, err := store.WaitFor(ctx, "downloads/gen-1/source.jpg", time.Second, 5*time.Millisecond)
	require.NoError(t, err)
	assert.NotEmpty(t, path)
}

func TestWaitForTimesOut(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.WaitFor(context.Background(), "downloads/never.jpg", 30*time.Millisecond, 5*time.Millisecond)
	assert.ErrorIs(t, err, ErrWaitTimeout)
}

func TestWaitForHonorsContextCancellation(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.WaitFor(ctx, "downloads/never.jpg", time.Minute, 5*time.Millisecond)
	assert.ErrorIs(t, err, context.Canceled)
}
