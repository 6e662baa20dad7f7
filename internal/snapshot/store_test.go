package snapshot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/catalogsync/internal/config"
	"github.com/dbsmedya/catalogsync/internal/storage/mocks"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "graph.json")
	store := NewFileStore(path)

	require.NoError(t, store.Save(ctx, sampleGraph()))

	g, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Motors", "Brakes", "Écrous"}, g.Categories())
	assert.Equal(t, path, store.Location())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")
}

func TestFileStoreOverwrites(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "graph.json")
	store := NewFileStore(path)

	require.NoError(t, store.Save(ctx, sampleGraph()))

	g := sampleGraph()
	g.Add("Wheels", "Rim")
	require.NoError(t, store.Save(ctx, g))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.Len())
}

func TestFileStoreFileMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	path := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, NewFileStore(path).Save(context.Background(), sampleGraph()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, FileMode, info.Mode().Perm())
}

func TestFileStoreMissing(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "absent.json"))
	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreUnwritableDirectory(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "missing-dir", "graph.json"))
	err := store.Save(context.Background(), sampleGraph())
	assert.Error(t, err)
}

func TestObjectStoreSave(t *testing.T) {
	ctx := context.Background()
	m := new(mocks.Client)
	m.On("BucketExists", ctx, "catalogsync").Return(true, nil)

	var uploaded []byte
	m.On("PutObject", ctx, "catalogsync", "snapshots/graph.json", mock.Anything, mock.AnythingOfType("int64"),
		minio.PutObjectOptions{ContentType: "application/json"}).
		Run(func(args mock.Arguments) {
			data, err := io.ReadAll(args.Get(3).(io.Reader))
			require.NoError(t, err)
			uploaded = data
			assert.Equal(t, int64(len(data)), args.Get(4).(int64))
		}).
		Return(minio.UploadInfo{}, nil)

	store := NewObjectStore(m, "catalogsync", "snapshots/graph.json", "")
	require.NoError(t, store.Save(ctx, sampleGraph()))
	m.AssertExpectations(t)

	g, err := Decode(bytes.NewReader(uploaded))
	require.NoError(t, err)
	assert.Equal(t, 3, g.Len())
	assert.Equal(t, "s3://catalogsync/snapshots/graph.json", store.Location())
}

func TestObjectStoreSaveUploadFailure(t *testing.T) {
	ctx := context.Background()
	m := new(mocks.Client)
	m.On("BucketExists", ctx, "catalogsync").Return(true, nil)
	m.On("PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, errors.New("quota exceeded"))

	store := NewObjectStore(m, "catalogsync", "graph.json", "")
	err := store.Save(ctx, sampleGraph())
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestObjectStoreLoad(t *testing.T) {
	ctx := context.Background()

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleGraph()))

	m := new(mocks.Client)
	m.On("GetObject", ctx, "catalogsync", "graph.json", minio.GetObjectOptions{}).
		Return(io.NopCloser(bytes.NewReader(buf.Bytes())), nil)

	store := NewObjectStore(m, "catalogsync", "graph.json", "")
	g, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Motors", "Brakes", "Écrous"}, g.Categories())
}

func TestObjectStoreLoadMissing(t *testing.T) {
	ctx := context.Background()
	m := new(mocks.Client)
	m.On("GetObject", ctx, "catalogsync", "graph.json", minio.GetObjectOptions{}).
		Return(nil, minio.ErrorResponse{Code: "NoSuchKey"})

	store := NewObjectStore(m, "catalogsync", "graph.json", "")
	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpen(t *testing.T) {
	store, err := Open(config.SnapshotConfig{Backend: "file", Path: "graph.json"}, config.StorageConfig{})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)

	store, err = Open(config.SnapshotConfig{Backend: "s3", Object: "graph.json"},
		config.StorageConfig{Endpoint: "localhost:9000", Bucket: "catalogsync"})
	require.NoError(t, err)
	assert.IsType(t, &ObjectStore{}, store)

	_, err = Open(config.SnapshotConfig{Backend: "ftp"}, config.StorageConfig{})
	assert.Error(t, err)
}
