package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"

	"github.com/dbsmedya/catalogsync/internal/config"
	"github.com/dbsmedya/catalogsync/internal/graph"
	"github.com/dbsmedya/catalogsync/internal/storage"
)

// Store persists and restores the category graph.
type Store interface {
	Save(ctx context.Context, g *graph.Graph) error
	Load(ctx context.Context) (*graph.Graph, error)
	// Location describes where the snapshot lives, for logs and reports.
	Location() string
}

// Open returns the Store selected by cfg.Backend.
func Open(cfg config.SnapshotConfig, storageCfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "file", "":
		return NewFileStore(cfg.Path), nil
	case "s3":
		client, err := storage.NewClient(storageCfg)
		if err != nil {
			return nil, err
		}
		return NewObjectStore(client, storageCfg.Bucket, cfg.Object, storageCfg.Region), nil
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.Backend)
	}
}

// FileStore keeps the snapshot in a local file.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Location returns the file path.
func (s *FileStore) Location() string {
	return s.path
}

// FileMode is the permission of written snapshot files, so stages run by
// other users can read them.
const FileMode os.FileMode = 0o644

// Save writes the snapshot to a temporary file and renames it into place,
// so readers never observe a partial snapshot.
func (s *FileStore) Save(_ context.Context, g *graph.Graph) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temporary snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, g); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(FileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set snapshot permissions: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}
	return nil
}

// Load reads the snapshot file.
func (s *FileStore) Load(_ context.Context) (*graph.Graph, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.path)
		}
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// ObjectStore keeps the snapshot as one object in an S3-compatible bucket.
type ObjectStore struct {
	client storage.Client
	bucket string
	object string
	region string
}

// NewObjectStore creates an ObjectStore.
func NewObjectStore(client storage.Client, bucket, object, region string) *ObjectStore {
	return &ObjectStore{client: client, bucket: bucket, object: object, region: region}
}

// Location returns the s3:// URL of the object.
func (s *ObjectStore) Location() string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.object)
}

// Save uploads the snapshot, creating the bucket if needed.
func (s *ObjectStore) Save(ctx context.Context, g *graph.Graph) error {
	var buf bytes.Buffer
	if err := Encode(&buf, g); err != nil {
		return err
	}

	if err := storage.EnsureBucket(ctx, s.client, s.bucket, s.region); err != nil {
		return err
	}

	_, err := s.client.PutObject(ctx, s.bucket, s.object, bytes.NewReader(buf.Bytes()), int64(buf.Len()),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot to %s: %w", s.Location(), err)
	}
	return nil
}

// Load downloads and decodes the snapshot.
func (s *ObjectStore) Load(ctx context.Context) (*graph.Graph, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.object, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.wrapGetError(err)
	}
	defer obj.Close()

	// Missing-object errors only surface on the first read.
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.wrapGetError(err)
	}
	return Decode(bytes.NewReader(data))
}

func (s *ObjectStore) wrapGetError(err error) error {
	if storage.IsNotFound(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, s.Location())
	}
	return fmt.Errorf("failed to download snapshot from %s: %w", s.Location(), err)
}
