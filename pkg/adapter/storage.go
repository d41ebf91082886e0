package adapter

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
)

// Storage is the interface for generated artifact storage. Keys are
// slash-separated relative paths such as "videos/<id>.mp4".
type Storage interface {
	// Put returns a writer to save an artifact
	Put(ctx context.Context, key string) (io.WriteCloser, error)
	// Get loads a previously saved artifact
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Location returns the locally-addressable reference for a key
	Location(key string) string
}

// gcsStorage implements Storage using Cloud Storage
type gcsStorage struct {
	bucketName string
	client     *storage.Client
}

// NewGCSStorage creates a Cloud Storage backed artifact store
func NewGCSStorage(ctx context.Context, bucketName string) (Storage, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	return &gcsStorage{
		bucketName: bucketName,
		client:     client,
	}, nil
}

func (s *gcsStorage) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	obj := s.client.Bucket(s.bucketName).Object(key)
	return obj.NewWriter(ctx), nil
}

func (s *gcsStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj := s.client.Bucket(s.bucketName).Object(key)
	reader, err := obj.NewReader(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read from storage", goerr.Value("key", key))
	}

	return reader, nil
}

func (s *gcsStorage) Location(key string) string {
	return "gs://" + s.bucketName + "/" + key
}

// dirStorage implements Storage on a local directory
type dirStorage struct {
	root string
}

// NewDirStorage creates a local directory backed artifact store
func NewDirStorage(root string) (Storage, error) {
	if root == "" {
		return nil, goerr.New("storage directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, goerr.Wrap(err, "failed to create storage directory", goerr.V("dir", root))
	}
	return &dirStorage{root: root}, nil
}

func (s *dirStorage) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, goerr.Wrap(err, "failed to create artifact directory", goerr.V("key", key))
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create artifact file", goerr.V("key", key))
	}
	return f, nil
}

func (s *dirStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open artifact file", goerr.V("key", key))
	}
	return f, nil
}

func (s *dirStorage) Location(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// SaveArtifact writes data under key and returns its location
func SaveArtifact(ctx context.Context, st Storage, key string, data []byte) (string, error) {
	w, err := st.Put(ctx, key)
	if err != nil {
		return "", err
	}

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", goerr.Wrap(err, "failed to write artifact", goerr.V("key", key))
	}
	if err := w.Close(); err != nil {
		return "", goerr.Wrap(err, "failed to close artifact writer", goerr.V("key", key))
	}

	return st.Location(key), nil
}
