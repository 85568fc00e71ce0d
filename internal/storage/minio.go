// internal/storage/minio.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"dicom-catalog/internal/config"
)

// ErrObjectMissing reports that the requested object is not in the bucket.
var ErrObjectMissing = errors.New("object missing from bucket")

// BlobStore is the artifact storage contract the handlers depend on. The
// MinIO client satisfies it; tests substitute an in-memory implementation.
type BlobStore interface {
	Upload(ctx context.Context, objectName, filePath, contentType string) error
	UploadFromReader(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	Get(ctx context.Context, objectName string) (io.ReadCloser, int64, error)
	Stat(ctx context.Context, objectName string) error
	Delete(ctx context.Context, objectName string) error
}

type MinIOClient struct {
	client *minio.Client
	bucket string
}

// NewMinIOClient connects to MinIO and ensures the bucket exists.
func NewMinIOClient(cfg *config.Config) (*MinIOClient, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &MinIOClient{client: client, bucket: cfg.MinioBucket}, nil
}

// Upload stores the file at filePath under objectName.
func (m *MinIOClient) Upload(ctx context.Context, objectName, filePath, contentType string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	_, err = m.client.PutObject(ctx, m.bucket, objectName, file, stat.Size(), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload to MinIO: %w", err)
	}
	return nil
}

// UploadFromReader stores size bytes from reader under objectName.
func (m *MinIOClient) UploadFromReader(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload to MinIO: %w", err)
	}
	return nil
}

// Get returns a reader over the object's bytes plus its size. Callers must
// close the reader.
func (m *MinIOClient) Get(ctx context.Context, objectName string) (io.ReadCloser, int64, error) {
	if err := m.Stat(ctx, objectName); err != nil {
		return nil, 0, err
	}
	object, err := m.client.GetObject(ctx, m.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get object: %w", err)
	}
	stat, err := object.Stat()
	if err != nil {
		object.Close()
		return nil, 0, fmt.Errorf("failed to stat object: %w", err)
	}
	return object, stat.Size, nil
}

// Stat reports ErrObjectMissing when the object is not in the bucket.
func (m *MinIOClient) Stat(ctx context.Context, objectName string) error {
	_, err := m.client.StatObject(ctx, m.bucket, objectName, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return ErrObjectMissing
		}
		return fmt.Errorf("failed to stat object: %w", err)
	}
	return nil
}

// Delete removes the object from the bucket.
func (m *MinIOClient) Delete(ctx context.Context, objectName string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete from MinIO: %w", err)
	}
	return nil
}

// GenerateObjectName creates a unique stored-artifact reference. The name is
// flat (no path separators) so it can travel as a single URL path segment,
// and keeps the original extension.
func GenerateObjectName(filename string) string {
	return fmt.Sprintf("%s%s", uuid.New().String(), filepath.Ext(filename))
}
