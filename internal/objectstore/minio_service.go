package objectstore

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime"
	"os"
	"path/filepath"
	"strconv"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioUploadStore archives uploaded images in a MinIO bucket. It is
// optional: when configured it runs alongside the local working store so
// uploads survive the local disk.
type MinioUploadStore struct {
	client *minio.Client
	bucket string
}

// NewMinioUploadStoreFromEnv builds a MinIO-backed store from the
// MINIO_ENDPOINT, MINIO_ACCESS_KEY_ID, MINIO_SECRET_ACCESS_KEY,
// MINIO_BUCKET_NAME and MINIO_USE_SSL environment variables, creating
// the bucket if it does not exist yet.
func NewMinioUploadStoreFromEnv() (*MinioUploadStore, error) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	accessKeyID := os.Getenv("MINIO_ACCESS_KEY_ID")
	secretAccessKey := os.Getenv("MINIO_SECRET_ACCESS_KEY")
	bucketName := os.Getenv("MINIO_BUCKET_NAME")
	useSSLStr := os.Getenv("MINIO_USE_SSL")

	if endpoint == "" || accessKeyID == "" || secretAccessKey == "" || bucketName == "" {
		return nil, fmt.Errorf("MINIO_ENDPOINT, MINIO_ACCESS_KEY_ID, MINIO_SECRET_ACCESS_KEY, and MINIO_BUCKET_NAME must be set")
	}

	useSSL, err := strconv.ParseBool(useSSLStr)
	if err != nil {
		log.Printf("Warning: MINIO_USE_SSL is not a valid boolean (%q). Defaulting to false.", useSSLStr)
		useSSL = false
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check if MinIO bucket %q exists: %w", bucketName, err)
	}
	if !exists {
		log.Printf("MinIO bucket %q does not exist. Attempting to create it.", bucketName)
		if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create MinIO bucket %q: %w", bucketName, err)
		}
	}

	log.Println("MinIO upload store initialized successfully.")
	return &MinioUploadStore{client: client, bucket: bucketName}, nil
}

func (s *MinioUploadStore) Save(filename string, content io.Reader, size int64) (string, error) {
	objectName := uniqueObjectName(filename)
	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	info, err := s.client.PutObject(context.Background(), s.bucket, objectName, content, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %q to MinIO bucket %q: %w", objectName, s.bucket, err)
	}

	log.Printf("Archived upload %q (%d bytes) to MinIO bucket %q.", objectName, info.Size, s.bucket)
	return objectName, nil
}

func (s *MinioUploadStore) Remove(storedName string) error {
	err := s.client.RemoveObject(context.Background(), s.bucket, storedName, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object %q from MinIO bucket %q: %w", storedName, s.bucket, err)
	}
	return nil
}
