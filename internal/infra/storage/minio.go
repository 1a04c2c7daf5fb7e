package storage

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bryanwahyu/repo-analyzer-api/internal/domain/artifacts"
)

// Provider selects the public URL pattern for stored objects.
const (
	ProviderS3    = "s3"
	ProviderR2    = "r2"
	ProviderMinio = "minio"
)

const defaultContentType = "application/octet-stream"

type Store struct {
	client       *minio.Client
	provider     string
	publicDomain string
}

// New buat koneksi ke object store (S3-compatible lewat MinIO client)
func New(ctx context.Context, endpoint, region, accessKey, secretKey string, useSSL bool, provider, publicDomain string) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}
	if provider == "" {
		provider = ProviderS3
	}
	return &Store{client: cli, provider: provider, publicDomain: publicDomain}, nil
}

// EnsureBucket memastikan bucket ada, buat kalau belum.
func (s *Store) EnsureBucket(ctx context.Context, bucket, region string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return err
		}
	}
	return nil
}

// Put implementasi artifacts.Store. An empty content type is never forwarded
// to the store.
func (s *Store) Put(ctx context.Context, req artifacts.PutRequest) error {
	contentType := req.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	size := req.Size
	if size == 0 {
		size = -1 // unknown, let the client stream
	}
	_, err := s.client.PutObject(ctx, req.Bucket, req.Key, req.Body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("store put %s/%s: %w", req.Bucket, req.Key, err)
	}
	return nil
}

// PutFile uploads a local file.
func (s *Store) PutFile(ctx context.Context, bucket, key, localPath, contentType string) error {
	if contentType == "" {
		contentType = defaultContentType
	}
	_, err := s.client.FPutObject(ctx, bucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("store put %s/%s: %w", bucket, key, err)
	}
	return nil
}

// PublicURL builds the object's public address without a store round trip.
// A configured domain override wins; otherwise the provider pattern applies.
func (s *Store) PublicURL(bucket, region, key string) string {
	if s.publicDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.publicDomain, key)
	}
	switch s.provider {
	case ProviderR2:
		return fmt.Sprintf("https://%s.%s.r2.cloudflarestorage.com/%s", bucket, region, key)
	case ProviderMinio:
		// Path-style URL against the configured endpoint (private deployments).
		return fmt.Sprintf("%s/%s/%s", s.client.EndpointURL().String(), bucket, key)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key)
	}
}

// Check implements the readiness probe: the store is healthy when the bucket
// listing call answers.
func (s *Store) Check(ctx context.Context) error {
	_, err := s.client.ListBuckets(ctx)
	return err
}
