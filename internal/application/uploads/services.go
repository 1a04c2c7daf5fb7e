package uploads

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/bryanwahyu/repo-analyzer-api/internal/application"
	"github.com/bryanwahyu/repo-analyzer-api/internal/domain/artifacts"
)

// Hard-coded fallbacks when neither the request nor the config names a
// bucket/region.
const (
	FallbackBucket = "repo-analyzer"
	FallbackRegion = "eu-central-1"
)

const (
	// keyTimeLayout renders second precision without colons so keys stay
	// filesystem- and URL-safe.
	keyTimeLayout = "2006-01-02T15-04-05"

	defaultContentType = "application/octet-stream"
)

// Service implements use-cases untuk Upload
// Service is designed to be used concurrently and is thread-safe
type Service struct {
	Store         artifacts.Store
	Clock         application.Clock
	DefaultBucket string
	DefaultRegion string
}

// UploadCommand is one extracted file part plus its resolution parameters.
type UploadCommand struct {
	Filename    string
	ContentType string
	Body        io.Reader
	Size        int64

	// Optional overrides; empty means "resolve from config, then fallback".
	Bucket string
	Region string
	Key    string
}

// Upload resolves bucket/region/key/content-type, performs exactly one store
// write and returns the durable reference. Nothing is written on any error
// path before the put.
func (s *Service) Upload(ctx context.Context, cmd UploadCommand) (artifacts.UploadResult, error) {
	bucket := resolve(cmd.Bucket, s.DefaultBucket, FallbackBucket)
	region := resolve(cmd.Region, s.DefaultRegion, FallbackRegion)

	// Explicit key is used verbatim; only absent keys mint a new identity.
	key := cmd.Key
	if key == "" {
		key = s.GenerateKey(cmd.Filename)
	}

	contentType := cmd.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	err := s.Store.Put(ctx, artifacts.PutRequest{
		Bucket:      bucket,
		Key:         key,
		Body:        cmd.Body,
		Size:        cmd.Size,
		ContentType: contentType,
	})
	if err != nil {
		return artifacts.UploadResult{}, fmt.Errorf("failed to upload file: %w", err)
	}

	return artifacts.UploadResult{
		URL:    s.Store.PublicURL(bucket, region, key),
		Bucket: bucket,
		Key:    key,
		Region: region,
	}, nil
}

// GenerateKey mints a fresh storage key: reports/{timestamp}-{uuid8}-{filename}.
// Every call produces a new identity; callers wanting idempotent keys must
// pass an explicit key instead.
func (s *Service) GenerateKey(filename string) string {
	timestamp := s.Clock.Now().UTC().Format(keyTimeLayout)
	if filename == "" {
		filename = fmt.Sprintf("report-%s", timestamp)
	}
	short := uuid.New().String()[:8]
	return fmt.Sprintf("reports/%s-%s-%s", timestamp, short, filename)
}

// resolve picks the first non-empty value: explicit param > config default > fallback
func resolve(param, configured, fallback string) string {
	if param != "" {
		return param
	}
	if configured != "" {
		return configured
	}
	return fallback
}
