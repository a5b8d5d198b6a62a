// Package storage provides object storage for lead photos, backed by MinIO.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"artisan_dispatch_backend/platform/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Service wraps the MinIO client for the lead-photos bucket.
type Service struct {
	client *minio.Client
	bucket string
}

// NewService creates a storage service from configuration. Returns nil when
// MinIO is not configured; callers treat a nil service as "no photo storage".
func NewService(cfg config.StorageConfig) (*Service, error) {
	if cfg.GetMinioEndpoint() == "" {
		return nil, nil
	}

	client, err := minio.New(cfg.GetMinioEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinioAccessKey(), cfg.GetMinioSecretKey(), ""),
		Secure: cfg.GetMinioUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &Service{client: client, bucket: cfg.GetMinioBucketLeadPhotos()}, nil
}

// EnsureBucketExists creates the lead-photos bucket if it doesn't exist.
func (s *Service) EnsureBucketExists(ctx context.Context) error {
	if s == nil {
		return nil
	}

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// PresignedPhotoURL creates a time-limited download URL for a stored photo.
func (s *Service) PresignedPhotoURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if s == nil {
		return "", fmt.Errorf("photo storage is not configured")
	}

	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign photo URL: %w", err)
	}
	return presigned.String(), nil
}
