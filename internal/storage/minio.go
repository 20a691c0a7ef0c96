// Package storage is the object store gateway for synthesized audio.
//
// A durable handle is the object key of an uploaded payload. It never
// expires and always dereferences to the same bytes; the download URL
// derived from it by Resolve is presigned and short-lived, and must be
// requested fresh for every serving request. Handles embed a batch id and a
// random component, so they are never reused across batches.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"aus-news/config"
)

// ErrUploadFailed indicates the object store rejected an upload. The item is
// kept text-only; the batch continues.
var ErrUploadFailed = errors.New("upload failed")

// ErrUpstreamUnavailable indicates the object store could not serve a resolve
// request. Serving callers map it to a generic 502.
var ErrUpstreamUnavailable = errors.New("object store unavailable")

// MinioClient is the MinIO-backed object store gateway.
type MinioClient struct {
	client        *minio.Client
	bucketName    string
	resolveExpiry time.Duration
	logger        *slog.Logger
}

// NewMinioClient creates the gateway and ensures the bucket exists.
func NewMinioClient(cfg *config.MinIOConfig, resolveExpiry time.Duration, logger *slog.Logger) (*MinioClient, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse minio endpoint: %w", err)
	}

	secure := u.Scheme == "https"
	endpoint := u.Host
	if endpoint == "" {
		endpoint = "localhost:9000"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		logger.Info("creating bucket", "bucket", cfg.BucketName)
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return &MinioClient{
		client:        client,
		bucketName:    cfg.BucketName,
		resolveExpiry: resolveExpiry,
		logger:        logger,
	}, nil
}

// NewHandle issues a fresh durable handle for an audio object in the given
// feed and batch.
func (c *MinioClient) NewHandle(feed, batch string) string {
	return fmt.Sprintf("audio/%s/%s/%s.mp3", feed, batch, uuid.NewString())
}

// Upload stores an audio payload under its durable handle.
func (c *MinioClient) Upload(ctx context.Context, handle string, data []byte, contentType string) error {
	info, err := c.client.PutObject(ctx, c.bucketName, handle, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	c.logger.Debug("object uploaded", "handle", handle, "size", info.Size)
	return nil
}

// Resolve exchanges a durable handle for a fresh short-lived download URL.
// The URL must not be cached past the response it was requested for.
func (c *MinioClient) Resolve(ctx context.Context, handle string) (string, error) {
	presigned, err := c.client.PresignedGetObject(ctx, c.bucketName, handle, c.resolveExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("%w: presign: %v", ErrUpstreamUnavailable, err)
	}
	return presigned.String(), nil
}

// DeleteBatch removes a previous batch's objects. Cleanup is best-effort:
// individual failures are logged and skipped, never surfaced to the caller.
func (c *MinioClient) DeleteBatch(ctx context.Context, handles []string) {
	for _, handle := range handles {
		if err := c.client.RemoveObject(ctx, c.bucketName, handle, minio.RemoveObjectOptions{}); err != nil {
			c.logger.Warn("delete failed, continuing", "handle", handle, "error", err)
		}
	}
	c.logger.Info("batch cleanup finished", "objects", len(handles))
}
