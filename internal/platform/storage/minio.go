// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package storage

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/taibuivan/comicverse/internal/platform/config"
)

// minioAPI is the subset of [minio.Client] the driver uses.
type minioAPI interface {
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	RemoveObjects(ctx context.Context, bucketName string, objectsCh <-chan minio.ObjectInfo, opts minio.RemoveObjectsOptions) <-chan minio.RemoveObjectError
	BucketExists(ctx context.Context, bucketName string) (bool, error)
}

// MinIOStore deletes assets from a MinIO bucket.
type MinIOStore struct {
	client minioAPI
	bucket string
}

// NewMinIOStore creates a MinIO client with static V4 credentials. It does not
// contact the server; use [MinIOStore.Ping] for that.
func NewMinIOStore(cfg config.MinIOConfig) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: failed to create minio client: %w", err)
	}

	return newMinIOStore(client, cfg.Bucket), nil
}

func newMinIOStore(client minioAPI, bucket string) *MinIOStore {
	return &MinIOStore{client: client, bucket: bucket}
}

// Delete removes a single object.
func (store *MinIOStore) Delete(ctx context.Context, key string) error {
	if err := store.client.RemoveObject(ctx, store.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("storage: minio delete %s: %w", key, err)
	}
	return nil
}

// DeleteBatch streams keys to RemoveObjects and collects the per-object errors.
func (store *MinIOStore) DeleteBatch(ctx context.Context, keys []string) map[string]error {
	objectsCh := make(chan minio.ObjectInfo, len(keys))
	for _, key := range keys {
		objectsCh <- minio.ObjectInfo{Key: key}
	}
	close(objectsCh)

	failed := make(map[string]error)
	for removeErr := range store.client.RemoveObjects(ctx, store.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if removeErr.Err != nil {
			failed[removeErr.ObjectName] = fmt.Errorf("storage: minio delete %s: %w", removeErr.ObjectName, removeErr.Err)
		}
	}

	return failed
}

// Ping checks that the bucket exists.
func (store *MinIOStore) Ping(ctx context.Context) error {
	exists, err := store.client.BucketExists(ctx, store.bucket)
	if err != nil {
		return fmt.Errorf("storage: minio bucket %s unreachable: %w", store.bucket, err)
	}
	if !exists {
		return fmt.Errorf("storage: minio bucket %s does not exist", store.bucket)
	}
	return nil
}
