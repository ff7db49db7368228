// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/taibuivan/comicverse/internal/platform/config"
)

// s3BatchLimit is the maximum number of keys a single DeleteObjects call accepts.
const s3BatchLimit = 1000

// s3API is the subset of [s3.Client] the driver uses.
type s3API interface {
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Store deletes assets from an S3-compatible bucket.
type S3Store struct {
	client s3API
	bucket string
}

// NewS3Store builds an S3 client from static credentials when they are set, or
// from the default AWS credential chain otherwise. A custom endpoint switches to
// path-style addressing, which R2 and most S3-compatible servers expect.
func NewS3Store(ctx context.Context, cfg config.S3Config) (*S3Store, error) {
	options := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	if cfg.AccessKeyID != "" {
		options = append(options, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to load s3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Store(client, cfg.Bucket), nil
}

func newS3Store(client s3API, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket}
}

// Delete removes a single object.
func (store *S3Store) Delete(ctx context.Context, key string) error {
	_, err := store.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(store.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("storage: s3 delete %s: %w", key, err)
	}
	return nil
}

// DeleteBatch removes keys in chunks of [s3BatchLimit]. A failed request marks
// its whole chunk as failed; per-key errors reported by S3 are mapped to their key.
func (store *S3Store) DeleteBatch(ctx context.Context, keys []string) map[string]error {
	failed := make(map[string]error)

	for start := 0; start < len(keys); start += s3BatchLimit {
		chunk := keys[start:min(start+s3BatchLimit, len(keys))]

		objects := make([]types.ObjectIdentifier, len(chunk))
		for i, key := range chunk {
			objects[i] = types.ObjectIdentifier{Key: aws.String(key)}
		}

		output, err := store.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(store.bucket),
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			for _, key := range chunk {
				failed[key] = fmt.Errorf("storage: s3 batch delete: %w", err)
			}
			continue
		}
		if output == nil {
			continue
		}

		for _, objectErr := range output.Errors {
			key := aws.ToString(objectErr.Key)
			failed[key] = fmt.Errorf("storage: s3 delete %s: %s: %s", key, aws.ToString(objectErr.Code), aws.ToString(objectErr.Message))
		}
	}

	return failed
}

// Ping checks that the bucket exists and is accessible.
func (store *S3Store) Ping(ctx context.Context) error {
	if _, err := store.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(store.bucket)}); err != nil {
		return fmt.Errorf("storage: s3 bucket %s unreachable: %w", store.bucket, err)
	}
	return nil
}
