// Package s3 implements the blob store on Amazon S3 or S3-compatible
// object storage.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/pkoutsias/stashfs/pkg/content"
)

const maxNameAttempts = 10

// Store implements content.Store on an S3 bucket.
//
// Blob paths map directly to object keys (with an optional prefix), so the
// bucket mirrors the filesystem backend's fan-out layout. That keeps blobs
// portable between backends and the bucket easy to inspect.
//
// Supports custom endpoints for S3-compatible storage (MinIO, Cubbit DS3),
// configured on the client passed in.
type Store struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
	namer     content.Namer
}

// Config contains the options for the S3 blob store.
type Config struct {
	// Client is the configured S3 client.
	Client *s3.Client

	// Bucket is the bucket name. It must already exist.
	Bucket string

	// KeyPrefix is an optional prefix for all object keys, e.g.
	// "stashfs/blobs/".
	KeyPrefix string

	// Namer generates blob names.
	Namer content.Namer
}

// New creates an S3-backed blob store and verifies bucket access.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if cfg.Namer == nil {
		return nil, fmt.Errorf("namer is required")
	}

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return &Store{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
		namer:     cfg.Namer,
	}, nil
}

// Put uploads the blob under a freshly generated key.
//
// The data is buffered in memory before upload because S3 request signing
// needs the payload length up front. Blob sizes in this system are bounded
// by user quotas, which keeps the buffering acceptable; multipart upload is
// the escape hatch if that ever changes.
func (s *Store) Put(ctx context.Context, data io.Reader) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	buf, err := io.ReadAll(data)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read blob data: %w", err)
	}

	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		rel := content.BlobPath(s.namer.Next())
		key := s.objectKey(rel)

		exists, err := s.keyExists(ctx, key)
		if err != nil {
			return "", 0, err
		}
		if exists {
			continue
		}

		_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(buf),
		})
		if err != nil {
			return "", 0, fmt.Errorf("failed to upload blob %s: %w", rel, err)
		}
		return rel, int64(len(buf)), nil
	}
	return "", 0, fmt.Errorf("blob name generation exhausted: %w", content.ErrBlobExists)
}

// Open returns a reader streaming the object's body.
func (s *Store) Open(ctx context.Context, blobPath string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(blobPath)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("blob %s: %w", blobPath, content.ErrBlobNotFound)
		}
		return nil, fmt.Errorf("failed to get blob %s: %w", blobPath, err)
	}
	return result.Body, nil
}

// Size uses HeadObject to read the object's length without downloading it.
func (s *Store) Size(ctx context.Context, blobPath string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	result, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(blobPath)),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, fmt.Errorf("blob %s: %w", blobPath, content.ErrBlobNotFound)
		}
		return 0, fmt.Errorf("failed to head blob %s: %w", blobPath, err)
	}
	return aws.ToInt64(result.ContentLength), nil
}

// Delete removes the object. S3 DeleteObject is idempotent, so a HeadObject
// first distinguishes the missing-blob case the interface requires.
func (s *Store) Delete(ctx context.Context, blobPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := s.objectKey(blobPath)
	exists, err := s.keyExists(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("blob %s: %w", blobPath, content.ErrBlobNotFound)
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", blobPath, err)
	}
	return nil
}

func (s *Store) objectKey(blobPath string) string {
	if s.keyPrefix == "" {
		return blobPath
	}
	return path.Join(s.keyPrefix, blobPath)
}

func (s *Store) keyExists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head object %s: %w", key, err)
	}
	return true, nil
}

// isNotFound matches the assorted shapes S3 uses for missing objects.
func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	return errors.As(err, &notFound) || errors.As(err, &noSuchKey)
}

var _ content.Store = (*Store)(nil)
