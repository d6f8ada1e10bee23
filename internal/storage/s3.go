package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"github.com/sonartis/panelshop/internal/domain"
)

// S3Backend stores blobs in an S3-compatible bucket. The production
// deployment points this at Cloudflare R2 via a custom endpoint.
type S3Backend struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
	logger    zerolog.Logger
}

// S3Config holds settings for the S3 backend.
type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string

	// KeyPrefix is prepended to every storage path, e.g. "media/".
	KeyPrefix string
}

// NewS3Backend creates an S3 backend and verifies bucket access.
func NewS3Backend(ctx context.Context, cfg S3Config, logger zerolog.Logger) (*S3Backend, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket name is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// R2 and most S3-compatible stores want path-style addressing.
			o.UsePathStyle = true
		}
	})

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	}); err != nil {
		return nil, fmt.Errorf("failed to access bucket %s: %w", cfg.Bucket, err)
	}

	logger.Info().
		Str("bucket", cfg.Bucket).
		Str("endpoint", cfg.Endpoint).
		Msg("connected to S3 storage")

	return &S3Backend{
		client:    client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
		logger:    logger.With().Str("backend", "s3").Logger(),
	}, nil
}

func (b *S3Backend) key(path string) string {
	return b.keyPrefix + path
}

// Store writes content at the given path.
func (b *S3Backend) Store(ctx context.Context, path string, reader io.Reader, size int64) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(b.key(path)),
		Body:          reader,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("%w: put %s: %v", domain.ErrStorageUnavailable, path, err)
	}
	b.logger.Debug().Str("path", path).Int64("size", size).Msg("stored blob")
	return nil
}

// Retrieve opens the blob at the given path.
func (b *S3Backend) Retrieve(ctx context.Context, path string) (io.ReadCloser, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(path)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, domain.ErrBlobNotFound
		}
		return nil, fmt.Errorf("%w: get %s: %v", domain.ErrStorageUnavailable, path, err)
	}
	return out.Body, nil
}

// Exists checks whether a blob exists at the given path.
func (b *S3Backend) Exists(ctx context.Context, path string) (bool, error) {
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(path)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: head %s: %v", domain.ErrStorageUnavailable, path, err)
	}
	return true, nil
}

// Delete removes the blob at the given path. S3 DeleteObject is a no-op
// for missing keys, so existence is checked first to report whether a
// blob was actually removed.
func (b *S3Backend) Delete(ctx context.Context, path string) (bool, error) {
	existed, err := b.Exists(ctx, path)
	if err != nil {
		return false, err
	}
	if !existed {
		return false, nil
	}

	_, err = b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(path)),
	})
	if err != nil {
		return false, fmt.Errorf("%w: delete %s: %v", domain.ErrStorageUnavailable, path, err)
	}
	b.logger.Debug().Str("path", path).Msg("deleted blob")
	return true, nil
}

// List returns all blobs under the given prefix.
func (b *S3Backend) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo

	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(b.key(prefix)),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: list %s: %v", domain.ErrStorageUnavailable, prefix, err)
		}
		for _, obj := range page.Contents {
			info := ObjectInfo{
				Path: strings.TrimPrefix(aws.ToString(obj.Key), b.keyPrefix),
			}
			if obj.Size != nil {
				info.Size = *obj.Size
			}
			if obj.LastModified != nil {
				info.LastModified = *obj.LastModified
			}
			objects = append(objects, info)
		}
	}

	return objects, nil
}

// isS3NotFound detects the SDK's missing-key error shapes.
func isS3NotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}

// Ensure S3Backend implements Backend.
var _ Backend = (*S3Backend)(nil)
