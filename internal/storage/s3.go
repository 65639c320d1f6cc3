package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"photo-ingest/internal/logging"
	"photo-ingest/internal/metrics"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// ObjectStore is the storage capability the coordinator needs: put,
// delete, existence check. Puts are full-object replaces.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// S3Options configures the S3 client. Endpoint is optional: when set,
// path-style addressing is used so minio-compatible dev stores work.
type S3Options struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	AccessKeySecret string
	DisableHTTPS    bool
}

// S3Store implements ObjectStore on an S3-compatible backend.
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store builds the S3 client and wraps it in a store. Custom
// endpoints get a dedicated resolver and path-style addressing; static
// credentials are used when provided, otherwise the default chain.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	var loadOptions []func(*config.LoadOptions) error
	var s3Options []func(*s3.Options)

	if opts.Region != "" {
		loadOptions = append(loadOptions, config.WithRegion(opts.Region))
	}

	if opts.Endpoint != "" {
		customResolver := aws.EndpointResolverWithOptionsFunc(func(
			service, region string, options ...interface{},
		) (aws.Endpoint, error) {
			if service == s3.ServiceID {
				return aws.Endpoint{
					PartitionID:   "aws",
					URL:           opts.Endpoint,
					SigningRegion: region,
				}, nil
			}

			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})

		loadOptions = append(loadOptions,
			config.WithEndpointResolverWithOptions(customResolver))

		s3Options = append(s3Options, func(o *s3.Options) {
			o.EndpointOptions.DisableHTTPS = opts.DisableHTTPS
			o.UsePathStyle = true
		})
	}

	if opts.AccessKeyID != "" {
		creds := credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID, opts.AccessKeySecret, "")

		loadOptions = append(loadOptions,
			config.WithCredentialsProvider(creds))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}

	return &S3Store{
		client: s3.NewFromConfig(cfg, s3Options...),
		bucket: opts.Bucket,
	}, nil
}

// Put uploads data under key as a full-object replace.
func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	start := time.Now()
	checksum := sha256.Sum256(data)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:            aws.String(s.bucket),
		Key:               aws.String(key),
		Body:              bytes.NewReader(data),
		ContentType:       aws.String(contentType),
		ContentLength:     aws.Int64(int64(len(data))),
		ChecksumAlgorithm: types.ChecksumAlgorithmSha256,
		ChecksumSHA256: aws.String(
			base64.StdEncoding.EncodeToString(checksum[:]),
		),
	})

	metrics.StorageOpDuration.WithLabelValues("put").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StorageOpsTotal.WithLabelValues("put", "error").Inc()
		return fmt.Errorf("failed to put object %q: %w", key, err)
	}

	metrics.StorageOpsTotal.WithLabelValues("put", "ok").Inc()
	metrics.StoragePutBytes.Add(float64(len(data)))
	logging.Debug("storage: put %s (%d bytes, %s)", key, len(data), contentType)
	return nil
}

// Delete removes the object under key. Deleting a missing key is not an
// error; S3 delete is idempotent.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	start := time.Now()

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})

	metrics.StorageOpDuration.WithLabelValues("delete").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StorageOpsTotal.WithLabelValues("delete", "error").Inc()
		return fmt.Errorf("failed to delete object %q: %w", key, err)
	}

	metrics.StorageOpsTotal.WithLabelValues("delete", "ok").Inc()
	return nil
}

// Exists reports whether an object is present under key.
func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}

		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
			return false, nil
		}

		return false, fmt.Errorf("failed to head object %q: %w", key, err)
	}
	return true, nil
}
