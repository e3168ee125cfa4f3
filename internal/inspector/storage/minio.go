package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hwfleet/hwfleet/internal/inspector/core"
	"github.com/hwfleet/hwfleet/internal/inspector/core/report"
	"github.com/hwfleet/hwfleet/pkg/log"
	"github.com/hwfleet/hwfleet/pkg/options"
)

var _ core.ReportStore = (*MinIOStore)(nil)

// MinIOStore archives pass reports as JSON objects in an S3-compatible bucket.
type MinIOStore struct {
	client     *minio.Client
	bucketName string
	prefix     string
	logger     log.Logger
}

// NewMinIOStore creates a store for opts.BucketName.
func NewMinIOStore(opts *options.S3Options, logger log.Logger) (*MinIOStore, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinIOStore{
		client:     client,
		bucketName: opts.BucketName,
		prefix:     opts.Prefix,
		logger:     logger,
	}, nil
}

// CheckBucket makes sure the bucket exists, creating it when missing.
func (s *MinIOStore) CheckBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		s.logger.Info("Bucket does not exist, creating", "bucket", s.bucketName)
		if err := s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

func (s *MinIOStore) Save(ctx context.Context, summary *report.Summary) error {
	payload, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	key := ObjectKey(s.prefix, summary)
	_, err = s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("failed to upload report %s: %w", key, err)
	}

	s.logger.Debug("Archived pass report", "bucket", s.bucketName, "key", key)
	return nil
}

// ObjectKey is {prefix}/{yyyy}/{mm}/{dd}/{passID}.json, dated by the pass start.
func ObjectKey(prefix string, summary *report.Summary) string {
	day := summary.StartedAt.UTC().Format("2006/01/02")
	return path.Join(prefix, day, summary.PassID+".json")
}
