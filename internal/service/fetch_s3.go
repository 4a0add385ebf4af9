package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// S3Fetcher downloads source extracts from an S3-compatible object store
// (AWS S3 or MinIO) so the orchestrator only ever sees local paths.
type S3Fetcher struct {
	client *s3.Client
	logger *zap.Logger
}

// NewS3Fetcher builds an S3 client from the default credentials chain.
// endpoint is optional (MinIO/localstack).
func NewS3Fetcher(ctx context.Context, region, endpoint string, logger *zap.Logger) (*S3Fetcher, error) {
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Fetcher{client: client, logger: logger}, nil
}

// Download fetches s3://bucket/key into destDir and returns the local path.
// The caller owns cleanup of the downloaded file.
func (f *S3Fetcher) Download(ctx context.Context, bucket, key, destDir string) (string, error) {
	filename := path.Base(key)
	if filename == "" || filename == "/" || filename == "." {
		filename = "hospital_capacity_raw.csv"
	}
	localPath := filepath.Join(destDir, filename)

	f.logger.Info("downloading from s3",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.String("dest", localPath),
	)
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		return "", fmt.Errorf("failed to download s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	dst, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to create local file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, out.Body); err != nil {
		_ = os.Remove(localPath)
		return "", fmt.Errorf("failed to write local file: %w", err)
	}
	return localPath, nil
}

// IngestFromS3 downloads the object, delegates to IngestFile, and always
// removes the temp file afterwards.
func (s *IngestService) IngestFromS3(ctx context.Context, fetcher *S3Fetcher, bucket, key, source string) (*IngestResult, error) {
	localPath, err := fetcher.Download(ctx, bucket, key, os.TempDir())
	if err != nil {
		return nil, err
	}
	defer func() {
		if rmErr := os.Remove(localPath); rmErr == nil {
			s.logger.Debug("cleaned up temp file", zap.String("path", localPath))
		}
	}()

	return s.IngestFile(ctx, localPath, source)
}
