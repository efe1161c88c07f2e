// Package s3blob archives trade history to S3 or an S3-compatible store
// (MinIO, R2, iDrive e2) using AWS SDK v2.
package s3blob

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/alanyoungcy/sportsedge/internal/domain"
)

const (
	// minPartSize is the smallest part S3 accepts in a multipart upload.
	minPartSize int64 = 5 << 20
	// multipartThreshold switches Upload to the multipart manager.
	multipartThreshold = 8 << 20
)

// ClientConfig holds the archive bucket settings. Endpoint is empty for AWS
// and set for S3-compatible providers; a scheme-less Endpoint gets https when
// UseSSL is true.
type ClientConfig struct {
	Endpoint       string
	Region         string
	Bucket         string
	AccessKey      string
	SecretKey      string
	UseSSL         bool
	ForcePathStyle bool
}

// Bucket uploads archive objects to one bucket.
type Bucket struct {
	api      *s3.Client
	uploader *manager.Uploader
	name     string
}

// Open builds the SDK client and checks the bucket with HeadBucket. Static
// credentials are used when an access key is set; otherwise the default AWS
// chain applies.
func Open(ctx context.Context, cfg ClientConfig) (*Bucket, error) {
	switch {
	case cfg.Bucket == "":
		return nil, fmt.Errorf("s3blob: bucket name is required")
	case cfg.Region == "":
		return nil, fmt.Errorf("s3blob: region is required")
	}

	var loadOpts []func(*config.LoadOptions) error
	loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3blob: load aws config: %w", err)
	}

	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(endpointURL(cfg.Endpoint, cfg.UseSSL))
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	if _, err := api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("s3blob: bucket %s not reachable: %w", cfg.Bucket, err)
	}

	return &Bucket{
		api: api,
		uploader: manager.NewUploader(api, func(u *manager.Uploader) {
			u.PartSize = minPartSize
		}),
		name: cfg.Bucket,
	}, nil
}

// Upload writes body to key. Bodies of multipartThreshold bytes or more go
// through the multipart manager in minPartSize parts.
func (b *Bucket) Upload(ctx context.Context, key string, body []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(b.name),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	}
	if len(body) >= multipartThreshold {
		if _, err := b.uploader.Upload(ctx, input); err != nil {
			return fmt.Errorf("s3blob: multipart upload %s: %w", key, err)
		}
		return nil
	}
	input.ContentLength = aws.Int64(int64(len(body)))
	if _, err := b.api.PutObject(ctx, input); err != nil {
		return fmt.Errorf("s3blob: put %s: %w", key, err)
	}
	return nil
}

// endpointURL adds a scheme to endpoint when it has none.
func endpointURL(endpoint string, useSSL bool) string {
	if strings.Contains(endpoint, "://") {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}

var _ domain.ObjectUploader = (*Bucket)(nil)
