package minio

import (
	"context"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/turtacn/liposome-ivr/internal/config"
	"github.com/turtacn/liposome-ivr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/liposome-ivr/pkg/errors"
)

// MinIOAPI is the subset of *minio.Client used for artifact upload.
type MinIOAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
}

type MinIOClient struct {
	client MinIOAPI
	config config.MinIOConfig
	logger logging.Logger
}

// NewMinIOClient connects to the configured endpoint and makes sure the
// artifact bucket exists.
func NewMinIOClient(ctx context.Context, cfg config.MinIOConfig, log logging.Logger) (*MinIOClient, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageFailed, "failed to create minio client")
	}

	mClient := NewMinIOClientWithAPI(client, cfg, log)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := mClient.EnsureBucket(ctx); err != nil {
		return nil, err
	}

	log.Info("MinIO client connected", logging.String("endpoint", cfg.Endpoint), logging.Bool("ssl", cfg.UseSSL))
	return mClient, nil
}

// NewMinIOClientWithAPI wraps an existing API implementation.
func NewMinIOClientWithAPI(api MinIOAPI, cfg config.MinIOConfig, log logging.Logger) *MinIOClient {
	if cfg.Region == "" {
		cfg.Region = config.DefaultMinIORegion
	}
	return &MinIOClient{client: api, config: cfg, logger: log}
}

func (c *MinIOClient) Bucket() string { return c.config.Bucket }

func (c *MinIOClient) EnsureBucket(ctx context.Context) error {
	bucket := c.config.Bucket
	exists, err := c.client.BucketExists(ctx, bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageFailed, "failed to check bucket existence").
			WithDetail("bucket=" + bucket)
	}
	if exists {
		return nil
	}
	if err := c.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: c.config.Region}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageFailed, "failed to create bucket").
			WithDetail("bucket=" + bucket)
	}
	c.logger.Info("Created bucket", logging.String("bucket", bucket))
	return nil
}
