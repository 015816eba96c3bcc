package minio

import (
	"context"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/liposome-ivr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/liposome-ivr/pkg/errors"
)

var ErrInvalidRequest = errors.New(errors.ErrCodeValidation, "invalid request")

type UploadResult struct {
	Bucket     string
	ObjectKey  string
	ETag       string
	Size       int64
	Location   string
	UploadedAt time.Time
}

// ArtifactStore uploads build artifacts under <prefix>/<run id>/.
type ArtifactStore struct {
	client *MinIOClient
	logger logging.Logger
}

func NewArtifactStore(client *MinIOClient, log logging.Logger) *ArtifactStore {
	return &ArtifactStore{client: client, logger: log.Named("artifact_store")}
}

// ObjectKey maps an output-relative path to its object key for a run.
func (s *ArtifactStore) ObjectKey(runID, rel string) string {
	return path.Join(s.client.config.Prefix, runID, filepath.ToSlash(rel))
}

// UploadFile uploads one local file.
func (s *ArtifactStore) UploadFile(ctx context.Context, localPath, objectKey string, metadata map[string]string) (*UploadResult, error) {
	if localPath == "" || objectKey == "" {
		return nil, ErrInvalidRequest
	}
	bucket := s.client.Bucket()

	opts := minio.PutObjectOptions{
		ContentType:  contentTypeFor(localPath),
		UserMetadata: metadata,
	}
	info, err := s.client.client.FPutObject(ctx, bucket, objectKey, localPath, opts)
	if err != nil {
		s.logger.Error("Artifact upload failed",
			logging.String("bucket", bucket), logging.String("key", objectKey), logging.Err(err))
		return nil, errors.Wrap(err, errors.ErrCodeStorageFailed, "upload failed").WithDetail("key=" + objectKey)
	}

	s.logger.Debug("Uploaded artifact", logging.String("key", objectKey), logging.Int64("size", info.Size))
	return &UploadResult{
		Bucket:     bucket,
		ObjectKey:  objectKey,
		ETag:       info.ETag,
		Size:       info.Size,
		Location:   "s3://" + bucket + "/" + objectKey,
		UploadedAt: time.Now().UTC(),
	}, nil
}

// Exists reports whether objectKey is present in the bucket.
func (s *ArtifactStore) Exists(ctx context.Context, objectKey string) (bool, error) {
	_, err := s.client.client.StatObject(ctx, s.client.Bucket(), objectKey, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return false, nil
	}
	return false, errors.Wrap(err, errors.ErrCodeStorageFailed, "stat failed").WithDetail("key=" + objectKey)
}

func contentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return "text/csv"
	case ".yaml", ".yml":
		return "application/yaml"
	case ".prom", ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
