package minio

import (
	"context"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/liposome-ivr/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/liposome-ivr/pkg/errors"
)

type ArtifactStoreTestSuite struct {
	suite.Suite
	api   *MockMinIOAPI
	store *ArtifactStore
}

func (s *ArtifactStoreTestSuite) SetupTest() {
	s.api = new(MockMinIOAPI)
	client := NewMinIOClientWithAPI(s.api, testMinIOConfig(), logging.NewNopLogger())
	s.store = NewArtifactStore(client, logging.NewNopLogger())
}

func (s *ArtifactStoreTestSuite) TestObjectKey() {
	s.Equal("ivr/run-1/processed/API_percent.csv", s.store.ObjectKey("run-1", "processed/API_percent.csv"))
}

func (s *ArtifactStoreTestSuite) TestUploadFile_Success() {
	meta := map[string]string{"run-id": "run-1"}
	s.api.On("FPutObject", mock.Anything, "ivr-artifacts", "ivr/run-1/time_units.csv", "/tmp/time_units.csv",
		mock.MatchedBy(func(o minio.PutObjectOptions) bool {
			return o.ContentType == "text/csv" && o.UserMetadata["run-id"] == "run-1"
		})).
		Return(minio.UploadInfo{ETag: "abc", Size: 42}, nil)

	res, err := s.store.UploadFile(context.Background(), "/tmp/time_units.csv", "ivr/run-1/time_units.csv", meta)
	s.Require().NoError(err)
	s.Equal("abc", res.ETag)
	s.Equal(int64(42), res.Size)
	s.Equal("s3://ivr-artifacts/ivr/run-1/time_units.csv", res.Location)
	s.api.AssertExpectations(s.T())
}

func (s *ArtifactStoreTestSuite) TestUploadFile_Failure() {
	s.api.On("FPutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, errors.New("timeout"))

	_, err := s.store.UploadFile(context.Background(), "/tmp/a.csv", "k", nil)
	s.True(apperrors.IsCode(err, apperrors.ErrCodeStorageFailed))
}

func (s *ArtifactStoreTestSuite) TestUploadFile_InvalidRequest() {
	_, err := s.store.UploadFile(context.Background(), "", "k", nil)
	s.ErrorIs(err, ErrInvalidRequest)
}

func (s *ArtifactStoreTestSuite) TestExists() {
	s.api.On("StatObject", mock.Anything, "ivr-artifacts", "present", mock.Anything).Return(minio.ObjectInfo{Key: "present"}, nil)
	s.api.On("StatObject", mock.Anything, "ivr-artifacts", "absent", mock.Anything).
		Return(minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404})
	s.api.On("StatObject", mock.Anything, "ivr-artifacts", "broken", mock.Anything).
		Return(minio.ObjectInfo{}, errors.New("boom"))

	ok, err := s.store.Exists(context.Background(), "present")
	s.NoError(err)
	s.True(ok)

	ok, err = s.store.Exists(context.Background(), "absent")
	s.NoError(err)
	s.False(ok)

	_, err = s.store.Exists(context.Background(), "broken")
	s.Error(err)
}

func TestArtifactStoreTestSuite(t *testing.T) {
	suite.Run(t, new(ArtifactStoreTestSuite))
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "text/csv", contentTypeFor("a/b.CSV"))
	assert.Equal(t, "application/yaml", contentTypeFor("manifest.yaml"))
	assert.Equal(t, "text/plain", contentTypeFor("ivrdata.prom"))
	assert.Equal(t, "application/octet-stream", contentTypeFor("blob"))
}
