package minio

import (
	"context"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/liposome-ivr/internal/config"
	"github.com/turtacn/liposome-ivr/internal/testutil"
	apperrors "github.com/turtacn/liposome-ivr/pkg/errors"
)

type MockMinIOAPI struct {
	mock.Mock
}

func (m *MockMinIOAPI) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

func (m *MockMinIOAPI) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	args := m.Called(ctx, bucketName, opts)
	return args.Error(0)
}

func (m *MockMinIOAPI) FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucketName, objectName, filePath, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

func (m *MockMinIOAPI) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	return args.Get(0).(minio.ObjectInfo), args.Error(1)
}

func testMinIOConfig() config.MinIOConfig {
	return config.MinIOConfig{
		Enabled:  true,
		Endpoint: "localhost:9000",
		Bucket:   "ivr-artifacts",
		Prefix:   "ivr",
	}
}

type ClientTestSuite struct {
	suite.Suite
	api    *MockMinIOAPI
	logger *testutil.MockLogger
	client *MinIOClient
}

func (s *ClientTestSuite) SetupTest() {
	s.api = new(MockMinIOAPI)
	s.logger = testutil.NewMockLogger()
	s.client = NewMinIOClientWithAPI(s.api, testMinIOConfig(), s.logger)
}

func (s *ClientTestSuite) TestRegionDefaulted() {
	s.Equal(config.DefaultMinIORegion, s.client.config.Region)
	s.Equal("ivr-artifacts", s.client.Bucket())
}

func (s *ClientTestSuite) TestEnsureBucket_Exists() {
	s.api.On("BucketExists", mock.Anything, "ivr-artifacts").Return(true, nil)

	s.NoError(s.client.EnsureBucket(context.Background()))
	s.api.AssertNotCalled(s.T(), "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
}

func (s *ClientTestSuite) TestEnsureBucket_Creates() {
	s.api.On("BucketExists", mock.Anything, "ivr-artifacts").Return(false, nil)
	s.api.On("MakeBucket", mock.Anything, "ivr-artifacts", minio.MakeBucketOptions{Region: "us-east-1"}).Return(nil)

	s.NoError(s.client.EnsureBucket(context.Background()))
	s.True(s.logger.HasMessage("info", "Created bucket"))
	s.api.AssertExpectations(s.T())
}

func (s *ClientTestSuite) TestEnsureBucket_CheckFails() {
	s.api.On("BucketExists", mock.Anything, "ivr-artifacts").Return(false, errors.New("connection refused"))

	err := s.client.EnsureBucket(context.Background())
	s.True(apperrors.IsCode(err, apperrors.ErrCodeStorageFailed))
}

func (s *ClientTestSuite) TestEnsureBucket_CreateFails() {
	s.api.On("BucketExists", mock.Anything, "ivr-artifacts").Return(false, nil)
	s.api.On("MakeBucket", mock.Anything, "ivr-artifacts", mock.Anything).Return(errors.New("access denied"))

	err := s.client.EnsureBucket(context.Background())
	s.True(apperrors.IsCode(err, apperrors.ErrCodeStorageFailed))
}

func TestClientTestSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}
