package minio

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/keggminer/pkg/errors"
)

type RepositoryTestSuite struct {
	suite.Suite
	api    *MockObjectAPI
	client *Client
}

func (s *RepositoryTestSuite) SetupTest() {
	s.api = new(MockObjectAPI)
	s.client = NewClientWithAPI(s.api, &Config{Bucket: "runs", Prefix: "keggminer"}, nil)
}

func (s *RepositoryTestSuite) TestUpload_Success() {
	s.api.On("PutObject", mock.Anything, "runs", "keggminer/r/a.csv", mock.Anything, int64(9),
		mock.MatchedBy(func(o minio.PutObjectOptions) bool {
			return o.ContentType == "text/csv" && o.UserMetadata["run-id"] == "r"
		})).
		Return(minio.UploadInfo{Bucket: "runs", Key: "keggminer/r/a.csv", ETag: "etag", Size: 9}, nil)

	res, err := s.client.Upload(context.Background(), "keggminer/r/a.csv", strings.NewReader("test data"), 9, "text/csv", map[string]string{"run-id": "r"})
	s.Require().NoError(err)
	s.Equal("runs", res.Bucket)
	s.Equal("etag", res.ETag)
	s.Equal(int64(9), res.Size)
	s.False(res.UploadedAt.IsZero())
}

func (s *RepositoryTestSuite) TestUpload_InvalidRequest() {
	_, err := s.client.Upload(context.Background(), "", strings.NewReader("x"), 1, "", nil)
	s.ErrorIs(err, ErrInvalidRequest)
}

func (s *RepositoryTestSuite) TestUpload_StreamingUsesPartSize() {
	s.api.On("PutObject", mock.Anything, "runs", "k", mock.Anything, int64(-1),
		mock.MatchedBy(func(o minio.PutObjectOptions) bool { return o.PartSize == defaultPartSize })).
		Return(minio.UploadInfo{Key: "k"}, nil)

	_, err := s.client.Upload(context.Background(), "k", strings.NewReader("stream"), -1, "", nil)
	s.NoError(err)
	s.api.AssertExpectations(s.T())
}

func (s *RepositoryTestSuite) TestUpload_Failure() {
	s.api.On("PutObject", mock.Anything, "runs", "k", mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, assert.AnError)

	_, err := s.client.Upload(context.Background(), "k", strings.NewReader("x"), 1, "text/plain", nil)
	s.True(errors.IsCode(err, errors.ErrCodeStorageError))
	s.ErrorIs(err, assert.AnError)
}

func (s *RepositoryTestSuite) TestUploadFile() {
	dir := s.T().TempDir()
	csvPath := filepath.Join(dir, "failed_kegg_ids.csv")
	s.Require().NoError(os.WriteFile(csvPath, []byte("KEGG_ID\nC00001\n"), 0o644))

	s.api.On("PutObject", mock.Anything, "runs", "keggminer/r/failed_kegg_ids.csv", mock.Anything, int64(15),
		mock.MatchedBy(func(o minio.PutObjectOptions) bool { return o.ContentType == "text/csv" })).
		Return(minio.UploadInfo{Key: "keggminer/r/failed_kegg_ids.csv", Size: 15}, nil)

	res, err := s.client.UploadFile(context.Background(), s.client.ObjectKey("r", "failed_kegg_ids.csv"), csvPath, nil)
	s.Require().NoError(err)
	s.Equal(int64(15), res.Size)

	_, err = s.client.UploadFile(context.Background(), "k", filepath.Join(dir, "absent.png"), nil)
	s.True(errors.IsCode(err, errors.ErrCodeStorageError))
}

func (s *RepositoryTestSuite) TestExists() {
	s.api.On("StatObject", mock.Anything, "runs", "present", mock.Anything).
		Return(minio.ObjectInfo{Key: "present"}, nil)
	s.api.On("StatObject", mock.Anything, "runs", "absent", mock.Anything).
		Return(minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey"})
	s.api.On("StatObject", mock.Anything, "runs", "broken", mock.Anything).
		Return(minio.ObjectInfo{}, assert.AnError)

	ok, err := s.client.Exists(context.Background(), "present")
	s.NoError(err)
	s.True(ok)

	ok, err = s.client.Exists(context.Background(), "absent")
	s.NoError(err)
	s.False(ok)

	_, err = s.client.Exists(context.Background(), "broken")
	s.Error(err)
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func TestContentTypeOf(t *testing.T) {
	assert.Equal(t, "text/csv", contentTypeOf("a.csv"))
	assert.Equal(t, "image/png", contentTypeOf("grid.png"))
	assert.Equal(t, "application/octet-stream", contentTypeOf("noext"))
}
