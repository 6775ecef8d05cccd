package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"

	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/minio/minio-go/v7"
	"github.com/musicclub/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), config.StorageConfig{Backend: "ftp"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ftp")
}

func TestOpenRejectsIncompleteConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.StorageConfig
	}{
		{"minio without endpoint", config.StorageConfig{Backend: config.StorageBackendMinio}},
		{"minio without keys", config.StorageConfig{Backend: config.StorageBackendMinio, Minio: config.MinioConfig{Endpoint: "localhost:9000", Bucket: "b"}}},
		{"gcs without bucket", config.StorageConfig{Backend: config.StorageBackendGCS}},
		{"s3 without bucket", config.StorageConfig{Backend: config.StorageBackendS3, S3: config.S3Config{Region: "us-east-1"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(context.Background(), tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestIsS3NotFound(t *testing.T) {
	assert.True(t, isS3NotFound(fmt.Errorf("get: %w", &s3types.NoSuchKey{})))
	assert.True(t, isS3NotFound(&s3types.NotFound{}))
	assert.False(t, isS3NotFound(errors.New("boom")))
}

func TestMinioErrorMapsMissingKey(t *testing.T) {
	err := minioError(minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404})
	assert.ErrorIs(t, err, ErrObjectNotFound)

	other := minio.ErrorResponse{Code: "AccessDenied", StatusCode: 403}
	assert.NotErrorIs(t, minioError(other), ErrObjectNotFound)
}
