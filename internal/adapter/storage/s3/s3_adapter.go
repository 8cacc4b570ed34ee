package s3

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/Abdurahmanit/GroupProject/location-service/internal/config"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/logger"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// S3Storage keeps location images in one MinIO/S3 bucket. Public URLs have
// the form <endpoint>/<bucket>/<key>.
type S3Storage struct {
	client  *minio.Client
	bucket  string
	baseURL string
	logger  *logger.Logger
}

func NewS3Storage(cfg config.MinIOConfig, log *logger.Logger) (*S3Storage, error) {
	log = log.Named("S3Storage")
	log.Info("Initializing S3 MinIO Storage",
		zap.String("endpoint", cfg.Endpoint), zap.String("bucket", cfg.Bucket), zap.Bool("use_ssl", cfg.UseSSL))

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for endpoint %s: %w", cfg.Endpoint, err)
	}

	ctx := context.Background()
	if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
		exists, errExists := client.BucketExists(ctx, cfg.Bucket)
		if errExists != nil || !exists {
			return nil, fmt.Errorf("failed to make/verify bucket %s: (make: %v / exists_check: %v)", cfg.Bucket, err, errExists)
		}
		log.Info("Bucket already exists", zap.String("bucket", cfg.Bucket))
	} else {
		log.Info("Bucket created", zap.String("bucket", cfg.Bucket))
	}

	return &S3Storage{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: fmt.Sprintf("%s/%s/", client.EndpointURL().String(), cfg.Bucket),
		logger:  log,
	}, nil
}

// Upload stores data under folder with a fresh name that keeps the extension.
func (s *S3Storage) Upload(ctx context.Context, folder, fileName string, data []byte) (string, error) {
	key := objectKey(folder, fileName)

	info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  http.DetectContentType(data),
		UserMetadata: map[string]string{"original-filename": fileName},
	})
	if err != nil {
		s.logger.Error("PutObject failed", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("failed to upload object %s to bucket %s: %w", key, s.bucket, err)
	}

	s.logger.Debug("Object uploaded", zap.String("key", info.Key), zap.Int64("size", info.Size))
	return s.baseURL + key, nil
}

func (s *S3Storage) Delete(ctx context.Context, url string) error {
	key, ok := s.keyFromURL(url)
	if !ok {
		return fmt.Errorf("url %q is not in bucket %s", url, s.bucket)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object %s: %w", key, err)
	}
	s.logger.Debug("Object removed", zap.String("key", key))
	return nil
}

func (s *S3Storage) Owns(url string) bool {
	_, ok := s.keyFromURL(url)
	return ok
}

func (s *S3Storage) keyFromURL(url string) (string, bool) {
	if s.baseURL == "" || !strings.HasPrefix(url, s.baseURL) {
		return "", false
	}
	key := strings.TrimPrefix(url, s.baseURL)
	return key, key != ""
}

func objectKey(folder, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	return path.Join(strings.Trim(folder, "/"), uuid.NewString()+ext)
}
