package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/oklog/ulid/v2"

	"github.com/tiback/tiback-client/internal/core/domain"
)

// MaxImageSize bounds how much of an image is buffered before upload.
const MaxImageSize = 10 << 20

// Config holds the MinIO connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	// PublicURL replaces the endpoint in returned URLs, e.g. a CDN in front
	// of the bucket.
	PublicURL string
}

// MinIOUploader stores ticket images in an S3-compatible bucket.
// It implements the ports.ImageUploader interface.
type MinIOUploader struct {
	client *minio.Client
	cfg    Config
	logger *slog.Logger
}

// NewMinIOUploader creates the client. It does not contact the server; call
// EnsureBucket before the first upload.
func NewMinIOUploader(cfg Config, logger *slog.Logger) (*MinIOUploader, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("minio: endpoint and bucket are required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOUploader{
		client: client,
		cfg:    cfg,
		logger: logger.With("component", "minio_uploader", "bucket", cfg.Bucket),
	}, nil
}

// EnsureBucket creates the bucket if it does not exist yet.
func (u *MinIOUploader) EnsureBucket(ctx context.Context) error {
	exists, err := u.client.BucketExists(ctx, u.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err := u.client.MakeBucket(ctx, u.cfg.Bucket, minio.MakeBucketOptions{Region: u.cfg.Region}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	u.logger.Info("bucket created")
	return nil
}

// UploadImage stores image under a fresh object name and returns its URL.
// The bearer token is not needed; the bucket has its own credentials.
func (u *MinIOUploader) UploadImage(ctx context.Context, _ string, filename string, image io.Reader) (*domain.UploadedImage, error) {
	data, err := io.ReadAll(io.LimitReader(image, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("minio: image is empty")
	}
	if len(data) > MaxImageSize {
		return nil, fmt.Errorf("minio: image exceeds %d bytes", MaxImageSize)
	}

	objectName := ObjectName(filename)
	info, err := u.client.PutObject(ctx, u.cfg.Bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType(filename),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	u.logger.Debug("image uploaded", "object", objectName, "size", info.Size)
	return &domain.UploadedImage{
		URL:      u.objectURL(objectName),
		PublicID: objectName,
	}, nil
}

func (u *MinIOUploader) objectURL(objectName string) string {
	if u.cfg.PublicURL != "" {
		return strings.TrimRight(u.cfg.PublicURL, "/") + "/" + objectName
	}
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(u.client.EndpointURL().String(), "/"), u.cfg.Bucket, objectName)
}

// ObjectName returns a unique key that keeps the file extension.
func ObjectName(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return "uploads/" + strings.ToLower(ulid.Make().String()) + ext
}

func contentType(filename string) string {
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(filename))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
