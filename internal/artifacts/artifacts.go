// Package artifacts uploads files attached to Results (failed build logs,
// report pages) to an S3-compatible bucket so they outlive the ephemeral
// job runner.
package artifacts

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Settings holds the object-store connection parameters.
type Settings struct {
	Endpoint  string `env:"ENDPOINT"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Bucket    string `env:"BUCKET" envDefault:"ci-artifacts"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"true"`
}

// Enabled reports whether an object store is configured at all; uploads are
// skipped entirely when it is not.
func (s Settings) Enabled() bool {
	return s.Endpoint != ""
}

// Uploader pushes local files into the artifact bucket.
type Uploader struct {
	client *minio.Client
	bucket string
}

func NewUploader(cfg Settings) (*Uploader, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("object store client: %w", err)
	}
	return &Uploader{client: client, bucket: cfg.Bucket}, nil
}

// Upload stores one local file under prefix and returns its object key.
func (u *Uploader) Upload(ctx context.Context, prefix, localPath string) (string, error) {
	key := prefix + "/" + filepath.Base(localPath)
	_, err := u.client.FPutObject(ctx, u.bucket, key, localPath, minio.PutObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", localPath, err)
	}
	return key, nil
}

// UploadAll uploads every file, returning the object keys of those that
// succeeded and the first error encountered.
func (u *Uploader) UploadAll(ctx context.Context, prefix string, localPaths []string) ([]string, error) {
	var keys []string
	var firstErr error
	for _, path := range localPaths {
		key, err := u.Upload(ctx, prefix, path)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		keys = append(keys, key)
	}
	return keys, firstErr
}
