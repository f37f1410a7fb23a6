package fetch

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3MirrorConfig configures an S3-compatible artifact mirror.
type S3MirrorConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// S3Mirror uploads fetched artifacts to an S3-compatible bucket, keyed by
// their cache-relative path.
type S3Mirror struct {
	client   *minio.Client
	bucket   string
	region   string
	prefix   string
	initOnce sync.Once
	initErr  error
}

// NewS3Mirror validates cfg and creates the client. No request is made until
// the first Store.
func NewS3Mirror(cfg S3MirrorConfig) (*S3Mirror, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("mirror endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("mirror access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("mirror bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init mirror client: %w", err)
	}
	return &S3Mirror{
		client: client,
		bucket: bucket,
		region: region,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

func (m *S3Mirror) ensureBucket(ctx context.Context) error {
	m.initOnce.Do(func() {
		exists, err := m.client.BucketExists(ctx, m.bucket)
		if err != nil {
			m.initErr = err
			return
		}
		if exists {
			return
		}
		m.initErr = m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: m.region})
	})
	return m.initErr
}

// ObjectKey is the bucket key used for rec.
func (m *S3Mirror) ObjectKey(rec Record) string {
	return objectKey(m.prefix, rec.Path)
}

func objectKey(prefix, rel string) string {
	if prefix == "" {
		return rel
	}
	return path.Join(prefix, rel)
}

// Store uploads data under the record's cache path.
func (m *S3Mirror) Store(ctx context.Context, rec Record, data []byte) error {
	if rec.Path == "" {
		return fmt.Errorf("record %s has no cache path", rec.CacheKey)
	}
	if err := m.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	_, err := m.client.PutObject(ctx, m.bucket, m.ObjectKey(rec), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType(rec.Kind),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", rec.Path, err)
	}
	return nil
}

func contentType(kind Kind) string {
	switch kind {
	case KindManifest:
		return "application/xml"
	case KindPackage:
		return "application/java-archive"
	case KindTarball:
		return "application/gzip"
	}
	return "application/octet-stream"
}
