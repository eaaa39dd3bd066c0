package pack

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Publisher uploads built package files.
type Publisher interface {
	Publish(ctx context.Context, files []string) error
}

// S3Config selects an S3-compatible bucket.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string // key prefix inside the bucket
	UseSSL    bool
}

// S3ConfigFromEnv reads GIG_S3_* variables. ok is false when no endpoint is set.
func S3ConfigFromEnv() (cfg S3Config, ok bool) {
	cfg = S3Config{
		Endpoint:  os.Getenv("GIG_S3_ENDPOINT"),
		Region:    os.Getenv("GIG_S3_REGION"),
		AccessKey: os.Getenv("GIG_S3_ACCESS_KEY"),
		SecretKey: os.Getenv("GIG_S3_SECRET_KEY"),
		Bucket:    os.Getenv("GIG_S3_BUCKET"),
		Prefix:    os.Getenv("GIG_S3_PREFIX"),
		UseSSL:    true,
	}
	if v := os.Getenv("GIG_S3_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.UseSSL = b
		}
	}
	return cfg, strings.TrimSpace(cfg.Endpoint) != ""
}

// S3Publisher puts package files into a bucket, creating it when missing.
type S3Publisher struct {
	client *minio.Client
	bucket string
	region string
	prefix string
}

func NewS3Publisher(cfg S3Config) (*S3Publisher, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
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
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Publisher{client: client, bucket: bucket, region: region, prefix: strings.Trim(cfg.Prefix, "/")}, nil
}

// Key is the object key of a local file.
func (p *S3Publisher) Key(file string) string {
	if p.prefix == "" {
		return filepath.Base(file)
	}
	return path.Join(p.prefix, filepath.Base(file))
}

func (p *S3Publisher) Publish(ctx context.Context, files []string) error {
	exists, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return fmt.Errorf("publish: bucket %s: %w", p.bucket, err)
	}
	if !exists {
		if err := p.client.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{Region: p.region}); err != nil {
			return fmt.Errorf("publish: make bucket %s: %w", p.bucket, err)
		}
	}
	for _, f := range files {
		contentType := "application/octet-stream"
		if strings.HasSuffix(f, ".json") {
			contentType = "application/json"
		}
		if _, err := p.client.FPutObject(ctx, p.bucket, p.Key(f), f, minio.PutObjectOptions{ContentType: contentType}); err != nil {
			return fmt.Errorf("publish %s: %w", f, err)
		}
	}
	return nil
}
