package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3Relay stores each record as its own JSON object so appends never
// contend on a shared document.
type S3Relay struct {
	client     *minio.Client
	bucketName string
	region     string
	initOnce   sync.Once
	initErr    error
}

func NewS3Relay(cfg S3Config) (*S3Relay, error) {
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
	return &S3Relay{client: client, bucketName: bucket, region: region}, nil
}

func (r *S3Relay) ensureBucket(ctx context.Context) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("relay is nil")
	}
	r.initOnce.Do(func() {
		exists, err := r.client.BucketExists(ctx, r.bucketName)
		if err != nil {
			r.initErr = err
			return
		}
		if exists {
			return
		}
		r.initErr = r.client.MakeBucket(ctx, r.bucketName, minio.MakeBucketOptions{Region: r.region})
	})
	return r.initErr
}

func (r *S3Relay) Append(ctx context.Context, path string, rec Record) error {
	if r == nil {
		return fmt.Errorf("relay is nil")
	}
	if normalizePath(path) == "" {
		return fmt.Errorf("path is required")
	}
	if err := r.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode feedback: %w", err)
	}
	_, err = r.client.PutObject(ctx, r.bucketName, objectKey(path, rec), bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	return err
}

func (r *S3Relay) List(ctx context.Context, path string) ([]Record, error) {
	if r == nil {
		return nil, fmt.Errorf("relay is nil")
	}
	if err := r.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}
	prefix := normalizePath(path) + "/"
	var keys []string
	for obj := range r.client.ListObjects(ctx, r.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if obj.Key != "" {
			keys = append(keys, obj.Key)
		}
	}
	sort.Strings(keys)

	out := make([]Record, 0, len(keys))
	for _, key := range keys {
		obj, err := r.client.GetObject(ctx, r.bucketName, key, minio.GetObjectOptions{})
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(obj)
		obj.Close()
		if err != nil {
			return nil, err
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// objectKey sorts chronologically; the uuid suffix keeps concurrent
// records with the same timestamp apart.
func objectKey(path string, rec Record) string {
	return normalizePath(path) + "/" + rec.CreatedAt.UTC().Format("20060102T150405.000000000Z") + "-" + uuid.NewString() + ".json"
}
