// Package minio stores render outputs in an S3-compatible bucket.
package minio

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	miniosdk "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"textoverlay/internal/ports"
)

// Config describes the bucket and how clients reach it.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	// PublicEndpoint is the host:port clients use; defaults to Endpoint.
	PublicEndpoint string
	// Region is fixed so presigning on PublicEndpoint needs no location lookup.
	Region string
	// PresignExpiry switches PublicURL to presigned GET URLs when positive.
	PresignExpiry time.Duration
	// CreateBucket makes the bucket on startup when missing.
	CreateBucket bool
}

const defaultRegion = "us-east-1"

type Store struct {
	client *miniosdk.Client
	// publicClient signs URLs for PublicEndpoint; it is client when the
	// endpoints match.
	publicClient *miniosdk.Client
	cfg          Config
}

// New connects to the endpoint and makes sure the bucket exists.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}
	client, err := miniosdk.New(cfg.Endpoint, &miniosdk.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}
	if cfg.PublicEndpoint == "" {
		cfg.PublicEndpoint = cfg.Endpoint
	}

	publicClient := client
	if cfg.PublicEndpoint != cfg.Endpoint {
		region := cfg.Region
		if region == "" {
			region = defaultRegion
		}
		publicClient, err = miniosdk.New(cfg.PublicEndpoint, &miniosdk.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.UseSSL,
			Region: region,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create MinIO public client: %w", err)
		}
	}

	s := &Store{client: client, publicClient: publicClient, cfg: cfg}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if !s.cfg.CreateBucket {
		return fmt.Errorf("bucket %s does not exist", s.cfg.Bucket)
	}
	if err := s.client.MakeBucket(ctx, s.cfg.Bucket, miniosdk.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

func (s *Store) Provider() string { return "minio" }

func (s *Store) PutObject(ctx context.Context, in ports.PutObjectInput) (ports.PutObjectOutput, error) {
	if in.ObjectKey == "" {
		return ports.PutObjectOutput{}, fmt.Errorf("object_key is required")
	}
	size := in.Size
	if size <= 0 {
		size = -1
	}
	info, err := s.client.PutObject(ctx, s.cfg.Bucket, in.ObjectKey, in.Reader, size,
		miniosdk.PutObjectOptions{ContentType: in.ContentType})
	if err != nil {
		return ports.PutObjectOutput{}, fmt.Errorf("failed to put object: %w", err)
	}
	return ports.PutObjectOutput{ObjectKey: info.Key, Size: info.Size}, nil
}

func (s *Store) GetObject(ctx context.Context, objectKey string) (io.ReadCloser, string, int64, error) {
	obj, err := s.client.GetObject(ctx, s.cfg.Bucket, objectKey, miniosdk.GetObjectOptions{})
	if err != nil {
		return nil, "", 0, fmt.Errorf("failed to get object: %w", err)
	}
	st, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, "", 0, fmt.Errorf("failed to stat object: %w", err)
	}
	return obj, st.ContentType, st.Size, nil
}

func (s *Store) DeleteObject(ctx context.Context, objectKey string) error {
	if err := s.client.RemoveObject(ctx, s.cfg.Bucket, objectKey, miniosdk.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// PublicURL is a path-style URL on the public endpoint, or a presigned GET
// URL when PresignExpiry is set.
func (s *Store) PublicURL(ctx context.Context, objectKey string) (string, error) {
	if objectKey == "" {
		return "", fmt.Errorf("object_key is required")
	}
	if s.cfg.PresignExpiry > 0 {
		u, err := s.publicClient.PresignedGetObject(ctx, s.cfg.Bucket, objectKey, s.cfg.PresignExpiry, nil)
		if err != nil {
			return "", fmt.Errorf("failed to generate presigned URL: %w", err)
		}
		return u.String(), nil
	}
	return ObjectURL(s.cfg.UseSSL, s.cfg.PublicEndpoint, s.cfg.Bucket, objectKey), nil
}

func (s *Store) Check(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %s does not exist", s.cfg.Bucket)
	}
	return nil
}

// ObjectURL builds <scheme>://<host>/<bucket>/<key>.
func ObjectURL(secure bool, host, bucket, key string) string {
	scheme := "http"
	if secure {
		scheme = "https"
	}
	u := url.URL{Scheme: scheme, Host: host, Path: "/" + bucket + "/" + strings.TrimLeft(key, "/")}
	return u.String()
}
