// Package gcs stores render outputs in a Google Cloud Storage bucket through
// the JSON API.
package gcs

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"google.golang.org/api/googleapi"
	storage "google.golang.org/api/storage/v1"

	"textoverlay/internal/ports"
)

// PublicHost serves objects of publicly readable buckets.
const PublicHost = "https://storage.googleapis.com"

type Bucket struct {
	srv        *storage.Service
	bucket     string
	publicBase string
}

// New wraps srv for bucket. publicBase overrides PublicHost, for a CDN or a
// local emulator.
func New(srv *storage.Service, bucket, publicBase string) *Bucket {
	if publicBase == "" {
		publicBase = PublicHost
	}
	return &Bucket{srv: srv, bucket: bucket, publicBase: strings.TrimRight(publicBase, "/")}
}

func (b *Bucket) Provider() string { return "gcs" }

func (b *Bucket) PutObject(ctx context.Context, in ports.PutObjectInput) (ports.PutObjectOutput, error) {
	if in.ObjectKey == "" {
		return ports.PutObjectOutput{}, fmt.Errorf("object_key is required")
	}

	obj := &storage.Object{Name: in.ObjectKey, ContentType: in.ContentType}
	call := b.srv.Objects.Insert(b.bucket, obj)
	if in.ContentType != "" {
		call = call.Media(in.Reader, googleapi.ContentType(in.ContentType))
	} else {
		call = call.Media(in.Reader)
	}

	created, err := call.Context(ctx).Do()
	if err != nil {
		return ports.PutObjectOutput{}, fmt.Errorf("gcs upload failed: %w", err)
	}

	size := int64(created.Size)
	if size == 0 {
		size = in.Size
	}
	return ports.PutObjectOutput{ObjectKey: created.Name, Size: size}, nil
}

func (b *Bucket) GetObject(ctx context.Context, objectKey string) (io.ReadCloser, string, int64, error) {
	resp, err := b.srv.Objects.Get(b.bucket, objectKey).Context(ctx).Download()
	if err != nil {
		return nil, "", 0, err
	}
	return resp.Body, resp.Header.Get("Content-Type"), resp.ContentLength, nil
}

func (b *Bucket) DeleteObject(ctx context.Context, objectKey string) error {
	return b.srv.Objects.Delete(b.bucket, objectKey).Context(ctx).Do()
}

// PublicURL is <publicBase>/<bucket>/<key>. Readers need the bucket to grant
// public read; nothing here changes ACLs.
func (b *Bucket) PublicURL(ctx context.Context, objectKey string) (string, error) {
	if objectKey == "" {
		return "", fmt.Errorf("object_key is required")
	}
	return b.publicBase + "/" + b.bucket + "/" + escapeKey(objectKey), nil
}

func (b *Bucket) Check(ctx context.Context) error {
	_, err := b.srv.Buckets.Get(b.bucket).Fields("name").Context(ctx).Do()
	return err
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
