package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStore keeps artifacts in a Google Cloud Storage bucket under a prefix.
// Locations are public object URLs.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSStore opens a storage client. credentialsFile may be empty to use
// application default credentials.
func NewGCSStore(ctx context.Context, bucket, prefix, credentialsFile string) (*GCSStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) objectName(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func (s *GCSStore) urlPrefix() string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/", s.bucket)
}

func (s *GCSStore) Put(ctx context.Context, name string, content []byte) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	obj := s.objectName(name)
	w := s.client.Bucket(s.bucket).Object(obj).NewWriter(ctx)
	w.ContentType = "application/pdf"
	if _, err := w.Write(content); err != nil {
		w.Close()
		return "", fmt.Errorf("upload %s: %w", obj, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload %s: %w", obj, err)
	}
	return s.urlPrefix() + obj, nil
}

func (s *GCSStore) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	obj := strings.TrimPrefix(location, s.urlPrefix())
	if obj == location {
		return nil, ErrBlobNotFound
	}
	r, err := s.client.Bucket(s.bucket).Object(obj).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", obj, err)
	}
	return r, nil
}

func (s *GCSStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	query := &storage.Query{}
	if s.prefix != "" {
		query.Prefix = s.prefix + "/"
	}
	it := s.client.Bucket(s.bucket).Objects(ctx, query)

	removed := 0
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return removed, fmt.Errorf("list objects: %w", err)
		}
		if attrs.Updated.Before(cutoff) {
			err := s.client.Bucket(s.bucket).Object(attrs.Name).Delete(ctx)
			if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
				return removed, fmt.Errorf("delete %s: %w", attrs.Name, err)
			}
			removed++
		}
	}
	return removed, nil
}
