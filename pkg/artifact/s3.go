package artifact

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/OFFIS-RIT/paperkg/internal/storage"
	"github.com/OFFIS-RIT/paperkg/internal/util"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	s3Retries = 3
	s3Backoff = 500 * time.Millisecond
)

// S3Store keeps artifacts in a bucket, optionally below a key prefix.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

type S3StoreParams struct {
	Client *s3.Client
	Bucket string
	Prefix string
}

func NewS3Store(params S3StoreParams) *S3Store {
	return &S3Store{
		client: params.Client,
		bucket: params.Bucket,
		prefix: strings.Trim(params.Prefix, "/"),
	}
}

func (s *S3Store) key(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

func (s *S3Store) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := util.RetryWithContext(ctx, s3Retries, s3Backoff, func(ctx context.Context) ([]byte, error) {
		data, err := storage.GetFile(ctx, s.client, s.bucket, s.key(key))
		if errors.Is(err, storage.ErrNoSuchKey) {
			return nil, nil
		}
		return data, err
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return data, nil
}

func (s *S3Store) Write(ctx context.Context, key string, data []byte) error {
	return util.RetryErrWithContext(ctx, s3Retries, s3Backoff, func(ctx context.Context) error {
		return storage.PutFile(ctx, s.client, s.bucket, s.key(key), data)
	})
}

func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	return util.RetryWithContext(ctx, s3Retries, s3Backoff, func(ctx context.Context) (bool, error) {
		return storage.FileExists(ctx, s.client, s.bucket, s.key(key))
	})
}

func (s *S3Store) List(ctx context.Context, prefix string) ([]string, error) {
	keys, err := util.RetryWithContext(ctx, s3Retries, s3Backoff, func(ctx context.Context) ([]string, error) {
		return storage.ListFilesWithPrefix(ctx, s.client, s.bucket, s.key(prefix))
	})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if s.prefix != "" {
			k = strings.TrimPrefix(k, s.prefix+"/")
		}
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

func (s *S3Store) Delete(ctx context.Context, prefix string) error {
	return util.RetryErrWithContext(ctx, s3Retries, s3Backoff, func(ctx context.Context) error {
		return storage.DeleteFolder(ctx, s.client, s.bucket, s.key(prefix))
	})
}
