// Package minio provides the object store adapter for force-field documents
// and fit artifacts.
package minio

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/turtacn/forgeff/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/forgeff/pkg/errors"
)

// minioAPI is the slice of the minio client the store needs, kept small so
// tests can fake it.
type minioAPI interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucket, object string, opts minio.GetObjectOptions) (*minio.Object, error)
}

// Config holds the object store settings.
type Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Bucket          string `mapstructure:"bucket"`
}

func (c *Config) applyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:9000"
	}
	if c.Bucket == "" {
		c.Bucket = "forgeff-datasets"
	}
}

// DocumentStore keeps force-field XML documents and run artifacts in one
// bucket. It implements fitjob.DocumentStore.
type DocumentStore struct {
	api    minioAPI
	bucket string
	log    logging.Logger
}

// NewDocumentStore connects the store and creates its bucket when absent.
func NewDocumentStore(ctx context.Context, cfg Config, log logging.Logger) (*DocumentStore, error) {
	cfg.applyDefaults()
	if log == nil {
		log = logging.NewNopLogger()
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeObjectStoreError, "create minio client")
	}

	s := &DocumentStore{api: client, bucket: cfg.Bucket, log: log.Named("document_store")}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	log.Info("object store ready",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket))
	return s, nil
}

func (s *DocumentStore) ensureBucket(ctx context.Context) error {
	exists, err := s.api.BucketExists(ctx, s.bucket)
	if err != nil {
		return errors.Wrap(err, errors.CodeObjectStoreError, "check bucket")
	}
	if exists {
		return nil
	}
	if err := s.api.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return errors.Wrap(err, errors.CodeObjectStoreError, "create bucket "+s.bucket)
	}
	return nil
}

func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return errors.Newf(errors.CodeInvalidParam, "invalid object key %q", key)
	}
	return nil
}

func (s *DocumentStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := validKey(key); err != nil {
		return err
	}
	_, err := s.api.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		s.log.Error("put object", logging.String("key", key), logging.Err(err))
		return errors.Wrap(err, errors.CodeObjectStoreError, "put object "+key)
	}
	return nil
}

func (s *DocumentStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	obj, err := s.api.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeObjectStoreError, "get object "+key)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeObjectStoreError, "read object "+key)
	}
	return data, nil
}
