package minio

import (
	"context"
	"io"
	"testing"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/forgeff/internal/application/fitjob"
	"github.com/turtacn/forgeff/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/forgeff/pkg/errors"
)

var _ fitjob.DocumentStore = (*DocumentStore)(nil)

type fakeAPI struct {
	buckets map[string]bool
	objects map[string][]byte
	types   map[string]string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		buckets: make(map[string]bool),
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (f *fakeAPI) BucketExists(_ context.Context, bucket string) (bool, error) {
	return f.buckets[bucket], nil
}

func (f *fakeAPI) MakeBucket(_ context.Context, bucket string, _ miniogo.MakeBucketOptions) error {
	f.buckets[bucket] = true
	return nil
}

func (f *fakeAPI) PutObject(_ context.Context, bucket, object string, reader io.Reader, size int64, opts miniogo.PutObjectOptions) (miniogo.UploadInfo, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return miniogo.UploadInfo{}, err
	}
	f.objects[bucket+"/"+object] = data
	f.types[bucket+"/"+object] = opts.ContentType
	return miniogo.UploadInfo{Bucket: bucket, Key: object, Size: size}, nil
}

func (f *fakeAPI) GetObject(_ context.Context, _, _ string, _ miniogo.GetObjectOptions) (*miniogo.Object, error) {
	return nil, nil
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.applyDefaults()
	assert.Equal(t, "localhost:9000", cfg.Endpoint)
	assert.Equal(t, "forgeff-datasets", cfg.Bucket)
}

func TestEnsureBucketCreatesOnce(t *testing.T) {
	api := newFakeAPI()
	store := &DocumentStore{api: api, bucket: "forgeff-datasets", log: logging.NewNopLogger()}

	require.NoError(t, store.ensureBucket(context.Background()))
	assert.True(t, api.buckets["forgeff-datasets"])

	// second call sees the bucket and does nothing
	require.NoError(t, store.ensureBucket(context.Background()))
}

func TestPutStoresContentType(t *testing.T) {
	api := newFakeAPI()
	store := &DocumentStore{api: api, bucket: "forgeff-datasets", log: logging.NewNopLogger()}

	doc := []byte("<SMIRNOFF/>")
	require.NoError(t, store.Put(context.Background(), "results/run-1.offxml", doc, "application/xml"))

	assert.Equal(t, doc, api.objects["forgeff-datasets/results/run-1.offxml"])
	assert.Equal(t, "application/xml", api.types["forgeff-datasets/results/run-1.offxml"])
}

func TestKeyValidation(t *testing.T) {
	store := &DocumentStore{api: newFakeAPI(), bucket: "b", log: logging.NewNopLogger()}

	for _, key := range []string{"", "/abs", "a/../b"} {
		err := store.Put(context.Background(), key, nil, "")
		require.Error(t, err, key)
		assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
	}
}
