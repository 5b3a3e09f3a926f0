package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMinio struct {
	buckets map[string]bool
	objects map[string]string
	types   map[string]string
}

func newFakeMinio() *fakeMinio {
	return &fakeMinio{buckets: map[string]bool{}, objects: map[string]string{}, types: map[string]string{}}
}

func (f *fakeMinio) BucketExists(_ context.Context, bucket string) (bool, error) {
	return f.buckets[bucket], nil
}

func (f *fakeMinio) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.buckets[bucket] = true
	return nil
}

func (f *fakeMinio) PutObject(_ context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.objects[bucket+"/"+key] = string(body)
	f.types[bucket+"/"+key] = opts.ContentType
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: size}, nil
}

func (f *fakeMinio) GetObject(context.Context, string, string, minio.GetObjectOptions) (*minio.Object, error) {
	return &minio.Object{}, nil
}

func (f *fakeMinio) StatObject(_ context.Context, bucket, key string, _ minio.StatObjectOptions) (minio.ObjectInfo, error) {
	if _, ok := f.objects[bucket+"/"+key]; !ok {
		return minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}
	}
	return minio.ObjectInfo{Key: key}, nil
}

func (f *fakeMinio) RemoveObject(_ context.Context, bucket, key string, _ minio.RemoveObjectOptions) error {
	delete(f.objects, bucket+"/"+key)
	return nil
}

func TestMinioStore_CreatesBucket(t *testing.T) {
	fake := newFakeMinio()
	_, err := newMinioStore(context.Background(), fake, MinioConfig{Bucket: "evidence"}, nil)
	require.NoError(t, err)
	assert.True(t, fake.buckets["evidence"])
}

func TestMinioStore_PutRemove(t *testing.T) {
	fake := newFakeMinio()
	fake.buckets["evidence"] = true
	s, err := newMinioStore(context.Background(), fake, MinioConfig{Bucket: "evidence"}, nil)
	require.NoError(t, err)
	ctx := context.Background()

	key := ObjectKey("e1", "f1", "bill.pdf")
	require.NoError(t, s.Put(ctx, key, strings.NewReader("pdf"), 3, "application/pdf"))
	assert.Equal(t, "pdf", fake.objects["evidence/"+key])
	assert.Equal(t, "application/pdf", fake.types["evidence/"+key])

	require.NoError(t, s.Remove(ctx, key))
	assert.Empty(t, fake.objects)

	_, err = s.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}
