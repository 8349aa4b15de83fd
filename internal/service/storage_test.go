package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/movienest/internal/config"
)

type fakeLister struct {
	keys  []string
	err   error
	input *s3.ListObjectsV2Input
}

func (f *fakeLister) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	out := &s3.ListObjectsV2Output{}
	for _, k := range f.keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

type fakePresigner struct {
	calls   int
	input   *s3.GetObjectInput
	expires time.Duration
}

func (f *fakePresigner) PresignGetObject(_ context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.calls++
	f.input = in
	opts := s3.PresignOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	f.expires = opts.Expires
	return &v4.PresignedHTTPRequest{URL: "https://signed.example/" + aws.ToString(in.Key)}, nil
}

var testStorageConfig = config.StorageConfig{
	Bucket:    "media-storage01",
	Prefix:    "Media/Movies/",
	URLExpiry: 15 * time.Minute,
}

func TestStorageService_Exists(t *testing.T) {
	lister := &fakeLister{keys: []string{"Media/Movies/abc123.mkv"}}
	svc := newStorageService(lister, &fakePresigner{}, testStorageConfig)

	ok, err := svc.Exists(context.Background(), "abc123")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "media-storage01", aws.ToString(lister.input.Bucket))
	assert.Equal(t, "Media/Movies/abc123", aws.ToString(lister.input.Prefix))
	assert.EqualValues(t, 1, aws.ToInt32(lister.input.MaxKeys))

	svc = newStorageService(&fakeLister{}, &fakePresigner{}, testStorageConfig)
	ok, err = svc.Exists(context.Background(), "abc123")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStorageService_ExistsUpstreamError(t *testing.T) {
	svc := newStorageService(&fakeLister{err: errors.New("boom")}, &fakePresigner{}, testStorageConfig)
	_, err := svc.Exists(context.Background(), "abc123")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestStorageService_PresignMissingNeverSigns(t *testing.T) {
	presigner := &fakePresigner{}
	svc := newStorageService(&fakeLister{}, presigner, testStorageConfig)

	_, err := svc.PresignDownload(context.Background(), "abc123", "The Matrix", "1999")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, presigner.calls)
}

func TestStorageService_PresignDownload(t *testing.T) {
	presigner := &fakePresigner{}
	svc := newStorageService(&fakeLister{keys: []string{"Media/Movies/abc123/movie.mkv"}}, presigner, testStorageConfig)

	url, err := svc.PresignDownload(context.Background(), "abc123", "Matrix: Reloaded!", "2003")
	require.NoError(t, err)
	assert.Equal(t, "https://signed.example/Media/Movies/abc123/movie.mkv", url)
	assert.Equal(t, 1, presigner.calls)
	assert.Equal(t, 15*time.Minute, presigner.expires)
	assert.Equal(t, `attachment; filename="Matrix__Reloaded__2003.mkv"`, aws.ToString(presigner.input.ResponseContentDisposition))
}

func TestDownloadFilename(t *testing.T) {
	assert.Equal(t, "Die_Matrix_1999.mkv", DownloadFilename("Die Matrix", "1999", "Media/Movies/abc.mkv"))
	assert.Equal(t, "L_on_1994.mp4", DownloadFilename("Léon", "1994", "x/abc.mp4"))
	assert.Equal(t, "Alien_1979", DownloadFilename("Alien", "1979", "Media/Movies/abc"))
}
