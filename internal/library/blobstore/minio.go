package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	errors "github.com/Laisky/errors/v2"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig configures an S3 compatible backend.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Secure    bool
}

// objectAPI is the subset of *minio.Client used by MinioStore.
type objectAPI interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// MinioStore keeps blobs as objects named "{room}/{folder}/{key}".
type MinioStore struct {
	cli    objectAPI
	bucket string
}

// NewMinioStore connects to the endpoint and creates the bucket when missing.
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("minio endpoint and bucket are required")
	}
	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, errors.Wrap(err, "new minio client")
	}

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, "check bucket")
	}
	if !exists {
		if err = cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrapf(err, "make bucket %s", cfg.Bucket)
		}
	}

	return &MinioStore{cli: cli, bucket: cfg.Bucket}, nil
}

// Put uploads the object and hashes the streamed bytes.
func (s *MinioStore) Put(ctx context.Context, loc Location, r io.Reader, size int64) (Written, error) {
	key, err := objectKey(loc)
	if err != nil {
		return Written{}, err
	}

	hasher := sha256.New()
	info, err := s.cli.PutObject(ctx, s.bucket, key, io.TeeReader(r, hasher), size,
		minio.PutObjectOptions{ContentType: "application/pdf"})
	if err != nil {
		return Written{}, errors.Wrap(err, "put object")
	}

	return Written{Size: info.Size, SHA256: hex.EncodeToString(hasher.Sum(nil))}, nil
}

// Open stats the object first so a missing key maps to ErrNotFound.
func (s *MinioStore) Open(ctx context.Context, loc Location) (io.ReadCloser, int64, error) {
	key, err := objectKey(loc)
	if err != nil {
		return nil, 0, err
	}

	stat, err := s.cli.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isMinioNotFound(err) {
			return nil, 0, errors.WithStack(ErrNotFound)
		}
		return nil, 0, errors.Wrap(err, "stat object")
	}

	obj, err := s.cli.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, errors.Wrap(err, "get object")
	}
	return obj, stat.Size, nil
}

// Delete removes one object.
func (s *MinioStore) Delete(ctx context.Context, loc Location) error {
	key, err := objectKey(loc)
	if err != nil {
		return err
	}
	if err = s.cli.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil && !isMinioNotFound(err) {
		return errors.Wrap(err, "remove object")
	}
	return nil
}

// EnsureDir is a no-op since object stores have no directories.
func (s *MinioStore) EnsureDir(context.Context, int64, int64) error { return nil }

// RemoveDir removes every object under the folder prefix.
func (s *MinioStore) RemoveDir(ctx context.Context, roomID, folderID int64) error {
	return s.removePrefix(ctx, folderPrefix(roomID, folderID)+"/")
}

// RemoveRoom removes every object under the dataroom prefix.
func (s *MinioStore) RemoveRoom(ctx context.Context, roomID int64) error {
	return s.removePrefix(ctx, roomPrefix(roomID)+"/")
}

// removePrefix deletes objects under prefix. Returning early cancels the
// listing goroutine.
func (s *MinioStore) removePrefix(ctx context.Context, prefix string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for obj := range s.cli.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return errors.Wrap(obj.Err, "list objects")
		}
		if err := s.cli.RemoveObject(ctx, s.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil && !isMinioNotFound(err) {
			return errors.Wrapf(err, "remove object %s", obj.Key)
		}
	}
	return nil
}

func isMinioNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}
