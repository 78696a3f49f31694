// Package assets stores uploaded images in S3-compatible object storage and
// hands back the public URL the image dialog inserts.
package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"netlabs/api/internal/store"
	"netlabs/api/internal/util"
)

var (
	ErrDisabled        = errors.New("image uploads are not configured")
	ErrEmptyUpload     = errors.New("uploaded file is empty")
	ErrTooLarge        = errors.New("uploaded file is too large")
	ErrUnsupportedType = errors.New("only PNG, JPEG, GIF and WebP images are accepted")
)

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ObjectStore is the subset of *minio.Client used here.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	SetBucketPolicy(ctx context.Context, bucketName, policy string) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Recorder persists asset metadata.
type Recorder interface {
	InsertAsset(ctx context.Context, asset store.Asset) (store.Asset, error)
}

type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the base under which objects are served. Defaults to the
	// endpoint itself.
	PublicURL string
	MaxBytes  int64
}

type Service struct {
	objects  ObjectStore
	records  Recorder
	bucket   string
	baseURL  string
	maxBytes int64
	now      func() time.Time
}

// NewMinio connects to the configured endpoint. It returns ErrDisabled when
// no endpoint is set.
func NewMinio(opts Options, records Recorder) (*Service, error) {
	if strings.TrimSpace(opts.Endpoint) == "" {
		return nil, ErrDisabled
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	if opts.PublicURL == "" {
		scheme := "http"
		if opts.UseSSL {
			scheme = "https"
		}
		opts.PublicURL = scheme + "://" + opts.Endpoint
	}
	return New(client, records, opts), nil
}

func New(objects ObjectStore, records Recorder, opts Options) *Service {
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &Service{
		objects:  objects,
		records:  records,
		bucket:   opts.Bucket,
		baseURL:  strings.TrimRight(opts.PublicURL, "/"),
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

// MaxBytes is the upload size limit.
func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

// EnsureBucket creates the bucket with anonymous read access when missing.
func (s *Service) EnsureBucket(ctx context.Context) error {
	exists, err := s.objects.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.objects.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	if err := s.objects.SetBucketPolicy(ctx, s.bucket, readOnlyPolicy(s.bucket)); err != nil {
		return fmt.Errorf("set bucket policy: %w", err)
	}
	return nil
}

// UploadImage validates and stores an image. The content type is sniffed
// from the data, not taken from the client.
func (s *Service) UploadImage(ctx context.Context, r io.Reader, uploadedBy string) (store.Asset, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return store.Asset{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return store.Asset{}, ErrEmptyUpload
	}
	if int64(len(data)) > s.maxBytes {
		return store.Asset{}, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, s.maxBytes)
	}

	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return store.Asset{}, fmt.Errorf("%w: got %s", ErrUnsupportedType, contentType)
	}

	id := util.NewID(util.PrefixAsset)
	key := fmt.Sprintf("images/%s/%s%s", s.now().UTC().Format("2006/01"), id, ext)
	if _, err := s.objects.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=31536000, immutable",
	}); err != nil {
		return store.Asset{}, fmt.Errorf("put object %s: %w", key, err)
	}

	asset := store.Asset{
		ID:          id,
		ObjectKey:   key,
		URL:         s.objectURL(key),
		ContentType: contentType,
		Size:        int64(len(data)),
		UploadedBy:  uploadedBy,
	}
	if s.records == nil {
		asset.CreatedAt = s.now()
		return asset, nil
	}
	return s.records.InsertAsset(ctx, asset)
}

func (s *Service) objectURL(key string) string {
	return s.baseURL + "/" + url.PathEscape(s.bucket) + "/" + key
}

func readOnlyPolicy(bucket string) string {
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, bucket)
}
