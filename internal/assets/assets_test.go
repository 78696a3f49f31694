package assets

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"

	"netlabs/api/internal/store"
)

type fakeObjects struct {
	buckets map[string]bool
	policy  string
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{buckets: map[string]bool{}, objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeObjects) BucketExists(_ context.Context, bucket string) (bool, error) {
	return f.buckets[bucket], nil
}

func (f *fakeObjects) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.buckets[bucket] = true
	return nil
}

func (f *fakeObjects) SetBucketPolicy(_ context.Context, _ string, policy string) error {
	f.policy = policy
	return nil
}

func (f *fakeObjects) PutObject(_ context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.objects[bucket+"/"+key] = data
	f.types[bucket+"/"+key] = opts.ContentType
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: size}, nil
}

type fakeRecorder struct {
	assets []store.Asset
}

func (f *fakeRecorder) InsertAsset(_ context.Context, asset store.Asset) (store.Asset, error) {
	asset.CreatedAt = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	f.assets = append(f.assets, asset)
	return asset, nil
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func newTestService(objects *fakeObjects, records Recorder, maxBytes int64) *Service {
	svc := New(objects, records, Options{Bucket: "lab-assets", PublicURL: "https://cdn.example.net/", MaxBytes: maxBytes})
	svc.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestUploadImage(t *testing.T) {
	objects := newFakeObjects()
	records := &fakeRecorder{}
	svc := newTestService(objects, records, 0)

	asset, err := svc.UploadImage(context.Background(), bytes.NewReader(pngHeader), "Avery")
	if err != nil {
		t.Fatalf("UploadImage() error = %v", err)
	}
	if !strings.HasPrefix(asset.ObjectKey, "images/2026/05/ast_") || !strings.HasSuffix(asset.ObjectKey, ".png") {
		t.Fatalf("unexpected object key %q", asset.ObjectKey)
	}
	if asset.URL != "https://cdn.example.net/lab-assets/"+asset.ObjectKey {
		t.Fatalf("unexpected url %q", asset.URL)
	}
	if asset.ContentType != "image/png" || asset.Size != int64(len(pngHeader)) || asset.UploadedBy != "Avery" {
		t.Fatalf("unexpected asset: %+v", asset)
	}
	if got := objects.types["lab-assets/"+asset.ObjectKey]; got != "image/png" {
		t.Fatalf("stored content type = %q", got)
	}
	if len(records.assets) != 1 || asset.CreatedAt.IsZero() {
		t.Fatalf("asset not recorded: %+v", records.assets)
	}
}

func TestUploadImageRejects(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{name: "empty", data: nil, wantErr: ErrEmptyUpload},
		{name: "not an image", data: []byte("<html><body>hi</body></html>"), wantErr: ErrUnsupportedType},
		{name: "too large", data: append(append([]byte{}, pngHeader...), make([]byte, 64)...), wantErr: ErrTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			objects := newFakeObjects()
			svc := newTestService(objects, nil, 32)
			_, err := svc.UploadImage(context.Background(), bytes.NewReader(tt.data), "Avery")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if len(objects.objects) != 0 {
				t.Fatal("rejected upload should not be stored")
			}
		})
	}
}

func TestUploadImagePutFailure(t *testing.T) {
	objects := newFakeObjects()
	objects.putErr = errors.New("connection refused")
	records := &fakeRecorder{}
	svc := newTestService(objects, records, 0)
	if _, err := svc.UploadImage(context.Background(), bytes.NewReader(pngHeader), "Avery"); err == nil {
		t.Fatal("expected put failure")
	}
	if len(records.assets) != 0 {
		t.Fatal("failed upload should not be recorded")
	}
}

func TestEnsureBucket(t *testing.T) {
	objects := newFakeObjects()
	svc := newTestService(objects, nil, 0)
	if err := svc.EnsureBucket(context.Background()); err != nil {
		t.Fatalf("EnsureBucket() error = %v", err)
	}
	if !objects.buckets["lab-assets"] || !strings.Contains(objects.policy, "arn:aws:s3:::lab-assets/*") {
		t.Fatalf("bucket not prepared: %+v policy=%s", objects.buckets, objects.policy)
	}

	objects.policy = ""
	if err := svc.EnsureBucket(context.Background()); err != nil {
		t.Fatalf("EnsureBucket() second call error = %v", err)
	}
	if objects.policy != "" {
		t.Fatal("existing bucket should be left alone")
	}
}

func TestNewMinioDisabled(t *testing.T) {
	if _, err := NewMinio(Options{}, nil); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}
