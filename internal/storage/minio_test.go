package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
)

type fakeStore struct {
	exists  bool
	made    []string
	objects map[string][]byte
	opts    map[string]minio.PutObjectOptions
	putErr  error
	presign string
	removed []string
}

func (f *fakeStore) BucketExists(context.Context, string) (bool, error) { return f.exists, nil }

func (f *fakeStore) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.made = append(f.made, bucket)
	return nil
}

func (f *fakeStore) PutObject(_ context.Context, _, object string, r io.Reader, _ int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	b, _ := io.ReadAll(r)
	if f.objects == nil {
		f.objects = map[string][]byte{}
		f.opts = map[string]minio.PutObjectOptions{}
	}
	f.objects[object] = b
	f.opts[object] = opts
	return minio.UploadInfo{Key: object, Size: int64(len(b))}, nil
}

func (f *fakeStore) PresignedGetObject(_ context.Context, bucket, object string, _ time.Duration, _ url.Values) (*url.URL, error) {
	f.presign = object
	return url.Parse("http://minio.local/" + bucket + "/" + object + "?sig=x")
}

func (f *fakeStore) RemoveObject(_ context.Context, _, object string, _ minio.RemoveObjectOptions) error {
	f.removed = append(f.removed, object)
	return nil
}

func TestNewArchiveCreatesBucket(t *testing.T) {
	store := &fakeStore{}
	if _, err := NewArchive(context.Background(), store, "", nil); err != nil {
		t.Fatal(err)
	}
	if len(store.made) != 1 || store.made[0] != "phototranslate" {
		t.Errorf("made buckets = %v", store.made)
	}

	existing := &fakeStore{exists: true}
	if _, err := NewArchive(context.Background(), existing, "photos", nil); err != nil {
		t.Fatal(err)
	}
	if len(existing.made) != 0 {
		t.Errorf("existing bucket should not be recreated: %v", existing.made)
	}
}

func TestArchivePut(t *testing.T) {
	store := &fakeStore{exists: true}
	a, err := NewArchive(context.Background(), store, "photos", nil)
	if err != nil {
		t.Fatal(err)
	}
	a.now = func() time.Time { return time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC) }

	obj, err := a.Put(context.Background(), "ABCD", "Menu.JPG", []byte("img"), "image/jpeg")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if obj != "2024/03/abcd.jpg" {
		t.Errorf("object = %q", obj)
	}
	if string(store.objects[obj]) != "img" || store.opts[obj].ContentType != "image/jpeg" {
		t.Errorf("stored %q with %+v", store.objects[obj], store.opts[obj])
	}

	obj, _ = a.Put(context.Background(), "ef01", "upload", []byte("x"), "image/png; charset=binary")
	if obj != "2024/03/ef01.png" {
		t.Errorf("object without name ext = %q", obj)
	}

	u, err := a.PresignedURL(context.Background(), "photos/2024/03/abcd.jpg", 0)
	if err != nil || store.presign != "2024/03/abcd.jpg" || u == "" {
		t.Errorf("PresignedURL = %q, %v (object %q)", u, err, store.presign)
	}
	if err := a.Delete(context.Background(), "2024/03/abcd.jpg"); err != nil || len(store.removed) != 1 {
		t.Errorf("Delete: %v %v", err, store.removed)
	}
}

func TestArchivePutError(t *testing.T) {
	store := &fakeStore{exists: true, putErr: errors.New("disk full")}
	a, _ := NewArchive(context.Background(), store, "b", nil)
	if _, err := a.Put(context.Background(), "h", "a.png", []byte("x"), "image/png"); err == nil {
		t.Fatal("expected error")
	}
}

func TestContentTypeExt(t *testing.T) {
	tests := map[string]string{
		"image/jpeg":      ".jpg",
		"IMAGE/PNG":       ".png",
		"image/heic":      ".heic",
		"application/pdf": ".bin",
		"":                ".bin",
	}
	for in, want := range tests {
		if got := ContentTypeExt(in); got != want {
			t.Errorf("ContentTypeExt(%q) = %q, want %q", in, got, want)
		}
	}
}
