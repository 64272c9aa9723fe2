package remote

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/snapgrid/snapgrid/internal/persist"
)

// fakeS3 keeps objects in a map and records the keys it saw.
type fakeS3 struct {
	objects map[string]persist.Blob
	deleted []string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string]persist.Blob{}}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	blob := persist.Blob{Data: data}
	if in.ContentType != nil {
		blob.ContentType = *in.ContentType
	}
	f.objects[*in.Key] = blob
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	blob, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:        io.NopCloser(bytes.NewReader(blob.Data)),
		ContentType: aws.String(blob.ContentType),
	}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	blob, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(blob.Data))),
		ContentType:   aws.String(blob.ContentType),
	}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, *in.Key)
	f.deleted = append(f.deleted, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func newTestStorage() (*Storage, *fakeS3) {
	client := newFakeS3()
	return NewStorageWithClient(client, "snapgrid", "http://127.0.0.1:9000/"), client
}

func TestStorage_UploadDownload(t *testing.T) {
	s, _ := newTestStorage()
	ctx := context.Background()

	path, err := s.UploadFile(ctx, persist.Blob{Data: []byte("jpeg"), ContentType: "image/jpeg"}, "media/a.jpg")
	if err != nil {
		t.Fatalf("UploadFile error: %v", err)
	}
	if path != "media/a.jpg" {
		t.Fatalf("path rewritten: %q", path)
	}

	blob, err := s.DownloadFile(ctx, "media/a.jpg")
	if err != nil {
		t.Fatalf("DownloadFile error: %v", err)
	}
	if string(blob.Data) != "jpeg" || blob.ContentType != "image/jpeg" {
		t.Fatalf("unexpected blob: %+v", blob)
	}

	_, err = s.DownloadFile(ctx, "media/missing.jpg")
	if !errors.Is(err, persist.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStorage_PublicURL(t *testing.T) {
	s, _ := newTestStorage()
	ctx := context.Background()

	if _, err := s.UploadFile(ctx, persist.Blob{Data: []byte("x")}, "media/a.jpg"); err != nil {
		t.Fatalf("UploadFile error: %v", err)
	}

	url, err := s.GetFileURL(ctx, "media/a.jpg")
	if err != nil {
		t.Fatalf("GetFileURL error: %v", err)
	}
	if url != "http://127.0.0.1:9000/snapgrid/media/a.jpg" {
		t.Fatalf("unexpected url: %q", url)
	}

	if _, err := s.GetFileURL(ctx, "media/missing.jpg"); !errors.Is(err, persist.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStorage_DeleteChecksExistence(t *testing.T) {
	s, client := newTestStorage()
	ctx := context.Background()

	if _, err := s.UploadFile(ctx, persist.Blob{Data: []byte("x")}, "media/a.jpg"); err != nil {
		t.Fatalf("UploadFile error: %v", err)
	}

	if err := s.DeleteFile(ctx, "media/a.jpg"); err != nil {
		t.Fatalf("DeleteFile error: %v", err)
	}
	if len(client.deleted) != 1 || client.deleted[0] != "media/a.jpg" {
		t.Fatalf("unexpected deletes: %v", client.deleted)
	}

	if err := s.DeleteFile(ctx, "media/a.jpg"); !errors.Is(err, persist.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStorage_UploadFilesAndMetadata(t *testing.T) {
	s, _ := newTestStorage()
	ctx := context.Background()

	paths, err := s.UploadFiles(ctx, []persist.FileUpload{
		{Name: "a.jpg", Blob: persist.Blob{Data: []byte("aa"), ContentType: "image/jpeg"}},
		{Name: "b.jpg", Blob: persist.Blob{Data: []byte("b")}},
	}, "media/2026")
	if err != nil {
		t.Fatalf("UploadFiles error: %v", err)
	}
	if len(paths) != 2 || paths[0] != "media/2026/a.jpg" {
		t.Fatalf("unexpected paths: %v", paths)
	}

	meta, err := s.GetFileMetadata(ctx, "media/2026/a.jpg")
	if err != nil {
		t.Fatalf("GetFileMetadata error: %v", err)
	}
	if meta.Size != 2 || meta.ContentType != "image/jpeg" || meta.Path != "media/2026/a.jpg" {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
}
