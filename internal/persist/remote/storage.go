package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/snapgrid/snapgrid/internal/persist"
)

// S3Client is the slice of the S3 API the storage adapter uses. The concrete
// client satisfies it; tests substitute a stub.
type S3Client interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Storage implements persist.StorageAdapter over an S3-compatible blob store.
// GetFileURL issues public object URLs under the configured endpoint.
type Storage struct {
	client   S3Client
	bucket   string
	endpoint string
}

var _ persist.StorageAdapter = (*Storage)(nil)

// NewStorage builds a Storage over an S3 client configured from cfg.
func NewStorage(ctx context.Context, cfg persist.RemoteConfig) (*Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKey,
			cfg.S3SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("loading s3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		o.UsePathStyle = true
	})

	return NewStorageWithClient(client, cfg.S3Bucket, cfg.S3Endpoint), nil
}

// NewStorageWithClient wires an explicit client. Used by tests.
func NewStorageWithClient(client S3Client, bucket, endpoint string) *Storage {
	return &Storage{client: client, bucket: bucket, endpoint: strings.TrimSuffix(endpoint, "/")}
}

// isObjectMissing recognizes the store's missing-key replies.
func isObjectMissing(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) &&
		(apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey")
}

func (s *Storage) UploadFile(ctx context.Context, blob persist.Blob, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("upload: empty path")
	}
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
		Body:   bytes.NewReader(blob.Data),
	}
	if blob.ContentType != "" {
		in.ContentType = aws.String(blob.ContentType)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("upload %s: %w", path, err)
	}
	return path, nil
}

func (s *Storage) UploadFiles(ctx context.Context, files []persist.FileUpload, basePath string) ([]string, error) {
	paths := make([]string, 0, len(files))
	for _, f := range files {
		path, err := s.UploadFile(ctx, f.Blob, basePath+"/"+f.Name)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (s *Storage) DownloadFile(ctx context.Context, path string) (persist.Blob, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		if isObjectMissing(err) {
			return persist.Blob{}, fmt.Errorf("blob %s: %w", path, persist.ErrNotFound)
		}
		return persist.Blob{}, fmt.Errorf("download %s: %w", path, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return persist.Blob{}, fmt.Errorf("download %s: %w", path, err)
	}
	blob := persist.Blob{Data: data}
	if out.ContentType != nil {
		blob.ContentType = *out.ContentType
	}
	return blob, nil
}

func (s *Storage) DeleteFile(ctx context.Context, path string) error {
	// S3 deletes of absent keys succeed silently; probe first so a missing
	// blob surfaces as ErrNotFound like the local backend.
	if _, err := s.head(ctx, path); err != nil {
		return err
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	}); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func (s *Storage) DeleteFiles(ctx context.Context, paths []string) error {
	for _, path := range paths {
		if err := s.DeleteFile(ctx, path); err != nil {
			return err
		}
	}
	return nil
}

func (s *Storage) GetFileURL(ctx context.Context, path string) (string, error) {
	if _, err := s.head(ctx, path); err != nil {
		return "", err
	}
	return s.endpoint + "/" + s.bucket + "/" + path, nil
}

func (s *Storage) GetFileMetadata(ctx context.Context, path string) (*persist.FileMetadata, error) {
	out, err := s.head(ctx, path)
	if err != nil {
		return nil, err
	}
	meta := &persist.FileMetadata{Path: path}
	if out.ContentLength != nil {
		meta.Size = *out.ContentLength
	}
	if out.ContentType != nil {
		meta.ContentType = *out.ContentType
	}
	if out.LastModified != nil {
		meta.CreatedAt = *out.LastModified
	}
	return meta, nil
}

func (s *Storage) head(ctx context.Context, path string) (*s3.HeadObjectOutput, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		if isObjectMissing(err) {
			return nil, fmt.Errorf("blob %s: %w", path, persist.ErrNotFound)
		}
		return nil, fmt.Errorf("head %s: %w", path, err)
	}
	return out, nil
}
