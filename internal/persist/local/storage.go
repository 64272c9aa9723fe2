package local

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/snapgrid/snapgrid/internal/persist"
)

// Storage implements persist.StorageAdapter over the embedded store. Blobs
// are raw bytes keyed by the caller-chosen path, with a small metadata record
// alongside. There is no separate origin to serve from, so GetFileURL returns
// a self-contained data URL.
type Storage struct {
	store *Store
}

var _ persist.StorageAdapter = (*Storage)(nil)

func NewStorage(store *Store) *Storage {
	return &Storage{store: store}
}

type blobMeta struct {
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *Storage) UploadFile(ctx context.Context, blob persist.Blob, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("upload: empty path")
	}
	meta := blobMeta{
		Size:        int64(len(blob.Data)),
		ContentType: blob.ContentType,
		CreatedAt:   now(),
	}
	err := s.store.update(func(tx *badger.Txn) error {
		if err := tx.Set(indexKey(blobPrefix, path), blob.Data); err != nil {
			return err
		}
		return setJSON(tx, indexKey(blobMetaPrefix, path), meta)
	})
	if err != nil {
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
	var blob persist.Blob
	err := s.store.view(func(tx *badger.Txn) error {
		item, err := tx.Get(indexKey(blobPrefix, path))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("blob %s: %w", path, persist.ErrNotFound)
			}
			return err
		}
		if err := item.Value(func(val []byte) error {
			blob.Data = append([]byte(nil), val...)
			return nil
		}); err != nil {
			return err
		}
		meta, err := getJSON[blobMeta](tx, indexKey(blobMetaPrefix, path))
		if err != nil {
			return err
		}
		if meta != nil {
			blob.ContentType = meta.ContentType
		}
		return nil
	})
	return blob, err
}

func (s *Storage) DeleteFile(ctx context.Context, path string) error {
	return s.store.update(func(tx *badger.Txn) error {
		if _, err := tx.Get(indexKey(blobPrefix, path)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("blob %s: %w", path, persist.ErrNotFound)
			}
			return err
		}
		if err := tx.Delete(indexKey(blobPrefix, path)); err != nil {
			return err
		}
		return tx.Delete(indexKey(blobMetaPrefix, path))
	})
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
	blob, err := s.DownloadFile(ctx, path)
	if err != nil {
		return "", err
	}
	ct := blob.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(blob.Data), nil
}

func (s *Storage) GetFileMetadata(ctx context.Context, path string) (*persist.FileMetadata, error) {
	var meta *blobMeta
	err := s.store.view(func(tx *badger.Txn) error {
		m, err := getJSON[blobMeta](tx, indexKey(blobMetaPrefix, path))
		if err != nil {
			return err
		}
		if m == nil {
			return fmt.Errorf("blob %s: %w", path, persist.ErrNotFound)
		}
		meta = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &persist.FileMetadata{
		Path:        path,
		Size:        meta.Size,
		ContentType: meta.ContentType,
		CreatedAt:   meta.CreatedAt,
	}, nil
}
