package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// ErrBlobNotFound is returned when a primary blob or variant is absent.
var ErrBlobNotFound = errors.New("blob not found")

const chunkSize = 64 * 1024 // 64KB chunks

// FilesystemStorage stores blobs as flat files under basePath.
// Blob names are random and never derived from user input.
type FilesystemStorage struct {
	fs       afero.Fs
	basePath string // e.g., "/tmp/files_manager"
}

func NewFilesystemStorage(fs afero.Fs, basePath string) *FilesystemStorage {
	return &FilesystemStorage{fs: fs, basePath: basePath}
}

// VariantPath addresses the resized copy of a primary blob.
func VariantPath(path string, size int) string {
	return fmt.Sprintf("%s_%d", path, size)
}

// WriteBlob stores data under a fresh unique path and returns that path.
// The base directory is created on demand.
func (s *FilesystemStorage) WriteBlob(ctx context.Context, data []byte) (string, error) {
	if err := s.fs.MkdirAll(s.basePath, 0o755); err != nil {
		return "", fmt.Errorf("create storage root: %w", err)
	}

	path := filepath.Join(s.basePath, uuid.NewString())
	if err := s.writeAtomic(ctx, path, data); err != nil {
		return "", err
	}
	return path, nil
}

// WriteVariant stores a resized copy next to the primary blob, replacing any previous one.
func (s *FilesystemStorage) WriteVariant(ctx context.Context, path string, size int, data []byte) error {
	return s.writeAtomic(ctx, VariantPath(path, size), data)
}

func (s *FilesystemStorage) ReadBlob(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

// DeleteBlob removes a blob. A missing blob is not an error.
func (s *FilesystemStorage) DeleteBlob(path string) error {
	err := s.fs.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// writeAtomic writes to a temp file in chunks, checking ctx between chunks,
// then renames it into place so readers never observe a partial blob. Each
// call uses its own temp file.
func (s *FilesystemStorage) writeAtomic(ctx context.Context, path string, data []byte) error {
	tmpPath := path + "." + uuid.NewString() + ".tmp"

	f, err := s.fs.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	for off := 0; off < len(data); off += chunkSize {
		if err := ctx.Err(); err != nil {
			f.Close()
			s.fs.Remove(tmpPath)
			return err
		}
		end := min(off+chunkSize, len(data))
		if _, err := f.Write(data[off:end]); err != nil {
			f.Close()
			s.fs.Remove(tmpPath)
			return fmt.Errorf("write chunk: %w", err)
		}
	}

	if err := f.Sync(); err != nil {
		f.Close()
		s.fs.Remove(tmpPath)
		return fmt.Errorf("fsync: %w", err)
	}
	if err := f.Close(); err != nil {
		s.fs.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := s.fs.Rename(tmpPath, path); err != nil {
		s.fs.Remove(tmpPath)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
