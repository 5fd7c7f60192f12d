// Package filestore implements the blob client capability set on top of a
// local directory. It backs file:// endpoints for local development and is the
// store the adapter tests run against.
//
// Unlike a remote container, the directory layout cannot hold both "a" and
// "a/b": whichever is stored second is rejected with storage.KindInvalid.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/asad/azstorage/internal/storage"
)

var (
	errNameIsPrefix = errors.New("name is a prefix of stored blobs")
	errPrefixIsBlob = errors.New("a prefix of the name is stored as a blob")
)

// Store keeps blobs as files under <baseDir>/<account>/<container>/<blobName>.
type Store struct {
	baseDir string
	account string
	mu      sync.RWMutex
}

// New creates a directory-backed store for one account.
func New(baseDir, account string) (*Store, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("filestore: base directory is required")
	}
	if account == "" {
		return nil, fmt.Errorf("filestore: account is required")
	}
	if err := os.MkdirAll(filepath.Join(baseDir, account), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create account directory: %w", err)
	}
	return &Store{baseDir: baseDir, account: account}, nil
}

// containerPath returns the filesystem path for a container.
func (s *Store) containerPath(container string) string {
	return filepath.Join(s.baseDir, s.account, container)
}

// blobPath returns the filesystem path for a blob, refusing names that would
// leave the container directory.
func (s *Store) blobPath(op, container, name string) (string, error) {
	clean := path.Clean("/" + name)
	if clean == "/" || clean != "/"+name || strings.Contains(container, "/") || container == "" {
		return "", storage.E(storage.KindInvalid, op, name)
	}
	return filepath.Join(s.containerPath(container), filepath.FromSlash(name)), nil
}

// GetBlob returns the full content of a blob.
func (s *Store) GetBlob(ctx context.Context, container, name string) ([]byte, error) {
	const op = "get blob"
	p, err := s.blobPath(op, container, name)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	content, err := os.ReadFile(p)
	if err != nil {
		return nil, classify(op, name, err)
	}
	return content, nil
}

// GetBlobProperties stats a blob without reading it.
func (s *Store) GetBlobProperties(ctx context.Context, container, name string) (storage.Properties, error) {
	const op = "get blob properties"
	p, err := s.blobPath(op, container, name)
	if err != nil {
		return storage.Properties{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	info, err := os.Stat(p)
	if err != nil {
		return storage.Properties{}, classify(op, name, err)
	}
	if info.IsDir() {
		return storage.Properties{}, storage.E(storage.KindNotFound, op, name)
	}
	return storage.Properties{
		ContentLength: info.Size(),
		ContentType:   storage.ContentType(name),
		ETag:          fmt.Sprintf("\"%x-%x\"", info.ModTime().UnixNano(), info.Size()),
		LastModified:  info.ModTime().UTC(),
	}, nil
}

// DeleteBlob removes a blob. A missing blob is reported as KindNotFound.
func (s *Store) DeleteBlob(ctx context.Context, container, name string) error {
	const op = "delete blob"
	p, err := s.blobPath(op, container, name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(p)
	if err != nil {
		return classify(op, name, err)
	}
	if info.IsDir() {
		return storage.E(storage.KindNotFound, op, name)
	}
	if err := os.Remove(p); err != nil {
		return classify(op, name, err)
	}
	s.pruneEmptyDirs(filepath.Dir(p), s.containerPath(container))
	return nil
}

// pruneEmptyDirs removes dir and its empty parents, stopping below stop.
// Directories only exist to hold nested blobs, so an empty one must not keep
// its name from being stored as a blob.
func (s *Store) pruneEmptyDirs(dir, stop string) {
	for dir != stop && strings.HasPrefix(dir, stop+string(filepath.Separator)) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// PutBlob writes the blob in one step. The file is written to a temporary
// sibling and renamed into place so readers never observe partial content.
func (s *Store) PutBlob(ctx context.Context, container, name string, data []byte, kind storage.BlobType, contentType string) error {
	const op = "put blob"
	if kind != storage.BlockBlob {
		return storage.Wrap(storage.KindInvalid, op, name, fmt.Errorf("unsupported blob type %q", kind))
	}
	p, err := s.blobPath(op, container, name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if info, err := os.Stat(p); err == nil && info.IsDir() {
		return storage.Wrap(storage.KindInvalid, op, name, errNameIsPrefix)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		if errors.Is(err, syscall.ENOTDIR) || errors.Is(err, syscall.EEXIST) {
			return storage.Wrap(storage.KindInvalid, op, name, errPrefixIsBlob)
		}
		return storage.Wrap(storage.KindFatal, op, name, fmt.Errorf("failed to create blob directory: %w", err))
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return storage.Wrap(storage.KindFatal, op, name, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return storage.Wrap(storage.KindFatal, op, name, fmt.Errorf("failed to write blob: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return storage.Wrap(storage.KindFatal, op, name, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		os.Remove(tmpName)
		return storage.Wrap(storage.KindFatal, op, name, err)
	}
	return nil
}

func classify(op, name string, err error) error {
	switch {
	case os.IsNotExist(err), errors.Is(err, syscall.ENOTDIR), errors.Is(err, syscall.EISDIR):
		return storage.Wrap(storage.KindNotFound, op, name, err)
	case os.IsPermission(err):
		return storage.Wrap(storage.KindUnauthorized, op, name, err)
	default:
		return storage.Wrap(storage.KindFatal, op, name, err)
	}
}
