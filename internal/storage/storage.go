// Package storage defines the file-storage contract a pluggable backend must
// satisfy, together with the name rules and error kinds shared by backends.
package storage

import (
	"context"
	"mime"
	"path"
	"strings"
	"time"
)

// Storage is the capability set a hosting application expects from a backend.
// Every name is normalized with CleanName before it reaches the remote store.
type Storage interface {
	// Open returns the full content stored under name as an in-memory file.
	Open(ctx context.Context, name string, mode OpenMode) (*File, error)

	// Exists reports whether a blob is stored under name.
	Exists(ctx context.Context, name string) (bool, error)

	// Delete removes the blob stored under name.
	Delete(ctx context.Context, name string) error

	// Size returns the byte length of the blob stored under name.
	Size(ctx context.Context, name string) (int64, error)

	// Save drains content and stores it under name, returning the name the
	// content was stored as.
	Save(ctx context.Context, name string, content Chunks) (string, error)

	// URL returns the public URL of name. It performs no remote call.
	URL(name string) string
}

// OpenMode is the mode a caller asks Open for. Remote backends always return
// the full content, so the mode is accepted but not honored.
type OpenMode string

const (
	ModeRead OpenMode = "rb"
)

// BlobType selects the remote upload mode.
type BlobType string

const (
	BlockBlob BlobType = "BlockBlob"
)

// Properties is the metadata a backend reports for a stored blob.
type Properties struct {
	ContentLength int64
	ContentType   string
	ETag          string
	LastModified  time.Time
}

// CleanName converts backslash separators to forward slashes, resolves
// redundant "." and ".." segments lexically and drops any leading slash.
// CleanName is idempotent.
func CleanName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Clean(name)
	name = strings.TrimLeft(name, "/")
	if name == "" {
		return "."
	}
	return name
}

// ValidateName cleans name and rejects names that do not address a blob
// inside the container.
func ValidateName(op, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", E(KindInvalid, op, name)
	}
	cleaned := CleanName(name)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", E(KindInvalid, op, name)
	}
	return cleaned, nil
}

// ContentType guesses a MIME type from the name's extension.
func ContentType(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
