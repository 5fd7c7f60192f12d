package storage

import (
	"bytes"
	"io"
)

// File is a read-only, in-memory handle over blob content.
type File struct {
	name string
	data []byte
	r    *bytes.Reader
}

// NewFile wraps data as a readable file named name. The slice is not copied.
func NewFile(name string, data []byte) *File {
	return &File{name: name, data: data, r: bytes.NewReader(data)}
}

// Name returns the normalized blob name the file was opened from.
func (f *File) Name() string { return f.name }

// Size returns the total content length.
func (f *File) Size() int64 { return int64(len(f.data)) }

// Bytes returns the full content regardless of the read offset.
func (f *File) Bytes() []byte { return f.data }

func (f *File) Read(p []byte) (int, error) { return f.r.Read(p) }

func (f *File) ReadAt(p []byte, off int64) (int, error) { return f.r.ReadAt(p, off) }

func (f *File) Seek(offset int64, whence int) (int64, error) { return f.r.Seek(offset, whence) }

// Close is a no-op; the content lives in memory.
func (f *File) Close() error { return nil }

var (
	_ io.ReadSeekCloser = (*File)(nil)
	_ io.ReaderAt       = (*File)(nil)
)
