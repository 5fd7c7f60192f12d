package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"iter"
)

// DefaultChunkSize is the buffer size ReaderChunks uses when none is given.
const DefaultChunkSize = 64 << 10

// Chunks is a lazy, finite sequence of byte buffers. A non-nil error ends the
// sequence.
type Chunks iter.Seq2[[]byte, error]

// ChunksOf yields each buffer in order.
func ChunksOf(bufs ...[]byte) Chunks {
	return func(yield func([]byte, error) bool) {
		for _, b := range bufs {
			if !yield(b, nil) {
				return
			}
		}
	}
}

// ReaderChunks reads r in chunkSize pieces until EOF.
func ReaderChunks(r io.Reader, chunkSize int) Chunks {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return func(yield func([]byte, error) bool) {
		for {
			buf := make([]byte, chunkSize)
			n, err := io.ReadFull(r, buf)
			if n > 0 {
				if !yield(buf[:n], nil) {
					return
				}
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
		}
	}
}

// ReadAll concatenates every chunk into one buffer. When limit is positive and
// the total would exceed it, ReadAll stops draining and returns a KindTooLarge
// error.
func ReadAll(op, name string, content Chunks, limit int64) ([]byte, error) {
	var buf bytes.Buffer
	if content == nil {
		return buf.Bytes(), nil
	}
	for chunk, err := range content {
		if err != nil {
			return nil, chunkError(op, name, err)
		}
		if limit > 0 && int64(buf.Len())+int64(len(chunk)) > limit {
			return nil, E(KindTooLarge, op, name)
		}
		buf.Write(chunk)
	}
	return buf.Bytes(), nil
}

// chunkError classifies a failure reading the content source. Errors that
// already carry a Kind keep it; a cancelled or expired context is transient.
func chunkError(op, name string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Wrap(KindTransient, op, name, err)
	}
	return Wrap(KindFatal, op, name, err)
}
