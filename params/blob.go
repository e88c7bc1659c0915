package params

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
)

// Blob is an opaque binary parameter. Its content is read once, when the
// parameters are marshalled.
type Blob struct {
	Name        string
	ContentType string

	open func() (io.ReadCloser, error)
}

// NewBlob wraps a reader. The reader is consumed by the first read.
func NewBlob(r io.Reader, contentType string) *Blob {
	return &Blob{
		ContentType: contentType,
		open: func() (io.ReadCloser, error) {
			if rc, ok := r.(io.ReadCloser); ok {
				return rc, nil
			}
			return io.NopCloser(r), nil
		},
	}
}

// BlobFromBytes wraps an in-memory payload. It can be read any number of times.
func BlobFromBytes(data []byte, contentType string) *Blob {
	return &Blob{
		ContentType: contentType,
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// BlobFromFile refers to a file that is opened when the Blob is read.
func BlobFromFile(path, contentType string) *Blob {
	return &Blob{
		Name:        filepath.Base(path),
		ContentType: contentType,
		open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

// ReadAll returns the full payload.
func (b *Blob) ReadAll(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b == nil || b.open == nil {
		return []byte{}, nil
	}

	rc, err := b.open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return data, ctx.Err()
}
