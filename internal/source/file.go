package source

import (
	"context"
	"fmt"
	"io"
	"os"
)

// File reads the table from a local CSV file.
type File struct {
	path string
}

// NewFile returns a source reading path on every Open.
func NewFile(path string) *File {
	return &File{path: path}
}

// Name returns "file:" followed by the path.
func (f *File) Name() string {
	return "file:" + f.path
}

// Open opens the file. The context is checked once before opening.
func (f *File) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fh, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open source file: %w", err)
	}
	return fh, nil
}
