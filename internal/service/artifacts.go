package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ArtifactUploader stores a written file somewhere durable and returns its URL.
type ArtifactUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

func uploadFile(ctx context.Context, uploader ArtifactUploader, name, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	return uploader.Upload(ctx, name, f)
}
