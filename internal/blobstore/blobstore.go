// Package blobstore stores uploaded files and returns their public URLs.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Purpose namespaces uploads. No behavior depends on it.
type Purpose string

const (
	PaymentSlips   Purpose = "payment-slips"
	ContentImages  Purpose = "content-images"
	ExtensionSlips Purpose = "extension-slips"
	EditSlips      Purpose = "edit-slips"
	EditImages     Purpose = "edit-images"
)

// Storage puts a blob at path and returns the URL it is served from.
type Storage interface {
	Put(ctx context.Context, path string, data []byte) (string, error)
}

// File is an upload held in memory.
type File struct {
	Name string
	Data []byte
}

// ObjectPath builds {purpose}/{orderID}/{uuidv7}{ext}. The extension is
// taken from filename and lower-cased.
func ObjectPath(p Purpose, orderID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return path.Join(string(p), orderID, uuid.Must(uuid.NewV7()).String()+ext)
}

// FS stores blobs below a root directory.
type FS struct {
	root    string
	baseURL string
}

// NewFS creates the root directory if needed. URLs are baseURL + "/" + path.
func NewFS(root, baseURL string) (*FS, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &FS{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Put writes data atomically by renaming a temp file into place.
func (s *FS) Put(ctx context.Context, p string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := path.Clean(p)
	if clean == "." || path.IsAbs(clean) || strings.HasPrefix(clean, "../") || clean == ".." {
		return "", fmt.Errorf("put blob: invalid path %q", p)
	}

	dst := filepath.Join(s.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("put blob %s: %w", clean, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("put blob %s: %w", clean, err)
	}
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("put blob %s: %w", clean, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("put blob %s: %w", clean, err)
	}
	return s.baseURL + "/" + clean, nil
}

// Upload puts each file under purpose/orderID and returns URLs in input
// order. It stops at the first failure.
func Upload(ctx context.Context, s Storage, p Purpose, orderID string, files ...File) ([]string, error) {
	urls := make([]string, 0, len(files))
	for _, f := range files {
		url, err := s.Put(ctx, ObjectPath(p, orderID, f.Name), f.Data)
		if err != nil {
			return nil, fmt.Errorf("upload %s: %w", f.Name, err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}
