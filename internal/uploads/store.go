// Package uploads stores user supplied images on local disk.
package uploads

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/glowcare/storefront/internal/platform/httpx"
)

// PublicPrefix is the URL path uploaded files are served under.
const PublicPrefix = "/uploads/"

// DefaultMaxBytes caps a single upload.
const DefaultMaxBytes = 5 << 20

var (
	ErrTooLarge        = fmt.Errorf("file too large: %w", httpx.ErrValidation)
	ErrUnsupportedType = fmt.Errorf("only image files (JPEG, PNG, GIF, WebP, AVIF) are allowed: %w", httpx.ErrValidation)
)

// allowed maps accepted content types to the extension stored on disk.
var allowed = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/avif": ".avif",
}

// Store writes images into a single directory.
type Store struct {
	dir      string
	maxBytes int64
}

// NewStore creates dir if needed.
func NewStore(dir string, maxBytes int64) (*Store, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("uploads: create dir: %w", err)
	}
	return &Store{dir: dir, maxBytes: maxBytes}, nil
}

// Dir returns the directory files are written to.
func (s *Store) Dir() string { return s.dir }

// MaxBytes returns the per-file size limit.
func (s *Store) MaxBytes() int64 { return s.maxBytes }

// Save sniffs the content type of src, rejects anything but the allowed image
// formats and returns the public path of the stored file.
func (s *Store) Save(field string, src io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(src, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("uploads: read: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", ErrTooLarge
	}
	ext, ok := extensionFor(data)
	if !ok {
		return "", ErrUnsupportedType
	}
	name := sanitizeField(field) + "-" + uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("uploads: write: %w", err)
	}
	return PublicPrefix + name, nil
}

// Remove deletes a file previously returned by Save. Paths outside the upload
// prefix and files already gone are ignored.
func (s *Store) Remove(publicPath string) error {
	if !strings.HasPrefix(publicPath, PublicPrefix) {
		return nil
	}
	name := path.Base(publicPath)
	if name == "." || name == "/" || name == ".." {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("uploads: remove %s: %w", name, err)
	}
	return nil
}

func extensionFor(data []byte) (string, bool) {
	mtype := mimetype.Detect(data)
	for ct, ext := range allowed {
		if mtype.Is(ct) {
			return ext, true
		}
	}
	return "", false
}

func sanitizeField(field string) string {
	var b bytes.Buffer
	for _, r := range field {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}
