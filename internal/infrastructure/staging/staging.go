// Package staging holds uploaded document images for the duration of a single
// OCR call. Every staged object must be released by its owner.
package staging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-docverify/internal/domain"
	"github.com/go-docverify/internal/pkg/id"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrNoURL is returned by objects that cannot be fetched by a remote party.
var ErrNoURL = errors.New("staged object has no URL")

// Object is a staged upload.
type Object interface {
	// Path is the local file path, or "" when the object lives remotely.
	Path() string
	Format() string
	Open(ctx context.Context) (io.ReadCloser, error)
	URL(ctx context.Context) (string, error)
	Release(ctx context.Context) error
}

// Upload is a validated in-memory image ready to be staged.
type Upload struct {
	Data   []byte
	Format string // decoder name: "jpeg", "png", "gif", "bmp", "tiff", "webp"
}

// Ext returns the file extension for the upload's format.
func (u Upload) Ext() string {
	if u.Format == "jpeg" {
		return ".jpg"
	}
	return "." + u.Format
}

// Read reads at most maxBytes from r and checks that the payload is an image
// the OCR engines can open. Failures wrap domain.ErrMissingInput.
func Read(r io.Reader, maxBytes int64) (Upload, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return Upload{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return Upload{}, fmt.Errorf("image is empty: %w", domain.ErrMissingInput)
	}
	if int64(len(data)) > maxBytes {
		return Upload{}, fmt.Errorf("image exceeds %d bytes: %w", maxBytes, domain.ErrMissingInput)
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Upload{}, fmt.Errorf("unsupported image format: %w", domain.ErrMissingInput)
	}
	return Upload{Data: data, Format: format}, nil
}

// Local stages uploads as temporary files under dir.
type Local struct {
	dir      string
	maxBytes int64
}

func NewLocal(dir string, maxBytes int64) *Local {
	return &Local{dir: dir, maxBytes: maxBytes}
}

// Stage writes the validated upload to a temp file. No file is left behind
// when an error is returned.
func (l *Local) Stage(ctx context.Context, r io.Reader) (Object, error) {
	up, err := Read(r, l.maxBytes)
	if err != nil {
		return nil, err
	}
	f, err := os.CreateTemp(l.dir, "upload-"+id.New()+"-*"+up.Ext())
	if err != nil {
		return nil, fmt.Errorf("create staging file: %w", err)
	}
	if _, err := f.Write(up.Data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("write staging file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("close staging file: %w", err)
	}
	return &localObject{path: f.Name(), format: up.Format}, nil
}

type localObject struct {
	path   string
	format string
}

func (o *localObject) Path() string   { return o.path }
func (o *localObject) Format() string { return o.format }

func (o *localObject) Open(_ context.Context) (io.ReadCloser, error) {
	return os.Open(o.path)
}

func (o *localObject) URL(_ context.Context) (string, error) {
	return "", ErrNoURL
}

func (o *localObject) Release(_ context.Context) error {
	if err := os.Remove(o.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", filepath.Base(o.path), err)
	}
	slog.Debug("staged upload released", "file", filepath.Base(o.path))
	return nil
}
