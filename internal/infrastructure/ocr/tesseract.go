package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-docverify/internal/infrastructure/staging"
)

type TesseractConfig struct {
	Binary      string // binary name or absolute path; if empty -> "tesseract"
	Lang        string // default "eng"
	TessdataDir string
}

// Tesseract shells out to the tesseract CLI. It needs locally staged files.
type Tesseract struct {
	cfg    TesseractConfig
	runner Runner
}

func NewTesseract(cfg TesseractConfig) *Tesseract {
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	return &Tesseract{cfg: cfg, runner: execRunner{}}
}

func (t *Tesseract) Name() string { return "tesseract" }

func (t *Tesseract) Recognize(ctx context.Context, img staging.Object) (string, error) {
	if img.Path() == "" {
		return "", errors.New("tesseract: image is not staged locally")
	}
	// tesseract <file> stdout -l <lang>
	args := []string{img.Path(), "stdout", "-l", t.cfg.Lang}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	out, errb, err := t.runner.Run(ctx, t.cfg.Binary, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(truncate(string(errb), 512)))
	}
	return Normalize(string(out)), nil
}
