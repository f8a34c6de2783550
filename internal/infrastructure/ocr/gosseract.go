//go:build gosseract

package ocr

import (
	"context"
	"fmt"

	"github.com/go-docverify/internal/infrastructure/staging"
	"github.com/otiai10/gosseract/v2"
)

// Gosseract runs libtesseract in-process through cgo.
type Gosseract struct {
	cfg           TesseractConfig
	clientFactory func() *gosseract.Client
}

func NewGosseract(cfg TesseractConfig) (Engine, error) {
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	return &Gosseract{cfg: cfg, clientFactory: gosseract.NewClient}, nil
}

func (g *Gosseract) Name() string { return "gosseract" }

// Recognize cannot be interrupted once libtesseract starts; the pool's
// timeout bounds how long callers wait for it.
func (g *Gosseract) Recognize(ctx context.Context, img staging.Object) (string, error) {
	if img.Path() == "" {
		return "", fmt.Errorf("gosseract: image is not staged locally")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c := g.clientFactory()
	defer c.Close()
	if g.cfg.TessdataDir != "" {
		c.TessdataPrefix = g.cfg.TessdataDir
	}
	if err := c.SetLanguage(g.cfg.Lang); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	if err := c.SetImage(img.Path()); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return Normalize(text), nil
}
