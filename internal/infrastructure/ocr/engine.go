// Package ocr turns staged document images into raw text.
package ocr

import (
	"context"
	"regexp"
	"strings"

	"github.com/go-docverify/internal/infrastructure/staging"
)

// Engine recognizes the text of one staged image.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img staging.Object) (string, error)
}

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reBoxNoise   = regexp.MustCompile(`(?m)^[ \t]*[_\-|]{3,}[ \t]*$`)
)

// Normalize unifies line endings and drops ruler lines tesseract emits for
// card borders. Digits and intra-line spacing are left alone so grouped
// document numbers survive.
func Normalize(s string) string {
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reBoxNoise.ReplaceAllString(s, "")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
