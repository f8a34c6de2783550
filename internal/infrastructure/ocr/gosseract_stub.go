//go:build !gosseract

package ocr

import "errors"

// NewGosseract reports that the binary was built without libtesseract.
// Build with -tags gosseract to enable the in-process engine.
func NewGosseract(_ TesseractConfig) (Engine, error) {
	return nil, errors.New("ocr: built without gosseract support (use -tags gosseract)")
}
