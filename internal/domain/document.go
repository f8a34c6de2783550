package domain

import (
	"fmt"
	"strings"
)

// DocumentType selects the extraction rules and output shape of a verification.
type DocumentType string

const (
	DocumentAadhaar DocumentType = "aadhaar"
	DocumentPAN     DocumentType = "pan"
)

// NotDetected is stored in place of a field OCR could not recover.
const NotDetected = "Not detected"

// ParseDocumentType accepts the lower- or upper-case document selector.
func ParseDocumentType(s string) (DocumentType, error) {
	switch DocumentType(strings.ToLower(strings.TrimSpace(s))) {
	case DocumentAadhaar:
		return DocumentAadhaar, nil
	case DocumentPAN:
		return DocumentPAN, nil
	}
	return "", fmt.Errorf("unknown document type %q: %w", s, ErrMissingInput)
}

// MaskNumber keeps the last four characters of a document number for logs.
func MaskNumber(n string) string {
	if n == "" || n == NotDetected {
		return n
	}
	if len(n) <= 4 {
		return strings.Repeat("*", len(n))
	}
	return strings.Repeat("*", len(n)-4) + n[len(n)-4:]
}
