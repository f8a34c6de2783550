// Package extract derives document numbers and holder names from OCR text.
//
// All functions are pure: identical input text always yields identical output.
package extract

import (
	"regexp"
	"strings"

	"github.com/go-docverify/internal/domain"
)

var (
	// digit runs separated only by whitespace, line breaks included
	reDigitRun = regexp.MustCompile(`\d(?:\s*\d)*`)
	rePAN      = regexp.MustCompile(`\b[A-Z]{5}[0-9]{4}[A-Z]\b`)
	rePANExact = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	reNameLine = regexp.MustCompile(`^[A-Z ]+$`)
	reNonDigit = regexp.MustCompile(`\D`)
	reSpace    = regexp.MustCompile(`\s+`)
)

// Document is the per-type strategy used by the verification workflow.
type Document struct {
	Type  domain.DocumentType
	Label string
	// ClaimRequired makes the user-entered number mandatory on begin.
	ClaimRequired bool

	number func(text string) (string, bool)
	claim  func(raw string) (string, bool)
}

// ExtractNumber finds the first document number in text.
func (d Document) ExtractNumber(text string) (string, bool) { return d.number(text) }

// NormalizeClaim canonicalises a user-entered number. It reports false when
// the value cannot be a number of this document type.
func (d Document) NormalizeClaim(raw string) (string, bool) { return d.claim(raw) }

var documents = map[domain.DocumentType]Document{
	domain.DocumentAadhaar: {
		Type:          domain.DocumentAadhaar,
		Label:         "Aadhaar",
		ClaimRequired: true,
		number:        aadhaarNumber,
		claim:         normalizeAadhaar,
	},
	domain.DocumentPAN: {
		Type:   domain.DocumentPAN,
		Label:  "PAN",
		number: panNumber,
		claim:  normalizePAN,
	},
}

// Lookup returns the strategy registered for dt.
func Lookup(dt domain.DocumentType) (Document, bool) {
	d, ok := documents[dt]
	return d, ok
}

// ExtractNumber is a convenience wrapper over Lookup(dt).ExtractNumber.
func ExtractNumber(dt domain.DocumentType, text string) (string, bool) {
	d, ok := documents[dt]
	if !ok {
		return "", false
	}
	return d.ExtractNumber(text)
}

// ExtractName returns the first line made only of uppercase letters and
// spaces. This is a weak heuristic: card headers such as "GOVERNMENT OF INDIA"
// match it as readily as the holder's name does.
func ExtractName(text string) (string, bool) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && reNameLine.MatchString(line) {
			return line, true
		}
	}
	return "", false
}

func aadhaarNumber(text string) (string, bool) {
	for _, run := range reDigitRun.FindAllString(text, -1) {
		// a run may span lines; windows of consecutive lines keep a PIN code
		// on the line above from swallowing the number
		lines := strings.Split(run, "\n")
		for i := range lines {
			n := ""
			for _, line := range lines[i:] {
				n += reSpace.ReplaceAllString(line, "")
				if len(n) >= 12 {
					break
				}
			}
			if len(n) == 12 {
				return n, true
			}
		}
	}
	return "", false
}

func normalizeAadhaar(raw string) (string, bool) {
	n := reNonDigit.ReplaceAllString(raw, "")
	return n, len(n) == 12
}

func panNumber(text string) (string, bool) {
	if m := rePAN.FindString(text); m != "" {
		return m, true
	}
	return "", false
}

func normalizePAN(raw string) (string, bool) {
	n := strings.ToUpper(reSpace.ReplaceAllString(raw, ""))
	return n, rePANExact.MatchString(n)
}
