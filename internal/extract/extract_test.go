package extract

import (
	"testing"

	"github.com/go-docverify/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractNumber_Aadhaar(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"grouped 4-4-4", "1234 5678 9012\nJOHN SMITH", "123456789012", true},
		{"contiguous", "UID: 123456789012", "123456789012", true},
		{"uneven grouping", "no. 12 3456  789 012 end", "123456789012", true},
		{"tabs", "1234\t5678\t9012", "123456789012", true},
		{"first of two", "1111 2222 3333 and 4444 5555 6666", "111122223333", true},
		{"skips non-12 runs", "PIN 560001\nDOB 1990\n9876 5432 1098", "987654321098", true},
		{"too long", "1234 5678 9012 3456", "", false},
		{"split by newline", "1234 5678\n9012", "123456789012", true},
		{"one group per line", "1234\n5678\n9012", "123456789012", true},
		{"crlf", "1234\r\n5678 9012", "123456789012", true},
		{"pin code on line above", "PIN 560001\n1234 5678 9012", "123456789012", true},
		{"too long across lines", "1234 5678\n9012 3456", "", false},
		{"no digits", "GOVERNMENT OF INDIA", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractNumber(domain.DocumentAadhaar, tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractNumber_PAN(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"alone", "ABCDE1234F", "ABCDE1234F", true},
		{"in text", "INCOME TAX DEPARTMENT\nPermanent Account Number\nBNZPM2501F\nRAVI KUMAR", "BNZPM2501F", true},
		{"first wins", "AAAAA1111A BBBBB2222B", "AAAAA1111A", true},
		{"lowercase rejected", "abcde1234f", "", false},
		{"embedded in longer token", "XABCDE1234F", "", false},
		{"wrong shape", "ABCD12345F", "", false},
		{"none", "nothing here", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractNumber(domain.DocumentPAN, tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractNumber_UnknownType(t *testing.T) {
	_, ok := ExtractNumber(domain.DocumentType("passport"), "123456789012")
	assert.False(t, ok)
}

func TestExtractName(t *testing.T) {
	name, ok := ExtractName("1234 5678 9012\n  JOHN SMITH  \nMale")
	require.True(t, ok)
	assert.Equal(t, "JOHN SMITH", name)

	_, ok = ExtractName("John Smith\nDOB 01/01/1990\nR2D2")
	assert.False(t, ok)

	_, ok = ExtractName("\n   \n")
	assert.False(t, ok)
}

func TestExtractName_Deterministic(t *testing.T) {
	text := "GOVERNMENT OF INDIA\nJOHN SMITH"
	a, _ := ExtractName(text)
	b, _ := ExtractName(text)
	assert.Equal(t, a, b)
	assert.Equal(t, "GOVERNMENT OF INDIA", a)
}

func TestNormalizeClaim(t *testing.T) {
	aadhaar, ok := Lookup(domain.DocumentAadhaar)
	require.True(t, ok)
	assert.True(t, aadhaar.ClaimRequired)

	n, ok := aadhaar.NormalizeClaim("1234-5678 9012")
	assert.True(t, ok)
	assert.Equal(t, "123456789012", n)
	_, ok = aadhaar.NormalizeClaim("12345")
	assert.False(t, ok)

	pan, ok := Lookup(domain.DocumentPAN)
	require.True(t, ok)
	assert.False(t, pan.ClaimRequired)

	n, ok = pan.NormalizeClaim(" abcde 1234f ")
	assert.True(t, ok)
	assert.Equal(t, "ABCDE1234F", n)
	_, ok = pan.NormalizeClaim("ABCDE12345")
	assert.False(t, ok)
}
