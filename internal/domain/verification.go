package domain

import "time"

// VerificationSession binds an OCR result to its pending OTP challenge.
// PK: session_id. ExpiresAt doubles as the DynamoDB TTL attribute (Unix seconds).
// Only Attempts mutates after creation.
type VerificationSession struct {
	SessionID       string       `json:"session_id" dynamodbav:"session_id"`
	DocumentType    DocumentType `json:"document_type" dynamodbav:"document_type"`
	ExtractedNumber string       `json:"-" dynamodbav:"extracted_number"`
	HolderName      string       `json:"-" dynamodbav:"holder_name"`
	OTPHash         string       `json:"-" dynamodbav:"otp_hash"`
	CreatedAt       time.Time    `json:"created_at" dynamodbav:"created_at,unixtime"`
	ExpiresAt       time.Time    `json:"expires_at" dynamodbav:"expires_at,unixtime"`
	Attempts        int          `json:"attempts" dynamodbav:"attempts"`
}

// Expired reports whether now is past the session deadline.
func (s *VerificationSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// VerifiedIdentity is released exactly once, on successful confirmation.
type VerifiedIdentity struct {
	DocumentType DocumentType `json:"document_type"`
	Number       string       `json:"number"`
	Name         string       `json:"name"`
}
