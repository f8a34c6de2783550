package dynamo

// Attribute names used in key, condition and update expressions.
const (
	fieldSessionID       = "session_id"
	fieldAttempts        = "attempts"
	fieldLocked          = "locked"
	fieldPurgeAt         = "purge_at"
	fieldOTPHash         = "otp_hash"
	fieldExtractedNumber = "extracted_number"
	fieldHolderName      = "holder_name"
)
