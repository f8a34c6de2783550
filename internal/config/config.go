package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort  string
	AppEnv   string
	LogLevel  string
	LogFormat string // "text" | "json"

	SessionTTL          time.Duration
	OTPMaxAttempts      int
	OTPLength           int
	OTPHashCost         int
	OTPDeliveryRequired bool // false keeps the session when delivery fails
	SessionStore        string // "memory" | "redis" | "dynamo"

	Redis RedisConfig

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	StagingBackend string // "local" | "s3"
	StagingDir     string
	S3BucketName   string
	S3PresignTTL   time.Duration
	UploadMaxBytes int64

	OCREngine     string // "tesseract" | "gosseract" | "http"
	TesseractPath string
	TesseractLang string
	TessdataDir   string
	OCRHTTPURL    string
	OCRHTTPLocale string
	OCRTimeout    time.Duration
	OCRWorkers    int

	SNSRegion    string
	SMTPHost     string
	SMTPPort     int
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	AttestationPrivateKeyPath string
	AttestationPublicKeyPath  string
	AttestationIssuer         string
	AttestationExpiry         time.Duration

	RateLimitRPS   float64
	RateLimitBurst int
	AllowedOrigins []string // CORS allowed origins
}

// RedisConfig addresses the Redis session store.
type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	Namespace string
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	VerificationSessions string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:   getEnv("APP_PORT", "3000"),
		AppEnv:    getEnv("APP_ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		SessionTTL:          getEnvDuration("SESSION_TTL", 5*time.Minute),
		OTPMaxAttempts:      getEnvInt("OTP_MAX_ATTEMPTS", 5),
		OTPLength:           getEnvInt("OTP_LENGTH", 6),
		OTPHashCost:         getEnvInt("OTP_HASH_COST", 10),
		OTPDeliveryRequired: getEnvBool("OTP_DELIVERY_REQUIRED", false),
		SessionStore:        getEnv("SESSION_STORE", "memory"),

		Redis: RedisConfig{
			Host:      getEnv("REDIS_HOST", "localhost"),
			Port:      getEnvInt("REDIS_PORT", 6379),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvInt("REDIS_DB", 0),
			Namespace: getEnv("REDIS_NAMESPACE", "docverify"),
		},

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			VerificationSessions: getEnv("DYNAMO_TABLE_VERIFICATION_SESSIONS", "verification_sessions"),
		},

		StagingBackend: getEnv("STAGING_BACKEND", "local"),
		StagingDir:     getEnv("STAGING_DIR", os.TempDir()),
		S3BucketName:   getEnv("S3_BUCKET_NAME", "docverify-staging"),
		S3PresignTTL:   getEnvDuration("S3_PRESIGN_TTL", 2*time.Minute),
		UploadMaxBytes: int64(getEnvInt("UPLOAD_MAX_BYTES", 5<<20)),

		OCREngine:     getEnv("OCR_ENGINE", "tesseract"),
		TesseractPath: getEnv("TESSERACT_PATH", "tesseract"),
		TesseractLang: getEnv("TESSERACT_LANG", "eng"),
		TessdataDir:   getEnv("TESSDATA_DIR", ""),
		OCRHTTPURL:    getEnv("OCR_HTTP_URL", ""),
		OCRHTTPLocale: getEnv("OCR_HTTP_LOCALE", "en"),
		OCRTimeout:    getEnvDuration("OCR_TIMEOUT", 30*time.Second),
		OCRWorkers:    getEnvInt("OCR_WORKERS", 4),

		SNSRegion:    getEnv("SNS_REGION", ""),
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 1025),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		AttestationPrivateKeyPath: getEnv("ATTESTATION_PRIVATE_KEY_PATH", ""),
		AttestationPublicKeyPath:  getEnv("ATTESTATION_PUBLIC_KEY_PATH", ""),
		AttestationIssuer:         getEnv("ATTESTATION_ISSUER", "docverify"),
		AttestationExpiry:         getEnvDuration("ATTESTATION_EXPIRY", 15*time.Minute),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 10.0/60.0),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 10),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

// Validate rejects settings that cannot work together.
func (c *Config) Validate() error {
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.OTPMaxAttempts < 1 {
		return fmt.Errorf("OTP_MAX_ATTEMPTS must be at least 1")
	}
	if c.OTPLength < 4 || c.OTPLength > 10 {
		return fmt.Errorf("OTP_LENGTH must be between 4 and 10")
	}
	switch c.SessionStore {
	case "memory", "redis", "dynamo":
	default:
		return fmt.Errorf("unknown SESSION_STORE %q", c.SessionStore)
	}
	switch c.StagingBackend {
	case "local", "s3":
	default:
		return fmt.Errorf("unknown STAGING_BACKEND %q", c.StagingBackend)
	}
	switch c.OCREngine {
	case "tesseract", "gosseract":
		if c.StagingBackend == "s3" {
			return fmt.Errorf("OCR_ENGINE %s needs STAGING_BACKEND=local", c.OCREngine)
		}
	case "http":
		if c.OCRHTTPURL == "" {
			return fmt.Errorf("OCR_ENGINE http needs OCR_HTTP_URL")
		}
	default:
		return fmt.Errorf("unknown OCR_ENGINE %q", c.OCREngine)
	}
	if c.OCRWorkers < 1 {
		return fmt.Errorf("OCR_WORKERS must be at least 1")
	}
	return nil
}

// IsDevelopment reports whether the service runs with APP_ENV=development.
func (c *Config) IsDevelopment() bool { return c.AppEnv == "development" }

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("90s") or bare seconds ("300").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
