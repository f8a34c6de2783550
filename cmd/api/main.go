package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-docverify/internal/application/verification"
	"github.com/go-docverify/internal/config"
	"github.com/go-docverify/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-docverify/internal/infrastructure/jwt"
	"github.com/go-docverify/internal/infrastructure/memstore"
	"github.com/go-docverify/internal/infrastructure/notify"
	"github.com/go-docverify/internal/infrastructure/ocr"
	"github.com/go-docverify/internal/infrastructure/redisstore"
	s3infra "github.com/go-docverify/internal/infrastructure/s3"
	"github.com/go-docverify/internal/infrastructure/smtp"
	"github.com/go-docverify/internal/infrastructure/sns"
	"github.com/go-docverify/internal/infrastructure/staging"
	"github.com/go-docverify/internal/logging"
	"github.com/go-docverify/internal/pkg/otp"
	transporthttp "github.com/go-docverify/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.LogFormat)
	if envErr != nil {
		slog.Info("No .env file found, reading from environment")
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := newSessionStore(ctx, cfg)
	if err != nil {
		slog.Error("session store unavailable", "store", cfg.SessionStore, "err", err)
		os.Exit(1)
	}
	stager := newStager(cfg)
	engine, err := newEngine(cfg)
	if err != nil {
		slog.Error("ocr engine unavailable", "engine", cfg.OCREngine, "err", err)
		os.Exit(1)
	}

	// SNS SMS sender (optional; codes are simulated without a channel).
	smsSender, err := sns.NewSender(cfg)
	if err != nil {
		slog.Warn("SNS sender not available", "err", err)
	}
	notifier := notify.NewRouter(cfg.SessionTTL,
		notify.WithSMS(smsSender),
		notify.WithMail(smtp.NewMailer(cfg)),
		notify.RevealSimulated(cfg.IsDevelopment()),
	)

	deps := verification.ServiceDeps{
		Store:      store,
		Stager:     stager,
		Recognizer: ocr.NewPool(engine, cfg.OCRWorkers, cfg.OCRTimeout),
		Notifier:   notifier,
		Generator:  otp.NewGenerator(cfg.OTPLength),
		Policy: verification.Policy{
			TTL:              cfg.SessionTTL,
			MaxAttempts:      cfg.OTPMaxAttempts,
			HashCost:         cfg.OTPHashCost,
			DeliveryRequired: cfg.OTPDeliveryRequired,
		},
	}
	// Attestation is optional; a nil *Provider must not end up in the interface.
	if p, err := jwtinfra.NewProvider(cfg); err != nil {
		slog.Warn("attestation provider not available", "err", err)
	} else if p != nil {
		deps.Attestor = p
	}

	router := transporthttp.NewRouter(ctx, cfg, &transporthttp.Deps{
		Verification: verification.NewService(deps),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.OCRTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("Server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "store", cfg.SessionStore, "ocr", engine.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	slog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "err", err)
		os.Exit(1)
	}
	slog.Info("Server stopped")
}

func newSessionStore(ctx context.Context, cfg *config.Config) (verification.SessionStore, error) {
	switch cfg.SessionStore {
	case "redis":
		client, err := redisstore.NewClient(cfg.Redis)
		if err != nil {
			return nil, err
		}
		return redisstore.New(client, cfg.Redis.Namespace, cfg.SessionTTL, cfg.OTPMaxAttempts), nil
	case "dynamo":
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		// Bootstrap DynamoDB tables (creates them if they don't exist).
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		return dynamo.NewSessionRepo(client, cfg.DynamoTables.VerificationSessions, cfg.SessionTTL, cfg.OTPMaxAttempts), nil
	default:
		store := memstore.New(cfg.SessionTTL, cfg.OTPMaxAttempts)
		go store.Run(ctx, cfg.SessionTTL)
		return store, nil
	}
}

func newStager(cfg *config.Config) verification.Stager {
	if cfg.StagingBackend == "s3" {
		store := s3infra.NewStore(s3infra.NewClient(cfg), cfg.S3BucketName)
		return s3infra.NewStager(store, cfg.UploadMaxBytes, cfg.S3PresignTTL)
	}
	return staging.NewLocal(cfg.StagingDir, cfg.UploadMaxBytes)
}

func newEngine(cfg *config.Config) (ocr.Engine, error) {
	tcfg := ocr.TesseractConfig{Binary: cfg.TesseractPath, Lang: cfg.TesseractLang, TessdataDir: cfg.TessdataDir}
	switch cfg.OCREngine {
	case "gosseract":
		return ocr.NewGosseract(tcfg)
	case "http":
		return ocr.NewHTTP(cfg.OCRHTTPURL, cfg.OCRHTTPLocale, cfg.OCRTimeout), nil
	default:
		return ocr.NewTesseract(tcfg), nil
	}
}
