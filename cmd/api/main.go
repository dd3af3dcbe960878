package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-api-mailer/internal/application/draft"
	emailapp "github.com/go-api-mailer/internal/application/email"
	"github.com/go-api-mailer/internal/application/otp"
	"github.com/go-api-mailer/internal/config"
	"github.com/go-api-mailer/internal/infrastructure/cache"
	jwtinfra "github.com/go-api-mailer/internal/infrastructure/jwt"
	"github.com/go-api-mailer/internal/infrastructure/llm"
	"github.com/go-api-mailer/internal/infrastructure/smtp"
	"github.com/go-api-mailer/internal/infrastructure/sns"
	"github.com/go-api-mailer/internal/observability/logger"
	"github.com/go-api-mailer/internal/observability/metrics"
	transporthttp "github.com/go-api-mailer/internal/transport/http"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: !cfg.IsProduction(),
		LogFile:     cfg.LogFile,
	})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	m := metrics.New()

	tokens, err := jwtinfra.NewProvider(cfg.JWTSecret)
	if err != nil {
		zl.Fatal("jwt provider", zap.Error(err))
	}

	mailer := smtp.NewMailer(cfg, zl)

	// Delivery events are optional; without a topic the service still sends.
	var events sns.EventPublisher
	if p, err := sns.NewPublisher(context.Background(), cfg); err == nil {
		events = p
	} else {
		zl.Warn("SNS publisher not available", zap.Error(err))
	}

	cooldown := cache.NewCooldown(cfg.OTPCooldown)
	defer cooldown.Stop()

	groq := llm.NewGroqClient(cfg)
	if cfg.GroqAPIKey == "" {
		zl.Warn("GROQ_API_KEY is not set, drafting endpoints will return empty results")
	}

	router, limiter := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		OTP: otp.NewService(otp.ServiceDeps{
			Tokens:        tokens,
			Mailer:        mailer,
			Cooldown:      cooldown,
			Metrics:       m,
			Logger:        zl,
			OTPExpiry:     cfg.OTPExpiry,
			SessionExpiry: cfg.SessionExpiry,
			SenderName:    cfg.OTPSenderName,
		}),
		Email: emailapp.NewService(emailapp.ServiceDeps{
			Tokens:             tokens,
			Mailer:             mailer,
			Events:             events,
			Metrics:            m,
			Logger:             zl,
			DefaultDisplayName: cfg.MailDisplayName,
		}),
		Drafts: draft.NewService(draft.ServiceDeps{
			LLM:     groq,
			Metrics: m,
			Logger:  zl,
		}),
		Metrics: m,
		Logger:  zl,
	})
	defer limiter.Stop()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.LLMTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zl.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zl.Error("forced shutdown", zap.Error(err))
		return
	}
	zl.Info("server stopped")
}
