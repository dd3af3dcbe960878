package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort  string
	AppEnv   string
	LogLevel string
	LogFile  string // empty logs to stdout only

	JWTSecret     string
	OTPExpiry     time.Duration
	SessionExpiry time.Duration
	OTPCooldown   time.Duration // 0 disables the per-email cooldown

	SMTPHost        string
	SMTPPort        int
	SMTPUsername    string
	SMTPPassword    string
	SMTPFrom        string
	SMTPTLSMode     string // auto | starttls | ssl | none
	SMTPTimeout     time.Duration
	MailDisplayName string
	OTPSenderName   string

	GroqAPIKey  string
	GroqBaseURL string
	GroqModel   string
	LLMTimeout  time.Duration

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	SNSTopicARN    string // empty disables delivery events

	AllowedOrigins []string // CORS allowed origins
	RateLimitRPS   float64
	RateLimitBurst int
	MaxUploadBytes int64

	// TrustProxyHeaders keys rate limits on X-Forwarded-For / X-Real-IP.
	// Enable only behind a reverse proxy that overwrites them.
	TrustProxyHeaders bool
}

// Load reads all configuration from environment variables. The .env file, if
// any, must already have been loaded into the process environment.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		AppPort:  v.GetString("APP_PORT"),
		AppEnv:   v.GetString("APP_ENV"),
		LogLevel: v.GetString("LOG_LEVEL"),
		LogFile:  v.GetString("LOG_FILE"),

		JWTSecret:     v.GetString("JWT_SECRET"),
		OTPExpiry:     v.GetDuration("OTP_EXPIRY"),
		SessionExpiry: v.GetDuration("SESSION_EXPIRY"),
		OTPCooldown:   v.GetDuration("OTP_COOLDOWN"),

		SMTPHost:        v.GetString("SMTP_HOST"),
		SMTPPort:        v.GetInt("SMTP_PORT"),
		SMTPUsername:    v.GetString("SMTP_USERNAME"),
		SMTPPassword:    v.GetString("SMTP_PASSWORD"),
		SMTPFrom:        v.GetString("SMTP_FROM"),
		SMTPTLSMode:     strings.ToLower(v.GetString("SMTP_TLS_MODE")),
		SMTPTimeout:     v.GetDuration("SMTP_TIMEOUT"),
		MailDisplayName: v.GetString("MAIL_DISPLAY_NAME"),
		OTPSenderName:   v.GetString("OTP_SENDER_NAME"),

		GroqAPIKey:  v.GetString("GROQ_API_KEY"),
		GroqBaseURL: v.GetString("GROQ_BASE_URL"),
		GroqModel:   v.GetString("GROQ_MODEL"),
		LLMTimeout:  v.GetDuration("LLM_TIMEOUT"),

		AWSRegion:      v.GetString("AWS_REGION"),
		AWSEndpointURL: v.GetString("AWS_ENDPOINT_URL"),
		AWSAccessKeyID: v.GetString("AWS_ACCESS_KEY_ID"),
		AWSSecretKey:   v.GetString("AWS_SECRET_ACCESS_KEY"),
		SNSTopicARN:    v.GetString("SNS_TOPIC_ARN"),

		AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
		RateLimitRPS:   v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst: v.GetInt("RATE_LIMIT_BURST"),
		MaxUploadBytes: v.GetInt64("MAX_UPLOAD_BYTES"),

		TrustProxyHeaders: v.GetBool("TRUST_PROXY_HEADERS"),
	}

	// Gmail-style setups send as the authenticated user.
	if cfg.SMTPFrom == "" {
		cfg.SMTPFrom = cfg.SMTPUsername
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "5000")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("OTP_EXPIRY", "5m")
	v.SetDefault("SESSION_EXPIRY", "168h")
	v.SetDefault("OTP_COOLDOWN", "30s")
	v.SetDefault("SMTP_HOST", "smtp.gmail.com")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "")
	v.SetDefault("SMTP_TLS_MODE", "auto")
	v.SetDefault("SMTP_TIMEOUT", "15s")
	v.SetDefault("MAIL_DISPLAY_NAME", "AI Emailer")
	v.SetDefault("OTP_SENDER_NAME", "AI Email Verifier")
	v.SetDefault("GROQ_API_KEY", "")
	v.SetDefault("GROQ_BASE_URL", "https://api.groq.com/openai/v1")
	v.SetDefault("GROQ_MODEL", "llama-3.3-70b-versatile")
	v.SetDefault("LLM_TIMEOUT", "30s")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("AWS_ENDPOINT_URL", "")
	v.SetDefault("AWS_ACCESS_KEY_ID", "")
	v.SetDefault("AWS_SECRET_ACCESS_KEY", "")
	v.SetDefault("SNS_TOPIC_ARN", "")
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_BURST", 10)
	v.SetDefault("MAX_UPLOAD_BYTES", 10<<20)
	v.SetDefault("TRUST_PROXY_HEADERS", false)
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 characters long")
	}
	if c.OTPExpiry <= 0 || c.SessionExpiry <= 0 {
		return errors.New("OTP_EXPIRY and SESSION_EXPIRY must be positive durations")
	}
	switch c.SMTPTLSMode {
	case "auto", "starttls", "ssl", "none":
	default:
		return errors.New("SMTP_TLS_MODE must be one of auto, starttls, ssl, none")
	}
	return nil
}

// IsProduction reports whether the service runs with production defaults
// (JSON logs, no colors).
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production") || strings.EqualFold(c.AppEnv, "prod")
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
