package internal

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the binaries read from the environment. A .env
// file is honored in development; production deploys set real variables.
type Config struct {
	Env         string
	Port        int
	LogLevel    string
	DatabaseUrl string

	// SMTP, defaulting to a local Mailhog in development.
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string

	// BaseURL is the public origin used to build links in emails.
	BaseURL string

	// Storage backend: "local" for development, "r2" in production.
	StorageProvider  string
	LocalStoragePath string
	LocalStorageURL  string

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string // custom domain in front of the bucket, optional

	// Background worker pool.
	WorkerEnabled      bool
	WorkerConcurrency  int
	WorkerPollInterval time.Duration
	WorkerJobTimeout   time.Duration

	// AI provider: "anthropic" or "mock".
	AIProvider       string
	AnthropicAPIKey  string
	AnthropicModel   string
	AIMaxRetries     int
	AIRetryBaseDelay time.Duration
	AIRequestTimeout time.Duration

	// QuotaAlertDedupWindow suppresses repeat quota alerts for the same
	// tenant, feature and threshold inside this window.
	QuotaAlertDedupWindow time.Duration

	// Private-beta invite codes. Registration is open when disabled.
	InviteCodesEnabled bool
	ValidInviteCodes   []string

	// Stripe. Billing endpoints answer 503 when the secret key is empty,
	// which is the normal state in development.
	StripeSecretKey     string
	StripeWebhookSecret string

	StripeStarterMonthlyPriceID    string
	StripeStarterYearlyPriceID     string
	StripeBusinessMonthlyPriceID   string
	StripeBusinessYearlyPriceID    string
	StripePremiumMonthlyPriceID    string
	StripePremiumYearlyPriceID     string
	StripeEntrepriseMonthlyPriceID string
	StripeEntrepriseYearlyPriceID  string

	// Basic auth in front of /metrics. Leaving both empty exposes the
	// endpoint, acceptable only behind a private network.
	MetricsUsername string
	MetricsPassword string
}

// NewConfig reads the environment into a Config and validates the
// combinations that would otherwise fail at first use.
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:      envString("ENV", "development"),
		Port:     envInt("PORT", 8080),
		LogLevel: envString("LOG_LEVEL", "debug"),

		SMTPHost:     envString("SMTP_HOST", "localhost"),
		SMTPPort:     envInt("SMTP_PORT", 1025),
		SMTPUsername: envString("SMTP_USERNAME", ""),
		SMTPPassword: envString("SMTP_PASSWORD", ""),
		SMTPFrom:     envString("SMTP_FROM", "noreply@previsk.fr"),
		SMTPFromName: envString("SMTP_FROM_NAME", "Previsk"),

		BaseURL: envString("BASE_URL", "http://localhost:8080"),

		StorageProvider:  envString("STORAGE_PROVIDER", "local"),
		LocalStoragePath: envString("LOCAL_STORAGE_PATH", "./storage"),
		LocalStorageURL:  envString("LOCAL_STORAGE_URL", "http://localhost:8080/files"),

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicURL:       os.Getenv("R2_PUBLIC_URL"),

		WorkerEnabled:      envBool("WORKER_ENABLED", true),
		WorkerConcurrency:  envInt("WORKER_CONCURRENCY", 2),
		WorkerPollInterval: envDuration("WORKER_POLL_INTERVAL", 5*time.Second),
		WorkerJobTimeout:   envDuration("WORKER_JOB_TIMEOUT", 5*time.Minute),

		AIProvider:       envString("AI_PROVIDER", "mock"),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:   envString("ANTHROPIC_MODEL", "claude-3-5-sonnet-20241022"),
		AIMaxRetries:     envInt("AI_MAX_RETRIES", 3),
		AIRetryBaseDelay: envDuration("AI_RETRY_BASE_DELAY", 1*time.Second),
		AIRequestTimeout: envDuration("AI_REQUEST_TIMEOUT", 60*time.Second),

		QuotaAlertDedupWindow: envDuration("QUOTA_ALERT_DEDUP_WINDOW", 24*time.Hour),

		InviteCodesEnabled: envBool("INVITE_CODES_ENABLED", false),
		ValidInviteCodes:   parseInviteCodes(os.Getenv("VALID_INVITE_CODES")),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),

		StripeStarterMonthlyPriceID:    os.Getenv("STRIPE_STARTER_MONTHLY_PRICE_ID"),
		StripeStarterYearlyPriceID:     os.Getenv("STRIPE_STARTER_YEARLY_PRICE_ID"),
		StripeBusinessMonthlyPriceID:   os.Getenv("STRIPE_BUSINESS_MONTHLY_PRICE_ID"),
		StripeBusinessYearlyPriceID:    os.Getenv("STRIPE_BUSINESS_YEARLY_PRICE_ID"),
		StripePremiumMonthlyPriceID:    os.Getenv("STRIPE_PREMIUM_MONTHLY_PRICE_ID"),
		StripePremiumYearlyPriceID:     os.Getenv("STRIPE_PREMIUM_YEARLY_PRICE_ID"),
		StripeEntrepriseMonthlyPriceID: os.Getenv("STRIPE_ENTREPRISE_MONTHLY_PRICE_ID"),
		StripeEntrepriseYearlyPriceID:  os.Getenv("STRIPE_ENTREPRISE_YEARLY_PRICE_ID"),

		MetricsUsername: os.Getenv("METRICS_USERNAME"),
		MetricsPassword: os.Getenv("METRICS_PASSWORD"),
	}

	cfg.DatabaseUrl = os.Getenv("DATABASE_URL")
	if cfg.DatabaseUrl == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageProvider {
	case "local":
	case "r2":
		required := map[string]string{
			"R2_ACCOUNT_ID":        c.R2AccountID,
			"R2_ACCESS_KEY_ID":     c.R2AccessKeyID,
			"R2_SECRET_ACCESS_KEY": c.R2SecretAccessKey,
			"R2_BUCKET_NAME":       c.R2BucketName,
		}
		for name, value := range required {
			if value == "" {
				return fmt.Errorf("%s is required when STORAGE_PROVIDER is 'r2'", name)
			}
		}
	default:
		return fmt.Errorf("STORAGE_PROVIDER must be either 'local' or 'r2', got: %s", c.StorageProvider)
	}

	switch c.AIProvider {
	case "mock":
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when AI_PROVIDER is 'anthropic'")
		}
	default:
		return fmt.Errorf("AI_PROVIDER must be either 'anthropic' or 'mock', got: %s", c.AIProvider)
	}

	if c.QuotaAlertDedupWindow <= 0 {
		return fmt.Errorf("QUOTA_ALERT_DEDUP_WINDOW must be positive")
	}
	return nil
}

// parseInviteCodes splits a comma-separated code list, uppercasing each code
// so comparisons are case-insensitive.
func parseInviteCodes(raw string) []string {
	var codes []string
	for _, code := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(strings.ToUpper(code)); trimmed != "" {
			codes = append(codes, trimmed)
		}
	}
	return codes
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
