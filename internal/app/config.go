package app

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"30s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	CRMBaseURL      string        `envconfig:"CRM_BASE_URL" default:"http://127.0.0.1:4000/api"`
	CRMTimeout      time.Duration `envconfig:"CRM_TIMEOUT" default:"15s"`
	CRMServiceToken string        `envconfig:"CRM_SERVICE_TOKEN"`

	GotenbergURL  string `envconfig:"GOTENBERG_URL" default:"http://127.0.0.1:3000"`
	PDFRenderer   string `envconfig:"PDF_RENDERER" default:"gotenberg"`
	DisplayLocale string `envconfig:"DISPLAY_LOCALE" default:"en-US"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173"`
	PublicRateLimit    int      `envconfig:"PUBLIC_RATE_LIMIT" default:"20"`
	PublicMaxBodyBytes int64    `envconfig:"PUBLIC_MAX_BODY_BYTES" default:"2097152"`
	APIRateLimit       int      `envconfig:"API_RATE_LIMIT" default:"300"`

	SignatureInFlightTTL time.Duration `envconfig:"SIGNATURE_INFLIGHT_TTL" default:"2m"`
	SignatureLedgerTTL   time.Duration `envconfig:"SIGNATURE_LEDGER_TTL" default:"720h"`

	ExpirySweepCron   string `envconfig:"EXPIRY_SWEEP_CRON" default:"*/15 * * * *"`
	WorkerConcurrency int    `envconfig:"WORKER_CONCURRENCY" default:"2"`

	PreferencesNamespace string `envconfig:"PREFERENCES_NAMESPACE" default:"default"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config missing")
	}
	u, err := url.Parse(c.CRMBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("CRM_BASE_URL must be an absolute URL, got %q", c.CRMBaseURL)
	}
	switch strings.ToLower(c.PDFRenderer) {
	case PDFRendererGotenberg, PDFRendererFPDF:
	default:
		return fmt.Errorf("PDF_RENDERER must be %q or %q, got %q", PDFRendererGotenberg, PDFRendererFPDF, c.PDFRenderer)
	}
	if c.PublicRateLimit <= 0 {
		return errors.New("PUBLIC_RATE_LIMIT must be positive")
	}
	if c.PublicMaxBodyBytes <= 0 {
		return errors.New("PUBLIC_MAX_BODY_BYTES must be positive")
	}
	if c.SignatureInFlightTTL <= 0 || c.SignatureLedgerTTL <= c.SignatureInFlightTTL {
		return errors.New("SIGNATURE_LEDGER_TTL must exceed SIGNATURE_INFLIGHT_TTL")
	}
	return nil
}

const (
	PDFRendererGotenberg = "gotenberg"
	PDFRendererFPDF      = "fpdf"
)

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
