package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string `env:"DATABASE_URL,required,notEmpty"`
	JWTSecretKey string `env:"JWT_SECRET_KEY,required,notEmpty"`
	ServerPort   int    `env:"SERVER_PORT" envDefault:"8080"`

	SMTPHost         string `env:"SMTP_HOST"`
	SMTPPort         int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser         string `env:"SMTP_USER"`
	SMTPPass         string `env:"SMTP_PASS"`
	SMTPFrom         string `env:"SMTP_FROM"`
	PublicURL        string `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`
	EmailTemplateDir string `env:"EMAIL_TEMPLATE_DIR" envDefault:"templates/emails"`

	Notify NotifyConfig

	R2 R2Config

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// ReconcileInterval is how often cached registration counters are recomputed; 0 disables the job.
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"15m"`
}

// NotifyConfig tunes the asynchronous email dispatcher.
type NotifyConfig struct {
	QueueSize   int           `env:"NOTIFY_QUEUE_SIZE" envDefault:"256"`
	RatePerSec  float64       `env:"NOTIFY_RATE_PER_SEC" envDefault:"5"`
	Timeout     time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"10s"`
	MaxAttempts uint          `env:"NOTIFY_MAX_ATTEMPTS" envDefault:"3"`
}

// R2Config is optional; promo image uploads are disabled unless every field is set.
type R2Config struct {
	AccountID       string `env:"R2_ACCOUNT_ID"`
	AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"R2_SECRET_ACCESS_KEY"`
	BucketName      string `env:"R2_BUCKET_NAME"`
	PublicBaseURL   string `env:"R2_PUBLIC_BASE_URL"`
}

// SMTPEnabled reports whether outgoing email is configured.
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	// Загружаем .env файл, если он есть. Ошибку не считаем фатальной.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.ServerPort)
	}
	if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
		return fmt.Errorf("SMTP_PORT must be between 1 and 65535, got %d", c.SMTPPort)
	}
	if c.Notify.QueueSize <= 0 {
		return fmt.Errorf("NOTIFY_QUEUE_SIZE must be positive, got %d", c.Notify.QueueSize)
	}
	if c.Notify.RatePerSec <= 0 {
		return fmt.Errorf("NOTIFY_RATE_PER_SEC must be positive, got %v", c.Notify.RatePerSec)
	}
	if c.ReconcileInterval < 0 {
		return fmt.Errorf("RECONCILE_INTERVAL must not be negative, got %s", c.ReconcileInterval)
	}
	if c.Notify.MaxAttempts == 0 {
		return fmt.Errorf("NOTIFY_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}
