package config

import (
	"fmt"
	"strings"
	"time"

	"avatar-service/internal/avatar"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Port            string `env:"APP_PORT" envDefault:"8003" validate:"required,numeric"`
	CanonicalWebURL string `env:"CANONICAL_WEB_URL" validate:"omitempty,url"`

	JWTSecret      string `env:"JWT_SECRET"`
	InternalSecret string `env:"INTERNAL_SHARED_SECRET"`

	OTelEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"jaeger:4317"`
	NatsURL      string `env:"NATS_URL" envDefault:"nats://localhost:4222"`

	RateLimitMax        int           `env:"RATE_LIMIT_MAX" envDefault:"100" validate:"min=0"`
	RateLimitExpiration time.Duration `env:"RATE_LIMIT_EXPIRATION" envDefault:"60s"`

	Avatar AvatarConfig
	DB     DBConfig
	S3     S3Config
}

// AvatarConfig mirrors the avatar.url and avatar.changeUrl settings. An unset
// or empty variable leaves the template nil.
type AvatarConfig struct {
	URL       *string `env:"AVATAR_URL"`
	ChangeURL *string `env:"AVATAR_CHANGE_URL"`
	UploadKey string  `env:"AVATAR_UPLOAD_KEY" envDefault:"user-avatars/%s.jpg" validate:"required,contains=%s"`
}

type DBConfig struct {
	User     string `env:"DB_USER"`
	Password string `env:"DB_PASSWORD"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432" validate:"numeric"`
	Name     string `env:"DB_NAME"`
}

type S3Config struct {
	Endpoint     string `env:"S3_ENDPOINT"`
	Region       string `env:"AWS_REGION" envDefault:"us-east-1"`
	BucketName   string `env:"S3_BUCKET_NAME"`
	AccessKey    string `env:"AWS_ACCESS_KEY_ID"`
	SecretKey    string `env:"AWS_SECRET_ACCESS_KEY"`
	UsePathStyle bool   `env:"S3_USE_PATH_STYLE"`
}

// Load reads configuration from the process environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return validated(&cfg)
}

// LoadFrom reads configuration from environ instead of the process
// environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return validated(&cfg)
}

func validated(cfg *Config) (*Config, error) {
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SecureTransport reports whether the service is served over https.
func (c *Config) SecureTransport() bool {
	return strings.HasPrefix(c.CanonicalWebURL, "https://")
}

func (c *Config) Resolver() avatar.Config {
	return avatar.Config{
		URL:             c.Avatar.URL,
		ChangeURL:       c.Avatar.ChangeURL,
		SecureTransport: c.SecureTransport(),
	}
}

func (d DBConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}
