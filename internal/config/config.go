// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultIdentitySecret = "dev-identity-secret-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port         string `mapstructure:"PORT"`
	Env          string `mapstructure:"APP_ENV"`
	DBDriver     string `mapstructure:"DB_DRIVER"`
	DBHost       string `mapstructure:"DB_HOST"`
	DBPort       string `mapstructure:"DB_PORT"`
	DBUser       string `mapstructure:"DB_USER"`
	DBPassword   string `mapstructure:"DB_PASSWORD"`
	DBName       string `mapstructure:"DB_NAME"`
	DBSSLMode    string `mapstructure:"DB_SSLMODE"`
	DBSQLitePath string `mapstructure:"DB_SQLITE_PATH"`
	DBSchemaMode string `mapstructure:"DB_SCHEMA_MODE"`
	RedisURL     string `mapstructure:"REDIS_URL"`

	IdentityJWTSecret string `mapstructure:"IDENTITY_JWT_SECRET"`
	IdentityIssuer    string `mapstructure:"IDENTITY_ISSUER"`
	IdentityAudience  string `mapstructure:"IDENTITY_AUDIENCE"`
	AdminEmails       string `mapstructure:"ADMIN_EMAILS"`

	AllowedOrigins    string        `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags      string        `mapstructure:"FEATURE_FLAGS"`
	CommentMaxLength  int           `mapstructure:"COMMENT_MAX_LENGTH"`
	ViewRecordTimeout time.Duration `mapstructure:"VIEW_RECORD_TIMEOUT"`
	ReconcileInterval time.Duration `mapstructure:"RECONCILE_INTERVAL"`
	CategoriesFile    string        `mapstructure:"CATEGORIES_FILE"`

	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint        string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	v.AddConfigPath("../..")
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()

	// The base file is optional; env vars and defaults are enough to boot.
	_ = v.ReadInConfig()

	env := v.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" {
		v.SetConfigName("config." + env)
		if err := v.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config.%s.yml: %w", env, err)
			}
		} else {
			log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
		}
	}

	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "blogspace")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "blogspace")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_SQLITE_PATH", "blogspace.db")
	v.SetDefault("DB_SCHEMA_MODE", "hybrid")
	v.SetDefault("REDIS_URL", "localhost:6379")
	v.SetDefault("IDENTITY_JWT_SECRET", defaultIdentitySecret)
	v.SetDefault("IDENTITY_ISSUER", "")
	v.SetDefault("IDENTITY_AUDIENCE", "")
	v.SetDefault("ADMIN_EMAILS", "")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")
	v.SetDefault("FEATURE_FLAGS", "post_cache=on,drift_sweeper=on")
	v.SetDefault("COMMENT_MAX_LENGTH", 500)
	v.SetDefault("VIEW_RECORD_TIMEOUT", 5*time.Second)
	v.SetDefault("RECONCILE_INTERVAL", 10*time.Minute)
	v.SetDefault("CATEGORIES_FILE", "")
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_EXPORTER", "stdout")
	v.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	v.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
}

// IsProduction reports whether the config targets a production environment.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Env))
	return env == "production" || env == "prod"
}

// AdminEmailList returns the normalized ADMIN_EMAILS entries.
func (c *Config) AdminEmailList() []string {
	var out []string
	for _, raw := range strings.Split(c.AdminEmails, ",") {
		email := strings.ToLower(strings.TrimSpace(raw))
		if email != "" {
			out = append(out, email)
		}
	}
	return out
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.IdentityJWTSecret == "" {
		return errors.New("IDENTITY_JWT_SECRET is required")
	}

	switch strings.ToLower(c.DBDriver) {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	switch strings.ToLower(c.DBSchemaMode) {
	case "", "hybrid", "sql", "auto":
	default:
		return fmt.Errorf("unsupported DB_SCHEMA_MODE %q", c.DBSchemaMode)
	}

	if c.CommentMaxLength <= 0 {
		return errors.New("COMMENT_MAX_LENGTH must be positive")
	}
	if c.ReconcileInterval < 0 {
		return errors.New("RECONCILE_INTERVAL cannot be negative")
	}

	if c.IsProduction() {
		if c.IdentityJWTSecret == defaultIdentitySecret {
			return errors.New("IDENTITY_JWT_SECRET must be changed from the default value in production")
		}
		if len(c.IdentityJWTSecret) < 32 {
			return errors.New("IDENTITY_JWT_SECRET must be at least 32 characters in production")
		}
		if strings.EqualFold(c.DBDriver, "postgres") && (c.DBPassword == "password" || c.DBPassword == "") {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			log.Println("WARNING: DB_SSLMODE is 'disable' in production. It is highly recommended to use SSL for database connections.")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.IdentityJWTSecret) < 32 {
		log.Println("WARNING: IDENTITY_JWT_SECRET is shorter than 32 characters. Use a stronger secret for production.")
	}

	return nil
}
