package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Session  SessionConfig
	Storage  StorageConfig
	Chat     ChatConfig
	ImageGen ImageGenConfig
	Email    EmailConfig
	Limits   LimitsConfig
	Cleanup  CleanupConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	AutoMigrate       bool
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

// AuthConfig configures validation of tokens issued by the hosted auth provider.
type AuthConfig struct {
	JWTSecret string
	Issuer    string

	// BootstrapAdminID is granted the administrator role at startup when set.
	BootstrapAdminID string
}

// SessionConfig controls the anonymous session cookie used to cache fingerprints.
type SessionConfig struct {
	CookieName   string
	CookieDomain string
	CookieSecure bool
	SameSite     string
}

type StorageConfig struct {
	Region        string
	Bucket        string
	PublicBaseURL string
	Endpoint      string
	KeyPrefix     string
}

type ChatConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
	MaxTokens    int
}

type ImageGenConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

type EmailConfig struct {
	AWSRegion   string
	FromAddress string
	SiteURL     string
}

type LimitsConfig struct {
	ChatRequestsPerMinute     int
	GenerateRequestsPerMinute int
	UploadRequestsPerMinute   int
	IPHashSalt                string
}

type CleanupConfig struct {
	Interval           time.Duration
	LimitRetentionDays int
	EventRetentionDays int
	SessionMaxIdle     time.Duration
}

const defaultSystemPrompt = "You are the Inspire OKC assistant. You help visitors discover community events, " +
	"volunteer opportunities and local stories in Oklahoma City. Keep answers short, friendly and accurate. " +
	"If you are unsure about a date or venue, say so and suggest checking the events page."

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("AUTH_JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("AUTH_JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "inspireokc"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
			AutoMigrate:       getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: parseList(getEnv("TRUSTED_PROXIES", "")),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			// Chat streams and generations outlive the default 15s write timeout.
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 2*time.Minute),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret: jwtSecret,
			Issuer:    getEnv("AUTH_ISSUER", ""),

			BootstrapAdminID: getEnv("ADMIN_USER_ID", ""),
		},
		Session: SessionConfig{
			CookieName:   getEnv("SESSION_COOKIE_NAME", "tfm_session"),
			CookieDomain: getEnv("SESSION_COOKIE_DOMAIN", ""),
			CookieSecure: getEnvAsBool("SESSION_COOKIE_SECURE", env == "production"),
			SameSite:     getEnv("SESSION_COOKIE_SAMESITE", "lax"),
		},
		Storage: StorageConfig{
			Region:        getEnv("STORAGE_REGION", "us-east-1"),
			Bucket:        getEnv("STORAGE_BUCKET", "teefeeme-uploads"),
			PublicBaseURL: strings.TrimRight(getEnv("STORAGE_PUBLIC_BASE_URL", ""), "/"),
			Endpoint:      getEnv("STORAGE_ENDPOINT", ""),
			KeyPrefix:     getEnv("STORAGE_KEY_PREFIX", "uploads"),
		},
		Chat: ChatConfig{
			APIKey:       getEnv("CHAT_API_KEY", ""),
			BaseURL:      getEnv("CHAT_BASE_URL", "https://api.openai.com/v1"),
			Model:        getEnv("CHAT_MODEL", "gpt-4o-mini"),
			SystemPrompt: getEnv("CHAT_SYSTEM_PROMPT", defaultSystemPrompt),
			MaxTokens:    getEnvAsInt("CHAT_MAX_TOKENS", 800),
		},
		ImageGen: ImageGenConfig{
			Endpoint: getEnv("IMAGEGEN_ENDPOINT", ""),
			APIKey:   getEnv("IMAGEGEN_API_KEY", ""),
			Timeout:  getEnvAsDuration("IMAGEGEN_TIMEOUT", 90*time.Second),
		},
		Email: EmailConfig{
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", "noreply@inspireokc.com"),
			SiteURL:     strings.TrimRight(getEnv("SITE_URL", "http://localhost:5173"), "/"),
		},
		Limits: LimitsConfig{
			ChatRequestsPerMinute:     getEnvAsInt("CHAT_REQUESTS_PER_MINUTE", 20),
			GenerateRequestsPerMinute: getEnvAsInt("GENERATE_REQUESTS_PER_MINUTE", 5),
			UploadRequestsPerMinute:   getEnvAsInt("UPLOAD_REQUESTS_PER_MINUTE", 10),
			IPHashSalt:                getEnv("IP_HASH_SALT", ""),
		},
		Cleanup: CleanupConfig{
			Interval:           getEnvAsDuration("CLEANUP_INTERVAL", 1*time.Hour),
			LimitRetentionDays: getEnvAsInt("LIMIT_RETENTION_DAYS", 30),
			EventRetentionDays: getEnvAsInt("EVENT_RETENTION_DAYS", 90),
			SessionMaxIdle:     getEnvAsDuration("SESSION_MAX_IDLE", 2*time.Hour),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateJWTSecret enforces minimum security standards for the token secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("AUTH_JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("AUTH_JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseList(value string) []string {
	if value == "" {
		return []string{}
	}
	items := strings.Split(value, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		return parseList(getEnv("ALLOWED_ORIGINS", ""))
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173", // Vite default
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
