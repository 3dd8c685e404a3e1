package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Site origin used for canonical URLs and origin checks
	SiteURL            string
	CORSAllowedOrigins []string
	HTTPClientTimeout  time.Duration

	// PocketBase content store
	PocketBaseURL       string
	PocketBasePublicURL string
	PBAuthCollection    string
	PBServerEmail       string
	PBServerPassword    string
	SEOCacheTTL         time.Duration

	// Lead notification email
	EmailProvider  string
	ResendAPIKey   string
	SendGridAPIKey string
	LeadsFromEmail string
	LeadsFromName  string
	LeadsToEmail   string

	// AWS (SES email provider)
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Redis shared store for rate limits and the SEO cache (optional)
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	RateLimitMax    int
	RateLimitWindow time.Duration
}

// Load reads configuration from environment variables, after merging a
// local .env file when one exists.
func Load() *Config {
	_ = godotenv.Load()

	publicPB := getEnv("NEXT_PUBLIC_POCKETBASE_URL", "")
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      strings.ToLower(getEnv("ENV", EnvDevelopment)),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		SiteURL:            resolveSiteURL(),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),
		HTTPClientTimeout:  getEnvAsDuration("HTTP_CLIENT_TIMEOUT", 15*time.Second),

		PocketBaseURL:       getEnv("POCKETBASE_URL", publicPB),
		PocketBasePublicURL: getEnv("NEXT_PUBLIC_POCKETBASE_URL", getEnv("POCKETBASE_URL", "")),
		PBAuthCollection:    getEnv("PB_AUTH_COLLECTION", "users"),
		PBServerEmail:       strings.TrimSpace(getEnv("PB_SERVER_EMAIL", "")),
		PBServerPassword:    getEnv("PB_SERVER_PASSWORD", ""),
		SEOCacheTTL:         getEnvAsDuration("SEO_CACHE_TTL", 5*time.Minute),

		EmailProvider:  strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "auto"))),
		ResendAPIKey:   getEnv("RESEND_API_KEY", ""),
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		LeadsFromEmail: strings.TrimSpace(getEnv("LEADS_FROM_EMAIL", "")),
		LeadsFromName:  getEnv("LEADS_FROM_NAME", "Studio Website"),
		LeadsToEmail:   strings.TrimSpace(getEnv("LEADS_TO_EMAIL", "")),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		RateLimitMax:    getEnvAsInt("RATE_LIMIT_MAX", 5),
		RateLimitWindow: getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
	}
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// resolveSiteURL mirrors the deploy platform's precedence: explicit public
// site URL, then SITE_URL, then the platform host name.
func resolveSiteURL() string {
	raw := getEnv("NEXT_PUBLIC_SITE_URL", getEnv("SITE_URL", getEnv("VERCEL_URL", "")))
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "http://localhost:3000"
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return strings.TrimRight(raw, "/")
	}
	return "https://" + strings.TrimRight(raw, "/")
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
