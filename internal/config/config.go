package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort  string
	AppEnv   string
	LogLevel string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to DynamoDB Local / LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string

	DynamoTables         DynamoTables
	DynamoBootstrap      bool
	DynamoMaxAttempts    int
	DynamoRetryBaseDelay time.Duration

	JWTSecret  string
	JWTExpiry  time.Duration
	BcryptCost int

	CartCacheTTL     time.Duration // 0 disables the cart cache
	ProductsCacheTTL time.Duration

	EmailTransport string // console | smtp | sns | s3
	EmailFrom      string
	SMTPHost       string
	SMTPPort       string
	SMTPUsername   string
	SMTPPassword   string
	SNSRegion      string
	SNSTopicARN    string
	S3OutboxBucket string

	AllowedOrigins []string // CORS allowed origins
	AuthRateLimit  float64  // requests/second per IP on /auth routes
	AuthRateBurst  int

	// TrustedProxyHops is how many reverse proxies in front of the server append to
	// X-Forwarded-For. 0 keys the limiter on the socket address.
	TrustedProxyHops int
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users    string
	Products string
	Carts    string
	Orders   string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:  getEnv("APP_PORT", "3000"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:    getEnv("DYNAMO_TABLE_USERS", "Users"),
			Products: getEnv("DYNAMO_TABLE_PRODUCTS", "Products"),
			Carts:    getEnv("DYNAMO_TABLE_CARTS", "Carts"),
			Orders:   getEnv("DYNAMO_TABLE_ORDERS", "Orders"),
		},
		DynamoBootstrap:      getEnvBool("DYNAMO_BOOTSTRAP", true),
		DynamoMaxAttempts:    getEnvInt("DYNAMO_MAX_ATTEMPTS", 5),
		DynamoRetryBaseDelay: getEnvDuration("DYNAMO_RETRY_BASE_DELAY", 50*time.Millisecond),

		JWTSecret:  getEnv("JWT_SECRET", "dev-secret"),
		JWTExpiry:  getEnvDuration("JWT_EXPIRY", 24*time.Hour),
		BcryptCost: getEnvInt("BCRYPT_COST", 10),

		CartCacheTTL:     getEnvDuration("CART_CACHE_TTL", 0),
		ProductsCacheTTL: getEnvDuration("PRODUCTS_CACHE_TTL", 15*time.Second),

		EmailTransport: strings.ToLower(getEnv("EMAIL_TRANSPORT", "console")),
		EmailFrom:      getEnv("EMAIL_FROM", "no-reply@example.com"),
		SMTPHost:       getEnv("SMTP_HOST", "localhost"),
		SMTPPort:       getEnv("SMTP_PORT", "1025"),
		SMTPUsername:   getEnv("SMTP_USERNAME", ""),
		SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
		SNSRegion:      getEnv("SNS_REGION", "us-east-1"),
		SNSTopicARN:    getEnv("SNS_TOPIC_ARN", ""),
		S3OutboxBucket: getEnv("S3_OUTBOX_BUCKET", "go-shop-outbox"),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		AuthRateLimit:  getEnvFloat("AUTH_RATE_LIMIT", 5),
		AuthRateBurst:  getEnvInt("AUTH_RATE_BURST", 10),

		TrustedProxyHops: getEnvInt("TRUSTED_PROXY_HOPS", 0),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("15s") or bare milliseconds ("15000").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
