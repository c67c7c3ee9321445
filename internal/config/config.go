package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string

	ResetTokenSecret string
	SessionTTL       time.Duration
	ResetCodeTTL     time.Duration
	ResetTokenTTL    time.Duration
	ResetCodeLength  int

	AllowOrigins    []string
	LogstashTCPAddr string
	ShopBaseURL     string

	SMSGatewayURL    string
	SMSGatewayAPIKey string
	SMSFrom          string

	MinIOEndpoint      string
	MinIOAccessKey     string
	MinIOSecretKey     string
	MinIOUseSSL        bool
	MinIOBucketProduct string
	MinIOPublicURL     string

	ProductImageMaxBytes int64
	ProductImageMaxDim   int
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	otpLen := 6
	if v, err := strconv.Atoi(getenv("RESET_CODE_LENGTH", "6")); err == nil && v > 0 {
		otpLen = v
	}

	imageMax := int64(5 * 1024 * 1024)
	if v, err := strconv.ParseInt(getenv("PRODUCT_IMAGE_MAX_BYTES", "5242880"), 10, 64); err == nil && v > 0 {
		imageMax = v
	}

	imageMaxDim := 1600
	if v, err := strconv.Atoi(getenv("PRODUCT_IMAGE_MAX_DIMENSION", "1600")); err == nil && v > 0 {
		imageMaxDim = v
	}

	return Config{
		Port:        getenv("PORT", "8080"),
		DatabaseURL: must("DATABASE_URL"),

		ResetTokenSecret: must("RESET_TOKEN_SECRET"),
		SessionTTL:       duration(getenv("SESSION_TTL", "24h"), 24*time.Hour),
		ResetCodeTTL:     duration(getenv("RESET_CODE_TTL", "10m"), 10*time.Minute),
		ResetTokenTTL:    duration(getenv("RESET_TOKEN_TTL", "5m"), 5*time.Minute),
		ResetCodeLength:  otpLen,

		AllowOrigins:    splitAndTrim(getenv("ALLOW_ORIGINS", "*")),
		LogstashTCPAddr: getenv("LOGSTASH_TCP_ADDR", ""),
		ShopBaseURL:     getenv("SHOP_BASE_URL", ""),

		SMSGatewayURL:    getenv("SMS_GATEWAY_URL", ""),
		SMSGatewayAPIKey: getenv("SMS_GATEWAY_API_KEY", ""),
		SMSFrom:          getenv("SMS_FROM", "FreshValley"),

		MinIOEndpoint:      getenv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:     getenv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:     getenv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:        getenv("MINIO_USE_SSL", "false") == "true",
		MinIOBucketProduct: getenv("MINIO_BUCKET_PRODUCTS", "freshvalley-products"),
		MinIOPublicURL:     getenv("MINIO_PUBLIC_URL", ""),

		ProductImageMaxBytes: imageMax,
		ProductImageMaxDim:   imageMaxDim,
	}
}

func duration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitAndTrim(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}
