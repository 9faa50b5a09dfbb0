package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingSecrets is returned by RelayConfig.Validate when the bot token or chat id is unset.
var ErrMissingSecrets = errors.New("config: TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set")

// RelayConfig holds the relay server settings. Secrets are read once at start.
type RelayConfig struct {
	Port           int
	BotToken       string
	ChatID         string
	TelegramAPIURL string
	MaxUploadBytes int64
	SinkTimeout    time.Duration
	DatabasePath   string // Empty disables the delivery log
	Retention      time.Duration
	LogDirectory   string
	Debug          bool
}

// CaptureConfig holds the capture client settings.
// UploadTimeout defaults above the relay's SinkTimeout so a slow sink fails on the
// relay side first and the client sees its 500 instead of cutting the request.
type CaptureConfig struct {
	RelayURL      string
	CameraDevice  int
	Interval      time.Duration
	JPEGQuality   int // 0-100, 80 matches 0.8 on the canvas scale
	UploadTimeout time.Duration
	MetricsAddr   string // Empty disables the metrics listener
	LogDirectory  string
	Debug         bool
}

// LoadRelay reads the relay configuration from the environment and an optional .env file.
func LoadRelay() *RelayConfig {
	loadDotEnv()

	return &RelayConfig{
		Port:           getEnvAsInt("PORT", 8080),
		BotToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
		ChatID:         os.Getenv("TELEGRAM_CHAT_ID"),
		TelegramAPIURL: getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
		MaxUploadBytes: getEnvAsInt64("MAX_UPLOAD_BYTES", 10<<20),
		SinkTimeout:    getEnvAsMillis("SINK_TIMEOUT_MS", 15000),
		DatabasePath:   getEnv("DATABASE_PATH", filepath.Join(".", "data", "deliveries.db")),
		Retention:      time.Duration(getEnvAsInt("DELIVERY_RETENTION_HOURS", 72)) * time.Hour,
		LogDirectory:   getEnv("LOG_DIR", filepath.Join(".", "logs")),
		Debug:          getEnvAsBool("DEBUG", false),
	}
}

// LoadCapture reads the capture client configuration from the environment and an optional .env file.
func LoadCapture() *CaptureConfig {
	loadDotEnv()

	return &CaptureConfig{
		RelayURL:      getEnv("RELAY_URL", "http://localhost:8080/api/upload-frame"),
		CameraDevice:  getEnvAsInt("CAMERA_DEVICE", 0),
		Interval:      getEnvAsMillis("CAPTURE_INTERVAL_MS", 500),
		JPEGQuality:   clamp(getEnvAsInt("JPEG_QUALITY", 80), 1, 100),
		UploadTimeout: getEnvAsMillis("UPLOAD_TIMEOUT_MS", 20000),
		MetricsAddr:   getEnv("METRICS_ADDR", ""),
		LogDirectory:  getEnv("LOG_DIR", filepath.Join(".", "logs")),
		Debug:         getEnvAsBool("DEBUG", false),
	}
}

// Validate reports whether both relay secrets are present.
// A missing secret is a configuration fault; the server still starts and fails closed per request.
func (c *RelayConfig) Validate() error {
	if !c.Configured() {
		return ErrMissingSecrets
	}
	return nil
}

// Configured reports whether the bot token and destination chat are both set.
func (c *RelayConfig) Configured() bool {
	return c.BotToken != "" && c.ChatID != ""
}

func loadDotEnv() {
	// A missing .env is normal in production.
	_ = godotenv.Load()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsMillis(key string, defaultMillis int) time.Duration {
	ms := getEnvAsInt(key, defaultMillis)
	if ms <= 0 {
		ms = defaultMillis
	}
	return time.Duration(ms) * time.Millisecond
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
