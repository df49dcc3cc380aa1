package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Upload   UploadConfig
	Pipeline PipelineConfig
	Jobs     JobsConfig
	Webhook  WebhookConfig
	Realtime RealtimeConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	RealtimeLogPath    string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	InstanceID         string
}

type DatabaseConfig struct {
	Connection string
	Driver     string // "postgres" or "memory"
}

type AuthConfig struct {
	JWTSecret string
}

type UploadConfig struct {
	Dir          string
	MaxBytes     int64
	AllowedTypes []string
}

type PipelineConfig struct {
	BaseURL         string
	APIKey          string
	HTTPTimeout     time.Duration
	CallbackBaseURL string
	DispatchTries   uint
	DispatchTopic   string
}

type JobsConfig struct {
	Timeout       time.Duration
	SweepInterval time.Duration
	Store         string // "memory" or "redis"
}

type WebhookConfig struct {
	SigningSecret string
	SharedSecret  string
	MaxSkew       time.Duration
}

type RealtimeConfig struct {
	Channel string
}

// DefaultAllowedTypes are the upload formats the pipeline accepts.
var DefaultAllowedTypes = []string{
	"audio/mpeg",
	"audio/wav",
	"audio/mp4",
	"audio/x-m4a",
	"audio/ogg",
	"audio/webm",
	"audio/flac",
	"audio/aac",
	"text/plain",
	"application/pdf",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/msword",
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	baseURL := getEnv("APP_BASE_URL", "http://localhost:3000")

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            baseURL,
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			RealtimeLogPath:    getEnv("REALTIME_LOG_FILE_PATH", "realtime.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			InstanceID:         getEnv("INSTANCE_ID", uuid.NewString()),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
			Driver:     getEnv("STORE_DRIVER", "postgres"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Upload: UploadConfig{
			Dir:          getEnv("UPLOAD_DIR", "uploads"),
			MaxBytes:     getEnvAsInt64("UPLOAD_MAX_BYTES", 100<<20),
			AllowedTypes: getEnvAsList("UPLOAD_ALLOWED_TYPES", DefaultAllowedTypes),
		},
		Pipeline: PipelineConfig{
			BaseURL:         getEnv("PIPELINE_BASE_URL", "http://localhost:8000"),
			APIKey:          getEnv("PIPELINE_API_KEY", ""),
			HTTPTimeout:     getEnvAsDuration("PIPELINE_HTTP_TIMEOUT", 5*time.Minute),
			CallbackBaseURL: getEnv("PIPELINE_CALLBACK_BASE_URL", baseURL+"/api/webhooks"),
			DispatchTries:   uint(getEnvAsInt("PIPELINE_DISPATCH_MAX_TRIES", 3)),
			DispatchTopic:   getEnv("PIPELINE_DISPATCH_TOPIC", "PIPELINE_DISPATCH"),
		},
		Jobs: JobsConfig{
			Timeout:       getEnvAsDuration("JOB_TIMEOUT", 5*time.Minute),
			SweepInterval: getEnvAsDuration("JOB_SWEEP_INTERVAL", 30*time.Second),
			Store:         getEnv("JOB_STORE", "memory"),
		},
		Webhook: WebhookConfig{
			SigningSecret: getEnv("WEBHOOK_SIGNING_SECRET", ""),
			SharedSecret:  getEnv("WEBHOOK_SHARED_SECRET", ""),
			MaxSkew:       getEnvAsDuration("WEBHOOK_MAX_SKEW", 5*time.Minute),
		},
		Realtime: RealtimeConfig{
			Channel: getEnv("REALTIME_CHANNEL", "lifestory:realtime"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseInt(strValue, 10, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(strValue, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
