// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// CronConfig provides the shared secret guarding periodic job endpoints.
type CronConfig interface {
	GetCronSecret() string
}

// CallbackConfig provides the shared secret guarding the notification-status
// webhook called by the external workflow engine.
type CallbackConfig interface {
	GetCallbackSecret() string
}

// WorkflowConfig provides settings for outbound workflow-engine calls.
type WorkflowConfig interface {
	GetWorkflowWebhookURL() string
	GetFollowUpWebhookURL() string
	GetWorkflowTimeout() time.Duration
}

// AppConfig provides the public application base URL used when building
// acceptance links.
type AppConfig interface {
	GetAppBaseURL() string
}

// TokenConfig provides settings for signed acceptance tokens.
type TokenConfig interface {
	GetAcceptTokenSecret() string
	GetAcceptTokenTTL() time.Duration
}

// SchedulerConfig provides settings for the asynq scheduler and Redis.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// EmailConfig provides settings for direct SMTP delivery of the email channel.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// StorageConfig provides settings for the MinIO object store holding lead photos.
type StorageConfig interface {
	GetMinioEndpoint() string
	GetMinioAccessKey() string
	GetMinioSecretKey() string
	GetMinioUseSSL() bool
	GetMinioBucketLeadPhotos() string
}

// TemplateConfig provides the path to channel message templates.
type TemplateConfig interface {
	GetTemplatesPath() string
}

// =============================================================================
// Config
// =============================================================================

// Config holds all application configuration, loaded once at startup.
// Components receive the narrow interface they need, never the environment.
type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL string

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	CronSecret     string
	CallbackSecret string

	WorkflowWebhookURL string
	FollowUpWebhookURL string
	WorkflowTimeout    time.Duration

	AppBaseURL        string
	AcceptTokenSecret string
	AcceptTokenTTL    time.Duration

	EmailEnabled     bool
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string

	MinioEndpoint         string
	MinioAccessKey        string
	MinioSecretKey        string
	MinioUseSSL           bool
	MinioBucketLeadPhotos string

	TemplatesPath string
}

// Load reads configuration from the environment (and an optional .env file)
// and validates the values that are required at startup.
func Load() (*Config, error) {
	_ = godotenv.Load()

	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "false"), "true")

	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: getIntEnv("ASYNQ_CONCURRENCY", 10),

		CronSecret:     getEnv("CRON_SECRET", ""),
		CallbackSecret: getEnv("NOTIFICATION_CALLBACK_SECRET", ""),

		WorkflowWebhookURL: getEnv("WORKFLOW_WEBHOOK_URL", ""),
		FollowUpWebhookURL: getEnv("FOLLOWUP_WEBHOOK_URL", ""),
		WorkflowTimeout:    mustDuration(getEnv("WORKFLOW_TIMEOUT", "10s")),

		AppBaseURL:        getEnv("APP_BASE_URL", "http://localhost:4200"),
		AcceptTokenSecret: getEnv("ACCEPT_TOKEN_SECRET", ""),
		AcceptTokenTTL:    mustDuration(getEnv("ACCEPT_TOKEN_TTL", "72h")),

		EmailEnabled:     emailEnabled,
		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         getIntEnv("SMTP_PORT", 587),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "Artisan Dispatch"),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),

		MinioEndpoint:         getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey:        getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:        getEnv("MINIO_SECRET_KEY", ""),
		MinioUseSSL:           strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketLeadPhotos: getEnv("MINIO_BUCKET_LEAD_PHOTOS", "lead-photos"),

		TemplatesPath: getEnv("TEMPLATES_PATH", "templates/channels.yaml"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.AcceptTokenSecret == "" {
		return nil, fmt.Errorf("ACCEPT_TOKEN_SECRET is required")
	}
	if cfg.WorkflowTimeout <= 0 {
		return nil, fmt.Errorf("WORKFLOW_TIMEOUT must be a positive duration")
	}
	if emailEnabled && (cfg.SMTPHost == "" || cfg.EmailFromAddress == "") {
		return nil, fmt.Errorf("SMTP_HOST and EMAIL_FROM_ADDRESS are required when EMAIL_ENABLED is true")
	}

	return cfg, nil
}

// =============================================================================
// Interface implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

func (c *Config) GetCronSecret() string     { return c.CronSecret }
func (c *Config) GetCallbackSecret() string { return c.CallbackSecret }

func (c *Config) GetWorkflowWebhookURL() string     { return c.WorkflowWebhookURL }
func (c *Config) GetFollowUpWebhookURL() string     { return c.FollowUpWebhookURL }
func (c *Config) GetWorkflowTimeout() time.Duration { return c.WorkflowTimeout }

func (c *Config) GetAppBaseURL() string { return c.AppBaseURL }

func (c *Config) GetAcceptTokenSecret() string     { return c.AcceptTokenSecret }
func (c *Config) GetAcceptTokenTTL() time.Duration { return c.AcceptTokenTTL }

func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

func (c *Config) GetMinioEndpoint() string         { return c.MinioEndpoint }
func (c *Config) GetMinioAccessKey() string        { return c.MinioAccessKey }
func (c *Config) GetMinioSecretKey() string        { return c.MinioSecretKey }
func (c *Config) GetMinioUseSSL() bool             { return c.MinioUseSSL }
func (c *Config) GetMinioBucketLeadPhotos() string { return c.MinioBucketLeadPhotos }

func (c *Config) GetTemplatesPath() string { return c.TemplatesPath }

// =============================================================================
// Helpers
// =============================================================================

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}
