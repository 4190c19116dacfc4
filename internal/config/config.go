package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Logging  LoggingConfig  `json:"logging"`
	Redis    RedisConfig    `json:"redis"`
	Alerting AlertingConfig `json:"alerting"`
}

type ServerConfig struct {
	BindAddr string `json:"bindAddr"`
}

type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

// DSN builds a lib/pq style connection string; empty Host disables the
// database and every store falls back to its in-memory implementation.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type LoggingConfig struct {
	Level string `json:"level"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type AlertingConfig struct {
	Detector Detector          `json:"detector"`
	Metrics  MetricsSource     `json:"metrics"`
	Notify   NotifyConfig      `json:"notify"`
	Defaults DefaultsConfig    `json:"defaults"`
	Servers  []MonitoredServer `json:"servers"`
}

// MonitoredServer registers one broker for the detection loop. Only
// settable through the config file; deployments with a control plane
// swap in their own registry.
type MonitoredServer struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	WorkspaceID string `json:"workspaceId"`
}

type Detector struct {
	Interval  string `json:"interval"`  // e.g. "30s"
	Retention string `json:"retention"` // resolved alert retention, e.g. "720h"
}

type MetricsSource struct {
	BaseURL string `json:"baseURL"`
	Token   string `json:"token"`
	Timeout string `json:"timeout"`
}

type NotifyConfig struct {
	DashboardBaseURL string `json:"dashboardBaseURL"`
	MaxRetries       int    `json:"maxRetries"`
	BaseDelay        string `json:"baseDelay"`
	AttemptTimeout   string `json:"attemptTimeout"`
	Email            Email  `json:"email"`
}

type Email struct {
	Provider     string `json:"provider"` // "smtp" or "resend"
	From         string `json:"from"`
	SMTPHost     string `json:"smtpHost"`
	SMTPPort     int    `json:"smtpPort"`
	SMTPUser     string `json:"smtpUser"`
	SMTPPassword string `json:"smtpPassword"`
	ResendAPIKey string `json:"resendAPIKey"`
}

type DefaultsConfig struct {
	ThresholdsFile string `json:"thresholdsFile"` // optional YAML override of built-in thresholds
}

func Load() (*Config, error) {
	configFile := flag.String("f", "", "Path to configuration file")
	flag.Parse()

	cfg := &Config{
		Server: ServerConfig{
			BindAddr: getEnv("SERVER_BIND_ADDR", "0.0.0.0:8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", ""),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "lepusmon"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "lepusmon"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Alerting: AlertingConfig{
			Detector: Detector{
				Interval:  getEnv("DETECTOR_INTERVAL", "30s"),
				Retention: getEnv("RESOLVED_RETENTION", "720h"),
			},
			Metrics: MetricsSource{
				BaseURL: getEnv("METRICS_BASE_URL", "http://localhost:15672"),
				Token:   getEnv("METRICS_TOKEN", ""),
				Timeout: getEnv("METRICS_TIMEOUT", "30s"),
			},
			Notify: NotifyConfig{
				DashboardBaseURL: getEnv("DASHBOARD_BASE_URL", ""),
				MaxRetries:       getEnvInt("NOTIFY_MAX_RETRIES", 3),
				BaseDelay:        getEnv("NOTIFY_BASE_DELAY", "500ms"),
				AttemptTimeout:   getEnv("NOTIFY_ATTEMPT_TIMEOUT", "10s"),
				Email: Email{
					Provider:     getEnv("EMAIL_PROVIDER", "smtp"),
					From:         getEnv("EMAIL_FROM", ""),
					SMTPHost:     getEnv("SMTP_HOST", ""),
					SMTPPort:     getEnvInt("SMTP_PORT", 587),
					SMTPUser:     getEnv("SMTP_USER", ""),
					SMTPPassword: getEnv("SMTP_PASSWORD", ""),
					ResendAPIKey: getEnv("RESEND_API_KEY", ""),
				},
			},
			Defaults: DefaultsConfig{
				ThresholdsFile: getEnv("THRESHOLD_DEFAULTS_FILE", ""),
			},
		},
	}

	if *configFile != "" {
		if err := loadFromFile(cfg, *configFile); err != nil {
			log.Err(err)
			return nil, err
		}
	}

	// fill reasonable defaults when fields omitted in file
	if cfg.Server.BindAddr == "" {
		cfg.Server.BindAddr = "0.0.0.0:8080"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Alerting.Detector.Interval == "" {
		cfg.Alerting.Detector.Interval = "30s"
	}
	if cfg.Alerting.Detector.Retention == "" {
		cfg.Alerting.Detector.Retention = "720h"
	}
	if cfg.Alerting.Metrics.Timeout == "" {
		cfg.Alerting.Metrics.Timeout = "30s"
	}
	if cfg.Alerting.Notify.MaxRetries == 0 {
		cfg.Alerting.Notify.MaxRetries = 3
	}
	if cfg.Alerting.Notify.BaseDelay == "" {
		cfg.Alerting.Notify.BaseDelay = "500ms"
	}
	if cfg.Alerting.Notify.AttemptTimeout == "" {
		cfg.Alerting.Notify.AttemptTimeout = "10s"
	}

	return cfg, nil
}

func loadFromFile(cfg *Config, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filePath, err)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
